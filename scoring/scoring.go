// Package scoring maps finishing positions to fantasy points.
package scoring

// Table maps a race tier to the points column for that tier.
// Index 0 of a column is the winner's points.
type Table map[int][]int

// PointsForRank returns the points a rider earns for finishing at rank
// (1-based) in a race of the given tier.
//
// Ranks past the end of the column earn the column's last value, so every
// classified finisher scores at least the participation floor. Non-positive
// ranks and tiers missing from the table earn nothing.
func PointsForRank(rank, tier int, table Table) int {
	if rank <= 0 {
		return 0
	}
	column := table[tier]
	if len(column) == 0 {
		return 0
	}
	if rank > len(column) {
		return column[len(column)-1]
	}
	return column[rank-1]
}

// Floor returns the participation points for a tier, or 0 for an unknown tier.
func (t Table) Floor(tier int) int {
	column := t[tier]
	if len(column) == 0 {
		return 0
	}
	return column[len(column)-1]
}

// Has reports whether the table has a non-empty column for tier.
func (t Table) Has(tier int) bool {
	return len(t[tier]) > 0
}
