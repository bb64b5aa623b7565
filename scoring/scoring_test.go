package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPointsForRankWithinTable(t *testing.T) {
	table := Table{
		0: {20, 10, 5},
		1: {50, 30, 20},
		2: {100, 80, 60, 40},
	}
	for tier, column := range table {
		for rank := 1; rank <= len(column); rank++ {
			assert.Equal(t, column[rank-1], PointsForRank(rank, tier, table), "tier %d rank %d", tier, rank)
		}
	}
}

func TestPointsForRankParticipationFloor(t *testing.T) {
	table := Table{1: {50, 30, 20}}

	assert.Equal(t, 20, PointsForRank(4, 1, table))
	assert.Equal(t, 20, PointsForRank(10, 1, table))
	assert.Equal(t, 20, PointsForRank(999, 1, table))
}

func TestPointsForRankNoPoints(t *testing.T) {
	table := Table{1: {50, 30, 20}, 3: {}}

	tests := []struct {
		name string
		rank int
		tier int
	}{
		{"zero rank", 0, 1},
		{"negative rank", -3, 1},
		{"unknown tier", 1, 7},
		{"empty column", 1, 3},
		{"negative rank unknown tier", -1, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Zero(t, PointsForRank(tt.rank, tt.tier, table))
		})
	}
}

func TestPointsForRankNilTable(t *testing.T) {
	assert.Zero(t, PointsForRank(1, 1, nil))
}

func TestFloor(t *testing.T) {
	table := Table{1: {50, 30, 20}}

	assert.Equal(t, 20, table.Floor(1))
	assert.Zero(t, table.Floor(2))
	assert.True(t, table.Has(1))
	assert.False(t, table.Has(2))
}
