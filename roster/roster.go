// Package roster validates fantasy team rosters, provisions their owners and
// persists teams with their cost and points totals.
package roster

import (
	"fmt"
	"sort"
	"strings"
)

// MissingSampleLimit caps how many unresolved slugs an error lists.
const MissingSampleLimit = 80

// Entry is one roster line: a rider placed in a slot of an owner's team.
type Entry struct {
	TeamName  string
	Owner     string
	Slot      int
	RiderSlug string
	// PriceHint is a fallback price from the roster source, 0 if absent.
	PriceHint int
}

// TeamKey identifies a team within one import.
type TeamKey struct {
	TeamName string
	Owner    string
}

func (k TeamKey) String() string {
	return k.TeamName + " / " + k.Owner
}

// Team is a grouped roster, entries ordered by slot.
type Team struct {
	Key     TeamKey
	Entries []Entry
}

// DuplicateSlotError aborts an import when a team uses a slot twice.
type DuplicateSlotError struct {
	Team TeamKey
	Slot int
}

func (e *DuplicateSlotError) Error() string {
	return fmt.Sprintf("duplicate slot %d in roster: %s", e.Slot, e.Team)
}

// MissingRidersError aborts an import when rider slugs cannot be resolved.
// Slugs holds at most MissingSampleLimit entries; Total is the full count.
type MissingRidersError struct {
	Slugs []string
	Total int
}

func newMissingRidersError(slugs []string) *MissingRidersError {
	sample := slugs
	if len(sample) > MissingSampleLimit {
		sample = sample[:MissingSampleLimit]
	}
	return &MissingRidersError{Slugs: append([]string(nil), sample...), Total: len(slugs)}
}

func (e *MissingRidersError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "missing riders (by slug): %d", e.Total)
	for _, s := range e.Slugs {
		b.WriteString("\n- ")
		b.WriteString(s)
	}
	if e.Total > len(e.Slugs) {
		fmt.Fprintf(&b, "\n... and %d more", e.Total-len(e.Slugs))
	}
	return b.String()
}

// Group collects entries into teams in order of first appearance, each
// team's entries sorted by slot.
func Group(entries []Entry) []Team {
	index := map[TeamKey]int{}
	var teams []Team
	for _, e := range entries {
		key := TeamKey{TeamName: e.TeamName, Owner: e.Owner}
		i, ok := index[key]
		if !ok {
			i = len(teams)
			index[key] = i
			teams = append(teams, Team{Key: key})
		}
		teams[i].Entries = append(teams[i].Entries, e)
	}
	for i := range teams {
		sort.SliceStable(teams[i].Entries, func(a, b int) bool {
			return teams[i].Entries[a].Slot < teams[i].Entries[b].Slot
		})
	}
	return teams
}

// ValidateSlots rejects a team whose roster repeats a slot.
func ValidateSlots(t Team) error {
	seen := make(map[int]struct{}, len(t.Entries))
	for _, e := range t.Entries {
		if _, dup := seen[e.Slot]; dup {
			return &DuplicateSlotError{Team: t.Key, Slot: e.Slot}
		}
		seen[e.Slot] = struct{}{}
	}
	return nil
}

// SizeInBounds reports whether n lies in [min, max].
func SizeInBounds(n, min, max int) bool {
	return n >= min && n <= max
}

// Totals is a roster's valuation. Riders without a price or points row
// contribute 0 and are counted.
type Totals struct {
	Cost          int
	Points        int
	MissingPrices int
	MissingPoints int
}

// Warnings returns the non-fatal warning tags for the totals.
func (t Totals) Warnings() []string {
	var w []string
	if t.MissingPrices > 0 {
		w = append(w, fmt.Sprintf("missing_prices=%d", t.MissingPrices))
	}
	if t.MissingPoints > 0 {
		w = append(w, fmt.Sprintf("missing_points=%d", t.MissingPoints))
	}
	return w
}

// ComputeTotals sums prices and season points over a roster.
func ComputeTotals(riderIDs []int64, prices, points map[int64]int) Totals {
	var t Totals
	for _, id := range riderIDs {
		if p, ok := prices[id]; ok {
			t.Cost += p
		} else {
			t.MissingPrices++
		}
		if p, ok := points[id]; ok {
			t.Points += p
		} else {
			t.MissingPoints++
		}
	}
	return t
}

// BestHints returns the largest price hint seen per rider slug.
func BestHints(entries []Entry) map[string]int {
	hints := map[string]int{}
	for _, e := range entries {
		if e.PriceHint > hints[e.RiderSlug] {
			hints[e.RiderSlug] = e.PriceHint
		} else if _, ok := hints[e.RiderSlug]; !ok {
			hints[e.RiderSlug] = 0
		}
	}
	return hints
}

// NeedsPrice reports whether a price row should be (re)written with hint.
// Missing prices are always written; an existing 0 is replaced only by a
// non-zero hint; existing non-zero prices are kept.
func NeedsPrice(existing int, exists bool, hint int) bool {
	if !exists {
		return true
	}
	return existing == 0 && hint > 0
}

func uniqueSlugs(entries []Entry) []string {
	set := map[string]struct{}{}
	for _, e := range entries {
		set[e.RiderSlug] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
