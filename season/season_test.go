package season

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padraicbc/megabike/scoring"
)

type fakeRace struct {
	id   int64
	slug string
	date string
	tier int
}

type fakeStore struct {
	races       []fakeRace
	results     []ScoredResult // Tier is filled from races on read
	raceOf      map[int64]int64
	riderPoints map[int][]map[int64]int
	current     map[int64]int
	teams       map[int64][]int64
	teamPoints  map[int64]int
	pageCalls   int

	failRoster map[int64]bool
	failPage   bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		raceOf:      map[int64]int64{},
		riderPoints: map[int][]map[int64]int{},
		current:     map[int64]int{},
		teams:       map[int64][]int64{},
		teamPoints:  map[int64]int{},
		failRoster:  map[int64]bool{},
	}
}

func (f *fakeStore) addResult(raceID, riderID int64, rank, points int) {
	id := int64(len(f.results) + 1)
	f.results = append(f.results, ScoredResult{ResultID: id, RiderID: riderID, Rank: rank, PointsAwarded: points})
	f.raceOf[id] = raceID
}

func (f *fakeStore) SeasonRaceIDs(_ context.Context, start, end string) ([]int64, error) {
	var ids []int64
	for _, r := range f.races {
		if r.date >= start && r.date <= end {
			ids = append(ids, r.id)
		}
	}
	return ids, nil
}

func (f *fakeStore) ResultsPage(_ context.Context, raceIDs []int64, offset, limit int) ([]ScoredResult, error) {
	f.pageCalls++
	if f.failPage {
		return nil, errors.New("page failed")
	}
	in := map[int64]bool{}
	for _, id := range raceIDs {
		in[id] = true
	}
	races := map[int64]fakeRace{}
	for _, r := range f.races {
		races[r.id] = r
	}
	var all []ScoredResult
	for _, r := range f.results {
		raceID := f.raceOf[r.ResultID]
		if in[raceID] {
			r.RaceID = raceID
			r.RaceSlug = races[raceID].slug
			r.Tier = races[raceID].tier
			all = append(all, r)
		}
	}
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (f *fakeStore) SetRaceTiers(_ context.Context, tiers map[int64]int) error {
	for i := range f.races {
		if tier, ok := tiers[f.races[i].id]; ok {
			f.races[i].tier = tier
		}
	}
	return nil
}

func (f *fakeStore) SetResultPoints(_ context.Context, points map[int64]int) error {
	for i := range f.results {
		if p, ok := points[f.results[i].ResultID]; ok {
			f.results[i].PointsAwarded = p
		}
	}
	return nil
}

func (f *fakeStore) ReplaceRiderPoints(_ context.Context, year int, totals map[int64]int) error {
	snapshot := map[int64]int{}
	for k, v := range totals {
		snapshot[k] = v
	}
	f.riderPoints[year] = append(f.riderPoints[year], snapshot)
	f.current = snapshot
	return nil
}

func (f *fakeStore) SeasonTeamIDs(context.Context, int) ([]int64, error) {
	var ids []int64
	for id := range f.teams {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (f *fakeStore) RosterRiderIDs(_ context.Context, teamID int64) ([]int64, error) {
	if f.failRoster[teamID] {
		return nil, errors.New("roster lookup failed")
	}
	return f.teams[teamID], nil
}

func (f *fakeStore) SetTeamPoints(_ context.Context, teamID int64, points int) error {
	f.teamPoints[teamID] = points
	return nil
}

func TestSumByRider(t *testing.T) {
	results := []ScoredResult{
		{RiderID: 1, PointsAwarded: 10},
		{RiderID: 1, PointsAwarded: 5},
		{RiderID: 2, PointsAwarded: 20},
	}
	assert.Equal(t, map[int64]int{1: 15, 2: 20}, SumByRider(results))
	assert.Empty(t, SumByRider(nil))
}

func TestTeamPointsMissingCountsZero(t *testing.T) {
	assert.Equal(t, 50, TeamPoints([]int64{1, 2, 3}, map[int64]int{1: 20, 3: 30}))
	assert.Zero(t, TeamPoints(nil, map[int64]int{1: 20}))
}

func TestWindow(t *testing.T) {
	start, end := Window(2025)
	assert.Equal(t, "2025-01-01", start)
	assert.Equal(t, "2025-12-31", end)
}

func TestRecomputeSumsSeasonOnly(t *testing.T) {
	store := newFakeStore()
	store.races = []fakeRace{
		{id: 1, date: "2025-03-22", tier: 1},
		{id: 2, date: "2025-04-06", tier: 1},
		{id: 3, date: "2024-10-12", tier: 1},
	}
	// rank 1 = 10, rank 2 = 5, rank 3+ = 1
	table := scoring.Table{1: {10, 5, 1}}
	store.addResult(1, 100, 1, 10)
	store.addResult(2, 100, 2, 5)
	store.addResult(1, 200, 2, 5)
	store.addResult(2, 200, 1, 10)
	store.addResult(2, 200, 0, 0)
	store.addResult(3, 100, 1, 10) // previous season
	store.teams[7] = []int64{100, 200}
	store.teams[8] = []int64{100, 300}
	store.teams[9] = nil

	agg := NewAggregator(store, table, 2, nil)
	sum, err := agg.Recompute(context.Background(), 2025)
	require.NoError(t, err)

	assert.Equal(t, map[int64]int{100: 15, 200: 15}, store.current)
	assert.Equal(t, map[int64]int{7: 30, 8: 15, 9: 0}, store.teamPoints)
	assert.Equal(t, 2, sum.Races)
	assert.Equal(t, 5, sum.Results)
	assert.Equal(t, 2, sum.Riders)
	assert.Equal(t, 3, sum.Teams)
	assert.Zero(t, sum.Rescored)
	// 5 results with page size 2: pages of 2, 2, 1
	assert.Equal(t, 3, store.pageCalls)
}

func TestRecomputeIsIdempotent(t *testing.T) {
	store := newFakeStore()
	store.races = []fakeRace{{id: 1, date: "2025-03-22", tier: 2}}
	table := scoring.Table{2: {50, 30, 20}}
	store.addResult(1, 1, 1, 50)
	store.addResult(1, 2, 3, 20)
	store.teams[1] = []int64{1, 2}

	agg := NewAggregator(store, table, 0, nil)
	_, err := agg.Recompute(context.Background(), 2025)
	require.NoError(t, err)
	firstTeams := map[int64]int{}
	for k, v := range store.teamPoints {
		firstTeams[k] = v
	}

	_, err = agg.Recompute(context.Background(), 2025)
	require.NoError(t, err)

	runs := store.riderPoints[2025]
	require.Len(t, runs, 2)
	assert.Equal(t, runs[0], runs[1])
	assert.Equal(t, firstTeams, store.teamPoints)
	assert.Equal(t, 70, store.teamPoints[1])
}

func TestRecomputeRescoresStalePoints(t *testing.T) {
	store := newFakeStore()
	store.races = []fakeRace{{id: 1, date: "2025-03-22", tier: 1}}
	store.addResult(1, 1, 1, 999) // stored under an older table
	store.addResult(1, 2, 10, 0)

	table := scoring.Table{1: {30, 20, 10}}
	sum, err := NewAggregator(store, table, 0, nil).Recompute(context.Background(), 2025)
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Rescored)
	assert.Equal(t, 30, store.results[0].PointsAwarded)
	assert.Equal(t, 10, store.results[1].PointsAwarded)
	assert.Equal(t, map[int64]int{1: 30, 2: 10}, store.current)
}

func TestRecomputeToleratesTeamFailure(t *testing.T) {
	store := newFakeStore()
	store.races = []fakeRace{{id: 1, date: "2025-03-22", tier: 1}}
	store.addResult(1, 1, 1, 30)
	store.teams[1] = []int64{1}
	store.teams[2] = []int64{1}
	store.failRoster[1] = true

	sum, err := NewAggregator(store, scoring.Table{1: {30}}, 0, nil).Recompute(context.Background(), 2025)
	require.NoError(t, err)

	assert.Equal(t, 1, sum.TeamsFailed)
	assert.Equal(t, 1, sum.Teams)
	assert.Equal(t, map[int64]int{2: 30}, store.teamPoints)
}

func TestRecomputeResultReadFailureWritesNothing(t *testing.T) {
	store := newFakeStore()
	store.races = []fakeRace{{id: 1, date: "2025-03-22", tier: 1}}
	store.addResult(1, 1, 1, 30)
	store.teams[1] = []int64{1}
	store.failPage = true

	_, err := NewAggregator(store, scoring.Table{1: {30}}, 0, nil).Recompute(context.Background(), 2025)
	require.Error(t, err)
	assert.Empty(t, store.riderPoints)
	assert.Empty(t, store.teamPoints)
}

func TestRecomputeEmptySeasonZeroesTeams(t *testing.T) {
	store := newFakeStore()
	store.teams[3] = []int64{1, 2}
	store.teamPoints[3] = 120

	sum, err := NewAggregator(store, scoring.Table{1: {30}}, 0, nil).Recompute(context.Background(), 2026)
	require.NoError(t, err)

	assert.Zero(t, sum.Races)
	assert.Zero(t, store.pageCalls)
	assert.Equal(t, 0, store.teamPoints[3])
	assert.Empty(t, store.current)
}

func TestRecomputeFollowsCurrentTiers(t *testing.T) {
	store := newFakeStore()
	store.races = []fakeRace{
		{id: 1, slug: "race/milano-sanremo/2025", date: "2025-03-22", tier: 1},
		{id: 2, slug: "race/gp-x/2025", date: "2025-04-06", tier: 1},
	}
	store.addResult(1, 1, 1, 30)
	store.addResult(2, 2, 1, 30)
	store.teams[1] = []int64{1, 2}

	table := scoring.Table{1: {30}, 2: {100}}
	// milano-sanremo moved up to tier 2 after it was synced
	tierOf := func(slug string) int {
		if slug == "race/milano-sanremo/2025" {
			return 2
		}
		return 1
	}
	agg := NewAggregator(store, table, 0, nil).WithTiers(tierOf)
	sum, err := agg.Recompute(context.Background(), 2025)
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Retiered)
	assert.Equal(t, 1, sum.Rescored)
	assert.Equal(t, 2, store.races[0].tier)
	assert.Equal(t, 1, store.races[1].tier)
	assert.Equal(t, map[int64]int{1: 100, 2: 30}, store.current)
	assert.Equal(t, 130, store.teamPoints[1])

	sum, err = agg.Recompute(context.Background(), 2025)
	require.NoError(t, err)
	assert.Zero(t, sum.Retiered)
	assert.Zero(t, sum.Rescored)
}
