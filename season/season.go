// Package season recomputes season-level derived totals (rider points and
// team points) from the stored race results.
//
// A recompute is a full rebuild: nothing is incremented, so re-running it
// over unchanged results converges on the same state.
package season

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/padraicbc/megabike/scoring"
)

// DefaultPageSize is the result page size used when none is configured.
const DefaultPageSize = 1000

// ScoredResult is one stored race result together with its race's slug and
// stored tier.
type ScoredResult struct {
	ResultID      int64
	RaceID        int64
	RaceSlug      string
	RiderID       int64
	Rank          int
	PointsAwarded int
	Tier          int
}

// Store is the persistence the aggregator needs.
type Store interface {
	// SeasonRaceIDs returns races dated within [start, end] (ISO dates).
	SeasonRaceIDs(ctx context.Context, start, end string) ([]int64, error)
	// ResultsPage returns up to limit results for the races, in a stable order.
	ResultsPage(ctx context.Context, raceIDs []int64, offset, limit int) ([]ScoredResult, error)
	// SetRaceTiers rewrites the stored tier by race id.
	SetRaceTiers(ctx context.Context, tiers map[int64]int) error
	// SetResultPoints rewrites points_awarded by result id.
	SetResultPoints(ctx context.Context, points map[int64]int) error
	// ReplaceRiderPoints makes totals the complete set of rider points rows
	// for the season.
	ReplaceRiderPoints(ctx context.Context, year int, totals map[int64]int) error
	SeasonTeamIDs(ctx context.Context, year int) ([]int64, error)
	RosterRiderIDs(ctx context.Context, teamID int64) ([]int64, error)
	SetTeamPoints(ctx context.Context, teamID int64, points int) error
}

// Summary reports what a recompute did.
type Summary struct {
	Season      int
	Races       int
	Results     int
	Retiered    int
	Rescored    int
	Riders      int
	Teams       int
	TeamsFailed int
}

// Aggregator recomputes season totals. Recomputes of the same season are
// serialised; different seasons may run concurrently.
type Aggregator struct {
	store    Store
	table    scoring.Table
	pageSize int
	tierOf   func(raceSlug string) int
	log      *zap.Logger

	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

// NewAggregator builds an Aggregator. pageSize <= 0 selects DefaultPageSize.
func NewAggregator(store Store, table scoring.Table, pageSize int, log *zap.Logger) *Aggregator {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{
		store:    store,
		table:    table,
		pageSize: pageSize,
		log:      log.With(zap.String("component", "season")),
		locks:    map[int]*sync.Mutex{},
	}
}

// WithTiers makes Recompute take each race's tier from tierOf instead of the
// tier stored at sync time. Races whose tier moved are rewritten.
func (a *Aggregator) WithTiers(tierOf func(raceSlug string) int) *Aggregator {
	a.tierOf = tierOf
	return a
}

// Window returns the first and last calendar dates of a season.
func Window(year int) (start, end string) {
	return fmt.Sprintf("%04d-01-01", year), fmt.Sprintf("%04d-12-31", year)
}

// SumByRider totals points per rider. Riders without results are absent.
func SumByRider(results []ScoredResult) map[int64]int {
	totals := make(map[int64]int)
	for _, r := range results {
		if r.RiderID == 0 {
			continue
		}
		totals[r.RiderID] += r.PointsAwarded
	}
	return totals
}

// TeamPoints sums rider points over a roster; riders without a total count 0.
func TeamPoints(roster []int64, points map[int64]int) int {
	total := 0
	for _, id := range roster {
		total += points[id]
	}
	return total
}

// Recompute rebuilds rider points and team points for a season.
//
// Stored points_awarded values are re-derived from rank and tier with the
// current table before summing, so a changed table never leaves stale totals.
// Failing to read the season's results aborts before anything is written;
// a failure on one team is logged and the pass continues.
func (a *Aggregator) Recompute(ctx context.Context, year int) (*Summary, error) {
	lock := a.seasonLock(year)
	lock.Lock()
	defer lock.Unlock()

	sum := &Summary{Season: year}
	start, end := Window(year)

	raceIDs, err := a.store.SeasonRaceIDs(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("season %d races: %w", year, err)
	}
	sum.Races = len(raceIDs)

	results, err := a.loadResults(ctx, raceIDs)
	if err != nil {
		return nil, fmt.Errorf("season %d results: %w", year, err)
	}
	sum.Results = len(results)

	retiered := a.retier(results)
	if len(retiered) > 0 {
		if err := a.store.SetRaceTiers(ctx, retiered); err != nil {
			return nil, fmt.Errorf("season %d race tiers: %w", year, err)
		}
		a.log.Info("race tiers changed", zap.Int("season", year), zap.Int("races", len(retiered)))
	}
	sum.Retiered = len(retiered)

	rescored := a.rescore(results)
	if len(rescored) > 0 {
		if err := a.store.SetResultPoints(ctx, rescored); err != nil {
			return nil, fmt.Errorf("season %d rescore: %w", year, err)
		}
		a.log.Info("rescored results", zap.Int("season", year), zap.Int("count", len(rescored)))
	}
	sum.Rescored = len(rescored)

	totals := SumByRider(results)
	if err := a.store.ReplaceRiderPoints(ctx, year, totals); err != nil {
		return nil, fmt.Errorf("season %d rider points: %w", year, err)
	}
	sum.Riders = len(totals)

	teamIDs, err := a.store.SeasonTeamIDs(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("season %d teams: %w", year, err)
	}
	for _, teamID := range teamIDs {
		if err := a.recomputeTeam(ctx, teamID, totals); err != nil {
			sum.TeamsFailed++
			a.log.Warn("team recompute failed", zap.Int("season", year), zap.Int64("team_id", teamID), zap.Error(err))
			continue
		}
		sum.Teams++
	}

	a.log.Info("season recomputed",
		zap.Int("season", year),
		zap.Int("races", sum.Races),
		zap.Int("results", sum.Results),
		zap.Int("riders", sum.Riders),
		zap.Int("teams", sum.Teams),
		zap.Int("teams_failed", sum.TeamsFailed),
	)
	return sum, nil
}

func (a *Aggregator) loadResults(ctx context.Context, raceIDs []int64) ([]ScoredResult, error) {
	if len(raceIDs) == 0 {
		return nil, nil
	}
	var out []ScoredResult
	for offset := 0; ; offset += a.pageSize {
		page, err := a.store.ResultsPage(ctx, raceIDs, offset, a.pageSize)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < a.pageSize {
			return out, nil
		}
	}
}

// retier moves results onto the tier tierOf gives their race and returns the
// races whose stored tier differs.
func (a *Aggregator) retier(results []ScoredResult) map[int64]int {
	changed := map[int64]int{}
	if a.tierOf == nil {
		return changed
	}
	for i := range results {
		tier := a.tierOf(results[i].RaceSlug)
		if tier != results[i].Tier {
			results[i].Tier = tier
			changed[results[i].RaceID] = tier
		}
	}
	return changed
}

// rescore updates results in place and returns the ids whose stored points
// disagree with the table. Without a table the stored points stand.
func (a *Aggregator) rescore(results []ScoredResult) map[int64]int {
	changed := map[int64]int{}
	if len(a.table) == 0 {
		return changed
	}
	for i := range results {
		pts := scoring.PointsForRank(results[i].Rank, results[i].Tier, a.table)
		if pts != results[i].PointsAwarded {
			results[i].PointsAwarded = pts
			changed[results[i].ResultID] = pts
		}
	}
	return changed
}

func (a *Aggregator) recomputeTeam(ctx context.Context, teamID int64, totals map[int64]int) error {
	roster, err := a.store.RosterRiderIDs(ctx, teamID)
	if err != nil {
		return err
	}
	return a.store.SetTeamPoints(ctx, teamID, TeamPoints(roster, totals))
}

func (a *Aggregator) seasonLock(year int) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.locks[year]
	if !ok {
		l = &sync.Mutex{}
		a.locks[year] = l
	}
	return l
}
