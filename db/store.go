// Package db opens the database and implements the persistence used by the
// season, roster and ingest engines and the API.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/padraicbc/megabike/models"
	"github.com/padraicbc/megabike/season"
)

// DefaultBatchSize bounds rows per bulk statement and ids per IN list.
const DefaultBatchSize = 500

// Store is the bun-backed store.
type Store struct {
	db    *bun.DB
	batch int
}

// NewStore wraps db. batchSize <= 0 selects DefaultBatchSize.
func NewStore(db *bun.DB, batchSize int) *Store {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Store{db: db, batch: batchSize}
}

// DB returns the underlying connection.
func (s *Store) DB() *bun.DB {
	return s.db
}

func chunks[T any](items []T, size int) [][]T {
	var out [][]T
	for len(items) > size {
		out = append(out, items[:size])
		items = items[size:]
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}

// Riders

// UpsertRiders inserts or refreshes riders by slug and returns the ids of
// every slug given. A null team or nationality keeps the stored value.
func (s *Store) UpsertRiders(ctx context.Context, riders []models.Rider) (map[string]int64, error) {
	slugs := make([]string, 0, len(riders))
	for _, batch := range chunks(dedupeRiders(riders), s.batch) {
		_, err := s.db.NewInsert().
			Model(&batch).
			On("CONFLICT (pcs_slug) DO UPDATE").
			Set("rider_name = EXCLUDED.rider_name").
			Set("team_name = COALESCE(EXCLUDED.team_name, ?TableAlias.team_name)").
			Set("nationality = COALESCE(EXCLUDED.nationality, ?TableAlias.nationality)").
			Set("active = EXCLUDED.active").
			Returning("NULL").
			Exec(ctx)
		if err != nil {
			return nil, fmt.Errorf("upsert riders: %w", err)
		}
		for _, r := range batch {
			slugs = append(slugs, r.Slug)
		}
	}
	return s.RiderIDsBySlug(ctx, slugs)
}

// dedupeRiders keeps the last row per slug; one statement cannot touch a
// conflict target twice.
func dedupeRiders(riders []models.Rider) []models.Rider {
	index := map[string]int{}
	out := make([]models.Rider, 0, len(riders))
	for _, r := range riders {
		if i, ok := index[r.Slug]; ok {
			out[i] = r
			continue
		}
		index[r.Slug] = len(out)
		out = append(out, r)
	}
	return out
}

// CreateRider inserts a rider unless its slug exists and returns its id.
func (s *Store) CreateRider(ctx context.Context, rider *models.Rider) (int64, error) {
	_, err := s.db.NewInsert().
		Model(rider).
		On("CONFLICT (pcs_slug) DO NOTHING").
		Returning("NULL").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("create rider %s: %w", rider.Slug, err)
	}
	ids, err := s.RiderIDsBySlug(ctx, []string{rider.Slug})
	if err != nil {
		return 0, err
	}
	id, ok := ids[rider.Slug]
	if !ok {
		return 0, fmt.Errorf("create rider %s: not found after insert", rider.Slug)
	}
	return id, nil
}

// RiderIDsBySlug maps known slugs to rider ids. Unknown slugs are absent.
func (s *Store) RiderIDsBySlug(ctx context.Context, slugs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(slugs))
	for _, batch := range chunks(slugs, s.batch) {
		var rows []models.Rider
		err := s.db.NewSelect().
			Model(&rows).
			Column("id", "pcs_slug").
			Where("pcs_slug IN (?)", bun.In(batch)).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("rider ids: %w", err)
		}
		for _, r := range rows {
			out[r.Slug] = r.ID
		}
	}
	return out, nil
}

// RidersWithoutPhoto lists riders that have no photo url, by id.
func (s *Store) RidersWithoutPhoto(ctx context.Context) ([]models.Rider, error) {
	var rows []models.Rider
	err := s.db.NewSelect().Model(&rows).Where("photo_url IS NULL").Order("id").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("riders without photo: %w", err)
	}
	return rows, nil
}

// SetRiderPhoto stores a rider's photo url.
func (s *Store) SetRiderPhoto(ctx context.Context, riderID int64, url string) error {
	_, err := s.db.NewUpdate().
		Model((*models.Rider)(nil)).
		Set("photo_url = ?", url).
		Where("id = ?", riderID).
		Exec(ctx)
	return err
}

// Prices and points

// Prices returns season prices for the riders that have one.
func (s *Store) Prices(ctx context.Context, year int, riderIDs []int64) (map[int64]int, error) {
	out := make(map[int64]int, len(riderIDs))
	for _, batch := range chunks(riderIDs, s.batch) {
		var rows []models.RiderPrice
		err := s.db.NewSelect().
			Model(&rows).
			Column("rider_id", "price").
			Where("season_year = ?", year).
			Where("rider_id IN (?)", bun.In(batch)).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("prices: %w", err)
		}
		for _, r := range rows {
			out[r.RiderID] = r.Price
		}
	}
	return out, nil
}

// UpsertPrices writes prices by (season, rider), replacing existing values.
func (s *Store) UpsertPrices(ctx context.Context, prices []models.RiderPrice) error {
	for _, batch := range chunks(dedupePrices(prices), s.batch) {
		_, err := s.db.NewInsert().
			Model(&batch).
			On("CONFLICT (season_year, rider_id) DO UPDATE").
			Set("price = EXCLUDED.price").
			Returning("NULL").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("upsert prices: %w", err)
		}
	}
	return nil
}

func dedupePrices(prices []models.RiderPrice) []models.RiderPrice {
	type key struct {
		year  int
		rider int64
	}
	index := map[key]int{}
	out := make([]models.RiderPrice, 0, len(prices))
	for _, p := range prices {
		k := key{p.SeasonYear, p.RiderID}
		if i, ok := index[k]; ok {
			out[i] = p
			continue
		}
		index[k] = len(out)
		out = append(out, p)
	}
	return out
}

// RiderPoints returns season points for the riders that have a row.
func (s *Store) RiderPoints(ctx context.Context, year int, riderIDs []int64) (map[int64]int, error) {
	out := make(map[int64]int, len(riderIDs))
	for _, batch := range chunks(riderIDs, s.batch) {
		var rows []models.RiderPoints
		err := s.db.NewSelect().
			Model(&rows).
			Column("rider_id", "points").
			Where("season_year = ?", year).
			Where("rider_id IN (?)", bun.In(batch)).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("rider points: %w", err)
		}
		for _, r := range rows {
			out[r.RiderID] = r.Points
		}
	}
	return out, nil
}

// ReplaceRiderPoints makes totals the season's complete rider points set in
// one transaction. Riders absent from totals lose their row.
func (s *Store) ReplaceRiderPoints(ctx context.Context, year int, totals map[int64]int) error {
	rows := make([]models.RiderPoints, 0, len(totals))
	for id, pts := range totals {
		rows = append(rows, models.RiderPoints{SeasonYear: year, RiderID: id, Points: pts})
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*models.RiderPoints)(nil)).
			Where("season_year = ?", year).
			Exec(ctx); err != nil {
			return fmt.Errorf("clear rider points: %w", err)
		}
		for _, batch := range chunks(rows, s.batch) {
			if _, err := tx.NewInsert().Model(&batch).Returning("NULL").Exec(ctx); err != nil {
				return fmt.Errorf("insert rider points: %w", err)
			}
		}
		return nil
	})
}

// Races and results

// UpsertRace inserts or refreshes a race by slug and returns its id.
func (s *Store) UpsertRace(ctx context.Context, race *models.Race) (int64, error) {
	_, err := s.db.NewInsert().
		Model(race).
		On("CONFLICT (pcs_slug) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("race_date = EXCLUDED.race_date").
		Set("tier = EXCLUDED.tier").
		Returning("NULL").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("upsert race %s: %w", race.Slug, err)
	}
	var id int64
	err = s.db.NewSelect().
		Model((*models.Race)(nil)).
		Column("id").
		Where("pcs_slug = ?", race.Slug).
		Scan(ctx, &id)
	if err != nil {
		return 0, fmt.Errorf("race id %s: %w", race.Slug, err)
	}
	return id, nil
}

// UpsertResults writes results by (race, rider).
func (s *Store) UpsertResults(ctx context.Context, results []models.RaceResult) error {
	for _, batch := range chunks(dedupeResults(results), s.batch) {
		_, err := s.db.NewInsert().
			Model(&batch).
			On("CONFLICT (race_id, rider_id) DO UPDATE").
			Set("rank = EXCLUDED.rank").
			Set("points_awarded = EXCLUDED.points_awarded").
			Returning("NULL").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("upsert results: %w", err)
		}
	}
	return nil
}

func dedupeResults(results []models.RaceResult) []models.RaceResult {
	type key struct{ race, rider int64 }
	index := map[key]int{}
	out := make([]models.RaceResult, 0, len(results))
	for _, r := range results {
		k := key{r.RaceID, r.RiderID}
		if i, ok := index[k]; ok {
			out[i] = r
			continue
		}
		index[k] = len(out)
		out = append(out, r)
	}
	return out
}

// SeasonRaceIDs returns races dated within [start, end].
func (s *Store) SeasonRaceIDs(ctx context.Context, start, end string) ([]int64, error) {
	var ids []int64
	err := s.db.NewSelect().
		Model((*models.Race)(nil)).
		Column("id").
		Where("race_date >= ?", start).
		Where("race_date <= ?", end).
		Order("id").
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("season races: %w", err)
	}
	return ids, nil
}

type scoredRow struct {
	ResultID      int64  `bun:"result_id"`
	RaceID        int64  `bun:"race_id"`
	RaceSlug      string `bun:"race_slug"`
	RiderID       int64  `bun:"rider_id"`
	Rank          int    `bun:"rank"`
	PointsAwarded int    `bun:"points_awarded"`
	Tier          int    `bun:"tier"`
}

// ResultsPage returns one page of the races' results ordered by result id.
func (s *Store) ResultsPage(ctx context.Context, raceIDs []int64, offset, limit int) ([]season.ScoredResult, error) {
	if len(raceIDs) == 0 {
		return nil, nil
	}
	var rows []scoredRow
	err := s.db.NewSelect().
		TableExpr("race_results AS rr").
		ColumnExpr("rr.id AS result_id, rr.race_id, rc.pcs_slug AS race_slug, rr.rider_id, rr.rank, rr.points_awarded, rc.tier").
		Join("JOIN races AS rc ON rc.id = rr.race_id").
		Where("rr.race_id IN (?)", bun.In(raceIDs)).
		OrderExpr("rr.id").
		Limit(limit).
		Offset(offset).
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("results page at %d: %w", offset, err)
	}
	out := make([]season.ScoredResult, len(rows))
	for i, r := range rows {
		out[i] = season.ScoredResult(r)
	}
	return out, nil
}

// SetRaceTiers rewrites race tiers by id in one transaction.
func (s *Store) SetRaceTiers(ctx context.Context, tiers map[int64]int) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for id, tier := range tiers {
			if _, err := tx.NewUpdate().
				Model((*models.Race)(nil)).
				Set("tier = ?", tier).
				Where("id = ?", id).
				Exec(ctx); err != nil {
				return fmt.Errorf("set race %d tier: %w", id, err)
			}
		}
		return nil
	})
}

// SetResultPoints rewrites points_awarded by result id in one transaction.
func (s *Store) SetResultPoints(ctx context.Context, points map[int64]int) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for id, pts := range points {
			if _, err := tx.NewUpdate().
				Model((*models.RaceResult)(nil)).
				Set("points_awarded = ?", pts).
				Where("id = ?", id).
				Exec(ctx); err != nil {
				return fmt.Errorf("set result %d points: %w", id, err)
			}
		}
		return nil
	})
}

// Owners and teams

// EnsureAccessCode returns the id of code, creating it active if absent.
func (s *Store) EnsureAccessCode(ctx context.Context, code string) (int64, error) {
	_, err := s.db.NewInsert().
		Model(&models.AccessCode{Code: code, IsActive: true}).
		On("CONFLICT (code) DO NOTHING").
		Returning("NULL").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("insert access code: %w", err)
	}
	var id int64
	err = s.db.NewSelect().Model((*models.AccessCode)(nil)).Column("id").Where("code = ?", code).Scan(ctx, &id)
	if err != nil {
		return 0, fmt.Errorf("access code id: %w", err)
	}
	return id, nil
}

// EnsureUser returns the user bound to an access code, creating it if absent.
func (s *Store) EnsureUser(ctx context.Context, accessCodeID int64, displayName string) (int64, error) {
	_, err := s.db.NewInsert().
		Model(&models.User{AccessCodeID: accessCodeID, DisplayName: displayName}).
		On("CONFLICT (access_code_id) DO NOTHING").
		Returning("NULL").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}
	var id int64
	err = s.db.NewSelect().Model((*models.User)(nil)).Column("id").Where("access_code_id = ?", accessCodeID).Scan(ctx, &id)
	if err != nil {
		return 0, fmt.Errorf("user id: %w", err)
	}
	return id, nil
}

// FindTeam returns the user's team for a season, nil when there is none.
func (s *Store) FindTeam(ctx context.Context, userID int64, year int) (*models.Team, error) {
	team := new(models.Team)
	err := s.db.NewSelect().
		Model(team).
		Where("user_id = ?", userID).
		Where("season_year = ?", year).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find team: %w", err)
	}
	return team, nil
}

// UpsertTeam inserts or renames a team by (user, season) and returns its id.
func (s *Store) UpsertTeam(ctx context.Context, team *models.Team) (int64, error) {
	_, err := s.db.NewInsert().
		Model(team).
		On("CONFLICT (user_id, season_year) DO UPDATE").
		Set("team_name = EXCLUDED.team_name").
		Set("locked = EXCLUDED.locked").
		Returning("NULL").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("upsert team: %w", err)
	}
	found, err := s.FindTeam(ctx, team.UserID, team.SeasonYear)
	if err != nil {
		return 0, err
	}
	if found == nil {
		return 0, errors.New("upsert team: not found after insert")
	}
	return found.ID, nil
}

// ReplaceRoster swaps a team's roster in one transaction.
func (s *Store) ReplaceRoster(ctx context.Context, teamID int64, roster []models.TeamRider) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*models.TeamRider)(nil)).
			Where("team_id = ?", teamID).
			Exec(ctx); err != nil {
			return fmt.Errorf("clear roster: %w", err)
		}
		if len(roster) == 0 {
			return nil
		}
		for i := range roster {
			roster[i].TeamID = teamID
		}
		if _, err := tx.NewInsert().Model(&roster).Returning("NULL").Exec(ctx); err != nil {
			return fmt.Errorf("insert roster: %w", err)
		}
		return nil
	})
}

// SetTeamTotals stores a team's cost and points.
func (s *Store) SetTeamTotals(ctx context.Context, teamID int64, cost, points int) error {
	_, err := s.db.NewUpdate().
		Model((*models.Team)(nil)).
		Set("total_cost = ?", cost).
		Set("points = ?", points).
		Where("id = ?", teamID).
		Exec(ctx)
	return err
}

// SetTeamPoints stores a team's points.
func (s *Store) SetTeamPoints(ctx context.Context, teamID int64, points int) error {
	_, err := s.db.NewUpdate().
		Model((*models.Team)(nil)).
		Set("points = ?", points).
		Where("id = ?", teamID).
		Exec(ctx)
	return err
}

// SeasonTeamIDs lists the season's team ids.
func (s *Store) SeasonTeamIDs(ctx context.Context, year int) ([]int64, error) {
	var ids []int64
	err := s.db.NewSelect().
		Model((*models.Team)(nil)).
		Column("id").
		Where("season_year = ?", year).
		Order("id").
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("season teams: %w", err)
	}
	return ids, nil
}

// RosterRiderIDs lists the riders on a team, by slot.
func (s *Store) RosterRiderIDs(ctx context.Context, teamID int64) ([]int64, error) {
	var ids []int64
	err := s.db.NewSelect().
		Model((*models.TeamRider)(nil)).
		Column("rider_id").
		Where("team_id = ?", teamID).
		Order("slot").
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("roster: %w", err)
	}
	return ids, nil
}
