package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/padraicbc/megabike/models"
)

// LeaderboardRow is one team on a season leaderboard.
type LeaderboardRow struct {
	TeamID    int64  `bun:"team_id" json:"teamID"`
	TeamName  string `bun:"team_name" json:"teamName"`
	Owner     string `bun:"owner" json:"owner"`
	Points    int    `bun:"points" json:"points"`
	TotalCost int    `bun:"total_cost" json:"totalCost"`
}

// RiderRow is a rider with season price and points, either of which may be
// missing.
type RiderRow struct {
	RiderID  int64   `bun:"rider_id" json:"riderID"`
	Slug     string  `bun:"pcs_slug" json:"slug"`
	Name     string  `bun:"rider_name" json:"name"`
	TeamName *string `bun:"team_name" json:"teamName,omitempty"`
	PhotoURL *string `bun:"photo_url" json:"photoURL,omitempty"`
	Price    *int    `bun:"price" json:"price"`
	Points   *int    `bun:"points" json:"points"`
}

// RosterRow is a RiderRow placed in a slot.
type RosterRow struct {
	Slot int `bun:"slot" json:"slot"`
	RiderRow
}

// TeamDetail is a team with its roster.
type TeamDetail struct {
	LeaderboardRow
	SeasonYear int         `json:"seasonYear"`
	Locked     bool        `json:"locked"`
	Roster     []RosterRow `json:"roster"`
}

// ResultRow is one rider's result in a race.
type ResultRow struct {
	Rank          int    `bun:"rank" json:"rank"`
	RiderID       int64  `bun:"rider_id" json:"riderID"`
	Slug          string `bun:"pcs_slug" json:"slug"`
	Name          string `bun:"rider_name" json:"name"`
	PointsAwarded int    `bun:"points_awarded" json:"pointsAwarded"`
}

// Leaderboard lists a season's teams, highest points first.
func (s *Store) Leaderboard(ctx context.Context, year int) ([]LeaderboardRow, error) {
	rows := []LeaderboardRow{}
	err := s.db.NewSelect().
		TableExpr("teams AS t").
		ColumnExpr("t.id AS team_id, t.team_name, u.display_name AS owner, t.points, t.total_cost").
		Join("JOIN users AS u ON u.id = t.user_id").
		Where("t.season_year = ?", year).
		OrderExpr("t.points DESC, t.team_name ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	return rows, nil
}

// Team returns a season team with its roster, nil when not found.
func (s *Store) Team(ctx context.Context, year int, teamID int64) (*TeamDetail, error) {
	team := new(models.Team)
	err := s.db.NewSelect().
		Model(team).
		Relation("User").
		Where("t.id = ?", teamID).
		Where("t.season_year = ?", year).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("team %d: %w", teamID, err)
	}

	roster := []RosterRow{}
	err = s.db.NewSelect().
		TableExpr("team_riders AS tr").
		ColumnExpr("tr.slot, rd.id AS rider_id, rd.pcs_slug, rd.rider_name, rd.team_name, rd.photo_url, rpr.price, rp.points").
		Join("JOIN riders AS rd ON rd.id = tr.rider_id").
		Join("LEFT JOIN rider_prices AS rpr ON rpr.rider_id = rd.id AND rpr.season_year = ?", year).
		Join("LEFT JOIN rider_points AS rp ON rp.rider_id = rd.id AND rp.season_year = ?", year).
		Where("tr.team_id = ?", teamID).
		OrderExpr("tr.slot").
		Scan(ctx, &roster)
	if err != nil {
		return nil, fmt.Errorf("team %d roster: %w", teamID, err)
	}

	detail := &TeamDetail{
		LeaderboardRow: LeaderboardRow{
			TeamID:    team.ID,
			TeamName:  team.TeamName,
			Points:    team.Points,
			TotalCost: team.TotalCost,
		},
		SeasonYear: team.SeasonYear,
		Locked:     team.Locked,
		Roster:     roster,
	}
	if team.User != nil {
		detail.Owner = team.User.DisplayName
	}
	return detail, nil
}

// SeasonRiders lists active riders with their season price and points,
// highest price first.
func (s *Store) SeasonRiders(ctx context.Context, year int) ([]RiderRow, error) {
	rows := []RiderRow{}
	err := s.db.NewSelect().
		TableExpr("riders AS rd").
		ColumnExpr("rd.id AS rider_id, rd.pcs_slug, rd.rider_name, rd.team_name, rd.photo_url, rpr.price, rp.points").
		Join("LEFT JOIN rider_prices AS rpr ON rpr.rider_id = rd.id AND rpr.season_year = ?", year).
		Join("LEFT JOIN rider_points AS rp ON rp.rider_id = rd.id AND rp.season_year = ?", year).
		Where("rd.active = ?", true).
		OrderExpr("COALESCE(rpr.price, 0) DESC, rd.rider_name ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("season riders: %w", err)
	}
	return rows, nil
}

// SeasonRaces lists races dated within the season window, by date.
func (s *Store) SeasonRaces(ctx context.Context, start, end string) ([]models.Race, error) {
	races := []models.Race{}
	err := s.db.NewSelect().
		Model(&races).
		Where("race_date >= ?", start).
		Where("race_date <= ?", end).
		Order("race_date", "id").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("season races: %w", err)
	}
	return races, nil
}

// RaceResults lists a race's results by rank, nil when the race is unknown.
func (s *Store) RaceResults(ctx context.Context, raceID int64) (*models.Race, []ResultRow, error) {
	race := new(models.Race)
	err := s.db.NewSelect().Model(race).Where("id = ?", raceID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("race %d: %w", raceID, err)
	}

	rows := []ResultRow{}
	err = s.db.NewSelect().
		TableExpr("race_results AS rr").
		ColumnExpr("rr.rank, rr.rider_id, rd.pcs_slug, rd.rider_name, rr.points_awarded").
		Join("JOIN riders AS rd ON rd.id = rr.rider_id").
		Where("rr.race_id = ?", raceID).
		OrderExpr("rr.rank, rr.id").
		Scan(ctx, &rows)
	if err != nil {
		return nil, nil, fmt.Errorf("race %d results: %w", raceID, err)
	}
	return race, rows, nil
}
