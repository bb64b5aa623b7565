package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padraicbc/megabike/db"
	mw "github.com/padraicbc/megabike/middleware"
	"github.com/padraicbc/megabike/models"
	"github.com/padraicbc/megabike/scoring"
	"github.com/padraicbc/megabike/season"
)

var secret = []byte("handler-secret")

type fixture struct {
	e      *echo.Echo
	store  *db.Store
	raceID int64
	teamID int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	bdb, err := db.OpenMemory("handlers_" + strings.ReplaceAll(t.Name(), "/", "_"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = bdb.Close() })
	require.NoError(t, db.CreateTables(ctx, bdb))
	s := db.NewStore(bdb, 100)

	ids, err := s.UpsertRiders(ctx, []models.Rider{
		{Slug: "rider/a", Name: "A Rider", Active: true},
		{Slug: "rider/b", Name: "B Rider", Active: true},
	})
	require.NoError(t, err)
	require.NoError(t, s.UpsertPrices(ctx, []models.RiderPrice{
		{SeasonYear: 2025, RiderID: ids["rider/a"], Price: 100},
		{SeasonYear: 2025, RiderID: ids["rider/b"], Price: 50},
	}))
	raceID, err := s.UpsertRace(ctx, &models.Race{Slug: "race/x/2025", Name: "Race X", Date: "2025-04-01", Tier: 1})
	require.NoError(t, err)
	// points_awarded is stale; recompute rescores it
	require.NoError(t, s.UpsertResults(ctx, []models.RaceResult{
		{RaceID: raceID, RiderID: ids["rider/b"], Rank: 2, PointsAwarded: 1},
		{RaceID: raceID, RiderID: ids["rider/a"], Rank: 1, PointsAwarded: 1},
	}))
	acID, err := s.EnsureAccessCode(ctx, "MB2025-x")
	require.NoError(t, err)
	userID, err := s.EnsureUser(ctx, acID, "Ann")
	require.NoError(t, err)
	teamID, err := s.UpsertTeam(ctx, &models.Team{UserID: userID, SeasonYear: 2025, TeamName: "Ann's", Locked: true})
	require.NoError(t, err)
	require.NoError(t, s.ReplaceRoster(ctx, teamID, []models.TeamRider{
		{Slot: 1, RiderID: ids["rider/a"]},
		{Slot: 2, RiderID: ids["rider/b"]},
	}))

	agg := season.NewAggregator(s, scoring.Table{1: {30, 20, 10}}, 0, nil)
	e := echo.New()
	New(s, agg).Register(e, mw.JWT(secret))
	return &fixture{e: e, store: s, raceID: raceID, teamID: teamID}
}

func (f *fixture) do(method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func adminToken(t *testing.T) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &mw.Claims{Role: mw.RoleAdmin}).SignedString(secret)
	require.NoError(t, err)
	return "Bearer " + s
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestRecomputeThenLeaderboard(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/admin/seasons/2025/recompute", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodPost, "/api/admin/seasons/2025/recompute", adminToken(t))
	require.Equal(t, http.StatusOK, rec.Code)
	sum := decode[season.Summary](t, rec)
	assert.Equal(t, 2, sum.Rescored)

	rec = f.do(http.MethodGet, "/api/seasons/2025/leaderboard", "")
	require.Equal(t, http.StatusOK, rec.Code)
	board := decode[[]db.LeaderboardRow](t, rec)
	require.Len(t, board, 1)
	assert.Equal(t, "Ann", board[0].Owner)
	assert.Equal(t, 50, board[0].Points)

	rec = f.do(http.MethodGet, "/api/seasons/2024/leaderboard", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestTeam(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/seasons/2025/teams/"+itoa(f.teamID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	team := decode[db.TeamDetail](t, rec)
	assert.Equal(t, "Ann's", team.TeamName)
	require.Len(t, team.Roster, 2)
	assert.Equal(t, "rider/a", team.Roster[0].Slug)
	require.NotNil(t, team.Roster[0].Price)
	assert.Equal(t, 100, *team.Roster[0].Price)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/seasons/2024/teams/"+itoa(f.teamID), "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/seasons/2025/teams/abc", "").Code)
}

func TestRidersAndRaces(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/seasons/2025/riders", "")
	require.Equal(t, http.StatusOK, rec.Code)
	riders := decode[[]db.RiderRow](t, rec)
	require.Len(t, riders, 2)
	// highest price first
	assert.Equal(t, "rider/a", riders[0].Slug)

	rec = f.do(http.MethodGet, "/api/seasons/2025/races", "")
	require.Equal(t, http.StatusOK, rec.Code)
	races := decode[[]models.Race](t, rec)
	require.Len(t, races, 1)
	assert.Equal(t, "Race X", races[0].Name)
	assert.Contains(t, rec.Body.String(), `"date":"2025-04-01"`)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/seasons/twenty/races", "").Code)
}

func TestRaceResults(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/races/"+itoa(f.raceID)+"/results", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[raceResults](t, rec)
	require.Len(t, got.Results, 2)
	assert.Equal(t, 1, got.Results[0].Rank)
	assert.Equal(t, "rider/a", got.Results[0].Slug)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/races/9999/results", "").Code)
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
