package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/padraicbc/megabike/db"
	"github.com/padraicbc/megabike/models"
	"github.com/padraicbc/megabike/season"
)

// Store is the read side the API serves from.
type Store interface {
	Leaderboard(ctx context.Context, year int) ([]db.LeaderboardRow, error)
	Team(ctx context.Context, year int, teamID int64) (*db.TeamDetail, error)
	SeasonRiders(ctx context.Context, year int) ([]db.RiderRow, error)
	SeasonRaces(ctx context.Context, start, end string) ([]models.Race, error)
	RaceResults(ctx context.Context, raceID int64) (*models.Race, []db.ResultRow, error)
}

// Recomputer rebuilds a season's totals.
type Recomputer interface {
	Recompute(ctx context.Context, year int) (*season.Summary, error)
}

// Handler holds shared dependencies used by all route handlers.
type Handler struct {
	store      Store
	recomputer Recomputer
}

// New creates a Handler over the store and season aggregator.
func New(store Store, recomputer Recomputer) *Handler {
	return &Handler{store: store, recomputer: recomputer}
}

// Register mounts the API routes on e. admin guards the admin group.
func (h *Handler) Register(e *echo.Echo, admin echo.MiddlewareFunc) {
	api := e.Group("/api")
	api.GET("/seasons/:year/leaderboard", h.Leaderboard)
	api.GET("/seasons/:year/teams/:id", h.Team)
	api.GET("/seasons/:year/riders", h.Riders)
	api.GET("/seasons/:year/races", h.Races)
	api.GET("/races/:id/results", h.RaceResults)

	api.POST("/admin/seasons/:year/recompute", h.Recompute, admin)
}

func yearParam(c echo.Context) (int, error) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil || year < 1900 || year > 9999 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid season year")
	}
	return year, nil
}

func idParam(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}
