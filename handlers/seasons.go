package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/padraicbc/megabike/season"
)

// Leaderboard returns the season's teams, highest points first.
func (h *Handler) Leaderboard(c echo.Context) error {
	year, err := yearParam(c)
	if err != nil {
		return err
	}
	rows, err := h.store.Leaderboard(c.Request().Context(), year)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rows)
}

// Team returns one team with its roster.
func (h *Handler) Team(c echo.Context) error {
	year, err := yearParam(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}
	team, err := h.store.Team(c.Request().Context(), year, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if team == nil {
		return echo.NewHTTPError(http.StatusNotFound, "team not found")
	}
	return c.JSON(http.StatusOK, team)
}

// Riders returns active riders with season price and points.
func (h *Handler) Riders(c echo.Context) error {
	year, err := yearParam(c)
	if err != nil {
		return err
	}
	rows, err := h.store.SeasonRiders(c.Request().Context(), year)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rows)
}

// Races returns the races dated within the season.
func (h *Handler) Races(c echo.Context) error {
	year, err := yearParam(c)
	if err != nil {
		return err
	}
	start, end := season.Window(year)
	races, err := h.store.SeasonRaces(c.Request().Context(), start, end)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, races)
}

// Recompute rebuilds the season's rider and team totals.
func (h *Handler) Recompute(c echo.Context) error {
	year, err := yearParam(c)
	if err != nil {
		return err
	}
	sum, err := h.recomputer.Recompute(c.Request().Context(), year)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, sum)
}
