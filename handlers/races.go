package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/padraicbc/megabike/db"
	"github.com/padraicbc/megabike/models"
)

type raceResults struct {
	Race    *models.Race   `json:"race"`
	Results []db.ResultRow `json:"results"`
}

// RaceResults returns a race and its results ordered by rank.
func (h *Handler) RaceResults(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	race, rows, err := h.store.RaceResults(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if race == nil {
		return echo.NewHTTPError(http.StatusNotFound, "race not found")
	}
	return c.JSON(http.StatusOK, raceResults{Race: race, Results: rows})
}
