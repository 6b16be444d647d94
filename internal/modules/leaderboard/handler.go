package leaderboard

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Handler handles HTTP requests for the leaderboard.
type Handler struct {
	service LeaderboardService
}

// NewHandler creates a new leaderboard handler.
func NewHandler(service LeaderboardService) *Handler {
	return &Handler{service: service}
}

// List returns the ranked leaderboard (GET /api/v1/leaderboard/). An
// optional user_address query narrows the list to one participant.
func (h *Handler) List(c echo.Context) error {
	address := strings.ToLower(c.QueryParam("user_address"))

	entries, err := h.service.List(c.Request().Context(), address)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}

// Stats returns dashboard aggregates (GET /api/v1/leaderboard/stats/).
func (h *Handler) Stats(c echo.Context) error {
	stats, err := h.service.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}
