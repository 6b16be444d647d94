package leaderboard

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up the leaderboard endpoints under the given
// /api/v1 group. Both are public.
func RegisterRoutes(g *echo.Group, h *Handler) {
	g.GET("/leaderboard/", h.List)
	g.GET("/leaderboard/stats/", h.Stats)
}
