package users

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up the user and validator endpoints under the given
// /api/v1 group. Profile routes require a session; public lookup and the
// validator list do not (ByAddress applies visibility itself).
func RegisterRoutes(g *echo.Group, h *Handler, requireSession, optionalSession echo.MiddlewareFunc) {
	g.GET("/users/me/", h.Me, requireSession)
	g.PATCH("/users/me/", h.UpdateMe, requireSession)
	g.GET("/users/by-address/:address/", h.ByAddress, optionalSession)

	g.GET("/validators/", h.ListValidators)
}
