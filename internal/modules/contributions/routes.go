package contributions

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up the contribution endpoints under the given
// /api/v1 group. Listing and types are public; submitting and reviewing
// require a session (reviewing additionally checks the reviewer flag in
// the handler).
func RegisterRoutes(g *echo.Group, h *Handler, requireSession echo.MiddlewareFunc) {
	g.GET("/contribution-types/", h.ListTypes)
	g.GET("/contributions/", h.List)

	g.POST("/submissions/", h.Submit, requireSession)
	g.GET("/submissions/my/", h.MySubmissions, requireSession)
	g.POST("/submissions/:id/review/", h.Review, requireSession)
}
