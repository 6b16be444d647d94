package auth

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/genlayer-foundation/points/internal/middleware"
)

// RegisterRoutes sets up the auth endpoints under /api/auth. All are
// public -- the session middleware is exported separately for other
// modules to apply to their route groups.
//
// Nonce and login are rate-limited per IP: nonces are cheap to issue but
// each one occupies Redis for its TTL, and login does signature recovery.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	g := e.Group("/api/auth")

	g.GET("/nonce/", h.Nonce, middleware.RateLimit(20, time.Minute))
	g.POST("/login/", h.Login, middleware.RateLimit(10, time.Minute))
	g.GET("/verify/", h.Verify)
	g.POST("/logout/", h.Logout)
	g.POST("/refresh/", h.Refresh)
}
