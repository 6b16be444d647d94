package auth

import (
	"github.com/labstack/echo/v4"

	"github.com/genlayer-foundation/points/internal/apperror"
)

// Context keys for storing session data in Echo context. Other modules
// use these keys (via the exported getter functions below) to access
// the authenticated user's identity.
const (
	contextKeySession = "auth_session"
	contextKeyUserID  = "auth_user_id"
)

// RequireSession returns middleware that validates the session cookie and
// injects session data into the request context. Requests without a valid
// session get a 401 JSON response.
func RequireSession(service AuthService, h *Handler) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := h.getSessionToken(c)
			if token == "" {
				return apperror.NewUnauthorized("authentication required")
			}

			session, err := service.ValidateSession(c.Request().Context(), token)
			if err != nil {
				// Invalid or expired session -- clear the stale cookie.
				h.clearSessionCookie(c)
				return apperror.NewUnauthorized("authentication required")
			}

			// Store session data in context for downstream handlers.
			c.Set(contextKeySession, session)
			c.Set(contextKeyUserID, session.UserID)

			return next(c)
		}
	}
}

// OptionalSession returns middleware that resolves the session when one is
// present but lets unauthenticated requests through. Public endpoints use
// it to personalize responses when possible.
func OptionalSession(service AuthService, h *Handler) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token := h.getSessionToken(c); token != "" {
				if session, err := service.ValidateSession(c.Request().Context(), token); err == nil {
					c.Set(contextKeySession, session)
					c.Set(contextKeyUserID, session.UserID)
				}
			}
			return next(c)
		}
	}
}

// --- Exported getters for other modules ---

// GetSession retrieves the authenticated session from the Echo context.
// Returns nil if the request is not authenticated.
func GetSession(c echo.Context) *Session {
	session, ok := c.Get(contextKeySession).(*Session)
	if !ok {
		return nil
	}
	return session
}

// GetUserID retrieves the authenticated user's ID from the Echo context.
// Returns 0 if the request is not authenticated.
func GetUserID(c echo.Context) uint {
	id, ok := c.Get(contextKeyUserID).(uint)
	if !ok {
		return 0
	}
	return id
}
