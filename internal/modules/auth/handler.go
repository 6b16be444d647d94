package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/genlayer-foundation/points/internal/apperror"
	"github.com/genlayer-foundation/points/internal/config"
)

// Handler handles HTTP requests for wallet authentication. Handlers are
// thin: they bind the request, call the service, and write the JSON
// response. No business logic lives here.
type Handler struct {
	service AuthService
	cfg     config.AuthConfig
}

// NewHandler creates a new auth handler with the given service and settings.
func NewHandler(service AuthService, cfg config.AuthConfig) *Handler {
	return &Handler{service: service, cfg: cfg}
}

// Nonce issues a fresh sign-in nonce (GET /api/auth/nonce/).
func (h *Handler) Nonce(c echo.Context) error {
	nonce, err := h.service.IssueNonce(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, NonceResponse{Nonce: nonce})
}

// Login verifies a signed challenge and starts a session (POST /api/auth/login/).
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	if req.Message == "" || req.Signature == "" {
		return apperror.NewBadRequest("message and signature are required")
	}

	result, err := h.service.Login(c.Request().Context(), req)
	if err != nil {
		return err
	}

	h.setSessionCookie(c, result.Token)
	return c.JSON(http.StatusOK, result.Response)
}

// Verify reports whether the current session is valid (GET /api/auth/verify/).
// It never errors: missing and expired sessions report authenticated false.
func (h *Handler) Verify(c echo.Context) error {
	token := h.getSessionToken(c)
	if token == "" {
		return c.JSON(http.StatusOK, VerifyResponse{Authenticated: false})
	}

	session, err := h.service.ValidateSession(c.Request().Context(), token)
	if err != nil {
		// Stale cookie; clear it so the browser stops sending it.
		h.clearSessionCookie(c)
		return c.JSON(http.StatusOK, VerifyResponse{Authenticated: false})
	}

	return c.JSON(http.StatusOK, VerifyResponse{
		Authenticated: true,
		Address:       session.Address,
		UserID:        session.UserID,
	})
}

// Logout destroys the session (POST /api/auth/logout/). Idempotent: logging
// out without a session still succeeds.
func (h *Handler) Logout(c echo.Context) error {
	if token := h.getSessionToken(c); token != "" {
		if err := h.service.DestroySession(c.Request().Context(), token); err != nil {
			return err
		}
	}
	h.clearSessionCookie(c)
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// Refresh extends the session TTL (POST /api/auth/refresh/). Returns 401
// when there is no valid session to extend.
func (h *Handler) Refresh(c echo.Context) error {
	token := h.getSessionToken(c)
	if token == "" {
		return apperror.NewUnauthorized("authentication required")
	}

	if err := h.service.RefreshSession(c.Request().Context(), token); err != nil {
		h.clearSessionCookie(c)
		return err
	}

	// Re-extend the cookie deadline alongside the Redis TTL.
	h.setSessionCookie(c, token)
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// --- Cookie helpers ---

// getSessionToken reads the session token from the cookie.
func (h *Handler) getSessionToken(c echo.Context) string {
	cookie, err := c.Cookie(h.cfg.CookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	return cookie.Value
}

// setSessionCookie sets the session cookie on the response. The cookie is
// HttpOnly (JS can't read it), Secure outside development, and
// SameSite=Lax so top-level navigations from the dashboard carry it.
func (h *Handler) setSessionCookie(c echo.Context, token string) {
	req := c.Request()
	c.SetCookie(&http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure || req.TLS != nil || req.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.cfg.SessionTTL.Seconds()),
	})
}

// clearSessionCookie removes the session cookie by setting MaxAge to -1.
func (h *Handler) clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}
