package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// csrfTokenLength is the number of random bytes in a CSRF token (32 bytes = 64 hex chars).
const csrfTokenLength = 32

// csrfCookieName is the name of the cookie that stores the CSRF token.
const csrfCookieName = "points_csrf"

// csrfHeaderName is the header the frontend sends the CSRF token in.
const csrfHeaderName = "X-CSRF-Token"

// CSRF returns middleware that implements the double-submit cookie pattern
// for CSRF protection on state-changing requests (POST, PUT, PATCH, DELETE).
//
// How it works:
//  1. On every request, if no CSRF cookie exists, generate one and set it.
//  2. On mutating requests, compare the cookie value with the X-CSRF-Token
//     header set by the frontend.
//  3. If they don't match, reject with 403 Forbidden.
//
// The wallet auth endpoints are exempt: login carries a signed single-use
// nonce, which already proves the request was made deliberately, and the
// nonce endpoint must be reachable before any cookie exists.
func CSRF() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			if strings.HasPrefix(req.URL.Path, "/api/auth/") {
				return next(c)
			}

			// Ensure a CSRF token cookie exists.
			cookie, err := req.Cookie(csrfCookieName)
			if err != nil || cookie.Value == "" {
				// Generate a new CSRF token and set it as a cookie.
				token, genErr := generateCSRFToken()
				if genErr != nil {
					return echo.NewHTTPError(http.StatusInternalServerError, "failed to generate CSRF token")
				}

				c.SetCookie(&http.Cookie{
					Name:     csrfCookieName,
					Value:    token,
					Path:     "/",
					HttpOnly: false, // Must be readable by JS so the frontend can echo it back.
					Secure:   req.TLS != nil || req.Header.Get("X-Forwarded-Proto") == "https",
					SameSite: http.SameSiteLaxMode,
				})

				cookie = &http.Cookie{Value: token}
			}

			// Skip validation for safe (non-mutating) HTTP methods.
			if isSafeMethod(req.Method) {
				return next(c)
			}

			// Use constant-time comparison to prevent timing side-channel attacks
			// that could allow an attacker to deduce the token byte-by-byte.
			submittedToken := req.Header.Get(csrfHeaderName)
			if submittedToken == "" || subtle.ConstantTimeCompare([]byte(submittedToken), []byte(cookie.Value)) != 1 {
				return echo.NewHTTPError(http.StatusForbidden, "invalid or missing CSRF token")
			}

			return next(c)
		}
	}
}

// isSafeMethod returns true for HTTP methods that should not change state.
func isSafeMethod(method string) bool {
	return method == http.MethodGet ||
		method == http.MethodHead ||
		method == http.MethodOptions
}

// generateCSRFToken generates a cryptographically random hex-encoded token.
func generateCSRFToken() (string, error) {
	b := make([]byte, csrfTokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
