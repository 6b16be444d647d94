package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/genlayer-foundation/points/internal/modules/auth"
	"github.com/genlayer-foundation/points/internal/modules/contributions"
	"github.com/genlayer-foundation/points/internal/modules/leaderboard"
	"github.com/genlayer-foundation/points/internal/modules/users"
)

// accountProvider adapts the users service to the auth module's narrow
// AccountProvider view, which keeps auth free of a users import.
type accountProvider struct {
	users users.UserService
}

func (p *accountProvider) GetOrCreateByAddress(ctx context.Context, address string) (auth.Account, bool, error) {
	user, created, err := p.users.GetOrCreateByAddress(ctx, address)
	if err != nil {
		return auth.Account{}, false, err
	}
	return auth.Account{
		ID:           user.ID,
		Address:      user.Address,
		ReferralCode: user.ReferralCode,
		ReferredBy:   user.ReferredBy,
	}, created, nil
}

func (p *accountProvider) ApplyReferral(ctx context.Context, userID uint, code string) (string, error) {
	referrer, err := p.users.ApplyReferral(ctx, userID, code)
	if err != nil {
		return "", err
	}
	return referrer.Address, nil
}

// reviewerChecker adapts the users service to the contributions module's
// ReviewerChecker.
type reviewerChecker struct {
	users users.UserService
}

func (r *reviewerChecker) IsReviewer(ctx context.Context, userID uint) (bool, error) {
	user, err := r.users.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.IsReviewer, nil
}

// RegisterRoutes builds every module's repository, service, and handler,
// and registers all routes. This is the single dependency injection
// point: modules only see the interfaces they declare.
func (a *App) RegisterRoutes() {
	e := a.Echo

	// Health check endpoint for container orchestration.
	e.GET("/healthz", func(c echo.Context) error {
		if err := a.DB.PingContext(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "db unreachable"})
		}
		if err := a.Redis.Ping(c.Request().Context()).Err(); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "redis unreachable"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// --- Module construction ---

	userRepo := users.NewUserRepository(a.DB)
	userService := users.NewUserService(userRepo)

	authService := auth.NewAuthService(
		&accountProvider{users: userService},
		a.Redis,
		a.Config.Auth.NonceTTL,
		a.Config.Auth.SessionTTL,
	)
	authHandler := auth.NewHandler(authService, a.Config.Auth)

	leaderboardRepo := leaderboard.NewRepository(a.DB)
	leaderboardService := leaderboard.NewLeaderboardService(leaderboardRepo)

	contribRepo := contributions.NewRepository(a.DB)
	contribService := contributions.NewContributionService(
		contribRepo,
		leaderboardService, // MultiplierProvider
		leaderboardService, // RecomputeHook
		slog.Default(),
	)

	userHandler := users.NewHandler(userService)
	contribHandler := contributions.NewHandler(contribService, &reviewerChecker{users: userService})
	leaderboardHandler := leaderboard.NewHandler(leaderboardService)

	// --- Route registration ---

	requireSession := auth.RequireSession(authService, authHandler)
	optionalSession := auth.OptionalSession(authService, authHandler)

	auth.RegisterRoutes(e, authHandler)

	api := e.Group("/api/v1")
	users.RegisterRoutes(api, userHandler, requireSession, optionalSession)
	contributions.RegisterRoutes(api, contribHandler, requireSession)
	leaderboard.RegisterRoutes(api, leaderboardHandler)
}

// Shutdown gracefully stops the HTTP server.
func (a *App) Shutdown(ctx context.Context) error {
	if err := a.Echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}
