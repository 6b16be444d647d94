package leaderboard

import (
	"context"
	"fmt"
	"time"

	"github.com/genlayer-foundation/points/internal/apperror"
)

// defaultMultiplier applies when no global multiplier row covers a
// contribution type at acceptance time.
const defaultMultiplier = 1.0

// LeaderboardService defines the business logic contract for rankings.
// It also satisfies the contributions module's MultiplierProvider and
// RecomputeHook interfaces, which is how accepted submissions reach the
// leaderboard without an import cycle.
type LeaderboardService interface {
	List(ctx context.Context, userAddress string) ([]Entry, error)
	Stats(ctx context.Context) (*Stats, error)
	ActiveMultiplier(ctx context.Context, typeID uint, at time.Time) (float64, error)
	RecomputeUser(ctx context.Context, userID uint) error
}

// leaderboardService implements LeaderboardService.
type leaderboardService struct {
	repo Repository
}

// NewLeaderboardService creates a new leaderboard service.
func NewLeaderboardService(repo Repository) LeaderboardService {
	return &leaderboardService{repo: repo}
}

// List returns the ranked leaderboard. With a userAddress it narrows to
// that participant's entry, which keeps the "where am I" lookup on the
// same endpoint.
func (s *leaderboardService) List(ctx context.Context, userAddress string) ([]Entry, error) {
	if userAddress != "" {
		entry, err := s.repo.FindEntryByAddress(ctx, userAddress)
		if err != nil {
			if apperror.SafeCode(err) == 404 {
				return []Entry{}, nil
			}
			return nil, apperror.NewInternal(fmt.Errorf("finding leaderboard entry: %w", err))
		}
		return []Entry{*entry}, nil
	}

	entries, err := s.repo.ListEntries(ctx)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing leaderboard: %w", err))
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

// Stats returns dashboard aggregates.
func (s *leaderboardService) Stats(ctx context.Context) (*Stats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("loading stats: %w", err))
	}
	return stats, nil
}

// ActiveMultiplier resolves the multiplier in force for a contribution
// type at the given time, falling back to 1 when none is configured.
func (s *leaderboardService) ActiveMultiplier(ctx context.Context, typeID uint, at time.Time) (float64, error) {
	multiplier, found, err := s.repo.ActiveMultiplier(ctx, typeID, at)
	if err != nil {
		return 0, fmt.Errorf("resolving multiplier: %w", err)
	}
	if !found {
		return defaultMultiplier, nil
	}
	return multiplier, nil
}

// RecomputeUser rebuilds one user's total from their accepted
// contributions and refreshes all ranks. Recomputing from scratch keeps
// the operation idempotent.
func (s *leaderboardService) RecomputeUser(ctx context.Context, userID uint) error {
	total, err := s.repo.SumUserPoints(ctx, userID)
	if err != nil {
		return fmt.Errorf("summing points: %w", err)
	}
	if err := s.repo.UpsertEntry(ctx, userID, total); err != nil {
		return fmt.Errorf("writing entry: %w", err)
	}
	if err := s.repo.RecalculateRanks(ctx); err != nil {
		return fmt.Errorf("recalculating ranks: %w", err)
	}
	return nil
}
