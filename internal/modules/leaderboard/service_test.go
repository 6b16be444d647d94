package leaderboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/genlayer-foundation/points/internal/apperror"
)

// mockRepo implements Repository for testing.
type mockRepo struct {
	listEntriesFn        func(ctx context.Context) ([]Entry, error)
	findEntryByAddressFn func(ctx context.Context, address string) (*Entry, error)
	sumUserPointsFn      func(ctx context.Context, userID uint) (int, error)
	upsertEntryFn        func(ctx context.Context, userID uint, totalPoints int) error
	recalculateRanksFn   func(ctx context.Context) error
	activeMultiplierFn   func(ctx context.Context, typeID uint, at time.Time) (float64, bool, error)
	statsFn              func(ctx context.Context) (*Stats, error)
}

func (m *mockRepo) ListEntries(ctx context.Context) ([]Entry, error) {
	if m.listEntriesFn != nil {
		return m.listEntriesFn(ctx)
	}
	return nil, errors.New("not implemented")
}

func (m *mockRepo) FindEntryByAddress(ctx context.Context, address string) (*Entry, error) {
	if m.findEntryByAddressFn != nil {
		return m.findEntryByAddressFn(ctx, address)
	}
	return nil, errors.New("not implemented")
}

func (m *mockRepo) SumUserPoints(ctx context.Context, userID uint) (int, error) {
	if m.sumUserPointsFn != nil {
		return m.sumUserPointsFn(ctx, userID)
	}
	return 0, errors.New("not implemented")
}

func (m *mockRepo) UpsertEntry(ctx context.Context, userID uint, totalPoints int) error {
	if m.upsertEntryFn != nil {
		return m.upsertEntryFn(ctx, userID, totalPoints)
	}
	return errors.New("not implemented")
}

func (m *mockRepo) RecalculateRanks(ctx context.Context) error {
	if m.recalculateRanksFn != nil {
		return m.recalculateRanksFn(ctx)
	}
	return errors.New("not implemented")
}

func (m *mockRepo) ActiveMultiplier(ctx context.Context, typeID uint, at time.Time) (float64, bool, error) {
	if m.activeMultiplierFn != nil {
		return m.activeMultiplierFn(ctx, typeID, at)
	}
	return 0, false, nil
}

func (m *mockRepo) Stats(ctx context.Context) (*Stats, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx)
	}
	return nil, errors.New("not implemented")
}

func TestRecomputeUserRebuildsTotalAndRanks(t *testing.T) {
	var upsertedUser uint
	var upsertedTotal int
	ranksRecalculated := false
	repo := &mockRepo{
		sumUserPointsFn: func(ctx context.Context, userID uint) (int, error) {
			return 125, nil
		},
		upsertEntryFn: func(ctx context.Context, userID uint, totalPoints int) error {
			upsertedUser = userID
			upsertedTotal = totalPoints
			return nil
		},
		recalculateRanksFn: func(ctx context.Context) error {
			ranksRecalculated = true
			return nil
		},
	}
	svc := NewLeaderboardService(repo)

	if err := svc.RecomputeUser(context.Background(), 42); err != nil {
		t.Fatalf("RecomputeUser: %v", err)
	}
	if upsertedUser != 42 || upsertedTotal != 125 {
		t.Errorf("upserted user=%d total=%d, want 42/125", upsertedUser, upsertedTotal)
	}
	if !ranksRecalculated {
		t.Error("ranks not recalculated")
	}
}

func TestRecomputeUserPropagatesErrors(t *testing.T) {
	repo := &mockRepo{
		sumUserPointsFn: func(ctx context.Context, userID uint) (int, error) {
			return 0, errors.New("db down")
		},
	}
	svc := NewLeaderboardService(repo)

	if err := svc.RecomputeUser(context.Background(), 42); err == nil {
		t.Error("expected error from failing sum")
	}
}

func TestActiveMultiplierDefaultsToOne(t *testing.T) {
	svc := NewLeaderboardService(&mockRepo{})

	m, err := svc.ActiveMultiplier(context.Background(), 2, time.Now())
	if err != nil {
		t.Fatalf("ActiveMultiplier: %v", err)
	}
	if m != 1.0 {
		t.Errorf("multiplier = %v, want 1.0 when none configured", m)
	}
}

func TestActiveMultiplierUsesConfiguredValue(t *testing.T) {
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	repo := &mockRepo{
		activeMultiplierFn: func(ctx context.Context, typeID uint, got time.Time) (float64, bool, error) {
			if typeID != 2 || !got.Equal(at) {
				t.Errorf("lookup typeID=%d at=%v", typeID, got)
			}
			return 2.5, true, nil
		},
	}
	svc := NewLeaderboardService(repo)

	m, err := svc.ActiveMultiplier(context.Background(), 2, at)
	if err != nil {
		t.Fatalf("ActiveMultiplier: %v", err)
	}
	if m != 2.5 {
		t.Errorf("multiplier = %v, want 2.5", m)
	}
}

func TestListReturnsRankedEntries(t *testing.T) {
	repo := &mockRepo{
		listEntriesFn: func(ctx context.Context) ([]Entry, error) {
			return []Entry{
				{UserID: 1, TotalPoints: 100, Rank: 1},
				{UserID: 2, TotalPoints: 50, Rank: 2},
			}, nil
		},
	}
	svc := NewLeaderboardService(repo)

	entries, err := svc.List(context.Background(), "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 || entries[0].Rank != 1 {
		t.Errorf("entries = %+v", entries)
	}
}

func TestListByAddressNarrowsToOneEntry(t *testing.T) {
	repo := &mockRepo{
		findEntryByAddressFn: func(ctx context.Context, address string) (*Entry, error) {
			if address != "0xabc" {
				t.Errorf("address = %q", address)
			}
			return &Entry{UserID: 7, TotalPoints: 30, Rank: 5}, nil
		},
	}
	svc := NewLeaderboardService(repo)

	entries, err := svc.List(context.Background(), "0xabc")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 || entries[0].UserID != 7 {
		t.Errorf("entries = %+v", entries)
	}
}

func TestListByUnknownAddressReturnsEmpty(t *testing.T) {
	repo := &mockRepo{
		findEntryByAddressFn: func(ctx context.Context, address string) (*Entry, error) {
			return nil, apperror.NewNotFound("no leaderboard entry for this address")
		},
	}
	svc := NewLeaderboardService(repo)

	entries, err := svc.List(context.Background(), "0xdead")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries = %+v, want empty", entries)
	}
}

func TestStats(t *testing.T) {
	repo := &mockRepo{
		statsFn: func(ctx context.Context) (*Stats, error) {
			return &Stats{ParticipantCount: 10, ContributionCount: 40, TotalPoints: 900}, nil
		},
	}
	svc := NewLeaderboardService(repo)

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.ParticipantCount != 10 || stats.ContributionCount != 40 || stats.TotalPoints != 900 {
		t.Errorf("stats = %+v", stats)
	}
}
