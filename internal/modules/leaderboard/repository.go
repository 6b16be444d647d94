package leaderboard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/genlayer-foundation/points/internal/apperror"
)

// Repository defines the data access contract for the leaderboard.
// All SQL lives in the concrete implementation -- no SQL leaks out.
type Repository interface {
	ListEntries(ctx context.Context) ([]Entry, error)
	FindEntryByAddress(ctx context.Context, address string) (*Entry, error)
	SumUserPoints(ctx context.Context, userID uint) (int, error)
	UpsertEntry(ctx context.Context, userID uint, totalPoints int) error
	RecalculateRanks(ctx context.Context) error
	ActiveMultiplier(ctx context.Context, typeID uint, at time.Time) (float64, bool, error)
	Stats(ctx context.Context) (*Stats, error)
}

// repository implements Repository with hand-written MariaDB queries.
type repository struct {
	db *sql.DB
}

// NewRepository creates a new leaderboard repository backed by the given
// DB pool.
func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const entryColumns = `le.user_id, le.total_points, le.` + "`rank`" + `, le.updated_at,
	       u.username, u.name, u.address`

// ListEntries returns the ranked leaderboard. Participants who opted out
// of visibility are omitted but keep their rank, so positions can skip.
func (r *repository) ListEntries(ctx context.Context) ([]Entry, error) {
	query := `SELECT ` + entryColumns + `
	          FROM leaderboard_entries le
	          JOIN users u ON u.id = le.user_id
	          WHERE u.visible = TRUE
	          ORDER BY le.` + "`rank`" + ` ASC, le.user_id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.UserID, &e.TotalPoints, &e.Rank, &e.UpdatedAt,
			&e.Username, &e.Name, &e.UserAddress); err != nil {
			return nil, fmt.Errorf("scanning leaderboard entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// FindEntryByAddress returns the leaderboard entry for a wallet address.
// Returns apperror.NotFound if the address has no entry.
func (r *repository) FindEntryByAddress(ctx context.Context, address string) (*Entry, error) {
	query := `SELECT ` + entryColumns + `
	          FROM leaderboard_entries le
	          JOIN users u ON u.id = le.user_id
	          WHERE u.address = ?`

	e := &Entry{}
	err := r.db.QueryRowContext(ctx, query, address).Scan(
		&e.UserID, &e.TotalPoints, &e.Rank, &e.UpdatedAt,
		&e.Username, &e.Name, &e.UserAddress)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("no leaderboard entry for this address")
	}
	if err != nil {
		return nil, fmt.Errorf("querying leaderboard entry: %w", err)
	}
	return e, nil
}

// SumUserPoints totals a user's frozen points across all accepted
// contributions.
func (r *repository) SumUserPoints(ctx context.Context, userID uint) (int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(frozen_global_points), 0) FROM contributions WHERE user_id = ?`,
		userID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("summing user points: %w", err)
	}
	return total, nil
}

// UpsertEntry writes a user's total, creating the entry on first accepted
// contribution.
func (r *repository) UpsertEntry(ctx context.Context, userID uint, totalPoints int) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO leaderboard_entries (user_id, total_points) VALUES (?, ?)
		 ON DUPLICATE KEY UPDATE total_points = VALUES(total_points)`,
		userID, totalPoints)
	if err != nil {
		return fmt.Errorf("upserting leaderboard entry: %w", err)
	}
	return nil
}

// RecalculateRanks rewrites every entry's rank from its total. Equal
// totals share a rank (competition ranking).
func (r *repository) RecalculateRanks(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE leaderboard_entries le\n"+
			"JOIN (SELECT id, RANK() OVER (ORDER BY total_points DESC) AS new_rank\n"+
			"      FROM leaderboard_entries) ranked ON ranked.id = le.id\n"+
			"SET le.`rank` = ranked.new_rank")
	if err != nil {
		return fmt.Errorf("recalculating ranks: %w", err)
	}
	return nil
}

// ActiveMultiplier returns the multiplier in force for a contribution type
// at the given time. The second return reports whether a row matched.
func (r *repository) ActiveMultiplier(ctx context.Context, typeID uint, at time.Time) (float64, bool, error) {
	var multiplier float64
	err := r.db.QueryRowContext(ctx,
		`SELECT multiplier FROM global_multipliers
		 WHERE contribution_type_id = ? AND valid_from <= ?
		 ORDER BY valid_from DESC LIMIT 1`,
		typeID, at).Scan(&multiplier)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("querying active multiplier: %w", err)
	}
	return multiplier, true, nil
}

// Stats returns dashboard-level aggregates in one round trip.
func (r *repository) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	err := r.db.QueryRowContext(ctx,
		`SELECT
		   (SELECT COUNT(*) FROM leaderboard_entries),
		   (SELECT COUNT(*) FROM contributions),
		   (SELECT COALESCE(SUM(frozen_global_points), 0) FROM contributions)`).
		Scan(&stats.ParticipantCount, &stats.ContributionCount, &stats.TotalPoints)
	if err != nil {
		return nil, fmt.Errorf("querying stats: %w", err)
	}
	return stats, nil
}
