package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/genlayer-foundation/points/internal/apperror"
)

// UserRepository defines the data access contract for user operations.
// All SQL lives in the concrete implementation -- no SQL leaks out.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id uint) (*User, error)
	FindByAddress(ctx context.Context, address string) (*User, error)
	FindByReferralCode(ctx context.Context, code string) (*User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	ReferralCodeExists(ctx context.Context, code string) (bool, error)
	SetReferredBy(ctx context.Context, userID, referrerID uint) error
	UpdateProfile(ctx context.Context, user *User) error

	ListValidators(ctx context.Context) ([]Validator, error)
}

// userRepository implements UserRepository with hand-written MariaDB queries.
type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository backed by the given DB pool.
func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, address, username, name, email, visible, is_reviewer, referral_code, referred_by, created_at`

// scanUser scans a user row from any row-like source.
func scanUser(row *sql.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.Address,
		&user.Username,
		&user.Name,
		&user.Email,
		&user.Visible,
		&user.IsReviewer,
		&user.ReferralCode,
		&user.ReferredBy,
		&user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	return user, nil
}

// Create inserts a new user row and fills in the generated ID.
func (r *userRepository) Create(ctx context.Context, user *User) error {
	query := `INSERT INTO users (address, username, name, email, visible, is_reviewer, referral_code, referred_by, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := r.db.ExecContext(ctx, query,
		user.Address,
		user.Username,
		user.Name,
		user.Email,
		user.Visible,
		user.IsReviewer,
		user.ReferralCode,
		user.ReferredBy,
		user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading inserted user id: %w", err)
	}
	user.ID = uint(id)

	return nil
}

// FindByID retrieves a user by primary key.
// Returns apperror.NotFound if no user exists with this ID.
func (r *userRepository) FindByID(ctx context.Context, id uint) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

// FindByAddress retrieves a user by wallet address. Addresses are stored
// lowercase, so the caller must lowercase before lookup.
// Returns apperror.NotFound if no user exists with this address.
func (r *userRepository) FindByAddress(ctx context.Context, address string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE address = ?`
	return scanUser(r.db.QueryRowContext(ctx, query, address))
}

// FindByReferralCode retrieves the user that owns the given referral code.
// Returns apperror.NotFound if the code is unknown.
func (r *userRepository) FindByReferralCode(ctx context.Context, code string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE referral_code = ?`
	return scanUser(r.db.QueryRowContext(ctx, query, code))
}

// UsernameExists reports whether a username is already taken.
func (r *userRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE username = ?`, username).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking username: %w", err)
	}
	return count > 0, nil
}

// ReferralCodeExists reports whether a referral code is already assigned.
func (r *userRepository) ReferralCodeExists(ctx context.Context, code string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE referral_code = ?`, code).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking referral code: %w", err)
	}
	return count > 0, nil
}

// SetReferredBy records who referred a user. The WHERE clause guards
// against overwriting an existing referral, so redeeming a second code
// is a silent no-op at the SQL level.
func (r *userRepository) SetReferredBy(ctx context.Context, userID, referrerID uint) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET referred_by = ? WHERE id = ? AND referred_by IS NULL`,
		referrerID, userID)
	if err != nil {
		return fmt.Errorf("setting referred_by: %w", err)
	}
	return nil
}

// UpdateProfile persists the editable profile fields.
func (r *userRepository) UpdateProfile(ctx context.Context, user *User) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET username = ?, name = ?, email = ?, visible = ? WHERE id = ?`,
		user.Username, user.Name, user.Email, user.Visible, user.ID)
	if err != nil {
		return fmt.Errorf("updating profile: %w", err)
	}
	return nil
}

// ListValidators returns all validator records joined with their operators.
func (r *userRepository) ListValidators(ctx context.Context) ([]Validator, error) {
	query := `SELECT v.id, v.user_id, v.node_version,
	                 u.id, u.address, u.username, u.name, u.email, u.visible, u.is_reviewer, u.referral_code, u.referred_by, u.created_at
	          FROM validators v
	          JOIN users u ON u.id = v.user_id
	          ORDER BY v.id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying validators: %w", err)
	}
	defer rows.Close()

	var validators []Validator
	for rows.Next() {
		var v Validator
		var u User
		if err := rows.Scan(
			&v.ID, &v.UserID, &v.NodeVersion,
			&u.ID, &u.Address, &u.Username, &u.Name, &u.Email, &u.Visible, &u.IsReviewer, &u.ReferralCode, &u.ReferredBy, &u.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning validator: %w", err)
		}
		v.User = &u
		validators = append(validators, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating validators: %w", err)
	}

	return validators, nil
}
