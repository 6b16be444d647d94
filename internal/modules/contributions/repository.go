package contributions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/genlayer-foundation/points/internal/apperror"
)

// Repository defines the data access contract for contributions.
// All SQL lives in the concrete implementation -- no SQL leaks out.
type Repository interface {
	ListTypes(ctx context.Context) ([]ContributionType, error)
	FindTypeByID(ctx context.Context, id uint) (*ContributionType, error)

	CreateSubmission(ctx context.Context, sub *SubmittedContribution) error
	FindSubmissionByID(ctx context.Context, id string) (*SubmittedContribution, error)
	ListSubmissions(ctx context.Context, filter ListFilter) ([]SubmittedContribution, int, error)
	ListSubmissionsByUser(ctx context.Context, userID uint) ([]SubmittedContribution, error)
	UpdateSubmissionReview(ctx context.Context, sub *SubmittedContribution) error

	CreateContribution(ctx context.Context, contrib *Contribution, evidence []Evidence) error
}

// repository implements Repository with hand-written MariaDB queries.
type repository struct {
	db *sql.DB
}

// NewRepository creates a new contributions repository backed by the given
// DB pool.
func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// ListTypes returns all contribution types ordered by name.
func (r *repository) ListTypes(ctx context.Context) ([]ContributionType, error) {
	query := `SELECT id, name, slug, description, category, min_points, max_points, is_submittable
	          FROM contribution_types ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying contribution types: %w", err)
	}
	defer rows.Close()

	var types []ContributionType
	for rows.Next() {
		var t ContributionType
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.Description, &t.Category,
			&t.MinPoints, &t.MaxPoints, &t.IsSubmittable); err != nil {
			return nil, fmt.Errorf("scanning contribution type: %w", err)
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

// FindTypeByID retrieves a contribution type by primary key.
// Returns apperror.NotFound if no type exists with this ID.
func (r *repository) FindTypeByID(ctx context.Context, id uint) (*ContributionType, error) {
	query := `SELECT id, name, slug, description, category, min_points, max_points, is_submittable
	          FROM contribution_types WHERE id = ?`

	t := &ContributionType{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.Name, &t.Slug, &t.Description,
		&t.Category, &t.MinPoints, &t.MaxPoints, &t.IsSubmittable)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("contribution type not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying contribution type: %w", err)
	}
	return t, nil
}

// CreateSubmission inserts a submission and its evidence items in a
// transaction.
func (r *repository) CreateSubmission(ctx context.Context, sub *SubmittedContribution) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO submitted_contributions
		 (id, user_id, contribution_type_id, contribution_date, notes, state, suggested_points, staff_reply, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.UserID, sub.ContributionTypeID, sub.ContributionDate,
		sub.Notes, sub.State, sub.SuggestedPoints, sub.StaffReply, sub.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting submission: %w", err)
	}

	for _, ev := range sub.Evidence {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO submission_evidence (submission_id, description, url) VALUES (?, ?, ?)`,
			sub.ID, ev.Description, ev.URL,
		)
		if err != nil {
			return fmt.Errorf("inserting evidence: %w", err)
		}
	}

	return tx.Commit()
}

const submissionColumns = `s.id, s.user_id, s.contribution_type_id, s.contribution_date, s.notes,
	       s.state, s.suggested_points, s.staff_reply, s.reviewed_by, s.reviewed_at, s.contribution_id, s.created_at`

// FindSubmissionByID retrieves a submission with its evidence.
// Returns apperror.NotFound if no submission exists with this ID.
func (r *repository) FindSubmissionByID(ctx context.Context, id string) (*SubmittedContribution, error) {
	query := `SELECT ` + submissionColumns + ` FROM submitted_contributions s WHERE s.id = ?`

	sub := &SubmittedContribution{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&sub.ID, &sub.UserID, &sub.ContributionTypeID, &sub.ContributionDate, &sub.Notes,
		&sub.State, &sub.SuggestedPoints, &sub.StaffReply, &sub.ReviewedBy, &sub.ReviewedAt,
		&sub.ContributionID, &sub.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("submission not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying submission: %w", err)
	}

	if err := r.loadEvidence(ctx, []*SubmittedContribution{sub}); err != nil {
		return nil, err
	}
	return sub, nil
}

// ListSubmissions returns a page of submissions matching the filter plus
// the total count before pagination.
func (r *repository) ListSubmissions(ctx context.Context, filter ListFilter) ([]SubmittedContribution, int, error) {
	where, args, orderBy := buildListQuery(filter)

	base := ` FROM submitted_contributions s JOIN users u ON u.id = s.user_id`
	if where != "" {
		base += " WHERE " + where
	}

	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*)`+base, args...).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("counting submissions: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := `SELECT ` + submissionColumns + `, u.username, u.name, u.address` + base +
		` ORDER BY ` + orderBy + ` LIMIT ? OFFSET ?`
	args = append(args, pageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying submissions: %w", err)
	}
	defer rows.Close()

	var subs []SubmittedContribution
	for rows.Next() {
		var sub SubmittedContribution
		if err := rows.Scan(
			&sub.ID, &sub.UserID, &sub.ContributionTypeID, &sub.ContributionDate, &sub.Notes,
			&sub.State, &sub.SuggestedPoints, &sub.StaffReply, &sub.ReviewedBy, &sub.ReviewedAt,
			&sub.ContributionID, &sub.CreatedAt,
			&sub.Username, &sub.UserName, &sub.UserAddress,
		); err != nil {
			return nil, 0, fmt.Errorf("scanning submission: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating submissions: %w", err)
	}

	ptrs := make([]*SubmittedContribution, len(subs))
	for i := range subs {
		ptrs[i] = &subs[i]
	}
	if err := r.loadEvidence(ctx, ptrs); err != nil {
		return nil, 0, err
	}

	return subs, count, nil
}

// ListSubmissionsByUser returns all of a user's submissions, newest first.
func (r *repository) ListSubmissionsByUser(ctx context.Context, userID uint) ([]SubmittedContribution, error) {
	query := `SELECT ` + submissionColumns + ` FROM submitted_contributions s
	          WHERE s.user_id = ? ORDER BY s.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying user submissions: %w", err)
	}
	defer rows.Close()

	var subs []SubmittedContribution
	for rows.Next() {
		var sub SubmittedContribution
		if err := rows.Scan(
			&sub.ID, &sub.UserID, &sub.ContributionTypeID, &sub.ContributionDate, &sub.Notes,
			&sub.State, &sub.SuggestedPoints, &sub.StaffReply, &sub.ReviewedBy, &sub.ReviewedAt,
			&sub.ContributionID, &sub.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning submission: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ptrs := make([]*SubmittedContribution, len(subs))
	for i := range subs {
		ptrs[i] = &subs[i]
	}
	if err := r.loadEvidence(ctx, ptrs); err != nil {
		return nil, err
	}
	return subs, nil
}

// UpdateSubmissionReview persists the review outcome fields.
func (r *repository) UpdateSubmissionReview(ctx context.Context, sub *SubmittedContribution) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE submitted_contributions
		 SET state = ?, suggested_points = ?, staff_reply = ?, reviewed_by = ?, reviewed_at = ?, contribution_id = ?
		 WHERE id = ?`,
		sub.State, sub.SuggestedPoints, sub.StaffReply, sub.ReviewedBy, sub.ReviewedAt,
		sub.ContributionID, sub.ID,
	)
	if err != nil {
		return fmt.Errorf("updating submission review: %w", err)
	}
	return nil
}

// CreateContribution inserts an accepted contribution record and copies
// the evidence over, in a transaction. Fills in the generated ID.
func (r *repository) CreateContribution(ctx context.Context, contrib *Contribution, evidence []Evidence) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO contributions
		 (user_id, contribution_type_id, points, frozen_global_points, multiplier_at_creation, contribution_date, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		contrib.UserID, contrib.ContributionTypeID, contrib.Points, contrib.FrozenGlobalPoints,
		contrib.MultiplierAtCreation, contrib.ContributionDate, contrib.Notes, contrib.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting contribution: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading inserted contribution id: %w", err)
	}
	contrib.ID = uint(id)

	for _, ev := range evidence {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO contribution_evidence (contribution_id, description, url) VALUES (?, ?, ?)`,
			contrib.ID, ev.Description, ev.URL,
		)
		if err != nil {
			return fmt.Errorf("copying evidence: %w", err)
		}
	}

	return tx.Commit()
}

// loadEvidence fetches evidence rows for a batch of submissions with a
// single IN query and attaches them.
func (r *repository) loadEvidence(ctx context.Context, subs []*SubmittedContribution) error {
	if len(subs) == 0 {
		return nil
	}

	byID := make(map[string]*SubmittedContribution, len(subs))
	placeholders := make([]string, 0, len(subs))
	args := make([]any, 0, len(subs))
	for _, sub := range subs {
		sub.Evidence = []Evidence{}
		byID[sub.ID] = sub
		placeholders = append(placeholders, "?")
		args = append(args, sub.ID)
	}

	query := `SELECT id, submission_id, description, url FROM submission_evidence
	          WHERE submission_id IN (` + strings.Join(placeholders, ",") + `) ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("querying evidence: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ev Evidence
		var submissionID string
		if err := rows.Scan(&ev.ID, &submissionID, &ev.Description, &ev.URL); err != nil {
			return fmt.Errorf("scanning evidence: %w", err)
		}
		if sub, ok := byID[submissionID]; ok {
			sub.Evidence = append(sub.Evidence, ev)
		}
	}
	return rows.Err()
}
