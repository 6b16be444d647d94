package contributions

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/genlayer-foundation/points/internal/apperror"
	"github.com/genlayer-foundation/points/internal/sanitize"
)

// maxNotesLength caps submission notes.
const maxNotesLength = 10000

// maxEvidenceItems caps evidence items per submission.
const maxEvidenceItems = 10

// MultiplierProvider supplies the global multiplier active for a
// contribution type at a point in time. Implemented by the leaderboard
// module; contributions only depends on this narrow view of it.
type MultiplierProvider interface {
	ActiveMultiplier(ctx context.Context, typeID uint, at time.Time) (float64, error)
}

// RecomputeHook is notified after a submission is accepted so dependent
// aggregates can refresh their totals.
type RecomputeHook interface {
	RecomputeUser(ctx context.Context, userID uint) error
}

// ContributionService defines the business logic contract for submissions
// and the review workflow.
type ContributionService interface {
	ListTypes(ctx context.Context) ([]ContributionType, error)
	List(ctx context.Context, filter ListFilter) (*Page[SubmittedContribution], error)
	Submit(ctx context.Context, userID uint, req SubmitRequest) (*SubmittedContribution, error)
	ListByUser(ctx context.Context, userID uint) ([]SubmittedContribution, error)
	Review(ctx context.Context, reviewerID uint, submissionID string, req ReviewRequest) (*SubmittedContribution, error)
}

// contributionService implements ContributionService.
type contributionService struct {
	repo        Repository
	multipliers MultiplierProvider
	recompute   RecomputeHook
	logger      *slog.Logger
}

// NewContributionService creates a new contribution service.
func NewContributionService(repo Repository, multipliers MultiplierProvider, recompute RecomputeHook, logger *slog.Logger) ContributionService {
	return &contributionService{
		repo:        repo,
		multipliers: multipliers,
		recompute:   recompute,
		logger:      logger,
	}
}

// ListTypes returns all contribution types.
func (s *contributionService) ListTypes(ctx context.Context) ([]ContributionType, error) {
	types, err := s.repo.ListTypes(ctx)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing contribution types: %w", err))
	}
	return types, nil
}

// List returns a page of submissions matching the filter.
func (s *contributionService) List(ctx context.Context, filter ListFilter) (*Page[SubmittedContribution], error) {
	subs, count, err := s.repo.ListSubmissions(ctx, filter)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing submissions: %w", err))
	}
	if subs == nil {
		subs = []SubmittedContribution{}
	}
	return &Page[SubmittedContribution]{Count: count, Results: subs}, nil
}

// Submit validates and records a new pending submission for the user.
func (s *contributionService) Submit(ctx context.Context, userID uint, req SubmitRequest) (*SubmittedContribution, error) {
	if req.ContributionTypeID == 0 {
		return nil, apperror.NewValidation("contribution_type_id is required")
	}
	if len(req.Notes) > maxNotesLength {
		return nil, apperror.NewValidation("notes too long")
	}
	if len(req.Evidence) > maxEvidenceItems {
		return nil, apperror.NewValidation("too many evidence items")
	}

	ctype, err := s.repo.FindTypeByID(ctx, req.ContributionTypeID)
	if err != nil {
		if apperror.SafeCode(err) == 404 {
			return nil, apperror.NewValidation("unknown contribution type")
		}
		return nil, apperror.NewInternal(fmt.Errorf("looking up contribution type: %w", err))
	}
	if !ctype.IsSubmittable {
		return nil, apperror.NewValidation("contribution type does not accept submissions")
	}

	date := req.ContributionDate
	if date.IsZero() {
		date = time.Now().UTC()
	}

	sub := &SubmittedContribution{
		ID:                 uuid.NewString(),
		UserID:             userID,
		ContributionTypeID: req.ContributionTypeID,
		ContributionDate:   date,
		Notes:              sanitize.Text(req.Notes),
		State:              StatePending,
		CreatedAt:          time.Now().UTC(),
	}
	for _, ev := range req.Evidence {
		if ev.URL == "" && ev.Description == "" {
			continue
		}
		sub.Evidence = append(sub.Evidence, Evidence{
			Description: sanitize.Text(ev.Description),
			URL:         strings.TrimSpace(ev.URL),
		})
	}

	if err := s.repo.CreateSubmission(ctx, sub); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("creating submission: %w", err))
	}
	return sub, nil
}

// ListByUser returns the user's own submissions, newest first.
func (s *contributionService) ListByUser(ctx context.Context, userID uint) ([]SubmittedContribution, error) {
	subs, err := s.repo.ListSubmissionsByUser(ctx, userID)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing user submissions: %w", err))
	}
	if subs == nil {
		subs = []SubmittedContribution{}
	}
	return subs, nil
}

// Review applies a reviewer's decision to a pending submission. Accepting
// converts the submission into a Contribution with points multiplied by
// the active global multiplier and frozen, then triggers a leaderboard
// recompute for the submitter.
func (s *contributionService) Review(ctx context.Context, reviewerID uint, submissionID string, req ReviewRequest) (*SubmittedContribution, error) {
	if !ValidStates[req.State] || req.State == StatePending {
		return nil, apperror.NewValidation("invalid review state")
	}

	sub, err := s.repo.FindSubmissionByID(ctx, submissionID)
	if err != nil {
		if apperror.SafeCode(err) == 404 {
			return nil, err
		}
		return nil, apperror.NewInternal(fmt.Errorf("loading submission: %w", err))
	}
	if sub.State == StateAccepted || sub.State == StateRejected {
		return nil, apperror.NewConflict("submission already reviewed")
	}

	now := time.Now().UTC()
	sub.State = req.State
	sub.StaffReply = sanitize.Text(req.StaffReply)
	sub.ReviewedBy = &reviewerID
	sub.ReviewedAt = &now

	if req.State == StateAccepted {
		ctype, err := s.repo.FindTypeByID(ctx, sub.ContributionTypeID)
		if err != nil {
			return nil, apperror.NewInternal(fmt.Errorf("looking up contribution type: %w", err))
		}
		if req.Points < ctype.MinPoints || req.Points > ctype.MaxPoints {
			return nil, apperror.NewValidation(fmt.Sprintf("points must be between %d and %d", ctype.MinPoints, ctype.MaxPoints))
		}

		multiplier, err := s.multipliers.ActiveMultiplier(ctx, sub.ContributionTypeID, now)
		if err != nil {
			return nil, apperror.NewInternal(fmt.Errorf("resolving active multiplier: %w", err))
		}

		contrib := &Contribution{
			UserID:               sub.UserID,
			ContributionTypeID:   sub.ContributionTypeID,
			Points:               req.Points,
			FrozenGlobalPoints:   int(float64(req.Points) * multiplier),
			MultiplierAtCreation: multiplier,
			ContributionDate:     sub.ContributionDate,
			Notes:                sub.Notes,
			CreatedAt:            now,
		}
		if err := s.repo.CreateContribution(ctx, contrib, sub.Evidence); err != nil {
			return nil, apperror.NewInternal(fmt.Errorf("creating contribution: %w", err))
		}
		sub.SuggestedPoints = req.Points
		sub.ContributionID = &contrib.ID
	}

	if err := s.repo.UpdateSubmissionReview(ctx, sub); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("saving review: %w", err))
	}

	if req.State == StateAccepted && s.recompute != nil {
		// Totals refresh is best effort: the accepted contribution is
		// already durable, and the next recompute will pick it up.
		if err := s.recompute.RecomputeUser(ctx, sub.UserID); err != nil {
			s.logger.Warn("leaderboard recompute failed",
				"user_id", sub.UserID, "error", err)
		}
	}

	return sub, nil
}
