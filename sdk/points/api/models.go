package api

import "time"

// User is a participant account keyed by wallet address.
type User struct {
	ID           uint      `json:"id"`
	Address      string    `json:"address"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Visible      bool      `json:"visible"`
	ReferralCode string    `json:"referral_code"`
	ReferredBy   *uint     `json:"referred_by,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserPatch carries the fields a user may change on their own profile.
// Nil fields are left untouched.
type UserPatch struct {
	Username *string `json:"username,omitempty"`
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Visible  *bool   `json:"visible,omitempty"`
}

// Validator is a testnet validator operated by a user.
type Validator struct {
	ID          uint   `json:"id"`
	UserID      uint   `json:"user_id"`
	NodeVersion string `json:"node_version"`
}

// ContributionType describes a category of recognized work.
type ContributionType struct {
	ID            uint   `json:"id"`
	Name          string `json:"name"`
	Slug          string `json:"slug"`
	Description   string `json:"description"`
	Category      string `json:"category"`
	MinPoints     int    `json:"min_points"`
	MaxPoints     int    `json:"max_points"`
	IsSubmittable bool   `json:"is_submittable"`
}

// Evidence is a supporting item attached to a contribution or submission.
type Evidence struct {
	ID          uint   `json:"id"`
	Description string `json:"description"`
	URL         string `json:"url,omitempty"`
}

// Contribution is an accepted, point-carrying record.
type Contribution struct {
	ID                   uint       `json:"id"`
	UserID               uint       `json:"user_id"`
	User                 *User      `json:"user,omitempty"`
	ContributionTypeID   uint       `json:"contribution_type_id"`
	Points               int        `json:"points"`
	FrozenGlobalPoints   int        `json:"frozen_global_points"`
	MultiplierAtCreation float64    `json:"multiplier_at_creation"`
	ContributionDate     time.Time  `json:"contribution_date"`
	Notes                string     `json:"notes"`
	Evidence             []Evidence `json:"evidence_items,omitempty"`
}

// Submission states.
const (
	StatePending        = "pending"
	StateAccepted       = "accepted"
	StateRejected       = "rejected"
	StateMoreInfoNeeded = "more_info_needed"
)

// SubmittedContribution is a user submission moving through review. List
// responses carry the submitter's username, display name, and address as
// flat fields.
type SubmittedContribution struct {
	ID                 string     `json:"id"`
	UserID             uint       `json:"user_id"`
	ContributionTypeID uint       `json:"contribution_type_id"`
	ContributionDate   time.Time  `json:"contribution_date"`
	Notes              string     `json:"notes"`
	State              string     `json:"state"`
	SuggestedPoints    int        `json:"suggested_points"`
	StaffReply         string     `json:"staff_reply,omitempty"`
	ReviewedBy         *uint      `json:"reviewed_by,omitempty"`
	ReviewedAt         *time.Time `json:"reviewed_at,omitempty"`
	ContributionID     *uint      `json:"contribution_id,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	Evidence           []Evidence `json:"evidence_items"`

	Username    string `json:"username,omitempty"`
	UserName    string `json:"user_name,omitempty"`
	UserAddress string `json:"user_address,omitempty"`
}

// SubmitRequest is the body of a new submission.
type SubmitRequest struct {
	ContributionTypeID uint            `json:"contribution_type_id"`
	ContributionDate   time.Time       `json:"contribution_date"`
	Notes              string          `json:"notes"`
	Evidence           []EvidenceInput `json:"evidence_items,omitempty"`
}

// EvidenceInput is an evidence item attached at submission time.
type EvidenceInput struct {
	Description string `json:"description"`
	URL         string `json:"url,omitempty"`
}

// ReviewRequest is a reviewer's decision on a submission.
type ReviewRequest struct {
	State      string `json:"state"`
	Points     int    `json:"points,omitempty"`
	StaffReply string `json:"staff_reply,omitempty"`
}

// LeaderboardEntry is one ranked row. Ties share a rank.
type LeaderboardEntry struct {
	UserID      uint      `json:"user_id"`
	TotalPoints int       `json:"total_points"`
	Rank        int       `json:"rank"`
	UpdatedAt   time.Time `json:"updated_at"`
	Username    string    `json:"username"`
	Name        string    `json:"name"`
	UserAddress string    `json:"user_address"`
}

// Stats is the aggregate counters shown on the dashboard.
type Stats struct {
	ParticipantCount  int `json:"participant_count"`
	ContributionCount int `json:"contribution_count"`
	TotalPoints       int `json:"total_points"`
}

// Page is the list envelope used by paginated endpoints.
type Page[T any] struct {
	Count   int `json:"count"`
	Results []T `json:"results"`
}
