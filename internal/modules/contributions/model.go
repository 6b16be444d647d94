// Package contributions manages contribution types, user submissions, the
// review workflow, and the accepted contribution records that feed the
// leaderboard. Submissions move through a small state machine: pending ->
// accepted | rejected | more_info_needed; accepting converts the
// submission into a point-carrying Contribution with the active global
// multiplier frozen in.
package contributions

import (
	"time"
)

// Submission states. These must match the ENUM on
// submitted_contributions.state.
const (
	StatePending        = "pending"
	StateAccepted       = "accepted"
	StateRejected       = "rejected"
	StateMoreInfoNeeded = "more_info_needed"
)

// ValidStates is the set of recognized submission states.
var ValidStates = map[string]bool{
	StatePending:        true,
	StateAccepted:       true,
	StateRejected:       true,
	StateMoreInfoNeeded: true,
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
	URL         string `json:"url"`
}

// Contribution is an accepted, point-carrying record. Points are frozen at
// acceptance time: the then-active global multiplier is recorded and the
// multiplied value stored, so later multiplier changes never rewrite
// history.
type Contribution struct {
	ID                   uint      `json:"id"`
	UserID               uint      `json:"user_id"`
	ContributionTypeID   uint      `json:"contribution_type_id"`
	Points               int       `json:"points"`
	FrozenGlobalPoints   int       `json:"frozen_global_points"`
	MultiplierAtCreation float64   `json:"multiplier_at_creation"`
	ContributionDate     time.Time `json:"contribution_date"`
	Notes                string    `json:"notes"`
	CreatedAt            time.Time `json:"created_at"`
}

// SubmittedContribution is a user submission moving through review.
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

	Evidence []Evidence `json:"evidence_items"`

	// Submitter fields joined from users for list responses.
	Username    string `json:"username,omitempty"`
	UserName    string `json:"user_name,omitempty"`
	UserAddress string `json:"user_address,omitempty"`
}

// --- Request DTOs (bound from HTTP requests) ---

// EvidenceInput is an evidence item attached at submission time.
type EvidenceInput struct {
	Description string `json:"description"`
	URL         string `json:"url"`
}

// SubmitRequest holds a new submission.
type SubmitRequest struct {
	ContributionTypeID uint            `json:"contribution_type_id"`
	ContributionDate   time.Time       `json:"contribution_date"`
	Notes              string          `json:"notes"`
	Evidence           []EvidenceInput `json:"evidence_items"`
}

// ReviewRequest holds a reviewer's decision on a submission.
type ReviewRequest struct {
	State      string `json:"state"`
	Points     int    `json:"points"`
	StaffReply string `json:"staff_reply"`
}

// --- List filtering ---

// ListFilter is the parsed form of the list endpoint's query parameters.
// String fields left empty and zero ints mean "no constraint".
type ListFilter struct {
	State        string
	ExcludeState string

	TypeID        uint
	ExcludeTypeID uint

	UsernameSearch  string
	ExcludeUsername string

	// AssignedTo is a reviewer user ID in decimal, or the literal
	// "unassigned" for submissions nobody has picked up.
	AssignedTo        string
	ExcludeAssignedTo string

	IncludeContent []string
	ExcludeContent []string

	OnlyEmptyEvidence    bool
	ExcludeEmptyEvidence bool

	HasProposal *bool

	MinAcceptedContributions int

	Ordering string

	Page     int
	PageSize int
}

// Page is the list envelope used by paginated endpoints.
type Page[T any] struct {
	Count   int `json:"count"`
	Results []T `json:"results"`
}
