package contributions

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/genlayer-foundation/points/internal/apperror"
	"github.com/genlayer-foundation/points/internal/modules/auth"
)

// ReviewerChecker reports whether a user may review submissions. The app
// wires this to the users module.
type ReviewerChecker interface {
	IsReviewer(ctx context.Context, userID uint) (bool, error)
}

// Handler handles HTTP requests for contributions. Handlers are thin:
// they bind the request, call the service, and write the JSON response.
type Handler struct {
	service   ContributionService
	reviewers ReviewerChecker
}

// NewHandler creates a new contributions handler.
func NewHandler(service ContributionService, reviewers ReviewerChecker) *Handler {
	return &Handler{service: service, reviewers: reviewers}
}

// ListTypes returns all contribution types (GET /api/v1/contribution-types/).
func (h *Handler) ListTypes(c echo.Context) error {
	types, err := h.service.ListTypes(c.Request().Context())
	if err != nil {
		return err
	}
	if types == nil {
		types = []ContributionType{}
	}
	return c.JSON(http.StatusOK, types)
}

// List returns a filtered page of submissions (GET /api/v1/contributions/).
func (h *Handler) List(c echo.Context) error {
	filter := parseListFilter(c.QueryParams())
	page, err := h.service.List(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// Submit records a new submission for the signed-in user
// (POST /api/v1/submissions/).
func (h *Handler) Submit(c echo.Context) error {
	userID := auth.GetUserID(c)

	var req SubmitRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	sub, err := h.service.Submit(c.Request().Context(), userID, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, sub)
}

// MySubmissions returns the signed-in user's submissions
// (GET /api/v1/submissions/my/).
func (h *Handler) MySubmissions(c echo.Context) error {
	userID := auth.GetUserID(c)

	subs, err := h.service.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, subs)
}

// Review applies a review decision (POST /api/v1/submissions/:id/review/).
// Only users flagged as reviewers may call it.
func (h *Handler) Review(c echo.Context) error {
	reviewerID := auth.GetUserID(c)

	ok, err := h.reviewers.IsReviewer(c.Request().Context(), reviewerID)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.NewForbidden("reviewer access required")
	}

	var req ReviewRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	sub, err := h.service.Review(c.Request().Context(), reviewerID, c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sub)
}

// parseListFilter maps the list endpoint's query parameters onto a
// ListFilter. Unknown or malformed values degrade to "no constraint"
// rather than erroring, matching how clients build these URLs.
func parseListFilter(q url.Values) ListFilter {
	f := ListFilter{
		State:             q.Get("state"),
		ExcludeState:      q.Get("exclude_state"),
		UsernameSearch:    q.Get("username_search"),
		ExcludeUsername:   q.Get("exclude_username"),
		AssignedTo:        q.Get("assigned_to"),
		ExcludeAssignedTo: q.Get("exclude_assigned_to"),
		Ordering:          q.Get("ordering"),
	}

	f.TypeID = parseUintParam(q.Get("contribution_type"))
	f.ExcludeTypeID = parseUintParam(q.Get("exclude_contribution_type"))

	f.IncludeContent = splitTerms(q.Get("include_content"))
	f.ExcludeContent = splitTerms(q.Get("exclude_content"))

	f.OnlyEmptyEvidence = q.Get("only_empty_evidence") == "true"
	f.ExcludeEmptyEvidence = q.Get("exclude_empty_evidence") == "true"

	switch q.Get("has_proposal") {
	case "true":
		v := true
		f.HasProposal = &v
	case "false":
		v := false
		f.HasProposal = &v
	}

	f.MinAcceptedContributions = int(parseUintParam(q.Get("min_accepted_contributions")))

	f.Page = int(parseUintParam(q.Get("page")))
	f.PageSize = int(parseUintParam(q.Get("page_size")))

	return f
}

// parseUintParam parses a decimal query value, treating absent or
// malformed input as zero.
func parseUintParam(s string) uint {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0
	}
	return uint(v)
}

// splitTerms splits a comma-separated parameter into trimmed non-empty
// terms.
func splitTerms(s string) []string {
	if s == "" {
		return nil
	}
	var terms []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			terms = append(terms, part)
		}
	}
	return terms
}
