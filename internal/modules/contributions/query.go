package contributions

import (
	"strconv"
	"strings"
)

// orderings whitelists the sortable columns. Keys are the API's ordering
// values; values are the SQL expression to order by. Unknown orderings
// fall back to newest-first.
var orderings = map[string]string{
	"created_at":         "s.created_at ASC",
	"-created_at":        "s.created_at DESC",
	"contribution_date":  "s.contribution_date ASC",
	"-contribution_date": "s.contribution_date DESC",
	"points":             "s.suggested_points ASC",
	"-points":            "s.suggested_points DESC",
}

// defaultOrdering is applied when the requested ordering is unknown.
const defaultOrdering = "s.created_at DESC"

// hasEvidenceCond matches submissions with at least one non-empty
// evidence item.
const hasEvidenceCond = `EXISTS (
		SELECT 1 FROM submission_evidence e
		WHERE e.submission_id = s.id AND (e.url <> '' OR e.description <> ''))`

// hasProposalCond matches submissions with a proposal link among their
// evidence.
const hasProposalCond = `EXISTS (
		SELECT 1 FROM submission_evidence e
		WHERE e.submission_id = s.id AND e.url LIKE '%proposal%')`

// buildListQuery translates a ListFilter into a WHERE clause (without the
// leading WHERE), its placeholder arguments, and an ORDER BY expression.
// The clause assumes the list query aliases submitted_contributions as s
// and the joined users table as u.
func buildListQuery(f ListFilter) (where string, args []any, orderBy string) {
	var conds []string

	if f.State != "" {
		conds = append(conds, "s.state = ?")
		args = append(args, f.State)
	}
	if f.ExcludeState != "" {
		conds = append(conds, "s.state <> ?")
		args = append(args, f.ExcludeState)
	}

	if f.TypeID != 0 {
		conds = append(conds, "s.contribution_type_id = ?")
		args = append(args, f.TypeID)
	}
	if f.ExcludeTypeID != 0 {
		conds = append(conds, "s.contribution_type_id <> ?")
		args = append(args, f.ExcludeTypeID)
	}

	if f.UsernameSearch != "" {
		conds = append(conds, "(u.username LIKE ? OR u.name LIKE ? OR u.address LIKE ?)")
		pattern := "%" + escapeLike(f.UsernameSearch) + "%"
		args = append(args, pattern, pattern, pattern)
	}
	if f.ExcludeUsername != "" {
		conds = append(conds, "u.username <> ?")
		args = append(args, f.ExcludeUsername)
	}

	if cond, condArgs, ok := assignedCond(f.AssignedTo, false); ok {
		conds = append(conds, cond)
		args = append(args, condArgs...)
	}
	if cond, condArgs, ok := assignedCond(f.ExcludeAssignedTo, true); ok {
		conds = append(conds, cond)
		args = append(args, condArgs...)
	}

	for _, term := range f.IncludeContent {
		if term == "" {
			continue
		}
		conds = append(conds, "s.notes LIKE ?")
		args = append(args, "%"+escapeLike(term)+"%")
	}
	for _, term := range f.ExcludeContent {
		if term == "" {
			continue
		}
		conds = append(conds, "s.notes NOT LIKE ?")
		args = append(args, "%"+escapeLike(term)+"%")
	}

	// When both evidence filters arrive, empty-only wins; the query mapper
	// applies the same precedence on the client side.
	if f.OnlyEmptyEvidence {
		conds = append(conds, "NOT "+hasEvidenceCond)
	} else if f.ExcludeEmptyEvidence {
		conds = append(conds, hasEvidenceCond)
	}

	if f.HasProposal != nil {
		if *f.HasProposal {
			conds = append(conds, hasProposalCond)
		} else {
			conds = append(conds, "NOT "+hasProposalCond)
		}
	}

	if f.MinAcceptedContributions > 0 {
		conds = append(conds, `s.user_id IN (
		SELECT user_id FROM submitted_contributions
		WHERE state = 'accepted' GROUP BY user_id HAVING COUNT(*) >= ?)`)
		args = append(args, f.MinAcceptedContributions)
	}

	orderBy, ok := orderings[f.Ordering]
	if !ok {
		orderBy = defaultOrdering
	}

	return strings.Join(conds, " AND "), args, orderBy
}

// assignedCond builds the reviewer-assignment condition for assigned_to /
// exclude_assigned_to values. The value is a reviewer user ID in decimal
// or the literal "unassigned"; anything else is dropped.
func assignedCond(value string, negate bool) (string, []any, bool) {
	switch {
	case value == "":
		return "", nil, false
	case value == "unassigned":
		if negate {
			return "s.reviewed_by IS NOT NULL", nil, true
		}
		return "s.reviewed_by IS NULL", nil, true
	default:
		id, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return "", nil, false
		}
		if negate {
			return "(s.reviewed_by IS NULL OR s.reviewed_by <> ?)", []any{id}, true
		}
		return "s.reviewed_by = ?", []any{id}, true
	}
}

// escapeLike escapes LIKE wildcards in user-supplied search terms so a
// literal % or _ in a query matches itself.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
