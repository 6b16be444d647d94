package search

import (
	"strconv"
	"strings"
)

// ContributionType is the reference-data shape used to resolve type:
// filters to a concrete type ID.
type ContributionType struct {
	ID   int    `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Reviewer is the reference-data shape used to resolve assigned: filters
// to a reviewer's user ID.
type Reviewer struct {
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	Username string `json:"user_name"`
}

// ReferenceData carries the lookup lists the mapper resolves human-readable
// filter values against. ViewerID resolves the literal "me"; leave it empty
// when there is no authenticated viewer.
type ReferenceData struct {
	ContributionTypes []ContributionType
	Reviewers         []Reviewer
	ViewerID          string
}

// AssignedNone is the literal the backend accepts for "no reviewer assigned".
const AssignedNone = "unassigned"

// sortAliases maps the short sort names exposed in the query language to
// backend ordering keys. Unrecognized values pass through verbatim.
var sortAliases = map[string]string{
	"created":  "created_at",
	"-created": "-created_at",
	"date":     "contribution_date",
	"-date":    "-contribution_date",
}

// Params maps structured filters onto API query parameters. The function is
// pure: it performs no I/O and never fails. A filter value that cannot be
// resolved against the reference data is simply omitted, so results degrade
// to being broader than requested rather than erroring.
func (f Filters) Params(ref ReferenceData) map[string]string {
	params := make(map[string]string)

	if f.Status != nil {
		if f.Status.Negated {
			params["exclude_state"] = f.Status.Value
		} else {
			params["state"] = f.Status.Value
		}
	}

	if f.Type != nil {
		if id, ok := resolveType(f.Type.Value, ref.ContributionTypes); ok {
			if f.Type.Negated {
				params["exclude_contribution_type"] = strconv.Itoa(id)
			} else {
				params["contribution_type"] = strconv.Itoa(id)
			}
		}
	}

	if f.From != nil {
		if f.From.Negated {
			params["exclude_username"] = f.From.Value
		} else {
			params["username_search"] = f.From.Value
		}
	}

	if f.Assigned != nil {
		if assignee, ok := resolveAssigned(f.Assigned.Value, ref); ok {
			if f.Assigned.Negated {
				params["exclude_assigned_to"] = assignee
			} else {
				params["assigned_to"] = assignee
			}
		}
	}

	if len(f.Exclude) > 0 {
		params["exclude_content"] = strings.Join(f.Exclude, ",")
	}
	if len(f.Include) > 0 {
		params["include_content"] = strings.Join(f.Include, ",")
	}

	// Evidence presence: no:url/no:evidence wins over has:.
	if containsAny(f.No, "url", "evidence") {
		params["only_empty_evidence"] = "true"
	} else if containsAny(f.Has, "url", "evidence") {
		params["exclude_empty_evidence"] = "true"
	}

	// Proposal presence is independent of the evidence flag.
	if containsAny(f.Has, "proposal") {
		params["has_proposal"] = "true"
	} else if containsAny(f.No, "proposal") {
		params["has_proposal"] = "false"
	}

	if f.MinContributions != nil && *f.MinContributions > 0 {
		params["min_accepted_contributions"] = strconv.Itoa(*f.MinContributions)
	}

	if f.Sort != nil {
		if mapped, ok := sortAliases[f.Sort.Value]; ok {
			params["ordering"] = mapped
		} else {
			// Assume the value is already a backend ordering key.
			params["ordering"] = f.Sort.Value
		}
	}

	return params
}

// resolveType matches a type: value against slug, name, hyphenated name, or
// exact numeric ID, case-insensitively.
func resolveType(value string, types []ContributionType) (int, bool) {
	lower := strings.ToLower(value)
	for _, t := range types {
		switch {
		case strings.ToLower(t.Slug) == lower && t.Slug != "",
			strings.ToLower(t.Name) == lower && t.Name != "",
			hyphenate(t.Name) == lower && t.Name != "",
			strconv.Itoa(t.ID) == value:
			return t.ID, true
		}
	}
	return 0, false
}

// hyphenate lowercases a display name and joins its words with hyphens,
// so "Bug Report" matches type:bug-report.
func hyphenate(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

// resolveAssigned maps an assigned: value to a reviewer user ID, the
// unassigned literal, or the viewer's own ID for "me".
func resolveAssigned(value string, ref ReferenceData) (string, bool) {
	lower := strings.ToLower(value)

	switch lower {
	case "me":
		if ref.ViewerID == "" {
			return "", false
		}
		return ref.ViewerID, true
	case "unassigned", "none":
		return AssignedNone, true
	}

	for _, r := range ref.Reviewers {
		if r.Name != "" && strings.Contains(strings.ToLower(r.Name), lower) {
			return r.UserID, true
		}
		if r.Username != "" && strings.Contains(strings.ToLower(r.Username), lower) {
			return r.UserID, true
		}
	}
	return "", false
}

// containsAny reports whether values contains any of the wanted strings.
func containsAny(values []string, wanted ...string) bool {
	for _, v := range values {
		for _, w := range wanted {
			if v == w {
				return true
			}
		}
	}
	return false
}
