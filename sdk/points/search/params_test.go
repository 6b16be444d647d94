package search

import (
	"reflect"
	"testing"
)

var testRef = ReferenceData{
	ContributionTypes: []ContributionType{
		{ID: 7, Slug: "doc", Name: "Documentation"},
		{ID: 12, Slug: "bug-report", Name: "Bug Report"},
		{ID: 3, Slug: "code", Name: "Code"},
	},
	Reviewers: []Reviewer{
		{UserID: "42", Name: "Alice Steward", Username: "alice"},
		{UserID: "99", Name: "Bob", Username: "bob-reviews"},
	},
	ViewerID: "1337",
}

func TestParams_Status(t *testing.T) {
	p := Parse("status:pending").Params(testRef)
	if p["state"] != "pending" {
		t.Errorf("state = %q", p["state"])
	}

	p = Parse("-status:rejected").Params(testRef)
	if p["exclude_state"] != "rejected" {
		t.Errorf("exclude_state = %q", p["exclude_state"])
	}
	if _, ok := p["state"]; ok {
		t.Error("state should be absent for negated filter")
	}
}

func TestParams_TypeResolution(t *testing.T) {
	tests := []struct {
		query string
		key   string
		want  string
	}{
		{`type:"doc"`, "contribution_type", "7"},
		{"type:documentation", "contribution_type", "7"},
		{"type:bug-report", "contribution_type", "12"},
		{`type:"Bug Report"`, "contribution_type", "12"},
		{"type:3", "contribution_type", "3"},
		{"-type:doc", "exclude_contribution_type", "7"},
	}
	for _, tt := range tests {
		p := Parse(tt.query).Params(testRef)
		if p[tt.key] != tt.want {
			t.Errorf("%s: %s = %q, want %q", tt.query, tt.key, p[tt.key], tt.want)
		}
	}
}

func TestParams_UnmatchedTypeOmitted(t *testing.T) {
	p := Parse("type:nonexistent").Params(testRef)
	if _, ok := p["contribution_type"]; ok {
		t.Error("contribution_type should be absent")
	}
	if _, ok := p["exclude_contribution_type"]; ok {
		t.Error("exclude_contribution_type should be absent")
	}
}

func TestParams_From(t *testing.T) {
	p := Parse("from:carol").Params(testRef)
	if p["username_search"] != "carol" {
		t.Errorf("username_search = %q", p["username_search"])
	}

	p = Parse("-from:carol").Params(testRef)
	if p["exclude_username"] != "carol" {
		t.Errorf("exclude_username = %q", p["exclude_username"])
	}
}

func TestParams_Assigned(t *testing.T) {
	tests := []struct {
		name  string
		query string
		ref   ReferenceData
		key   string
		want  string
	}{
		{"me resolves to viewer", "assigned:me", testRef, "assigned_to", "1337"},
		{"unassigned literal", "assigned:unassigned", testRef, "assigned_to", "unassigned"},
		{"none literal", "assigned:none", testRef, "assigned_to", "unassigned"},
		{"substring on name", "assigned:steward", testRef, "assigned_to", "42"},
		{"substring on username", "assigned:bob-rev", testRef, "assigned_to", "99"},
		{"negated", "-assigned:alice", testRef, "exclude_assigned_to", "42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Parse(tt.query).Params(tt.ref)
			if p[tt.key] != tt.want {
				t.Errorf("%s = %q, want %q", tt.key, p[tt.key], tt.want)
			}
		})
	}
}

func TestParams_AssignedMeWithoutViewer(t *testing.T) {
	ref := testRef
	ref.ViewerID = ""
	p := Parse("assigned:me").Params(ref)
	if len(p) != 0 {
		t.Errorf("params = %v, want empty", p)
	}
}

func TestParams_AssignedUnresolvedOmitted(t *testing.T) {
	p := Parse("assigned:nobody-matches").Params(testRef)
	if _, ok := p["assigned_to"]; ok {
		t.Error("assigned_to should be absent")
	}
}

func TestParams_ContentJoin(t *testing.T) {
	p := Parse(`exclude:"needs review" exclude:typo include:fix`).Params(testRef)
	if p["exclude_content"] != "needs review,typo" {
		t.Errorf("exclude_content = %q", p["exclude_content"])
	}
	if p["include_content"] != "fix" {
		t.Errorf("include_content = %q", p["include_content"])
	}
}

func TestParams_EvidenceFlags(t *testing.T) {
	p := Parse("has:url").Params(testRef)
	if p["exclude_empty_evidence"] != "true" {
		t.Errorf("exclude_empty_evidence = %q", p["exclude_empty_evidence"])
	}

	p = Parse("no:evidence").Params(testRef)
	if p["only_empty_evidence"] != "true" {
		t.Errorf("only_empty_evidence = %q", p["only_empty_evidence"])
	}

	// no: wins when both are present for the same query.
	p = Parse("has:url no:url").Params(testRef)
	if p["only_empty_evidence"] != "true" {
		t.Error("expected only_empty_evidence when both has and no are present")
	}
	if _, ok := p["exclude_empty_evidence"]; ok {
		t.Error("exclude_empty_evidence should be absent when no: wins")
	}
}

func TestParams_ProposalFlag(t *testing.T) {
	p := Parse("has:proposal").Params(testRef)
	if p["has_proposal"] != "true" {
		t.Errorf("has_proposal = %q", p["has_proposal"])
	}

	p = Parse("no:proposal").Params(testRef)
	if p["has_proposal"] != "false" {
		t.Errorf("has_proposal = %q", p["has_proposal"])
	}

	// Proposal flag is independent of the evidence flag.
	p = Parse("no:url has:proposal").Params(testRef)
	if p["only_empty_evidence"] != "true" || p["has_proposal"] != "true" {
		t.Errorf("params = %v", p)
	}
}

func TestParams_MinContributions(t *testing.T) {
	p := Parse("min-contributions:5").Params(testRef)
	if p["min_accepted_contributions"] != "5" {
		t.Errorf("min_accepted_contributions = %q", p["min_accepted_contributions"])
	}

	// Non-positive values are not forwarded.
	p = Parse("min-contributions:0").Params(testRef)
	if _, ok := p["min_accepted_contributions"]; ok {
		t.Error("zero should not be forwarded")
	}
	p = Parse("min-contributions:-2").Params(testRef)
	if _, ok := p["min_accepted_contributions"]; ok {
		t.Error("negative should not be forwarded")
	}
}

func TestParams_SortMapping(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"sort:created", "created_at"},
		{"sort:-created", "-created_at"},
		{"sort:date", "contribution_date"},
		{"sort:-date", "-contribution_date"},
		{"sort:points", "points"}, // pass-through for backend keys
	}
	for _, tt := range tests {
		p := Parse(tt.query).Params(testRef)
		if p["ordering"] != tt.want {
			t.Errorf("%s: ordering = %q, want %q", tt.query, p["ordering"], tt.want)
		}
	}
}

func TestParams_EmptyFilters(t *testing.T) {
	p := Filters{}.Params(testRef)
	if !reflect.DeepEqual(p, map[string]string{}) {
		t.Errorf("params = %v, want empty map", p)
	}
}
