// Package search implements the GitHub-style filter query language used by
// the contribution review views: a free-text string of tag:value tokens that
// parses into structured filters and maps onto API query parameters.
//
// Supported tags:
//   - status:pending|accepted|rejected|more_info_needed
//   - type:contribution-type-name
//   - from:username
//   - assigned:me|unassigned|reviewer-name
//   - exclude:text / include:text (multiple allowed)
//   - has:url|evidence|proposal / no:url|evidence|proposal
//   - min-contributions:number
//   - sort:created|-created|date|-date
//
// Negation: -tag:value, or a standalone NOT before the tagged token.
// Quoted values: tag:"value with spaces".
//
// Parsing is total: malformed or unrecognized tokens are dropped, never
// reported. An empty query yields the zero Filters.
package search

import (
	"strconv"
	"strings"
)

// Clause is one single-value filter: the raw value plus whether the token
// was negated.
type Clause struct {
	Value   string
	Negated bool
}

// Filters is the structured result of parsing a query string. Every field
// is independently optional; nil pointers and empty slices mean the filter
// was not present.
type Filters struct {
	Status   *Clause
	Type     *Clause
	From     *Clause
	Assigned *Clause
	Sort     *Clause

	Exclude []string
	Include []string
	Has     []string
	No      []string

	MinContributions *int
}

// parsedToken is an interpreted tag:value token.
type parsedToken struct {
	tag     string
	value   string
	negated bool
}

// tokenize splits the query on whitespace, keeping quoted runs (single or
// double) together. Quote characters delimit grouping and are dropped from
// the token. An unterminated quote consumes the rest of the string.
func tokenize(query string) []string {
	var tokens []string
	var current strings.Builder
	inQuotes := false
	var quoteChar byte

	flush := func() {
		if tok := strings.TrimSpace(current.String()); tok != "" {
			tokens = append(tokens, tok)
		}
		current.Reset()
	}

	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case (c == '"' || c == '\'') && !inQuotes:
			inQuotes = true
			quoteChar = c
		case inQuotes && c == quoteChar:
			inQuotes = false
		case c == ' ' && !inQuotes:
			flush()
		default:
			current.WriteByte(c)
		}
	}
	flush()

	return tokens
}

// parseToken interprets one token as tag:value with an optional leading
// negation marker. Returns nil for anything that isn't a recognizable
// tagged token or has an empty value after quote stripping.
func parseToken(token string) *parsedToken {
	negated := false
	if strings.HasPrefix(token, "-") {
		negated = true
		token = token[1:]
	}

	colon := strings.Index(token, ":")
	if colon < 0 {
		return nil
	}

	tag := strings.ToLower(token[:colon])
	value := unquote(token[colon+1:])
	if value == "" {
		return nil
	}

	return &parsedToken{tag: tag, value: value, negated: negated}
}

// unquote strips one layer of matching surrounding quotes.
func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// Parse turns a free-text query into structured filters. It never fails;
// tokens it cannot interpret are silently ignored. Repeated single-value
// tags overwrite (last wins); multi-value tags append in order.
func Parse(query string) Filters {
	var f Filters

	if strings.TrimSpace(query) == "" {
		return f
	}

	tokens := tokenize(query)
	pendingNot := false

	for _, token := range tokens {
		// A standalone NOT negates the immediately following tagged token
		// and is otherwise discarded.
		if strings.EqualFold(token, "not") {
			pendingNot = true
			continue
		}

		parsed := parseToken(token)
		negate := pendingNot
		pendingNot = false
		if parsed == nil {
			continue
		}
		if negate {
			parsed.negated = true
		}

		switch parsed.tag {
		case "status":
			f.Status = &Clause{Value: parsed.value, Negated: parsed.negated}
		case "type":
			f.Type = &Clause{Value: parsed.value, Negated: parsed.negated}
		case "from":
			f.From = &Clause{Value: parsed.value, Negated: parsed.negated}
		case "assigned":
			f.Assigned = &Clause{Value: parsed.value, Negated: parsed.negated}
		case "sort":
			f.Sort = &Clause{Value: parsed.value, Negated: parsed.negated}
		case "exclude":
			f.Exclude = append(f.Exclude, parsed.value)
		case "include":
			f.Include = append(f.Include, parsed.value)
		case "has":
			f.Has = append(f.Has, parsed.value)
		case "no":
			f.No = append(f.No, parsed.value)
		case "min-contributions":
			if n, ok := leadingInt(parsed.value); ok {
				f.MinContributions = &n
			}
		}
	}

	return f
}

// leadingInt reads the integer prefix of s, so trailing garbage after the
// digits ("5abc") is tolerated rather than discarding the whole value.
// Returns false when s has no leading digits.
func leadingInt(s string) (int, bool) {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	j := i
	for j < len(s) && s[j] >= '0' && s[j] <= '9' {
		j++
	}
	if j == i {
		return 0, false
	}
	n, err := strconv.Atoi(s[:j])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Query serializes filters back into a query string such that parsing the
// result reproduces the same filters. Values containing spaces are quoted;
// negated single-value clauses get the - prefix. Used for URL sync and for
// showing the effective query in the search box.
func (f Filters) Query() string {
	var parts []string

	single := func(tag string, c *Clause) {
		if c == nil || c.Value == "" {
			return
		}
		prefix := ""
		if c.Negated {
			prefix = "-"
		}
		parts = append(parts, prefix+tag+":"+quoteIfNeeded(c.Value))
	}
	single("status", f.Status)
	single("type", f.Type)
	single("from", f.From)
	single("assigned", f.Assigned)
	single("sort", f.Sort)

	multi := func(tag string, values []string) {
		for _, v := range values {
			parts = append(parts, tag+":"+quoteIfNeeded(v))
		}
	}
	multi("exclude", f.Exclude)
	multi("include", f.Include)
	multi("has", f.Has)
	multi("no", f.No)

	if f.MinContributions != nil && *f.MinContributions > 0 {
		parts = append(parts, "min-contributions:"+strconv.Itoa(*f.MinContributions))
	}

	return strings.Join(parts, " ")
}

// quoteIfNeeded wraps a value in double quotes when it contains a space.
func quoteIfNeeded(v string) string {
	if strings.Contains(v, " ") {
		return `"` + v + `"`
	}
	return v
}
