package filter

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MatchMode selects how a query is compared against city names.
type MatchMode int

const (
	// MatchPrefix matches cities that begin with the query.
	MatchPrefix MatchMode = iota
	// MatchExact matches cities equal to the query.
	MatchExact
)

func (m MatchMode) String() string {
	if m == MatchExact {
		return "exact"
	}
	return "prefix"
}

var exactPattern = regexp.MustCompile(`(?s)^"(.*)"$`)

// Query is a normalized user prefix.
type Query struct {
	Raw    string
	Prefix string
	Mode   MatchMode
}

// ParseQuery lowercases raw and detects the quoted exact-match form.
// An unbalanced quote is kept as a literal character of the prefix.
func ParseQuery(raw string) Query {
	lower := strings.ToLower(raw)
	if m := exactPattern.FindStringSubmatch(lower); m != nil {
		return Query{Raw: raw, Prefix: m[1], Mode: MatchExact}
	}
	return Query{Raw: raw, Prefix: lower, Mode: MatchPrefix}
}

// Exact reports whether the query is in exact mode.
func (q Query) Exact() bool { return q.Mode == MatchExact }

// Matches reports whether city satisfies the query, case-insensitively.
func (q Query) Matches(city string) bool {
	lower := strings.ToLower(city)
	if q.Mode == MatchExact {
		return lower == q.Prefix
	}
	return strings.HasPrefix(lower, q.Prefix)
}

// KeyLen is the number of leading runes used to group matches: the prefix plus one.
func (q Query) KeyLen() int {
	return utf8.RuneCountInString(q.Prefix) + 1
}
