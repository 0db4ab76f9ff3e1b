package filter

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// NoMatchesLabel is the prefix of the sentinel group reported when nothing matches.
const NoMatchesLabel = "(no matched cities)"

// Group is one row of the breakdown: the cities sharing the same next-character
// extension of the prefix.
type Group struct {
	Prefix     string  `json:"prefix" msgpack:"k"`
	Count      int     `json:"count" msgpack:"n"`
	Percentage float64 `json:"percentage" msgpack:"p"`
	// Exact is set when Prefix is a whole city name with no next character.
	Exact bool `json:"exact,omitempty" msgpack:"x,omitempty"`

	members []int
}

// Sentinel reports whether g is the "no matches" placeholder.
func (g Group) Sentinel() bool {
	return g.Count == 0 && g.Prefix == NoMatchesLabel
}

// PercentString formats the percentage with two decimals, e.g. "33.33%".
func (g Group) PercentString() string {
	return fmt.Sprintf("%.2f%%", math.Round(g.Percentage*10000)/100)
}

// GroupKey returns the first keyLen runes of the lowercased city and whether the
// city was shorter than keyLen.
func GroupKey(city string, keyLen int) (string, bool) {
	runes := []rune(strings.ToLower(city))
	if len(runes) < keyLen {
		return string(runes), true
	}
	return string(runes[:keyLen]), false
}

// Breakdown groups matches by their first keyLen runes and ranks the groups by count.
func Breakdown(matches []Record, keyLen int) []Group {
	return rankGroups(groupMatches(matches, keyLen), len(matches))
}

// groupMatches buckets match positions by key in encounter order.
func groupMatches(matches []Record, keyLen int) []Group {
	var groups []Group
	byKey := make(map[string]int)
	for i, r := range matches {
		key, exact := GroupKey(r.City, keyLen)
		gi, ok := byKey[key]
		if !ok {
			gi = len(groups)
			byKey[key] = gi
			groups = append(groups, Group{Prefix: key, Exact: exact})
		}
		groups[gi].Count++
		groups[gi].members = append(groups[gi].members, i)
	}
	return groups
}

func rankGroups(groups []Group, total int) []Group {
	if len(groups) == 0 {
		return []Group{{Prefix: NoMatchesLabel}}
	}
	ranked := make([]Group, len(groups))
	copy(ranked, groups)
	for i := range ranked {
		if total > 0 {
			ranked[i].Percentage = float64(ranked[i].Count) / float64(total)
		}
		ranked[i].members = nil
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	return ranked
}
