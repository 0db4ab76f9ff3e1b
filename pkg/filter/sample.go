package filter

import (
	"math/rand/v2"
	"sort"
)

// Sample reduces matches to at most sampleCap records. Every begins-with group keeps
// up to minPerGroup members before the rest is filled uniformly at random, so rare
// continuations stay visible. A non-positive sampleCap disables sampling.
func Sample(matches []Record, keyLen, sampleCap, minPerGroup int, rng *rand.Rand) []Record {
	return sampleGroups(matches, groupMatches(matches, keyLen), sampleCap, minPerGroup, rng)
}

func sampleGroups(matches []Record, groups []Group, sampleCap, minPerGroup int, rng *rand.Rand) []Record {
	if sampleCap <= 0 || len(matches) <= sampleCap {
		out := make([]Record, len(matches))
		copy(out, matches)
		return out
	}

	out := make([]Record, 0, sampleCap)
	picked := make([]bool, len(matches))
	take := func(i int) {
		if picked[i] || len(out) >= sampleCap {
			return
		}
		picked[i] = true
		out = append(out, matches[i])
	}

	if minPerGroup > 0 {
		// rarest groups first, so a tight cap still favors them
		order := make([]Group, len(groups))
		copy(order, groups)
		sort.SliceStable(order, func(i, j int) bool {
			return order[i].Count < order[j].Count
		})
		for _, g := range order {
			members := make([]int, len(g.members))
			copy(members, g.members)
			rng.Shuffle(len(members), func(i, j int) {
				members[i], members[j] = members[j], members[i]
			})
			if len(members) > minPerGroup {
				members = members[:minPerGroup]
			}
			for _, i := range members {
				take(i)
			}
			if len(out) >= sampleCap {
				return out
			}
		}
	}

	for _, i := range rng.Perm(len(matches)) {
		if len(out) >= sampleCap {
			break
		}
		take(i)
	}
	return out
}
