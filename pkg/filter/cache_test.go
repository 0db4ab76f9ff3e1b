package filter

import (
	"reflect"
	"sort"
	"testing"
)

func TestFilterScenarioPrefix(t *testing.T) {
	c := NewCache(smallDataset(), WithRand(testRand()))
	res := c.Filter("B")

	if got := cityNames(res.Matches); !reflect.DeepEqual(got, []string{"Boston", "Bangor"}) {
		t.Fatalf("expected matches [Boston Bangor], got %v", got)
	}
	if res.Total != 2 {
		t.Errorf("expected total 2, got %d", res.Total)
	}
	if len(res.Breakdown) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(res.Breakdown))
	}
	want := map[string]int{"bo": 1, "ba": 1}
	for _, g := range res.Breakdown {
		if want[g.Prefix] != g.Count {
			t.Errorf("unexpected group %q with count %d", g.Prefix, g.Count)
		}
		if g.Percentage != 0.5 {
			t.Errorf("group %q: expected percentage 0.5, got %v", g.Prefix, g.Percentage)
		}
	}
	// ties keep encounter order
	if res.Breakdown[0].Prefix != "bo" {
		t.Errorf("expected tie broken by encounter order (bo first), got %q", res.Breakdown[0].Prefix)
	}
}

func TestFilterScenarioEmptyDataset(t *testing.T) {
	c := NewCache(nil)
	res := c.Filter("")

	if len(res.Sample) != 0 {
		t.Errorf("expected empty sample, got %d records", len(res.Sample))
	}
	if len(res.Breakdown) != 1 || !res.Breakdown[0].Sentinel() {
		t.Fatalf("expected sentinel breakdown, got %+v", res.Breakdown)
	}
	if res.Breakdown[0].Percentage != 0 {
		t.Errorf("expected zero percentage on sentinel, got %v", res.Breakdown[0].Percentage)
	}
}

func TestFilterScenarioExact(t *testing.T) {
	ds := NewDataset(append(smallDataset(), Record{ID: "4", City: "Bostonia", State: "CA"}))
	c := NewCache(ds)
	res := c.Filter(`"Boston"`)

	if got := cityNames(res.Matches); !reflect.DeepEqual(got, []string{"Boston"}) {
		t.Fatalf("expected only Boston, got %v", got)
	}
	if len(res.Breakdown) != 1 || !res.Breakdown[0].Exact || res.Breakdown[0].Prefix != "boston" {
		t.Errorf("expected one exact group for boston, got %+v", res.Breakdown)
	}
}

func TestFilterNeverFails(t *testing.T) {
	c := NewCache(smallDataset())
	for _, input := range []string{"", "   ", "zzz", `"`, `"Bos`, `""`, "ñandú", "\x00", `"boston`} {
		res := c.Filter(input)
		if len(res.Breakdown) == 0 {
			t.Errorf("input %q: breakdown must never be empty", input)
		}
		assertAllMatch(t, res.Query, res.Matches)
	}
	if res := c.Filter(`"Bos`); res.Total != 0 {
		t.Errorf("unbalanced quote should be matched literally, got %d matches", res.Total)
	}
}

func TestFilterEmptyPrefixSamplesWholeDataset(t *testing.T) {
	ds := syntheticDataset(120, "a", "b", "c")
	c := NewCache(ds, WithSampleCap(50), WithMinPerGroup(5), WithRand(testRand()))
	res := c.Filter("")

	if len(res.Sample) != 50 {
		t.Errorf("expected sample of min(cap, size)=50, got %d", len(res.Sample))
	}
	if res.Total != 120 || !res.Sampled {
		t.Errorf("expected total 120 and sampled result, got total=%d sampled=%v", res.Total, res.Sampled)
	}
	assertSubsetNoDuplicates(t, res.Sample, c.Dataset())

	prefixes := make([]string, 0, len(res.Breakdown))
	for _, g := range res.Breakdown {
		prefixes = append(prefixes, g.Prefix)
	}
	sort.Strings(prefixes)
	if !reflect.DeepEqual(prefixes, []string{"a", "b", "c"}) {
		t.Errorf("expected breakdown by first character, got %v", prefixes)
	}

	small := NewCache(smallDataset())
	if got := len(small.Filter("").Sample); got != 3 {
		t.Errorf("expected whole dataset when smaller than cap, got %d", got)
	}
}

func TestFilterSampleBounds(t *testing.T) {
	ds := syntheticDataset(2000, "spring", "springs", "sp", "st")
	c := NewCache(ds, WithSampleCap(300), WithMinPerGroup(30), WithRand(testRand()))

	for _, prefix := range []string{"", "s", "sp", "spr", "st", "Springs0", `"sp00002"`, "x"} {
		res := c.Filter(prefix)
		if len(res.Sample) > 300 {
			t.Errorf("prefix %q: sample %d exceeds cap", prefix, len(res.Sample))
		}
		assertSubsetNoDuplicates(t, res.Sample, c.Dataset())
		assertAllMatch(t, res.Query, res.Sample)
		assertAllMatch(t, res.Query, res.Matches)

		sum := 0
		pct := 0.0
		for _, g := range res.Breakdown {
			sum += g.Count
			pct += g.Percentage
		}
		if sum != res.Total {
			t.Errorf("prefix %q: group counts sum to %d, expected %d", prefix, sum, res.Total)
		}
		if res.Total > 0 && (pct < 0.999999 || pct > 1.000001) {
			t.Errorf("prefix %q: percentages sum to %v", prefix, pct)
		}
	}
}

func TestFilterReuseMatchesFullScan(t *testing.T) {
	ds := syntheticDataset(3000, "new", "newark", "ne", "no")
	prefixPairs := [][2]string{
		{"newa", "newar"},
		{"ne", "new"},
		{"no", "no0"},
		{"newark", "newark00"},
		{"", "n"},
		{"nEw", "NEWA"},
	}

	for _, pair := range prefixPairs {
		cached := NewCache(ds, WithSampleCap(1000), WithRand(testRand()))
		fresh := NewCache(ds, WithSampleCap(1000), WithRand(testRand()))

		first := cached.Filter(pair[0])
		second := cached.Filter(pair[1])
		direct := fresh.Filter(pair[1])

		if first.Total < 1000 && !second.Reused {
			t.Errorf("%q -> %q: expected cache reuse after unsampled result", pair[0], pair[1])
		}
		if first.Total > 1000 && second.Reused {
			t.Errorf("%q -> %q: must not reuse a capped sample", pair[0], pair[1])
		}
		if !reflect.DeepEqual(cityNames(second.Matches), cityNames(direct.Matches)) {
			t.Errorf("%q -> %q: reused matches differ from a direct scan (%d vs %d)",
				pair[0], pair[1], len(second.Matches), len(direct.Matches))
		}
		if !reflect.DeepEqual(second.Breakdown, direct.Breakdown) {
			t.Errorf("%q -> %q: breakdown differs from a direct scan", pair[0], pair[1])
		}
	}
}

func TestFilterReuseGuards(t *testing.T) {
	ds := NewDataset([]Record{
		{City: "Boston"}, {City: "Bostonia"}, {City: "Boston Heights"}, {City: "Bangor"},
	})

	t.Run("no reuse after exact mode", func(t *testing.T) {
		c := NewCache(ds)
		c.Filter(`"Boston"`)
		res := c.Filter("Boston")
		if res.Reused {
			t.Errorf("prefix after exact query must rescan the dataset")
		}
		if res.Total != 3 {
			t.Errorf("expected 3 matches for boston, got %d", res.Total)
		}
	})

	t.Run("no reuse when prefix shrinks", func(t *testing.T) {
		c := NewCache(ds)
		c.Filter("bost")
		res := c.Filter("b")
		if res.Reused || res.Total != 4 {
			t.Errorf("expected full rescan with 4 matches, got reused=%v total=%d", res.Reused, res.Total)
		}
	})

	t.Run("no reuse at cap", func(t *testing.T) {
		c := NewCache(ds, WithSampleCap(4))
		c.Filter("")
		if res := c.Filter("bo"); res.Reused {
			t.Errorf("a result sized at the cap must not be reused")
		}
	})

	t.Run("reuse after reset is off", func(t *testing.T) {
		c := NewCache(ds)
		c.Filter("b")
		c.Reset()
		if res := c.Filter("bo"); res.Reused {
			t.Errorf("reset cache must not be reused")
		}
		if c.LastPrefix() != "bo" {
			t.Errorf("expected last prefix bo, got %q", c.LastPrefix())
		}
	})
}

func TestCacheStatsAndReload(t *testing.T) {
	c := NewCache(smallDataset())
	c.Filter("b")
	c.Filter("bo")
	c.Filter("a")

	s := c.Stats()
	if s.Calls != 3 || s.Reuses != 1 || s.Scans != 2 {
		t.Errorf("unexpected stats: %+v", s)
	}
	if s.DatasetSize != 3 || s.IndexKeys != 3 {
		t.Errorf("unexpected dataset stats: %+v", s)
	}

	c.Reload(NewDataset([]Record{{City: "Denver"}}))
	if c.LastPrefix() != "" {
		t.Errorf("reload must reset the cache")
	}
	if res := c.Filter("d"); res.Total != 1 {
		t.Errorf("expected reloaded dataset to be filtered, got %d matches", res.Total)
	}
}

func TestNewCacheWithIndexSharesDataset(t *testing.T) {
	ds := smallDataset()
	ix := NewIndex(ds)
	a := NewCacheWithIndex(ds, ix)
	b := NewCacheWithIndex(ds, ix)

	a.Filter("bo")
	if b.LastPrefix() != "" {
		t.Errorf("caches sharing an index must keep separate state")
	}
	if res := b.Filter("a"); res.Total != 1 {
		t.Errorf("expected Austin, got %d matches", res.Total)
	}
}
