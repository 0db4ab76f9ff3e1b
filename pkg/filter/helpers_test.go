package filter

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"
)

func testRand() *rand.Rand {
	return rand.New(rand.NewPCG(7, 11))
}

func smallDataset() Dataset {
	return NewDataset([]Record{
		{ID: "1", City: "Boston", State: "MA", Latitude: 42.36, Longitude: -71.06},
		{ID: "2", City: "Bangor", State: "ME", Latitude: 44.80, Longitude: -68.77},
		{ID: "3", City: "Austin", State: "TX", Latitude: 30.27, Longitude: -97.74},
	})
}

// syntheticDataset builds n cities spread over the given name stems.
func syntheticDataset(n int, stems ...string) Dataset {
	records := make([]Record, n)
	for i := range records {
		stem := stems[i%len(stems)]
		records[i] = Record{
			ID:        fmt.Sprintf("c%d", i),
			City:      fmt.Sprintf("%s%05d", stem, i),
			State:     "ZZ",
			Latitude:  30 + float64(i%10),
			Longitude: -90 - float64(i%10),
		}
	}
	return NewDataset(records)
}

func assertSubsetNoDuplicates(t *testing.T, sample []Record, ds Dataset) {
	t.Helper()
	seen := make(map[int]bool, len(sample))
	for _, r := range sample {
		if r.Pos < 0 || r.Pos >= len(ds) {
			t.Fatalf("record %q has foreign position %d", r.City, r.Pos)
		}
		if ds[r.Pos].City != r.City || ds[r.Pos].ID != r.ID {
			t.Fatalf("record %q does not belong to the dataset", r.City)
		}
		if seen[r.Pos] {
			t.Fatalf("record %q sampled twice", r.City)
		}
		seen[r.Pos] = true
	}
}

func assertAllMatch(t *testing.T, q Query, records []Record) {
	t.Helper()
	for _, r := range records {
		lower := strings.ToLower(r.City)
		if q.Exact() && lower != q.Prefix {
			t.Fatalf("%q does not equal %q", r.City, q.Prefix)
		}
		if !q.Exact() && !strings.HasPrefix(lower, q.Prefix) {
			t.Fatalf("%q does not begin with %q", r.City, q.Prefix)
		}
	}
}

func cityNames(records []Record) []string {
	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r.City
	}
	return names
}
