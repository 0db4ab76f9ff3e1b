package markers

import (
	"strings"
	"testing"

	"github.com/bastiangx/cityserve/pkg/filter"
)

func TestClassName(t *testing.T) {
	testCases := []struct {
		city     string
		length   int
		expected string
	}{
		{"Boston", 4, "bost"},
		{"BOSTON", 1, "b"},
		{"Bos", 4, "__bos__"},
		{"San Jose", 5, "san-space-j"},
		{"Lake  Forest", 6, "lake-space-"},
		{"Ft (X)", 20, "__ft-space-x__"},
		{"(Old) Town", 4, "old"},
	}
	for _, tc := range testCases {
		t.Run(tc.city, func(t *testing.T) {
			if got := ClassName(tc.city, tc.length); got != tc.expected {
				t.Errorf("ClassName(%q, %d): expected %q, got %q", tc.city, tc.length, tc.expected, got)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	testCases := map[string]string{
		"__bos__":     `"bos"`,
		"san-space-j": "san j",
		"bost":        "bost",
	}
	for class, expected := range testCases {
		if got := DisplayName(class); got != expected {
			t.Errorf("DisplayName(%q): expected %q, got %q", class, expected, got)
		}
	}
}

func TestRadius(t *testing.T) {
	testCases := []struct {
		n, cap   int
		expected int
	}{
		{1, 5000, DefaultMaxRadius},
		{0, 5000, DefaultMaxRadius},
		{5000, 5000, DefaultMinRadius},
		{9000, 5000, DefaultMinRadius},
		{32, 5000, 7},
		{10, 1, DefaultMaxRadius},
	}
	for _, tc := range testCases {
		got := Radius(tc.n, tc.cap, DefaultMinRadius, DefaultMaxRadius)
		if got != tc.expected {
			t.Errorf("Radius(%d, %d): expected %d, got %d", tc.n, tc.cap, tc.expected, got)
		}
	}

	prev := DefaultMaxRadius + 1
	for n := 1; n <= 5000; n *= 2 {
		r := Radius(n, 5000, DefaultMinRadius, DefaultMaxRadius)
		if r > prev {
			t.Errorf("radius must not grow with n: n=%d r=%d prev=%d", n, r, prev)
		}
		prev = r
	}
}

func sampleRecords() []filter.Record {
	return filter.NewDataset([]filter.Record{
		{ID: "1", City: "Boston", State: "MA", Latitude: 42.36, Longitude: -71.06},
		{ID: "2", City: "Bos", State: "", Latitude: 10, Longitude: 20},
	})
}

func TestFromSample(t *testing.T) {
	ms := FromSample(sampleRecords(), 3)
	if len(ms) != 2 {
		t.Fatalf("expected 2 markers, got %d", len(ms))
	}
	if ms[0].Class != "bost" || ms[1].Class != "__bos__" {
		t.Errorf("unexpected classes: %q %q", ms[0].Class, ms[1].Class)
	}
	if ms[0].Lat != 42.36 || ms[0].Lng != -71.06 || ms[0].ID != "1" {
		t.Errorf("fields not carried over: %+v", ms[0])
	}
	if ms[0].Label() != "Boston, MA" || ms[1].Label() != "Bos" {
		t.Errorf("unexpected labels: %q %q", ms[0].Label(), ms[1].Label())
	}
}

func TestGeoJSONRoundTrip(t *testing.T) {
	ms := FromSample(sampleRecords(), 3)
	data, err := MarshalGeoJSON(ms)
	if err != nil {
		t.Fatalf("MarshalGeoJSON failed: %v", err)
	}
	doc := string(data)
	if !strings.Contains(doc, `"FeatureCollection"`) || !strings.Contains(doc, `[-71.06,42.36]`) {
		t.Errorf("unexpected document: %s", doc)
	}

	back, err := ParseGeoJSON(data)
	if err != nil {
		t.Fatalf("ParseGeoJSON failed: %v", err)
	}
	if len(back) != len(ms) {
		t.Fatalf("expected %d markers, got %d", len(ms), len(back))
	}
	for i := range ms {
		if back[i] != ms[i] {
			t.Errorf("marker %d: expected %+v, got %+v", i, ms[i], back[i])
		}
	}
}

func TestGeoJSONEmpty(t *testing.T) {
	data, err := MarshalGeoJSON(nil)
	if err != nil {
		t.Fatalf("MarshalGeoJSON failed: %v", err)
	}
	back, err := ParseGeoJSON(data)
	if err != nil || len(back) != 0 {
		t.Errorf("expected empty collection, got %v (%v)", back, err)
	}
	if _, err := ParseGeoJSON([]byte("not json")); err == nil {
		t.Errorf("expected decode error")
	}
}
