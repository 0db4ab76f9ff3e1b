// Package markers turns filtered city samples into map markers: begins-with
// class keys, a bubble radius scaled by sample size and GeoJSON output.
package markers

import (
	"math"
	"regexp"
	"strings"

	"github.com/bastiangx/cityserve/pkg/filter"
)

const (
	// DefaultMinRadius is the bubble radius at a full sample.
	DefaultMinRadius = 1
	// DefaultMaxRadius is the bubble radius for a single marker.
	DefaultMaxRadius = 9

	radiusExponent = 0.2
	spaceToken     = "-space-"
	exactWrap      = "__"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	parens        = regexp.MustCompile(`[()]`)
)

// Marker is one sampled city ready for a rendering layer.
type Marker struct {
	ID    string  `json:"id" msgpack:"id"`
	City  string  `json:"city" msgpack:"ci"`
	State string  `json:"state" msgpack:"st"`
	Lat   float64 `json:"lat" msgpack:"la"`
	Lng   float64 `json:"lng" msgpack:"lo"`
	Class string  `json:"class" msgpack:"k"`
}

// Label is the hover text for the marker, "City, ST".
func (m Marker) Label() string {
	if m.State == "" {
		return m.City
	}
	return m.City + ", " + m.State
}

// ClassName returns the begins-with key linking a city to its breakdown row.
// A city shorter than length is an exact match and comes back wrapped as __city__.
func ClassName(city string, length int) string {
	key, exact := filter.GroupKey(city, length)
	if exact {
		key = exactWrap + key + exactWrap
	}
	key = whitespaceRun.ReplaceAllString(key, spaceToken)
	return parens.ReplaceAllString(key, "")
}

// DisplayName reverses the class encoding for display: exact markers get
// quotes and the space token turns back into a space.
func DisplayName(class string) string {
	class = strings.ReplaceAll(class, exactWrap, `"`)
	return strings.ReplaceAll(class, spaceToken, " ")
}

// Radius maps the number of markers on screen to a bubble radius on a power
// scale (exponent 0.2) from [1, sampleCap] onto [maxR, minR]. n is clamped to
// the domain.
func Radius(n, sampleCap, minR, maxR int) int {
	if sampleCap <= 1 {
		return maxR
	}
	if n < 1 {
		n = 1
	}
	if n > sampleCap {
		n = sampleCap
	}
	lo := 1.0
	hi := math.Pow(float64(sampleCap), radiusExponent)
	t := (math.Pow(float64(n), radiusExponent) - lo) / (hi - lo)
	return int(math.Round(float64(maxR) + t*float64(minR-maxR)))
}

// FromSample builds markers for sample, keying each by the first prefixLen+1 runes.
func FromSample(sample []filter.Record, prefixLen int) []Marker {
	out := make([]Marker, len(sample))
	for i, r := range sample {
		out[i] = Marker{
			ID:    r.ID,
			City:  r.City,
			State: r.State,
			Lat:   r.Latitude,
			Lng:   r.Longitude,
			Class: ClassName(r.City, prefixLen+1),
		}
	}
	return out
}
