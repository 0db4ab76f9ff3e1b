package markers

import (
	"fmt"

	geojson "github.com/paulmach/go.geojson"
)

// FeatureCollection converts markers into GeoJSON point features.
// Coordinates are [lng, lat] as GeoJSON requires.
func FeatureCollection(markers []Marker) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, m := range markers {
		f := geojson.NewPointFeature([]float64{m.Lng, m.Lat})
		f.ID = m.ID
		f.SetProperty("id", m.ID)
		f.SetProperty("city", m.City)
		f.SetProperty("state", m.State)
		f.SetProperty("class", m.Class)
		f.SetProperty("label", m.Label())
		fc.AddFeature(f)
	}
	return fc
}

// MarshalGeoJSON encodes markers as a GeoJSON FeatureCollection document.
func MarshalGeoJSON(markers []Marker) ([]byte, error) {
	data, err := FeatureCollection(markers).MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to encode geojson: %w", err)
	}
	return data, nil
}

// ParseGeoJSON reads markers back from a FeatureCollection. Non-point
// features are skipped.
func ParseGeoJSON(data []byte) ([]Marker, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode geojson: %w", err)
	}
	out := make([]Marker, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f.Geometry == nil || !f.Geometry.IsPoint() || len(f.Geometry.Point) < 2 {
			continue
		}
		out = append(out, Marker{
			ID:    f.PropertyMustString("id", ""),
			City:  f.PropertyMustString("city", ""),
			State: f.PropertyMustString("state", ""),
			Class: f.PropertyMustString("class", ""),
			Lng:   f.Geometry.Point[0],
			Lat:   f.Geometry.Point[1],
		})
	}
	return out, nil
}
