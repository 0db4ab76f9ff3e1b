// Package citydata loads the city dataset from CSV or compact JSON files.
package citydata

import (
	"bufio"
	"compress/gzip"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	geohash "github.com/TomiHiltunen/geohash-golang"
	"github.com/bastiangx/cityserve/pkg/filter"
	"github.com/charmbracelet/log"
	"github.com/golang/geo/s2"
)

// geohashIDLength is the geohash precision used for derived ids (~5m cells).
const geohashIDLength = 9

// ErrNoCityColumn is returned when a CSV header has no city column.
var ErrNoCityColumn = errors.New("missing city column")

// LoadStats describes one load.
type LoadStats struct {
	Format  Format
	Rows    int
	Loaded  int
	Skipped int
}

// compactRow is the short-keyed JSON layout used to keep the file small.
type compactRow struct {
	ID any     `json:"id"`
	La float64 `json:"la"`
	Lo float64 `json:"lo"`
	Ci string  `json:"ci"`
	St string  `json:"st"`
}

var columnAliases = map[string][]string{
	"id":        {"id"},
	"city":      {"city", "ci", "name"},
	"state":     {"state", "st"},
	"latitude":  {"latitude", "lat", "la"},
	"longitude": {"longitude", "lng", "lon", "lo"},
}

// Load reads the dataset at path, detecting the format from the extension.
func Load(path string) (filter.Dataset, LoadStats, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, LoadStats{}, err
	}
	if err := ValidateFile(path, format); err != nil {
		return nil, LoadStats{}, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("failed to open dataset %s: %w", path, err)
	}
	defer file.Close()

	var r io.Reader = bufio.NewReader(file)
	if _, gz := splitExt(path); gz {
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, LoadStats{}, fmt.Errorf("failed to open gzip stream %s: %w", path, err)
		}
		defer zr.Close()
		r = zr
	}

	ds, stats, err := LoadReader(r, format)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to load dataset %s: %w", path, err)
	}
	log.Debugf("Loaded %d cities from %s (%d rows, %d skipped)", stats.Loaded, path, stats.Rows, stats.Skipped)
	return ds, stats, nil
}

// LoadReader parses a dataset stream in the given format.
func LoadReader(r io.Reader, format Format) (filter.Dataset, LoadStats, error) {
	switch format {
	case FormatCSV:
		return loadCSV(r)
	case FormatJSON:
		return loadJSON(r)
	}
	return nil, LoadStats{Format: format}, fmt.Errorf("unsupported format: %v", format)
}

func loadCSV(r io.Reader) (filter.Dataset, LoadStats, error) {
	stats := LoadStats{Format: FormatCSV}
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return filter.NewDataset(nil), stats, nil
		}
		return nil, stats, fmt.Errorf("failed to read header: %w", err)
	}
	columns := mapColumns(header)
	cityCol, ok := columns["city"]
	if !ok {
		return nil, stats, ErrNoCityColumn
	}

	field := func(row []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []filter.Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("failed to read row %d: %w", stats.Rows+1, err)
		}
		stats.Rows++

		if cityCol >= len(row) {
			log.Warnf("Skipping row %d: no city field", stats.Rows)
			stats.Skipped++
			continue
		}
		lat, latErr := parseCoordinate(field(row, "latitude"))
		lng, lngErr := parseCoordinate(field(row, "longitude"))
		if latErr != nil || lngErr != nil {
			log.Warnf("Skipping row %d: invalid coordinates (%v, %v)", stats.Rows, latErr, lngErr)
			stats.Skipped++
			continue
		}

		rec, ok := buildRecord(field(row, "id"), strings.TrimSpace(row[cityCol]), field(row, "state"), lat, lng, stats.Rows)
		if !ok {
			stats.Skipped++
			continue
		}
		records = append(records, rec)
	}

	stats.Loaded = len(records)
	return filter.NewDataset(records), stats, nil
}

func loadJSON(r io.Reader) (filter.Dataset, LoadStats, error) {
	stats := LoadStats{Format: FormatJSON}
	var rows []compactRow
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, stats, fmt.Errorf("failed to decode compact json: %w", err)
	}

	records := make([]filter.Record, 0, len(rows))
	for _, row := range rows {
		stats.Rows++
		rec, ok := buildRecord(formatID(row.ID), strings.TrimSpace(row.Ci), strings.TrimSpace(row.St), row.La, row.Lo, stats.Rows)
		if !ok {
			stats.Skipped++
			continue
		}
		records = append(records, rec)
	}

	stats.Loaded = len(records)
	return filter.NewDataset(records), stats, nil
}

// buildRecord validates one row and derives its id when missing.
func buildRecord(id, city, state string, lat, lng float64, row int) (filter.Record, bool) {
	if city == "" {
		log.Warnf("Skipping row %d: empty city", row)
		return filter.Record{}, false
	}
	if !s2.LatLngFromDegrees(lat, lng).IsValid() {
		log.Warnf("Skipping row %d (%s): coordinates out of range (%v, %v)", row, city, lat, lng)
		return filter.Record{}, false
	}
	if id == "" {
		id = DeriveID(lat, lng, row)
	}
	return filter.Record{
		ID:        id,
		City:      city,
		State:     state,
		Latitude:  lat,
		Longitude: lng,
	}, true
}

// DeriveID builds a stable identifier from the location and the source row.
func DeriveID(lat, lng float64, row int) string {
	hash := geohash.Encode(lat, lng)
	if len(hash) > geohashIDLength {
		hash = hash[:geohashIDLength]
	}
	return hash + "-" + strconv.Itoa(row)
}

func mapColumns(header []string) map[string]int {
	columns := make(map[string]int)
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		for canonical, aliases := range columnAliases {
			if _, seen := columns[canonical]; seen {
				continue
			}
			for _, alias := range aliases {
				if name == alias {
					columns[canonical] = i
					break
				}
			}
		}
	}
	return columns
}

func parseCoordinate(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func formatID(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(id)
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return fmt.Sprint(id)
	}
}
