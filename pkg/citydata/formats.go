package citydata

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// Format identifies a city dataset file format.
type Format int

const (
	FormatUnknown Format = iota
	FormatCSV            // Tabular, header row + one city per line
	FormatJSON           // Compact JSON array of {id, la, lo, ci, st}
)

func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatJSON:
		return "json"
	}
	return "unknown"
}

// FormatInfo contains metadata about a dataset file format
type FormatInfo struct {
	Format      Format
	Description string
	Extensions  []string
	MinSize     int64 // Minimum expected file size in bytes
}

var supportedFormats = map[Format]FormatInfo{
	FormatCSV: {
		Format:      FormatCSV,
		Description: "CSV City Table",
		Extensions:  []string{".csv"},
		MinSize:     5, // "city\n"
	},
	FormatJSON: {
		Format:      FormatJSON,
		Description: "Compact JSON City List",
		Extensions:  []string{".json"},
		MinSize:     2, // "[]"
	},
}

// splitExt returns the data extension of filename and whether it is gzip compressed.
func splitExt(filename string) (string, bool) {
	lower := strings.ToLower(filename)
	gz := strings.HasSuffix(lower, ".gz")
	if gz {
		lower = strings.TrimSuffix(lower, ".gz")
	}
	return filepath.Ext(lower), gz
}

// ValidateFile checks if a file can hold a dataset in the expected format
func ValidateFile(filename string, expected Format) error {
	fileInfo, err := os.Stat(filename)
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", filename, err)
	}
	if fileInfo.IsDir() {
		return fmt.Errorf("%s is a directory", filename)
	}

	formatInfo, exists := GetFormatInfo(expected)
	if !exists {
		return fmt.Errorf("unknown format: %v", expected)
	}

	if fileInfo.Size() < formatInfo.MinSize {
		return fmt.Errorf("file %s is too small (%d bytes) for format %s (minimum: %d bytes)",
			filename, fileInfo.Size(), formatInfo.Description, formatInfo.MinSize)
	}

	ext, _ := splitExt(filename)
	validExt := false
	for _, validExtension := range formatInfo.Extensions {
		if ext == validExtension {
			validExt = true
			break
		}
	}
	if !validExt {
		return fmt.Errorf("file %s has invalid extension %s for format %s (expected: %v)",
			filename, ext, formatInfo.Description, formatInfo.Extensions)
	}

	log.Debugf("Dataset file %s validated as %s", filename, formatInfo.Description)
	return nil
}

// DetectFormat picks the format of a dataset file from its extension
func DetectFormat(filename string) (Format, error) {
	ext, _ := splitExt(filename)
	for format, info := range supportedFormats {
		for _, e := range info.Extensions {
			if e == ext {
				return format, nil
			}
		}
	}
	return FormatUnknown, fmt.Errorf("unable to detect format for file %s", filename)
}

// GetFormatInfo returns information about a specific format
func GetFormatInfo(format Format) (FormatInfo, bool) {
	info, exists := supportedFormats[format]
	return info, exists
}
