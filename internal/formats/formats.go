// Package formats reads and writes the flat row formats partners exchange
// besides X12: CSV, a flat XML document and JSON arrays.
package formats

import (
	"bytes"
	"fmt"
	"path"
	"sort"
	"strings"

	"infinite-experiment/edigate/internal/constants"
	"infinite-experiment/edigate/internal/models/dtos"
)

// ParseError is a format error in partner supplied content
type ParseError struct {
	Format constants.DocumentFormat
	Line   int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("invalid %s content at line %d: %v", e.Format, e.Line, e.Err)
	}
	return fmt.Sprintf("invalid %s content: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// DetectFormat classifies a file by extension: xml, json, edi/x12, everything else csv
func DetectFormat(filename string) constants.DocumentFormat {
	switch strings.ToLower(strings.TrimPrefix(path.Ext(filename), ".")) {
	case "xml":
		return constants.FormatXML
	case "json":
		return constants.FormatJSON
	case "edi", "x12":
		return constants.FormatX12
	default:
		return constants.FormatCSV
	}
}

// SniffFormat classifies content by its leading bytes. ok is false when
// nothing recognizable was found and the caller should keep its own guess.
func SniffFormat(content []byte) (constants.DocumentFormat, bool) {
	trimmed := bytes.TrimLeft(content, "\ufeff \t\r\n")
	switch {
	case bytes.HasPrefix(trimmed, []byte("ISA")):
		return constants.FormatX12, true
	case bytes.HasPrefix(trimmed, []byte("<")):
		return constants.FormatXML, true
	case bytes.HasPrefix(trimmed, []byte("[")), bytes.HasPrefix(trimmed, []byte("{")):
		return constants.FormatJSON, true
	}
	return "", false
}

// Parse dispatches to the flat format readers. X12 is handled by the x12 package.
func Parse(format constants.DocumentFormat, content []byte) ([]dtos.Row, error) {
	switch format {
	case constants.FormatCSV:
		return ParseCSV(content)
	case constants.FormatXML:
		return ParseXML(content)
	case constants.FormatJSON:
		return ParseJSON(content)
	default:
		return nil, fmt.Errorf("format %q is not a flat row format", format)
	}
}

// Generate dispatches to the flat format writers
func Generate(format constants.DocumentFormat, rows []dtos.Row) ([]byte, error) {
	switch format {
	case constants.FormatCSV:
		return GenerateCSV(rows)
	case constants.FormatXML:
		return GenerateXML(rows)
	case constants.FormatJSON:
		return GenerateJSON(rows)
	default:
		return nil, fmt.Errorf("format %q is not a flat row format", format)
	}
}

// columns returns the sorted union of keys over all rows
func columns(rows []dtos.Row) []string {
	seen := make(map[string]struct{})
	for _, r := range rows {
		for k := range r {
			seen[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}
