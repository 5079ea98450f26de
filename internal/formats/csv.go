package formats

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"infinite-experiment/edigate/internal/constants"
	"infinite-experiment/edigate/internal/models/dtos"
)

// ParseCSV reads a header line followed by data records. Short records leave
// the missing columns empty; extra cells beyond the header are ignored. Only
// empty physical lines are skipped; a quoted "" is an empty record.
func ParseCSV(content []byte) ([]dtos.Row, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(content, []byte("\ufeff"))))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, csvError(err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []dtos.Row
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvError(err)
		}
		row := make(dtos.Row, len(header))
		for i, col := range header {
			if col == "" {
				continue
			}
			if i < len(record) {
				row[col] = record[i]
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func csvError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &ParseError{Format: constants.FormatCSV, Line: pe.Line, Err: pe.Err}
	}
	return &ParseError{Format: constants.FormatCSV, Err: err}
}

// GenerateCSV writes rows under a header of the sorted union of their keys.
// Fields containing a comma, quote or newline are quoted with doubled quotes.
func GenerateCSV(rows []dtos.Row) ([]byte, error) {
	return GenerateCSVColumns(rows, columns(rows))
}

// GenerateCSVColumns writes rows under an explicit header
func GenerateCSVColumns(rows []dtos.Row, cols []string) ([]byte, error) {
	if len(cols) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(cols); err != nil {
		return nil, err
	}
	record := make([]string, len(cols))
	for _, row := range rows {
		for i, c := range cols {
			record[i] = row[c]
		}
		if len(record) == 1 && record[0] == "" {
			// a bare empty field would be a blank line, which readers skip
			w.Flush()
			buf.WriteString("\"\"\n")
			continue
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
