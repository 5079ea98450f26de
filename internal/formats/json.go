package formats

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"infinite-experiment/edigate/internal/constants"
	"infinite-experiment/edigate/internal/models/dtos"
)

// ParseJSON accepts an array of flat objects, an object with a "rows" array,
// or a single object. Scalars are stringified, nulls dropped and nested
// values kept as compact JSON text.
func ParseJSON(content []byte) ([]dtos.Row, error) {
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()

	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, &ParseError{Format: constants.FormatJSON, Err: err}
	}

	var items []interface{}
	switch v := raw.(type) {
	case []interface{}:
		items = v
	case map[string]interface{}:
		if nested, ok := v["rows"].([]interface{}); ok {
			items = nested
		} else {
			items = []interface{}{v}
		}
	default:
		return nil, &ParseError{Format: constants.FormatJSON, Err: errors.New("expected an array of objects")}
	}

	rows := make([]dtos.Row, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, &ParseError{Format: constants.FormatJSON, Err: fmt.Errorf("element %d is not an object", i)}
		}
		row := make(dtos.Row, len(obj))
		for k, val := range obj {
			switch s := val.(type) {
			case nil:
				continue
			case string:
				row[k] = s
			case json.Number:
				row[k] = s.String()
			case bool:
				if s {
					row[k] = "true"
				} else {
					row[k] = "false"
				}
			default:
				b, err := json.Marshal(s)
				if err != nil {
					return nil, &ParseError{Format: constants.FormatJSON, Err: err}
				}
				row[k] = string(b)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// GenerateJSON writes rows as an indented array of string-valued objects
func GenerateJSON(rows []dtos.Row) ([]byte, error) {
	if rows == nil {
		rows = []dtos.Row{}
	}
	return json.MarshalIndent(rows, "", "  ")
}
