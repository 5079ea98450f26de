package mapping

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Transform is the closed set of value coercions a rule may apply
type Transform int

const (
	TransformNone Transform = iota
	TransformTrim
	TransformUpper
	TransformLower
	TransformToNumber
	TransformToDate
	TransformToBoolean
)

var transformNames = map[Transform]string{
	TransformNone:      "",
	TransformTrim:      "trim",
	TransformUpper:     "uppercase",
	TransformLower:     "lowercase",
	TransformToNumber:  "number",
	TransformToDate:    "date",
	TransformToBoolean: "boolean",
}

// ParseTransform resolves a stored transform name. Unknown names are an error
// so a bad rule set is rejected when the mapper is built, not per row.
func ParseTransform(name string) (Transform, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return TransformNone, nil
	case "trim":
		return TransformTrim, nil
	case "uppercase", "upper":
		return TransformUpper, nil
	case "lowercase", "lower":
		return TransformLower, nil
	case "number", "numeric":
		return TransformToNumber, nil
	case "date":
		return TransformToDate, nil
	case "boolean", "bool":
		return TransformToBoolean, nil
	}
	return TransformNone, fmt.Errorf("unknown transform %q", name)
}

func (t Transform) String() string {
	return transformNames[t]
}

// Reversible reports whether the transform is applied on the outbound path.
// Numeric, date and boolean coercions only run inbound.
func (t Transform) Reversible() bool {
	switch t {
	case TransformNone, TransformTrim, TransformUpper, TransformLower:
		return true
	}
	return false
}

// Apply coerces one value
func (t Transform) Apply(v string) string {
	switch t {
	case TransformTrim:
		return strings.TrimSpace(v)
	case TransformUpper:
		return strings.ToUpper(v)
	case TransformLower:
		return strings.ToLower(v)
	case TransformToNumber:
		return toNumber(v)
	case TransformToDate:
		return toISODate(v)
	case TransformToBoolean:
		return toBoolean(v)
	}
	return v
}

func toNumber(v string) string {
	cleaned := strings.ReplaceAll(strings.TrimSpace(v), ",", "")
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return "0"
	}
	return d.String()
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"20060102",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
}

// toISODate truncates a date or timestamp to YYYY-MM-DD. Unparseable values
// are returned unchanged.
func toISODate(v string) string {
	s := strings.TrimSpace(v)
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.Format("2006-01-02")
		}
	}
	return v
}

func toBoolean(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes", "y":
		return "true"
	}
	return "false"
}
