// Package mapping translates between partner field names and the canonical
// field names used by the codecs and the ERP bridge.
package mapping

import (
	"fmt"

	"infinite-experiment/edigate/internal/models/dtos"
	gormModels "infinite-experiment/edigate/internal/models/gorm"
)

// Rule maps SourceField (partner side) to TargetField (canonical side)
type Rule struct {
	SourceField  string
	TargetField  string
	Transform    Transform
	DefaultValue *string
}

// Mapper applies an ordered rule set. A mapper without rules passes rows through.
type Mapper struct {
	rules []Rule
}

// NewMapper builds a mapper from stored rules, resolving transform names once
func NewMapper(records []gormModels.EdiFieldMapping) (*Mapper, error) {
	rules := make([]Rule, 0, len(records))
	for _, rec := range records {
		if rec.SourceField == "" || rec.TargetField == "" {
			return nil, fmt.Errorf("mapping rule %s: source and target fields are required", rec.ID)
		}
		t, err := ParseTransform(rec.Transform)
		if err != nil {
			return nil, fmt.Errorf("mapping rule %s -> %s: %w", rec.SourceField, rec.TargetField, err)
		}
		rules = append(rules, Rule{
			SourceField:  rec.SourceField,
			TargetField:  rec.TargetField,
			Transform:    t,
			DefaultValue: rec.DefaultValue,
		})
	}
	return &Mapper{rules: rules}, nil
}

// NewMapperFromRules wraps already resolved rules
func NewMapperFromRules(rules ...Rule) *Mapper {
	return &Mapper{rules: rules}
}

// Empty reports whether the mapper has no rules
func (m *Mapper) Empty() bool {
	return m == nil || len(m.rules) == 0
}

// Rules returns a copy of the rule list
func (m *Mapper) Rules() []Rule {
	if m == nil {
		return nil
	}
	return append([]Rule(nil), m.rules...)
}

// Apply maps a partner row to canonical names. Fields without a rule are
// dropped. An empty source falls back to the default or is skipped.
func (m *Mapper) Apply(row dtos.Row) dtos.Row {
	if m.Empty() {
		return row.Clone()
	}
	out := make(dtos.Row, len(m.rules))
	for _, r := range m.rules {
		v, ok := pick(row, r.SourceField, r.DefaultValue)
		if !ok {
			continue
		}
		out[r.TargetField] = r.Transform.Apply(v)
	}
	return out
}

// Reverse maps a canonical row back to partner names. Only the text
// transforms are applied; defaults populate missing fields as on the way in.
func (m *Mapper) Reverse(row dtos.Row) dtos.Row {
	if m.Empty() {
		return row.Clone()
	}
	out := make(dtos.Row, len(m.rules))
	for _, r := range m.rules {
		v, ok := pick(row, r.TargetField, r.DefaultValue)
		if !ok {
			continue
		}
		if r.Transform.Reversible() {
			v = r.Transform.Apply(v)
		}
		out[r.SourceField] = v
	}
	return out
}

// ApplyRows maps every row forward
func (m *Mapper) ApplyRows(rows []dtos.Row) []dtos.Row {
	out := make([]dtos.Row, len(rows))
	for i, r := range rows {
		out[i] = m.Apply(r)
	}
	return out
}

// ReverseRows maps every row back to partner names
func (m *Mapper) ReverseRows(rows []dtos.Row) []dtos.Row {
	out := make([]dtos.Row, len(rows))
	for i, r := range rows {
		out[i] = m.Reverse(r)
	}
	return out
}

func pick(row dtos.Row, field string, def *string) (string, bool) {
	if v := row[field]; v != "" {
		return v, true
	}
	if def != nil {
		return *def, true
	}
	return "", false
}
