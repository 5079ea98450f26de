package dtos

import "sort"

// Row is one flat record flowing between the codecs and the field mapper.
// Partner field sets are open-ended, so the codec side stays untyped.
type Row map[string]string

// Get returns the value for key, or "" when absent
func (r Row) Get(key string) string {
	return r[key]
}

// Has reports whether key is present with a non-empty value
func (r Row) Has(key string) bool {
	return r[key] != ""
}

// Clone returns a shallow copy of the row
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Keys returns the row keys in sorted order
func (r Row) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CloneRows deep-copies a row slice
func CloneRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}
