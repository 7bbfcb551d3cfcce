package domain

import "sort"

// DefaultKey is the attribute holding a record's primary key
const DefaultKey = "id"

// Record is an untyped attribute mapping as stored
type Record map[string]any

// Clone returns a deep copy of nested maps and slices
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

// Get returns the value for attr
func (r Record) Get(attr string) (any, bool) {
	v, ok := r[attr]
	return v, ok
}

// Keys returns attribute names in sorted order
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CloneRecords copies every record in rs
func CloneRecords(rs []Record) []Record {
	out := make([]Record, len(rs))
	for i, r := range rs {
		out[i] = r.Clone()
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Record:
		return t.Clone()
	case map[string]any:
		return map[string]any(Record(t).Clone())
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case []Record:
		return CloneRecords(t)
	default:
		return v
	}
}
