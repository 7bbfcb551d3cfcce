package codec

import (
	"context"
	"encoding/json"

	"rowmap/internal/domain"
	"rowmap/internal/errors"
	"rowmap/internal/repository"
)

// OpenFunc returns the backend for a collection name
type OpenFunc func(name string) (repository.Backend, error)

// Seed creates every fixture record, collection by collection in name
// order, and reports how many records each collection received
func Seed(ctx context.Context, fixtures Fixtures, open OpenFunc) (map[string]int, error) {
	counts := make(map[string]int, len(fixtures))
	for _, name := range fixtures.Names() {
		backend, err := open(name)
		if err != nil {
			return counts, errors.Wrapf(err, "open %s", name)
		}
		for i, record := range fixtures[name] {
			if _, err := backend.Create(ctx, record); err != nil {
				return counts, errors.Wrapf(err, "seed %s record %d", name, i)
			}
			counts[name]++
		}
	}
	return counts, nil
}

// Dump reads the named collections into fixtures
func Dump(ctx context.Context, names []string, open OpenFunc) (Fixtures, error) {
	fixtures := make(Fixtures, len(names))
	for _, name := range names {
		backend, err := open(name)
		if err != nil {
			return nil, errors.Wrapf(err, "open %s", name)
		}
		records, err := backend.All(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "dump %s", name)
		}
		fixtures[name] = records
	}
	return fixtures, nil
}

// normalizeFixtures turns json.Number values into int64 or float64 so
// YAML writes them as numbers rather than quoted strings
func normalizeFixtures(fixtures Fixtures) Fixtures {
	out := make(Fixtures, len(fixtures))
	for name, records := range fixtures {
		normalized := make([]domain.Record, len(records))
		for i, r := range records {
			normalized[i] = normalizeValue(r).(domain.Record)
		}
		out[name] = normalized
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return string(t)
	case domain.Record:
		out := make(domain.Record, len(t))
		for k, item := range t {
			out[k] = normalizeValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = normalizeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalizeValue(item)
		}
		return out
	}
	return v
}
