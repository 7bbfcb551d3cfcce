// Package query composes filter, sort, limit and offset stages over a
// collection's live snapshot.
//
// A Query is built per read and discarded. Stages run only when All (or
// one of the helpers built on it) is called, so a query built before a
// write still sees that write.
package query

import (
	"context"
	"slices"

	"rowmap/internal/domain"
)

// Source is anything that can hand out its current records in insertion order
type Source interface {
	All(ctx context.Context) ([]domain.Record, error)
}

type stage func([]domain.Record) []domain.Record

// Query holds ordered conditions (filters and sorts) and modifiers
// (limit and offset). Builder methods mutate and return the receiver.
type Query struct {
	source     Source
	conditions []stage
	modifiers  []stage
}

// New creates an empty query over source
func New(source Source) *Query {
	return &Query{source: source}
}

// Where appends an equality filter
func (q *Query) Where(attr string, value any) *Query {
	q.conditions = append(q.conditions, func(in []domain.Record) []domain.Record {
		return filter(in, func(r domain.Record) bool {
			v, ok := r[attr]
			return ok && Equal(v, value)
		})
	})
	return q
}

// And is an alias of Where
func (q *Query) And(attr string, value any) *Query {
	return q.Where(attr, value)
}

// Or is an alias of Where. It narrows like Where does; there is no
// disjunction.
func (q *Query) Or(attr string, value any) *Query {
	return q.Where(attr, value)
}

// Exclude appends a filter dropping records whose attr equals value
func (q *Query) Exclude(attr string, value any) *Query {
	q.conditions = append(q.conditions, func(in []domain.Record) []domain.Record {
		return filter(in, func(r domain.Record) bool {
			v, ok := r[attr]
			return !ok || !Equal(v, value)
		})
	})
	return q
}

// Order appends a stable ascending sort on attr
func (q *Query) Order(attr string) *Query {
	q.conditions = append(q.conditions, sortBy(attr, 1))
	return q
}

// Asc is an alias of Order
func (q *Query) Asc(attr string) *Query {
	return q.Order(attr)
}

// Desc appends a stable descending sort on attr
func (q *Query) Desc(attr string) *Query {
	q.conditions = append(q.conditions, sortBy(attr, -1))
	return q
}

// Limit appends "keep the first n" to the modifiers
func (q *Query) Limit(n int) *Query {
	n = max(n, 0)
	q.modifiers = append(q.modifiers, func(in []domain.Record) []domain.Record {
		if n >= len(in) {
			return in
		}
		return in[:n]
	})
	return q
}

// Offset prepends "keep the last n" to the modifiers, so a Limit added
// afterwards works on the already trimmed tail.
func (q *Query) Offset(n int) *Query {
	n = max(n, 0)
	keepLast := func(in []domain.Record) []domain.Record {
		if n >= len(in) {
			return in
		}
		return in[len(in)-n:]
	}
	q.modifiers = append([]stage{keepLast}, q.modifiers...)
	return q
}

// All loads the source snapshot and runs conditions, then modifiers
func (q *Query) All(ctx context.Context) ([]domain.Record, error) {
	records, err := q.source.All(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range q.conditions {
		records = c(records)
	}
	for _, m := range q.modifiers {
		records = m(records)
	}
	if records == nil {
		records = []domain.Record{}
	}
	return records, nil
}

// First returns the first result, or nil
func (q *Query) First(ctx context.Context) (domain.Record, error) {
	records, err := q.All(ctx)
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return records[0], nil
}

// Last returns the last result, or nil
func (q *Query) Last(ctx context.Context) (domain.Record, error) {
	records, err := q.All(ctx)
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return records[len(records)-1], nil
}

// Count returns the number of results
func (q *Query) Count(ctx context.Context) (int, error) {
	records, err := q.All(ctx)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// Exists reports whether the query has any result
func (q *Query) Exists(ctx context.Context) (bool, error) {
	n, err := q.Count(ctx)
	return n > 0, err
}

// Select returns the results projected onto attrs. Missing attributes are omitted.
func (q *Query) Select(ctx context.Context, attrs ...string) ([]domain.Record, error) {
	records, err := q.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Record, len(records))
	for i, r := range records {
		projected := make(domain.Record, len(attrs))
		for _, a := range attrs {
			if v, ok := r[a]; ok {
				projected[a] = v
			}
		}
		out[i] = projected
	}
	return out, nil
}

// Pluck returns the values of attr across the results, nil where missing
func (q *Query) Pluck(ctx context.Context, attr string) ([]any, error) {
	records, err := q.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(records))
	for i, r := range records {
		out[i] = r[attr]
	}
	return out, nil
}

func filter(in []domain.Record, keep func(domain.Record) bool) []domain.Record {
	out := make([]domain.Record, 0, len(in))
	for _, r := range in {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func sortBy(attr string, direction int) stage {
	return func(in []domain.Record) []domain.Record {
		out := slices.Clone(in)
		slices.SortStableFunc(out, func(a, b domain.Record) int {
			return direction * Compare(a[attr], b[attr])
		})
		return out
	}
}
