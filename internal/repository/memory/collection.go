// Package memory provides the embedded in-memory storage engine.
//
// A Collection keeps an immutable snapshot of its records behind an atomic
// pointer. Writers serialize on one mutex per collection, copy the
// snapshot, change the copy and swap it in; readers load the current
// snapshot without blocking writers. Nothing is durable.
package memory

import (
	"context"
	"slices"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"rowmap/internal/domain"
	"rowmap/internal/errors"
	"rowmap/internal/logger"
	"rowmap/internal/repository"
	"rowmap/internal/repository/query"
)

var _ repository.Backend = (*Collection)(nil)

// snapshot is never mutated once published
type snapshot struct {
	keys    []int64
	records map[int64]domain.Record
}

var emptySnapshot = &snapshot{records: map[int64]domain.Record{}}

// Collection is an id-keyed record store plus key generator for one entity kind
type Collection struct {
	name string
	key  string
	log  *zap.SugaredLogger

	mu   sync.Mutex
	gen  *KeyGenerator
	snap atomic.Pointer[snapshot]
}

// Option configures a Collection
type Option func(*Collection)

// WithKey sets the primary key attribute (default "id")
func WithKey(attr string) Option {
	return func(c *Collection) { c.key = attr }
}

// WithLogger sets the logger used for mutations
func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Collection) { c.log = l }
}

// New creates an empty collection
func New(name string, opts ...Option) *Collection {
	c := &Collection{
		name: name,
		key:  domain.DefaultKey,
		gen:  NewKeyGenerator(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = logger.OrNop(c.log)
	c.snap.Store(emptySnapshot)
	return c
}

// Name returns the collection name
func (c *Collection) Name() string { return c.name }

// Key returns the primary key attribute
func (c *Collection) Key() string { return c.key }

// Create assigns the next key, stores a copy of record and returns it.
// A caller-supplied key is honoured only if it was never issued before.
func (c *Collection) Create(ctx context.Context, record domain.Record) (domain.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur := c.snap.Load()
	stored := record.Clone()
	if stored == nil {
		stored = domain.Record{}
	}

	var id int64
	if raw, ok := stored[c.key]; ok && raw != nil {
		k, valid := repository.KeyOf(raw)
		if !valid {
			return nil, errors.Wrapf(repository.ErrInvalidKey, "%s: create with key %v", c.name, raw)
		}
		if _, exists := cur.records[k]; exists || k <= c.gen.Current() {
			return nil, errors.WithStack(&domain.DuplicateKeyError{Collection: c.name, Key: k})
		}
		c.gen.Advance(k)
		id = k
	} else {
		id = c.gen.Next()
	}
	stored[c.key] = id

	next := &snapshot{
		keys:    append(slices.Clip(cur.keys), id),
		records: copyRecords(cur.records, 1),
	}
	next.records[id] = stored
	c.snap.Store(next)

	c.log.Debugw("Record created", "collection", c.name, "key", id)
	return stored.Clone(), nil
}

// Update overwrites the stored record at record's key
func (c *Collection) Update(ctx context.Context, record domain.Record) (domain.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur := c.snap.Load()
	raw := record[c.key]
	id, ok := repository.KeyOf(raw)
	if !ok {
		return nil, errors.WithStack(&domain.RecordNotFoundError{Collection: c.name, Key: raw})
	}
	if _, exists := cur.records[id]; !exists {
		return nil, errors.WithStack(&domain.RecordNotFoundError{Collection: c.name, Key: id})
	}

	stored := record.Clone()
	stored[c.key] = id

	next := &snapshot{
		keys:    cur.keys,
		records: copyRecords(cur.records, 0),
	}
	next.records[id] = stored
	c.snap.Store(next)

	c.log.Debugw("Record updated", "collection", c.name, "key", id)
	return stored.Clone(), nil
}

// Delete removes record by key. Deleting an absent key is a no-op.
func (c *Collection) Delete(ctx context.Context, record domain.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur := c.snap.Load()
	id, ok := repository.KeyOf(record[c.key])
	if !ok {
		return nil
	}
	if _, exists := cur.records[id]; !exists {
		return nil
	}

	next := &snapshot{
		keys:    make([]int64, 0, len(cur.keys)-1),
		records: copyRecords(cur.records, 0),
	}
	for _, k := range cur.keys {
		if k != id {
			next.keys = append(next.keys, k)
		}
	}
	delete(next.records, id)
	c.snap.Store(next)

	c.log.Debugw("Record deleted", "collection", c.name, "key", id)
	return nil
}

// Clear empties the store and resets the key generator
func (c *Collection) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.snap.Store(emptySnapshot)
	c.gen.Reset()

	c.log.Debugw("Collection cleared", "collection", c.name)
	return nil
}

// All returns copies of every record in insertion order
func (c *Collection) All(ctx context.Context) ([]domain.Record, error) {
	cur := c.snap.Load()
	out := make([]domain.Record, len(cur.keys))
	for i, k := range cur.keys {
		out[i] = cur.records[k].Clone()
	}
	return out, nil
}

// Find returns a copy of the record for id, or nil
func (c *Collection) Find(ctx context.Context, id any) (domain.Record, error) {
	k, ok := repository.KeyOf(id)
	if !ok {
		return nil, nil
	}
	r, exists := c.snap.Load().records[k]
	if !exists {
		return nil, nil
	}
	return r.Clone(), nil
}

// Len returns the number of stored records
func (c *Collection) Len() int {
	return len(c.snap.Load().keys)
}

// Query returns an empty query over the collection
func (c *Collection) Query() *query.Query { return query.New(c) }

// Where starts a query with an equality filter
func (c *Collection) Where(attr string, value any) *query.Query {
	return c.Query().Where(attr, value)
}

// Exclude starts a query with an inequality filter
func (c *Collection) Exclude(attr string, value any) *query.Query {
	return c.Query().Exclude(attr, value)
}

// Order starts a query sorted ascending by attr
func (c *Collection) Order(attr string) *query.Query {
	return c.Query().Order(attr)
}

// Desc starts a query sorted descending by attr
func (c *Collection) Desc(attr string) *query.Query {
	return c.Query().Desc(attr)
}

// Limit starts a query keeping the first n records
func (c *Collection) Limit(n int) *query.Query {
	return c.Query().Limit(n)
}

// Offset starts a query keeping the last n records
func (c *Collection) Offset(n int) *query.Query {
	return c.Query().Offset(n)
}

func copyRecords(in map[int64]domain.Record, extra int) map[int64]domain.Record {
	out := make(map[int64]domain.Record, len(in)+extra)
	for k, v := range in {
		out[k] = v
	}
	return out
}
