// Package sqlite stores collections in a SQLite database.
//
// Every record is one JSON row in the records table, keyed by collection
// name and integer id. A per-collection row in the sequences table holds
// the last issued key so keys survive restarts and are never reused.
// Queries load the collection in key order and filter in memory, so the
// query semantics match the in-memory engine exactly.
package sqlite

import (
	"context"
	"database/sql"
	"sync"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"rowmap/internal/domain"
	"rowmap/internal/errors"
	"rowmap/internal/logger"
	"rowmap/internal/repository"
	"rowmap/internal/repository/query"
)

// Store owns the database handle shared by its collections
type Store struct {
	db   *sql.DB
	path string
	log  *zap.SugaredLogger

	mu          sync.Mutex
	collections map[string]*Collection
	closed      bool
}

// New opens (creating if needed) the database at dbPath.
// ":memory:" gives a private in-memory database.
func New(dbPath string, log *zap.SugaredLogger) (*Store, error) {
	log = logger.OrNop(log)

	dsn := dbPath
	if dbPath != ":memory:" {
		dsn = dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	// one connection: an in-memory database is per connection, and writes
	// serialize anyway
	db.SetMaxOpenConns(1)

	s := &Store{
		db:          db,
		path:        dbPath,
		log:         log,
		collections: make(map[string]*Collection),
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to migrate database")
	}

	log.Infow("SQLite store opened", "path", dbPath)
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		collection TEXT NOT NULL,
		id INTEGER NOT NULL,
		data JSON NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (collection, id)
	);

	CREATE TABLE IF NOT EXISTS sequences (
		collection TEXT PRIMARY KEY,
		value INTEGER NOT NULL DEFAULT 0
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Collection returns the named collection, creating the handle on first use.
// The same name always yields the same handle.
func (s *Store) Collection(name string, opts ...Option) *Collection {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.collections[name]; ok {
		return c
	}
	c := &Collection{store: s, name: name, key: domain.DefaultKey}
	for _, opt := range opts {
		opt(c)
	}
	s.collections[name] = c
	return c
}

// Collections lists the collections that hold records or a sequence
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT collection FROM sequences
		UNION
		SELECT DISTINCT collection FROM records
		ORDER BY collection
	`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list collections")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "failed to scan collection name")
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Close closes the database
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.log.Infow("SQLite store closed", "path", s.path)
	return s.db.Close()
}

var _ repository.Backend = (*Collection)(nil)

// Collection is one named collection inside a Store
type Collection struct {
	store *Store
	name  string
	key   string

	mu sync.Mutex
}

// Option configures a Collection on first use
type Option func(*Collection)

// WithKey sets the primary key attribute (default "id")
func WithKey(attr string) Option {
	return func(c *Collection) { c.key = attr }
}

// Name returns the collection name
func (c *Collection) Name() string { return c.name }

// Key returns the primary key attribute
func (c *Collection) Key() string { return c.key }

// Create assigns the next key and inserts record
func (c *Collection) Create(ctx context.Context, record domain.Record) (domain.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := record.Clone()
	if stored == nil {
		stored = domain.Record{}
	}

	tx, err := c.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	var current int64
	err = tx.QueryRowContext(ctx, `SELECT value FROM sequences WHERE collection = ?`, c.name).Scan(&current)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.Wrap(err, "failed to read sequence")
	}

	var id int64
	if raw, ok := stored[c.key]; ok && raw != nil {
		k, valid := repository.KeyOf(raw)
		if !valid {
			return nil, errors.Wrapf(repository.ErrInvalidKey, "%s: create with key %v", c.name, raw)
		}
		if k <= current {
			return nil, errors.WithStack(&domain.DuplicateKeyError{Collection: c.name, Key: k})
		}
		id = k
	} else {
		id = current + 1
	}
	stored[c.key] = id

	data, err := repository.EncodeRecord(stored, c.key)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO records (collection, id, data) VALUES (?, ?, ?)`, c.name, id, data)
	if err != nil {
		if isConstraint(err) {
			return nil, errors.WithStack(&domain.DuplicateKeyError{Collection: c.name, Key: id})
		}
		return nil, errors.Wrap(err, "failed to insert record")
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sequences (collection, value) VALUES (?, ?)
		ON CONFLICT(collection) DO UPDATE SET value = excluded.value
	`, c.name, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to advance sequence")
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit record")
	}

	c.store.log.Debugw("Record created", "collection", c.name, "key", id)
	return stored, nil
}

// Update overwrites the stored record at record's key
func (c *Collection) Update(ctx context.Context, record domain.Record) (domain.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw := record[c.key]
	id, ok := repository.KeyOf(raw)
	if !ok {
		return nil, errors.WithStack(&domain.RecordNotFoundError{Collection: c.name, Key: raw})
	}

	stored := record.Clone()
	stored[c.key] = id
	data, err := repository.EncodeRecord(stored, c.key)
	if err != nil {
		return nil, err
	}

	res, err := c.store.db.ExecContext(ctx, `
		UPDATE records SET data = ?, updated_at = CURRENT_TIMESTAMP
		WHERE collection = ? AND id = ?
	`, data, c.name, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to update record")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, errors.Wrap(err, "failed to update record")
	}
	if n == 0 {
		return nil, errors.WithStack(&domain.RecordNotFoundError{Collection: c.name, Key: id})
	}

	c.store.log.Debugw("Record updated", "collection", c.name, "key", id)
	return stored, nil
}

// Delete removes record by key. Deleting an absent key is a no-op.
func (c *Collection) Delete(ctx context.Context, record domain.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, ok := repository.KeyOf(record[c.key])
	if !ok {
		return nil
	}
	_, err := c.store.db.ExecContext(ctx, `DELETE FROM records WHERE collection = ? AND id = ?`, c.name, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete record")
	}

	c.store.log.Debugw("Record deleted", "collection", c.name, "key", id)
	return nil
}

// Clear removes every record and resets the sequence
func (c *Collection) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.store.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE collection = ?`, c.name); err != nil {
		return errors.Wrap(err, "failed to clear records")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sequences WHERE collection = ?`, c.name); err != nil {
		return errors.Wrap(err, "failed to reset sequence")
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit clear")
	}

	c.store.log.Debugw("Collection cleared", "collection", c.name)
	return nil
}

// All returns every record in key order, which is insertion order since
// keys only grow
func (c *Collection) All(ctx context.Context) ([]domain.Record, error) {
	rows, err := c.store.db.QueryContext(ctx, `
		SELECT id, data FROM records WHERE collection = ? ORDER BY id
	`, c.name)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query records")
	}
	defer rows.Close()

	records := []domain.Record{}
	for rows.Next() {
		var (
			id   int64
			data []byte
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, errors.Wrap(err, "failed to scan record")
		}
		r, err := repository.DecodeRecord(data, c.key, id)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating records")
	}
	return records, nil
}

// Find returns the record for id, or nil
func (c *Collection) Find(ctx context.Context, id any) (domain.Record, error) {
	k, ok := repository.KeyOf(id)
	if !ok {
		return nil, nil
	}

	var data []byte
	err := c.store.db.QueryRowContext(ctx, `
		SELECT data FROM records WHERE collection = ? AND id = ?
	`, c.name, k).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get record")
	}
	return repository.DecodeRecord(data, c.key, k)
}

// Count returns the number of stored records
func (c *Collection) Count(ctx context.Context) (int, error) {
	var n int
	err := c.store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE collection = ?`, c.name).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count records")
	}
	return n, nil
}

// Query returns an empty query over the collection
func (c *Collection) Query() *query.Query { return query.New(c) }

// Where starts a query with an equality filter
func (c *Collection) Where(attr string, value any) *query.Query {
	return c.Query().Where(attr, value)
}

// Order starts a query sorted ascending by attr
func (c *Collection) Order(attr string) *query.Query {
	return c.Query().Order(attr)
}

// Limit starts a query keeping the first n records
func (c *Collection) Limit(n int) *query.Query {
	return c.Query().Limit(n)
}

// Offset starts a query keeping the last n records
func (c *Collection) Offset(n int) *query.Query {
	return c.Query().Offset(n)
}
