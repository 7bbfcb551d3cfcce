// Package badger stores collections in an embedded BadgerDB.
//
// Keys are laid out so a prefix scan returns a collection in key order:
//
//	r\x00<collection>\x00<id as 8 big-endian bytes>  -> JSON record
//	s\x00<collection>                                 -> last issued id
//
// Keys only grow, so key order is insertion order.
package badger

import (
	"context"
	"encoding/binary"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"rowmap/internal/domain"
	"rowmap/internal/errors"
	"rowmap/internal/logger"
	"rowmap/internal/repository"
	"rowmap/internal/repository/query"
)

// Config holds configuration for a Badger store
type Config struct {
	// Path is the database directory, ignored when InMemory is set
	Path string
	// InMemory keeps everything in RAM; for tests
	InMemory bool
	// SyncWrites fsyncs every commit
	SyncWrites bool
	// GCInterval runs value log GC periodically; 0 disables it
	GCInterval time.Duration
	// Logger receives store and BadgerDB messages; nil disables both
	Logger *zap.SugaredLogger
}

// DefaultConfig returns production defaults for path
func DefaultConfig(path string) Config {
	return Config{
		Path:       path,
		SyncWrites: true,
		GCInterval: 5 * time.Minute,
	}
}

// InMemoryConfig returns a configuration for tests
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts a zap SugaredLogger to badger.Logger
type badgerLogger struct {
	log *zap.SugaredLogger
}

func (l *badgerLogger) Errorf(format string, args ...interface{})   { l.log.Errorf(format, args...) }
func (l *badgerLogger) Warningf(format string, args ...interface{}) { l.log.Warnf(format, args...) }
func (l *badgerLogger) Infof(format string, args ...interface{})    { l.log.Infof(format, args...) }
func (l *badgerLogger) Debugf(format string, args ...interface{})   { l.log.Debugf(format, args...) }

// Store owns a BadgerDB and hands out collections backed by it
type Store struct {
	db  *badger.DB
	cfg Config
	log *zap.SugaredLogger

	mu          sync.Mutex
	collections map[string]*Collection

	stop chan struct{}
	done chan struct{}
}

// Open opens the database described by cfg
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, errors.Wrapf(err, "create database directory %s", cfg.Path)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{log: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "open badger database")
	}

	s := &Store{
		db:          db,
		cfg:         cfg,
		log:         logger.OrNop(cfg.Logger),
		collections: make(map[string]*Collection),
	}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.stop = make(chan struct{})
		s.done = make(chan struct{})
		go s.runGC()
	}

	s.log.Infow("Badger store opened", "path", cfg.Path, "in_memory", cfg.InMemory)
	return s, nil
}

func (s *Store) runGC() {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			// ErrNoRewrite only means there was nothing to collect
			if err := s.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				s.log.Warnw("Value log GC failed", "error", err)
			}
		}
	}
}

// Collection returns the named collection, creating the handle on first use
func (s *Store) Collection(name string, opts ...Option) *Collection {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.collections[name]; ok {
		return c
	}
	c := &Collection{
		store:  s,
		name:   name,
		key:    domain.DefaultKey,
		prefix: recordPrefix(name),
		seq:    sequenceKey(name),
	}
	for _, opt := range opts {
		opt(c)
	}
	s.collections[name] = c
	return c
}

// Collections lists collections with an issued sequence
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	var names []string
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(sequencePrefix)})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			names = append(names, string(it.Item().Key()[len(sequencePrefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list collections")
	}
	return names, nil
}

// Close stops GC and closes the database
func (s *Store) Close() error {
	if s.stop != nil {
		close(s.stop)
		<-s.done
		s.stop = nil
	}
	s.log.Infow("Badger store closed", "path", s.cfg.Path)
	return s.db.Close()
}

var _ repository.Backend = (*Collection)(nil)

// Collection is one named collection inside a Store
type Collection struct {
	store  *Store
	name   string
	key    string
	prefix []byte
	seq    []byte

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

// Create assigns the next key and stores record
func (c *Collection) Create(ctx context.Context, record domain.Record) (domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := record.Clone()
	if stored == nil {
		stored = domain.Record{}
	}

	err := c.store.db.Update(func(txn *badger.Txn) error {
		current, err := readSequence(txn, c.seq)
		if err != nil {
			return err
		}

		var id int64
		if raw, ok := stored[c.key]; ok && raw != nil {
			k, valid := repository.KeyOf(raw)
			if !valid {
				return errors.Wrapf(repository.ErrInvalidKey, "%s: create with key %v", c.name, raw)
			}
			if k <= current {
				return errors.WithStack(&domain.DuplicateKeyError{Collection: c.name, Key: k})
			}
			id = k
		} else {
			id = current + 1
		}
		stored[c.key] = id

		data, err := repository.EncodeRecord(stored, c.key)
		if err != nil {
			return err
		}
		if err := txn.Set(c.recordKey(id), data); err != nil {
			return errors.Wrap(err, "failed to write record")
		}
		return txn.Set(c.seq, encodeID(id))
	})
	if err != nil {
		return nil, err
	}

	c.store.log.Debugw("Record created", "collection", c.name, "key", stored[c.key])
	return stored, nil
}

// Update overwrites the stored record at record's key
func (c *Collection) Update(ctx context.Context, record domain.Record) (domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	raw := record[c.key]
	id, ok := repository.KeyOf(raw)
	if !ok {
		return nil, errors.WithStack(&domain.RecordNotFoundError{Collection: c.name, Key: raw})
	}

	stored := record.Clone()
	stored[c.key] = id

	err := c.store.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(c.recordKey(id)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return errors.WithStack(&domain.RecordNotFoundError{Collection: c.name, Key: id})
			}
			return errors.Wrap(err, "failed to read record")
		}
		data, err := repository.EncodeRecord(stored, c.key)
		if err != nil {
			return err
		}
		return txn.Set(c.recordKey(id), data)
	})
	if err != nil {
		return nil, err
	}

	c.store.log.Debugw("Record updated", "collection", c.name, "key", id)
	return stored, nil
}

// Delete removes record by key. Deleting an absent key is a no-op.
func (c *Collection) Delete(ctx context.Context, record domain.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	id, ok := repository.KeyOf(record[c.key])
	if !ok {
		return nil
	}
	err := c.store.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(c.recordKey(id))
	})
	if err != nil {
		return errors.Wrap(err, "failed to delete record")
	}

	c.store.log.Debugw("Record deleted", "collection", c.name, "key", id)
	return nil
}

// Clear drops every record and the sequence
func (c *Collection) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.db.DropPrefix(c.prefix); err != nil {
		return errors.Wrap(err, "failed to drop records")
	}
	err := c.store.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(c.seq)
	})
	if err != nil {
		return errors.Wrap(err, "failed to reset sequence")
	}

	c.store.log.Debugw("Collection cleared", "collection", c.name)
	return nil
}

// All returns every record in key order
func (c *Collection) All(ctx context.Context) ([]domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records := []domain.Record{}
	err := c.store.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: true, PrefetchSize: 100, Prefix: c.prefix})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			id := decodeID(item.Key()[len(c.prefix):])
			err := item.Value(func(val []byte) error {
				r, err := repository.DecodeRecord(val, c.key, id)
				if err != nil {
					return err
				}
				records = append(records, r)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Find returns the record for id, or nil
func (c *Collection) Find(ctx context.Context, id any) (domain.Record, error) {
	k, ok := repository.KeyOf(id)
	if !ok {
		return nil, nil
	}

	var record domain.Record
	err := c.store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(c.recordKey(k))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			record, err = repository.DecodeRecord(val, c.key, k)
			return err
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get record")
	}
	return record, nil
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

const sequencePrefix = "s\x00"

func recordPrefix(name string) []byte {
	return []byte("r\x00" + name + "\x00")
}

func sequenceKey(name string) []byte {
	return []byte(sequencePrefix + name)
}

func (c *Collection) recordKey(id int64) []byte {
	key := make([]byte, len(c.prefix)+8)
	copy(key, c.prefix)
	binary.BigEndian.PutUint64(key[len(c.prefix):], uint64(id))
	return key
}

func encodeID(id int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(id))
	return buf
}

func decodeID(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b))
}

func readSequence(txn *badger.Txn, key []byte) (int64, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "failed to read sequence")
	}
	var id int64
	err = item.Value(func(val []byte) error {
		id = decodeID(val)
		return nil
	})
	return id, err
}
