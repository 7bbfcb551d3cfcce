package adapter

import (
	"sync"

	"go.uber.org/zap"

	"rowmap/internal/config"
	"rowmap/internal/errors"
	"rowmap/internal/logger"
	"rowmap/internal/repository"
	"rowmap/internal/repository/badger"
	"rowmap/internal/repository/memory"
	"rowmap/internal/repository/sqlite"
)

// Adapter opens collections on one storage engine
type Adapter interface {
	// Name returns the engine name: memory, sqlite or badger
	Name() string

	// Collection returns the backend for name, keyed by key.
	// Repeated calls with the same name return the same backend.
	Collection(name, key string) repository.Backend

	// Close releases the engine
	Close() error
}

// Open builds the adapter selected by cfg
func Open(cfg *config.Config, log *zap.SugaredLogger) (Adapter, error) {
	log = logger.OrNop(log)

	switch cfg.Adapter {
	case config.AdapterMemory, "":
		return NewMemory(log), nil

	case config.AdapterSQLite:
		store, err := sqlite.New(cfg.SQLite.Path, log)
		if err != nil {
			return nil, err
		}
		return &sqliteAdapter{store: store}, nil

	case config.AdapterBadger:
		store, err := badger.Open(badger.Config{
			Path:       cfg.Badger.Path,
			InMemory:   cfg.Badger.InMemory,
			SyncWrites: cfg.Badger.SyncWrites,
			GCInterval: badger.DefaultConfig(cfg.Badger.Path).GCInterval,
			Logger:     log,
		})
		if err != nil {
			return nil, err
		}
		return &badgerAdapter{store: store}, nil
	}

	return nil, errors.Newf("unknown adapter %q", cfg.Adapter)
}

// Memory keeps collections in process memory
type Memory struct {
	log *zap.SugaredLogger

	mu          sync.Mutex
	collections map[string]*memory.Collection
}

// NewMemory creates an empty in-memory adapter
func NewMemory(log *zap.SugaredLogger) *Memory {
	return &Memory{
		log:         logger.OrNop(log),
		collections: make(map[string]*memory.Collection),
	}
}

// Name returns "memory"
func (m *Memory) Name() string { return config.AdapterMemory }

// Collection returns the in-memory collection for name
func (m *Memory) Collection(name, key string) repository.Backend {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.collections[name]; ok {
		return c
	}
	c := memory.New(name, memory.WithKey(keyOrDefault(key)), memory.WithLogger(m.log))
	m.collections[name] = c
	return c
}

// Close drops every collection
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections = make(map[string]*memory.Collection)
	return nil
}

type sqliteAdapter struct {
	store *sqlite.Store
}

func (a *sqliteAdapter) Name() string { return config.AdapterSQLite }

func (a *sqliteAdapter) Collection(name, key string) repository.Backend {
	return a.store.Collection(name, sqlite.WithKey(keyOrDefault(key)))
}

func (a *sqliteAdapter) Close() error { return a.store.Close() }

type badgerAdapter struct {
	store *badger.Store
}

func (a *badgerAdapter) Name() string { return config.AdapterBadger }

func (a *badgerAdapter) Collection(name, key string) repository.Backend {
	return a.store.Collection(name, badger.WithKey(keyOrDefault(key)))
}

func (a *badgerAdapter) Close() error { return a.store.Close() }

func keyOrDefault(key string) string {
	if key == "" {
		return "id"
	}
	return key
}
