package adapter

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"rowmap/internal/errors"
	"rowmap/internal/logger"
	"rowmap/internal/repository"
)

// Registry binds collection names to backends for one process
type Registry struct {
	mu       sync.RWMutex
	adapter  Adapter
	backends map[string]repository.Backend
	log      *zap.SugaredLogger
}

// NewRegistry creates a registry that opens unknown collections on adapter.
// A nil adapter makes Collection fail for anything not registered.
func NewRegistry(adapter Adapter, log *zap.SugaredLogger) *Registry {
	return &Registry{
		adapter:  adapter,
		backends: make(map[string]repository.Backend),
		log:      logger.OrNop(log),
	}
}

// Register adds backend under its own name
func (r *Registry) Register(backend repository.Backend) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := backend.Name()
	if _, exists := r.backends[name]; exists {
		return errors.Newf("collection %s already registered", name)
	}
	r.backends[name] = backend
	r.log.Debugw("Registered collection", "collection", name, "key", backend.Key())
	return nil
}

// Lookup returns the backend registered under name
func (r *Registry) Lookup(name string) (repository.Backend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[name]
	return b, ok
}

// Collection returns the backend for name, opening and registering it on
// the adapter the first time
func (r *Registry) Collection(name, key string) (repository.Backend, error) {
	if b, ok := r.Lookup(name); ok {
		return checkKey(b, key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.backends[name]; ok {
		return checkKey(b, key)
	}
	if r.adapter == nil {
		return nil, errors.Newf("collection %s is not registered", name)
	}

	b := r.adapter.Collection(name, key)
	r.backends[name] = b
	r.log.Debugw("Opened collection", "collection", name, "adapter", r.adapter.Name())
	return b, nil
}

// Names returns the registered collection names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ClearAll clears every registered collection
func (r *Registry) ClearAll(ctx context.Context) error {
	for _, name := range r.Names() {
		b, _ := r.Lookup(name)
		if err := b.Clear(ctx); err != nil {
			return errors.Wrapf(err, "clear %s", name)
		}
	}
	return nil
}

// Close closes the adapter, if any
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.backends = make(map[string]repository.Backend)
	if r.adapter == nil {
		return nil
	}
	return r.adapter.Close()
}

// checkKey rejects a request for an already open collection under a
// different primary key. An empty key accepts whatever is open.
func checkKey(b repository.Backend, key string) (repository.Backend, error) {
	if key != "" && b.Key() != key {
		return nil, errors.Newf("collection %s is open with key %q, not %q", b.Name(), b.Key(), key)
	}
	return b, nil
}
