package schema

import (
	"sort"
	"sync"

	"rowmap/internal/errors"
)

// ErrUnknownKind is returned when an association target is not registered
var ErrUnknownKind = errors.New("unknown entity kind")

// Registry maps entity kinds to their schemas. It is an explicit object
// handed to whoever builds relations; there is no package-level registry.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*Schema
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]*Schema)}
}

// Register adds a built schema under its kind
func (r *Registry) Register(s *Schema) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.kind == "" {
		return errors.New("schema has no kind")
	}
	if _, exists := r.schemas[s.kind]; exists {
		return errors.Newf("schema %s already registered", s.kind)
	}
	r.schemas[s.kind] = s
	return nil
}

// Define builds def against the registry and registers the result
func (r *Registry) Define(def Definition) (*Schema, error) {
	s, err := Build(r, def)
	if err != nil {
		return nil, err
	}
	if err := r.Register(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Lookup returns the schema registered for kind
func (r *Registry) Lookup(kind string) (*Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[kind]
	return s, ok
}

// Kinds returns the registered kinds in sorted order
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.schemas))
	for k := range r.schemas {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
