// Package command is the write facade a repository holds for its collection.
package command

import (
	"context"

	"rowmap/internal/domain"
	"rowmap/internal/repository"
)

// SerializeFunc turns an entity into the record to store
type SerializeFunc[E any] func(E) (domain.Record, error)

// IdentityFunc returns an entity's primary key
type IdentityFunc[E any] func(E) any

// Command translates entities to records and delegates to one backend
type Command[E any] struct {
	backend   repository.Writer
	key       string
	serialize SerializeFunc[E]
	identity  IdentityFunc[E]
}

// New binds a command to backend. key is the backend's primary key attribute.
func New[E any](backend repository.Writer, key string, serialize SerializeFunc[E], identity IdentityFunc[E]) *Command[E] {
	return &Command[E]{
		backend:   backend,
		key:       key,
		serialize: serialize,
		identity:  identity,
	}
}

// For binds a command to a full backend, taking the key attribute from it
func For[E any](backend repository.Backend, serialize SerializeFunc[E], identity IdentityFunc[E]) *Command[E] {
	return New(backend, backend.Key(), serialize, identity)
}

// Create serializes entity and stores it
func (c *Command[E]) Create(ctx context.Context, entity E) (domain.Record, error) {
	record, err := c.serialize(entity)
	if err != nil {
		return nil, err
	}
	return c.backend.Create(ctx, record)
}

// Update serializes entity and overwrites the stored record
func (c *Command[E]) Update(ctx context.Context, entity E) (domain.Record, error) {
	record, err := c.serialize(entity)
	if err != nil {
		return nil, err
	}
	return c.backend.Update(ctx, record)
}

// Delete removes entity by identity alone
func (c *Command[E]) Delete(ctx context.Context, entity E) error {
	return c.backend.Delete(ctx, domain.Record{c.key: c.identity(entity)})
}

// Clear empties the backend
func (c *Command[E]) Clear(ctx context.Context) error {
	return c.backend.Clear(ctx)
}
