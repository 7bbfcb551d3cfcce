package repository

import (
	"context"

	"rowmap/internal/domain"
	"rowmap/internal/repository/query"
)

// Reader is the read side of a collection
type Reader interface {
	// All returns every record in insertion order
	All(ctx context.Context) ([]domain.Record, error)
	// Find returns the record for id, or nil when id is nil or not stored
	Find(ctx context.Context, id any) (domain.Record, error)
}

// Writer is the write side of a collection
type Writer interface {
	Create(ctx context.Context, record domain.Record) (domain.Record, error)
	Update(ctx context.Context, record domain.Record) (domain.Record, error)
	Delete(ctx context.Context, record domain.Record) error
	Clear(ctx context.Context) error
}

// Backend defines the interface for one collection of records
type Backend interface {
	Reader
	Writer

	// Name is the collection name
	Name() string
	// Key is the attribute holding the primary key
	Key() string

	// Query entry points, each returning a fresh query bound to the backend
	Where(attr string, value any) *query.Query
	Order(attr string) *query.Query
	Limit(n int) *query.Query
	Offset(n int) *query.Query
}
