// Package domain defines the core value types shared by the storage engine,
// the attribute schema and the association resolver.
//
// # Records
//
// Record is the untyped attribute mapping as it is stored by a backend.
// Backends hand out copies so callers can never mutate stored state.
//
// # Entities
//
// Entity is the typed object built from a coerced Record. It carries its
// kind, its attributes and the association slots the resolver writes into.
// Associated entities are held by value; an entity never points back to the
// entity that loaded it. Back-references go through the foreign key and a
// lookup.
//
// # Errors
//
// The typed errors (CoercionError, RecordNotFoundError, DuplicateKeyError,
// MissingKeyError, UnboundRepositoryError) are matched with errors.As, or
// with errors.Is against the Err* sentinels.
package domain
