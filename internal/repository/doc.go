// Package repository defines the storage backend contract for rowmap.
//
// This package provides the abstraction every concrete store implements.
// The implementations live in subpackages and are selected by
// configuration through internal/adapter, never by probing types at
// runtime.
//
// # Backend Interface
//
// Backend is the capability set {Create, Update, Delete, All, Find, Clear,
// Where, Order, Limit, Offset} for one collection of records keyed by an
// integer primary key.
//
// # Implementations
//
// - memory: the embedded engine. Copy-on-write snapshots, one writer at a time.
// - sqlite: one JSON document per row, per-collection key sequence.
// - badger: key-ordered records under a collection prefix.
//
// # Queries
//
// Reads beyond Find go through the query subpackage, which runs the same
// filter/sort/limit/offset pipeline over any backend's snapshot.
//
// # Commands
//
// The command subpackage translates entities into records with an injected
// serializer before delegating writes to a Backend.
package repository
