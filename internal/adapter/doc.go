// Package adapter selects and opens the storage engine behind rowmap's
// collections.
//
// An Adapter hands out repository.Backend values by collection name. Three
// adapters exist:
//
//	memory  embedded copy-on-write collections, nothing persisted
//	sqlite  one JSON row per record in a SQLite database
//	badger  key-ordered records in an embedded BadgerDB
//
// Open picks one from configuration. A Registry binds collection names to
// backends for one process; it is created explicitly and passed to whoever
// needs it, never held in a global.
package adapter
