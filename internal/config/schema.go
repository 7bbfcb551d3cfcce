package config

// Config is the root configuration structure
type Config struct {
	Version   int                       `yaml:"version"`
	Adapter   string                    `yaml:"adapter"` // memory, sqlite, badger
	SQLite    SQLiteConfig              `yaml:"sqlite"`
	Badger    BadgerConfig              `yaml:"badger"`
	Log       LogConfig                 `yaml:"log"`
	Relations map[string]RelationConfig `yaml:"relations,omitempty"`
}

// SQLiteConfig configures the sqlite adapter
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// BadgerConfig configures the badger adapter
type BadgerConfig struct {
	Path       string `yaml:"path"`
	InMemory   bool   `yaml:"in_memory,omitempty"`
	SyncWrites bool   `yaml:"sync_writes,omitempty"`
}

// LogConfig configures the process logger
type LogConfig struct {
	JSON  bool   `yaml:"json,omitempty"`
	Level string `yaml:"level,omitempty"`
}

// RelationConfig declares one collection: its key, typed columns, legacy
// column names and associations
type RelationConfig struct {
	Key     string            `yaml:"key,omitempty"`
	Columns map[string]string `yaml:"columns"`
	// Legacy maps stored column names to attribute names
	Legacy       map[string]string   `yaml:"legacy,omitempty"`
	Associations []AssociationConfig `yaml:"associations,omitempty"`
}

// AssociationConfig declares an association on a relation
type AssociationConfig struct {
	Name       string `yaml:"name"`
	Kind       string `yaml:"kind"` // many_to_one, one_to_many
	Collection string `yaml:"collection"`
	ForeignKey string `yaml:"foreign_key,omitempty"`
}

// Adapter names
const (
	AdapterMemory = "memory"
	AdapterSQLite = "sqlite"
	AdapterBadger = "badger"
)

// Association kinds
const (
	ManyToOne = "many_to_one"
	OneToMany = "one_to_many"
)
