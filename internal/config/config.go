// Package config provides configuration management for rowmap.
//
// Config file locations (priority order):
//  1. $ROWMAP_CONFIG
//  2. ./rowmap.yaml
//  3. $XDG_CONFIG_HOME/rowmap/config.yaml
//  4. ~/.config/rowmap/config.yaml
//  5. /etc/rowmap/config.yaml
//
// With no file present the defaults select the in-memory adapter.
package config

import (
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"rowmap/internal/errors"
	"rowmap/internal/logger"
	"rowmap/internal/schema"
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, errors.Wrap(err, "read config")
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, path, err
	}
	cfg.resolveStoragePaths(path)
	return cfg, path, nil
}

// Parse decodes, defaults and validates a YAML document
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return errors.Wrap(err, "create config dir")
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Adapter: AdapterMemory,
		SQLite:  SQLiteConfig{Path: "./rowmap.db"},
		Badger:  BadgerConfig{Path: "./rowmap.badger", SyncWrites: true},
		Log:     LogConfig{Level: "info"},
	}
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Adapter == "" {
		c.Adapter = AdapterMemory
	}
	if c.SQLite.Path == "" {
		c.SQLite.Path = "./rowmap.db"
	}
	if c.Badger.Path == "" && !c.Badger.InMemory {
		c.Badger.Path = "./rowmap.badger"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate rejects unknown adapters, log levels, type names and association kinds
func (c *Config) Validate() error {
	switch c.Adapter {
	case AdapterMemory, AdapterSQLite, AdapterBadger:
	default:
		return errors.WithHint(
			errors.Newf("unknown adapter %q", c.Adapter),
			"use one of: memory, sqlite, badger",
		)
	}

	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrapf(err, "log level %q", c.Log.Level)
	}

	for _, kind := range c.RelationNames() {
		rel := c.Relations[kind]
		for column, typeName := range rel.Columns {
			if _, err := schema.ParseType(typeName); err != nil {
				return errors.Wrapf(err, "relation %s column %s", kind, column)
			}
		}
		for _, a := range rel.Associations {
			if a.Name == "" || a.Collection == "" {
				return errors.Newf("relation %s: association needs a name and a collection", kind)
			}
			switch a.Kind {
			case ManyToOne:
			case OneToMany:
				if a.ForeignKey == "" {
					return errors.Newf("relation %s: one_to_many association %s needs a foreign_key", kind, a.Name)
				}
			default:
				return errors.Newf("relation %s: association %s has unknown kind %q", kind, a.Name, a.Kind)
			}
		}
	}
	return nil
}

// RelationNames returns the declared relation names, sorted
func (c *Config) RelationNames() []string {
	names := make([]string, 0, len(c.Relations))
	for name := range c.Relations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoggerOptions maps the log section onto logger options
func (c *Config) LoggerOptions() logger.Options {
	return logger.Options{JSON: c.Log.JSON, Level: c.Log.Level}
}
