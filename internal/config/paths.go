package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath names an explicit config file
	EnvConfigPath = "ROWMAP_CONFIG"
	// ConfigFileName is looked up in the working directory and the user
	// config directory
	ConfigFileName = "rowmap.yaml"
	// ConfigDirName is the directory under the user config directory
	ConfigDirName = "rowmap"
)

// SearchPaths lists config file candidates, most specific first:
// $ROWMAP_CONFIG, ./rowmap.yaml, then <user config dir>/rowmap/rowmap.yaml.
func SearchPaths() []string {
	var paths []string
	if p := os.Getenv(EnvConfigPath); p != "" {
		paths = append(paths, p)
	}
	if abs, err := filepath.Abs(ConfigFileName); err == nil {
		paths = append(paths, abs)
	} else {
		paths = append(paths, ConfigFileName)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, ConfigDirName, ConfigFileName))
	}
	return paths
}

// FindConfigPath returns the first existing candidate of SearchPaths, or ""
func FindConfigPath() string {
	for _, p := range SearchPaths() {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// EnsureConfigDir creates the directory holding configPath
func EnsureConfigDir(configPath string) error {
	return os.MkdirAll(filepath.Dir(configPath), 0755)
}

// resolveStoragePaths anchors relative database paths at the directory of
// the config file they were read from, so the CLI opens the same store
// whatever its working directory.
func (c *Config) resolveStoragePaths(configPath string) {
	base := filepath.Dir(configPath)
	c.SQLite.Path = anchor(base, c.SQLite.Path)
	if !c.Badger.InMemory {
		c.Badger.Path = anchor(base, c.Badger.Path)
	}
}

func anchor(base, p string) string {
	if p == "" || p == ":memory:" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
