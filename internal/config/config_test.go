package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rowmap/internal/errors"
)

const sampleConfig = `
adapter: sqlite
sqlite:
  path: /tmp/rowmap-test.db
log:
  json: true
  level: debug
relations:
  users:
    columns:
      id: integer
      name: string
      balance: decimal
    legacy:
      user_name: name
    associations:
      - name: posts
        kind: one_to_many
        collection: posts
        foreign_key: user_id
  posts:
    columns:
      id: integer
      user_id: integer
      title: string
      published_on: date
    associations:
      - name: user
        kind: many_to_one
        collection: users
`

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Adapter != AdapterMemory {
		t.Errorf("Adapter = %s, want %s", cfg.Adapter, AdapterMemory)
	}
	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1", cfg.Version)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if cfg.Adapter != AdapterSQLite {
		t.Errorf("Adapter = %s, want sqlite", cfg.Adapter)
	}
	if cfg.SQLite.Path != "/tmp/rowmap-test.db" {
		t.Errorf("SQLite.Path = %s", cfg.SQLite.Path)
	}
	if cfg.Badger.Path != "./rowmap.badger" {
		t.Errorf("Badger.Path = %s, want default", cfg.Badger.Path)
	}
	if got := cfg.RelationNames(); strings.Join(got, ",") != "posts,users" {
		t.Errorf("RelationNames() = %v", got)
	}

	users := cfg.Relations["users"]
	if users.Legacy["user_name"] != "name" {
		t.Errorf("Legacy = %v", users.Legacy)
	}
	if len(users.Associations) != 1 || users.Associations[0].ForeignKey != "user_id" {
		t.Errorf("Associations = %+v", users.Associations)
	}

	opts := cfg.LoggerOptions()
	if !opts.JSON || opts.Level != "debug" {
		t.Errorf("LoggerOptions() = %+v", opts)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "unknown adapter",
			yaml:    "adapter: postgres",
			wantErr: "unknown adapter",
		},
		{
			name:    "unknown log level",
			yaml:    "log: {level: chatty}",
			wantErr: "log level",
		},
		{
			name:    "unknown column type",
			yaml:    "relations: {users: {columns: {id: uuid}}}",
			wantErr: "column id",
		},
		{
			name:    "one_to_many without foreign key",
			yaml:    "relations: {users: {columns: {id: integer}, associations: [{name: posts, kind: one_to_many, collection: posts}]}}",
			wantErr: "needs a foreign_key",
		},
		{
			name:    "unknown association kind",
			yaml:    "relations: {users: {columns: {id: integer}, associations: [{name: posts, kind: many_to_many, collection: posts}]}}",
			wantErr: "unknown kind",
		},
		{
			name:    "association without collection",
			yaml:    "relations: {posts: {columns: {id: integer}, associations: [{name: user, kind: many_to_one}]}}",
			wantErr: "needs a name and a collection",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() should fail")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateHint(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Adapter = "mongo"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() should fail")
	}
	if hints := errors.FlattenHints(err); !strings.Contains(hints, "memory, sqlite, badger") {
		t.Errorf("hints = %q", hints)
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Adapter = AdapterBadger
	cfg.Badger = BadgerConfig{Path: filepath.Join(tmpDir, "data"), SyncWrites: true}
	cfg.Relations = map[string]RelationConfig{
		"users": {Columns: map[string]string{"id": "integer", "name": "string"}},
	}

	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, path, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if path != configPath {
		t.Errorf("path = %s, want %s", path, configPath)
	}
	if loaded.Adapter != AdapterBadger {
		t.Errorf("Adapter = %s, want badger", loaded.Adapter)
	}
	if !loaded.Badger.SyncWrites {
		t.Error("Badger.SyncWrites should survive a round trip")
	}
	if loaded.Relations["users"].Columns["name"] != "string" {
		t.Errorf("Relations = %+v", loaded.Relations)
	}
}

func TestLoadFromPathMissing(t *testing.T) {
	_, _, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("LoadFromPath() should fail for a missing file")
	}
}

func TestFindConfigPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)

	if err := DefaultConfig().Save(configPath); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	if found := FindConfigPath(); found == "" {
		t.Error("FindConfigPath() should find config in working directory")
	}

	// A missing explicit path falls back to the working directory
	t.Setenv(EnvConfigPath, "/nonexistent/path.yaml")
	if found := FindConfigPath(); found == "" {
		t.Error("FindConfigPath() should fall back when env path doesn't exist")
	}

	explicit := filepath.Join(tmpDir, "explicit.yaml")
	if err := DefaultConfig().Save(explicit); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	t.Setenv(EnvConfigPath, explicit)
	if found := FindConfigPath(); found != explicit {
		t.Errorf("FindConfigPath() = %s, want %s", found, explicit)
	}
}

func TestLoadFromPathAnchorsStoragePaths(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "conf", ConfigFileName)
	data := []byte("adapter: sqlite\nsqlite:\n  path: data/rowmap.db\nbadger:\n  path: /var/lib/rowmap\n")
	if err := EnsureConfigDir(path); err != nil {
		t.Fatalf("EnsureConfigDir() error: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	cfg, _, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if want := filepath.Join(tmpDir, "conf", "data", "rowmap.db"); cfg.SQLite.Path != want {
		t.Errorf("SQLite.Path = %s, want %s", cfg.SQLite.Path, want)
	}
	if cfg.Badger.Path != "/var/lib/rowmap" {
		t.Errorf("Badger.Path = %s, want absolute path untouched", cfg.Badger.Path)
	}
}

func TestSearchPaths(t *testing.T) {
	t.Setenv(EnvConfigPath, "/explicit/rowmap.yaml")
	paths := SearchPaths()
	if len(paths) < 2 {
		t.Fatalf("SearchPaths() = %v, want at least env and working directory", paths)
	}
	if paths[0] != "/explicit/rowmap.yaml" {
		t.Errorf("SearchPaths()[0] = %s, want env path first", paths[0])
	}
	if filepath.Base(paths[1]) != ConfigFileName {
		t.Errorf("SearchPaths()[1] = %s, want working directory file", paths[1])
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	t.Setenv(EnvConfigPath, "")
	t.Setenv("XDG_CONFIG_HOME", tmpDir)
	t.Setenv("HOME", tmpDir)

	if _, err := os.Stat("/etc/rowmap/config.yaml"); err == nil {
		t.Skip("system config present")
	}

	cfg, path, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if path != "" {
		t.Errorf("path = %s, want empty", path)
	}
	if cfg.Adapter != AdapterMemory {
		t.Errorf("Adapter = %s, want memory", cfg.Adapter)
	}
}
