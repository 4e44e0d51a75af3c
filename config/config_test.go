package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bankcore.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
backend = "sqlite"

[sqlite]
path = "/tmp/ledger.db"

[memory]
lock_timeout = "3s"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend != BackendSQLite {
		t.Errorf("backend = %q, want sqlite", cfg.Backend)
	}
	if cfg.SQLite.Path != "/tmp/ledger.db" {
		t.Errorf("sqlite path = %q", cfg.SQLite.Path)
	}
	if cfg.Memory.LockTimeout.Duration != 3*time.Second {
		t.Errorf("lock timeout = %v, want 3s", cfg.Memory.LockTimeout.Duration)
	}
}

func TestLoadDefaultsToMemory(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend != BackendMemory {
		t.Errorf("backend = %q, want memory", cfg.Backend)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Backend: BackendMemory}, false},
		{"sqlite ok", Config{Backend: BackendSQLite, SQLite: SQLiteConfig{Path: "x.db"}}, false},
		{"sqlite missing path", Config{Backend: BackendSQLite}, true},
		{"mongo missing uri", Config{Backend: BackendMongo, Mongo: MongoConfig{Database: "d"}}, true},
		{"mongo missing database", Config{Backend: BackendMongo, Mongo: MongoConfig{URI: "mongodb://x"}}, true},
		{"unknown backend", Config{Backend: "etcd"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOpenStoreMemory(t *testing.T) {
	st, err := Config{Backend: BackendMemory}.OpenStore()
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer st.Close()

	if err := st.Ping(t.Context()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}
