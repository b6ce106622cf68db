package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Errorf("Addr = %s, want :8080", cfg.Server.Addr)
	}
	if cfg.Store.DataDir != "./data" {
		t.Errorf("DataDir = %s", cfg.Store.DataDir)
	}
	if cfg.Keys.Segments != 5 || cfg.Keys.SegmentLength != 5 {
		t.Errorf("Key layout = %dx%d, want 5x5", cfg.Keys.Segments, cfg.Keys.SegmentLength)
	}
	if cfg.Gateway.Cooldown.Std() != 3*time.Second {
		t.Errorf("Cooldown = %v, want 3s", cfg.Gateway.Cooldown)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log level = %s, want info", cfg.Log.Level)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  addr: ":9090"
store:
  data_dir: /var/lib/entitlements
  backups: true
keys:
  segments: 4
  segment_length: 6
  character_set: "0123456789ABCDEF"
  separator: "-"
  strict_validation: true
gateway:
  owner_id: owner-123
  cooldown: 5s
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Addr != ":9090" {
		t.Errorf("Addr = %s", cfg.Server.Addr)
	}
	if !cfg.Store.Backups {
		t.Error("Backups not enabled")
	}
	if cfg.Keys.Segments != 4 || cfg.Keys.SegmentLength != 6 {
		t.Errorf("Key layout = %dx%d, want 4x6", cfg.Keys.Segments, cfg.Keys.SegmentLength)
	}
	if !cfg.Keys.StrictValidation {
		t.Error("StrictValidation not set")
	}
	if cfg.Gateway.OwnerID != "owner-123" {
		t.Errorf("OwnerID = %s", cfg.Gateway.OwnerID)
	}
	if cfg.Gateway.Cooldown.Std() != 5*time.Second {
		t.Errorf("Cooldown = %v, want 5s", cfg.Gateway.Cooldown)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log level = %s", cfg.Log.Level)
	}

	// File values must not clobber untouched defaults
	if cfg.Server.ShutdownTimeout.Std() != 15*time.Second {
		t.Errorf("ShutdownTimeout = %v, want default 15s", cfg.Server.ShutdownTimeout)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ENTITLEMENTS_ADDR", ":7070")
	t.Setenv("ENTITLEMENTS_DATA_DIR", "/tmp/ent")
	t.Setenv("ENTITLEMENTS_BACKUPS", "true")
	t.Setenv("ENTITLEMENTS_LOG_LEVEL", "warn")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Addr != ":7070" {
		t.Errorf("Addr = %s, env override lost", cfg.Server.Addr)
	}
	if cfg.Store.DataDir != "/tmp/ent" {
		t.Errorf("DataDir = %s", cfg.Store.DataDir)
	}
	if !cfg.Store.Backups {
		t.Error("Backups env override lost")
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log level = %s", cfg.Log.Level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("Load() on missing file did not error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"Defaults pass", func(c *Config) {}, false},
		{"Empty addr", func(c *Config) { c.Server.Addr = "" }, true},
		{"Bad log level", func(c *Config) { c.Log.Level = "verbose" }, true},
		{"No store configured", func(c *Config) { c.Store.DataDir = "" }, true},
		{"Database URL without data dir", func(c *Config) {
			c.Store.DataDir = ""
			c.Store.DatabaseURL = "postgres://localhost/ent"
		}, false},
		{"Short JWT secret", func(c *Config) { c.Auth.JWTSecret = "short" }, true},
		{"Weak operator password", func(c *Config) {
			c.Auth.Operators = []OperatorConfig{{Username: "alice", Password: "short", Role: "owner"}}
		}, true},
		{"Bad operator role", func(c *Config) {
			c.Auth.Operators = []OperatorConfig{{Username: "alice", Password: "password123", Role: "admin"}}
		}, true},
		{"Broken key layout", func(c *Config) { c.Keys.Segments = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
