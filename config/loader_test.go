package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mickamy/voltgo/config"
	"github.com/mickamy/voltgo/protocol"
)

func TestLoadAppliesDefaultsWithNoFileOrEnv(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HashScheme != protocol.HashSHA256 {
		t.Errorf("HashScheme = %v, want HashSHA256", cfg.HashScheme)
	}
	if cfg.MaxOutstandingRequests != 4000 {
		t.Errorf("MaxOutstandingRequests = %d, want 4000", cfg.MaxOutstandingRequests)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestLoadReadsEnvOverrides(t *testing.T) {
	t.Setenv("VOLTGO_USERNAME", "admin")
	t.Setenv("VOLTGO_PASSWORD", "secret")
	t.Setenv("VOLTGO_AUTO_RECONNECT", "true")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Username != "admin" {
		t.Errorf("Username = %q, want admin", cfg.Username)
	}
	if cfg.Password != "secret" {
		t.Errorf("Password = %q, want secret", cfg.Password)
	}
	if !cfg.AutoReconnect {
		t.Error("AutoReconnect = false, want true")
	}
}

func TestLoadReadsYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "voltgo.yaml")
	contents := "username: fromfile\nhash_scheme: sha1\nenable_query_timeout: true\nquery_timeout: 5s\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Username != "fromfile" {
		t.Errorf("Username = %q, want fromfile", cfg.Username)
	}
	if cfg.HashScheme != protocol.HashSHA1 {
		t.Errorf("HashScheme = %v, want HashSHA1", cfg.HashScheme)
	}
	if !cfg.EnableQueryTimeout {
		t.Error("EnableQueryTimeout = false, want true")
	}
	if cfg.QueryTimeout.Seconds() != 5 {
		t.Errorf("QueryTimeout = %v, want 5s", cfg.QueryTimeout)
	}
}

func TestLoadRejectsUnknownHashScheme(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "voltgo.yaml")
	if err := os.WriteFile(path, []byte("hash_scheme: md5\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := config.Load(path); err == nil {
		t.Fatal("Load: want error for unknown hash_scheme")
	}
}
