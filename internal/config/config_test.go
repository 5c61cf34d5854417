package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultWhenMissing(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.AllocRetries != DefaultConfig().AllocRetries {
		t.Fatalf("AllocRetries = %d, want %d", cfg.AllocRetries, DefaultConfig().AllocRetries)
	}
	if cfg.OpTimeout() != 10*time.Second {
		t.Fatalf("OpTimeout() = %v, want 10s", cfg.OpTimeout())
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{"op_timeout_ms": 500, "alloc_retries": 3, "log_level": "DEBUG"}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.OpTimeout() != 500*time.Millisecond {
		t.Fatalf("OpTimeout() = %v, want 500ms", cfg.OpTimeout())
	}
	if cfg.AllocRetries != 3 {
		t.Fatalf("AllocRetries = %d, want 3", cfg.AllocRetries)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{not json}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := Load(tmpDir); err == nil {
		t.Fatalf("Load() expected error, got nil")
	}
}

func TestLoad_DisabledTools(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{"disabled_tools": ["entry_import", " entry_import ", "entry_update"]}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.DisabledTools) != 2 {
		t.Fatalf("DisabledTools = %v, want 2 deduplicated entries", cfg.DisabledTools)
	}
	if cfg.DisabledTools[0] != "entry_import" {
		t.Errorf("DisabledTools[0] = %q, want %q", cfg.DisabledTools[0], "entry_import")
	}
}

func TestResolveRoot_ConfigWins(t *testing.T) {
	fileRoot := t.TempDir()
	cfg := &Config{Root: fileRoot}

	got, err := ResolveRoot(cfg, "/somewhere/else")
	if err != nil {
		t.Fatalf("ResolveRoot() error = %v", err)
	}
	if got != fileRoot {
		t.Errorf("ResolveRoot() = %q, want %q", got, fileRoot)
	}
}

func TestResolveRoot_Fallback(t *testing.T) {
	fallback := t.TempDir()

	got, err := ResolveRoot(DefaultConfig(), fallback)
	if err != nil {
		t.Fatalf("ResolveRoot() error = %v", err)
	}
	if got != fallback {
		t.Errorf("ResolveRoot() = %q, want %q", got, fallback)
	}
}

func TestResolveRoot_ExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	got, err := ResolveRoot(nil, "~/ccp-data")
	if err != nil {
		t.Fatalf("ResolveRoot() error = %v", err)
	}
	if got != filepath.Join(home, "ccp-data") {
		t.Errorf("ResolveRoot() = %q, want %q", got, filepath.Join(home, "ccp-data"))
	}
}

func TestResolveRoot_Empty(t *testing.T) {
	if _, err := ResolveRoot(nil, ""); err == nil {
		t.Fatal("ResolveRoot() expected error for empty root")
	}
}

func TestMerge(t *testing.T) {
	base := &Config{OpTimeoutMillis: 1000, AllocRetries: 4, DisabledTools: []string{"entry_import"}}
	overlay := &Config{AllocRetries: 8, AllowUnsafePaths: true, AllowedPaths: []string{"/data/ccp"}, DisabledTools: []string{"entry_update"}}

	got := Merge(base, overlay)

	if got.OpTimeoutMillis != 1000 {
		t.Errorf("OpTimeoutMillis = %d, want 1000 (base)", got.OpTimeoutMillis)
	}
	if got.AllocRetries != 8 {
		t.Errorf("AllocRetries = %d, want 8 (overlay)", got.AllocRetries)
	}
	if !got.AllowUnsafePaths {
		t.Error("AllowUnsafePaths = false, want true")
	}
	if len(got.DisabledTools) != 2 {
		t.Errorf("DisabledTools = %v, want merged list", got.DisabledTools)
	}
	if len(got.AllowedPaths) != 1 || got.AllowedPaths[0] != "/data/ccp" {
		t.Errorf("AllowedPaths = %v, want [/data/ccp]", got.AllowedPaths)
	}
}

func TestMerge_EmptyArrays(t *testing.T) {
	got := Merge(&Config{}, &Config{})
	if got.DisabledTools != nil {
		t.Errorf("DisabledTools = %v, want nil", got.DisabledTools)
	}
	if got.AllowedPaths != nil {
		t.Errorf("AllowedPaths = %v, want nil", got.AllowedPaths)
	}
}
