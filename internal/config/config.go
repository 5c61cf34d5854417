package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileName is the name of the configuration file inside a config directory.
const FileName = "config.json"

// Config holds application configuration.
type Config struct {
	// Root is the base directory holding ccp.json, store/ and temp/.
	// When set in a config file it takes precedence over the root given on
	// the command line.
	Root string `json:"root,omitempty"`

	// OpTimeoutMillis bounds every storage operation started by ops.
	OpTimeoutMillis int `json:"op_timeout_ms,omitempty"`

	// AllocRetries is how many compare-and-swap attempts the identity
	// allocator makes before reporting a conflict.
	AllocRetries int `json:"alloc_retries,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is locked" errors).
	// 0 means use sql.DB default (unlimited). Only set if you experience contention.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// AllowUnsafePaths disables directory restrictions for import/export.
	// When false, files must sit directly in {root}/exports or one of
	// AllowedPaths.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// AllowedPaths lists extra absolute directories import and export may
	// use. Relative entries are ignored.
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		OpTimeoutMillis: 10000,
		AllocRetries:    16,
		LogLevel:        "info",
	}
}

// OpTimeout returns the per-operation timeout as a duration.
func (c *Config) OpTimeout() time.Duration {
	if c == nil || c.OpTimeoutMillis <= 0 {
		return time.Duration(DefaultConfig().OpTimeoutMillis) * time.Millisecond
	}
	return time.Duration(c.OpTimeoutMillis) * time.Millisecond
}

// Load loads configuration from dir/config.json.
// Returns default config if the file doesn't exist.
// The dir parameter allows tests to use t.TempDir() instead of ~/.ccp.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func LoadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// ResolveRoot picks the storage root. A root named in the configuration file
// wins; otherwise fallback is used. A leading "~/" is expanded.
func ResolveRoot(cfg *Config, fallback string) (string, error) {
	root := fallback
	if cfg != nil && strings.TrimSpace(cfg.Root) != "" {
		root = strings.TrimSpace(cfg.Root)
	}
	if root == "" {
		return "", errors.New("no root directory configured")
	}

	if strings.HasPrefix(root, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		root = filepath.Join(homeDir, root[2:])
	}

	return filepath.Abs(root)
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	// Scalars: overlay wins if non-zero, else base
	result.Root = overlay.Root
	if result.Root == "" {
		result.Root = base.Root
	}

	result.OpTimeoutMillis = overlay.OpTimeoutMillis
	if result.OpTimeoutMillis == 0 {
		result.OpTimeoutMillis = base.OpTimeoutMillis
	}

	result.AllocRetries = overlay.AllocRetries
	if result.AllocRetries == 0 {
		result.AllocRetries = base.AllocRetries
	}

	result.DBMaxOpenConns = overlay.DBMaxOpenConns
	if result.DBMaxOpenConns == 0 {
		result.DBMaxOpenConns = base.DBMaxOpenConns
	}

	result.DBMaxIdleConns = overlay.DBMaxIdleConns
	if result.DBMaxIdleConns == 0 {
		result.DBMaxIdleConns = base.DBMaxIdleConns
	}

	result.LogLevel = strings.ToLower(strings.TrimSpace(overlay.LogLevel))
	if result.LogLevel == "" {
		result.LogLevel = base.LogLevel
	}

	// Booleans: overlay wins if true, else base
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	// Arrays: merge and deduplicate
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
