// Package config loads the typed, immutable configuration for a
// project-scoped kuzu-memory store from config.yaml plus KUZU_MEMORY_*
// environment overrides (spec §6.1). There is no ambient/global config
// access anywhere else in the module — every component receives a *Config
// through its constructor.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// StorageConfig controls the on-disk graph database (spec §6.1).
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	MaxSizeMB    int    `yaml:"max_size_mb"`
	AutoCompact  bool   `yaml:"auto_compact"`
}

// RecallConfig controls recall engine defaults.
type RecallConfig struct {
	MaxMemories int      `yaml:"max_memories"`
	Strategies  []string `yaml:"strategies"`
}

// PerformanceConfig controls latency budgets and the connection pool.
type PerformanceConfig struct {
	MaxRecallTimeMs       int `yaml:"max_recall_time_ms"`
	MaxGenerationTimeMs   int `yaml:"max_generation_time_ms"`
	ConnectionPoolSize    int `yaml:"connection_pool_size"`
	WriteRetryBaseMs      int `yaml:"write_retry_base_ms"`
	WriteRetryMaxAttempts int `yaml:"write_retry_max_attempts"`
}

// LearningConfig controls ingestion-time validation and the secrets filter.
type LearningConfig struct {
	MinContentLength int      `yaml:"min_content_length"`
	ExcludedPatterns []string `yaml:"excluded_patterns"`
	AutoTagGitUser   bool     `yaml:"auto_tag_git_user"`
	UserIDOverride   string   `yaml:"user_id_override"`
}

// GitSyncConfig controls the git history importer (spec §4.8).
type GitSyncConfig struct {
	Enabled               bool     `yaml:"enabled"`
	BranchIncludePatterns []string `yaml:"branch_include_patterns"`
	BranchExcludePatterns []string `yaml:"branch_exclude_patterns"`
	SignificantPrefixes   []string `yaml:"significant_prefixes"`
	SkipPatterns          []string `yaml:"skip_patterns"`
	MinMessageLength      int      `yaml:"min_message_length"`
	IncludeMergeCommits   bool     `yaml:"include_merge_commits"`
	LastSyncTimestamp     string   `yaml:"last_sync_timestamp"`
	LastCommitSHA         string   `yaml:"last_commit_sha"`
}

// Config is the full typed configuration tree for a project-scoped store.
type Config struct {
	Storage     StorageConfig     `yaml:"storage"`
	Recall      RecallConfig      `yaml:"recall"`
	Performance PerformanceConfig `yaml:"performance"`
	Learning    LearningConfig    `yaml:"learning"`
	GitSync     GitSyncConfig     `yaml:"git_sync"`

	// ProjectRoot is the resolved absolute path of the project this config
	// was loaded for. Not part of config.yaml; filled in by Load.
	ProjectRoot string `yaml:"-"`
}

// Default returns a Config populated with the defaults named throughout
// spec §4 and §6.1.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			DatabasePath: "./memorydb",
			MaxSizeMB:    0,
			AutoCompact:  true,
		},
		Recall: RecallConfig{
			MaxMemories: 5,
			Strategies:  []string{"keyword", "entity", "temporal"},
		},
		Performance: PerformanceConfig{
			MaxRecallTimeMs:       100,
			MaxGenerationTimeMs:   200,
			ConnectionPoolSize:    8,
			WriteRetryBaseMs:      100,
			WriteRetryMaxAttempts: 10,
		},
		Learning: LearningConfig{
			MinContentLength: 50,
			ExcludedPatterns: []string{
				`(?i)password\s*[:=]`,
				`(?i)api[_-]?key\s*[:=]`,
				`(?i)bearer\s+[a-z0-9._-]+`,
				`(?i)secret\s*[:=]`,
			},
			AutoTagGitUser: true,
		},
		GitSync: GitSyncConfig{
			Enabled:             false,
			SignificantPrefixes: []string{"feat:", "fix:", "refactor:", "perf:", "BREAKING CHANGE"},
			SkipPatterns:        []string{"wip", "tmp", "chore:", "style:", "docs:"},
			MinMessageLength:    5,
			IncludeMergeCommits: false,
		},
	}
}

// Load resolves projectRoot's on-disk layout (spec §6.1), reads
// <root>/kuzu-memory/config.yaml if present, applies KUZU_MEMORY_*
// environment overrides, and returns the resulting Config. A missing
// config.yaml is not an error — defaults apply.
func Load(projectRoot string) (*Config, error) {
	cfg := Default()
	cfg.ProjectRoot = projectRoot

	configPath := filepath.Join(StoreDir(projectRoot), "config.yaml")
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse %s: %w", configPath, err)
		}
		cfg.ProjectRoot = projectRoot
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: failed to read %s: %w", configPath, err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides mutates cfg in place using KUZU_MEMORY_* environment
// variables, mirroring the teacher's MEMENTO_* override layer.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KUZU_MEMORY_DATABASE_PATH"); v != "" {
		cfg.Storage.DatabasePath = v
	}
	if v := getEnvInt("KUZU_MEMORY_MAX_SIZE_MB"); v != nil {
		cfg.Storage.MaxSizeMB = *v
	}
	if v := getEnvBool("KUZU_MEMORY_AUTO_COMPACT"); v != nil {
		cfg.Storage.AutoCompact = *v
	}
	if v := getEnvInt("KUZU_MEMORY_MAX_MEMORIES"); v != nil {
		cfg.Recall.MaxMemories = *v
	}
	if v := getEnvInt("KUZU_MEMORY_MAX_RECALL_TIME_MS"); v != nil {
		cfg.Performance.MaxRecallTimeMs = *v
	}
	if v := getEnvInt("KUZU_MEMORY_CONNECTION_POOL_SIZE"); v != nil {
		cfg.Performance.ConnectionPoolSize = *v
	}
	if v := os.Getenv("KUZU_MEMORY_USER_ID_OVERRIDE"); v != "" {
		cfg.Learning.UserIDOverride = v
	}
}

func getEnvInt(key string) *int {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &n
}

func getEnvBool(key string) *bool {
	v := os.Getenv(key)
	switch v {
	case "true", "1", "yes":
		b := true
		return &b
	case "false", "0", "no":
		b := false
		return &b
	}
	return nil
}

// DatabasePath returns the absolute path to the embedded graph database
// directory for this config.
func (c *Config) DatabasePath() string {
	if filepath.IsAbs(c.Storage.DatabasePath) {
		return c.Storage.DatabasePath
	}
	return filepath.Join(StoreDir(c.ProjectRoot), filepath.Base(c.Storage.DatabasePath))
}

// SaveGitSyncCursor persists the git importer's incremental cursor
// (spec §4.8 last_synced_sha) back to config.yaml, read-modify-write so
// concurrent manual edits to unrelated keys aren't clobbered by a stale
// in-memory copy.
func SaveGitSyncCursor(projectRoot, lastSHA, lastSyncTimestamp string) error {
	cfg, err := Load(projectRoot)
	if err != nil {
		return err
	}
	cfg.GitSync.LastCommitSHA = lastSHA
	cfg.GitSync.LastSyncTimestamp = lastSyncTimestamp

	if err := EnsureLayout(projectRoot); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: failed to marshal git sync cursor: %w", err)
	}
	configPath := filepath.Join(StoreDir(projectRoot), "config.yaml")
	return os.WriteFile(configPath, data, 0o600)
}
