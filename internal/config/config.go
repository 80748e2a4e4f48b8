// Package config loads and validates cgraph's on-disk configuration using
// github.com/spf13/viper, the way the teacher's internal/config/config.go
// loads .ckb/config.json.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	cgraphErrors "cgraph/internal/errors"
)

// Config is the full, versioned cgraph configuration (spec §6).
type Config struct {
	Version  int    `json:"version" mapstructure:"version"`
	RepoRoot string `json:"repoRoot" mapstructure:"repoRoot"`

	Search   SearchConfig   `json:"search" mapstructure:"search"`
	Database DatabaseConfig `json:"database" mapstructure:"database"`
	Indexing IndexingConfig `json:"indexing" mapstructure:"indexing"`
	Watch    WatchConfig    `json:"watch" mapstructure:"watch"`
	Impact     ImpactConfig     `json:"impact" mapstructure:"impact"`
	Logging    LoggingConfig    `json:"logging" mapstructure:"logging"`
	Dispatcher DispatcherConfig `json:"dispatcher" mapstructure:"dispatcher"`
}

// SearchConfig bounds search inputs (spec §6 Search).
type SearchConfig struct {
	PatternMaxLength  int `json:"patternMaxLength" mapstructure:"patternMaxLength"`
	SearchTimeoutSecs int `json:"searchTimeoutSecs" mapstructure:"searchTimeoutSecs"`
}

// DatabaseConfig bounds the store's reader pool (spec §6 Database).
type DatabaseConfig struct {
	PoolSize    int `json:"poolSize" mapstructure:"poolSize"`
	PoolMinIdle int `json:"poolMinIdle" mapstructure:"poolMinIdle"`
}

// IndexingConfig bounds the batch writer (spec §6 Indexing, §4.E).
type IndexingConfig struct {
	BatchSize        int `json:"batchSize" mapstructure:"batchSize"`
	FlushIntervalMs  int `json:"flushIntervalMs" mapstructure:"flushIntervalMs"`
	BatchMemLimitMB  int `json:"batchMemLimitMb" mapstructure:"batchMemLimitMb"`
	LargeFileSkipMB  int `json:"largeFileSkipMb" mapstructure:"largeFileSkipMb"`
	IndexTests       bool `json:"indexTests" mapstructure:"indexTests"`
}

// WatchConfig bounds the watch loop's debouncer (spec §6 Watch, §4.G).
type WatchConfig struct {
	UrgentDebounceMs  int `json:"urgentDebounceMs" mapstructure:"urgentDebounceMs"`
	NormalDebounceMs  int `json:"normalDebounceMs" mapstructure:"normalDebounceMs"`
	UrgentWindowSecs  int `json:"urgentWindowSecs" mapstructure:"urgentWindowSecs"`
	BatchThreshold    int `json:"batchThreshold" mapstructure:"batchThreshold"`
	FallbackPollSecs  int `json:"fallbackPollSecs" mapstructure:"fallbackPollSecs"`
}

// ImpactConfig bounds multi-layer impact analysis (spec §6 Impact, §4.H).
type ImpactConfig struct {
	BFSMaxDepth  int            `json:"bfsMaxDepth" mapstructure:"bfsMaxDepth"`
	PerHopDecay  float64        `json:"perHopDecay" mapstructure:"perHopDecay"`
	MaxNodes     int            `json:"maxNodes" mapstructure:"maxNodes"`
	LayerEnabled map[string]bool `json:"layerEnabled" mapstructure:"layerEnabled"`
}

// DispatcherConfig bounds the request/response surface (spec §4.I: "a
// configurable per-method result size cap").
type DispatcherConfig struct {
	ResultSizeCapBytes int `json:"resultSizeCapBytes" mapstructure:"resultSizeCapBytes"`
}

// LoggingConfig selects the ambient logger's behavior.
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

const schemaVersion = 1

// Default returns the configuration with every default named in spec §6.
func Default() *Config {
	return &Config{
		Version:  schemaVersion,
		RepoRoot: ".",
		Search: SearchConfig{
			PatternMaxLength:  10000,
			SearchTimeoutSecs: 30,
		},
		Database: DatabaseConfig{
			PoolSize:    10,
			PoolMinIdle: 2,
		},
		Indexing: IndexingConfig{
			BatchSize:       100,
			FlushIntervalMs: 500,
			BatchMemLimitMB: 10,
			LargeFileSkipMB: 10,
			IndexTests:      true,
		},
		Watch: WatchConfig{
			UrgentDebounceMs: 50,
			NormalDebounceMs: 300,
			UrgentWindowSecs: 60,
			BatchThreshold:   1000,
			FallbackPollSecs: 300,
		},
		Impact: ImpactConfig{
			BFSMaxDepth: 3,
			PerHopDecay: 0.7,
			MaxNodes:    500,
			LayerEnabled: map[string]bool{
				"direct":     true,
				"test":       true,
				"historical": true,
				"semantic":   false,
			},
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
		Dispatcher: DispatcherConfig{
			ResultSizeCapBytes: 1 << 20,
		},
	}
}

// Load reads .cgraph/config.json under repoRoot, falling back to Default()
// when no config file is present. An invalid file is a Configuration error,
// never silently replaced by defaults (spec §7).
func Load(repoRoot string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(repoRoot, ".cgraph"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			cfg := Default()
			cfg.RepoRoot = repoRoot
			return cfg, nil
		}
		return nil, cgraphErrors.Wrap(cgraphErrors.Configuration, "failed to read config file", err)
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, cgraphErrors.Wrap(cgraphErrors.Configuration, "failed to unmarshal config", err)
	}
	cfg.RepoRoot = repoRoot
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to .cgraph/config.json.
func (c *Config) Save(repoRoot string) error {
	dir := filepath.Join(repoRoot, ".cgraph")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return cgraphErrors.Wrap(cgraphErrors.IO, "failed to create .cgraph directory", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return cgraphErrors.Wrap(cgraphErrors.Internal, "failed to marshal config", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), data, 0o644); err != nil {
		return cgraphErrors.Wrap(cgraphErrors.IO, "failed to write config file", err)
	}
	return nil
}

// Validate rejects structurally invalid configuration rather than silently
// substituting defaults (spec §7, Configuration errors).
func (c *Config) Validate() error {
	if c.Version != schemaVersion {
		return cgraphErrors.New(cgraphErrors.Configuration, "unsupported config version")
	}
	if c.Search.PatternMaxLength <= 0 {
		return cgraphErrors.New(cgraphErrors.Configuration, "search.patternMaxLength must be positive")
	}
	if c.Database.PoolSize <= 0 {
		return cgraphErrors.New(cgraphErrors.Configuration, "database.poolSize must be positive")
	}
	if c.Impact.PerHopDecay <= 0 || c.Impact.PerHopDecay > 1 {
		return cgraphErrors.New(cgraphErrors.Configuration, "impact.perHopDecay must be in (0, 1]")
	}
	if c.Watch.UrgentDebounceMs <= 0 || c.Watch.NormalDebounceMs <= 0 {
		return cgraphErrors.New(cgraphErrors.Configuration, "watch debounce values must be positive")
	}
	if c.Dispatcher.ResultSizeCapBytes <= 0 {
		return cgraphErrors.New(cgraphErrors.Configuration, "dispatcher.resultSizeCapBytes must be positive")
	}
	return nil
}
