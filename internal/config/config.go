// Package config provides YAML-backed configuration for Lorekeep.
//
// Precedence, lowest to highest:
//  1. Built-in defaults (NewConfig)
//  2. Config file (~/.lorekeep/config.yaml or --config)
//  3. Environment variables (LOREKEEP_*)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	lkerrors "github.com/lorekeep/lorekeep/internal/errors"
)

// Config represents the complete Lorekeep configuration.
type Config struct {
	Version   int             `yaml:"version" json:"version"`
	Storage   StorageConfig   `yaml:"storage" json:"storage"`
	Search    SearchConfig    `yaml:"search" json:"search"`
	Analyzer  AnalyzerConfig  `yaml:"analyzer" json:"analyzer"`
	Graph     GraphConfig     `yaml:"graph" json:"graph"`
	Cache     CacheConfig     `yaml:"cache" json:"cache"`
	Validator ValidatorConfig `yaml:"validator" json:"validator"`
	Server    ServerConfig    `yaml:"server" json:"server"`
}

// StorageConfig configures on-disk locations for indexes and collections.
type StorageConfig struct {
	// DataDir is the root directory for indexes and the collection store.
	// Defaults to ~/.lorekeep.
	DataDir string `yaml:"data_dir" json:"data_dir"`
}

// SearchConfig configures strategy selection and fusion.
//
// The inclusion threshold and per-provider default thresholds are tuning
// knobs inherited from the original system; they are configuration, not
// hardcoded literals, so deployments can adjust them.
type SearchConfig struct {
	// InclusionThreshold is the minimum analysis weight for a capability
	// to be selected as a strategy (default: 0.1).
	InclusionThreshold float64 `yaml:"inclusion_threshold" json:"inclusion_threshold"`

	// KeywordThreshold is the default minimum score for keyword results (default: 0.3).
	KeywordThreshold float64 `yaml:"keyword_threshold" json:"keyword_threshold"`

	// FuzzyThreshold is the default minimum similarity for fuzzy results (default: 0.6).
	FuzzyThreshold float64 `yaml:"fuzzy_threshold" json:"fuzzy_threshold"`

	// RRFConstant is the RRF fusion smoothing parameter k.
	// Default: 60 (industry standard used by Azure AI Search, OpenSearch).
	RRFConstant int `yaml:"rrf_constant" json:"rrf_constant"`

	// DefaultLimit is the default number of fused results (default: 50).
	DefaultLimit int `yaml:"default_limit" json:"default_limit"`

	// MaxLimit is the maximum allowed result count (default: 200).
	MaxLimit int `yaml:"max_limit" json:"max_limit"`

	// StrategyTimeout bounds each provider call; expiry is treated as a
	// provider failure so one slow provider cannot stall the search.
	// Default: 2s.
	StrategyTimeout time.Duration `yaml:"strategy_timeout" json:"strategy_timeout"`
}

// AnalyzerConfig configures the query analyzer.
type AnalyzerConfig struct {
	// CacheSize is the LRU cache size for analysis results (default: 10000).
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// GraphConfig configures link-graph boosting applied after fusion.
type GraphConfig struct {
	// Enabled toggles graph boosting on the RRF path (default: true).
	Enabled bool `yaml:"enabled" json:"enabled"`

	// BoostFactor is the per-hop score transfer factor (default: 0.3).
	BoostFactor float64 `yaml:"boost_factor" json:"boost_factor"`

	// MaxDistance is the propagation depth in hops (default: 1).
	MaxDistance int `yaml:"max_distance" json:"max_distance"`
}

// CacheConfig configures the hybrid search result cache.
type CacheConfig struct {
	// Enabled toggles result caching (default: true).
	Enabled bool `yaml:"enabled" json:"enabled"`

	// TTL is the entry time-to-live (default: 5m).
	TTL time.Duration `yaml:"ttl" json:"ttl"`

	// MaxSize is the maximum number of cached entries (default: 500).
	MaxSize int `yaml:"max_size" json:"max_size"`

	// EvictionStrategy selects the eviction policy: lru, fifo, or ttl (default: lru).
	EvictionStrategy string `yaml:"eviction_strategy" json:"eviction_strategy"`
}

// ValidatorConfig configures the search dependency validator.
type ValidatorConfig struct {
	// HealthCacheTTL is the collection-health staleness window (default: 30s).
	// It is the only explicit staleness window in the system and must be
	// invalidated on any mutating collection operation.
	HealthCacheTTL time.Duration `yaml:"health_cache_ttl" json:"health_cache_ttl"`
}

// ServerConfig configures the MCP server and logging.
type ServerConfig struct {
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Search: SearchConfig{
			InclusionThreshold: 0.1,
			KeywordThreshold:   0.3,
			FuzzyThreshold:     0.6,
			RRFConstant:        60,
			DefaultLimit:       50,
			MaxLimit:           200,
			StrategyTimeout:    2 * time.Second,
		},
		Analyzer: AnalyzerConfig{
			CacheSize: 10000,
		},
		Graph: GraphConfig{
			Enabled:     true,
			BoostFactor: 0.3,
			MaxDistance: 1,
		},
		Cache: CacheConfig{
			Enabled:          true,
			TTL:              5 * time.Minute,
			MaxSize:          500,
			EvictionStrategy: "lru",
		},
		Validator: ValidatorConfig{
			HealthCacheTTL: 30 * time.Second,
		},
		Server: ServerConfig{
			LogLevel: "info",
		},
	}
}

// defaultDataDir returns ~/.lorekeep, falling back to the working directory.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lorekeep"
	}
	return filepath.Join(home, ".lorekeep")
}

// Load reads configuration from a YAML file, applies defaults for missing
// fields, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Missing config file is not an error; defaults apply.
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, lkerrors.Wrap(lkerrors.ErrCodeConfigNotFound, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, lkerrors.New(lkerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("parse %s: %v", path, err), err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to a YAML file, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// applyEnvOverrides applies LOREKEEP_* environment variables.
func (c *Config) applyEnvOverrides() {
	if v, ok := lookupFloat("LOREKEEP_INCLUSION_THRESHOLD"); ok {
		c.Search.InclusionThreshold = v
	}
	if v, ok := lookupFloat("LOREKEEP_KEYWORD_THRESHOLD"); ok {
		c.Search.KeywordThreshold = v
	}
	if v, ok := lookupFloat("LOREKEEP_FUZZY_THRESHOLD"); ok {
		c.Search.FuzzyThreshold = v
	}
	if v, ok := lookupInt("LOREKEEP_RRF_CONSTANT"); ok {
		c.Search.RRFConstant = v
	}
	if v, ok := lookupFloat("LOREKEEP_GRAPH_BOOST_FACTOR"); ok {
		c.Graph.BoostFactor = v
	}
	if v, ok := lookupDuration("LOREKEEP_CACHE_TTL"); ok {
		c.Cache.TTL = v
	}
	if v := os.Getenv("LOREKEEP_DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
}

func lookupFloat(key string) (float64, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func lookupInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func lookupDuration(key string) (time.Duration, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, false
	}
	return d, true
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Search.InclusionThreshold < 0 || c.Search.InclusionThreshold >= 1 {
		return lkerrors.New(lkerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("inclusion_threshold must be in [0,1): %f", c.Search.InclusionThreshold), nil)
	}
	if c.Search.KeywordThreshold < 0 || c.Search.KeywordThreshold > 1 {
		return lkerrors.New(lkerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("keyword_threshold must be in [0,1]: %f", c.Search.KeywordThreshold), nil)
	}
	if c.Search.FuzzyThreshold < 0 || c.Search.FuzzyThreshold > 1 {
		return lkerrors.New(lkerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("fuzzy_threshold must be in [0,1]: %f", c.Search.FuzzyThreshold), nil)
	}
	if c.Search.RRFConstant <= 0 {
		return lkerrors.New(lkerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("rrf_constant must be positive: %d", c.Search.RRFConstant), nil)
	}
	if c.Graph.BoostFactor < 0 {
		return lkerrors.New(lkerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("graph boost_factor must be non-negative: %f", c.Graph.BoostFactor), nil)
	}
	if c.Graph.MaxDistance < 0 {
		return lkerrors.New(lkerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("graph max_distance must be non-negative: %d", c.Graph.MaxDistance), nil)
	}
	switch c.Cache.EvictionStrategy {
	case "lru", "fifo", "ttl":
	default:
		return lkerrors.New(lkerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("unknown eviction_strategy: %q", c.Cache.EvictionStrategy), nil)
	}
	return nil
}

// DefaultConfigPath returns the default config file location.
func DefaultConfigPath() string {
	return filepath.Join(defaultDataDir(), "config.yaml")
}
