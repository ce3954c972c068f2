// Package config resolves hierarchical configuration for the memory
// engine: server defaults, overridden by per-bank settings, overridden
// by call-site options. Each layer is a plain struct merged over the
// previous one (see Resolve for which fields are merged and how),
// producing one immutable Config value per operation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config is the fully resolved configuration for one engine operation.
type Config struct {
	Profile       string              `mapstructure:"profile"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Embedding     EmbeddingConfig     `mapstructure:"embedding"`
	CrossEncoder  CrossEncoderConfig  `mapstructure:"cross_encoder"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Consolidation ConsolidationConfig `mapstructure:"consolidation"`
	Recall        RecallConfig        `mapstructure:"recall"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // "sqlite3" or "sqlite" (pure-Go)
	Path   string `mapstructure:"path"`
}

type EmbeddingConfig struct {
	Provider  string `mapstructure:"provider"` // "ollama"
	BaseURL   string `mapstructure:"base_url"`
	Model     string `mapstructure:"model"`
	Dimension int    `mapstructure:"dimension"`
}

type CrossEncoderConfig struct {
	Provider string `mapstructure:"provider"`
	BaseURL  string `mapstructure:"base_url"`
	Model    string `mapstructure:"model"`
}

type LLMConfig struct {
	Provider       string `mapstructure:"provider"` // "anthropic" or "ollama"
	BaseURL        string `mapstructure:"base_url"`
	Model          string `mapstructure:"model"`
	APIKey         string `mapstructure:"api_key"`
	MaxConcurrency int    `mapstructure:"max_concurrency"`
	MaxRetries     int    `mapstructure:"max_retries"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type ConsolidationConfig struct {
	Enabled             bool `mapstructure:"enabled"`
	BatchSize           int  `mapstructure:"batch_size"`
	MaxTokensPerBatch   int  `mapstructure:"max_tokens_per_batch"`
	RecallTokenBudget   int  `mapstructure:"recall_token_budget"`
	MaxLLMAttempts      int  `mapstructure:"max_llm_attempts"`
}

type RecallConfig struct {
	BudgetLow           int     `mapstructure:"budget_low"`
	BudgetMid           int     `mapstructure:"budget_mid"`
	BudgetHigh          int     `mapstructure:"budget_high"`
	DiversityThreshold  float64 `mapstructure:"diversity_threshold"`
	WeightRerank        float64 `mapstructure:"weight_rerank"`
	WeightTypeBonus     float64 `mapstructure:"weight_type_bonus"`
	WeightRecency       float64 `mapstructure:"weight_recency"`
	WeightLength        float64 `mapstructure:"weight_length"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// Default returns the built-in server-level defaults.
func Default() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		Profile: "default",
		Database: DatabaseConfig{
			Driver: "sqlite3",
			Path:   filepath.Join(home, ".hindsight", "hindsight.db"),
		},
		Embedding: EmbeddingConfig{
			Provider:  "ollama",
			BaseURL:   "http://localhost:11434",
			Model:     "nomic-embed-text",
			Dimension: 768,
		},
		CrossEncoder: CrossEncoderConfig{
			Provider: "ollama",
			BaseURL:  "http://localhost:11434",
			Model:    "cross-encoder",
		},
		LLM: LLMConfig{
			Provider:       "anthropic",
			Model:          "claude-3-5-haiku-latest",
			MaxConcurrency: 32,
			MaxRetries:     10,
			TimeoutSeconds: 60,
		},
		Consolidation: ConsolidationConfig{
			Enabled:           true,
			BatchSize:         40,
			MaxTokensPerBatch: 8000,
			RecallTokenBudget: 4000,
			MaxLLMAttempts:    3,
		},
		Recall: RecallConfig{
			BudgetLow:          20,
			BudgetMid:          60,
			BudgetHigh:         200,
			DiversityThreshold: 0.75,
			WeightRerank:       0.6,
			WeightTypeBonus:    0.15,
			WeightRecency:      0.15,
			WeightLength:       0.1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
	}
}

// Load reads configuration from a YAML file on disk layered over
// Default(), following the teacher's viper search-path convention
// (./config.yaml, then ~/.hindsight/config.yaml, then /etc/hindsight).
func Load() (Config, error) {
	v := newViper()
	cfg := Default()

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		return cfg, nil
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".hindsight"))
	}
	v.AddConfigPath("/etc/hindsight")
	v.SetEnvPrefix("HINDSIGHT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

// Watch reads the config file once and then re-reads it on every
// subsequent on-disk change, invoking onChange with the freshly
// resolved Config each time. Used by the daemon to pick up edits to
// consolidation/recall tuning without a restart.
func Watch(onChange func(Config)) error {
	v := newViper()

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		cfg := Default()
		if err := v.Unmarshal(&cfg); err != nil {
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

// Resolve merges bank-level overrides and call-site overrides over the
// server defaults, in that precedence order, mirroring the teacher's
// layered-default pattern in pkg/config but generalized to three layers
// instead of one. An override applies field by field, and only where
// non-zero, for Profile, Database.Driver, Database.Path, LLM.Provider,
// LLM.Model, LLM.MaxConcurrency, Consolidation.BatchSize and
// Consolidation.RecallTokenBudget. Embedding, CrossEncoder and Recall
// are replaced as whole structs when the override's Embedding.Provider,
// CrossEncoder.Provider or Recall.BudgetLow is non-zero, zero fields
// included. All other fields (LLM.BaseURL, LLM.APIKey, LLM.MaxRetries,
// LLM.TimeoutSeconds, the remaining Consolidation fields, and Logging)
// are never taken from an override.
func Resolve(serverDefaults Config, bankOverrides, callSiteOverrides *Config) Config {
	out := serverDefaults
	if bankOverrides != nil {
		out = mergeNonZero(out, *bankOverrides)
	}
	if callSiteOverrides != nil {
		out = mergeNonZero(out, *callSiteOverrides)
	}
	return out
}

func mergeNonZero(base, override Config) Config {
	if override.Profile != "" {
		base.Profile = override.Profile
	}
	if override.Database.Driver != "" {
		base.Database.Driver = override.Database.Driver
	}
	if override.Database.Path != "" {
		base.Database.Path = override.Database.Path
	}
	if override.Embedding.Provider != "" {
		base.Embedding = override.Embedding
	}
	if override.CrossEncoder.Provider != "" {
		base.CrossEncoder = override.CrossEncoder
	}
	if override.LLM.Provider != "" {
		base.LLM.Provider = override.LLM.Provider
	}
	if override.LLM.Model != "" {
		base.LLM.Model = override.LLM.Model
	}
	if override.LLM.MaxConcurrency != 0 {
		base.LLM.MaxConcurrency = override.LLM.MaxConcurrency
	}
	if override.Consolidation.BatchSize != 0 {
		base.Consolidation.BatchSize = override.Consolidation.BatchSize
	}
	if override.Consolidation.RecallTokenBudget != 0 {
		base.Consolidation.RecallTokenBudget = override.Consolidation.RecallTokenBudget
	}
	if override.Recall.BudgetLow != 0 {
		base.Recall = override.Recall
	}
	return base
}

// Validate checks required fields and enum values, mirroring the
// teacher's pkg/config.Validate.
func (c Config) Validate() error {
	if c.Database.Driver != "sqlite3" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("database.driver must be sqlite3 or sqlite, got %q", c.Database.Driver)
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding.dimension must be positive")
	}
	if c.LLM.MaxConcurrency <= 0 {
		return fmt.Errorf("llm.max_concurrency must be positive")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level invalid: %q", c.Logging.Level)
	}
	return nil
}
