// Package config loads notestream configuration from YAML with
// environment overrides. It is loaded from ~/.notestream/config.yaml by
// default; every key can be overridden by a NOTESTREAM_* variable.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/arclabs561/notestream/internal/activity"
	"github.com/arclabs561/notestream/internal/decision"
	"github.com/arclabs561/notestream/internal/multiscale"
	"github.com/arclabs561/notestream/internal/preprocess"
	"github.com/arclabs561/notestream/internal/temporal"
)

// Config holds all notestream configuration.
type Config struct {
	Temporal   TemporalConfig   `mapstructure:"temporal" yaml:"temporal"`
	Decision   DecisionConfig   `mapstructure:"decision" yaml:"decision"`
	Activity   ActivityConfig   `mapstructure:"activity" yaml:"activity"`
	Preprocess PreprocessConfig `mapstructure:"preprocess" yaml:"preprocess"`
	Session    SessionConfig    `mapstructure:"session" yaml:"session"`
	Watch      WatchConfig      `mapstructure:"watch" yaml:"watch"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
}

// TemporalConfig tunes windowed aggregation across all scales.
type TemporalConfig struct {
	// WindowSizeMs is the base aggregation window in milliseconds
	WindowSizeMs int64 `mapstructure:"window_size_ms" yaml:"window_size_ms"`
	// DecayFactor weighs older notes within a window, in (0, 1]
	DecayFactor float64 `mapstructure:"decay_factor" yaml:"decay_factor"`
	// ErraticismThreshold is the flip rate above which direction
	// consistency is penalized
	ErraticismThreshold float64 `mapstructure:"erraticism_threshold" yaml:"erraticism_threshold"`
	// Scales maps scale names to window sizes in milliseconds
	Scales map[string]int64 `mapstructure:"scales" yaml:"scales"`
	// AttentionWeights applies salience and attention multipliers during
	// multi-scale aggregation
	AttentionWeights bool `mapstructure:"attention_weights" yaml:"attention_weights"`
}

// DecisionConfig tunes the sequential decision context.
type DecisionConfig struct {
	// MaxHistory is the number of retained decisions
	MaxHistory int `mapstructure:"max_history" yaml:"max_history"`
	// AdaptationEnabled turns prompt adaptation on
	AdaptationEnabled bool `mapstructure:"adaptation_enabled" yaml:"adaptation_enabled"`
	// VarianceIncreasePct is the rise over baseline that emits an event
	VarianceIncreasePct float64 `mapstructure:"variance_increase_pct" yaml:"variance_increase_pct"`
}

// ActivityConfig tunes burst detection.
type ActivityConfig struct {
	// RecentWindowMs is the trailing window considered current
	RecentWindowMs int64 `mapstructure:"recent_window_ms" yaml:"recent_window_ms"`
	// HighRatePerSec is the rate above which activity is high
	HighRatePerSec float64 `mapstructure:"high_rate_per_sec" yaml:"high_rate_per_sec"`
	// LowRatePerSec is the rate below which activity is low
	LowRatePerSec float64 `mapstructure:"low_rate_per_sec" yaml:"low_rate_per_sec"`
	// StabilityEpsilon is the recent score variance below which the
	// stream counts as stable
	StabilityEpsilon float64 `mapstructure:"stability_epsilon" yaml:"stability_epsilon"`
}

// PreprocessConfig tunes the snapshot cache.
type PreprocessConfig struct {
	// CacheMaxAge bounds how old a snapshot may be and still be served
	CacheMaxAge time.Duration `mapstructure:"cache_max_age" yaml:"cache_max_age"`
	// CountDeltaPct is the allowed note count drift against a snapshot
	CountDeltaPct float64 `mapstructure:"count_delta_pct" yaml:"count_delta_pct"`
}

// SessionConfig locates the session database.
type SessionConfig struct {
	// DBPath is the path to the SQLite session database
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
}

// WatchConfig drives the notewatchd daemon.
type WatchConfig struct {
	// Path is the JSONL note file to watch
	Path string `mapstructure:"path" yaml:"path"`
	// Cron schedules periodic background passes (robfig/cron spec)
	Cron string `mapstructure:"cron" yaml:"cron"`
	// DebounceMs coalesces rapid file events
	DebounceMs int64 `mapstructure:"debounce_ms" yaml:"debounce_ms"`
	// SessionLabel names sessions the daemon opens
	SessionLabel string `mapstructure:"session_label" yaml:"session_label"`
}

// LoggingConfig contains configuration for application logging.
type LoggingConfig struct {
	// Level is the log level ("debug", "info", "warn", "error")
	Level string `mapstructure:"level" yaml:"level"`
	// Pretty switches from JSON lines to console output
	Pretty bool `mapstructure:"pretty" yaml:"pretty"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".notestream")

	return &Config{
		Temporal: TemporalConfig{
			WindowSizeMs:        10000,
			DecayFactor:         0.9,
			ErraticismThreshold: 0.5,
			Scales: map[string]int64{
				"immediate": 100,
				"short":     1000,
				"medium":    10000,
				"long":      60000,
			},
			AttentionWeights: true,
		},
		Decision: DecisionConfig{
			MaxHistory:          10,
			AdaptationEnabled:   true,
			VarianceIncreasePct: 20,
		},
		Activity: ActivityConfig{
			RecentWindowMs:   5000,
			HighRatePerSec:   10,
			LowRatePerSec:    1,
			StabilityEpsilon: 0.1,
		},
		Preprocess: PreprocessConfig{
			CacheMaxAge:   30 * time.Second,
			CountDeltaPct: 20,
		},
		Session: SessionConfig{
			DBPath: filepath.Join(dataDir, "sessions.db"),
		},
		Watch: WatchConfig{
			Path:         "",
			Cron:         "@every 30s",
			DebounceMs:   500,
			SessionLabel: "watch",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

// ToOptions converts the temporal section to aggregation options.
func (t TemporalConfig) ToOptions() temporal.Options {
	return temporal.Options{
		WindowSize:          t.WindowSizeMs,
		DecayFactor:         t.DecayFactor,
		ErraticismThreshold: t.ErraticismThreshold,
	}
}

// ToMultiScaleOptions converts the temporal section to multi-scale options.
func (t TemporalConfig) ToMultiScaleOptions() multiscale.Options {
	opts := multiscale.DefaultOptions()
	opts.Base = t.ToOptions()
	opts.AttentionWeights = t.AttentionWeights
	if len(t.Scales) > 0 {
		opts.Scales = t.Scales
	}
	return opts
}

// ToDecisionConfig converts the decision section to a context config.
func (d DecisionConfig) ToDecisionConfig() decision.Config {
	cfg := decision.DefaultConfig()
	cfg.MaxHistory = d.MaxHistory
	cfg.AdaptationEnabled = d.AdaptationEnabled
	if d.VarianceIncreasePct > 0 {
		cfg.VarianceIncreasePct = d.VarianceIncreasePct
	}
	return cfg
}

// ToActivityConfig converts the activity section to a detector config.
func (a ActivityConfig) ToActivityConfig() activity.Config {
	return activity.Config{
		RecentWindow:     a.RecentWindowMs,
		HighRate:         a.HighRatePerSec,
		LowRate:          a.LowRatePerSec,
		StabilityEpsilon: a.StabilityEpsilon,
	}
}

// ToPreprocessConfig assembles the full manager config.
func (c *Config) ToPreprocessConfig() preprocess.Config {
	return preprocess.Config{
		CacheMaxAge:   c.Preprocess.CacheMaxAge,
		CountDeltaPct: c.Preprocess.CountDeltaPct,
		Temporal:      c.Temporal.ToOptions(),
		MultiScale:    c.Temporal.ToMultiScaleOptions(),
		Activity:      c.Activity.ToActivityConfig(),
	}
}

// Load reads configuration from the default location
// (~/.notestream/config.yaml) and merges with environment variables. If
// no config file exists, it creates one with default values.
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, ".notestream", "config.yaml")
	return LoadFromPath(configPath)
}

// LoadFromPath reads configuration from a specific file path and merges
// with environment variables. If the file doesn't exist, it creates one
// with default values.
func LoadFromPath(path string) (*Config, error) {
	path = expandPath(path)

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		if err := writeConfigFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Example: NOTESTREAM_TEMPORAL_DECAY_FACTOR
	v.SetEnvPrefix("NOTESTREAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Session.DBPath = expandPath(cfg.Session.DBPath)
	cfg.Watch.Path = expandPath(cfg.Watch.Path)

	return &cfg, nil
}

// Save writes the current configuration to the default config file location.
func (c *Config) Save() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, ".notestream", "config.yaml")
	return c.SaveToPath(configPath)
}

// SaveToPath writes the current configuration to a specific file path.
func (c *Config) SaveToPath(path string) error {
	path = expandPath(path)

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return writeConfigFile(path, c)
}

// Validate checks the configuration for common errors and inconsistencies.
func (c *Config) Validate() error {
	if c.Temporal.WindowSizeMs <= 0 {
		return fmt.Errorf("temporal.window_size_ms must be positive")
	}
	if c.Temporal.DecayFactor <= 0 || c.Temporal.DecayFactor > 1 {
		return fmt.Errorf("temporal.decay_factor must be in (0, 1]")
	}
	for name, size := range c.Temporal.Scales {
		if size <= 0 {
			return fmt.Errorf("temporal.scales.%s must be positive", name)
		}
	}

	if c.Decision.MaxHistory < 1 {
		return fmt.Errorf("decision.max_history must be at least 1")
	}

	if c.Activity.RecentWindowMs <= 0 {
		return fmt.Errorf("activity.recent_window_ms must be positive")
	}
	if c.Activity.LowRatePerSec < 0 {
		return fmt.Errorf("activity.low_rate_per_sec cannot be negative")
	}
	if c.Activity.HighRatePerSec <= c.Activity.LowRatePerSec {
		return fmt.Errorf("activity.high_rate_per_sec must exceed low_rate_per_sec")
	}

	if c.Preprocess.CacheMaxAge <= 0 {
		return fmt.Errorf("preprocess.cache_max_age must be positive")
	}
	if c.Preprocess.CountDeltaPct <= 0 || c.Preprocess.CountDeltaPct > 100 {
		return fmt.Errorf("preprocess.count_delta_pct must be in (0, 100]")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level '%s', must be one of: debug, info, warn, error", c.Logging.Level)
	}

	return nil
}

// writeConfigFile writes a Config struct to a YAML file.
func writeConfigFile(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// expandPath expands ~ to the user's home directory in a path string.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[1:])
	}
	return path
}
