// Package config handles configuration loading for TickerLens.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	LLM      LLMConfig      `mapstructure:"llm"      yaml:"llm"`
	Analysis AnalysisConfig `mapstructure:"analysis" yaml:"analysis"`
	Polling  PollingConfig  `mapstructure:"polling"  yaml:"polling"`
	History  HistoryConfig  `mapstructure:"history"  yaml:"history"`
	API      APIConfig      `mapstructure:"api"      yaml:"api"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
}

// LLMConfig holds the Gemini upstream settings.
type LLMConfig struct {
	GeminiKey    string  `mapstructure:"gemini_key"    yaml:"gemini_key"    json:"-"`
	BaseURL      string  `mapstructure:"base_url"      yaml:"base_url"` // empty = SDK default
	Model        string  `mapstructure:"model"         yaml:"model"`
	Temperature  float64 `mapstructure:"temperature"   yaml:"temperature"`
	GoogleSearch bool    `mapstructure:"google_search" yaml:"google_search"`
	TimeoutSec   int     `mapstructure:"timeout_sec"   yaml:"timeout_sec"`
}

// AnalysisConfig holds query and retry settings.
type AnalysisConfig struct {
	MaxAttempts      int  `mapstructure:"max_attempts"       yaml:"max_attempts"`
	PriceMaxAttempts int  `mapstructure:"price_max_attempts" yaml:"price_max_attempts"`
	BaseDelayMs      int  `mapstructure:"base_delay_ms"      yaml:"base_delay_ms"`
	NewsContext      bool `mapstructure:"news_context"       yaml:"news_context"`
	NewsHeadlines    int  `mapstructure:"news_headlines"     yaml:"news_headlines"`
}

// PollingConfig holds the live-price refresh intervals.
type PollingConfig struct {
	OpenIntervalSec   int `mapstructure:"open_interval_sec"   yaml:"open_interval_sec"`
	ClosedIntervalSec int `mapstructure:"closed_interval_sec" yaml:"closed_interval_sec"`
}

// HistoryConfig holds recent-search persistence settings.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path"    yaml:"path"` // SQLite file
}

// APIConfig holds HTTP server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"        yaml:"level"` // "debug", "info", "warn", "error"
	Console    bool   `mapstructure:"console"      yaml:"console"`
	File       bool   `mapstructure:"file"         yaml:"file"`
	FilePath   string `mapstructure:"file_path"    yaml:"file_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"  yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"  yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
}

// BaseDelay returns the retry base delay.
func (a AnalysisConfig) BaseDelay() time.Duration {
	return time.Duration(a.BaseDelayMs) * time.Millisecond
}

// OpenInterval is the refresh delay while the market trades.
func (p PollingConfig) OpenInterval() time.Duration {
	return time.Duration(p.OpenIntervalSec) * time.Second
}

// ClosedInterval is the refresh delay outside market hours.
func (p PollingConfig) ClosedInterval() time.Duration {
	return time.Duration(p.ClosedIntervalSec) * time.Second
}

// Timeout is the per-request upstream timeout.
func (l LLMConfig) Timeout() time.Duration {
	return time.Duration(l.TimeoutSec) * time.Second
}

// Addr returns host:port for the HTTP listener.
func (a APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.tickerlens/config.yaml (home directory)
//  3. /etc/tickerlens/config.yaml (system)
//
// Environment variables override config file values.
// Format: TICKERLENS_<SECTION>_<KEY>, e.g., TICKERLENS_LLM_GEMINI_KEY
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".tickerlens"))
	v.AddConfigPath("/etc/tickerlens")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return unmarshal(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	return unmarshal(v)
}

// Default returns the configuration with only defaults applied.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("TICKERLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the retry and polling loops cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Analysis.MaxAttempts < 1:
		return fmt.Errorf("config: analysis.max_attempts must be >= 1, got %d", c.Analysis.MaxAttempts)
	case c.Analysis.PriceMaxAttempts < 1:
		return fmt.Errorf("config: analysis.price_max_attempts must be >= 1, got %d", c.Analysis.PriceMaxAttempts)
	case c.Analysis.BaseDelayMs < 0:
		return fmt.Errorf("config: analysis.base_delay_ms must be >= 0, got %d", c.Analysis.BaseDelayMs)
	case c.Polling.OpenIntervalSec < 1 || c.Polling.ClosedIntervalSec < 1:
		return fmt.Errorf("config: polling intervals must be >= 1s")
	}
	return nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// LLM defaults
	v.SetDefault("llm.model", "gemini-2.5-flash")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.google_search", true)
	v.SetDefault("llm.timeout_sec", 120)

	// Query / retry defaults
	v.SetDefault("analysis.max_attempts", 3)
	v.SetDefault("analysis.price_max_attempts", 2)
	v.SetDefault("analysis.base_delay_ms", 1000)
	v.SetDefault("analysis.news_context", false)
	v.SetDefault("analysis.news_headlines", 5)

	// Polling defaults
	v.SetDefault("polling.open_interval_sec", 30)
	v.SetDefault("polling.closed_interval_sec", 300) // 5 minutes

	// History defaults
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", filepath.Join(homeDir(), ".tickerlens", "history.db"))

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", false)
	v.SetDefault("logging.file_path", filepath.Join(homeDir(), ".tickerlens", "logs", "tickerlens.log"))
	v.SetDefault("logging.max_size_mb", 50)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
// GEMINI_API_KEY is honoured as a fallback for the prefixed variable.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv("TICKERLENS_LLM_GEMINI_KEY"); key != "" {
		cfg.LLM.GeminiKey = key
		return
	}
	if cfg.LLM.GeminiKey == "" {
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			cfg.LLM.GeminiKey = key
		}
	}
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
