// Package config loads application configuration from an optional JSON file
// plus environment overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Backend  BackendConfig  `mapstructure:"backend"`
	Store    StoreConfig    `mapstructure:"store"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Log      LogConfig      `mapstructure:"log"`
}

// BackendConfig describes the local inference backend.
type BackendConfig struct {
	Host        string  `mapstructure:"host"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	// MaxTokens 0 means use the server default.
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// StoreConfig locates the durable CSV files.
type StoreConfig struct {
	WordPath    string `mapstructure:"word_path"`
	ArchivePath string `mapstructure:"archive_path"`
}

// PipelineConfig tunes scheduling behavior.
type PipelineConfig struct {
	FlashInterval time.Duration `mapstructure:"flash_interval"`
	DepthInterval time.Duration `mapstructure:"depth_interval"`
	EventBuffer   int           `mapstructure:"event_buffer"`
	// DisabledLangs lists target codes that are never scheduled.
	DisabledLangs []string `mapstructure:"disabled_langs"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from wortflash.config.json (working directory) and
// WORTFLASH_* environment variables. A missing file just means defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("wortflash.config")
	v.SetConfigType("json")
	v.AddConfigPath(".")

	setDefaults(v)

	v.SetEnvPrefix("wortflash")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend.host", "localhost:1234")
	v.SetDefault("backend.model", "google/gemma-3n-e4b")
	v.SetDefault("backend.temperature", 0.1)
	v.SetDefault("backend.max_tokens", 0)
	v.SetDefault("backend.timeout", "90s")

	v.SetDefault("store.word_path", "log/word.csv")
	v.SetDefault("store.archive_path", "log/archive.csv")

	v.SetDefault("pipeline.flash_interval", "2s")
	v.SetDefault("pipeline.depth_interval", "500ms")
	v.SetDefault("pipeline.event_buffer", 64)
	v.SetDefault("pipeline.disabled_langs", []string{"es", "fr"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// NewLogger builds a configured logrus logger from application config.
func NewLogger(cfg *Config) (*logrus.Logger, error) {
	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	logger.SetLevel(level)
	if cfg.Log.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger, nil
}
