// Package config provides configuration management for the trading journal.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"trading-journal/internal/errors"
	"trading-journal/internal/models"
)

// Config holds all application configuration.
type Config struct {
	Journal      JournalConfig      `mapstructure:"journal"`
	Subscription SubscriptionConfig `mapstructure:"subscription"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	UI           UIConfig           `mapstructure:"ui"`
}

// JournalConfig holds journal storage configuration.
type JournalConfig struct {
	// DatabasePath is the path of the SQLite database backing the
	// document store. Empty means <config dir>/journal.db.
	DatabasePath string `mapstructure:"database_path"`
	// OwnerID scopes all records; the journal is single-user but records
	// carry the owner so the store can filter realtime snapshots.
	OwnerID string `mapstructure:"owner_id"`
	// BootstrapAccountName is the name used when auto-provisioning the
	// first account.
	BootstrapAccountName string `mapstructure:"bootstrap_account_name"`
	// CascadeDelete controls whether deleting a trade also removes its
	// replicas in linked accounts.
	CascadeDelete bool `mapstructure:"cascade_delete"`
}

// SubscriptionConfig holds subscription-tier configuration.
type SubscriptionConfig struct {
	Tier string `mapstructure:"tier"` // trial, basic, premium
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
	File    bool   `mapstructure:"file"`
}

// UIConfig holds UI-related configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	DateFormat   string `mapstructure:"date_format"`
	TimeFormat   string `mapstructure:"time_format"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/trading-journal"
	}
	return filepath.Join(home, ".config", "trading-journal")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
		if err := createTemplateConfig(configDir); err != nil {
			return nil, fmt.Errorf("creating config template: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("journal.database_path", filepath.Join(configDir, "journal.db"))
	v.SetDefault("journal.owner_id", "local")
	v.SetDefault("journal.bootstrap_account_name", "Demo Account")
	v.SetDefault("journal.cascade_delete", true)
	v.SetDefault("subscription.tier", "trial")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", true)
	v.SetDefault("ui.color_enabled", true)
	v.SetDefault("ui.date_format", "2006-01-02")
	v.SetDefault("ui.time_format", "15:04:05")
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("JOURNAL_DB_PATH"); v != "" {
		cfg.Journal.DatabasePath = v
	}
	if v := os.Getenv("JOURNAL_OWNER_ID"); v != "" {
		cfg.Journal.OwnerID = v
	}
	if v := os.Getenv("JOURNAL_TIER"); v != "" {
		cfg.Subscription.Tier = v
	}
	if v := os.Getenv("JOURNAL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !models.Tier(c.Subscription.Tier).Valid() {
		return fmt.Errorf("%w: %s (must be trial, basic or premium)", errors.ErrInvalidTier, c.Subscription.Tier)
	}
	if c.Journal.OwnerID == "" {
		return fmt.Errorf("journal.owner_id must not be empty")
	}
	return nil
}

// Tier returns the configured subscription tier.
func (c *Config) Tier() models.Tier {
	return models.Tier(c.Subscription.Tier)
}
