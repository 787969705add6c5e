// Package config loads crawler settings from environment variables and an
// optional config file via viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/mohe2015/tucant/internal/database"
)

// Portal holds the settings for talking to the campus portal.
type Portal struct {
	BaseURL        string `mapstructure:"base_url"`
	FetchLimit     int64  `mapstructure:"fetch_limit"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	SessionNr      int64  `mapstructure:"session_nr"`
	SessionID      string `mapstructure:"session_id"`
	UserID         string `mapstructure:"user_id"`
}

// Logging holds the logger settings.
type Logging struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Config is the root configuration for the crawler.
type Config struct {
	Portal   Portal          `mapstructure:"portal"`
	Database database.Config `mapstructure:"database"`
	Logging  Logging         `mapstructure:"logging"`
}

// Load reads configuration from the environment and, when path is non-empty,
// from the given config file. Environment variables win over file values and
// use underscores instead of dots, e.g. PORTAL_SESSION_NR for
// portal.session_nr.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("portal.base_url", "https://www.tucan.tu-darmstadt.de")
	v.SetDefault("portal.fetch_limit", 10)
	v.SetDefault("portal.timeout_seconds", 30)
	// Session values have no sensible default but must be registered so that
	// AutomaticEnv picks them up during Unmarshal.
	v.SetDefault("portal.session_nr", 0)
	v.SetDefault("portal.session_id", "")
	v.SetDefault("portal.user_id", "")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "tucant")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)
}

func (c *Config) validate() error {
	if c.Portal.BaseURL == "" {
		return fmt.Errorf("portal.base_url must not be empty")
	}
	if c.Portal.FetchLimit < 1 {
		return fmt.Errorf("portal.fetch_limit must be at least 1, got %d", c.Portal.FetchLimit)
	}
	if c.Portal.TimeoutSeconds < 1 {
		return fmt.Errorf("portal.timeout_seconds must be at least 1, got %d", c.Portal.TimeoutSeconds)
	}
	return nil
}
