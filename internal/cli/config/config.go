package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// Config represents the rowmap configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Mapping  MappingConfig  `mapstructure:"mapping"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	URL    string `mapstructure:"url"`
	Driver string `mapstructure:"driver"`
}

// LoggingConfig represents logger configuration
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// MappingConfig tunes schema derivation and value conversion
type MappingConfig struct {
	DateLayouts []string `mapstructure:"date_layouts"`
	IDProperty  string   `mapstructure:"id_property"`
	Strict      bool     `mapstructure:"strict"`
}

// Load loads the configuration from rowmap.yml or rowmap.yaml in the working directory
func Load() (*Config, error) {
	return LoadFrom(".")
}

// LoadFrom loads the configuration from rowmap.yml or rowmap.yaml in dir.
// ROWMAP_* environment variables override file values; DATABASE_URL overrides database.url.
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("database.url", "")
	v.SetDefault("database.driver", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)
	v.SetDefault("mapping.date_layouts", []string{})
	v.SetDefault("mapping.id_property", "ID")
	v.SetDefault("mapping.strict", false)

	v.SetConfigName("rowmap")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetEnvPrefix("ROWMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if url := os.Getenv("DATABASE_URL"); url != "" {
		config.Database.URL = url
	}
	if config.Database.Driver == "" {
		config.Database.Driver = DriverFor(config.Database.URL)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// DriverFor infers the database/sql driver name from a connection URL
func DriverFor(url string) string {
	lower := strings.ToLower(url)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return "pgx"
	case strings.HasPrefix(lower, "sqlite://"), strings.HasPrefix(lower, "sqlite3://"),
		strings.HasPrefix(lower, "file:"), lower == ":memory:",
		strings.HasSuffix(lower, ".db"), strings.HasSuffix(lower, ".sqlite"):
		return "sqlite3"
	}
	return ""
}

// DataSource returns the connection string handed to sql.Open for the configured driver
func (c *Config) DataSource() string {
	url := c.Database.URL
	if c.Database.Driver == "sqlite3" {
		for _, prefix := range []string{"sqlite3://", "sqlite://"} {
			if strings.HasPrefix(url, prefix) {
				return strings.TrimPrefix(url, prefix)
			}
		}
	}
	return url
}

var knownDrivers = map[string]bool{
	"":         true,
	"pgx":      true,
	"postgres": true,
	"sqlite3":  true,
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if _, err := zapcore.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if !knownDrivers[cfg.Database.Driver] {
		return fmt.Errorf("database.driver must be one of pgx, postgres, sqlite3, got: %s", cfg.Database.Driver)
	}
	if strings.TrimSpace(cfg.Mapping.IDProperty) == "" {
		return fmt.Errorf("mapping.id_property must not be empty")
	}
	return nil
}
