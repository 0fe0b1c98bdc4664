package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Import    ImportConfig
	Export    ExportConfig
	Events    EventsConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// StoreConfig selects and configures the catalogue store backend
type StoreConfig struct {
	Type string `mapstructure:"type"` // "memory" or "sqlite"
	Path string `mapstructure:"path"` // sqlite database file
}

// ImportConfig holds import pipeline configuration
type ImportConfig struct {
	MaxFileSizeMiB int64   `mapstructure:"max_file_size_mib"`
	MaxPrice       float64 `mapstructure:"max_price"`
	DebugLogging   bool    `mapstructure:"debug_logging"`
}

// ExportConfig holds export configuration, including the location stamped
// into every export document
type ExportConfig struct {
	Dir     string `mapstructure:"dir"`
	Suburb  string `mapstructure:"suburb"`
	State   string `mapstructure:"state"`
	Country string `mapstructure:"country"`
}

// EventsConfig holds Kafka event publishing configuration
type EventsConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/pricelens/")

	// Environment variable settings
	v.SetEnvPrefix("PRICELENS")
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Store defaults
	v.SetDefault("store.type", "sqlite")
	v.SetDefault("store.path", "pricelens.db")

	// Import defaults
	v.SetDefault("import.max_file_size_mib", 50)
	v.SetDefault("import.max_price", 10000.0)
	v.SetDefault("import.debug_logging", false)

	// Export defaults
	v.SetDefault("export.dir", "exports")
	v.SetDefault("export.suburb", "Adelaide")
	v.SetDefault("export.state", "SA")
	v.SetDefault("export.country", "Australia")

	// Events defaults
	v.SetDefault("events.enabled", false)
	v.SetDefault("events.brokers", []string{"localhost:9092"})
	v.SetDefault("events.topic", "pricelens.prices")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Store.Type != "memory" && config.Store.Type != "sqlite" {
		return fmt.Errorf("store type must be 'memory' or 'sqlite', got: %s", config.Store.Type)
	}

	if config.Store.Type == "sqlite" && config.Store.Path == "" {
		return fmt.Errorf("store path is required when store type is 'sqlite'")
	}

	if config.Import.MaxFileSizeMiB <= 0 {
		return fmt.Errorf("import max file size must be positive, got: %d", config.Import.MaxFileSizeMiB)
	}

	if config.Events.Enabled {
		if len(config.Events.Brokers) == 0 {
			return fmt.Errorf("event brokers are required when events are enabled")
		}
		if config.Events.Topic == "" {
			return fmt.Errorf("event topic is required when events are enabled")
		}
	}

	return nil
}
