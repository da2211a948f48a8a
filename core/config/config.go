package config

import (
	"reflect"
	"strings"

	"permsync/core/database"
	"permsync/core/logger"
	"permsync/core/server"
	"permsync/core/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Guard holds configuration for the outbound-call guardrails.
type Guard struct {
	// RateLimit is the number of remote calls allowed per window.
	RateLimit int `mapstructure:"rate_limit" default:"30"`
	// RateWindowSeconds is the sliding window length in seconds.
	RateWindowSeconds int `mapstructure:"rate_window_seconds" default:"60"`
	// BreakerThreshold is the failure count that opens the circuit.
	BreakerThreshold int `mapstructure:"breaker_threshold" default:"5"`
	// BreakerCooldownSeconds is how long the circuit stays open.
	BreakerCooldownSeconds int `mapstructure:"breaker_cooldown_seconds" default:"30"`
	// Concurrency is the worker pool ceiling for retrieval fan-out.
	Concurrency int `mapstructure:"concurrency" default:"4"`
}

// Cache holds configuration for the two-tier payload cache.
type Cache struct {
	// Dir is the persistent cache directory.
	Dir string `mapstructure:"dir" default:".permsync-cache"`
	// TTLMinutes is the entry time-to-live in minutes.
	TTLMinutes int `mapstructure:"ttl_minutes" default:"60"`
}

// Sync holds configuration for the sync engine's sources.
type Sync struct {
	// Aliases is a comma-separated list of org source aliases.
	Aliases string `mapstructure:"aliases" default:"primary"`
	// ApiVersion is the remote metadata API version.
	ApiVersion string `mapstructure:"api_version" default:"58.0"`
	// LocalRoot is the local metadata directory tree.
	LocalRoot string `mapstructure:"local_root" default:"./metadata"`
}

// SourceAliases returns the configured aliases, trimmed, in order.
func (s Sync) SourceAliases() []string {
	parts := strings.Split(s.Aliases, ",")
	aliases := make([]string, 0, len(parts))
	for _, p := range parts {
		if a := strings.TrimSpace(p); a != "" {
			aliases = append(aliases, a)
		}
	}
	return aliases
}

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Server holds configuration for the HTTP server.
	Server server.Config `mapstructure:"server"`
	// Storage holds configuration for the object storage backing org sources.
	Storage storage.Config `mapstructure:"storage"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Database holds configuration for the audit database connection.
	Database database.Config `mapstructure:"database"`
	// Guard holds configuration for the guardrails.
	Guard Guard `mapstructure:"guard"`
	// Cache holds configuration for the payload cache.
	Cache Cache `mapstructure:"cache"`
	// Sync holds configuration for the sync engine sources.
	Sync Sync `mapstructure:"sync"`
}

// LoadConfig loads configuration from environment variables and .env file.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env file if it exists
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}

	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. SERVER_PORT -> server.port)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		// If it's a nested struct, recurse
		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		defaultValue := field.Tag.Get("default")
		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, defaultValue)
	}
}
