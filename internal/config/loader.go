package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides, e.g.
// REOSCORE_DATABASE_HOST overrides database.host.
const EnvPrefix = "REOSCORE"

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The free-text sample field is tried before the legacy machine code
	// unless explicitly disabled.
	v.SetDefault("scoring.prefer_sample_text", true)
	return v
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal failed: %w", err)
	}
	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads the configuration file at path, applies environment overrides,
// fills defaults, and validates the result.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a configuration from environment variables alone, with
// no file on disk.  Useful for containerized deployments.
func LoadFromEnv() (*Config, error) {
	v := newViper()

	// AutomaticEnv resolves keys lazily, so every key must be registered for
	// Unmarshal to see it.
	for _, key := range configKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("config: binding %s: %w", key, err)
		}
	}
	return unmarshalAndFinalize(v)
}

// MustLoad is Load that panics on failure.  Intended for main() wiring where
// a bad configuration should stop the process immediately.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Watch re-reads the configuration file whenever it changes on disk and
// invokes onChange with the newly validated Config.  Invalid edits are
// reported through onError and the previous configuration stays in effect.
func Watch(path string, onChange func(*Config), onError func(error)) error {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}

	v.OnConfigChange(func(fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

// configKeys lists every mapstructure key so LoadFromEnv can bind each one
// explicitly.
var configKeys = []string{
	"database.host",
	"database.port",
	"database.user",
	"database.password",
	"database.db_name",
	"database.ssl_mode",
	"database.max_conns",
	"database.max_idle_conns",
	"database.conn_max_lifetime",
	"database.conn_max_idle_time",
	"database.migration_path",
	"source.host",
	"source.port",
	"source.user",
	"source.password",
	"source.db_name",
	"source.ssl_mode",
	"source.min_date",
	"redis.addr",
	"redis.password",
	"redis.db",
	"redis.pool_size",
	"redis.dial_timeout",
	"redis.read_timeout",
	"redis.write_timeout",
	"redis.default_ttl",
	"redis.key_prefix",
	"reference.sheet_path",
	"reference.sheet_tabs",
	"reference.specs_path",
	"reference.rules_path",
	"reference.learning_path",
	"reference.corrections_path",
	"reference.groups_path",
	"scoring.out_of_range_zero",
	"scoring.prefer_sample_text",
	"metrics.enabled",
	"metrics.addr",
	"log.level",
	"log.format",
	"log.output_paths",
	"log.error_output_paths",
}
