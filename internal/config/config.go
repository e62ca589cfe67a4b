// Package config defines all configuration structures for the rheometry
// scoring pipeline.  No I/O or parsing logic lives here, only plain data
// types and validation.
package config

import (
	"fmt"
	"time"
)

// DatabaseConfig holds PostgreSQL connection parameters for the store that
// keeps consolidated records, scoring versions, and score results.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationPath   string        `mapstructure:"migration_path"`
}

// SourceConfig holds connection parameters for the read-only laboratory
// database that raw trial rows are extracted from.
type SourceConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"db_name"`
	SSLMode  string `mapstructure:"ssl_mode"`

	// MinDate is the inclusive lower bound applied to the trial extraction
	// query, in "2006-01-02" form.  Rows older than this are never fetched.
	MinDate string `mapstructure:"min_date"`
}

// RedisConfig holds Redis connection parameters for the lot-map snapshot
// cache.  The cache is optional; an empty Addr disables it.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// ReferenceConfig holds the locations of the human-editable reference files
// and the spreadsheet that maps lot numbers to product names.
type ReferenceConfig struct {
	// SheetPath is the path to the multi-year spreadsheet that maps lot
	// numbers to product names (one tab per year).
	SheetPath string `mapstructure:"sheet_path"`

	// SheetTabs is the ordered list of tab names to read from the sheet.
	SheetTabs []string `mapstructure:"sheet_tabs"`

	// SpecsPath is the per-product parameter spec file (target/min/max/weight
	// per profile/parameter).
	SpecsPath string `mapstructure:"specs_path"`

	// RulesPath is the ordered action-rule list file.
	RulesPath string `mapstructure:"rules_path"`

	// LearningPath is the manual lot/product override ("learning") table.
	LearningPath string `mapstructure:"learning_path"`

	// CorrectionsPath is the free-text name-correction table.
	CorrectionsPath string `mapstructure:"corrections_path"`

	// GroupsPath is the machine-group → equipment-kind mapping file produced
	// by the classify-groups tool.
	GroupsPath string `mapstructure:"groups_path"`
}

// ScoringConfig holds tunables of the scoring engine that are not part of a
// version snapshot.
type ScoringConfig struct {
	// OutOfRangeZero forces measurements outside [min,max] to score exactly 0
	// instead of following the continuous deviation formula.
	OutOfRangeZero bool `mapstructure:"out_of_range_zero"`

	// PreferSampleText resolves the free-text sample field before the legacy
	// machine code in the weakest identification tier.
	PreferSampleText bool `mapstructure:"prefer_sample_text"`
}

// MetricsConfig holds Prometheus exposition parameters.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level            string   `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format           string   `mapstructure:"format"` // "json" | "console"
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// Config is the root configuration structure for the pipeline.  Every
// infrastructure component and application service reads its settings from
// the relevant sub-struct.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Source    SourceConfig    `mapstructure:"source"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Reference ReferenceConfig `mapstructure:"reference"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Log       LogConfig       `mapstructure:"log"`
}

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered; callers should treat any error as
// fatal and refuse to start the application.
func (c *Config) Validate() error {
	// Database
	if c.Database.Host == "" {
		return fmt.Errorf("config: database.host is required")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
	}
	if c.Database.User == "" {
		return fmt.Errorf("config: database.user is required")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("config: database.db_name is required")
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("config: database.max_conns must be >= 1, got %d", c.Database.MaxConns)
	}

	// Source
	if c.Source.Host == "" {
		return fmt.Errorf("config: source.host is required")
	}
	if c.Source.Port < 1 || c.Source.Port > 65535 {
		return fmt.Errorf("config: source.port %d is out of range [1, 65535]", c.Source.Port)
	}
	if c.Source.MinDate != "" {
		if _, err := time.Parse("2006-01-02", c.Source.MinDate); err != nil {
			return fmt.Errorf("config: source.min_date %q is not a valid date: %w", c.Source.MinDate, err)
		}
	}

	// Redis (optional): only validated when enabled via a non-empty address.
	if c.Redis.Addr != "" && c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be >= 0, got %d", c.Redis.DB)
	}

	// Reference
	if c.Reference.SpecsPath == "" {
		return fmt.Errorf("config: reference.specs_path is required")
	}
	if c.Reference.RulesPath == "" {
		return fmt.Errorf("config: reference.rules_path is required")
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}
