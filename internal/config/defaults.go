package config

import "time"

// Default values applied to any field left unset by the configuration file
// and environment overrides.
const (
	DefaultDatabasePort     = 5432
	DefaultDatabaseSSLMode  = "disable"
	DefaultMaxConns         = 10
	DefaultMaxIdleConns     = 5
	DefaultConnMaxLifetime  = time.Hour
	DefaultConnMaxIdleTime  = 30 * time.Minute
	DefaultMigrationPath    = "migrations"
	DefaultSourceMinDate    = "2024-07-01"
	DefaultRedisPoolSize    = 10
	DefaultRedisDialTimeout = 5 * time.Second
	DefaultRedisTimeout     = 3 * time.Second
	DefaultRedisTTL         = 12 * time.Hour
	DefaultRedisKeyPrefix   = "reoscore"
	DefaultMetricsAddr      = ":9090"
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "json"
)

// DefaultSheetTabs is the tab set read from the lot-map spreadsheet when the
// configuration does not name its own.
var DefaultSheetTabs = []string{"2023", "2024", "2025"}

// ApplyDefaults fills every zero-valued field of c that has a documented
// default.  Explicitly configured values are never overwritten.
func ApplyDefaults(c *Config) {
	if c.Database.Port == 0 {
		c.Database.Port = DefaultDatabasePort
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = DefaultDatabaseSSLMode
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = DefaultMaxConns
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = DefaultMaxIdleConns
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = DefaultConnMaxLifetime
	}
	if c.Database.ConnMaxIdleTime == 0 {
		c.Database.ConnMaxIdleTime = DefaultConnMaxIdleTime
	}
	if c.Database.MigrationPath == "" {
		c.Database.MigrationPath = DefaultMigrationPath
	}

	if c.Source.Port == 0 {
		c.Source.Port = DefaultDatabasePort
	}
	if c.Source.SSLMode == "" {
		c.Source.SSLMode = DefaultDatabaseSSLMode
	}
	if c.Source.MinDate == "" {
		c.Source.MinDate = DefaultSourceMinDate
	}

	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = DefaultRedisPoolSize
	}
	if c.Redis.DialTimeout == 0 {
		c.Redis.DialTimeout = DefaultRedisDialTimeout
	}
	if c.Redis.ReadTimeout == 0 {
		c.Redis.ReadTimeout = DefaultRedisTimeout
	}
	if c.Redis.WriteTimeout == 0 {
		c.Redis.WriteTimeout = DefaultRedisTimeout
	}
	if c.Redis.DefaultTTL == 0 {
		c.Redis.DefaultTTL = DefaultRedisTTL
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}

	if len(c.Reference.SheetTabs) == 0 {
		c.Reference.SheetTabs = append([]string(nil), DefaultSheetTabs...)
	}

	if c.Metrics.Addr == "" {
		c.Metrics.Addr = DefaultMetricsAddr
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
	if len(c.Log.OutputPaths) == 0 {
		c.Log.OutputPaths = []string{"stdout"}
	}
	if len(c.Log.ErrorOutputPaths) == 0 {
		c.Log.ErrorOutputPaths = []string{"stderr"}
	}
}
