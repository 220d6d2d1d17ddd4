package config

import "fmt"

const (
	// DefaultDatabaseDriver is the default run history database driver.
	DefaultDatabaseDriver = "sqlite"

	// DefaultSQLitePath is the default SQLite database file.
	DefaultSQLitePath = "./results/runtimeoor.db"

	// DefaultPostgresPort is the default PostgreSQL port.
	DefaultPostgresPort = 5432

	// DefaultAPIListen is the default API listen address.
	DefaultAPIListen = ":9090"

	// DefaultRequestsPerMinute is the default per-IP API request budget.
	DefaultRequestsPerMinute = 120
)

// DatabaseConfig configures the run history database.
type DatabaseConfig struct {
	Enabled  bool                 `yaml:"enabled" mapstructure:"enabled"`
	Driver   string               `yaml:"driver" mapstructure:"driver"`
	SQLite   SQLiteDatabaseConfig `yaml:"sqlite,omitempty" mapstructure:"sqlite"`
	Postgres PostgresConfig       `yaml:"postgres,omitempty" mapstructure:"postgres"`
}

// SQLiteDatabaseConfig contains SQLite-specific settings.
type SQLiteDatabaseConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
	SSLMode  string `yaml:"ssl_mode,omitempty" mapstructure:"ssl_mode"`
}

// Validate checks the database configuration.
func (d *DatabaseConfig) Validate() error {
	switch d.Driver {
	case "sqlite":
		if d.SQLite.Path == "" {
			return fmt.Errorf("sqlite.path is required")
		}
	case "postgres":
		if d.Postgres.Host == "" || d.Postgres.Database == "" {
			return fmt.Errorf("postgres.host and postgres.database are required")
		}
	default:
		return fmt.Errorf("unsupported driver %q", d.Driver)
	}

	return nil
}

// APIConfig contains the results API server configuration.
type APIConfig struct {
	Listen      string          `yaml:"listen" mapstructure:"listen"`
	CORSOrigins []string        `yaml:"cors_origins,omitempty" mapstructure:"cors_origins"`
	RateLimit   RateLimitConfig `yaml:"rate_limit,omitempty" mapstructure:"rate_limit"`
}

// RateLimitConfig configures per-IP rate limiting of the API.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}
