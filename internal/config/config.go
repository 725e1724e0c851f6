package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// FileName is the ini file holding the [MOKA] connection section.
const FileName = "config.ini"

const (
	DriverODBC   = "odbc"
	DriverPgx    = "pgx"
	DriverSQLite = "sqlite"
)

var schemaPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

type Config struct {
	Moka MokaConfig `mapstructure:"moka"`
	Log  LogConfig  `mapstructure:"log"`
}

type MokaConfig struct {
	Driver          string `mapstructure:"driver"`
	ODBCDriver      string `mapstructure:"odbc_driver"`
	Server          string `mapstructure:"server"`
	Database        string `mapstructure:"database"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DSN             string `mapstructure:"dsn"`
	Schema          string `mapstructure:"schema"`
	ConnectAttempts int    `mapstructure:"connect_attempts"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Path picks the config file location: $MOKA_CONFIG, then config.ini next
// to the executable, then config.ini in the working directory.
func Path() string {
	if p := os.Getenv("MOKA_CONFIG"); p != "" {
		return p
	}
	if exe, err := os.Executable(); err == nil {
		p := filepath.Join(filepath.Dir(exe), FileName)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return FileName
}

// Load reads the ini file at path (if it exists) and overlays environment
// variables such as MOKA_SERVER or LOG_LEVEL. The result is validated.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("ini")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("moka.driver", DriverODBC)
	v.SetDefault("moka.odbc_driver", "ODBC Driver 17 for SQL Server")
	v.SetDefault("moka.server", "")
	v.SetDefault("moka.database", "")
	v.SetDefault("moka.user", "")
	v.SetDefault("moka.password", "")
	v.SetDefault("moka.dsn", "")
	v.SetDefault("moka.schema", "dbo")
	v.SetDefault("moka.connect_attempts", 3)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"moka.driver", "moka.odbc_driver", "moka.server", "moka.database",
		"moka.user", "moka.password", "moka.dsn", "moka.schema",
		"moka.connect_attempts", "log.level", "log.format",
	} {
		_ = v.BindEnv(key, strings.ToUpper(strings.ReplaceAll(key, ".", "_")))
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Moka.Driver = strings.ToLower(strings.TrimSpace(cfg.Moka.Driver))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that a connection can be attempted with these settings.
// The schema name is interpolated into SQL, so it must be a bare identifier.
func (c *Config) Validate() error {
	switch c.Moka.Driver {
	case DriverODBC:
		if c.Moka.DSN == "" {
			if c.Moka.Server == "" {
				return fmt.Errorf("MOKA server is required for the odbc driver")
			}
			if c.Moka.Database == "" {
				return fmt.Errorf("MOKA database is required for the odbc driver")
			}
		}
	case DriverPgx, DriverSQLite:
		if c.Moka.DSN == "" {
			return fmt.Errorf("MOKA dsn is required for the %s driver", c.Moka.Driver)
		}
	default:
		return fmt.Errorf("MOKA driver must be %q, %q or %q, got %q", DriverODBC, DriverPgx, DriverSQLite, c.Moka.Driver)
	}

	if c.Moka.Schema != "" && !schemaPattern.MatchString(c.Moka.Schema) {
		return fmt.Errorf("invalid MOKA schema %q", c.Moka.Schema)
	}
	if c.Moka.ConnectAttempts < 1 {
		return fmt.Errorf("MOKA connect_attempts must be at least 1, got %d", c.Moka.ConnectAttempts)
	}
	return nil
}

// DataSourceName returns the string handed to sql.Open. An explicit dsn
// wins; otherwise an ODBC connection string is assembled.
func (c *Config) DataSourceName() string {
	if c.Moka.DSN != "" {
		return c.Moka.DSN
	}
	parts := []string{
		fmt.Sprintf("DRIVER={%s}", c.Moka.ODBCDriver),
		"SERVER=" + c.Moka.Server,
		"DATABASE=" + c.Moka.Database,
	}
	if c.Moka.User != "" {
		parts = append(parts, "UID="+c.Moka.User, "PWD="+c.Moka.Password)
	} else {
		parts = append(parts, "Trusted_Connection=yes")
	}
	return strings.Join(parts, ";")
}

// IsConsoleLog reports whether human-readable log output was requested.
func (c *Config) IsConsoleLog() bool {
	return strings.EqualFold(c.Log.Format, "console")
}
