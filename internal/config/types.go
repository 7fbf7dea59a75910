// Package config loads layered configuration for the shape CLI and server.
//
// Precedence (highest to lowest): flags > env vars > config file > defaults.
package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jonnymoo/shape/internal/querysql"
)

// Supported database/sql driver names.
const (
	DriverSQLServer = "sqlserver"
	DriverSQLite    = "sqlite3"
)

// Config holds all configuration options.
type Config struct {
	Listen     string         `koanf:"listen"`
	LogLevel   string         `koanf:"log_level"`
	Database   DatabaseConfig `koanf:"database"`
	Compiler   CompilerConfig `koanf:"compiler"`
	Cache      CacheConfig    `koanf:"cache"`
	CatalogDir string         `koanf:"catalog_dir"`
}

// DatabaseConfig selects the database shape queries run against.
type DatabaseConfig struct {
	Driver   string `koanf:"driver"`
	Server   string `koanf:"server"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Name     string `koanf:"name"`
	Path     string `koanf:"path"` // SQLite file
}

// CompilerConfig mirrors the querysql.Compiler options.
type CompilerConfig struct {
	Dialect     string `koanf:"dialect"` // empty follows the database driver
	Anchor      string `koanf:"anchor"`
	TablePrefix string `koanf:"table_prefix"`
}

// CacheConfig configures the result cache. Caching is off when TTL is zero;
// an empty RedisAddr keeps results in memory.
type CacheConfig struct {
	RedisAddr string        `koanf:"redis_addr"`
	KeyPrefix string        `koanf:"key_prefix"`
	TTL       time.Duration `koanf:"ttl"`
}

// DSN returns the data source name for Driver.
func (d DatabaseConfig) DSN() (string, error) {
	switch d.Driver {
	case DriverSQLServer:
		if d.Server == "" {
			return "", fmt.Errorf("database.server is required for %s", d.Driver)
		}
		host := d.Server
		if d.Port != 0 {
			host = net.JoinHostPort(d.Server, strconv.Itoa(d.Port))
		}
		u := &url.URL{
			Scheme: "sqlserver",
			Host:   host,
		}
		if d.User != "" {
			u.User = url.UserPassword(d.User, d.Password)
		}
		if d.Name != "" {
			u.RawQuery = url.Values{"database": {d.Name}}.Encode()
		}
		return u.String(), nil
	case DriverSQLite:
		if d.Path == "" {
			return "", fmt.Errorf("database.path is required for %s", d.Driver)
		}
		return d.Path, nil
	default:
		return "", fmt.Errorf("unknown database driver %q (supported: %s, %s)", d.Driver, DriverSQLServer, DriverSQLite)
	}
}

// DialectName resolves the SQL dialect, following the driver when unset.
func (c *Config) DialectName() string {
	if c.Compiler.Dialect != "" {
		return c.Compiler.Dialect
	}
	if c.Database.Driver == DriverSQLite {
		return "sqlite"
	}
	return "mssql"
}

// NewCompiler builds the compiler described by the configuration.
func (c *Config) NewCompiler() (*querysql.Compiler, error) {
	d, err := querysql.DialectByName(c.DialectName())
	if err != nil {
		return nil, err
	}
	opts := []querysql.Option{
		querysql.WithDialect(d),
		querysql.WithTablePrefix(c.Compiler.TablePrefix),
	}
	if c.Compiler.Anchor == "" {
		opts = append(opts, querysql.WithoutAnchor())
	} else {
		opts = append(opts, querysql.WithAnchor(c.Compiler.Anchor))
	}
	return querysql.New(opts...), nil
}

// Level parses LogLevel. Unknown levels fall back to info.
func (c *Config) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Validate checks the fields every command relies on.
func (c *Config) Validate() error {
	if _, err := querysql.DialectByName(c.DialectName()); err != nil {
		return fmt.Errorf("compiler.dialect: %w", err)
	}
	switch c.Database.Driver {
	case DriverSQLServer, DriverSQLite:
	default:
		return fmt.Errorf("database.driver: unknown driver %q", c.Database.Driver)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative")
	}
	return nil
}
