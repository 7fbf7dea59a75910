package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/jonnymoo/shape/internal/cache"
	"github.com/jonnymoo/shape/internal/querysql"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "SHAPE_"

// DefaultConfigFile is read from the working directory when no file is given.
const DefaultConfigFile = "shape.yaml"

// envAliases are the connection variables deployments already set.
var envAliases = map[string]string{
	"SHAPE_SERVER_NAME":   "database.server",
	"SHAPE_USER":          "database.user",
	"SHAPE_USER_PASSWORD": "database.password",
	"SHAPE_DATABASE":      "database.name",
}

// flagKeys maps CLI flag names to config keys. Other flags are ignored.
var flagKeys = map[string]string{
	"listen":       "listen",
	"log-level":    "log_level",
	"driver":       "database.driver",
	"db-path":      "database.path",
	"dialect":      "compiler.dialect",
	"anchor":       "compiler.anchor",
	"table-prefix": "compiler.table_prefix",
	"redis-addr":   "cache.redis_addr",
	"cache-ttl":    "cache.ttl",
	"catalog":      "catalog_dir",
}

func defaults() map[string]any {
	return map[string]any{
		"listen":                ":8080",
		"log_level":             "info",
		"database.driver":       DriverSQLServer,
		"database.port":         1433,
		"database.path":         "shape.db",
		"compiler.anchor":       querysql.DefaultAnchor,
		"compiler.table_prefix": querysql.DefaultTablePrefix,
		"cache.key_prefix":      cache.DefaultKeyPrefix,
		"cache.ttl":             "0s",
	}
}

// envKey maps an environment variable to a config key. Nested keys use a
// double underscore: SHAPE_CACHE__REDIS_ADDR is cache.redis_addr.
func envKey(name string) string {
	if key, ok := envAliases[name]; ok {
		return key
	}
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// Load builds a Config from defaults, the config file, SHAPE_ environment
// variables and explicitly set flags, in rising precedence. An empty
// cfgFile reads shape.yaml when it exists. flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	if cfgFile == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			cfgFile = DefaultConfigFile
		}
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	// 3. Environment
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, only those explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
