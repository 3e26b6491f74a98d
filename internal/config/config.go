// ABOUTME: Configuration loading and parsing for docgate
// ABOUTME: Supports YAML files with environment variable expansion and env overrides

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Store drivers
const (
	DriverCosmos = "cosmos"
	DriverSQLite = "sqlite"
)

// Environment variables honored for store settings. These override the YAML
// file, matching how deployments typically inject credentials.
const (
	EnvCosmosURI      = "COSMOSDB_URI"
	EnvCosmosKey      = "COSMOSDB_KEY"
	EnvCosmosDatabase = "COSMOS_DATABASE_ID"
)

// Config represents the complete docgate configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Auth    AuthConfig    `yaml:"auth"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds transport configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
	Stdio    bool   `yaml:"stdio"` // serve a single client on stdin/stdout instead of HTTP
}

// StoreConfig holds document store configuration.
// Driver selects the backend: "cosmos" or "sqlite".
type StoreConfig struct {
	Driver   string `yaml:"driver"`
	Endpoint string `yaml:"endpoint"` // cosmos account endpoint
	Key      string `yaml:"key"`      // cosmos account key; empty means managed identity
	Database string `yaml:"database"` // cosmos database id
	Path     string `yaml:"path"`     // sqlite database file

	RequestTimeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	RequestTimeoutRaw string `yaml:"request_timeout"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret   string `yaml:"jwt_secret"`
	RequireAuth bool   `yaml:"require_auth"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// defaultRequestTimeout bounds a single store operation when the file sets none.
const defaultRequestTimeout = 30 * time.Second

// Load reads a configuration file from the given path and returns a parsed
// Config. Environment variables in the format ${VAR_NAME} are expanded, and
// the COSMOSDB_URI / COSMOSDB_KEY / COSMOS_DATABASE_ID variables override the
// store section. A missing file is not an error: the config then comes from
// defaults and the environment alone, which is how the original deployment
// style (env-only, no file) keeps working.
func Load(path string) (*Config, error) {
	cfg := Config{
		Server: ServerConfig{HTTPAddr: "127.0.0.1:8080"},
		Store:  StoreConfig{Driver: DriverSQLite, Path: "./docgate.db"},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// Expand environment variables in the raw YAML content
		expanded := expandEnvVars(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist) && path == "":
	case errors.Is(err, fs.ErrNotExist):
		// An explicit path that does not exist falls back to env-only too,
		// but only for the default path; the caller passes "" for that.
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	applyEnvOverrides(&cfg)

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// applyEnvOverrides copies the well-known store environment variables over
// the file values. Setting COSMOSDB_URI also flips the driver to cosmos so an
// env-only deployment needs no file at all.
func applyEnvOverrides(cfg *Config) {
	if uri := os.Getenv(EnvCosmosURI); uri != "" {
		cfg.Store.Endpoint = uri
		cfg.Store.Driver = DriverCosmos
	}
	if key := os.Getenv(EnvCosmosKey); key != "" {
		cfg.Store.Key = key
	}
	if db := os.Getenv(EnvCosmosDatabase); db != "" {
		cfg.Store.Database = db
	}
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if !c.Server.Stdio && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required (or enable stdio)")
	}

	switch c.Store.Driver {
	case DriverCosmos:
		if c.Store.Endpoint == "" {
			return fmt.Errorf("store.endpoint is required (or set %s)", EnvCosmosURI)
		}
		if c.Store.Database == "" {
			return fmt.Errorf("store.database is required (or set %s)", EnvCosmosDatabase)
		}
	case DriverSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required")
		}
	default:
		return fmt.Errorf("store.driver must be %q or %q, got %q", DriverCosmos, DriverSQLite, c.Store.Driver)
	}

	if c.Auth.RequireAuth && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required when auth.require_auth is enabled")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	cfg.Store.RequestTimeout = defaultRequestTimeout

	if cfg.Store.RequestTimeoutRaw != "" {
		d, err := time.ParseDuration(cfg.Store.RequestTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing request_timeout %q: %w", cfg.Store.RequestTimeoutRaw, err)
		}
		cfg.Store.RequestTimeout = d
	}

	return nil
}
