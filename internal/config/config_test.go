// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, env overrides, and validation

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func clearStoreEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvCosmosURI, "")
	t.Setenv(EnvCosmosKey, "")
	t.Setenv(EnvCosmosDatabase, "")
}

func TestLoad_ValidConfig(t *testing.T) {
	clearStoreEnv(t)

	configPath := writeConfig(t, `
server:
  http_addr: "0.0.0.0:8080"

store:
  driver: "sqlite"
  path: "./test.db"
  request_timeout: "10s"

auth:
  jwt_secret: "config-test-secret"
  require_auth: true

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPAddr != "0.0.0.0:8080" {
		t.Errorf("Server.HTTPAddr = %q, want %q", cfg.Server.HTTPAddr, "0.0.0.0:8080")
	}
	if cfg.Store.Driver != DriverSQLite {
		t.Errorf("Store.Driver = %q, want %q", cfg.Store.Driver, DriverSQLite)
	}
	if cfg.Store.Path != "./test.db" {
		t.Errorf("Store.Path = %q, want %q", cfg.Store.Path, "./test.db")
	}
	if cfg.Store.RequestTimeout != 10*time.Second {
		t.Errorf("Store.RequestTimeout = %v, want %v", cfg.Store.RequestTimeout, 10*time.Second)
	}
	if cfg.Auth.JWTSecret != "config-test-secret" {
		t.Errorf("Auth.JWTSecret = %q", cfg.Auth.JWTSecret)
	}
	if !cfg.Auth.RequireAuth {
		t.Error("Auth.RequireAuth = false, want true")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "json")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearStoreEnv(t)

	// No file at all: defaults plus environment.
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPAddr != "127.0.0.1:8080" {
		t.Errorf("Server.HTTPAddr = %q", cfg.Server.HTTPAddr)
	}
	if cfg.Store.Driver != DriverSQLite {
		t.Errorf("Store.Driver = %q, want sqlite default", cfg.Store.Driver)
	}
	if cfg.Store.RequestTimeout != defaultRequestTimeout {
		t.Errorf("Store.RequestTimeout = %v, want default", cfg.Store.RequestTimeout)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	clearStoreEnv(t)
	t.Setenv("TEST_JWT_SECRET", "secret-from-env")

	configPath := writeConfig(t, `
server:
  http_addr: "0.0.0.0:8080"

store:
  driver: "sqlite"
  path: "./test.db"

auth:
  jwt_secret: "${TEST_JWT_SECRET}"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Auth.JWTSecret != "secret-from-env" {
		t.Errorf("Auth.JWTSecret = %q, want %q", cfg.Auth.JWTSecret, "secret-from-env")
	}
}

func TestLoad_CosmosEnvOverrides(t *testing.T) {
	t.Setenv(EnvCosmosURI, "https://example.documents.azure.com:443/")
	t.Setenv(EnvCosmosKey, "key-from-env")
	t.Setenv(EnvCosmosDatabase, "proddb")

	configPath := writeConfig(t, `
server:
  http_addr: "0.0.0.0:8080"

store:
  driver: "sqlite"
  path: "./test.db"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// COSMOSDB_URI flips the driver and overrides the endpoint
	if cfg.Store.Driver != DriverCosmos {
		t.Errorf("Store.Driver = %q, want cosmos", cfg.Store.Driver)
	}
	if cfg.Store.Endpoint != "https://example.documents.azure.com:443/" {
		t.Errorf("Store.Endpoint = %q", cfg.Store.Endpoint)
	}
	if cfg.Store.Key != "key-from-env" {
		t.Errorf("Store.Key = %q", cfg.Store.Key)
	}
	if cfg.Store.Database != "proddb" {
		t.Errorf("Store.Database = %q", cfg.Store.Database)
	}
}

func TestLoad_EnvOnlyCosmosDeployment(t *testing.T) {
	t.Setenv(EnvCosmosURI, "https://example.documents.azure.com:443/")
	t.Setenv(EnvCosmosKey, "")
	t.Setenv(EnvCosmosDatabase, "proddb")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Store.Driver != DriverCosmos {
		t.Errorf("Store.Driver = %q, want cosmos", cfg.Store.Driver)
	}
	// Empty key means managed identity, still valid
	if cfg.Store.Key != "" {
		t.Errorf("Store.Key = %q, want empty", cfg.Store.Key)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Error("Load() expected error for missing explicit file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearStoreEnv(t)

	configPath := writeConfig(t, `
server:
  http_addr "missing colon"
`)

	if _, err := Load(configPath); err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	clearStoreEnv(t)

	configPath := writeConfig(t, `
store:
  driver: "sqlite"
  path: "./test.db"
  request_timeout: "invalid-duration"
`)

	if _, err := Load(configPath); err == nil {
		t.Error("Load() expected error for invalid duration, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name          string
		cfg           Config
		wantErrSubstr string
	}{
		{
			name: "cosmos requires endpoint",
			cfg: Config{
				Server: ServerConfig{HTTPAddr: ":8080"},
				Store:  StoreConfig{Driver: DriverCosmos, Database: "db"},
			},
			wantErrSubstr: "store.endpoint is required",
		},
		{
			name: "cosmos requires database",
			cfg: Config{
				Server: ServerConfig{HTTPAddr: ":8080"},
				Store:  StoreConfig{Driver: DriverCosmos, Endpoint: "https://x"},
			},
			wantErrSubstr: "store.database is required",
		},
		{
			name: "sqlite requires path",
			cfg: Config{
				Server: ServerConfig{HTTPAddr: ":8080"},
				Store:  StoreConfig{Driver: DriverSQLite},
			},
			wantErrSubstr: "store.path is required",
		},
		{
			name: "unknown driver",
			cfg: Config{
				Server: ServerConfig{HTTPAddr: ":8080"},
				Store:  StoreConfig{Driver: "postgres"},
			},
			wantErrSubstr: "store.driver must be",
		},
		{
			name: "http addr required without stdio",
			cfg: Config{
				Store: StoreConfig{Driver: DriverSQLite, Path: "x.db"},
			},
			wantErrSubstr: "server.http_addr is required",
		},
		{
			name: "stdio allows empty http addr",
			cfg: Config{
				Server: ServerConfig{Stdio: true},
				Store:  StoreConfig{Driver: DriverSQLite, Path: "x.db"},
			},
		},
		{
			name: "require_auth needs secret",
			cfg: Config{
				Server: ServerConfig{HTTPAddr: ":8080"},
				Store:  StoreConfig{Driver: DriverSQLite, Path: "x.db"},
				Auth:   AuthConfig{RequireAuth: true},
			},
			wantErrSubstr: "auth.jwt_secret is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErrSubstr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tt.wantErrSubstr)
			}
			if !strings.Contains(err.Error(), tt.wantErrSubstr) {
				t.Errorf("Validate() error = %q, want error containing %q", err.Error(), tt.wantErrSubstr)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("FOO", "bar")
	t.Setenv("BAZ", "qux")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "single env var",
			input:    "${FOO}",
			expected: "bar",
		},
		{
			name:     "env var with surrounding text",
			input:    "prefix-${FOO}-suffix",
			expected: "prefix-bar-suffix",
		},
		{
			name:     "multiple env vars",
			input:    "${FOO}/${BAZ}",
			expected: "bar/qux",
		},
		{
			name:     "no env vars",
			input:    "no-vars-here",
			expected: "no-vars-here",
		},
		{
			name:     "unset env var",
			input:    "${UNSET_VAR}",
			expected: "",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := expandEnvVars(tt.input)
			if result != tt.expected {
				t.Errorf("expandEnvVars(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
