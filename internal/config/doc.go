// Package config handles configuration loading for docgate.
//
// # Overview
//
// Configuration is loaded from a YAML file with environment variable
// expansion, then overlaid with well-known environment variables. A missing
// file is fine: defaults plus environment alone describe a working server,
// so env-only deployments need no file at all.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${DOCGATE_JWT_SECRET}"
//
// Syntax: ${VAR_NAME}
//
// # Store Environment Overrides
//
// Three variables override the store section regardless of the file:
//
//	COSMOSDB_URI        account endpoint; setting it selects the cosmos driver
//	COSMOSDB_KEY        account key; empty means managed identity
//	COSMOS_DATABASE_ID  database id
//
// # Configuration Sections
//
// Transports:
//
//	server:
//	  http_addr: "127.0.0.1:8080"
//	  stdio: false          # serve stdin/stdout instead of HTTP
//
// Document store:
//
//	store:
//	  driver: "sqlite"      # sqlite or cosmos
//	  path: "./docgate.db"  # sqlite only
//	  endpoint: ""          # cosmos only
//	  key: ""               # cosmos only; empty -> managed identity
//	  database: ""          # cosmos only
//	  request_timeout: "30s"
//
// Authentication:
//
//	auth:
//	  jwt_secret: "${DOCGATE_JWT_SECRET}"
//	  require_auth: false
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Validation
//
// Load() validates driver-specific requirements: cosmos needs an endpoint
// and database, sqlite needs a path, and require_auth needs a jwt_secret.
package config
