// Package config provides configuration management for the lendrules service.
//
// Configuration is loaded from a YAML file, completed with defaults and
// overridden by environment variables:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("lendrules.yaml")
//
// # Environment Variable Overrides
//
// Variables follow the naming convention LENDRULES_SECTION_FIELD:
//
//   - LENDRULES_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - LENDRULES_STORE_DSN overrides store.dsn
//   - LENDRULES_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Configuration Precedence
//
//  1. Default values (defaults.go)
//  2. Values from the YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast, reporting every invalid field)
//
// # Example Configuration
//
//	server:
//	  listen_address: "0.0.0.0:8080"
//	store:
//	  backend: postgres
//	  dsn: "postgres://rules@db/lendrules"
//	rules:
//	  max_clauses: 2048
//	  domains:
//	    credit_score: {min: 300, max: 900}
//	audit:
//	  schedule: "0 3 * * *"
//	telemetry:
//	  logging:
//	    level: debug
//	    format: text
package config
