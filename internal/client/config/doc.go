// Package config loads runtime configuration for the SafeBank CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string      base URL of the backend REST API
//	-t int         request timeout (seconds)
//	-d string      path to the local credential database
//	-v string      log level (debug, info, warn, error)
//	-lat float     fixed device latitude
//	-lng float     fixed device longitude
//
// # JSON schema
//
// The JSON loader uses timex.Duration for the timeout, so the value can be
// either a string like "15s" or integer nanoseconds:
//
//	{
//	  "base_url": "https://bank.example.com/api",
//	  "request_timeout": "15s",
//	  "database_path": "/home/user/.safebank/safebank.db",
//	  "log_level": "debug",
//	  "lat": 56.95,
//	  "lng": 24.11
//	}
//
// Primary API
//
//   - type Config                     — runtime settings for the CLI
//   - func LoadConfig() *Config       — builds Config by applying defaults, JSON, then flags
//   - func (*Config) LoadDefaults()   — sets sensible defaults
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
