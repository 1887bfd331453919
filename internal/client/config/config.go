package config

import "time"

// Config holds runtime settings for the SafeBank CLI.
//
// Fields:
//   - BaseURL: root URL of the backend REST API.
//   - RequestTimeout: per-request HTTP timeout.
//   - DatabasePath: path to the local sqlite credential store.
//   - LogLevel: slog level name (debug, info, warn, error).
//   - Lat, Lng: optional fixed device coordinates; used only when HasLocation.
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
	DatabasePath   string
	LogLevel       string

	Lat         float64
	Lng         float64
	HasLocation bool
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.BaseURL = "http://127.0.0.1:8000/api"
	c.RequestTimeout = 15 * time.Second
	c.DatabasePath = "safebank.db"
	c.LogLevel = "info"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
