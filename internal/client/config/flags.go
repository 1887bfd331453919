package config

import (
	"flag"
	"os"
	"time"

	"github.com/safenetai/safebank-client/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string      base URL of the backend API (default from Config)
//	-t int         request timeout in seconds (default from Config)
//	-d string      path to the local credential database
//	-v string      log level (debug, info, warn, error)
//	-lat float     fixed device latitude
//	-lng float     fixed device longitude
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	// Filter args to include only those handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-t", "-d", "-v", "-lat", "-lng"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.BaseURL, "a", cfg.BaseURL, "base URL of the backend API")
	requestTimeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "path to the local credential database")
	fs.StringVar(&cfg.LogLevel, "v", cfg.LogLevel, "log level (debug, info, warn, error)")
	lat := fs.Float64("lat", cfg.Lat, "fixed device latitude")
	lng := fs.Float64("lng", cfg.Lng, "fixed device longitude")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*requestTimeout) * time.Second
	cfg.Lat = *lat
	cfg.Lng = *lng

	// Location counts as configured only when the user actually passed it.
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "lat" || f.Name == "lng" {
			cfg.HasLocation = true
		}
	})
}
