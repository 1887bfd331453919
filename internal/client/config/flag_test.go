package config

import (
	"flag"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {

	// Test cases
	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "Test1 OK", args: []string{"cmd", "-a", "https://bank.example.com/api", "-t", "30", "-d", "/tmp/bank.db", "-v", "debug"}, expectPanic: false,
			expected: &Config{BaseURL: "https://bank.example.com/api", RequestTimeout: 30 * time.Second, DatabasePath: "/tmp/bank.db", LogLevel: "debug"}},
		{name: "Test2 location flags", args: []string{"cmd", "-lat", "56.95", "-lng", "24.11"}, expectPanic: false,
			expected: &Config{Lat: 56.95, Lng: 24.11, HasLocation: true}},
		{name: "Test3 incorrect timeout", args: []string{"cmd", "-a", "https://bank.example.com/api", "-t", "abc"}, expectPanic: true, expected: &Config{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.PanicOnError)

			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {

				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
