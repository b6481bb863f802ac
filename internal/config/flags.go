package config

import (
	"flag"
	"os"
	"time"

	"github.com/fieldvisor/auditsync/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the audit backend API (default from Config)
//	-t string   bearer token for API calls
//	-d string   local store directory or file path
//	-b string   local store backend, "badger" or "sqlite"
//	-i int      background sync interval in seconds (default from Config)
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	// Filter args to include only those handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-t", "-d", "-b", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "base URL of the audit backend API")
	fs.StringVar(&cfg.AuthToken, "t", cfg.AuthToken, "bearer token for API calls")
	fs.StringVar(&cfg.StoreDir, "d", cfg.StoreDir, "local store directory or file path")
	fs.StringVar(&cfg.StoreBackend, "b", cfg.StoreBackend, "local store backend (badger or sqlite)")
	syncInterval := fs.Int("i", int(cfg.SyncInterval.Seconds()), "background sync interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.SyncInterval = time.Duration(*syncInterval) * time.Second
}
