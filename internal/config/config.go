package config

import "time"

// Config holds runtime settings for the auditsync client.
//
// Fields:
//   - APIBaseURL: base URL of the audit backend REST API.
//   - AuthToken: bearer token presented on every API call.
//   - StoreBackend: local store implementation, "badger" or "sqlite".
//   - StoreDir: directory (badger) or file path (sqlite) for the local store.
//   - SyncInterval: how often the scheduler triggers a background drain.
//   - ProbeURL: endpoint the connectivity monitor probes for reachability.
//   - RequestTimeout: per-request timeout for API calls.
//   - MaxRetries: replay attempts before a queued operation is dropped.
type Config struct {
	APIBaseURL     string
	AuthToken      string
	StoreBackend   string
	StoreDir       string
	SyncInterval   time.Duration
	ProbeURL       string
	RequestTimeout time.Duration
	MaxRetries     int
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://127.0.0.1:8080"
	c.StoreBackend = "badger"
	c.StoreDir = "./auditsync-data"
	c.SyncInterval = 1 * time.Minute
	c.ProbeURL = "http://clients3.google.com/generate_204"
	c.RequestTimeout = 20 * time.Second
	c.MaxRetries = 3
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
