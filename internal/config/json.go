package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/fieldvisor/auditsync/internal/flagx"
	"github.com/fieldvisor/auditsync/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "1m" or as integer nanoseconds. After parsing, values
// are copied into the runtime Config (which uses time.Duration).
type JsonConfig struct {
	APIBaseURL     string         `json:"api_base_url"`
	AuthToken      string         `json:"auth_token"`
	StoreBackend   string         `json:"store_backend"`
	StoreDir       string         `json:"store_dir"`
	SyncInterval   timex.Duration `json:"sync_interval"`
	ProbeURL       string         `json:"probe_url"`
	RequestTimeout timex.Duration `json:"request_timeout"`
	MaxRetries     int            `json:"max_retries"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// Lookup order for the JSON file path:
//  1. Command-line flags (-c or -config) via flagx.JSONConfigFlags().
//  2. If empty, no JSON is loaded and the function returns.
//
// Panics on read or unmarshal errors (caller should recover if desired).
//
// Intended usage is: defaults -> parseJson -> parseFlags, where later stages
// override earlier ones.
func parseJson(cfg *Config) {
	// Resolve file path from flags.
	jsonConfigFile := flagx.JSONConfigFlags()
	if jsonConfigFile == "" {
		return
	}
	if err := ApplyFile(cfg, jsonConfigFile); err != nil {
		panic(err)
	}
}

// ApplyFile overlays cfg with values from the JSON file at path. Only fields
// present in the file override the current value; absent or zero-valued
// fields keep what cfg already holds.
func ApplyFile(cfg *Config, path string) error {
	var jc JsonConfig

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		return err
	}

	if jc.APIBaseURL != "" {
		cfg.APIBaseURL = jc.APIBaseURL
	}
	if jc.AuthToken != "" {
		cfg.AuthToken = jc.AuthToken
	}
	if jc.StoreBackend != "" {
		cfg.StoreBackend = jc.StoreBackend
	}
	if jc.StoreDir != "" {
		cfg.StoreDir = jc.StoreDir
	}
	if jc.SyncInterval.Duration != 0 {
		cfg.SyncInterval = time.Duration(jc.SyncInterval.Duration)
	}
	if jc.ProbeURL != "" {
		cfg.ProbeURL = jc.ProbeURL
	}
	if jc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = time.Duration(jc.RequestTimeout.Duration)
	}
	if jc.MaxRetries != 0 {
		cfg.MaxRetries = jc.MaxRetries
	}
	return nil
}
