// Package cli implements the auditsync diagnostic commands: inspecting the
// local store and operation queue, and forcing a drain cycle. It is operator
// tooling, not the app's service surface.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/fieldvisor/auditsync/internal/api"
	"github.com/fieldvisor/auditsync/internal/audit"
	"github.com/fieldvisor/auditsync/internal/config"
	"github.com/fieldvisor/auditsync/internal/kv"
	"github.com/fieldvisor/auditsync/internal/logging"
	"github.com/fieldvisor/auditsync/internal/netx"
	"github.com/fieldvisor/auditsync/internal/queue"
	"github.com/fieldvisor/auditsync/internal/syncer"
)

// CLI holds flag values shared by all commands. Flag overrides apply on top
// of defaults and the optional JSON config file.
type CLI struct {
	cfg *config.Config

	configPath string
	apiURL     string
	token      string
	storeDir   string
	backend    string
	probeURL   string
	verbose    bool
}

// NewRootCmd builds the auditsync command tree.
func NewRootCmd() *cobra.Command {
	c := &CLI{}

	root := &cobra.Command{
		Use:           "auditsync",
		Short:         "Inspect and drive the offline audit sync queue",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&c.configPath, "config", "c", "", "path to JSON config file")
	pf.StringVar(&c.apiURL, "api-url", "", "base URL of the audit backend API")
	pf.StringVar(&c.token, "token", "", "bearer token for API calls")
	pf.StringVar(&c.storeDir, "store-dir", "", "local store directory or file path")
	pf.StringVar(&c.backend, "backend", "", "local store backend (badger, sqlite or memory)")
	pf.StringVar(&c.probeURL, "probe-url", "", "reachability probe endpoint")
	pf.BoolVarP(&c.verbose, "verbose", "v", false, "log to stderr")

	root.AddCommand(c.newStatusCmd(), c.newQueueCmd(), c.newDrainCmd())
	return root
}

// setup resolves the effective config: defaults, then the JSON file, then
// any non-empty flag overrides.
func (c *CLI) setup() error {
	cfg := &config.Config{}
	cfg.LoadDefaults()

	if c.configPath != "" {
		if err := config.ApplyFile(cfg, c.configPath); err != nil {
			return fmt.Errorf("load config %s: %w", c.configPath, err)
		}
	}
	if c.apiURL != "" {
		cfg.APIBaseURL = c.apiURL
	}
	if c.token != "" {
		cfg.AuthToken = c.token
	}
	if c.storeDir != "" {
		cfg.StoreDir = c.storeDir
	}
	if c.backend != "" {
		cfg.StoreBackend = c.backend
	}
	if c.probeURL != "" {
		cfg.ProbeURL = c.probeURL
	}

	c.cfg = cfg
	return nil
}

// app is the wired component graph a command operates on. Commands build it,
// run, and Close it; nothing outlives a single invocation.
type app struct {
	store    kv.Store
	queue    *queue.Queue
	client   *api.Client
	monitor  *netx.Monitor
	progress *audit.ProgressStore
	engine   *syncer.Engine
}

func (c *CLI) logger() logging.Logger {
	if !c.verbose {
		return logging.NewDiscard()
	}
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

func (c *CLI) newApp(ctx context.Context) (*app, error) {
	log := c.logger()

	store, err := openStore(ctx, c.cfg)
	if err != nil {
		return nil, err
	}

	q, err := queue.New(ctx, store, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	client := api.NewClient(c.cfg.APIBaseURL, api.StaticToken(c.cfg.AuthToken),
		api.WithTimeout(c.cfg.RequestTimeout),
		api.WithClientLogger(log))

	monitor := netx.NewMonitor(netx.HostLink(),
		netx.WithProber(netx.NewHTTPProber(c.cfg.ProbeURL)),
		netx.WithLogger(log))

	progress := audit.NewProgressStore(store, q, client, monitor,
		audit.WithProgressLogger(log))

	engine := syncer.NewEngine(q, client, monitor,
		syncer.WithLogger(log),
		syncer.WithOnSynced(progress.HandleSynced))

	return &app{
		store:    store,
		queue:    q,
		client:   client,
		monitor:  monitor,
		progress: progress,
		engine:   engine,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

func openStore(ctx context.Context, cfg *config.Config) (kv.Store, error) {
	switch cfg.StoreBackend {
	case "badger":
		return kv.OpenBadger(kv.BadgerOptions{Path: cfg.StoreDir})
	case "sqlite":
		return kv.OpenSQLite(ctx, cfg.StoreDir)
	case "memory":
		return kv.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
