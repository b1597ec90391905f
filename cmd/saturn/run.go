package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"leadforge-hq/saturn/pkg/audit"
	"leadforge-hq/saturn/pkg/budget"
	"leadforge-hq/saturn/pkg/config"
	"leadforge-hq/saturn/pkg/docstore"
	"leadforge-hq/saturn/pkg/rates"
	"leadforge-hq/saturn/pkg/server"
	"leadforge-hq/saturn/pkg/telemetry/logging"
	"leadforge-hq/saturn/pkg/telemetry/metrics"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Saturn admin server",
	Long: `Start the Saturn admin server with the specified configuration.

The server exposes budget initialization, status, intensity, reporting and
emergency stop endpoints, plus Prometheus metrics when enabled.

Examples:
  # Start with default config
  saturn run

  # Start with custom config
  saturn run --config /etc/saturn/config.yaml

  # Override listen address
  saturn run --listen 0.0.0.0:8080

  # Validate config without starting the server
  saturn run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	if _, err := logging.Init(logging.Config{
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
	}); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Saturn v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	// Budget state store
	var store docstore.Store
	switch cfg.Store.Backend {
	case "sqlite":
		store, err = docstore.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("failed to open budget store: %w", err)
		}
	default:
		store = docstore.NewMemoryStore()
	}
	defer store.Close()

	// Audit trail
	var auditStore audit.Store
	switch cfg.Audit.Backend {
	case "sqlite":
		auditStore, err = audit.NewSQLiteStore(&audit.SQLiteConfig{Path: cfg.Audit.Path})
		if err != nil {
			return fmt.Errorf("failed to open audit store: %w", err)
		}
	default:
		auditStore = audit.NewMemoryStore()
	}
	defer auditStore.Close()

	slog.Info("stores initialized",
		"store_backend", cfg.Store.Backend,
		"audit_backend", cfg.Audit.Backend,
	)

	// Rate table, with optional file overrides and hot reload
	table := rates.NewTable()
	if cfg.Rates.Path != "" {
		if err := table.LoadFile(cfg.Rates.Path); err != nil {
			return fmt.Errorf("failed to load rates file: %w", err)
		}
		fmt.Printf("✓ Rates loaded from %s\n", cfg.Rates.Path)

		if cfg.Rates.Watch {
			watcher, err := rates.NewWatcher(table, rates.WatcherConfig{Path: cfg.Rates.Path}, nil)
			if err != nil {
				return fmt.Errorf("failed to create rates watcher: %w", err)
			}
			defer watcher.Stop()
			go func() {
				if err := watcher.Watch(cmd.Context()); err != nil {
					slog.Error("rates watcher exited", "error", err)
				}
			}()
		}
	}

	// Metrics
	var budgetMetrics budget.Metrics
	var metricsHandler http.Handler
	if cfg.Telemetry.Metrics.Enabled {
		bm := metrics.New()
		budgetMetrics = bm
		metricsHandler = bm.Handler()
	}

	engine := budget.NewEngine(budget.Config{
		Store:   store,
		Audit:   auditStore,
		Rates:   table,
		Metrics: budgetMetrics,
	})

	// Audit retention
	if cfg.Audit.PruneSchedule != "" && cfg.Audit.RetentionDays > 0 {
		pruner := audit.NewPruner(auditStore, audit.RetentionConfig{
			RetentionDays: cfg.Audit.RetentionDays,
			PruneSchedule: cfg.Audit.PruneSchedule,
		})
		scheduler := audit.NewScheduler(pruner)
		if err := scheduler.Start(context.Background()); err != nil {
			slog.Warn("failed to start retention scheduler", "error", err)
		} else {
			defer scheduler.Stop()
			fmt.Println("✓ Audit retention scheduler started")
		}
	}

	srv := server.NewServer(&cfg.Server, engine, metricsHandler)

	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Health endpoint: http://%s/healthz\n", cfg.Server.ListenAddress)
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Printf("✓ Metrics endpoint: http://%s/metrics\n", cfg.Server.ListenAddress)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Start blocks until a signal or shutdown.
	return srv.Start(cmd.Context())
}
