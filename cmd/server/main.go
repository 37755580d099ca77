// Command server runs the abiconsole live control surface.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matthewbaird/abiconsole/internal/abi"
	"github.com/matthewbaird/abiconsole/internal/activity"
	"github.com/matthewbaird/abiconsole/internal/config"
	"github.com/matthewbaird/abiconsole/internal/console"
	"github.com/matthewbaird/abiconsole/internal/emit"
	"github.com/matthewbaird/abiconsole/internal/endpoint/ethrpc"
	"github.com/matthewbaird/abiconsole/internal/event"
	"github.com/matthewbaird/abiconsole/internal/eventbus"
	"github.com/matthewbaird/abiconsole/internal/invoke"
	"github.com/matthewbaird/abiconsole/internal/logging"
	"github.com/matthewbaird/abiconsole/internal/typemap"
)

// cleanupInterval is how often idle websocket clients are forgotten.
const cleanupInterval = 5 * time.Minute

func main() {
	var configPath, abiPath string
	cmd := &cobra.Command{
		Use:           "server",
		Short:         "Serve the abiconsole HTTP and websocket API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, configPath, abiPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", os.Getenv("ABICONSOLE_CONFIG"), "CUE configuration file")
	cmd.Flags().StringVar(&abiPath, "abi", "", "interface description to load at startup")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, abiPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, _, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	journal, closeJournal, err := openJournal(ctx, cfg.Journal)
	if err != nil {
		return err
	}
	defer closeJournal()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	bus := eventbus.New(cfg.Events.Buffer, log)
	reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "abiconsole_events_dropped_total",
		Help: "Engine events discarded because the bus buffer was full or stopped.",
	}, func() float64 { return float64(bus.Dropped()) }))
	hub := console.NewHub(log)
	bus.Subscribe("log", eventbus.NewLogConsumer(log))
	bus.Subscribe("journal", event.NewActivityRecorder(journal))
	bus.Subscribe("hub", hub)
	bus.Start(ctx)
	defer bus.Stop()

	engine := invoke.New(
		invoke.WithPublisher(bus),
		invoke.WithMetrics(invoke.NewMetrics(reg)),
		invoke.WithLogger(log),
	)
	if abiPath != "" {
		if err := preload(ctx, engine, abiPath); err != nil {
			return err
		}
	}

	provider := ethrpc.NewProvider(ethrpc.Config{
		URL:          cfg.RPC.URL,
		ChainID:      cfg.RPC.ChainID,
		SignerKey:    cfg.RPC.SignerKey,
		PollInterval: cfg.RPC.Poll(),
	}, log)
	ep := console.NewEndpoint(provider, log)
	if cfg.RPC.URL != "" {
		// Calls fail with ENDPOINT_UNAVAILABLE until POST /api/session succeeds.
		if err := ep.Acquire(ctx); err != nil {
			log.Warn("endpoint unavailable at startup", zap.Error(err))
		}
	}
	defer ep.Close()

	dialect, err := typemap.ParseDialect(cfg.Emit.Dialect)
	if err != nil {
		return err
	}
	mode, err := emit.ParseMode(cfg.Emit.Mode)
	if err != nil {
		return err
	}

	srv := console.New(console.Config{
		Engine:   engine,
		Endpoint: ep,
		Journal:  journal,
		Hub:      hub,
		Gatherer: reg,
		Target:   cfg.RPC.Target,
		Dialect:  dialect,
		Mode:     mode,
		Log:      log,
	})
	go srv.Clients().Run(ctx, cleanupInterval)

	return console.Run(ctx, cfg.Port, srv.Routes(), log)
}

func openJournal(ctx context.Context, cfg config.JournalConfig) (activity.Store, func(), error) {
	if cfg.Driver != "sqlite" {
		return activity.NewMemoryStore(), func() {}, nil
	}
	store, err := activity.OpenSQLite(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { store.Close() }, nil
}

func preload(ctx context.Context, engine *invoke.Engine, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading interface: %w", err)
	}
	schema, err := abi.ParseArtifact(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	engine.Load(ctx, schema)
	return nil
}
