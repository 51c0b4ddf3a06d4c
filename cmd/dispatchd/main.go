// Command dispatchd runs the master scheduler as a standalone daemon: it
// loads the node configuration, starts the scheduler's command loop, mounts
// the admin HTTP API, and serves Prometheus metrics and health endpoints,
// the way cmd/warren's "cluster init" brings up a manager process.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuemby/dispatch/pkg/api"
	"github.com/cuemby/dispatch/pkg/config"
	"github.com/cuemby/dispatch/pkg/events"
	"github.com/cuemby/dispatch/pkg/log"
	"github.com/cuemby/dispatch/pkg/metrics"
	"github.com/cuemby/dispatch/pkg/reconciler"
	"github.com/cuemby/dispatch/pkg/scheduler"
	"github.com/cuemby/dispatch/pkg/storage"
	"github.com/cuemby/dispatch/pkg/types"
	"github.com/cuemby/dispatch/pkg/worker"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// spawnerProxy breaks the construction cycle between the Scheduler (which
// needs a Spawner at New time) and the worker package's SimWorker (which
// needs the Scheduler as its Terminator): the scheduler is built against the
// proxy, and the real worker is plugged in once it exists.
type spawnerProxy struct {
	delegate scheduler.Spawner
}

func (p *spawnerProxy) Start(ctx context.Context, workerID string, task *types.Task, node string) error {
	return p.delegate.Start(ctx, workerID, task, node)
}

func (p *spawnerProxy) Kill(workerID string) {
	p.delegate.Kill(workerID)
}

var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "dispatchd",
	Short:   "dispatchd runs the master scheduler for a compute cluster",
	Version: fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildTime),
	RunE:    runDaemon,
}

func init() {
	rootCmd.SetVersionTemplate("dispatchd version {{.Version}}\n")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", true, "emit structured JSON logs")
	rootCmd.Flags().String("config", "nodes.yaml", "path to the node configuration file")
	rootCmd.Flags().String("api-addr", "127.0.0.1:8080", "admin API listen address")
	rootCmd.Flags().String("metrics-addr", "127.0.0.1:9090", "Prometheus metrics listen address")
	rootCmd.Flags().String("grpc-health-addr", "", "optional gRPC health service listen address")
	rootCmd.Flags().String("data-dir", "./data", "directory for the durable event-audit database")
	rootCmd.Flags().Duration("reconcile-period", 10*time.Second, "observability sampling period")
	cobra.OnInitialize(initLogging)
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	jsonOut, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOut, Output: os.Stdout})
}

func runDaemon(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	apiAddr, _ := cmd.Flags().GetString("api-addr")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	grpcHealthAddr, _ := cmd.Flags().GetString("grpc-health-addr")
	dataDir, _ := cmd.Flags().GetString("data-dir")
	period, _ := cmd.Flags().GetDuration("reconcile-period")

	logger := log.WithComponent("dispatchd")

	nodes, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load node config: %w", err)
	}
	logger.Info().Int("nodes", len(nodes)).Str("config", configPath).Msg("loaded node configuration")

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	store, err := storage.NewBoltStore(dataDir)
	if err != nil {
		return fmt.Errorf("failed to open event store: %w", err)
	}

	broker := events.NewBroker()
	broker.Start()

	proxy := &spawnerProxy{}
	sched := scheduler.New(proxy, nodes, broker)
	proxy.delegate = worker.New(sched, worker.FixedRunner{Result: types.ResultOK, Delay: 50 * time.Millisecond})
	sched.Start()
	logger.Info().Msg("scheduler started")

	sub := broker.Subscribe()
	go persistEvents(sub, store, logger)

	recon := reconciler.New(sched, period)
	recon.Start()
	logger.Info().Msg("reconciler started")

	metrics.RegisterComponent("scheduler", true, "running")
	metrics.RegisterComponent("api", false, "initializing")

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		mux.Handle("/health", metrics.HealthHandler())
		mux.Handle("/ready", metrics.ReadyHandler())
		mux.Handle("/live", metrics.LivenessHandler())
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()
	logger.Info().Str("addr", metricsAddr).Msg("metrics endpoint listening")

	apiSrv := api.NewServer(sched, store)
	errCh := make(chan error, 1)
	go func() {
		if err := apiSrv.ListenAndServe(apiAddr); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("admin API server error: %w", err)
		}
	}()
	logger.Info().Str("addr", apiAddr).Msg("admin API listening")

	var grpcHealth *api.GRPCHealthServer
	if grpcHealthAddr != "" {
		grpcHealth = api.NewGRPCHealthServer("dispatchd")
		go func() {
			if err := grpcHealth.Serve(grpcHealthAddr); err != nil {
				errCh <- fmt.Errorf("gRPC health server error: %w", err)
			}
		}()
		logger.Info().Str("addr", grpcHealthAddr).Msg("gRPC health service listening")
	}

	metrics.RegisterComponent("api", true, "ready")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info().Msg("shutting down")
	case err := <-errCh:
		logger.Error().Err(err).Msg("fatal error")
	}

	recon.Stop()
	sched.Stop()
	broker.Unsubscribe(sub)
	broker.Stop()
	if grpcHealth != nil {
		grpcHealth.Stop()
	}
	if err := store.Close(); err != nil {
		logger.Error().Err(err).Msg("failed to close event store")
	}

	logger.Info().Msg("shutdown complete")
	return nil
}

func persistEvents(sub events.Subscriber, store storage.Store, logger zerolog.Logger) {
	for ev := range sub {
		if err := store.AppendEvent(ev.Jobname, ev); err != nil {
			logger.Error().Err(err).Str("jobname", ev.Jobname).Msg("failed to persist event")
		}
	}
}
