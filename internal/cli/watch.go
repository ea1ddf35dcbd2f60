package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"pacwatch/internal/pipeline"
	"pacwatch/internal/platform/config"
	"pacwatch/internal/platform/httpserver"
	"pacwatch/internal/platform/logger"
	"pacwatch/internal/platform/tracing"
	httptransport "pacwatch/internal/transport/http"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Interval  time.Duration
	AdminAddr string
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the feed on an interval until interrupted",
		Long: `Run the pipeline on a fixed interval, keeping an in-memory history of
run reports. An admin HTTP server exposes the history, health, and
Prometheus metrics while the daemon runs.

A failed run is recorded and retried on the next tick; only a signal
stops the daemon.

Example:
  pacwatch watch
  pacwatch watch --interval 5m --admin-addr :9090`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, opts)
		},
	}

	cmd.Flags().DurationVar(&opts.Interval, "interval", 0, "time between polls")
	cmd.Flags().StringVar(&opts.AdminAddr, "admin-addr", "", "admin API listen address")

	return cmd
}

func runWatch(cmd *cobra.Command, opts *WatchOptions) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return WrapExitError(ExitUsage, "invalid configuration", err)
	}
	if cmd.Flags().Changed("interval") {
		cfg.Watch.Interval = opts.Interval
	}
	if cmd.Flags().Changed("admin-addr") {
		cfg.Watch.AdminAddr = opts.AdminAddr
	}
	if cfg.Watch.Interval <= 0 {
		return NewExitError(ExitUsage, "watch interval must be positive")
	}

	log := logger.New(cfg.Verbose || opts.Verbose)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing, "pacwatch")
	if err != nil {
		return WrapExitError(ExitUsage, "tracing setup", err)
	}
	defer flushTraces(shutdownTracing, log)

	p, cleanup, err := buildPipeline(ctx, cfg, log)
	if err != nil {
		return WrapExitError(ExitUsage, "assemble pipeline", err)
	}
	defer cleanup()

	history := pipeline.NewHistory(cfg.Watch.HistoryLimit)
	router := httptransport.NewRouter(httptransport.New(history, log), log)
	srv := httpserver.New(cfg.Watch.AdminAddr, router)

	log.Info("watch starting",
		"interval", cfg.Watch.Interval,
		"admin_addr", cfg.Watch.AdminAddr,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Serve(ctx, srv)
	})
	g.Go(func() error {
		return watchLoop(ctx, p, history, cfg.Watch.Interval, log)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "watch stopped", err)
	}
	log.Info("watch stopped")
	return nil
}

// watchLoop runs the pipeline immediately and then once per tick. Run
// failures are recorded in the history and retried on the next tick; only
// context cancellation stops the loop.
func watchLoop(ctx context.Context, p *pipeline.Pipeline, history *pipeline.History, interval time.Duration, log *slog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		rep, err := p.Run(ctx)
		history.Add(rep)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error("run failed; retrying on next tick", "error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
