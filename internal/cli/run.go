package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"pacwatch/internal/platform/config"
	"pacwatch/internal/platform/logger"
	"pacwatch/internal/platform/metrics"
	"pacwatch/internal/platform/tracing"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	DryRun     bool
	MinAmount  string
	WindowDays int
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch the feed once, announce what's new, and exit",
		Long: `Fetch the disclosure feed once, announce every new expenditure group,
and exit. New records are merged into the ledger and records older than
the retention window are dropped.

Example:
  pacwatch run
  pacwatch run --dry-run --min-report-amount 10000`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "render summaries without dispatching or recording")
	cmd.Flags().StringVar(&opts.MinAmount, "min-report-amount", "", "suppress announcements for groups below this dollar amount")
	cmd.Flags().IntVar(&opts.WindowDays, "window-days", 0, "retention window in days")

	return cmd
}

func runOnce(cmd *cobra.Command, opts *RunOptions) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return WrapExitError(ExitUsage, "invalid configuration", err)
	}
	if err := applyRunFlags(cmd, opts, &cfg); err != nil {
		return err
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

	_, runErr := p.Run(ctx)

	// Push whatever the run recorded, even when it failed partway.
	if err := metrics.Push(cfg.Metrics); err != nil {
		log.Warn("metrics push failed", "error", err)
	}

	if runErr != nil {
		return WrapExitError(ExitFailure, "run failed", runErr)
	}
	return nil
}

// applyRunFlags overlays explicitly-set flags onto the environment config.
func applyRunFlags(cmd *cobra.Command, opts *RunOptions, cfg *config.Config) error {
	if opts.DryRun {
		cfg.Run.Send = false
		cfg.Run.Record = false
	}
	if cmd.Flags().Changed("min-report-amount") {
		minAmount, err := decimal.NewFromString(opts.MinAmount)
		if err != nil {
			return WrapExitError(ExitUsage, "invalid --min-report-amount", err)
		}
		cfg.Run.MinReportAmount = minAmount
	}
	if cmd.Flags().Changed("window-days") {
		cfg.Run.WindowDays = opts.WindowDays
	}
	return nil
}

// commandContext returns the command's context, which is only set when the
// caller (or a test) provided one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// flushTraces gives the exporter a bounded window to drain before exit.
func flushTraces(shutdown func(context.Context) error, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		log.Warn("trace flush failed", "error", err)
	}
}
