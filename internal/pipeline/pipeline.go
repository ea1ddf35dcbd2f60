// Package pipeline orchestrates one watcher run: load the ledger, trim it to
// the retention window, fetch the feed, keep what is genuinely new, persist,
// then announce each new spending group. Runs are single-threaded and
// run-to-completion; the pipeline is the only writer of the ledger it is
// configured with.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"pacwatch/internal/feed"
	"pacwatch/internal/notify"
	"pacwatch/internal/records"
	"pacwatch/internal/records/store"
	"pacwatch/internal/report"
)

//go:generate mockgen -source=pipeline.go -destination=mocks/mocks.go -package=mocks FeedSource,Ledger,Dispatcher

// FeedSource yields the current disclosure snapshot.
type FeedSource interface {
	Fetch(ctx context.Context) ([]feed.Entry, error)
}

// Ledger persists the set of already-announced records. Load returns
// store.ErrNotExist when nothing has ever been saved.
type Ledger interface {
	Load(ctx context.Context) ([]records.Expenditure, error)
	Save(ctx context.Context, ledger []records.Expenditure) error
}

// Dispatcher delivers one rendered summary, retrying internally.
type Dispatcher interface {
	Dispatch(ctx context.Context, text string) (notify.Delivery, error)
}

// Options are the per-run behavior knobs. The zero value is the safe one: a
// dry run that records nothing and sends nothing. Production defaults come
// from the config layer.
type Options struct {
	// MinReportAmount suppresses announcements for groups below it. The
	// records still enter the ledger.
	MinReportAmount decimal.Decimal

	// WindowDays is the retention window; zero or negative means 30.
	WindowDays int

	// InterDispatch is the pause after each dispatch attempt cycle.
	InterDispatch time.Duration

	// CharLimit bounds rendered summaries; zero or negative means 280.
	CharLimit int

	// Send dispatches summaries when true; otherwise they are logged only.
	Send bool

	// Record merges new records into the saved ledger when true. The
	// trimmed ledger is saved either way.
	Record bool

	// Cumulative adds the running-total sentence when prior spend exists.
	Cumulative bool
}

func (o Options) normalized() Options {
	if o.WindowDays <= 0 {
		o.WindowDays = 30
	}
	if o.CharLimit <= 0 {
		o.CharLimit = 280
	}
	if o.InterDispatch < 0 {
		o.InterDispatch = 0
	}
	return o
}

var tracer = otel.Tracer("pacwatch/internal/pipeline")

// Pipeline runs the watcher end to end.
type Pipeline struct {
	source     FeedSource
	ledger     Ledger
	dispatcher Dispatcher
	opts       Options
	renderer   *report.Renderer

	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the run logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithMetrics attaches run metrics. A nil Metrics is valid and records
// nothing.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithClock replaces the capture-time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithSleep replaces the inter-dispatch pause, mainly for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Pipeline) { p.sleep = sleep }
}

// New builds a pipeline over the three ports.
func New(source FeedSource, ledger Ledger, dispatcher Dispatcher, opts Options, options ...Option) (*Pipeline, error) {
	if source == nil {
		return nil, fmt.Errorf("feed source is required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}

	opts = opts.normalized()
	p := &Pipeline{
		source:     source,
		ledger:     ledger,
		dispatcher: dispatcher,
		opts:       opts,
		renderer:   report.NewRenderer(opts.WindowDays, opts.CharLimit),
		logger:     slog.Default(),
		now:        time.Now,
		sleep:      sleepContext,
	}
	for _, opt := range options {
		if opt != nil {
			opt(p)
		}
	}
	return p, nil
}

// Run executes one complete cycle and returns its report. The report is
// returned even on failure, carrying whatever the run got through before it
// died. Fatal errors are the ones the run cannot proceed past: a broken
// ledger load, an exhausted feed, a failed save, or a cancelled context.
// Dispatch failures are per-row outcomes inside the report, never errors.
func (p *Pipeline) Run(ctx context.Context) (*RunReport, error) {
	start := p.now()
	rep := &RunReport{ID: uuid.NewString(), StartedAt: start}
	logger := p.logger.With("run_id", rep.ID)

	ctx, span := tracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(attribute.String("run.id", rep.ID)))
	defer span.End()

	ledger, err := p.loadLedger(ctx)
	if err != nil {
		return p.finish(span, rep, fmt.Errorf("load ledger: %w", err))
	}
	kept := records.Trim(ledger, start, p.opts.WindowDays)
	rep.LedgerLoaded = len(ledger)
	rep.LedgerExpired = len(ledger) - len(kept)
	logger.Debug("ledger loaded", "records", rep.LedgerLoaded, "expired", rep.LedgerExpired)

	entries, err := p.fetchFeed(ctx)
	if err != nil {
		return p.finish(span, rep, fmt.Errorf("fetch feed: %w", err))
	}
	usable := feed.Normalize(entries)
	rep.Fetched = len(entries)
	rep.Invalid = len(entries) - len(usable)
	logger.Debug("feed fetched", "entries", rep.Fetched, "invalid", rep.Invalid)

	fresh := records.Diff(usable, kept, start)
	rep.New = len(fresh)

	next := kept
	if p.opts.Record {
		next = records.Merge(kept, fresh)
	}
	if err := p.saveLedger(ctx, next); err != nil {
		return p.finish(span, rep, fmt.Errorf("save ledger: %w", err))
	}
	rep.LedgerSize = len(next)
	p.metrics.ObserveLedger(rep.New, rep.LedgerExpired, rep.LedgerSize)
	logger.Debug("ledger saved", "records", rep.LedgerSize, "recorded", p.opts.Record)

	totals := report.AggregateLedger(next)
	groups := report.AggregateNew(fresh)
	rep.NewGroups = len(groups)
	logger.Info("new expenditures",
		"records", rep.New, "groups", rep.NewGroups, "of_fetched", rep.Fetched)

	if err := p.announce(ctx, logger, rep, groups, totals); err != nil {
		return p.finish(span, rep, err)
	}

	span.SetAttributes(
		attribute.Int("records.new", rep.New),
		attribute.Int("records.ledger", rep.LedgerSize),
		attribute.Int("announcements.delivered", rep.Delivered),
		attribute.Int("announcements.failed", rep.DispatchFailed),
	)
	logger.Info("run complete",
		"duration", p.now().Sub(start),
		"delivered", rep.Delivered,
		"failed", rep.DispatchFailed,
	)
	return p.finish(span, rep, nil)
}

// loadLedger treats a never-written ledger as empty. Anything else is a real
// failure: announcing against a half-read ledger would re-post old filings.
func (p *Pipeline) loadLedger(ctx context.Context) ([]records.Expenditure, error) {
	ctx, span := tracer.Start(ctx, "pipeline.load")
	ledger, err := p.ledger.Load(ctx)
	if errors.Is(err, store.ErrNotExist) {
		ledger, err = nil, nil
	}
	endSpan(span, err)
	return ledger, err
}

func (p *Pipeline) fetchFeed(ctx context.Context) ([]feed.Entry, error) {
	ctx, span := tracer.Start(ctx, "pipeline.fetch")
	entries, err := p.source.Fetch(ctx)
	endSpan(span, err)
	return entries, err
}

func (p *Pipeline) saveLedger(ctx context.Context, ledger []records.Expenditure) error {
	ctx, span := tracer.Start(ctx, "pipeline.save")
	err := p.ledger.Save(ctx, ledger)
	endSpan(span, err)
	return err
}

// announce walks the new groups in order. Rows are independent: a row that
// cannot be rendered or delivered is logged, counted, and left behind. The
// ledger was saved before this loop, so every row announced here is already
// recorded and will not resurface next run. Only context cancellation stops
// the loop early.
func (p *Pipeline) announce(ctx context.Context, logger *slog.Logger, rep *RunReport, groups, totals []report.Aggregate) error {
	ctx, span := tracer.Start(ctx, "pipeline.announce")
	defer span.End()

	for _, group := range groups {
		if err := ctx.Err(); err != nil {
			return err
		}

		if group.Amount.LessThan(p.opts.MinReportAmount) {
			rep.BelowThreshold++
			logger.Debug("group below report threshold",
				"pac", group.PAC, "candidate", group.Candidate, "amount", group.Amount)
			continue
		}

		var cumulative *decimal.Decimal
		if p.opts.Cumulative {
			if total, ok := report.Cumulative(totals, group.Key); ok {
				cumulative = &total
			}
		}

		msg, err := p.renderer.Compose(group, cumulative)
		if err != nil {
			rep.RenderFailed++
			p.metrics.IncrementAnnouncement(outcomeSkipped)
			logger.Error("summary cannot be rendered, skipping row",
				"pac", group.PAC, "candidate", group.Candidate, "error", err)
			continue
		}
		if msg.Truncated {
			logger.Error("summary truncated at character limit", "text", msg.Text)
		}

		if !p.opts.Send {
			rep.Announcements = append(rep.Announcements, Announcement{
				Text:    msg.Text,
				Outcome: OutcomeDryRun,
			})
			p.metrics.IncrementAnnouncement(string(OutcomeDryRun))
			logger.Info("dry run, not dispatching", "text", msg.Text)
			continue
		}

		delivery, err := p.dispatcher.Dispatch(ctx, msg.Text)
		if err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		ann := Announcement{Text: msg.Text, PostID: delivery.ID, Attempts: delivery.Attempts}
		if err != nil {
			ann.Outcome = OutcomeFailed
			ann.Error = err.Error()
			rep.DispatchFailed++
			logger.Error("dispatch failed, skipping row", "attempts", delivery.Attempts, "error", err)
		} else {
			ann.Outcome = OutcomeDelivered
			rep.Delivered++
			logger.Info("summary dispatched",
				"post_id", delivery.ID, "attempts", delivery.Attempts, "text", msg.Text)
		}
		rep.Announcements = append(rep.Announcements, ann)
		p.metrics.IncrementAnnouncement(string(ann.Outcome))
		p.metrics.ObserveDispatchAttempts(delivery.Attempts)

		if err := p.sleep(ctx, p.opts.InterDispatch); err != nil {
			return err
		}
	}
	return nil
}

// finish stamps the end time, mirrors a fatal error into the report, and
// records run metrics. Every Run return path goes through here.
func (p *Pipeline) finish(span trace.Span, rep *RunReport, err error) (*RunReport, error) {
	rep.FinishedAt = p.now()
	outcome := "ok"
	if err != nil {
		outcome = "error"
		rep.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	p.metrics.ObserveRun(outcome, rep.FinishedAt.Sub(rep.StartedAt))
	return rep, err
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// sleepContext pauses without outliving the context.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
