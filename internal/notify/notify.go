// Package notify delivers rendered summaries to the configured channel.
// The channel itself sits behind the one-call Notifier interface; the
// Dispatcher adds the bounded retry policy every backend shares.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Notifier posts one text to the destination channel and returns an opaque
// delivery ID.
type Notifier interface {
	Post(ctx context.Context, text string) (string, error)
}

// Delivery describes one dispatch outcome for run reporting.
type Delivery struct {
	ID       string
	Attempts int
}

// Dispatcher wraps a Notifier with retry-on-failure: one initial attempt
// plus up to retries extra attempts, a fixed delay apart. Exhausting the
// budget is reported to the caller, who treats it as a skipped message,
// never a dead run.
type Dispatcher struct {
	notifier Notifier
	retries  int
	delay    time.Duration
	logger   *slog.Logger
}

// NewDispatcher builds a dispatcher. Negative retries mean none; a nil
// logger falls back to the process default.
func NewDispatcher(notifier Notifier, retries int, delay time.Duration, logger *slog.Logger) *Dispatcher {
	if retries < 0 {
		retries = 0
	}
	if delay < 0 {
		delay = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{notifier: notifier, retries: retries, delay: delay, logger: logger}
}

// Dispatch attempts delivery until it succeeds or the attempt budget runs
// out. The returned Delivery always carries the attempt count, error or not.
func (d *Dispatcher) Dispatch(ctx context.Context, text string) (Delivery, error) {
	maxAttempts := d.retries + 1
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		id, err := d.notifier.Post(ctx, text)
		if err == nil {
			return Delivery{ID: id, Attempts: attempt}, nil
		}
		lastErr = err
		d.logger.Warn("dispatch attempt failed",
			"attempt", attempt, "of", maxAttempts, "error", err)

		if attempt == maxAttempts {
			break
		}
		select {
		case <-time.After(d.delay):
		case <-ctx.Done():
			return Delivery{Attempts: attempt}, ctx.Err()
		}
	}
	return Delivery{Attempts: maxAttempts}, fmt.Errorf("dispatch failed after %d attempts: %w", maxAttempts, lastErr)
}
