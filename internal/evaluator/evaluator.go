// Package evaluator runs the fixed 1-second liveness tick: device
// keep-alive check, stale-session reaping, and per-sensor disconnect
// evaluation. Ticks run on a single goroutine so they never interleave; a
// tick that overruns simply delays the next one.
package evaluator

import (
	"context"
	"log/slog"
	"time"

	"asset-tracking-backend/internal/store"
)

const tickInterval = time.Second

type tracker interface {
	EvaluateDeviceKeepAlive(ctx context.Context, now time.Time) error
	Evaluate(ctx context.Context, now time.Time) error
	Reset(ctx context.Context) error
}

type repository interface {
	CurrentSession(ctx context.Context) (*store.Session, error)
	DeleteTelemetry(ctx context.Context) (int64, error)
}

type Config struct {
	Tracker tracker
	Repo    repository
	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

type Evaluator struct {
	tracker tracker
	repo    repository
	now     func() time.Time
}

func New(cfg Config) *Evaluator {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Evaluator{
		tracker: cfg.Tracker,
		repo:    cfg.Repo,
		now:     now,
	}
}

// Run ticks until the context is cancelled.
func (e *Evaluator) Run(ctx context.Context) {
	slog.InfoContext(ctx, "Evaluator started...", "interval", tickInterval)
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Evaluator stopped...")
			return
		case <-ticker.C:
			e.Tick(ctx)
		}
	}
}

// Tick runs one evaluation pass. Step errors are logged and the tick
// abandoned; the timer continues on schedule regardless.
func (e *Evaluator) Tick(ctx context.Context) {
	now := e.now()

	if err := e.tracker.EvaluateDeviceKeepAlive(ctx, now); err != nil {
		slog.ErrorContext(ctx, "Error evaluating device keep-alive", "error", err)
		return
	}

	session, err := e.repo.CurrentSession(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Error resolving session", "error", err)
		return
	}
	if session == nil {
		// No active session: reap the previous session's telemetry and
		// clear liveness state so the next login starts clean.
		if reaped, err := e.repo.DeleteTelemetry(ctx); err != nil {
			slog.ErrorContext(ctx, "Error reaping stale telemetry", "error", err)
			return
		} else if reaped > 0 {
			slog.InfoContext(ctx, "Reaped previous session telemetry", "rows", reaped)
		}
		if err := e.tracker.Reset(ctx); err != nil {
			slog.ErrorContext(ctx, "Error resetting liveness state", "error", err)
			return
		}
	}

	if err := e.tracker.Evaluate(ctx, now); err != nil {
		slog.ErrorContext(ctx, "Error evaluating sensor liveness", "error", err)
	}
}
