// Package workerutil supervises long-lived background goroutines: a panic is
// logged with its stack and the worker is restarted after an exponential
// backoff, up to a bounded number of attempts.
package workerutil

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

const (
	defaultInitialBackoff = 100 * time.Millisecond
	defaultMaxBackoff     = 5 * time.Second
	defaultMaxRetries     = 10
)

// RecoveryOptions configures RunWithPanicRecovery.
// Zero or negative numeric fields fall back to the defaults
// (100ms initial backoff, 5s cap, 10 attempts). Nil callbacks are no-ops.
type RecoveryOptions struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// MaxRetries bounds how many times fn is started. 1 means run once.
	MaxRetries int

	// StableAfter, when positive, forgives earlier panics once a run has
	// lasted at least this long: the attempt counter and backoff start over.
	StableAfter time.Duration

	// OnPanic runs after each recovered panic. attempt is 1-based.
	OnPanic func(worker string, attempt int)

	// OnFatal runs once when the attempts are used up.
	OnFatal func(worker string, maxRetries int)

	// IsShutdown stops restarts while the application is tearing down.
	IsShutdown func() bool
}

func (opts RecoveryOptions) applyDefaults() RecoveryOptions {
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = defaultInitialBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = defaultMaxBackoff
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.MaxBackoff < opts.InitialBackoff {
		slog.Warn("[WARN-worker] MaxBackoff below InitialBackoff, raising cap",
			"initialBackoff", opts.InitialBackoff, "maxBackoff", opts.MaxBackoff)
		opts.MaxBackoff = opts.InitialBackoff
	}
	return opts
}

// RunWithPanicRecovery starts fn on a goroutine tracked by wg and restarts
// it after a panic. A normal return, or a cancelled ctx, ends supervision.
func RunWithPanicRecovery(
	ctx context.Context,
	name string,
	wg *sync.WaitGroup,
	fn func(ctx context.Context),
	opts RecoveryOptions,
) {
	wg.Go(func() {
		Supervise(ctx, name, fn, opts)
	})
}

// Supervise is RunWithPanicRecovery on the calling goroutine. It returns
// when supervision ends: fn returned normally, ctx was cancelled, the app
// is shutting down, or the attempts are used up.
func Supervise(ctx context.Context, name string, fn func(ctx context.Context), opts RecoveryOptions) {
	supervise(ctx, name, fn, opts.applyDefaults(), time.Now)
}

// runOnce reports whether fn panicked.
func runOnce(ctx context.Context, name string, fn func(ctx context.Context)) (panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[ERROR-worker] recovered from panic",
				"worker", name, "panic", r, "stack", string(debug.Stack()))
			panicked = true
		}
	}()
	fn(ctx)
	return false
}

func supervise(
	ctx context.Context,
	name string,
	fn func(ctx context.Context),
	opts RecoveryOptions,
	now func() time.Time,
) {
	delay := opts.InitialBackoff
	attempt := 0
	for {
		started := now()
		if !runOnce(ctx, name, fn) || ctx.Err() != nil {
			return
		}
		if opts.IsShutdown != nil && opts.IsShutdown() {
			slog.Info("[worker] panic during shutdown, not restarting", "worker", name)
			return
		}

		if opts.StableAfter > 0 && now().Sub(started) >= opts.StableAfter {
			attempt = 0
			delay = opts.InitialBackoff
		}
		attempt++

		if opts.OnPanic != nil {
			opts.OnPanic(name, attempt)
		}
		if attempt >= opts.MaxRetries {
			break
		}

		slog.Warn("[WARN-worker] restarting after panic",
			"worker", name, "attempt", attempt, "delay", delay)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		delay = nextBackoff(delay, opts.MaxBackoff)
	}

	slog.Error("[ERROR-worker] giving up after repeated panics",
		"worker", name, "maxRetries", opts.MaxRetries)
	if opts.OnFatal != nil {
		opts.OnFatal(name, opts.MaxRetries)
	}
}

// nextBackoff doubles current, capped at maxBackoff and safe against overflow.
func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	if current <= 0 {
		return defaultInitialBackoff
	}
	next := current * 2
	if next > maxBackoff || next < current {
		return maxBackoff
	}
	return next
}
