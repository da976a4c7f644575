package main

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type sessionPurger interface {
	PurgeExpired() error
}

// purgeTicker abstracts time.Ticker so the sweep cadence can be driven
// manually in tests.
type purgeTicker interface {
	C() <-chan time.Time
	Stop()
}

type tickerFactory func(time.Duration) purgeTicker

type wallClockTicker struct {
	*time.Ticker
}

func (t wallClockTicker) C() <-chan time.Time {
	return t.Ticker.C
}

type purgeWorker struct {
	logger   *slog.Logger
	sessions sessionPurger
	ticker   purgeTicker
	done     chan struct{}

	// consecutive failed sweeps, tracked so a flaky store surfaces as a
	// rising counter in the logs rather than one line per interval.
	failures int
}

func startSessionPurgeWorker(ctx context.Context, logger *slog.Logger, sessions sessionPurger, interval time.Duration) func() {
	return startSessionPurgeWorkerWithTicker(ctx, logger, sessions, interval, func(d time.Duration) purgeTicker {
		return wallClockTicker{time.NewTicker(d)}
	})
}

// startSessionPurgeWorkerWithTicker launches a background goroutine that
// sweeps expired sessions on every tick. The returned stop function cancels
// the worker and blocks until it has exited; calling it more than once is
// safe.
func startSessionPurgeWorkerWithTicker(
	ctx context.Context,
	logger *slog.Logger,
	sessions sessionPurger,
	interval time.Duration,
	newTicker tickerFactory,
) func() {
	if sessions == nil || interval <= 0 {
		return func() {}
	}

	workerCtx, cancel := context.WithCancel(ctx)
	worker := &purgeWorker{
		logger:   logger,
		sessions: sessions,
		ticker:   newTicker(interval),
		done:     make(chan struct{}),
	}
	go worker.run(workerCtx)

	var stopOnce sync.Once
	return func() {
		stopOnce.Do(func() {
			cancel()
			<-worker.done
		})
	}
}

func (w *purgeWorker) run(ctx context.Context) {
	defer close(w.done)
	defer w.ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.ticker.C():
			w.sweep()
		}
	}
}

func (w *purgeWorker) sweep() {
	if err := w.sessions.PurgeExpired(); err != nil {
		w.failures++
		if w.logger != nil {
			w.logger.Error("failed to purge expired sessions", "error", err, "consecutive_failures", w.failures)
		}
		return
	}
	w.failures = 0
}
