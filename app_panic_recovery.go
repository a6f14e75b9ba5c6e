package main

import (
	"log/slog"
	"time"

	"trayhop/internal/workerutil"
)

// stableWorkerRun is how long a restarted worker must stay up before earlier
// panics stop counting toward its retry budget.
const stableWorkerRun = time.Minute

// workerRecoveryOptions returns the restart policy shared by background
// workers. Panics are surfaced to the frontend; restarts stop at shutdown.
func (a *App) workerRecoveryOptions() workerutil.RecoveryOptions {
	return workerutil.RecoveryOptions{
		StableAfter: stableWorkerRun,
		OnPanic: func(worker string, attempt int) {
			a.emitRuntimeEvent("app:worker-panic", map[string]any{
				"worker":  worker,
				"attempt": attempt,
			})
		},
		OnFatal: func(worker string, maxRetries int) {
			slog.Error("[ERROR-worker] worker stopped permanently", "worker", worker, "maxRetries", maxRetries)
			a.emitRuntimeEvent("app:worker-fatal", map[string]any{
				"worker":     worker,
				"maxRetries": maxRetries,
			})
		},
		IsShutdown: a.shuttingDown.Load,
	}
}
