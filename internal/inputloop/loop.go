// Package inputloop provides the single goroutine on which hotkey, gesture,
// IPC and config-reload work is serialized.
package inputloop

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"trayhop/internal/workerutil"
)

// DefaultQueueSize is the number of pending items a Loop buffers.
const DefaultQueueSize = 256

// Loop runs posted closures one at a time, each to completion, in post order.
type Loop struct {
	name  string
	queue chan func()

	mu      sync.RWMutex
	stopped bool

	dropped atomic.Uint64
}

// New returns a loop with the given buffer size (DefaultQueueSize when
// size is not positive).
func New(name string, size int) *Loop {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Loop{name: name, queue: make(chan func(), size)}
}

// Post queues fn. It never blocks: when the queue is full the item is
// dropped with a warning. Post returns false when fn was not queued.
func (l *Loop) Post(fn func()) bool {
	if fn == nil {
		return false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.stopped {
		return false
	}
	select {
	case l.queue <- fn:
		return true
	default:
		n := l.dropped.Add(1)
		slog.Warn("[WARN-input] queue full, dropping item", "loop", l.name, "dropped", n)
		return false
	}
}

// Dispatch is Post without the result, shaped for hotkeys.Registry.Install.
func (l *Loop) Dispatch(fn func()) {
	l.Post(fn)
}

// Dropped returns the number of items discarded because the queue was full.
func (l *Loop) Dropped() uint64 { return l.dropped.Load() }

// Run processes items until ctx is cancelled. Items still queued at
// cancellation are discarded. After Run returns, Post reports false.
// A panicking item unwinds Run without stopping the loop, so a supervisor
// may call Run again.
func (l *Loop) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			l.stop()
			return
		case fn := <-l.queue:
			fn()
		}
	}
}

// Start runs the loop on a supervised goroutine tracked by wg. A panicking
// item is logged and the loop resumes with the next item. Once supervision
// ends for any reason, including running out of restarts, Post reports
// false and items still queued are discarded.
func (l *Loop) Start(ctx context.Context, wg *sync.WaitGroup, opts workerutil.RecoveryOptions) {
	wg.Go(func() {
		defer l.stop()
		workerutil.Supervise(ctx, "inputloop:"+l.name, l.Run, opts)
	})
}

func (l *Loop) stop() {
	l.mu.Lock()
	l.stopped = true
	l.mu.Unlock()
	for {
		select {
		case <-l.queue:
		default:
			return
		}
	}
}
