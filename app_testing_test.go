package main

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"trayhop/internal/config"
	"trayhop/internal/hotkeys"
)

// NOTE: Tests in this package replace package-level function variables
// (runtimeEventsEmitFn, runtimeWindow*Fn, newPlatformRegistrarFn, ...).
// Do not use t.Parallel() in package main tests.

type recordedEvent struct {
	name    string
	payload any
}

type eventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *eventRecorder) add(name string, data ...any) {
	var payload any
	if len(data) > 0 {
		payload = data[0]
	}
	r.mu.Lock()
	r.events = append(r.events, recordedEvent{name: name, payload: payload})
	r.mu.Unlock()
}

func (r *eventRecorder) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.name == name {
			n++
		}
	}
	return n
}

func (r *eventRecorder) last(name string) any {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].name == name {
			return r.events[i].payload
		}
	}
	return nil
}

func (r *eventRecorder) all(name string) []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []any
	for _, ev := range r.events {
		if ev.name == name {
			out = append(out, ev.payload)
		}
	}
	return out
}

// captureRuntimeEvents replaces runtimeEventsEmitFn with a recorder.
func captureRuntimeEvents(t *testing.T) *eventRecorder {
	t.Helper()
	orig := runtimeEventsEmitFn
	t.Cleanup(func() { runtimeEventsEmitFn = orig })
	rec := &eventRecorder{}
	runtimeEventsEmitFn = func(_ context.Context, name string, data ...any) {
		rec.add(name, data...)
	}
	return rec
}

type testRuntimeLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *testRuntimeLogger) record(level, message string, args ...any) {
	l.mu.Lock()
	l.lines = append(l.lines, level+": "+fmt.Sprintf(message, args...))
	l.mu.Unlock()
}

func (l *testRuntimeLogger) Warningf(_ context.Context, message string, args ...any) {
	l.record("warn", message, args...)
}

func (l *testRuntimeLogger) Infof(_ context.Context, message string, args ...any) {
	l.record("info", message, args...)
}

func (l *testRuntimeLogger) Errorf(_ context.Context, message string, args ...any) {
	l.record("error", message, args...)
}

type windowRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (w *windowRecorder) add(call string) {
	w.mu.Lock()
	w.calls = append(w.calls, call)
	w.mu.Unlock()
}

func (w *windowRecorder) snapshot() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.calls...)
}

// stubRuntime replaces every Wails runtime seam. Wails runtime functions
// abort the process when called without a Wails context.
func stubRuntime(t *testing.T) (*eventRecorder, *windowRecorder, *testRuntimeLogger) {
	t.Helper()
	events := captureRuntimeEvents(t)

	origLogger := runtimeLogger
	origHide := runtimeWindowHideFn
	origShow := runtimeWindowShowFn
	origUnminimise := runtimeWindowUnminimiseFn
	origOnTop := runtimeWindowSetAlwaysOnTopFn
	t.Cleanup(func() {
		runtimeLogger = origLogger
		runtimeWindowHideFn = origHide
		runtimeWindowShowFn = origShow
		runtimeWindowUnminimiseFn = origUnminimise
		runtimeWindowSetAlwaysOnTopFn = origOnTop
	})

	window := &windowRecorder{}
	logger := &testRuntimeLogger{}
	runtimeLogger = logger
	runtimeWindowHideFn = func(context.Context) { window.add("hide") }
	runtimeWindowShowFn = func(context.Context) { window.add("show") }
	runtimeWindowUnminimiseFn = func(context.Context) { window.add("unminimise") }
	runtimeWindowSetAlwaysOnTopFn = func(_ context.Context, onTop bool) { window.add(fmt.Sprintf("on-top:%v", onTop)) }
	return events, window, logger
}

// stubRegistrar makes startInputCore use an in-memory registrar.
func stubRegistrar(t *testing.T) *hotkeys.MemoryRegistrar {
	t.Helper()
	orig := newPlatformRegistrarFn
	t.Cleanup(func() { newPlatformRegistrarFn = orig })
	registrar := hotkeys.NewMemoryRegistrar()
	newPlatformRegistrarFn = func() (hotkeys.Registrar, error) { return registrar, nil }
	return registrar
}

// newCoreTestApp returns an app whose input core runs on a live loop with
// an in-memory registrar. The loop stops at test cleanup.
func newCoreTestApp(t *testing.T, cfg config.Config) (*App, *hotkeys.MemoryRegistrar, *eventRecorder, *windowRecorder) {
	t.Helper()
	events, window, _ := stubRuntime(t)
	registrar := stubRegistrar(t)

	app := NewApp()
	app.setRuntimeContext(context.Background())
	app.setConfigSnapshot(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	app.startInputCore(ctx, cfg)
	t.Cleanup(func() {
		cancel()
		if !waitWithTimeout(app.bgWG.Wait, 2*time.Second) {
			t.Error("input loop did not stop")
		}
	})

	// The initial refresh is queued by startInputCore; wait for it.
	if _, err := app.GetBindings(); err != nil {
		t.Fatalf("GetBindings() error = %v", err)
	}
	return app, registrar, events, window
}

// useTempConfigDir points config.DefaultPath at a fresh temp dir.
func useTempConfigDir(t *testing.T) string {
	t.Helper()
	t.Setenv("LOCALAPPDATA", t.TempDir())
	return config.DefaultPath()
}

var errTestParse = fmt.Errorf("yaml: line 1: did not find expected key")
