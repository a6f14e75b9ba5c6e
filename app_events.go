package main

import (
	"context"
	"log/slog"
	"time"

	"trayhop/internal/diaglog"
	"trayhop/internal/navigation"
	"trayhop/internal/wsserver"
)

const (
	navigationEventName = "nav:event"
	diagnosticEventName = "app:diagnostic"

	// diagnosticEmitMinInterval throttles app:diagnostic so a warning storm
	// cannot saturate Wails IPC. Entries stay readable via GetDiagnostics.
	diagnosticEmitMinInterval = 50 * time.Millisecond
)

// emitRuntimeEvent emits via the app context and delegates to emitRuntimeEventWithContext.
func (a *App) emitRuntimeEvent(name string, payload any) {
	a.emitRuntimeEventWithContext(a.runtimeContext(), name, payload)
}

// emitRuntimeEventWithContext emits a runtime event only when ctx is non-nil.
func (a *App) emitRuntimeEventWithContext(ctx context.Context, name string, payload any) {
	if ctx == nil {
		slog.Debug("[EVENT] runtime event dropped because app context is nil", "event", name)
		return
	}
	runtimeEventsEmitFn(ctx, name, payload)
}

// navigationEmitter fans navigator events out to the webview, the
// WebSocket client and the window itself.
func (a *App) navigationEmitter() navigation.Emitter {
	return navigation.MultiEmitter{
		navigation.EmitterFunc(a.applyWindowVisibility),
		navigation.EmitterFunc(func(ev navigation.Event) {
			a.emitRuntimeEvent(navigationEventName, ev)
		}),
		navigation.EmitterFunc(func(ev navigation.Event) {
			if hub := a.wsHub.Load(); hub != nil {
				hub.Broadcast(wsserver.TypeNavigation, ev)
			}
		}),
	}
}

// applyWindowVisibility shows or hides the window for visibility events.
func (a *App) applyWindowVisibility(ev navigation.Event) {
	if ev.Type != navigation.EventVisibility {
		return
	}
	ctx := a.runtimeContext()
	if ctx == nil {
		slog.Debug("[DEBUG-nav] window visibility change dropped, runtime context is nil", "visible", ev.Visible)
		return
	}
	if ev.Visible {
		runtimeWindowShowFn(ctx)
		runtimeWindowUnminimiseFn(ctx)
		runtimeWindowSetAlwaysOnTopFn(ctx, true)
		runtimeWindowSetAlwaysOnTopFn(ctx, false)
		return
	}
	runtimeWindowHideFn(ctx)
}

// recordDiagnostic stores a captured log entry and pings the frontend.
// It runs inside slog's Handle, so it must not log through slog itself.
func (a *App) recordDiagnostic(entry diaglog.Entry) {
	a.diagnostics.Add(entry)

	ctx := a.runtimeContext()
	if ctx == nil {
		return
	}
	a.diagEmitMu.Lock()
	now := time.Now()
	if now.Sub(a.diagLastEmit) < diagnosticEmitMinInterval {
		a.diagEmitMu.Unlock()
		return
	}
	a.diagLastEmit = now
	a.diagEmitMu.Unlock()
	runtimeEventsEmitFn(ctx, diagnosticEventName, entry)
}
