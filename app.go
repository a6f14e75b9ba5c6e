package main

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"trayhop/internal/applist"
	"trayhop/internal/config"
	"trayhop/internal/diaglog"
	"trayhop/internal/gesture"
	"trayhop/internal/hotkeys"
	"trayhop/internal/inputloop"
	"trayhop/internal/navigation"
	"trayhop/internal/recents"
	"trayhop/internal/wsserver"
)

// loopCallTimeout bounds how long a bound API call waits for the input loop.
const loopCallTimeout = 2 * time.Second

// App is the Wails-bound application service.
type App struct {
	// Runtime context lifecycle.
	ctx   context.Context
	ctxMu sync.RWMutex

	// Configuration state and startup warnings.
	// Lock ordering (outer -> inner): cfgSaveMu -> cfgMu.
	cfgMu              sync.RWMutex
	cfgSaveMu          sync.Mutex
	configEventVersion atomic.Uint64
	cfg                config.Config
	configPath         string
	startupWarnMu      sync.Mutex
	configLoadWarnings []string

	// Input core. The navigator, engine and registry are confined to the
	// input loop goroutine once startup returns; reach them through
	// runOnLoop or loop.Post only.
	loop      *inputloop.Loop
	navigator *navigation.Navigator
	engine    *gesture.Engine
	registry  *hotkeys.Registry
	registrar hotkeys.Registrar
	bindings  []hotkeys.LiveBinding

	// Backend services.
	wsHub     atomic.Pointer[wsserver.Hub]
	ipcServer ipcServer
	recents   *recents.Store
	liveSet   *applist.LiveSet
	catalogMu sync.RWMutex
	catalog   []applist.Entry

	// Diagnostics captured from slog Warn+ records.
	diagnostics  *diaglog.Ring
	diagEmitMu   sync.Mutex
	diagLastEmit time.Time

	shuttingDown atomic.Bool
	bgCancel     context.CancelFunc
	bgWG         sync.WaitGroup
}

// NewApp creates the app service.
func NewApp() *App {
	return &App{
		liveSet:     applist.NewLiveSet(),
		diagnostics: diaglog.NewRing(diaglog.DefaultCapacity),
	}
}

func (a *App) setRuntimeContext(ctx context.Context) {
	a.ctxMu.Lock()
	a.ctx = ctx
	a.ctxMu.Unlock()
}

func (a *App) runtimeContext() context.Context {
	a.ctxMu.RLock()
	defer a.ctxMu.RUnlock()
	return a.ctx
}

// runOnLoop runs fn on the input loop and waits for it to finish.
func (a *App) runOnLoop(fn func()) error {
	if a.loop == nil {
		return errors.New("input loop is unavailable")
	}
	done := make(chan struct{})
	if !a.loop.Post(func() {
		defer close(done)
		fn()
	}) {
		return errors.New("input loop rejected the request")
	}

	timer := time.NewTimer(loopCallTimeout)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-timer.C:
		slog.Warn("[WARN-input] loop call timed out", "timeout", loopCallTimeout)
		return errors.New("input loop did not answer in time")
	}
}

// GetWebSocketURL returns the WebSocket endpoint the frontend streams
// gestures and resizes to, or "" when the server is not running.
func (a *App) GetWebSocketURL() string {
	hub := a.wsHub.Load()
	if hub == nil {
		slog.Debug("[WS] wsHub is nil, WebSocket URL unavailable")
		return ""
	}
	return hub.URL()
}
