package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"trayhop/internal/config"
	"trayhop/internal/gesture"
	"trayhop/internal/hotkeys"
	"trayhop/internal/inputloop"
	"trayhop/internal/ipc"
	"trayhop/internal/navigation"
	"trayhop/internal/pages"
	"trayhop/internal/recents"
	"trayhop/internal/workerutil"
	"trayhop/internal/wsserver"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

type appRuntimeLogger interface {
	Warningf(context.Context, string, ...any)
	Infof(context.Context, string, ...any)
	Errorf(context.Context, string, ...any)
}

type wailsRuntimeLogger struct{}

func (wailsRuntimeLogger) Warningf(ctx context.Context, message string, args ...any) {
	if ctx == nil {
		slog.Warn(fmt.Sprintf(message, args...))
		return
	}
	runtime.LogWarningf(ctx, message, args...)
}

func (wailsRuntimeLogger) Infof(ctx context.Context, message string, args ...any) {
	if ctx == nil {
		slog.Info(fmt.Sprintf(message, args...))
		return
	}
	runtime.LogInfof(ctx, message, args...)
}

func (wailsRuntimeLogger) Errorf(ctx context.Context, message string, args ...any) {
	if ctx == nil {
		slog.Error(fmt.Sprintf(message, args...))
		return
	}
	runtime.LogErrorf(ctx, message, args...)
}

// ipcServer is the part of ipc.Server the app drives.
type ipcServer interface {
	Start() error
	Stop() error
	Endpoint() string
}

var (
	runtimeEventsEmitFn                            = runtime.EventsEmit
	runtimeLogger                 appRuntimeLogger = wailsRuntimeLogger{}
	runtimeWindowHideFn                            = runtime.WindowHide
	runtimeWindowShowFn                            = runtime.WindowShow
	runtimeWindowUnminimiseFn                      = runtime.WindowUnminimise
	runtimeWindowSetAlwaysOnTopFn                  = runtime.WindowSetAlwaysOnTop
	newPlatformRegistrarFn                         = hotkeys.NewPlatformRegistrar
	newIPCServerFn                                 = func(endpoint string, executor ipc.Executor) ipcServer {
		return ipc.NewServer(endpoint, executor)
	}
	openRecentsFn = recents.Open
	watchConfigFn = config.Watch
)

const shutdownWaitTimeout = 5 * time.Second

func (a *App) addPendingConfigLoadWarning(message string) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return
	}
	a.startupWarnMu.Lock()
	a.configLoadWarnings = append(a.configLoadWarnings, trimmed)
	a.startupWarnMu.Unlock()
}

func (a *App) consumePendingConfigLoadWarning() string {
	a.startupWarnMu.Lock()
	defer a.startupWarnMu.Unlock()
	if len(a.configLoadWarnings) == 0 {
		return ""
	}
	message := strings.Join(a.configLoadWarnings, "\n")
	a.configLoadWarnings = nil
	return message
}

func (a *App) startup(ctx context.Context) {
	a.setRuntimeContext(ctx)

	if a.configPath == "" {
		a.configPath = config.DefaultPath()
	}
	for _, message := range config.ConsumeDefaultPathWarnings() {
		a.addPendingConfigLoadWarning(message)
	}

	cfg, err := config.EnsureFile(a.configPath)
	if err != nil {
		// Config failures are non-fatal: continue with defaults and tell the user.
		cfg = config.DefaultConfig()
		a.addPendingConfigLoadWarning(
			"Failed to load config file at startup. Running with defaults. Error: " + err.Error(),
		)
		runtimeLogger.Warningf(ctx, "failed to load config from %s: %v", a.configPath, err)
	}
	a.setConfigSnapshot(cfg)

	bgCtx, cancel := context.WithCancel(context.Background())
	a.bgCancel = cancel

	a.startInputCore(bgCtx, cfg)
	a.openRecents()
	a.startWebSocketHub(bgCtx, cfg)
	a.startIPCServer()
	a.startConfigWatcher(bgCtx)
	a.flushPendingConfigLoadWarnings()
}

// startInputCore builds the navigator, gesture engine and hotkey registry and
// starts the loop that owns them. The initial Refresh runs on the loop.
func (a *App) startInputCore(ctx context.Context, cfg config.Config) {
	registrar, err := newPlatformRegistrarFn()
	if err != nil {
		slog.Warn("[WARN-hotkey] global hotkeys unavailable", "error", err)
		a.addPendingConfigLoadWarning("Global hotkeys are unavailable on this system. Error: " + err.Error())
		registrar = nil
	}
	a.registrar = registrar

	a.loop = inputloop.New("input", inputloop.DefaultQueueSize)
	a.navigator = navigation.New(a.navigationEmitter(), navigation.Options{
		Sequencer: cfg.Sequencer(),
		Start:     pages.Apps,
	})
	a.engine = gesture.NewEngine(a.navigator, gesture.Options{TestMode: cfg.Gesture.TestMode})
	a.registry = hotkeys.NewRegistry(cfg.BindingSource(), registrar, a.navigator)
	a.registry.Install(a.loop.Dispatch)

	a.loop.Start(ctx, &a.bgWG, a.workerRecoveryOptions())
	a.loop.Post(a.refreshHotkeys)
}

// refreshHotkeys re-registers every binding. Loop only.
func (a *App) refreshHotkeys() {
	report := a.registry.Refresh()
	a.bindings = report.Registered
	for _, c := range report.Conflicts {
		a.addPendingConfigLoadWarning(fmt.Sprintf(
			"Hotkey %s for %s is already used by %s and was skipped.", c.Combo, c.Action, c.Winner))
	}
	for _, f := range report.Failures {
		a.addPendingConfigLoadWarning(fmt.Sprintf(
			"Hotkey %s for %s could not be registered: %v", f.Combo, f.Action, f.Err))
	}
	slog.Info("[hotkey] bindings refreshed",
		"registered", len(report.Registered), "conflicts", len(report.Conflicts), "failures", len(report.Failures))
	a.emitRuntimeEvent("hotkeys:updated", report.Registered)
	a.flushPendingConfigLoadWarnings()
}

func (a *App) openRecents() {
	store, err := openRecentsFn(recents.DefaultPath(a.configPath))
	if err != nil {
		slog.Warn("[WARN-recents] recents store unavailable, app list falls back to live entries", "error", err)
		a.addPendingConfigLoadWarning("Recently used apps are unavailable. Error: " + err.Error())
		return
	}
	a.recents = store
}

func (a *App) startWebSocketHub(ctx context.Context, cfg config.Config) {
	hub := wsserver.NewHub(wsserver.HubOptions{
		Addr:    net.JoinHostPort("127.0.0.1", strconv.Itoa(cfg.WebSocketPort)),
		Handler: inputBridge{app: a},
	})
	if err := hub.Start(ctx); err != nil {
		slog.Warn("[WS] websocket server failed to start, gestures unavailable", "error", err)
		a.addPendingConfigLoadWarning("Failed to start the gesture stream. Error: " + err.Error())
		return
	}
	// The input loop reads the hub concurrently from here on.
	a.wsHub.Store(hub)
}

func (a *App) startIPCServer() {
	server := newIPCServerFn("", ipc.ExecutorFunc(a.executeIPCRequest))
	if err := server.Start(); err != nil {
		runtimeLogger.Errorf(a.runtimeContext(), "ipc server failed: %v", err)
		a.addPendingConfigLoadWarning(
			"Failed to start the command endpoint. trayhopctl will not reach this instance. Error: " + err.Error(),
		)
		return
	}
	a.ipcServer = server
	runtimeLogger.Infof(a.runtimeContext(), "ipc server listening: %s", server.Endpoint())
}

func (a *App) startConfigWatcher(ctx context.Context) {
	path := a.configPath
	workerutil.RunWithPanicRecovery(ctx, "config-watcher", &a.bgWG, func(ctx context.Context) {
		if err := watchConfigFn(ctx, path, a.handleConfigReload); err != nil {
			slog.Warn("[WARN-CONFIG] config watcher stopped", "error", err)
		}
	}, a.workerRecoveryOptions())
}

func (a *App) shutdown(_ context.Context) {
	logCtx := a.runtimeContext()
	a.shuttingDown.Store(true)

	if a.ipcServer != nil {
		if err := a.ipcServer.Stop(); err != nil {
			runtimeLogger.Warningf(logCtx, "ipc server stop failed: %v", err)
		}
	}
	if hub := a.wsHub.Load(); hub != nil {
		if err := hub.Stop(); err != nil {
			runtimeLogger.Warningf(logCtx, "websocket server stop failed: %v", err)
		}
	}

	// Hotkeys are released on the loop so registry access stays single-threaded.
	if a.registry != nil {
		if err := a.runOnLoop(func() {
			if err := a.registry.Close(); err != nil {
				slog.Warn("[WARN-hotkey] releasing hotkeys failed", "error", err)
			}
		}); err != nil {
			slog.Warn("[WARN-hotkey] hotkeys not released before shutdown", "error", err)
		}
	}

	if a.bgCancel != nil {
		a.bgCancel()
		a.bgCancel = nil
	}
	if !waitWithTimeout(a.bgWG.Wait, shutdownWaitTimeout) {
		runtimeLogger.Warningf(logCtx, "timed out waiting for background workers during shutdown")
	}

	if closer, ok := a.registrar.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			runtimeLogger.Warningf(logCtx, "hotkey registrar close failed: %v", err)
		}
	}
	if a.recents != nil {
		if err := a.recents.Close(); err != nil {
			runtimeLogger.Warningf(logCtx, "recents store close failed: %v", err)
		}
	}
}

func waitWithTimeout(waitFn func(), timeout time.Duration) bool {
	// The waiting goroutine may outlive timeout when waitFn blocks; this is
	// only used during process shutdown.
	done := make(chan struct{})
	go func() {
		waitFn()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
