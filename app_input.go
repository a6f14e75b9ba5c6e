package main

import (
	"log/slog"

	"trayhop/internal/config"
	"trayhop/internal/gesture"
	"trayhop/internal/hotkeys"
	"trayhop/internal/ipc"
	"trayhop/internal/navigation"
)

// inputBridge moves WebSocket input onto the input loop.
type inputBridge struct {
	app *App
}

// HandleScroll implements wsserver.InputHandler.
func (b inputBridge) HandleScroll(ev gesture.Event) {
	b.app.post("scroll", func() { b.app.engine.Handle(ev) })
}

// HandleResize implements wsserver.InputHandler.
func (b inputBridge) HandleResize(width float64) {
	b.app.post("resize", func() { b.app.navigator.SetWidth(width) })
}

// HandleAction implements wsserver.InputHandler.
func (b inputBridge) HandleAction(action hotkeys.Action) {
	b.app.post("action", func() { b.app.navigator.Apply(action, navigation.CauseAPI) })
}

func (a *App) post(kind string, fn func()) bool {
	if a.loop == nil {
		slog.Debug("[DEBUG-input] input dropped, loop not started", "kind", kind)
		return false
	}
	return a.loop.Post(fn)
}

// executeIPCRequest answers requests from trayhopctl and second instances.
func (a *App) executeIPCRequest(req ipc.Request) ipc.Response {
	if req.Action == ipc.StatusAction {
		state, err := a.GetNavigationState()
		if err != nil {
			return ipc.ErrorResponse("%v", err)
		}
		return ipc.Response{OK: true, Page: state.Page.String(), Visible: &state.Visible}
	}

	action, err := hotkeys.ParseAction(req.Action)
	if err != nil {
		return ipc.ErrorResponse("unknown action %q", req.Action)
	}

	var (
		changed bool
		state   NavigationState
	)
	if err := a.runOnLoop(func() {
		changed = a.navigator.Apply(action, navigation.CauseIPC)
		state = a.navigationStateOnLoop()
	}); err != nil {
		return ipc.ErrorResponse("%v", err)
	}
	slog.Debug("[DEBUG-ipc] action applied", "action", action.String(), "source", req.Source, "changed", changed)
	return ipc.Response{OK: true, Changed: changed, Page: state.Page.String(), Visible: &state.Visible}
}

// handleConfigReload applies a config file change seen by the watcher. A
// file that fails to parse leaves the running config in place.
func (a *App) handleConfigReload(cfg config.Config, err error) {
	if err != nil {
		a.addPendingConfigLoadWarning("Config file changed but could not be loaded. Keeping the previous settings. Error: " + err.Error())
		a.flushPendingConfigLoadWarnings()
		return
	}
	a.applyConfig(cfg)
}
