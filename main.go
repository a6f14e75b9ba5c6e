package main

import (
	"embed"
	"errors"
	"log/slog"
	"os"

	"trayhop/internal/hotkeys"
	"trayhop/internal/ipc"
	"trayhop/internal/singleinstance"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	setConsoleUTF8()
	app := NewApp()
	slog.SetDefault(newAppLogger(app, os.Stderr))

	// Single-instance check before any Wails initialization. A second launch
	// toggles the running panel instead of opening another one.
	lock, err := singleinstance.TryLock(singleinstance.DefaultName())
	if errors.Is(err, singleinstance.ErrAlreadyRunning) {
		slog.Info("[DEBUG-SINGLE] another instance is already running, toggling its panel")
		if _, sendErr := ipc.Send("", ipc.Request{Action: hotkeys.ToggleVisibility.String(), Source: "second-instance"}); sendErr != nil {
			slog.Warn("[DEBUG-SINGLE] failed to signal existing instance", "error", sendErr)
		}
		return
	}
	if err != nil {
		slog.Warn("[DEBUG-SINGLE] instance lock failed, proceeding without single-instance guard", "error", err)
	}
	if lock != nil {
		defer func() {
			if releaseErr := lock.Release(); releaseErr != nil {
				slog.Warn("[DEBUG-SINGLE] instance lock release failed", "error", releaseErr)
			}
		}()
	}

	err = wails.Run(&options.App{
		Title:       "trayhop",
		Width:       420,
		Height:      560,
		MinWidth:    320,
		MinHeight:   400,
		Frameless:   true,
		StartHidden: true,
		// Closing the panel hides it; trayhopctl or the OS session ends the process.
		HideWindowOnClose: true,
		AlwaysOnTop:       true,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 18, G: 20, B: 24, A: 1},
		OnStartup:        app.startup,
		OnShutdown:       app.shutdown,
		Bind: []any{
			app,
		},
	})
	if err != nil {
		slog.Error("[DEBUG-SINGLE] wails run failed", "error", err)
	}
}
