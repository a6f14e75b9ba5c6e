package main

import (
	"log/slog"
	"time"

	"trayhop/internal/config"
)

type configUpdatedEvent struct {
	Config             config.Config `json:"config"`
	Version            uint64        `json:"version"`
	UpdatedAtUnixMilli int64         `json:"updated_at_unix_milli"`
}

// GetConfig returns loaded config.
func (a *App) GetConfig() config.Config {
	return a.getConfigSnapshot()
}

// GetConfigAndFlushWarnings returns loaded config and emits any pending startup warnings.
func (a *App) GetConfigAndFlushWarnings() config.Config {
	a.flushPendingConfigLoadWarnings()
	return a.getConfigSnapshot()
}

func (a *App) flushPendingConfigLoadWarnings() {
	ctx := a.runtimeContext()
	if ctx == nil {
		return
	}
	if warning := a.consumePendingConfigLoadWarning(); warning != "" {
		a.emitRuntimeEventWithContext(ctx, "config:load-failed", map[string]string{
			"message": warning,
		})
	}
}

// SaveConfig validates and persists cfg, then applies the normalized result.
func (a *App) SaveConfig(cfg config.Config) (config.Config, error) {
	a.cfgSaveMu.Lock()
	defer a.cfgSaveMu.Unlock()

	normalized, err := config.Save(a.configPath, cfg)
	if err != nil {
		slog.Warn("[WARN-CONFIG] save failed", "path", a.configPath, "error", err)
		return config.Config{}, err
	}
	a.applyConfig(normalized)
	return normalized, nil
}

// applyConfig stores cfg and hands the input-side settings to the loop. The
// websocket port only takes effect on the next start.
func (a *App) applyConfig(cfg config.Config) {
	version := a.setConfigSnapshot(cfg)

	posted := a.post("config", func() {
		a.navigator.SetSequencer(cfg.Sequencer())
		a.engine.SetTestMode(cfg.Gesture.TestMode)
		a.registry.SetSource(cfg.BindingSource())
		a.refreshHotkeys()
	})
	if !posted {
		slog.Warn("[WARN-CONFIG] config stored but not applied to input handling", "version", version)
	}

	a.emitRuntimeEvent("config:updated", configUpdatedEvent{
		Config:             config.Clone(cfg),
		Version:            version,
		UpdatedAtUnixMilli: time.Now().UnixMilli(),
	})
}
