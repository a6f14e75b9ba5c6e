package main

import "trayhop/internal/config"

// getConfigSnapshot returns a deep-copied config protected by cfgMu.
func (a *App) getConfigSnapshot() config.Config {
	a.cfgMu.RLock()
	defer a.cfgMu.RUnlock()
	return config.Clone(a.cfg)
}

// setConfigSnapshot stores a deep-copied config and returns the new
// config event version.
func (a *App) setConfigSnapshot(cfg config.Config) uint64 {
	a.cfgMu.Lock()
	defer a.cfgMu.Unlock()
	a.cfg = config.Clone(cfg)
	return a.configEventVersion.Add(1)
}
