//go:build !windows && !((darwin || linux) && cgo)

package hotkeys

import "log/slog"

type unsupportedRegistrar struct{}

// NewPlatformRegistrar returns a registrar whose registrations always fail
// with ErrUnsupported. The registry logs each failure and keeps running.
func NewPlatformRegistrar() (Registrar, error) {
	slog.Warn("[hotkey] DEBUG global hotkeys are not supported on this build; bindings validate but never fire")
	return unsupportedRegistrar{}, nil
}

func (unsupportedRegistrar) Register(KeyCode, Modifier, uint32) (Handle, error) {
	return nil, ErrUnsupported
}

func (unsupportedRegistrar) Unregister(Handle) error { return nil }

func (unsupportedRegistrar) SetHandler(func(uint32)) {}
