//go:build (darwin || linux) && cgo

package hotkeys

import (
	"fmt"
	"log/slog"
	"sync"

	"golang.design/x/hotkey"
)

// xHotkeyRegistrar registers hotkeys through golang.design/x/hotkey
// (Carbon on macOS, X11 on Linux).
type xHotkeyRegistrar struct {
	mu      sync.Mutex
	handler func(id uint32)
}

type xHotkeyHandle struct {
	id   uint32
	hk   *hotkey.Hotkey
	stop chan struct{}
}

// NewPlatformRegistrar returns the golang.design/x/hotkey registrar.
func NewPlatformRegistrar() (Registrar, error) {
	return &xHotkeyRegistrar{}, nil
}

func (x *xHotkeyRegistrar) SetHandler(fn func(id uint32)) {
	x.mu.Lock()
	x.handler = fn
	x.mu.Unlock()
}

func (x *xHotkeyRegistrar) fire(id uint32) {
	x.mu.Lock()
	handler := x.handler
	x.mu.Unlock()
	if handler != nil {
		handler(id)
	}
}

func (x *xHotkeyRegistrar) Register(key KeyCode, mods Modifier, id uint32) (Handle, error) {
	platformKey, ok := xHotkeyKeys[key]
	if !ok {
		return nil, fmt.Errorf("key code 0x%X has no mapping on this platform", uint32(key))
	}
	var platformMods []hotkey.Modifier
	for _, mod := range modifierOrder {
		if mods&mod == 0 {
			continue
		}
		platformMod, ok := xHotkeyModifiers[mod]
		if !ok {
			return nil, fmt.Errorf("modifier %s has no mapping on this platform", modifierDisplayName(mod))
		}
		platformMods = append(platformMods, platformMod)
	}

	hk := hotkey.New(platformMods, platformKey)
	if err := hk.Register(); err != nil {
		return nil, fmt.Errorf("register %s: %w", Combo{Key: key, Modifiers: mods}, err)
	}

	h := &xHotkeyHandle{id: id, hk: hk, stop: make(chan struct{})}
	go func() {
		for {
			select {
			case <-h.stop:
				return
			case _, ok := <-hk.Keydown():
				if !ok {
					return
				}
				x.fire(id)
			}
		}
	}()
	return h, nil
}

func (x *xHotkeyRegistrar) Unregister(h Handle) error {
	handle, ok := h.(*xHotkeyHandle)
	if !ok {
		return fmt.Errorf("foreign handle %T", h)
	}
	close(handle.stop)
	if err := handle.hk.Unregister(); err != nil {
		slog.Warn("[hotkey] DEBUG unregister failed", "hotkeyID", handle.id, "error", err)
		return err
	}
	return nil
}
