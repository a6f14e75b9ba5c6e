package hotkeys

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrUnsupported is returned by registrars on platforms without global hotkeys.
var ErrUnsupported = errors.New("global hotkeys are not supported on this platform")

// Handle is an opaque registration token issued by a Registrar. Only the
// registrar that issued it knows what it holds.
type Handle any

// Registrar is the platform capability that claims and releases OS-level
// hotkeys. Register and Unregister block until the OS call completes.
type Registrar interface {
	Register(key KeyCode, mods Modifier, id uint32) (Handle, error)
	Unregister(h Handle) error
	// SetHandler installs the callback receiving fired hotkey ids. The callback
	// may run on a registrar-owned goroutine.
	SetHandler(fn func(id uint32))
}

// MemoryRegistrar is an in-process Registrar that never touches OS state.
// It records live registrations and can simulate key presses with Fire.
type MemoryRegistrar struct {
	mu       sync.Mutex
	live     map[uint32]Combo
	rejected map[Combo]error
	handler  func(id uint32)

	registerCalls   int
	unregisterCalls int
}

type memoryHandle struct {
	id uint32
}

// NewMemoryRegistrar returns an empty MemoryRegistrar.
func NewMemoryRegistrar() *MemoryRegistrar {
	return &MemoryRegistrar{
		live:     map[uint32]Combo{},
		rejected: map[Combo]error{},
	}
}

// Reject makes future registrations of combo fail with err, mimicking a
// combo already claimed system-wide.
func (m *MemoryRegistrar) Reject(combo Combo, err error) {
	if err == nil {
		err = errors.New("hotkey already registered")
	}
	m.mu.Lock()
	m.rejected[combo.Normalize()] = err
	m.mu.Unlock()
}

// Register implements Registrar.
func (m *MemoryRegistrar) Register(key KeyCode, mods Modifier, id uint32) (Handle, error) {
	combo := Combo{Key: key, Modifiers: mods}.Normalize()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.registerCalls++
	if id == 0 || id > MaxHotkeyID {
		return nil, fmt.Errorf("hotkey ID out of range (ID=%d)", id)
	}
	if err, ok := m.rejected[combo]; ok {
		return nil, err
	}
	for liveID, liveCombo := range m.live {
		if liveCombo == combo {
			return nil, fmt.Errorf("combo %s already held by id %d", combo, liveID)
		}
	}
	if _, exists := m.live[id]; exists {
		return nil, fmt.Errorf("hotkey id %d already in use", id)
	}
	m.live[id] = combo
	return memoryHandle{id: id}, nil
}

// Unregister implements Registrar.
func (m *MemoryRegistrar) Unregister(h Handle) error {
	handle, ok := h.(memoryHandle)
	if !ok {
		return fmt.Errorf("foreign handle %T", h)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unregisterCalls++
	if _, exists := m.live[handle.id]; !exists {
		return fmt.Errorf("hotkey id %d is not registered", handle.id)
	}
	delete(m.live, handle.id)
	return nil
}

// SetHandler implements Registrar.
func (m *MemoryRegistrar) SetHandler(fn func(id uint32)) {
	m.mu.Lock()
	m.handler = fn
	m.mu.Unlock()
}

// Fire simulates the OS delivering a press of combo. It reports whether a
// live registration matched.
func (m *MemoryRegistrar) Fire(combo Combo) bool {
	combo = combo.Normalize()
	m.mu.Lock()
	handler := m.handler
	var firedID uint32
	found := false
	for id, liveCombo := range m.live {
		if liveCombo == combo {
			firedID, found = id, true
			break
		}
	}
	m.mu.Unlock()

	if !found || handler == nil {
		return false
	}
	handler(firedID)
	return true
}

// FireID delivers an arbitrary id, live or not, to the installed handler.
func (m *MemoryRegistrar) FireID(id uint32) {
	m.mu.Lock()
	handler := m.handler
	m.mu.Unlock()
	if handler != nil {
		handler(id)
	}
}

// LiveCombos returns the currently held combos in canonical-string order.
func (m *MemoryRegistrar) LiveCombos() []Combo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Combo, 0, len(m.live))
	for _, combo := range m.live {
		out = append(out, combo)
	}
	slices.SortFunc(out, func(a, b Combo) int {
		switch {
		case a.String() < b.String():
			return -1
		case a.String() > b.String():
			return 1
		}
		return 0
	})
	return out
}

// LiveIDs returns the ids of the current registrations, ascending.
func (m *MemoryRegistrar) LiveIDs() []uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]uint32, 0, len(m.live))
	for id := range m.live {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Calls returns how many Register and Unregister calls have been made.
func (m *MemoryRegistrar) Calls() (register, unregister int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.registerCalls, m.unregisterCalls
}
