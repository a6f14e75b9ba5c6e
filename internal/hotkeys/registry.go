// Package hotkeys maps configured key combinations to navigation actions,
// keeps the matching OS-level registrations alive through a swappable
// platform Registrar, and routes fired hotkey ids back to actions.
package hotkeys

import (
	"errors"
	"fmt"
	"log/slog"
)

// MaxHotkeyID is the largest id the registry hands to a Registrar. Win32
// reserves ids above 0xBFFF for shared DLLs.
const MaxHotkeyID uint32 = 0xBFFF

// ActionSink receives actions triggered by fired hotkeys.
type ActionSink interface {
	Deliver(action Action)
}

// ActionSinkFunc adapts a function to ActionSink.
type ActionSinkFunc func(action Action)

// Deliver implements ActionSink.
func (f ActionSinkFunc) Deliver(action Action) { f(action) }

// LiveBinding describes one registration currently held by the registry.
type LiveBinding struct {
	Action   Action `json:"action"`
	Combo    Combo  `json:"combo"`
	Spec     string `json:"spec"`
	HotkeyID uint32 `json:"hotkeyId"`
}

// Conflict records an action skipped because an earlier action claimed the
// same combo during the same refresh.
type Conflict struct {
	Action Action
	Winner Action
	Combo  Combo
}

// Failure records an action the registrar refused to register.
type Failure struct {
	Action Action
	Combo  Combo
	Err    error
}

// RefreshReport summarizes one Refresh pass.
type RefreshReport struct {
	Registered []LiveBinding
	Conflicts  []Conflict
	Failures   []Failure
}

type registration struct {
	handle Handle
	combo  Combo
	id     uint32
}

// Registry owns the live hotkey registrations.
//
// Registry is not safe for concurrent use. Drive Refresh, HandleFiredEvent
// and Close from the single input-handling goroutine; use the dispatch
// argument of Install to move fired events there.
type Registry struct {
	source    BindingSource
	registrar Registrar
	sink      ActionSink

	installed bool
	closed    bool
	nextID    uint32

	byAction map[Action]registration
	byID     map[uint32]Action
}

// NewRegistry creates a registry. Nothing is registered until Refresh.
func NewRegistry(source BindingSource, registrar Registrar, sink ActionSink) *Registry {
	return &Registry{
		source:    source,
		registrar: registrar,
		sink:      sink,
		byAction:  map[Action]registration{},
		byID:      map[uint32]Action{},
	}
}

// Install hooks the registrar's fired-event stream to HandleFiredEvent.
// dispatch, when non-nil, receives each event as a closure to run on the
// input-handling context. Install is idempotent; only the first call has an
// effect.
func (r *Registry) Install(dispatch func(func())) {
	if r.installed || r.registrar == nil {
		return
	}
	r.installed = true
	r.registrar.SetHandler(func(id uint32) {
		if dispatch == nil {
			r.HandleFiredEvent(id)
			return
		}
		dispatch(func() { r.HandleFiredEvent(id) })
	})
	slog.Debug("[DEBUG-hotkey] fired-event handler installed")
}

// Installed reports whether Install has run.
func (r *Registry) Installed() bool { return r.installed }

// SetSource swaps the binding source. The new bindings take effect on the
// next Refresh.
func (r *Registry) SetSource(source BindingSource) {
	r.source = source
}

// Refresh releases every held registration and registers the current
// bindings again. Duplicate combos are resolved first-wins in AllActions
// order; registrar failures skip only the affected action.
func (r *Registry) Refresh() RefreshReport {
	var report RefreshReport
	if r.closed {
		slog.Debug("[DEBUG-hotkey] refresh ignored on closed registry")
		return report
	}
	if err := r.releaseAll(); err != nil {
		slog.Warn("[WARN-hotkey] releasing previous registrations reported errors", "error", err)
	}
	if r.source == nil || r.registrar == nil {
		return report
	}

	claimed := map[Combo]Action{}
	for _, action := range AllActions() {
		combo, ok := r.source.Lookup(action)
		if !ok {
			continue
		}
		combo = combo.Normalize()

		if winner, taken := claimed[combo]; taken {
			slog.Warn("[WARN-hotkey] duplicate combo, keeping first binding",
				"combo", combo.String(), "skipped", action.String(), "kept", winner.String())
			report.Conflicts = append(report.Conflicts, Conflict{Action: action, Winner: winner, Combo: combo})
			continue
		}
		claimed[combo] = action

		id := r.allocateID()
		handle, err := r.registrar.Register(combo.Key, combo.Modifiers, id)
		if err != nil {
			slog.Warn("[WARN-hotkey] registration failed, binding inactive",
				"action", action.String(), "combo", combo.String(), "hotkeyID", id, "error", err)
			report.Failures = append(report.Failures, Failure{Action: action, Combo: combo, Err: err})
			continue
		}

		r.byAction[action] = registration{handle: handle, combo: combo, id: id}
		r.byID[id] = action
		report.Registered = append(report.Registered, LiveBinding{
			Action:   action,
			Combo:    combo,
			Spec:     combo.String(),
			HotkeyID: id,
		})
		slog.Debug("[DEBUG-hotkey] registered",
			"action", action.String(), "combo", combo.String(), "hotkeyID", id)
	}
	return report
}

// allocateID returns the next id in [1, MaxHotkeyID], wrapping around and
// skipping ids still held by this refresh.
func (r *Registry) allocateID() uint32 {
	for {
		r.nextID++
		if r.nextID == 0 || r.nextID > MaxHotkeyID {
			r.nextID = 1
		}
		if _, live := r.byID[r.nextID]; !live {
			return r.nextID
		}
	}
}

// HandleFiredEvent delivers the action bound to id. Ids from an earlier
// registration generation, or never issued, are ignored.
func (r *Registry) HandleFiredEvent(id uint32) {
	action, ok := r.byID[id]
	if !ok {
		slog.Debug("[DEBUG-hotkey] ignoring fired event with unknown id", "hotkeyID", id)
		return
	}
	if r.sink == nil {
		return
	}
	r.sink.Deliver(action)
}

// Bindings returns the live bindings in action order.
func (r *Registry) Bindings() []LiveBinding {
	out := make([]LiveBinding, 0, len(r.byAction))
	for _, action := range AllActions() {
		reg, ok := r.byAction[action]
		if !ok {
			continue
		}
		out = append(out, LiveBinding{
			Action:   action,
			Combo:    reg.combo,
			Spec:     reg.combo.String(),
			HotkeyID: reg.id,
		})
	}
	return out
}

// Close releases every registration. The registry ignores later Refresh calls.
func (r *Registry) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.releaseAll()
}

func (r *Registry) releaseAll() error {
	var errs []error
	for _, action := range AllActions() {
		reg, ok := r.byAction[action]
		if !ok {
			continue
		}
		if err := r.registrar.Unregister(reg.handle); err != nil {
			errs = append(errs, fmt.Errorf("unregister %s (%s): %w", action, reg.combo, err))
		}
	}
	clear(r.byAction)
	clear(r.byID)
	return errors.Join(errs...)
}
