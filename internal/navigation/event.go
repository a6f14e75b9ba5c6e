package navigation

import (
	"trayhop/internal/pages"
)

// EventType classifies a navigation event for the frontend.
type EventType string

const (
	EventTransition EventType = "transition"
	EventDrag       EventType = "drag"
	EventSnapBack   EventType = "snap-back"
	EventVisibility EventType = "visibility"
)

// Cause names the input path that produced an event.
type Cause string

const (
	CauseHotkey  Cause = "hotkey"
	CauseGesture Cause = "gesture"
	CauseIPC     Cause = "ipc"
	CauseAPI     Cause = "api"
)

// Event is one navigation state change pushed to the UI.
// To is nil for a drag preview at a sequence boundary.
type Event struct {
	ID      string      `json:"id"`
	Type    EventType   `json:"type"`
	Cause   Cause       `json:"cause"`
	From    pages.Page  `json:"from"`
	To      *pages.Page `json:"to,omitempty"`
	OffsetX float64     `json:"offsetX,omitempty"`
	OffsetY float64     `json:"offsetY,omitempty"`
	Visible bool        `json:"visible"`
}

// Emitter publishes navigation events.
type Emitter interface {
	Emit(ev Event)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ev Event)

// Emit implements Emitter.
func (f EmitterFunc) Emit(ev Event) { f(ev) }

// MultiEmitter fans one event out to every non-nil emitter in order.
type MultiEmitter []Emitter

// Emit implements Emitter.
func (m MultiEmitter) Emit(ev Event) {
	for _, e := range m {
		if e != nil {
			e.Emit(ev)
		}
	}
}
