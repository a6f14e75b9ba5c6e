// Package gesture turns raw scroll/trackpad delta events into live drag
// offsets and end-of-drag reports for interactive page paging.
package gesture

import (
	"fmt"
	"log/slog"
	"strings"
)

// Phase is the lifecycle stage a device reports with a delta event.
type Phase int

const (
	PhaseNone Phase = iota
	PhaseBegan
	PhaseChanged
	PhaseEnded
	PhaseCancelled
)

var phaseNames = [...]string{
	PhaseNone:      "none",
	PhaseBegan:     "began",
	PhaseChanged:   "changed",
	PhaseEnded:     "ended",
	PhaseCancelled: "cancelled",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name. An empty string is PhaseNone.
func (p *Phase) UnmarshalText(text []byte) error {
	key := strings.ToLower(strings.TrimSpace(string(text)))
	if key == "" {
		*p = PhaseNone
		return nil
	}
	for i, name := range phaseNames {
		if name == key {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown gesture phase %q", string(text))
}

// Event is one raw delta-carrying input event.
type Event struct {
	DeltaX        float64 `json:"deltaX"`
	DeltaY        float64 `json:"deltaY"`
	Phase         Phase   `json:"phase"`
	MomentumPhase Phase   `json:"momentumPhase"`
	// Synthetic marks phaseless events injected by UI tests.
	Synthetic bool `json:"synthetic"`
}

// Sink receives drag progress. Changed carries the live accumulated offset;
// Ended carries the final offset of a finished or cancelled drag.
type Sink interface {
	Changed(dx, dy float64)
	Ended(dx, dy float64)
}

// Options configures an Engine.
type Options struct {
	// TestMode accepts phaseless synthetic events as complete drags.
	TestMode bool
}

// Engine accumulates one drag session at a time. It is not safe for
// concurrent use; feed it from the input-handling goroutine.
type Engine struct {
	sink Sink
	opts Options

	accX   float64
	accY   float64
	active bool
}

// NewEngine returns an idle engine reporting to sink.
func NewEngine(sink Sink, opts Options) *Engine {
	return &Engine{sink: sink, opts: opts}
}

// SetTestMode toggles acceptance of synthetic events.
func (e *Engine) SetTestMode(enabled bool) {
	e.opts.TestMode = enabled
}

// Active reports whether a drag session is in progress.
func (e *Engine) Active() bool { return e.active }

// Offset returns the accumulated delta of the current session.
func (e *Engine) Offset() (dx, dy float64) { return e.accX, e.accY }

// Handle classifies and applies one event.
func (e *Engine) Handle(ev Event) {
	switch ev.Phase {
	case PhaseBegan:
		e.reset()
		e.active = true

	case PhaseChanged:
		if !e.active {
			// A changed event without began starts an implicit session.
			slog.Debug("[DEBUG-gesture] changed without began, starting implicit session")
			e.reset()
			e.active = true
		}
		e.accX += ev.DeltaX
		e.accY += ev.DeltaY
		e.changed(e.accX, e.accY)

	case PhaseEnded, PhaseCancelled:
		if e.active {
			e.ended(e.accX, e.accY)
		} else {
			slog.Debug("[DEBUG-gesture] end without active session", "phase", ev.Phase.String())
		}
		e.reset()

	case PhaseNone:
		e.handlePhaseless(ev)

	default:
		slog.Debug("[DEBUG-gesture] ignoring event with unknown phase", "phase", ev.Phase.String())
	}
}

func (e *Engine) handlePhaseless(ev Event) {
	switch {
	case ev.Synthetic && e.opts.TestMode:
		if ev.DeltaX == 0 && ev.DeltaY == 0 {
			return
		}
		if e.active {
			// Close the interrupted drag before the synthetic one.
			e.ended(e.accX, e.accY)
		}
		e.reset()
		e.changed(ev.DeltaX, ev.DeltaY)
		e.ended(ev.DeltaX, ev.DeltaY)
	case ev.MomentumPhase != PhaseNone:
		// Momentum is decay of a finished drag, not new input.
	default:
		slog.Debug("[DEBUG-gesture] ignoring phaseless event",
			"synthetic", ev.Synthetic, "testMode", e.opts.TestMode)
	}
}

func (e *Engine) reset() {
	e.accX, e.accY = 0, 0
	e.active = false
}

func (e *Engine) changed(dx, dy float64) {
	if e.sink != nil {
		e.sink.Changed(dx, dy)
	}
}

func (e *Engine) ended(dx, dy float64) {
	if e.sink != nil {
		e.sink.Ended(dx, dy)
	}
}
