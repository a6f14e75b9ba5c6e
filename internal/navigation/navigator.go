// Package navigation owns the panel's current page and visibility and turns
// hotkey actions and finished drags into page transitions.
package navigation

import (
	"log/slog"

	"github.com/google/uuid"

	"trayhop/internal/hotkeys"
	"trayhop/internal/pages"
)

// newEventIDFn is replaced in tests for deterministic ids.
var newEventIDFn = func() string { return uuid.NewString() }

// Navigator is the navigation controller.
//
// Navigator is not safe for concurrent use. It is driven from the same
// input-handling goroutine as the hotkey registry and gesture engine.
type Navigator struct {
	seq     pages.Sequencer
	emitter Emitter

	current pages.Page
	visible bool
	width   float64
}

// Options configures a Navigator.
type Options struct {
	Sequencer pages.Sequencer
	Start     pages.Page
	Width     float64
}

// New creates a navigator positioned on opts.Start (the first page when
// opts.Start is not a valid page). The panel starts hidden.
func New(emitter Emitter, opts Options) *Navigator {
	start := opts.Start
	if !start.Valid() {
		start = pages.OrderedPages()[0]
	}
	return &Navigator{
		seq:     opts.Sequencer,
		emitter: emitter,
		current: start,
		width:   opts.Width,
	}
}

// Current returns the visible page.
func (n *Navigator) Current() pages.Page { return n.current }

// Visible reports whether the panel is shown.
func (n *Navigator) Visible() bool { return n.visible }

// Width returns the last known popover width.
func (n *Navigator) Width() float64 { return n.width }

// SetWidth records the popover width used for commit thresholds.
func (n *Navigator) SetWidth(width float64) {
	if width < 0 {
		width = 0
	}
	n.width = width
}

// SetSequencer swaps the threshold tuning.
func (n *Navigator) SetSequencer(seq pages.Sequencer) {
	n.seq = seq
}

// Deliver implements hotkeys.ActionSink.
func (n *Navigator) Deliver(action hotkeys.Action) {
	n.Apply(action, CauseHotkey)
}

// Apply performs action and reports whether navigation state changed.
// Paging past either end of the sequence is a no-op.
func (n *Navigator) Apply(action hotkeys.Action, cause Cause) bool {
	switch action {
	case hotkeys.ToggleVisibility:
		n.SetVisible(!n.visible, cause)
		return true
	case hotkeys.NextPage:
		return n.step(pages.Forward, cause)
	case hotkeys.PreviousPage:
		return n.step(pages.Backward, cause)
	}
	if target, ok := action.TargetPage(); ok {
		return n.GoTo(target, cause)
	}
	slog.Warn("[WARN-nav] ignoring unknown action", "action", action.String(), "cause", string(cause))
	return false
}

// SetVisible shows or hides the panel. It always emits, so a caller can
// re-assert state after the window was hidden by other means.
func (n *Navigator) SetVisible(visible bool, cause Cause) {
	n.visible = visible
	n.emit(Event{Type: EventVisibility, Cause: cause, From: n.current})
}

// GoTo jumps to page. Jumping to the current page changes nothing.
func (n *Navigator) GoTo(page pages.Page, cause Cause) bool {
	if !page.Valid() {
		slog.Warn("[WARN-nav] ignoring jump to unknown page", "page", page.String())
		return false
	}
	if page == n.current {
		return false
	}
	n.transition(page, cause, 0, 0)
	return true
}

func (n *Navigator) step(dir pages.Direction, cause Cause) bool {
	next, ok := pages.NextPage(n.current, dir)
	if !ok {
		slog.Debug("[DEBUG-nav] page step at boundary", "page", n.current.String(), "direction", dir.String())
		return false
	}
	n.transition(next, cause, 0, 0)
	return true
}

// Changed implements gesture.Sink with a live drag preview.
func (n *Navigator) Changed(dx, dy float64) {
	ev := Event{Type: EventDrag, Cause: CauseGesture, From: n.current, OffsetX: dx, OffsetY: dy}
	if next, ok := pages.NextPage(n.current, pages.DirectionForDrag(dx)); ok {
		ev.To = &next
	}
	n.emit(ev)
}

// Ended implements gesture.Sink. A drag long and horizontal enough moves to
// the neighbouring page; anything else snaps back.
func (n *Navigator) Ended(dx, dy float64) {
	if n.seq.ShouldCommit(dx, dy, n.width) {
		if next, ok := pages.NextPage(n.current, pages.DirectionForDrag(dx)); ok {
			n.transition(next, CauseGesture, dx, dy)
			return
		}
	}
	n.emit(Event{Type: EventSnapBack, Cause: CauseGesture, From: n.current, OffsetX: dx, OffsetY: dy})
}

func (n *Navigator) transition(to pages.Page, cause Cause, dx, dy float64) {
	from := n.current
	n.current = to
	slog.Debug("[DEBUG-nav] page transition", "from", from.String(), "to", to.String(), "cause", string(cause))
	n.emit(Event{Type: EventTransition, Cause: cause, From: from, To: &to, OffsetX: dx, OffsetY: dy})
}

func (n *Navigator) emit(ev Event) {
	ev.ID = newEventIDFn()
	ev.Visible = n.visible
	if n.emitter != nil {
		n.emitter.Emit(ev)
	}
}
