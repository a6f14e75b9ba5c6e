// Package diaglog captures warnings and errors from log/slog into a bounded
// in-memory buffer so the UI can show recent diagnostics.
package diaglog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"time"
)

// Entry is one captured log record.
type Entry struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
	// Source is the dot-separated slog group the record was logged under.
	Source string `json:"source,omitempty"`
}

// Callback receives each captured entry.
type Callback func(Entry)

// TeeHandler forwards every record to base and passes records at or above
// minLevel to a callback.
type TeeHandler struct {
	base     slog.Handler
	callback Callback
	minLevel slog.Level
	group    string
}

// NewTeeHandler wraps base. A nil callback only delegates.
func NewTeeHandler(base slog.Handler, minLevel slog.Level, callback Callback) *TeeHandler {
	return &TeeHandler{base: base, callback: callback, minLevel: minLevel}
}

// Enabled defers to the base handler.
func (h *TeeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

// Handle forwards to base, then runs the callback. The callback runs even
// when base fails; the base error is returned.
func (h *TeeHandler) Handle(ctx context.Context, record slog.Record) error {
	err := h.base.Handle(ctx, record)
	if h.callback != nil && record.Level >= h.minLevel {
		h.invoke(Entry{
			Time:    record.Time,
			Level:   record.Level.String(),
			Message: record.Message,
			Source:  h.group,
		})
	}
	return err
}

func (h *TeeHandler) invoke(entry Entry) {
	defer func() {
		if r := recover(); r != nil {
			// stderr, not slog: logging here would re-enter this handler.
			fmt.Fprintf(os.Stderr, "[diaglog] callback panicked: %v\n%s\n", r, debug.Stack())
		}
	}()
	h.callback(entry)
}

func (h *TeeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.base = h.base.WithAttrs(attrs)
	return &clone
}

func (h *TeeHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.base = h.base.WithGroup(name)
	if h.group != "" {
		clone.group = h.group + "." + name
	} else {
		clone.group = name
	}
	return &clone
}
