// Package testutil holds small helpers shared by package tests.
package testutil

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// Ptr returns a pointer to v, for optional fields in struct literals.
func Ptr[T any](v T) *T { return &v }

// LogBuffer collects text-formatted slog output. It is safe for concurrent
// writers such as the input loop goroutine.
type LogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// String returns everything logged so far.
func (b *LogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Contains reports whether any logged line contains substr.
func (b *LogBuffer) Contains(substr string) bool {
	return strings.Contains(b.String(), substr)
}

// CaptureLogs routes the default slog logger to a buffer at level and
// restores the previous logger in t.Cleanup.
func CaptureLogs(t *testing.T, level slog.Level) *LogBuffer {
	t.Helper()
	original := slog.Default()
	logs := &LogBuffer{}
	slog.SetDefault(slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: level})))
	t.Cleanup(func() { slog.SetDefault(original) })
	return logs
}
