//go:build unix

package ipc

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultEndpointHonorsTrustedEnvOverride(t *testing.T) {
	t.Setenv(endpointEnv, "/tmp/trayhop-ci.sock")

	if got := DefaultEndpoint(); got != "/tmp/trayhop-ci.sock" {
		t.Fatalf("DefaultEndpoint() = %q, want trusted env override", got)
	}
}

func TestDefaultEndpointRejectsUntrustedEnvOverride(t *testing.T) {
	for _, value := range []string{
		"relative/trayhop-x.sock",
		"/tmp/other-app.sock",
		"/tmp/trayhop-x.pipe",
		"/" + strings.Repeat("d", maxSocketPathBytes) + "/trayhop-x.sock",
	} {
		t.Run(value, func(t *testing.T) {
			t.Setenv(endpointEnv, value)
			if got := DefaultEndpoint(); got == value {
				t.Fatalf("DefaultEndpoint() accepted untrusted override %q", value)
			}
		})
	}
}

func TestDefaultEndpointUsesRuntimeDirAndUsername(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(endpointEnv, "")
	t.Setenv("XDG_RUNTIME_DIR", dir)
	t.Setenv("USERNAME", "unit user!")

	want := filepath.Join(dir, "trayhop-unit_user_.sock")
	if got := DefaultEndpoint(); got != want {
		t.Fatalf("DefaultEndpoint() = %q, want %q", got, want)
	}
}
