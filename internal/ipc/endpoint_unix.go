//go:build unix

package ipc

import (
	"os"
	"path/filepath"
	"strings"
)

// maxSocketPathBytes is the smallest sun_path limit across supported
// platforms (macOS), minus the terminating NUL.
const maxSocketPathBytes = 103

func defaultEndpointFor(username string) string {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "trayhop-"+username+".sock")
}

func endpointAllowed(value string) bool {
	if !filepath.IsAbs(value) || len(value) > maxSocketPathBytes {
		return false
	}
	base := filepath.Base(value)
	return strings.HasPrefix(base, "trayhop-") && strings.HasSuffix(base, ".sock")
}
