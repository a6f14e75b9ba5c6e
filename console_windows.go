//go:build windows

package main

import (
	"log/slog"

	"golang.org/x/sys/windows"
)

const codePageUTF8 = 65001

// setConsoleUTF8 makes stderr logs render app display names correctly when
// the binary runs from a console. GUI launches have no console; the calls
// then fail and are ignored.
func setConsoleUTF8() {
	if err := windows.SetConsoleOutputCP(codePageUTF8); err != nil {
		slog.Debug("[DEBUG-console] console output code page unchanged", "error", err)
	}
	if err := windows.SetConsoleCP(codePageUTF8); err != nil {
		slog.Debug("[DEBUG-console] console input code page unchanged", "error", err)
	}
}
