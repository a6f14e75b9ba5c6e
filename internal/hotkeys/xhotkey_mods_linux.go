//go:build linux && cgo

package hotkeys

import "golang.design/x/hotkey"

// Alt is Mod1 and Super is Mod4 on a standard X11 modifier map.
var xHotkeyModifiers = map[Modifier]hotkey.Modifier{
	ModCtrl:  hotkey.ModCtrl,
	ModShift: hotkey.ModShift,
	ModAlt:   hotkey.Mod1,
	ModSuper: hotkey.Mod4,
}
