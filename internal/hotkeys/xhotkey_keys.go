//go:build (darwin || linux) && cgo

package hotkeys

import "golang.design/x/hotkey"

var xHotkeyKeys = map[KeyCode]hotkey.Key{
	KeySpace:  hotkey.KeySpace,
	KeyTab:    hotkey.KeyTab,
	KeyReturn: hotkey.KeyReturn,
	KeyEscape: hotkey.KeyEscape,
	KeyDelete: hotkey.KeyDelete,
	KeyLeft:   hotkey.KeyLeft,
	KeyRight:  hotkey.KeyRight,
	KeyUp:     hotkey.KeyUp,
	KeyDown:   hotkey.KeyDown,

	'0': hotkey.Key0, '1': hotkey.Key1, '2': hotkey.Key2, '3': hotkey.Key3, '4': hotkey.Key4,
	'5': hotkey.Key5, '6': hotkey.Key6, '7': hotkey.Key7, '8': hotkey.Key8, '9': hotkey.Key9,

	'A': hotkey.KeyA, 'B': hotkey.KeyB, 'C': hotkey.KeyC, 'D': hotkey.KeyD, 'E': hotkey.KeyE,
	'F': hotkey.KeyF, 'G': hotkey.KeyG, 'H': hotkey.KeyH, 'I': hotkey.KeyI, 'J': hotkey.KeyJ,
	'K': hotkey.KeyK, 'L': hotkey.KeyL, 'M': hotkey.KeyM, 'N': hotkey.KeyN, 'O': hotkey.KeyO,
	'P': hotkey.KeyP, 'Q': hotkey.KeyQ, 'R': hotkey.KeyR, 'S': hotkey.KeyS, 'T': hotkey.KeyT,
	'U': hotkey.KeyU, 'V': hotkey.KeyV, 'W': hotkey.KeyW, 'X': hotkey.KeyX, 'Y': hotkey.KeyY,
	'Z': hotkey.KeyZ,

	KeyF1:      hotkey.KeyF1,
	KeyF1 + 1:  hotkey.KeyF2,
	KeyF1 + 2:  hotkey.KeyF3,
	KeyF1 + 3:  hotkey.KeyF4,
	KeyF1 + 4:  hotkey.KeyF5,
	KeyF1 + 5:  hotkey.KeyF6,
	KeyF1 + 6:  hotkey.KeyF7,
	KeyF1 + 7:  hotkey.KeyF8,
	KeyF1 + 8:  hotkey.KeyF9,
	KeyF1 + 9:  hotkey.KeyF10,
	KeyF1 + 10: hotkey.KeyF11,
	KeyF1 + 11: hotkey.KeyF12,
}
