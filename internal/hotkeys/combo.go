package hotkeys

import (
	"fmt"
	"strconv"
	"strings"
)

// Modifier is a hotkey modifier bitmask. The device-independent bits share
// the Win32 MOD_* values so the Windows registrar can pass them through.
type Modifier uint32

const (
	ModAlt   Modifier = 0x0001
	ModCtrl  Modifier = 0x0002
	ModShift Modifier = 0x0004
	ModSuper Modifier = 0x0008

	// Device-dependent state bits. Platform layers may report them, but they
	// never take part in combo identity.
	ModCapsLock Modifier = 0x0001_0000
	ModNumPad   Modifier = 0x0002_0000
	ModFunction Modifier = 0x0004_0000

	deviceIndependentMask = ModCtrl | ModAlt | ModShift | ModSuper
)

// KeyCode is a virtual-key code. Letters and digits use their ASCII upper-case
// value and named keys use the Win32 VK_* numbering.
type KeyCode uint32

const (
	KeySpace  KeyCode = 0x20
	KeyTab    KeyCode = 0x09
	KeyReturn KeyCode = 0x0D
	KeyEscape KeyCode = 0x1B
	KeyDelete KeyCode = 0x2E
	KeyLeft   KeyCode = 0x25
	KeyUp     KeyCode = 0x26
	KeyRight  KeyCode = 0x27
	KeyDown   KeyCode = 0x28
	KeyGrave  KeyCode = 0xC0
	KeyF1     KeyCode = 0x70
	KeyF20    KeyCode = 0x83
)

// Combo is a key plus modifiers. Compare combos only after Normalize.
type Combo struct {
	Key       KeyCode  `json:"keyCode"`
	Modifiers Modifier `json:"modifiers"`
}

// Normalize drops device-dependent modifier bits.
func (c Combo) Normalize() Combo {
	c.Modifiers &= deviceIndependentMask
	return c
}

// Equal reports whether two combos match after normalization.
func (c Combo) Equal(other Combo) bool {
	return c.Normalize() == other.Normalize()
}

// String renders the canonical spec, e.g. "Ctrl+Shift+SPACE".
func (c Combo) String() string {
	n := c.Normalize()
	parts := make([]string, 0, 5)
	for _, mod := range modifierOrder {
		if n.Modifiers&mod != 0 {
			parts = append(parts, modifierDisplayName(mod))
		}
	}
	return strings.Join(append(parts, keyDisplayName(n.Key)), "+")
}

var modifierOrder = []Modifier{ModCtrl, ModAlt, ModShift, ModSuper}

var modifierByName = map[string]Modifier{
	"CTRL":    ModCtrl,
	"CONTROL": ModCtrl,
	"SHIFT":   ModShift,
	"ALT":     ModAlt,
	"OPTION":  ModAlt,
	"OPT":     ModAlt,
	"WIN":     ModSuper,
	"SUPER":   ModSuper,
	"CMD":     ModSuper,
	"COMMAND": ModSuper,
}

var keyByName = map[string]KeyCode{
	"SPACE":  KeySpace,
	"TAB":    KeyTab,
	"ENTER":  KeyReturn,
	"RETURN": KeyReturn,
	"ESC":    KeyEscape,
	"ESCAPE": KeyEscape,
	"DELETE": KeyDelete,
	"LEFT":   KeyLeft,
	"RIGHT":  KeyRight,
	"UP":     KeyUp,
	"DOWN":   KeyDown,
}

var keyNameByCode = map[KeyCode]string{
	KeySpace:  "SPACE",
	KeyTab:    "TAB",
	KeyReturn: "ENTER",
	KeyEscape: "ESC",
	KeyDelete: "DELETE",
	KeyLeft:   "LEFT",
	KeyRight:  "RIGHT",
	KeyUp:     "UP",
	KeyDown:   "DOWN",
	KeyGrave:  "`",
}

// ParseCombo parses a spec like "Ctrl+Shift+F12" or "Cmd+Option+Space".
// At least one modifier is required.
func ParseCombo(spec string) (Combo, error) {
	raw := strings.TrimSpace(spec)
	if raw == "" {
		return Combo{}, fmt.Errorf("hotkey spec is empty")
	}

	parts := strings.Split(raw, "+")
	if len(parts) < 2 {
		return Combo{}, fmt.Errorf("hotkey must include modifiers and key: %s", raw)
	}

	var modifiers Modifier
	for _, token := range parts[:len(parts)-1] {
		name := strings.ToUpper(strings.TrimSpace(token))
		mod, ok := modifierByName[name]
		if !ok {
			return Combo{}, fmt.Errorf("unknown modifier %q in hotkey %q", token, raw)
		}
		modifiers |= mod
	}

	key, err := parseKey(parts[len(parts)-1])
	if err != nil {
		return Combo{}, err
	}
	if modifiers == 0 {
		return Combo{}, fmt.Errorf("at least one modifier is required: %q", raw)
	}
	return Combo{Key: key, Modifiers: modifiers}, nil
}

// MustParseCombo is ParseCombo for literals known to be valid.
func MustParseCombo(spec string) Combo {
	combo, err := ParseCombo(spec)
	if err != nil {
		panic(err)
	}
	return combo
}

func parseKey(raw string) (KeyCode, error) {
	token := strings.ToUpper(strings.TrimSpace(raw))
	if token == "" {
		return 0, fmt.Errorf("missing hotkey key token")
	}

	if key, ok := keyByName[token]; ok {
		return key, nil
	}
	if strings.HasPrefix(token, "F") && len(token) > 1 {
		if n, err := strconv.Atoi(token[1:]); err == nil && n >= 1 && n <= 20 {
			return KeyF1 + KeyCode(n-1), nil
		}
	}

	if len(token) == 1 {
		ch := token[0]
		if ch >= 'A' && ch <= 'Z' {
			return KeyCode(ch), nil
		}
		if ch >= '0' && ch <= '9' {
			return KeyCode(ch), nil
		}
		if ch == '`' {
			return KeyGrave, nil
		}
	}

	switch token {
	case "BACKQUOTE", "GRAVE":
		return KeyGrave, nil
	}

	if strings.HasPrefix(token, "0X") {
		value, err := strconv.ParseUint(token[2:], 16, 16)
		if err != nil {
			return 0, fmt.Errorf("invalid hex key %q", raw)
		}
		if value == 0 {
			return 0, fmt.Errorf("key code 0x0000 is not a valid virtual key")
		}
		return KeyCode(value), nil
	}

	return 0, fmt.Errorf("unknown key %q in hotkey spec", raw)
}

func keyDisplayName(key KeyCode) string {
	if name, ok := keyNameByCode[key]; ok {
		return name
	}
	if key >= KeyF1 && key <= KeyF20 {
		return "F" + strconv.Itoa(int(key-KeyF1)+1)
	}
	if (key >= 'A' && key <= 'Z') || (key >= '0' && key <= '9') {
		return string(rune(key))
	}
	return fmt.Sprintf("0X%02X", uint32(key))
}

func modifierDisplayName(mod Modifier) string {
	switch mod {
	case ModCtrl:
		return "Ctrl"
	case ModShift:
		return "Shift"
	case ModAlt:
		return "Alt"
	case ModSuper:
		return "Super"
	default:
		return "Mod"
	}
}
