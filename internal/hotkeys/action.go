package hotkeys

import (
	"errors"
	"fmt"
	"strings"

	"trayhop/internal/pages"
)

// ErrUnknownAction is returned when an action name does not match any Action.
var ErrUnknownAction = errors.New("unknown action")

// Action is an abstract navigation intent a global hotkey can trigger.
type Action int

const (
	ToggleVisibility Action = iota
	NextPage
	PreviousPage
	JumpApps
	JumpFavorites
	JumpNotes
)

var actionNames = [...]string{
	ToggleVisibility: "toggle-visibility",
	NextPage:         "next-page",
	PreviousPage:     "previous-page",
	JumpApps:         "page-apps",
	JumpFavorites:    "page-favorites",
	JumpNotes:        "page-notes",
}

var jumpTargets = map[Action]pages.Page{
	JumpApps:      pages.Apps,
	JumpFavorites: pages.Favorites,
	JumpNotes:     pages.Notes,
}

// AllActions returns every Action in registration order.
// Registration conflicts are resolved by this order: earlier wins.
func AllActions() []Action {
	out := make([]Action, len(actionNames))
	for i := range actionNames {
		out[i] = Action(i)
	}
	return out
}

// Valid reports whether a is a declared Action.
func (a Action) Valid() bool {
	return a >= 0 && int(a) < len(actionNames)
}

func (a Action) String() string {
	if !a.Valid() {
		return fmt.Sprintf("action(%d)", int(a))
	}
	return actionNames[a]
}

// TargetPage returns the page a jump action selects.
func (a Action) TargetPage() (pages.Page, bool) {
	page, ok := jumpTargets[a]
	return page, ok
}

// MarshalText encodes the action by its config name.
func (a Action) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAction, int(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText decodes an action config name.
func (a *Action) UnmarshalText(text []byte) error {
	parsed, err := ParseAction(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAction resolves an action config name (case-insensitive).
func ParseAction(name string) (Action, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for i, actionName := range actionNames {
		if actionName == key {
			return Action(i), nil
		}
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownAction, name)
}
