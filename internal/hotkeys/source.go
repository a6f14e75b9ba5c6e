package hotkeys

import (
	"log/slog"
	"strings"
)

// BindingSource answers which combo, if any, is configured for an action.
// It is re-queried on every Registry.Refresh.
type BindingSource interface {
	Lookup(action Action) (Combo, bool)
}

// BindingSourceFunc adapts a function to BindingSource.
type BindingSourceFunc func(action Action) (Combo, bool)

// Lookup implements BindingSource.
func (f BindingSourceFunc) Lookup(action Action) (Combo, bool) { return f(action) }

// StaticSource is a fixed action-to-combo table.
type StaticSource map[Action]Combo

// Lookup implements BindingSource.
func (s StaticSource) Lookup(action Action) (Combo, bool) {
	combo, ok := s[action]
	return combo, ok
}

// SpecSource builds a source from action-name to combo-spec pairs as they
// appear in the config file. Unknown action names and unparsable specs are
// logged and treated as unbound.
func SpecSource(specs map[string]string) StaticSource {
	out := make(StaticSource, len(specs))
	for name, spec := range specs {
		action, err := ParseAction(name)
		if err != nil {
			slog.Warn("[WARN-hotkey] ignoring binding for unknown action", "action", name)
			continue
		}
		if strings.TrimSpace(spec) == "" {
			continue
		}
		combo, err := ParseCombo(spec)
		if err != nil {
			slog.Warn("[WARN-hotkey] ignoring unparsable binding", "action", name, "spec", spec, "error", err)
			continue
		}
		out[action] = combo
	}
	return out
}
