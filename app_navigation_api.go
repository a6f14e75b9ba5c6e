package main

import (
	"fmt"

	"trayhop/internal/hotkeys"
	"trayhop/internal/navigation"
	"trayhop/internal/pages"
)

// NavigationState is the navigator state exposed to the frontend.
type NavigationState struct {
	Page    pages.Page `json:"page"`
	Visible bool       `json:"visible"`
	Width   float64    `json:"width"`
}

// GetPages returns every page in display order.
func (a *App) GetPages() []pages.Page {
	return pages.OrderedPages()
}

// GetNavigationState returns the current page, visibility and width.
func (a *App) GetNavigationState() (NavigationState, error) {
	var state NavigationState
	err := a.runOnLoop(func() { state = a.navigationStateOnLoop() })
	return state, err
}

func (a *App) navigationStateOnLoop() NavigationState {
	return NavigationState{
		Page:    a.navigator.Current(),
		Visible: a.navigator.Visible(),
		Width:   a.navigator.Width(),
	}
}

// Navigate applies a named action, e.g. "next-page", and reports whether
// navigation state changed.
func (a *App) Navigate(actionName string) (bool, error) {
	action, err := hotkeys.ParseAction(actionName)
	if err != nil {
		return false, err
	}
	var changed bool
	if err := a.runOnLoop(func() { changed = a.navigator.Apply(action, navigation.CauseAPI) }); err != nil {
		return false, err
	}
	return changed, nil
}

// SetPanelVisible shows or hides the panel.
func (a *App) SetPanelVisible(visible bool) error {
	return a.runOnLoop(func() { a.navigator.SetVisible(visible, navigation.CauseAPI) })
}

// SetPanelWidth records the popover width used for gesture thresholds.
func (a *App) SetPanelWidth(width float64) error {
	if width < 0 {
		return fmt.Errorf("width must not be negative: %v", width)
	}
	return a.runOnLoop(func() { a.navigator.SetWidth(width) })
}

// GetBindings returns the hotkeys registered by the last refresh.
func (a *App) GetBindings() ([]hotkeys.LiveBinding, error) {
	var out []hotkeys.LiveBinding
	err := a.runOnLoop(func() { out = append([]hotkeys.LiveBinding(nil), a.bindings...) })
	return out, err
}

// RefreshHotkeys re-registers every binding, e.g. after another application
// released a combo.
func (a *App) RefreshHotkeys() ([]hotkeys.LiveBinding, error) {
	var out []hotkeys.LiveBinding
	err := a.runOnLoop(func() {
		a.refreshHotkeys()
		out = append([]hotkeys.LiveBinding(nil), a.bindings...)
	})
	return out, err
}
