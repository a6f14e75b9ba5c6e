// Package pages holds the fixed, ordered set of content pages shown in the
// panel and the pure sequencing and commit-threshold rules shared by hotkey
// navigation and drag paging.
package pages

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// Page identifies one named content page.
// The numeric value is the page's orderIndex.
type Page int

const (
	Apps Page = iota
	Favorites
	Notes
)

var pageNames = map[Page]string{
	Apps:      "apps",
	Favorites: "favorites",
	Notes:     "notes",
}

// OrderIndex returns the page's position in the sequence.
func (p Page) OrderIndex() int { return int(p) }

// Valid reports whether p is one of the configured pages.
func (p Page) Valid() bool {
	_, ok := pageNames[p]
	return ok
}

func (p Page) String() string {
	if name, ok := pageNames[p]; ok {
		return name
	}
	return fmt.Sprintf("page(%d)", int(p))
}

// MarshalText encodes the page by name for JSON/YAML payloads.
func (p Page) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("unknown page %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText decodes a page name.
func (p *Page) UnmarshalText(text []byte) error {
	parsed, err := ParsePage(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePage resolves a page name case-insensitively.
func ParsePage(name string) (Page, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for page, pageName := range pageNames {
		if pageName == key {
			return page, nil
		}
	}
	return 0, fmt.Errorf("unknown page %q", name)
}

// OrderedPages returns every page sorted ascending by orderIndex.
// The returned slice is freshly allocated; callers may modify it.
func OrderedPages() []Page {
	out := make([]Page, 0, len(pageNames))
	for page := range pageNames {
		out = append(out, page)
	}
	slices.SortFunc(out, func(a, b Page) int { return a.OrderIndex() - b.OrderIndex() })
	return out
}

// Direction is the paging direction through the ordered pages.
type Direction int

const (
	NoDirection Direction = iota
	Forward
	Backward
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	default:
		return "none"
	}
}

// NextPage returns the page adjacent to current in dir.
// It reports false at either end of the sequence (there is no wraparound),
// for an unknown current page, and for NoDirection.
func NextPage(current Page, dir Direction) (Page, bool) {
	ordered := OrderedPages()
	idx := slices.Index(ordered, current)
	if idx < 0 {
		return 0, false
	}
	switch dir {
	case Forward:
		idx++
	case Backward:
		idx--
	default:
		return 0, false
	}
	if idx < 0 || idx >= len(ordered) {
		return 0, false
	}
	return ordered[idx], true
}

// DirectionForDrag maps a horizontal drag delta to a paging direction.
// Dragging content to the left reveals the next page on the right.
func DirectionForDrag(dx float64) Direction {
	switch {
	case dx < 0:
		return Forward
	case dx > 0:
		return Backward
	default:
		return NoDirection
	}
}

const (
	// DefaultMinimumThreshold is the commit distance floor in points.
	DefaultMinimumThreshold = 50.0
	// DefaultThresholdFraction is the share of the popover width a drag must cross.
	DefaultThresholdFraction = 0.25
)

// Sequencer holds the commit-threshold tuning. The zero value is usable and
// behaves like DefaultSequencer.
type Sequencer struct {
	MinimumThreshold  float64
	ThresholdFraction float64
}

// DefaultSequencer returns a Sequencer with the default tuning.
func DefaultSequencer() Sequencer {
	return Sequencer{
		MinimumThreshold:  DefaultMinimumThreshold,
		ThresholdFraction: DefaultThresholdFraction,
	}
}

func (s Sequencer) withDefaults() Sequencer {
	if s.MinimumThreshold <= 0 || math.IsNaN(s.MinimumThreshold) || math.IsInf(s.MinimumThreshold, 0) {
		s.MinimumThreshold = DefaultMinimumThreshold
	}
	if s.ThresholdFraction <= 0 || math.IsNaN(s.ThresholdFraction) || math.IsInf(s.ThresholdFraction, 0) {
		s.ThresholdFraction = DefaultThresholdFraction
	}
	return s
}

// CommitThreshold returns the distance a drag across a surface of the given
// width must travel before it commits to a page change. It never drops below
// the configured minimum and grows with width.
func (s Sequencer) CommitThreshold(width float64) float64 {
	s = s.withDefaults()
	if width <= 0 || math.IsNaN(width) {
		return s.MinimumThreshold
	}
	return math.Max(s.MinimumThreshold, width*s.ThresholdFraction)
}

// ShouldCommit reports whether a finished drag is predominantly horizontal
// and long enough to change page. A mostly vertical drag never commits.
func (s Sequencer) ShouldCommit(horizontal, vertical, width float64) bool {
	h := math.Abs(horizontal)
	v := math.Abs(vertical)
	if h <= v {
		return false
	}
	return h >= s.CommitThreshold(width)
}
