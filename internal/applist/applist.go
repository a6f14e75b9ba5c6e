// Package applist projects the launcher's entry list for display: it filters
// by liveness, orders by name or recency, and pads to a fixed slot count.
package applist

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Entry is one launchable item. Icon is an opaque reference owned by the
// icon layer; the projector never looks inside it.
type Entry struct {
	DisplayName string `json:"displayName"`
	Identifier  string `json:"identifier"`
	Icon        string `json:"icon"`
}

// IsPlaceholder reports whether e is a padding slot.
func (e Entry) IsPlaceholder() bool {
	return e == Entry{}
}

// FilterMode selects which entries survive projection.
type FilterMode int

const (
	FilterAll FilterMode = iota
	FilterLiveOnly
)

func (m FilterMode) String() string {
	switch m {
	case FilterLiveOnly:
		return "live-only"
	default:
		return "all"
	}
}

// ParseFilterMode resolves a config/wire name.
func ParseFilterMode(name string) (FilterMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "all":
		return FilterAll, nil
	case "live-only", "live":
		return FilterLiveOnly, nil
	}
	return FilterAll, fmt.Errorf("unknown filter mode %q", name)
}

// SortMode selects the output order.
type SortMode int

const (
	// SortRecency keeps the input order, which upstream already sorts by last use.
	SortRecency SortMode = iota
	SortNameAscending
	SortNameDescending
)

func (m SortMode) String() string {
	switch m {
	case SortNameAscending:
		return "name-asc"
	case SortNameDescending:
		return "name-desc"
	default:
		return "recency"
	}
}

// ParseSortMode resolves a config/wire name.
func ParseSortMode(name string) (SortMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "recency", "recent":
		return SortRecency, nil
	case "name-asc", "name":
		return SortNameAscending, nil
	case "name-desc":
		return SortNameDescending, nil
	}
	return SortRecency, fmt.Errorf("unknown sort mode %q", name)
}

// Projector carries the collation locale used for name sorting.
// The zero value collates with root (language-neutral) rules.
type Projector struct {
	Locale language.Tag
}

// Project filters, sorts and pads entries. It returns a new slice and never
// modifies entries. The result holds max(totalSlots, len(filtered)) items;
// it is never truncated.
func (p Projector) Project(entries []Entry, filter FilterMode, sort SortMode, totalSlots int, isLive func(identifier string) bool) []Entry {
	out := make([]Entry, 0, max(totalSlots, len(entries)))
	for _, entry := range entries {
		if filter == FilterLiveOnly && !entryIsLive(entry, isLive) {
			continue
		}
		out = append(out, entry)
	}

	switch sort {
	case SortNameAscending, SortNameDescending:
		// Collators keep scratch buffers, so each projection gets its own.
		collator := collate.New(p.Locale, collate.IgnoreCase)
		descending := sort == SortNameDescending
		slices.SortStableFunc(out, func(a, b Entry) int {
			if descending {
				return collator.CompareString(b.DisplayName, a.DisplayName)
			}
			return collator.CompareString(a.DisplayName, b.DisplayName)
		})
	}

	for len(out) < totalSlots {
		out = append(out, Entry{})
	}
	return out
}

// Project is Projector{}.Project.
func Project(entries []Entry, filter FilterMode, sort SortMode, totalSlots int, isLive func(identifier string) bool) []Entry {
	return Projector{}.Project(entries, filter, sort, totalSlots, isLive)
}

func entryIsLive(entry Entry, isLive func(string) bool) bool {
	if entry.Identifier == "" || isLive == nil {
		return false
	}
	return isLive(entry.Identifier)
}

// Paginate returns screen pageIndex of a projection split into perPage slots.
// Out-of-range pages yield nil; the last screen may be short.
func Paginate(projected []Entry, pageIndex, perPage int) []Entry {
	if perPage <= 0 || pageIndex < 0 {
		return nil
	}
	start := pageIndex * perPage
	if start >= len(projected) {
		return nil
	}
	end := min(start+perPage, len(projected))
	return slices.Clone(projected[start:end])
}

// PageCount returns how many screens of perPage slots n entries need.
func PageCount(n, perPage int) int {
	if perPage <= 0 || n <= 0 {
		return 0
	}
	return (n + perPage - 1) / perPage
}
