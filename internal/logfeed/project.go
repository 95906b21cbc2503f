package logfeed

import (
	"fmt"
	"strings"
)

// Filter selects which entries a view shows: FilterAll or a single Level.
type Filter string

// FilterAll shows every entry.
const FilterAll Filter = "all"

// FilterFor returns the filter that shows only lvl.
func FilterFor(lvl Level) Filter {
	return Filter(lvl)
}

// ParseFilter accepts "all" (or an empty string) or any level name.
func ParseFilter(value string) (Filter, error) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if trimmed == "" || trimmed == string(FilterAll) {
		return FilterAll, nil
	}
	lvl, err := ParseLevel(trimmed)
	if err != nil {
		return FilterAll, fmt.Errorf("parse filter: %w", err)
	}
	return FilterFor(lvl), nil
}

// Filters lists every filter in cycle order.
func Filters() []Filter {
	out := make([]Filter, 0, len(Levels)+1)
	out = append(out, FilterAll)
	for _, lvl := range Levels {
		out = append(out, FilterFor(lvl))
	}
	return out
}

// Next returns the filter after f in cycle order.
func (f Filter) Next() Filter {
	return f.step(1)
}

// Prev returns the filter before f in cycle order.
func (f Filter) Prev() Filter {
	return f.step(-1)
}

func (f Filter) step(delta int) Filter {
	all := Filters()
	for i, candidate := range all {
		if candidate == f {
			return all[(i+delta+len(all))%len(all)]
		}
	}
	return FilterAll
}

// Label returns the display name used in the filter selector.
func (f Filter) Label() string {
	switch f {
	case FilterAll, "":
		return "All logs"
	default:
		s := string(f)
		return strings.ToUpper(s[:1]) + s[1:]
	}
}

// Matches reports whether e is visible under f.
func (f Filter) Matches(e Entry) bool {
	if f == FilterAll || f == "" {
		return true
	}
	return string(e.Level) == string(f)
}

// Project returns the subsequence of entries visible under f, in original order.
// The input is never modified.
func Project(entries []Entry, f Filter) []Entry {
	if f == FilterAll || f == "" {
		return cloneEntries(entries)
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// LatestIndex returns the index of the newest projected entry, or -1.
// It must be computed on the projected slice, not on the store.
func LatestIndex(projected []Entry) int {
	return len(projected) - 1
}

// Counts tallies entries per level.
func Counts(entries []Entry) map[Level]int {
	counts := make(map[Level]int, len(Levels))
	for _, e := range entries {
		counts[e.Level]++
	}
	return counts
}
