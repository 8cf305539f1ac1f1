package filters

import (
	"regexp"
	"slices"
	"sort"
	"strings"
)

// DefaultSplitPattern splits free-form strings on any run of characters that
// are not ASCII letters or digits. Date filters stored as "from,to" and
// multi-word searches both come apart on it.
var DefaultSplitPattern = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// Options control Normalize.
type Options struct {
	// SplitPattern splits string values that contain a match into arrays.
	// Nil disables splitting: strings become one-element arrays.
	SplitPattern *regexp.Regexp

	// Sort orders array items so equal selections compare equal.
	Sort bool
}

// DefaultOptions splits on DefaultSplitPattern and keeps item order.
func DefaultOptions() Options {
	return Options{SplitPattern: DefaultSplitPattern}
}

// Normalize turns a column id → raw value mapping into column filters.
//
// Absent values are dropped. Arrays keep their non-empty items. Strings that
// contain a split match are split, otherwise wrapped in a one-element array.
// Entries left without items are dropped. The result is ordered by column id.
func Normalize(values map[string]Value, opts Options) []ColumnFilter {
	ids := make([]string, 0, len(values))
	for id := range values {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]ColumnFilter, 0, len(ids))
	for _, id := range ids {
		items := normalizeValue(values[id], opts)
		if len(items) == 0 {
			continue
		}
		out = append(out, ColumnFilter{ID: id, Value: Strings(items)})
	}
	return out
}

func normalizeValue(v Value, opts Options) []string {
	var items []string
	switch v.Kind() {
	case KindArray:
		items = compact(v.arr)
	case KindString:
		if v.str == "" {
			return nil
		}
		if opts.SplitPattern != nil && opts.SplitPattern.MatchString(v.str) {
			items = compact(opts.SplitPattern.Split(v.str, -1))
		} else {
			items = []string{v.str}
		}
	default:
		return nil
	}
	if opts.Sort {
		slices.Sort(items)
	}
	return items
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if strings.TrimSpace(s) == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Diff computes the URL updates that turn prev into next.
//
// Every filter in next on a filterable column is written with its value.
// Every column filtered in prev but missing from next is written as absent,
// which removes its query parameter.
func Diff(prev, next []ColumnFilter, filterable func(id string) bool) map[string]Value {
	updates := make(map[string]Value, len(next)+len(prev))
	for _, f := range next {
		if filterable == nil || filterable(f.ID) {
			updates[f.ID] = f.Value
		}
	}
	for _, p := range prev {
		if !containsID(next, p.ID) {
			updates[p.ID] = None()
		}
	}
	return updates
}

// Equal reports whether two filter lists hold the same values per column,
// regardless of list order.
func Equal(a, b []ColumnFilter) bool {
	if len(a) != len(b) {
		return false
	}
	for _, f := range a {
		o, ok := Find(b, f.ID)
		if !ok || !f.Value.Equal(o.Value) {
			return false
		}
	}
	return true
}

// Find returns the filter for column id.
func Find(list []ColumnFilter, id string) (ColumnFilter, bool) {
	for _, f := range list {
		if f.ID == id {
			return f, true
		}
	}
	return ColumnFilter{}, false
}

func containsID(list []ColumnFilter, id string) bool {
	_, ok := Find(list, id)
	return ok
}
