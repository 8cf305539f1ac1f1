package table

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/datatable/internal/filters"
)

// CoreRows returns one row per data item, in data order.
func (t *Table[T]) CoreRows() []*Row[T] {
	rows := make([]*Row[T], len(t.opts.Data))
	for i, item := range t.opts.Data {
		rows[i] = &Row[T]{table: t, ID: t.rowID(item, i), Index: i, Original: item}
	}
	return rows
}

// FilteredRows applies the column filters. With manual filtering the data
// is assumed to be filtered already.
func (t *Table[T]) FilteredRows() []*Row[T] {
	return t.filterRows(t.CoreRows(), "")
}

func (t *Table[T]) filterRows(rows []*Row[T], skipID string) []*Row[T] {
	if t.opts.ManualFiltering {
		return rows
	}
	var active []*Column[T]
	var values []filters.Value
	for _, f := range t.state.ColumnFilters {
		if f.ID == skipID || f.Value.IsEmpty() {
			continue
		}
		c := t.Column(f.ID)
		if c == nil || c.def.Accessor == nil {
			continue
		}
		active = append(active, c)
		values = append(values, f.Value)
	}
	if len(active) == 0 {
		return rows
	}

	out := make([]*Row[T], 0, len(rows))
	for _, r := range rows {
		keep := true
		for i, c := range active {
			if !c.matches(r.Original, values[i]) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, r)
		}
	}
	return out
}

// facetedRows filters by every column except id, so a facet counts what
// the user could still select.
func (t *Table[T]) facetedRows(id string) []*Row[T] {
	return t.filterRows(t.CoreRows(), id)
}

// SortedRows returns the filtered rows in sorting order. With manual sorting
// the data order is kept.
func (t *Table[T]) SortedRows() []*Row[T] {
	rows := t.FilteredRows()
	if t.opts.ManualSorting || len(t.state.Sorting) == 0 {
		return rows
	}

	type key struct {
		col  *Column[T]
		desc bool
	}
	var keys []key
	for _, s := range t.state.Sorting {
		if c := t.Column(s.ID); c != nil && c.def.Accessor != nil {
			keys = append(keys, key{col: c, desc: s.Desc})
		}
	}
	if len(keys) == 0 {
		return rows
	}

	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b *Row[T]) int {
		for _, k := range keys {
			n := compareAny(k.col.def.Accessor(a.Original), k.col.def.Accessor(b.Original))
			if n == 0 {
				continue
			}
			if k.desc {
				return -n
			}
			return n
		}
		return 0
	})
	return sorted
}

// PrePaginationRows returns the rows before pagination is applied.
func (t *Table[T]) PrePaginationRows() []*Row[T] { return t.SortedRows() }

// PaginatedRows returns the rows of the current page. With manual
// pagination the data already is the page.
func (t *Table[T]) PaginatedRows() []*Row[T] {
	rows := t.PrePaginationRows()
	if t.opts.ManualPagination {
		return rows
	}
	start := t.state.Pagination.Offset()
	if start >= len(rows) {
		return nil
	}
	end := min(start+t.state.Pagination.PageSize, len(rows))
	return rows[start:end]
}

// Rows returns the final row model: the rows to render.
func (t *Table[T]) Rows() []*Row[T] { return t.PaginatedRows() }

// matches applies the column's filter function, or the default one for its
// variant.
func (c *Column[T]) matches(row T, v filters.Value) bool {
	if c.def.FilterFn != nil {
		return c.def.FilterFn(row, v)
	}
	cell := c.def.Accessor(row)
	switch c.def.Meta.Variant {
	case VariantRange, VariantNumber, VariantDate, VariantDateRange:
		return inRange(cell, v.List())
	}
	if v.Kind() == filters.KindString {
		return strings.Contains(strings.ToLower(fmt.Sprint(cell)), strings.ToLower(v.Text()))
	}
	keys := valueKeys(cell)
	for _, want := range v.List() {
		for _, k := range keys {
			if strings.EqualFold(k, want) {
				return true
			}
		}
	}
	return false
}

// inRange reports whether cell lies in [bounds[0], bounds[1]]. Missing or
// unparsable bounds are open. A single bound matches an exact value.
func inRange(cell any, bounds []string) bool {
	f, ok := toFloat(cell)
	if !ok {
		return false
	}
	parse := func(i int) (float64, bool) {
		if i >= len(bounds) {
			return 0, false
		}
		b, err := strconv.ParseFloat(strings.TrimSpace(bounds[i]), 64)
		return b, err == nil
	}
	lo, hasLo := parse(0)
	if len(bounds) == 1 {
		return hasLo && f == lo
	}
	hi, hasHi := parse(1)
	if hasLo && f < lo {
		return false
	}
	if hasHi && f > hi {
		return false
	}
	return true
}

// valueKeys returns the string forms of a cell value used for faceting.
func valueKeys(v any) []string {
	switch x := v.(type) {
	case nil:
		return nil
	case []string:
		return x
	case string:
		return []string{x}
	case time.Time:
		return []string{strconv.FormatInt(x.UnixMilli(), 10)}
	case fmt.Stringer:
		return []string{x.String()}
	}
	return []string{fmt.Sprint(v)}
}

// toFloat converts numeric and time cells to float64. Times become
// milliseconds since the epoch, matching date filter values.
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case time.Time:
		return float64(x.UnixMilli()), true
	case *time.Time:
		if x == nil {
			return 0, false
		}
		return float64(x.UnixMilli()), true
	}
	return 0, false
}

// compareAny orders two cell values. Nil sorts first; numbers and times
// compare numerically, booleans false before true, everything else by its
// lower-cased string form.
func compareAny(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return cmp.Compare(fa, fb)
		}
	}
	if ba, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ba == bb:
				return 0
			case !ba:
				return -1
			}
			return 1
		}
	}
	return strings.Compare(strings.ToLower(fmt.Sprint(a)), strings.ToLower(fmt.Sprint(b)))
}
