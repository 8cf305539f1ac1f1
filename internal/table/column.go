package table

import (
	"maps"
	"slices"

	"github.com/JonMunkholm/datatable/internal/filters"
)

// Column is a column bound to its table.
type Column[T any] struct {
	table *Table[T]
	def   ColumnDef[T]
	ID    string
}

// Def returns the column definition.
func (c *Column[T]) Def() ColumnDef[T] { return c.def }

// Meta returns the column's presentation hints.
func (c *Column[T]) Meta() ColumnMeta { return c.def.Meta }

// Label returns the meta label, falling back to the header and then the id.
func (c *Column[T]) Label() string {
	switch {
	case c.def.Meta.Label != "":
		return c.def.Meta.Label
	case c.def.Header != "":
		return c.def.Header
	}
	return c.ID
}

func resolve(column, fallback *bool, def bool) bool {
	switch {
	case column != nil:
		return *column
	case fallback != nil:
		return *fallback
	}
	return def
}

// ---------------------------------------------------------------------------
// Filtering
// ---------------------------------------------------------------------------

// CanFilter reports whether the column has an accessor and filtering enabled.
func (c *Column[T]) CanFilter() bool {
	return c.def.Accessor != nil &&
		resolve(c.def.EnableColumnFilter, c.table.opts.DefaultColumn.EnableColumnFilter, true)
}

// FilterValue returns the column's current filter value.
func (c *Column[T]) FilterValue() filters.Value {
	f, ok := filters.Find(c.table.state.ColumnFilters, c.ID)
	if !ok {
		return filters.None()
	}
	return f.Value
}

// IsFiltered reports whether the column has an active filter.
func (c *Column[T]) IsFiltered() bool {
	_, ok := filters.Find(c.table.state.ColumnFilters, c.ID)
	return ok
}

// SetFilterValue sets the column filter. Empty values remove it.
func (c *Column[T]) SetFilterValue(v filters.Value) {
	id := c.ID
	c.table.SetColumnFilters(func(old []filters.ColumnFilter) []filters.ColumnFilter {
		next := make([]filters.ColumnFilter, 0, len(old)+1)
		replaced := false
		for _, f := range old {
			if f.ID != id {
				next = append(next, f)
				continue
			}
			replaced = true
			if !v.IsEmpty() {
				next = append(next, filters.ColumnFilter{ID: id, Value: v})
			}
		}
		if !replaced && !v.IsEmpty() {
			next = append(next, filters.ColumnFilter{ID: id, Value: v})
		}
		return next
	})
}

// ---------------------------------------------------------------------------
// Sorting
// ---------------------------------------------------------------------------

// CanSort reports whether the column can be sorted.
func (c *Column[T]) CanSort() bool {
	return c.def.Accessor != nil &&
		resolve(c.def.EnableSorting, c.table.opts.DefaultColumn.EnableSorting, true)
}

// IsSorted returns the column's sort direction and whether it is sorted.
func (c *Column[T]) IsSorted() (desc bool, sorted bool) {
	for _, s := range c.table.state.Sorting {
		if s.ID == c.ID {
			return s.Desc, true
		}
	}
	return false, false
}

// SortIndex returns the column's position in the sorting state, or -1.
func (c *Column[T]) SortIndex() int {
	return slices.IndexFunc(c.table.state.Sorting, func(s ColumnSort) bool { return s.ID == c.ID })
}

// ToggleSorting cycles ascending → descending → unsorted. With multi the
// column is updated within the existing sort list instead of replacing it.
func (c *Column[T]) ToggleSorting(multi bool) {
	if !c.CanSort() {
		return
	}
	desc, sorted := c.IsSorted()
	switch {
	case !sorted:
		c.setSort(false, multi)
	case !desc:
		c.setSort(true, multi)
	default:
		c.ClearSorting()
	}
}

// SetSortDirection sorts the column in the given direction.
func (c *Column[T]) SetSortDirection(desc bool, multi bool) {
	if !c.CanSort() {
		return
	}
	c.setSort(desc, multi)
}

func (c *Column[T]) setSort(desc bool, multi bool) {
	id := c.ID
	multi = multi && c.table.opts.EnableMultiSort
	limit := c.table.opts.MaxMultiSortColCount

	c.table.SetSorting(func(old []ColumnSort) []ColumnSort {
		if !multi {
			return []ColumnSort{{ID: id, Desc: desc}}
		}
		next := slices.Clone(old)
		if i := slices.IndexFunc(next, func(s ColumnSort) bool { return s.ID == id }); i >= 0 {
			next[i].Desc = desc
			return next
		}
		next = append(next, ColumnSort{ID: id, Desc: desc})
		if limit > 0 && len(next) > limit {
			next = next[len(next)-limit:]
		}
		return next
	})
}

// ClearSorting removes the column from the sorting state.
func (c *Column[T]) ClearSorting() {
	id := c.ID
	c.table.SetSorting(func(old []ColumnSort) []ColumnSort {
		next := make([]ColumnSort, 0, len(old))
		for _, s := range old {
			if s.ID != id {
				next = append(next, s)
			}
		}
		return next
	})
}

// ---------------------------------------------------------------------------
// Visibility
// ---------------------------------------------------------------------------

// CanHide reports whether the column can be hidden.
func (c *Column[T]) CanHide() bool {
	return resolve(c.def.EnableHiding, c.table.opts.DefaultColumn.EnableHiding, true)
}

// IsVisible reports whether the column is shown. Columns are visible unless
// the visibility state says otherwise.
func (c *Column[T]) IsVisible() bool {
	v, ok := c.table.state.ColumnVisibility[c.ID]
	return !ok || v
}

// ToggleVisibility shows or hides the column.
func (c *Column[T]) ToggleVisibility(visible bool) {
	if !c.CanHide() {
		return
	}
	id := c.ID
	c.table.SetColumnVisibility(func(old map[string]bool) map[string]bool {
		next := maps.Clone(old)
		if next == nil {
			next = map[string]bool{}
		}
		next[id] = visible
		return next
	})
}

// ---------------------------------------------------------------------------
// Faceting
// ---------------------------------------------------------------------------

// FacetedUniqueValues counts the distinct values of the column over the rows
// matched by every other column's filter.
func (c *Column[T]) FacetedUniqueValues() map[string]int {
	counts := make(map[string]int)
	if c.def.Accessor == nil {
		return counts
	}
	for _, r := range c.table.facetedRows(c.ID) {
		for _, key := range valueKeys(c.def.Accessor(r.Original)) {
			counts[key]++
		}
	}
	return counts
}

// FacetedMinMaxValues returns the numeric range of the column over the
// faceted rows. ok is false when no row holds a number.
func (c *Column[T]) FacetedMinMaxValues() (lo, hi float64, ok bool) {
	if c.def.Accessor == nil {
		return 0, 0, false
	}
	for _, r := range c.table.facetedRows(c.ID) {
		f, isNum := toFloat(c.def.Accessor(r.Original))
		if !isNum {
			continue
		}
		if !ok || f < lo {
			lo = f
		}
		if !ok || f > hi {
			hi = f
		}
		ok = true
	}
	return lo, hi, ok
}
