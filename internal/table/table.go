package table

import (
	"maps"
	"slices"
	"strconv"

	"github.com/JonMunkholm/datatable/internal/filters"
	"github.com/JonMunkholm/datatable/internal/pagination"
)

// Table is a table model over rows of type T.
// It is not safe for concurrent use; build one per request.
type Table[T any] struct {
	opts    Options[T]
	columns []*Column[T]
	state   State
}

// New builds a table from opts.
func New[T any](opts Options[T]) *Table[T] {
	t := &Table[T]{opts: opts}
	t.columns = make([]*Column[T], len(opts.Columns))
	for i, def := range opts.Columns {
		t.columns[i] = &Column[T]{table: t, def: def, ID: def.ID}
	}
	t.state = mergeState(opts.InitialState, opts.State)
	return t
}

// mergeState overlays the set parts of controlled on initial.
func mergeState(initial, controlled State) State {
	s := initial
	if s.Pagination.PageSize < 1 {
		s.Pagination.PageSize = pagination.DefaultPageSize
	}
	if controlled.Pagination.PageSize > 0 {
		s.Pagination = controlled.Pagination
	}
	if controlled.Sorting != nil {
		s.Sorting = controlled.Sorting
	}
	if controlled.ColumnFilters != nil {
		s.ColumnFilters = controlled.ColumnFilters
	}
	if controlled.ColumnVisibility != nil {
		s.ColumnVisibility = controlled.ColumnVisibility
	}
	if controlled.RowSelection != nil {
		s.RowSelection = controlled.RowSelection
	}
	if controlled.ColumnPinning.Left != nil || controlled.ColumnPinning.Right != nil {
		s.ColumnPinning = controlled.ColumnPinning
	}
	return s
}

// State returns a copy of the current state.
func (t *Table[T]) State() State {
	s := t.state
	s.Sorting = slices.Clone(s.Sorting)
	s.ColumnFilters = slices.Clone(s.ColumnFilters)
	s.ColumnVisibility = maps.Clone(s.ColumnVisibility)
	s.RowSelection = maps.Clone(s.RowSelection)
	return s
}

// SetState replaces the controlled state. Owners call it after applying an
// updater they received from a callback.
func (t *Table[T]) SetState(s State) {
	t.state = mergeState(t.opts.InitialState, s)
}

// Data returns the rows the table was built with.
func (t *Table[T]) Data() []T { return t.opts.Data }

// Columns returns all columns in definition order.
func (t *Table[T]) Columns() []*Column[T] { return t.columns }

// Column returns the column with id, or nil.
func (t *Table[T]) Column(id string) *Column[T] {
	for _, c := range t.columns {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// FilterableColumns returns the columns that accept a filter.
func (t *Table[T]) FilterableColumns() []*Column[T] {
	var out []*Column[T]
	for _, c := range t.columns {
		if c.CanFilter() {
			out = append(out, c)
		}
	}
	return out
}

// VisibleColumns returns visible columns: left-pinned first, then unpinned,
// then right-pinned.
func (t *Table[T]) VisibleColumns() []*Column[T] {
	var left, center, right []*Column[T]
	for _, c := range t.columns {
		if !c.IsVisible() {
			continue
		}
		switch {
		case slices.Contains(t.state.ColumnPinning.Left, c.ID):
			left = append(left, c)
		case slices.Contains(t.state.ColumnPinning.Right, c.ID):
			right = append(right, c)
		default:
			center = append(center, c)
		}
	}
	return append(append(left, center...), right...)
}

// HideableColumns returns the columns that can be toggled in view options.
func (t *Table[T]) HideableColumns() []*Column[T] {
	var out []*Column[T]
	for _, c := range t.columns {
		if c.CanHide() {
			out = append(out, c)
		}
	}
	return out
}

func (t *Table[T]) rowID(row T, index int) string {
	if t.opts.GetRowID != nil {
		return t.opts.GetRowID(row, index)
	}
	return strconv.Itoa(index)
}

// ---------------------------------------------------------------------------
// Pagination
// ---------------------------------------------------------------------------

// SetPagination hands u to OnPaginationChange.
func (t *Table[T]) SetPagination(u Updater[pagination.State]) {
	if t.opts.OnPaginationChange != nil {
		t.opts.OnPaginationChange(u)
		return
	}
	t.state.Pagination = u(t.state.Pagination)
}

// SetPageIndex moves to index, clamped to the known page range.
func (t *Table[T]) SetPageIndex(index int) {
	pageCount := t.PageCount()
	t.SetPagination(func(old pagination.State) pagination.State {
		old.PageIndex = index
		return old.Clamp(pageCount)
	})
}

// SetPageSize changes the page size, keeping the first row of the current
// page on the resulting page.
func (t *Table[T]) SetPageSize(size int) {
	t.SetPagination(func(old pagination.State) pagination.State {
		if size < 1 {
			size = 1
		}
		top := old.PageSize * old.PageIndex
		return pagination.State{PageIndex: top / size, PageSize: size}
	})
}

// NextPage advances one page.
func (t *Table[T]) NextPage() { t.SetPageIndex(t.state.Pagination.PageIndex + 1) }

// PreviousPage goes back one page.
func (t *Table[T]) PreviousPage() { t.SetPageIndex(t.state.Pagination.PageIndex - 1) }

// FirstPage goes to the first page.
func (t *Table[T]) FirstPage() { t.SetPageIndex(0) }

// LastPage goes to the last page when the page count is known.
func (t *Table[T]) LastPage() {
	if n := t.PageCount(); n > 0 {
		t.SetPageIndex(n - 1)
	}
}

// PageCount returns the number of pages, or -1 when unknown.
func (t *Table[T]) PageCount() int {
	if t.opts.ManualPagination {
		return t.opts.PageCount
	}
	size := t.state.Pagination.PageSize
	if size < 1 {
		size = pagination.DefaultPageSize
	}
	n := len(t.PrePaginationRows())
	return (n + size - 1) / size
}

// CanPreviousPage reports whether a previous page exists.
func (t *Table[T]) CanPreviousPage() bool { return t.state.Pagination.PageIndex > 0 }

// CanNextPage reports whether a next page exists. Unknown page counts always
// allow moving forward.
func (t *Table[T]) CanNextPage() bool {
	n := t.PageCount()
	switch {
	case n == pagination.UnknownPageCount:
		return true
	case n <= 0:
		return false
	}
	return t.state.Pagination.PageIndex < n-1
}

// ---------------------------------------------------------------------------
// Sorting
// ---------------------------------------------------------------------------

// SetSorting hands u to OnSortingChange.
func (t *Table[T]) SetSorting(u Updater[[]ColumnSort]) {
	if t.opts.OnSortingChange != nil {
		t.opts.OnSortingChange(u)
		return
	}
	t.state.Sorting = u(t.state.Sorting)
}

// ResetSorting clears all sorting.
func (t *Table[T]) ResetSorting() {
	t.SetSorting(Replace([]ColumnSort{}))
}

// ---------------------------------------------------------------------------
// Column filters
// ---------------------------------------------------------------------------

// SetColumnFilters hands u to OnColumnFiltersChange.
func (t *Table[T]) SetColumnFilters(u Updater[[]filters.ColumnFilter]) {
	if t.opts.OnColumnFiltersChange != nil {
		t.opts.OnColumnFiltersChange(u)
		return
	}
	t.state.ColumnFilters = u(t.state.ColumnFilters)
}

// ResetColumnFilters removes every column filter.
func (t *Table[T]) ResetColumnFilters() {
	t.SetColumnFilters(Replace([]filters.ColumnFilter{}))
}

// IsFiltered reports whether any column filter is active.
func (t *Table[T]) IsFiltered() bool { return len(t.state.ColumnFilters) > 0 }

// ---------------------------------------------------------------------------
// Column visibility
// ---------------------------------------------------------------------------

// SetColumnVisibility hands u to OnColumnVisibilityChange.
func (t *Table[T]) SetColumnVisibility(u Updater[map[string]bool]) {
	if t.opts.OnColumnVisibilityChange != nil {
		t.opts.OnColumnVisibilityChange(u)
		return
	}
	t.state.ColumnVisibility = u(t.state.ColumnVisibility)
}

// ToggleAllColumnsVisible shows or hides every hideable column.
func (t *Table[T]) ToggleAllColumnsVisible(visible bool) {
	t.SetColumnVisibility(func(old map[string]bool) map[string]bool {
		next := maps.Clone(old)
		if next == nil {
			next = map[string]bool{}
		}
		for _, c := range t.columns {
			if c.CanHide() {
				next[c.ID] = visible
			}
		}
		return next
	})
}

// ---------------------------------------------------------------------------
// Row selection
// ---------------------------------------------------------------------------

// SetRowSelection hands u to OnRowSelectionChange.
func (t *Table[T]) SetRowSelection(u Updater[map[string]bool]) {
	if t.opts.OnRowSelectionChange != nil {
		t.opts.OnRowSelectionChange(u)
		return
	}
	t.state.RowSelection = u(t.state.RowSelection)
}

// ResetRowSelection deselects every row.
func (t *Table[T]) ResetRowSelection() {
	t.SetRowSelection(Replace(map[string]bool{}))
}

// ToggleAllPageRowsSelected selects or deselects the rows on the current page.
func (t *Table[T]) ToggleAllPageRowsSelected(selected bool) {
	if !t.opts.EnableRowSelection {
		return
	}
	rows := t.Rows()
	t.SetRowSelection(func(old map[string]bool) map[string]bool {
		next := maps.Clone(old)
		if next == nil {
			next = map[string]bool{}
		}
		for _, r := range rows {
			if selected {
				next[r.ID] = true
			} else {
				delete(next, r.ID)
			}
		}
		return next
	})
}

// IsAllPageRowsSelected reports whether the current page has rows and all
// of them are selected.
func (t *Table[T]) IsAllPageRowsSelected() bool {
	rows := t.Rows()
	if len(rows) == 0 {
		return false
	}
	for _, r := range rows {
		if !r.IsSelected() {
			return false
		}
	}
	return true
}

// IsSomePageRowsSelected reports whether some but not all page rows are selected.
func (t *Table[T]) IsSomePageRowsSelected() bool {
	some := false
	for _, r := range t.Rows() {
		if r.IsSelected() {
			some = true
			break
		}
	}
	return some && !t.IsAllPageRowsSelected()
}

// SelectedRows returns the selected rows among the table data.
func (t *Table[T]) SelectedRows() []*Row[T] {
	var out []*Row[T]
	for _, r := range t.CoreRows() {
		if r.IsSelected() {
			out = append(out, r)
		}
	}
	return out
}
