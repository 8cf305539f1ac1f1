// Package datatable wires the table model to its three state owners: the
// URL (page, page size, column filters), the per-session view state
// (sorting, row selection, column visibility) and the model itself.
//
// A Coordinator is built per request. Changes made through its table are
// written back to the owners: URL changes accumulate in the query store and
// become the navigation target, view changes land in the view state that
// the caller persists.
package datatable

import (
	"maps"
	"regexp"
	"slices"

	"github.com/JonMunkholm/datatable/internal/filters"
	"github.com/JonMunkholm/datatable/internal/pagination"
	"github.com/JonMunkholm/datatable/internal/querystate"
	"github.com/JonMunkholm/datatable/internal/table"
	"github.com/JonMunkholm/datatable/internal/viewstate"
)

// URL parameter names.
const (
	PageKey    = "page"
	PerPageKey = "perPage"
)

// DefaultArraySeparator joins array filter values in the URL.
const DefaultArraySeparator = ","

// Config describes one table.
type Config[T any] struct {
	Data      []T
	Columns   []table.ColumnDef[T]
	PageCount int

	InitialState table.State
	GetRowID     func(row T, index int) string

	EnableMultiSort      bool
	MaxMultiSortColCount int

	// ArraySeparator joins option filter values. Defaults to ",".
	ArraySeparator string

	// SplitPattern splits string filter values into arrays. Nil uses
	// filters.DefaultSplitPattern; set NoSplit to keep strings whole.
	SplitPattern *regexp.Regexp
	NoSplit      bool

	// SortFilterValues orders array filter items before comparing.
	SortFilterValues bool

	// Update options of URL writes beyond the fixed ones.
	History  querystate.History
	Shallow  bool
	Scroll   bool
	Debounce int // milliseconds
	Throttle int // milliseconds
}

// Result is what a page needs to render the table.
type Result[T any] struct {
	Table        *table.Table[T]
	FilterValues map[string]filters.Value
	Shallow      bool
	DebounceMs   int
	ThrottleMs   int
}

// Coordinator owns the table of one request.
type Coordinator[T any] struct {
	cfg   Config[T]
	query *querystate.Store
	view  *viewstate.State

	page    querystate.Parser[int]
	perPage querystate.Parser[int]

	text       querystate.Parser[string]
	list       querystate.Parser[[]string]
	filterable map[string]bool // column id → stores an array

	pagination    pagination.State
	filterValues  map[string]filters.Value
	columnFilters []filters.ColumnFilter

	viewChanged bool
	table       *table.Table[T]
}

// New builds the coordinator for the URL in query and the stored view
// state. A nil view starts from cfg.InitialState.
func New[T any](query *querystate.Store, view *viewstate.State, cfg Config[T]) *Coordinator[T] {
	if query == nil {
		query = querystate.NewStore(nil)
	}
	if cfg.ArraySeparator == "" {
		cfg.ArraySeparator = DefaultArraySeparator
	}
	if cfg.History == "" {
		cfg.History = querystate.HistoryReplace
	}

	c := &Coordinator[T]{
		cfg:        cfg,
		query:      query,
		view:       initialView(cfg.InitialState, view),
		filterable: make(map[string]bool),
	}

	opts := querystate.Options{
		History:        cfg.History,
		Scroll:         cfg.Scroll,
		Shallow:        cfg.Shallow,
		ClearOnDefault: true,
	}
	defaultSize := cfg.InitialState.Pagination.PageSize
	if defaultSize < 1 {
		defaultSize = pagination.DefaultPageSize
	}
	c.page = querystate.Integer().WithDefault(1).WithOptions(opts)
	c.perPage = querystate.Integer().WithDefault(defaultSize).WithOptions(opts)
	c.text = querystate.String().WithOptions(opts)
	c.list = querystate.ArrayOf(querystate.String(), cfg.ArraySeparator).WithOptions(opts)

	for _, def := range cfg.Columns {
		if def.EnableColumnFilter != nil && *def.EnableColumnFilter {
			c.filterable[def.ID] = def.Meta.HasOptions()
		}
	}

	c.readURL()
	c.columnFilters = filters.Normalize(c.filterValues, c.normalizeOptions())

	c.table = c.buildTable()
	return c
}

func (c *Coordinator[T]) buildTable() *table.Table[T] {
	cfg := c.cfg
	return table.New(table.Options[T]{
		Data:                 cfg.Data,
		Columns:              cfg.Columns,
		DefaultColumn:        table.ColumnDefaults{EnableColumnFilter: table.Bool(false)},
		PageCount:            cfg.PageCount,
		State:                c.tableState(),
		InitialState:         cfg.InitialState,
		GetRowID:             cfg.GetRowID,
		EnableRowSelection:   true,
		EnableMultiSort:      cfg.EnableMultiSort,
		MaxMultiSortColCount: cfg.MaxMultiSortColCount,
		ManualPagination:     true,
		ManualFiltering:      true,
		ManualSorting:        false,

		OnPaginationChange:       c.onPaginationChange,
		OnSortingChange:          c.onSortingChange,
		OnColumnFiltersChange:    c.onColumnFiltersChange,
		OnColumnVisibilityChange: c.onColumnVisibilityChange,
		OnRowSelectionChange:     c.onRowSelectionChange,
	})
}

// SetData swaps the rows and page count the table shows. Handlers read
// pagination and filters first, fetch the page, then hand it over here.
func (c *Coordinator[T]) SetData(data []T, pageCount int) {
	c.cfg.Data = data
	c.cfg.PageCount = pageCount
	c.table = c.buildTable()
}

// initialView overlays the stored view state on the initial table state.
func initialView(initial table.State, stored *viewstate.State) *viewstate.State {
	v := &viewstate.State{
		Sorting:          slices.Clone(initial.Sorting),
		RowSelection:     maps.Clone(initial.RowSelection),
		ColumnVisibility: maps.Clone(initial.ColumnVisibility),
	}
	if stored != nil {
		if stored.Sorting != nil {
			v.Sorting = slices.Clone(stored.Sorting)
		}
		if stored.RowSelection != nil {
			v.RowSelection = maps.Clone(stored.RowSelection)
		}
		if stored.ColumnVisibility != nil {
			v.ColumnVisibility = maps.Clone(stored.ColumnVisibility)
		}
	}
	if v.Sorting == nil {
		v.Sorting = []table.ColumnSort{}
	}
	if v.RowSelection == nil {
		v.RowSelection = map[string]bool{}
	}
	if v.ColumnVisibility == nil {
		v.ColumnVisibility = map[string]bool{}
	}
	return v
}

func (c *Coordinator[T]) normalizeOptions() filters.Options {
	opts := filters.Options{SplitPattern: c.cfg.SplitPattern, Sort: c.cfg.SortFilterValues}
	switch {
	case c.cfg.NoSplit:
		opts.SplitPattern = nil
	case opts.SplitPattern == nil:
		opts.SplitPattern = filters.DefaultSplitPattern
	}
	return opts
}

// readURL loads pagination and filter values from the query store.
func (c *Coordinator[T]) readURL() {
	page, _ := querystate.Get(c.query, PageKey, c.page)
	perPage, _ := querystate.Get(c.query, PerPageKey, c.perPage)
	c.pagination = pagination.FromParams(pagination.Params{Page: page, PerPage: perPage}, c.perPageDefault())

	c.filterValues = make(map[string]filters.Value, len(c.filterable))
	for id, isList := range c.filterable {
		c.filterValues[id] = c.readFilter(id, isList)
	}
}

func (c *Coordinator[T]) perPageDefault() int {
	d, _ := c.perPage.Default()
	return d
}

func (c *Coordinator[T]) readFilter(id string, isList bool) filters.Value {
	if _, ok := c.query.Raw(id); !ok {
		return filters.None()
	}
	if isList {
		v, _ := querystate.Get(c.query, id, c.list)
		return filters.Strings(v)
	}
	v, _ := querystate.Get(c.query, id, c.text)
	return filters.String(v)
}

func (c *Coordinator[T]) tableState() table.State {
	return table.State{
		Pagination:       c.pagination,
		Sorting:          c.view.Sorting,
		ColumnFilters:    c.columnFilters,
		ColumnVisibility: c.view.ColumnVisibility,
		RowSelection:     c.view.RowSelection,
		ColumnPinning:    c.cfg.InitialState.ColumnPinning,
	}
}

func (c *Coordinator[T]) sync() {
	c.table.SetState(c.tableState())
}

// ---------------------------------------------------------------------------
// Change handlers
// ---------------------------------------------------------------------------

func (c *Coordinator[T]) onPaginationChange(u table.Updater[pagination.State]) {
	next := u(c.pagination)
	params := pagination.ToParams(next)
	querystate.Set(c.query, PageKey, c.page, params.Page)
	querystate.Set(c.query, PerPageKey, c.perPage, params.PerPage)
	c.readURL()
	c.sync()
}

func (c *Coordinator[T]) onColumnFiltersChange(u table.Updater[[]filters.ColumnFilter]) {
	prev := c.urlFilters()
	next := u(slices.Clone(c.columnFilters))

	updates := filters.Diff(prev, next, func(id string) bool {
		_, ok := c.filterable[id]
		return ok
	})

	querystate.Set(c.query, PageKey, c.page, 1)
	ids := slices.Sorted(maps.Keys(updates))
	for _, id := range ids {
		if c.unchanged(prev, id, updates[id]) {
			continue
		}
		c.writeFilter(id, updates[id])
	}

	c.columnFilters = next
	c.readURL()
	c.sync()
}

// urlFilters returns the normalized filters plus the raw value of every
// filterable parameter in the URL that normalizes to nothing, so a diff
// against them also clears parameters like "title=--".
func (c *Coordinator[T]) urlFilters() []filters.ColumnFilter {
	out := slices.Clone(c.columnFilters)
	for _, id := range slices.Sorted(maps.Keys(c.filterValues)) {
		v := c.filterValues[id]
		if v.IsAbsent() {
			continue
		}
		if _, ok := filters.Find(out, id); !ok {
			out = append(out, filters.ColumnFilter{ID: id, Value: v})
		}
	}
	return out
}

// unchanged reports whether the filter for id already holds v and its
// parameter is in the URL. Such filters keep their raw form: rewriting the
// normalized value would turn "fix login" into "fix,login".
func (c *Coordinator[T]) unchanged(prev []filters.ColumnFilter, id string, v filters.Value) bool {
	if v.IsAbsent() {
		return false
	}
	old, ok := filters.Find(prev, id)
	if !ok || !old.Value.Equal(v) {
		return false
	}
	_, inURL := c.query.Raw(id)
	return inURL
}

// writeFilter writes v under id with the parser the column uses. Absent
// values remove the parameter.
func (c *Coordinator[T]) writeFilter(id string, v filters.Value) {
	if v.IsAbsent() {
		c.query.Delete(id, c.text.Options())
		return
	}
	if c.filterable[id] {
		querystate.Set(c.query, id, c.list, v.List())
		return
	}
	querystate.Set(c.query, id, c.text, v.Text())
}

func (c *Coordinator[T]) onSortingChange(u table.Updater[[]table.ColumnSort]) {
	c.view.Sorting = u(slices.Clone(c.view.Sorting))
	if c.view.Sorting == nil {
		c.view.Sorting = []table.ColumnSort{}
	}
	c.viewChanged = true
	c.sync()
}

func (c *Coordinator[T]) onRowSelectionChange(u table.Updater[map[string]bool]) {
	c.view.RowSelection = u(maps.Clone(c.view.RowSelection))
	if c.view.RowSelection == nil {
		c.view.RowSelection = map[string]bool{}
	}
	c.viewChanged = true
	c.sync()
}

func (c *Coordinator[T]) onColumnVisibilityChange(u table.Updater[map[string]bool]) {
	c.view.ColumnVisibility = u(maps.Clone(c.view.ColumnVisibility))
	if c.view.ColumnVisibility == nil {
		c.view.ColumnVisibility = map[string]bool{}
	}
	c.viewChanged = true
	c.sync()
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Table returns the coordinated table.
func (c *Coordinator[T]) Table() *table.Table[T] { return c.table }

// Result returns the table together with the raw filter values and the
// update options.
func (c *Coordinator[T]) Result() Result[T] {
	return Result[T]{
		Table:        c.table,
		FilterValues: c.FilterValues(),
		Shallow:      c.cfg.Shallow,
		DebounceMs:   c.cfg.Debounce,
		ThrottleMs:   c.cfg.Throttle,
	}
}

// FilterValues returns the raw filter values read from the URL, keyed by
// filterable column id. Columns without a parameter map to an absent value.
func (c *Coordinator[T]) FilterValues() map[string]filters.Value {
	return maps.Clone(c.filterValues)
}

// ActiveFilterValues is FilterValues restricted to columns with a
// normalized filter. A parameter whose value normalizes to nothing maps to
// an absent value, so the data query agrees with IsFiltered.
func (c *Coordinator[T]) ActiveFilterValues() map[string]filters.Value {
	out := make(map[string]filters.Value, len(c.filterValues))
	for id, v := range c.filterValues {
		if _, ok := filters.Find(c.columnFilters, id); !ok {
			v = filters.None()
		}
		out[id] = v
	}
	return out
}

// ColumnFilters returns the normalized column filters.
func (c *Coordinator[T]) ColumnFilters() []filters.ColumnFilter {
	return slices.Clone(c.columnFilters)
}

// Pagination returns the pagination state read from the URL.
func (c *Coordinator[T]) Pagination() pagination.State { return c.pagination }

// IsFilterable reports whether the column with id syncs its filter to the URL.
func (c *Coordinator[T]) IsFilterable(id string) bool {
	_, ok := c.filterable[id]
	return ok
}

// Query returns the query store holding the URL state.
func (c *Coordinator[T]) Query() *querystate.Store { return c.query }

// View returns the view state. Callers persist it when ViewChanged.
func (c *Coordinator[T]) View() *viewstate.State { return c.view }

// ViewChanged reports whether the view state was modified.
func (c *Coordinator[T]) ViewChanged() bool { return c.viewChanged }

// URLChanged reports whether the URL state was modified.
func (c *Coordinator[T]) URLChanged() bool { return c.query.Changed() }

// URL returns the current URL in path?query form.
func (c *Coordinator[T]) URL() string { return c.query.String() }

// Preview applies fn to a copy of the table and returns the URL the change
// navigates to. The coordinator itself is left untouched.
func (c *Coordinator[T]) Preview(fn func(t *table.Table[T])) string {
	p := New(c.query.Clone(), c.view.Clone(), c.cfg)
	fn(p.table)
	return p.URL()
}
