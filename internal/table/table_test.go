package table

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/datatable/internal/filters"
	"github.com/JonMunkholm/datatable/internal/pagination"
)

type item struct {
	Code    string
	Name    string
	Status  string
	Hours   float64
	Created time.Time
}

func testItems() []item {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return []item{
		{Code: "A-1", Name: "Alpha", Status: "todo", Hours: 3, Created: base},
		{Code: "A-2", Name: "beta", Status: "done", Hours: 1, Created: base.AddDate(0, 0, 1)},
		{Code: "A-3", Name: "Gamma", Status: "todo", Hours: 8, Created: base.AddDate(0, 0, 2)},
		{Code: "A-4", Name: "delta", Status: "canceled", Hours: 5, Created: base.AddDate(0, 0, 3)},
		{Code: "A-5", Name: "Epsilon", Status: "done", Hours: 2, Created: base.AddDate(0, 0, 4)},
	}
}

func testColumns() []ColumnDef[item] {
	return []ColumnDef[item]{
		{ID: "code", Header: "Task", Accessor: func(i item) any { return i.Code }, EnableHiding: Bool(false)},
		{ID: "name", Header: "Title", Accessor: func(i item) any { return i.Name },
			Meta: ColumnMeta{Label: "Title", Variant: VariantText}},
		{ID: "status", Header: "Status", Accessor: func(i item) any { return i.Status },
			Meta: ColumnMeta{Variant: VariantMultiSelect, Options: []Option{{Label: "Todo", Value: "todo"}}}},
		{ID: "hours", Header: "Hours", Accessor: func(i item) any { return i.Hours },
			Meta: ColumnMeta{Variant: VariantRange}},
		{ID: "created", Header: "Created", Accessor: func(i item) any { return i.Created },
			Meta: ColumnMeta{Variant: VariantDateRange}},
		{ID: "actions"},
	}
}

func newTable(opts Options[item]) *Table[item] {
	if opts.Data == nil {
		opts.Data = testItems()
	}
	if opts.Columns == nil {
		opts.Columns = testColumns()
	}
	if opts.GetRowID == nil {
		opts.GetRowID = func(i item, _ int) string { return i.Code }
	}
	return New(opts)
}

func rowCodes(rows []*Row[item]) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

// ============================================================================
// Pagination
// ============================================================================

func TestTable_ClientPagination(t *testing.T) {
	tbl := newTable(Options[item]{InitialState: State{Pagination: pagination.State{PageSize: 2}}})

	assert.Equal(t, 3, tbl.PageCount())
	assert.Equal(t, []string{"A-1", "A-2"}, rowCodes(tbl.Rows()))
	assert.False(t, tbl.CanPreviousPage())
	assert.True(t, tbl.CanNextPage())

	tbl.LastPage()
	assert.Equal(t, 2, tbl.State().Pagination.PageIndex)
	assert.Equal(t, []string{"A-5"}, rowCodes(tbl.Rows()))
	assert.False(t, tbl.CanNextPage())

	tbl.NextPage()
	assert.Equal(t, 2, tbl.State().Pagination.PageIndex, "index is clamped to the last page")

	tbl.FirstPage()
	assert.Equal(t, 0, tbl.State().Pagination.PageIndex)
}

func TestTable_DefaultPageSize(t *testing.T) {
	tbl := newTable(Options[item]{})
	assert.Equal(t, pagination.DefaultPageSize, tbl.State().Pagination.PageSize)
}

func TestTable_ManualPaginationCallsBack(t *testing.T) {
	var got pagination.State
	current := pagination.State{PageIndex: 1, PageSize: 10}
	tbl := newTable(Options[item]{
		ManualPagination: true,
		PageCount:        4,
		State:            State{Pagination: current},
		OnPaginationChange: func(u Updater[pagination.State]) {
			got = u(current)
		},
	})

	tbl.NextPage()
	assert.Equal(t, pagination.State{PageIndex: 2, PageSize: 10}, got)
	assert.Equal(t, current, tbl.State().Pagination, "controlled state is not changed by the table")

	assert.Len(t, tbl.Rows(), 5, "manual pagination renders the data as is")
}

func TestTable_SetPageSizeKeepsTopRow(t *testing.T) {
	tbl := newTable(Options[item]{InitialState: State{Pagination: pagination.State{PageIndex: 2, PageSize: 2}}})

	tbl.SetPageSize(3)
	assert.Equal(t, pagination.State{PageIndex: 1, PageSize: 3}, tbl.State().Pagination)
}

func TestTable_UnknownPageCount(t *testing.T) {
	tbl := newTable(Options[item]{ManualPagination: true, PageCount: pagination.UnknownPageCount})

	assert.Equal(t, -1, tbl.PageCount())
	assert.True(t, tbl.CanNextPage())

	tbl.LastPage()
	assert.Equal(t, 0, tbl.State().Pagination.PageIndex)
}

// ============================================================================
// Sorting
// ============================================================================

func TestColumn_ToggleSortingCycle(t *testing.T) {
	tbl := newTable(Options[item]{})
	col := tbl.Column("hours")
	require.NotNil(t, col)

	col.ToggleSorting(false)
	desc, sorted := col.IsSorted()
	assert.True(t, sorted)
	assert.False(t, desc)
	assert.Equal(t, []string{"A-2", "A-5", "A-1", "A-4", "A-3"}, rowCodes(tbl.Rows()))

	col.ToggleSorting(false)
	desc, _ = col.IsSorted()
	assert.True(t, desc)
	assert.Equal(t, []string{"A-3", "A-4", "A-1", "A-5", "A-2"}, rowCodes(tbl.Rows()))

	col.ToggleSorting(false)
	_, sorted = col.IsSorted()
	assert.False(t, sorted)
	assert.Empty(t, tbl.State().Sorting)
}

func TestColumn_SortStringsCaseInsensitive(t *testing.T) {
	tbl := newTable(Options[item]{})
	tbl.Column("name").ToggleSorting(false)

	assert.Equal(t, []string{"A-1", "A-2", "A-4", "A-5", "A-3"}, rowCodes(tbl.Rows()))
}

func TestColumn_MultiSort(t *testing.T) {
	tbl := newTable(Options[item]{EnableMultiSort: true})

	tbl.Column("status").ToggleSorting(false)
	tbl.Column("hours").SetSortDirection(true, true)

	assert.Equal(t, []ColumnSort{{ID: "status"}, {ID: "hours", Desc: true}}, tbl.State().Sorting)
	assert.Equal(t, []string{"A-4", "A-5", "A-2", "A-3", "A-1"}, rowCodes(tbl.Rows()))
	assert.Equal(t, 1, tbl.Column("hours").SortIndex())
}

func TestColumn_MultiSortLimit(t *testing.T) {
	tbl := newTable(Options[item]{EnableMultiSort: true, MaxMultiSortColCount: 1})

	tbl.Column("status").ToggleSorting(true)
	tbl.Column("hours").ToggleSorting(true)

	assert.Equal(t, []ColumnSort{{ID: "hours"}}, tbl.State().Sorting)
}

func TestTable_ManualSortingKeepsOrder(t *testing.T) {
	tbl := newTable(Options[item]{ManualSorting: true})
	tbl.Column("hours").ToggleSorting(false)

	assert.Equal(t, []string{"A-1", "A-2", "A-3", "A-4", "A-5"}, rowCodes(tbl.Rows()))
}

func TestColumn_CannotSortWithoutAccessor(t *testing.T) {
	tbl := newTable(Options[item]{})
	col := tbl.Column("actions")

	assert.False(t, col.CanSort())
	col.ToggleSorting(false)
	assert.Empty(t, tbl.State().Sorting)
}

// ============================================================================
// Filtering
// ============================================================================

func TestColumn_SetFilterValue(t *testing.T) {
	tbl := newTable(Options[item]{})
	col := tbl.Column("status")

	col.SetFilterValue(filters.Strings([]string{"todo", "canceled"}))
	assert.True(t, col.IsFiltered())
	assert.True(t, tbl.IsFiltered())
	assert.Equal(t, []string{"A-1", "A-3", "A-4"}, rowCodes(tbl.Rows()))

	col.SetFilterValue(filters.Strings(nil))
	assert.False(t, col.IsFiltered(), "empty value removes the filter")
	assert.True(t, col.FilterValue().IsAbsent())
}

func TestColumn_TextFilterContains(t *testing.T) {
	tbl := newTable(Options[item]{})
	tbl.Column("name").SetFilterValue(filters.String("ET"))

	assert.Equal(t, []string{"A-2"}, rowCodes(tbl.Rows()))
}

func TestColumn_RangeFilter(t *testing.T) {
	tbl := newTable(Options[item]{})
	tbl.Column("hours").SetFilterValue(filters.Strings([]string{"2", "5"}))
	assert.Equal(t, []string{"A-1", "A-4", "A-5"}, rowCodes(tbl.Rows()))

	tbl.Column("hours").SetFilterValue(filters.Strings([]string{"", "2"}))
	assert.Equal(t, []string{"A-2", "A-5"}, rowCodes(tbl.Rows()), "missing lower bound is open")
}

func TestColumn_DateRangeFilter(t *testing.T) {
	items := testItems()
	from := items[1].Created.UnixMilli()
	to := items[2].Created.UnixMilli()

	tbl := newTable(Options[item]{})
	tbl.Column("created").SetFilterValue(filters.Strings([]string{
		itoa(from), itoa(to),
	}))

	assert.Equal(t, []string{"A-2", "A-3"}, rowCodes(tbl.Rows()))
}

func TestTable_ManualFilteringKeepsData(t *testing.T) {
	tbl := newTable(Options[item]{ManualFiltering: true})
	tbl.Column("status").SetFilterValue(filters.Strings([]string{"done"}))

	assert.True(t, tbl.IsFiltered())
	assert.Len(t, tbl.Rows(), 5)
}

func TestTable_ResetColumnFilters(t *testing.T) {
	tbl := newTable(Options[item]{})
	tbl.Column("status").SetFilterValue(filters.Strings([]string{"done"}))
	tbl.ResetColumnFilters()

	assert.False(t, tbl.IsFiltered())
}

func TestTable_FilterableColumnsHonorsDefaults(t *testing.T) {
	tbl := newTable(Options[item]{DefaultColumn: ColumnDefaults{EnableColumnFilter: Bool(false)}})
	assert.Empty(t, tbl.FilterableColumns())

	cols := testColumns()
	cols[2].EnableColumnFilter = Bool(true)
	tbl = newTable(Options[item]{
		Columns:       cols,
		DefaultColumn: ColumnDefaults{EnableColumnFilter: Bool(false)},
	})
	require.Len(t, tbl.FilterableColumns(), 1)
	assert.Equal(t, "status", tbl.FilterableColumns()[0].ID)
}

// ============================================================================
// Faceting
// ============================================================================

func TestColumn_FacetedUniqueValues(t *testing.T) {
	tbl := newTable(Options[item]{})
	tbl.Column("status").SetFilterValue(filters.Strings([]string{"todo"}))
	tbl.Column("hours").SetFilterValue(filters.Strings([]string{"2", "8"}))

	counts := tbl.Column("status").FacetedUniqueValues()
	assert.Equal(t, map[string]int{"todo": 2, "done": 1, "canceled": 1}, counts,
		"own filter is ignored when faceting")
}

func TestColumn_FacetedMinMaxValues(t *testing.T) {
	tbl := newTable(Options[item]{})

	lo, hi, ok := tbl.Column("hours").FacetedMinMaxValues()
	require.True(t, ok)
	assert.Equal(t, 1.0, lo)
	assert.Equal(t, 8.0, hi)

	_, _, ok = tbl.Column("name").FacetedMinMaxValues()
	assert.False(t, ok)
}

// ============================================================================
// Visibility
// ============================================================================

func TestColumn_ToggleVisibility(t *testing.T) {
	tbl := newTable(Options[item]{})

	assert.True(t, tbl.Column("hours").IsVisible())
	tbl.Column("hours").ToggleVisibility(false)
	assert.False(t, tbl.Column("hours").IsVisible())
	assert.Len(t, tbl.VisibleColumns(), 5)

	tbl.Column("code").ToggleVisibility(false)
	assert.True(t, tbl.Column("code").IsVisible(), "column without hiding stays visible")

	tbl.ToggleAllColumnsVisible(true)
	assert.Len(t, tbl.VisibleColumns(), 6)
}

func TestTable_VisibleColumnsPinning(t *testing.T) {
	tbl := newTable(Options[item]{InitialState: State{ColumnPinning: ColumnPinning{
		Left:  []string{"status"},
		Right: []string{"code"},
	}}})

	ids := []string{}
	for _, c := range tbl.VisibleColumns() {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"status", "name", "hours", "created", "actions", "code"}, ids)
}

// ============================================================================
// Selection
// ============================================================================

func TestRow_ToggleSelected(t *testing.T) {
	tbl := newTable(Options[item]{EnableRowSelection: true, InitialState: State{
		Pagination: pagination.State{PageSize: 2},
	}})

	rows := tbl.Rows()
	rows[0].ToggleSelected(true)
	assert.True(t, rows[0].IsSelected())
	assert.True(t, tbl.IsSomePageRowsSelected())
	assert.False(t, tbl.IsAllPageRowsSelected())

	tbl.ToggleAllPageRowsSelected(true)
	assert.True(t, tbl.IsAllPageRowsSelected())
	assert.Len(t, tbl.SelectedRows(), 2)

	tbl.NextPage()
	assert.False(t, tbl.IsSomePageRowsSelected())
	assert.Len(t, tbl.SelectedRows(), 2, "selection survives page changes")

	tbl.ResetRowSelection()
	assert.Empty(t, tbl.SelectedRows())
}

func TestRow_SelectionDisabled(t *testing.T) {
	tbl := newTable(Options[item]{})
	row := tbl.Rows()[0]

	row.ToggleSelected(true)
	tbl.ToggleAllPageRowsSelected(true)
	assert.Empty(t, tbl.SelectedRows())
}

func TestRow_Value(t *testing.T) {
	tbl := newTable(Options[item]{})
	row := tbl.Rows()[0]

	assert.Equal(t, "Alpha", row.Value("name"))
	assert.Nil(t, row.Value("actions"))
	assert.Nil(t, row.Value("missing"))
}

func TestTable_SetStateFeedsBack(t *testing.T) {
	var sorting []ColumnSort
	tbl := newTable(Options[item]{
		OnSortingChange: func(u Updater[[]ColumnSort]) { sorting = u(sorting) },
	})

	tbl.Column("hours").ToggleSorting(false)
	assert.Empty(t, tbl.State().Sorting)

	tbl.SetState(State{Sorting: sorting})
	assert.Equal(t, []ColumnSort{{ID: "hours"}}, tbl.State().Sorting)
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
