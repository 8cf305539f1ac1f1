package ui

import (
	"bytes"
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/datatable/internal/datatable"
	"github.com/JonMunkholm/datatable/internal/filters"
	"github.com/JonMunkholm/datatable/internal/querystate"
	"github.com/JonMunkholm/datatable/internal/table"
)

type item struct {
	ID      string
	Title   string
	Status  string
	Hours   float64
	Created time.Time
}

var now = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func items() []item {
	return []item{
		{ID: "a", Title: "Fix <script> tag", Status: "todo", Hours: 1.5, Created: now},
		{ID: "b", Title: "Ship it", Status: "done", Hours: 4, Created: now.AddDate(0, 0, -3)},
	}
}

func columns(statusVariant table.Variant) []table.ColumnDef[item] {
	on, off := table.Bool(true), table.Bool(false)
	return []table.ColumnDef[item]{
		{ID: SelectColumnID, EnableSorting: off, EnableHiding: off},
		{ID: "title", Header: "Title", Accessor: func(i item) any { return i.Title }, EnableColumnFilter: on,
			Meta: table.ColumnMeta{Label: "Title", Variant: table.VariantText}},
		{ID: "status", Header: "Status", Accessor: func(i item) any { return i.Status }, EnableColumnFilter: on,
			Meta: table.ColumnMeta{Label: "Status", Variant: statusVariant, Options: []table.Option{
				{Label: "Todo", Value: "todo", Count: 3},
				{Label: "Done", Value: "done"},
				{Label: "Canceled", Value: "canceled", Count: 1},
			}}},
		{ID: "hours", Header: "Hours", Accessor: func(i item) any { return i.Hours }, EnableColumnFilter: on,
			Meta: table.ColumnMeta{Label: "Hours", Variant: table.VariantRange, Unit: "hr"}},
		{ID: "created", Header: "Created", Accessor: func(i item) any { return i.Created }, EnableColumnFilter: on,
			Meta: table.ColumnMeta{Label: "Created", Variant: table.VariantDateRange}},
		{ID: ActionsColumnID, EnableSorting: off, EnableHiding: off},
	}
}

func coordinator(t *testing.T, raw string, statusVariant table.Variant) *datatable.Coordinator[item] {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return datatable.New(querystate.NewStore(u), nil, datatable.Config[item]{
		Data:      items(),
		Columns:   columns(statusVariant),
		PageCount: 3,
		GetRowID:  func(i item, _ int) string { return i.ID },
		Debounce:  300,
		Throttle:  50,
	})
}

func testOptions() Options {
	return Options{ViewAction: "/tasks/view", PageSizes: []int{10, 20}, Now: now}
}

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

// ============================================================================
// Faceted filter
// ============================================================================

func TestBuildFacetedFilter_MultiSelect(t *testing.T) {
	c := coordinator(t, "/tasks?status=todo&page=2", table.VariantMultiSelect)
	p := BuildFacetedFilter(c, c.Table().Column("status"))

	assert.True(t, p.Multiple)
	assert.Equal(t, []string{"todo"}, p.Selected)
	require.Len(t, p.Options, 3)

	assert.True(t, p.Options[0].Selected)
	assert.Equal(t, "/tasks", p.Options[0].ToggleURL, "deselecting the last option clears the filter")
	assert.Equal(t, "/tasks?status=todo%2Cdone", p.Options[1].ToggleURL)
	assert.Equal(t, 3, p.Options[0].Count)
	assert.Equal(t, "/tasks", p.ClearURL)
	assert.Equal(t, []string{"Todo"}, p.Badge())

	assert.False(t, c.URLChanged(), "building links leaves the live state alone")
}

func TestBuildFacetedFilter_Select(t *testing.T) {
	c := coordinator(t, "/tasks?status=todo", table.VariantSelect)
	p := BuildFacetedFilter(c, c.Table().Column("status"))

	assert.False(t, p.Multiple)
	assert.Equal(t, "/tasks?status=done", p.Options[1].ToggleURL, "single select replaces the value")
	assert.Equal(t, "/tasks", p.Options[0].ToggleURL)
}

func TestBuildFacetedFilter_Empty(t *testing.T) {
	c := coordinator(t, "/tasks", table.VariantMultiSelect)
	p := BuildFacetedFilter(c, c.Table().Column("status"))

	assert.Empty(t, p.Selected)
	assert.Empty(t, p.ClearURL)
	assert.Empty(t, p.Badge())
}

func TestFacetedFilterProps_Badge(t *testing.T) {
	p := FacetedFilterProps{Selected: []string{"a", "b", "c"}}
	assert.Equal(t, []string{"3 selected"}, p.Badge())
}

func TestToggled(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, toggled([]string{"a"}, "b", true))
	assert.Equal(t, []string{"b"}, toggled([]string{"a", "b"}, "a", true))
	assert.Empty(t, toggled([]string{"a"}, "a", true))
	assert.Equal(t, []string{"b"}, toggled([]string{"a"}, "b", false))
	assert.Nil(t, toggled([]string{"a"}, "a", false))
}

// ============================================================================
// Date filter
// ============================================================================

func TestBuildDateFilter_Range(t *testing.T) {
	c := coordinator(t, "/tasks?created=1709251200000,1709596799999&page=2&title=x", table.VariantMultiSelect)
	p := BuildDateFilter(c, c.Table().Column("created"), testOptions())

	assert.True(t, p.Multiple)
	require.True(t, p.HasValue())
	assert.Equal(t, "Mar 1, 2024 - Mar 4, 2024", p.Display)
	assert.Equal(t, "/tasks", p.Action)
	assert.Equal(t, []Param{{Name: "title", Value: "x"}}, p.Hidden)
	assert.Equal(t, "/tasks?title=x", p.ClearURL)

	require.Len(t, p.Presets, 3)
	assert.Equal(t, Link{Label: "Today", URL: "/tasks?created=1710028800000%2C1710115199999&title=x"}, p.Presets[0])
	assert.Equal(t, "/tasks?created=1709510400000%2C1710115199999&title=x", p.Presets[1].URL)
}

func TestBuildDateFilter_OpenRange(t *testing.T) {
	c := coordinator(t, "/tasks?created=,1709596799999", table.VariantMultiSelect)
	p := BuildDateFilter(c, c.Table().Column("created"), testOptions())

	assert.Nil(t, p.From)
	require.NotNil(t, p.To)
	assert.Equal(t, "Mar 4, 2024", p.Display)
}

func TestDayRange(t *testing.T) {
	v := DayRange(now, now)
	assert.Equal(t, filters.Strings([]string{"1710028800000", "1710115199999"}), v)
}

// ============================================================================
// Text filter & inputs
// ============================================================================

func TestBuildTextFilter(t *testing.T) {
	c := coordinator(t, "/tasks?title=fix%20login&status=todo&page=3", table.VariantMultiSelect)
	p := BuildTextFilter(c, c.Table().Column("title"))

	assert.Equal(t, "set.title", p.Name)
	assert.Equal(t, "fix login", p.Value, "raw value, not the split one")
	assert.Equal(t, "Title", p.Placeholder)
	assert.Equal(t, "text", p.InputType)
	assert.Equal(t, []Param{{Name: "status", Value: "todo"}}, p.Hidden)
	assert.Equal(t, 300, p.DebounceMs)
}

func TestApplyInputs_Text(t *testing.T) {
	c := coordinator(t, "/tasks?set.title=%20deploy%20&page=3&status=todo", table.VariantMultiSelect)

	changed, err := ApplyInputs(c, time.UTC)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "/tasks?status=todo&title=deploy", c.URL())
}

func TestApplyInputs_EmptyTextClears(t *testing.T) {
	c := coordinator(t, "/tasks?set.title=&title=old", table.VariantMultiSelect)

	changed, err := ApplyInputs(c, time.UTC)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "/tasks", c.URL())
}

func TestApplyInputs_DateRange(t *testing.T) {
	c := coordinator(t, "/tasks?set.created.from=2024-03-01&set.created.to=", table.VariantMultiSelect)

	_, err := ApplyInputs(c, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "1709251200000,", c.Query().Values().Get("created"))
	assert.NotContains(t, c.Query().Values(), "set.created.from")
}

func TestApplyInputs_InvalidDate(t *testing.T) {
	c := coordinator(t, "/tasks?set.created.from=03/01/2024", table.VariantMultiSelect)

	_, err := ApplyInputs(c, time.UTC)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter value for created")
}

func TestApplyInputs_None(t *testing.T) {
	c := coordinator(t, "/tasks?title=x", table.VariantMultiSelect)

	changed, err := ApplyInputs(c, time.UTC)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.False(t, c.URLChanged())
}

// ============================================================================
// Pagination & view options
// ============================================================================

func TestBuildPagination(t *testing.T) {
	c := coordinator(t, "/tasks", table.VariantMultiSelect)
	p := BuildPagination(c, testOptions())

	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 3, p.PageCount)
	assert.Empty(t, p.First)
	assert.Empty(t, p.Prev)
	assert.Equal(t, "/tasks?page=2", p.Next)
	assert.Equal(t, "/tasks?page=3", p.Last)
	require.Len(t, p.PageSizes, 2)
	assert.True(t, p.PageSizes[0].Selected)
	assert.Equal(t, "/tasks?perPage=20", p.PageSizes[1].URL)
}

func TestBuildPagination_LastPage(t *testing.T) {
	c := coordinator(t, "/tasks?page=3&perPage=25", table.VariantMultiSelect)
	p := BuildPagination(c, testOptions())

	assert.Equal(t, "/tasks?page=2&perPage=25", p.Prev)
	assert.Equal(t, "/tasks?perPage=25", p.First)
	assert.Empty(t, p.Next)
	assert.Len(t, p.PageSizes, 3, "current size is offered even when not configured")
}

func TestBuildViewOptions(t *testing.T) {
	c := coordinator(t, "/tasks?page=2", table.VariantMultiSelect)
	c.Table().Column("hours").ToggleVisibility(false)

	p := BuildViewOptions(c, testOptions())
	assert.Equal(t, "/tasks/view", p.Action)
	assert.Equal(t, "/tasks?page=2", p.ReturnURL)
	assert.Equal(t, []ColumnToggle{
		{ID: "title", Label: "Title", Visible: true},
		{ID: "status", Label: "Status", Visible: true},
		{ID: "hours", Label: "Hours", Visible: false},
		{ID: "created", Label: "Created", Visible: true},
	}, p.Columns)
}

// ============================================================================
// Rendering
// ============================================================================

func TestFormatCell(t *testing.T) {
	meta := table.ColumnMeta{Options: []table.Option{{Label: "In Progress", Value: "in-progress"}}}

	assert.Equal(t, "", FormatCell(meta, nil))
	assert.Equal(t, "In Progress", FormatCell(meta, "in-progress"))
	assert.Equal(t, "other", FormatCell(meta, "other"))
	assert.Equal(t, "1.5 hr", FormatCell(table.ColumnMeta{Unit: "hr"}, 1.5))
	assert.Equal(t, "Mar 10, 2024", FormatCell(meta, now))
	assert.Equal(t, "Yes", FormatCell(meta, true))
	assert.Equal(t, "7", FormatCell(meta, 7))
}

func TestDataTable_Render(t *testing.T) {
	c := coordinator(t, "/tasks?status=todo", table.VariantMultiSelect)
	out := render(t, DataTable(c, testOptions()))

	assert.Contains(t, out, `id="data-table"`)
	assert.Contains(t, out, `data-throttle-ms="50"`)
	assert.Contains(t, out, "Fix &lt;script&gt; tag", "cell text is escaped")
	assert.NotContains(t, out, "<script> tag")
	assert.Contains(t, out, `<input type="hidden" name="op" value="sort">`)
	assert.Contains(t, out, `data-row-id="a"`)
	assert.Contains(t, out, "1.5 hr")
	assert.Contains(t, out, "0 of 2 row(s) selected.")
	assert.Contains(t, out, "Page 1 of 3")
	assert.Contains(t, out, `class="dt-reset"`, "reset shows while a filter is active")
	assert.Contains(t, out, `name="set.title"`)
	assert.NotContains(t, out, `data-column="hours"><summary`, "range variant has no widget")
	assert.Contains(t, out, "Only Status: Todo")
}

func TestBuildToolbar(t *testing.T) {
	c := coordinator(t, "/tasks?status=todo", table.VariantMultiSelect)

	p := BuildToolbar(c, testOptions())
	assert.Len(t, p.Widgets, 3, "title, status and created; range has no widget")
	assert.Equal(t, "/tasks", p.ResetURL)

	c.Table().Column("status").ToggleVisibility(false)
	p = BuildToolbar(c, testOptions())
	assert.Len(t, p.Widgets, 2, "hidden columns get no widget")
	assert.Equal(t, "/tasks", p.ResetURL, "a hidden column's filter still counts for reset")

	out := render(t, toolbarView(p))
	assert.NotContains(t, out, `data-column="status"`)
	assert.Contains(t, out, `data-column="created"`)
}

func TestBuildTable(t *testing.T) {
	c := coordinator(t, "/tasks", table.VariantMultiSelect)
	c.Table().Column("title").SetSortDirection(true, false)
	c.Table().Rows()[0].ToggleSelected(true)

	p := BuildTable(c, testOptions())
	require.Len(t, p.Headers, 6)
	assert.Equal(t, HeaderSelect, p.Headers[0].Kind)
	assert.Equal(t, "mixed", p.Headers[0].Checked)
	assert.Equal(t, "true", p.Headers[0].Next)

	title := p.Headers[1]
	assert.Equal(t, HeaderSort, title.Kind)
	assert.Equal(t, "descending", title.AriaSort)
	assert.Equal(t, "dt-sort-desc", title.SortIcon)
	assert.Equal(t, "dt-sort-none", p.Headers[2].SortIcon)
	assert.Equal(t, HeaderEmpty, p.Headers[5].Kind)

	require.Len(t, p.Rows, 2)
	first := p.Rows[0]
	assert.Equal(t, "b", first.ID, "title descending")
	assert.Equal(t, "selected", first.State())
	assert.Equal(t, "", p.Rows[1].State())
	assert.Equal(t, CellSelect, first.Cells[0].Kind)
	assert.True(t, first.Cells[0].Checked)
	assert.Equal(t, "4 hr", first.Cells[3].Text)

	actions := first.Cells[5]
	assert.Equal(t, CellActions, actions.Kind)
	require.Len(t, actions.Actions, 1)
	assert.Equal(t, "Status: Done", actions.Actions[0].Label)
	assert.Equal(t, "/tasks?status=done", actions.Actions[0].URL)
}

func TestPagination_Render(t *testing.T) {
	out := render(t, Pagination(PaginationProps{Page: 2, PageCount: -1, Next: "/tasks?page=3"}))
	assert.Contains(t, out, "Page 2")
	assert.NotContains(t, out, "Page 2 of")
	assert.Contains(t, out, `<span class="dt-button is-disabled" aria-disabled="true" aria-label="Go to first page">`)
	assert.Contains(t, out, `<a class="dt-button" href="/tasks?page=3" aria-label="Go to next page">`)
}

func TestFacetedFilter_Render(t *testing.T) {
	c := coordinator(t, "/tasks?status=todo", table.VariantMultiSelect)
	out := render(t, FacetedFilter(BuildFacetedFilter(c, c.Table().Column("status"))))

	assert.Contains(t, out, `<li class="dt-option is-selected">`)
	assert.Contains(t, out, `<li class="dt-option">`)
	assert.Contains(t, out, `aria-multiselectable="true"`)
	assert.Contains(t, out, `href="/tasks?status=todo%2Cdone"`)
	assert.Contains(t, out, "Clear filters")
}

func TestDataTable_RenderEmpty(t *testing.T) {
	c := coordinator(t, "/tasks", table.VariantMultiSelect)
	c.SetData(nil, 1)

	out := render(t, DataTable(c, testOptions()))
	assert.Contains(t, out, "No results.")
	assert.NotContains(t, out, `class="dt-reset"`)
}

func TestErrorAlert(t *testing.T) {
	out := render(t, ErrorAlert("Too many requests", "Wait", "RATE001"))
	assert.Contains(t, out, `role="alert"`)
	assert.Contains(t, out, "Code: RATE001")
}

func TestPage(t *testing.T) {
	out := render(t, Page(PageProps{Title: "Tasks", Heading: "Tasks", Scripts: []string{"/static/htmx.min.js"}}, ErrorAlert("x", "", "")))
	assert.Contains(t, out, "<title>Tasks</title>")
	assert.Contains(t, out, `src="/static/htmx.min.js"`)
	assert.Contains(t, out, `<div class="dt-alert"`)
}
