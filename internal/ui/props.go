package ui

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/datatable/internal/datatable"
	"github.com/JonMunkholm/datatable/internal/filters"
	"github.com/JonMunkholm/datatable/internal/table"
)

// InputPrefix marks query parameters that carry raw widget input. The
// handler folds them into column filters with ApplyInputs.
const InputPrefix = "set."

// DateLayout is how dates are displayed.
const DateLayout = "Jan 2, 2006"

// Options configure how widgets link back to the server.
type Options struct {
	// ViewAction is the POST target for view state changes.
	ViewAction string
	PageSizes  []int
	Now        time.Time
	Location   *time.Location
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

func (o Options) now() time.Time {
	if o.Now.IsZero() {
		return time.Now().In(o.location())
	}
	return o.Now.In(o.location())
}

// Param is one hidden form field.
type Param struct {
	Name  string
	Value string
}

// Link is a labelled navigation target.
type Link struct {
	Label string
	URL   string
}

// hiddenParams returns the current query as form fields, minus the keys
// skip reports. Input parameters and the page are always dropped so a form
// submit starts from the first page.
func hiddenParams[T any](c *datatable.Coordinator[T], skip ...string) []Param {
	values := c.Query().Values()
	keys := make([]string, 0, len(values))
	for k := range values {
		if k == datatable.PageKey || strings.HasPrefix(k, InputPrefix) || slices.Contains(skip, k) {
			continue
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var out []Param
	for _, k := range keys {
		for _, v := range values[k] {
			out = append(out, Param{Name: k, Value: v})
		}
	}
	return out
}

func setFilter[T any](c *datatable.Coordinator[T], id string, v filters.Value) string {
	return c.Preview(func(t *table.Table[T]) {
		if col := t.Column(id); col != nil {
			col.SetFilterValue(v)
		}
	})
}

// ---------------------------------------------------------------------------
// Date filter
// ---------------------------------------------------------------------------

// DateFilterProps drive the date and date range filter.
type DateFilterProps struct {
	ColumnID string
	Title    string
	Multiple bool

	From, To *time.Time
	Display  string

	Action   string
	Hidden   []Param
	Presets  []Link
	ClearURL string
}

// HasValue reports whether a date is selected.
func (p DateFilterProps) HasValue() bool { return p.From != nil || p.To != nil }

// InputName names the raw input parameter carrying one end of the range.
func (p DateFilterProps) InputName(suffix string) string {
	return InputPrefix + p.ColumnID + suffix
}

const inputDateLayout = "2006-01-02"

// dateValue formats t for a date input; nil is empty.
func dateValue(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(inputDateLayout)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Millisecond)
}

// DayRange returns the millisecond bounds covering [from, to] in whole days.
func DayRange(from, to time.Time) filters.Value {
	return filters.Strings([]string{
		strconv.FormatInt(startOfDay(from).UnixMilli(), 10),
		strconv.FormatInt(endOfDay(to).UnixMilli(), 10),
	})
}

// rangeBounds splits a range filter value. Strings hold "lo,hi"; arrays
// hold one bound per item.
func rangeBounds(v filters.Value) (lo, hi string) {
	parts := v.List()
	if v.Kind() == filters.KindString {
		parts = strings.Split(v.Text(), ",")
	}
	if len(parts) > 0 {
		lo = strings.TrimSpace(parts[0])
	}
	if len(parts) > 1 {
		hi = strings.TrimSpace(parts[1])
	}
	return lo, hi
}

func parseMillis(s string, loc *time.Location) *time.Time {
	ms, err := strconv.ParseInt(s, 10, 64)
	if s == "" || err != nil {
		return nil
	}
	t := time.UnixMilli(ms).In(loc)
	return &t
}

func dateDisplay(from, to *time.Time, multiple bool) string {
	switch {
	case from == nil && to == nil:
		return ""
	case !multiple || to == nil:
		if from == nil {
			return to.Format(DateLayout)
		}
		return from.Format(DateLayout)
	case from == nil:
		return to.Format(DateLayout)
	}
	return from.Format(DateLayout) + " - " + to.Format(DateLayout)
}

// BuildDateFilter reads the column's current selection and computes the
// links the widget offers.
func BuildDateFilter[T any](c *datatable.Coordinator[T], col *table.Column[T], opts Options) DateFilterProps {
	loc := opts.location()
	multiple := col.Meta().Variant == table.VariantDateRange
	lo, hi := rangeBounds(c.FilterValues()[col.ID])

	p := DateFilterProps{
		ColumnID: col.ID,
		Title:    col.Label(),
		Multiple: multiple,
		From:     parseMillis(lo, loc),
		To:       parseMillis(hi, loc),
		Action:   c.Query().URL().Path,
		Hidden:   hiddenParams(c, col.ID),
	}
	if !multiple {
		p.To = nil
	}
	p.Display = dateDisplay(p.From, p.To, multiple)

	now := opts.now()
	if multiple {
		p.Presets = []Link{
			{Label: "Today", URL: setFilter(c, col.ID, DayRange(now, now))},
			{Label: "Last 7 days", URL: setFilter(c, col.ID, DayRange(now.AddDate(0, 0, -6), now))},
			{Label: "Last 30 days", URL: setFilter(c, col.ID, DayRange(now.AddDate(0, 0, -29), now))},
		}
	} else {
		yesterday := now.AddDate(0, 0, -1)
		p.Presets = []Link{
			{Label: "Today", URL: setFilter(c, col.ID, DayRange(now, now))},
			{Label: "Yesterday", URL: setFilter(c, col.ID, DayRange(yesterday, yesterday))},
		}
	}
	if p.HasValue() {
		p.ClearURL = setFilter(c, col.ID, filters.None())
	}
	return p
}

// ---------------------------------------------------------------------------
// Faceted filter
// ---------------------------------------------------------------------------

// FacetOption is one entry of a faceted filter.
type FacetOption struct {
	Label     string
	Value     string
	Icon      string
	Count     int
	Selected  bool
	ToggleURL string
}

// FacetedFilterProps drive the select and multi-select filter.
type FacetedFilterProps struct {
	ColumnID string
	Title    string
	Multiple bool
	Options  []FacetOption
	Selected []string
	ClearURL string
}

// Badge returns the labels shown next to the title: every selected label,
// or "n selected" past two.
func (p FacetedFilterProps) Badge() []string {
	if len(p.Selected) > 2 {
		return []string{strconv.Itoa(len(p.Selected)) + " selected"}
	}
	var labels []string
	for _, o := range p.Options {
		if o.Selected {
			labels = append(labels, o.Label)
		}
	}
	return labels
}

// toggled returns selected with value added or removed, keeping order.
func toggled(selected []string, value string, multiple bool) []string {
	has := slices.Contains(selected, value)
	if !multiple {
		if has {
			return nil
		}
		return []string{value}
	}
	if has {
		return slices.DeleteFunc(slices.Clone(selected), func(s string) bool { return s == value })
	}
	return append(slices.Clone(selected), value)
}

// BuildFacetedFilter marks the selected options and computes each option's
// toggle link. An empty selection clears the filter.
func BuildFacetedFilter[T any](c *datatable.Coordinator[T], col *table.Column[T]) FacetedFilterProps {
	meta := col.Meta()
	multiple := meta.Variant == table.VariantMultiSelect
	selected := col.FilterValue().List()

	p := FacetedFilterProps{
		ColumnID: col.ID,
		Title:    col.Label(),
		Multiple: multiple,
		Selected: selected,
	}
	for _, o := range meta.Options {
		next := toggled(selected, o.Value, multiple)
		v := filters.None()
		if len(next) > 0 {
			v = filters.Strings(next)
		}
		p.Options = append(p.Options, FacetOption{
			Label:     o.Label,
			Value:     o.Value,
			Icon:      o.Icon,
			Count:     o.Count,
			Selected:  slices.Contains(selected, o.Value),
			ToggleURL: setFilter(c, col.ID, v),
		})
	}
	if len(selected) > 0 {
		p.ClearURL = setFilter(c, col.ID, filters.None())
	}
	return p
}

// ---------------------------------------------------------------------------
// Text filter
// ---------------------------------------------------------------------------

// TextFilterProps drive the text and number input.
type TextFilterProps struct {
	ColumnID    string
	Name        string
	InputType   string
	Placeholder string
	Value       string
	Unit        string
	Action      string
	Hidden      []Param
	DebounceMs  int
}

// BuildTextFilter uses the raw URL value so the input shows what was typed.
func BuildTextFilter[T any](c *datatable.Coordinator[T], col *table.Column[T]) TextFilterProps {
	meta := col.Meta()
	placeholder := meta.Placeholder
	if placeholder == "" {
		placeholder = col.Label()
	}
	inputType := "text"
	if meta.Variant == table.VariantNumber {
		inputType = "number"
	}
	return TextFilterProps{
		ColumnID:    col.ID,
		Name:        InputPrefix + col.ID,
		InputType:   inputType,
		Placeholder: placeholder,
		Value:       c.FilterValues()[col.ID].Text(),
		Unit:        meta.Unit,
		Action:      c.Query().URL().Path,
		Hidden:      hiddenParams(c, col.ID),
		DebounceMs:  c.Result().DebounceMs,
	}
}

// ---------------------------------------------------------------------------
// View options
// ---------------------------------------------------------------------------

// ColumnToggle is one entry of the column visibility menu.
type ColumnToggle struct {
	ID      string
	Label   string
	Visible bool
}

// ViewOptionsProps drive the column visibility menu.
type ViewOptionsProps struct {
	Action    string
	ReturnURL string
	Columns   []ColumnToggle
}

// BuildViewOptions lists hideable data columns.
func BuildViewOptions[T any](c *datatable.Coordinator[T], opts Options) ViewOptionsProps {
	p := ViewOptionsProps{Action: opts.ViewAction, ReturnURL: c.URL()}
	for _, col := range c.Table().HideableColumns() {
		if col.Def().Accessor == nil {
			continue
		}
		p.Columns = append(p.Columns, ColumnToggle{ID: col.ID, Label: col.Label(), Visible: col.IsVisible()})
	}
	return p
}

// ---------------------------------------------------------------------------
// Pagination
// ---------------------------------------------------------------------------

// PageSizeChoice is one entry of the rows-per-page menu.
type PageSizeChoice struct {
	Size     int
	URL      string
	Selected bool
}

// PaginationProps drive the pagination bar.
type PaginationProps struct {
	Page, PageCount int
	SelectedRows    int
	FilteredRows    int
	PageSizes       []PageSizeChoice
	First, Prev     string
	Next, Last      string
}

// SelectionText is the "n of m rows selected" line.
func (p PaginationProps) SelectionText() string {
	return fmt.Sprintf("%d of %d row(s) selected.", p.SelectedRows, p.FilteredRows)
}

// PageText is the current page, with the total when it is known.
func (p PaginationProps) PageText() string {
	if p.PageCount >= 0 {
		return fmt.Sprintf("Page %d of %d", p.Page, p.PageCount)
	}
	return fmt.Sprintf("Page %d", p.Page)
}

// BuildPagination computes the navigation links. Links for moves that are
// not possible are left empty.
func BuildPagination[T any](c *datatable.Coordinator[T], opts Options) PaginationProps {
	t := c.Table()
	st := t.State()
	p := PaginationProps{
		Page:         st.Pagination.PageIndex + 1,
		PageCount:    t.PageCount(),
		SelectedRows: len(t.SelectedRows()),
		FilteredRows: len(t.FilteredRows()),
	}

	sizes := opts.PageSizes
	if !slices.Contains(sizes, st.Pagination.PageSize) {
		sizes = append(slices.Clone(sizes), st.Pagination.PageSize)
		slices.Sort(sizes)
	}
	for _, size := range sizes {
		p.PageSizes = append(p.PageSizes, PageSizeChoice{
			Size:     size,
			URL:      c.Preview(func(t *table.Table[T]) { t.SetPageSize(size) }),
			Selected: size == st.Pagination.PageSize,
		})
	}

	if t.CanPreviousPage() {
		p.First = c.Preview(func(t *table.Table[T]) { t.FirstPage() })
		p.Prev = c.Preview(func(t *table.Table[T]) { t.PreviousPage() })
	}
	if t.CanNextPage() {
		p.Next = c.Preview(func(t *table.Table[T]) { t.NextPage() })
		if p.PageCount > 0 {
			p.Last = c.Preview(func(t *table.Table[T]) { t.LastPage() })
		}
	}
	return p
}
