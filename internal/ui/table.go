package ui

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/datatable/internal/datatable"
	"github.com/JonMunkholm/datatable/internal/filters"
	"github.com/JonMunkholm/datatable/internal/table"
)

// Columns without an accessor that the table renders specially.
const (
	SelectColumnID  = "select"
	ActionsColumnID = "actions"
)

// TableID is the element id of the table container. Partial responses
// replace it.
const TableID = "data-table"

// HeaderKind selects how a header cell renders.
type HeaderKind int

const (
	HeaderEmpty HeaderKind = iota
	HeaderText
	HeaderSort
	HeaderSelect
)

// CellKind selects how a body cell renders.
type CellKind int

const (
	CellText CellKind = iota
	CellSelect
	CellActions
)

// HeaderProps is one header cell.
type HeaderProps struct {
	ID       string
	Label    string
	Class    string
	Kind     HeaderKind
	AriaSort string

	// Sort columns.
	Sorted   bool
	SortIcon string

	// The select column: its aria-checked state and the value a click posts.
	Checked string
	Next    string
}

// CellProps is one body cell.
type CellProps struct {
	Class   string
	Kind    CellKind
	Text    string
	RowID   string
	Checked bool
	Actions []Link
}

// RowProps is one body row.
type RowProps struct {
	ID       string
	Selected bool
	Cells    []CellProps
}

// State is the row's data-state attribute.
func (r RowProps) State() string {
	if r.Selected {
		return "selected"
	}
	return ""
}

// TableProps drive DataTable.
type TableProps struct {
	ID         string
	URL        string
	Shallow    bool
	ThrottleMs int
	ViewAction string

	Toolbar    ToolbarProps
	Headers    []HeaderProps
	Rows       []RowProps
	Pagination PaginationProps
}

// DataTable renders the toolbar, the table and the pagination bar.
func DataTable[T any](c *datatable.Coordinator[T], opts Options) templ.Component {
	return tableView(BuildTable(c, opts))
}

// BuildTable resolves every cell of the current page.
func BuildTable[T any](c *datatable.Coordinator[T], opts Options) TableProps {
	r := c.Result()
	t := r.Table
	cols := t.VisibleColumns()
	pinning := t.State().ColumnPinning

	p := TableProps{
		ID:         TableID,
		URL:        c.URL(),
		Shallow:    r.Shallow,
		ThrottleMs: r.ThrottleMs,
		ViewAction: opts.ViewAction,
		Toolbar:    BuildToolbar(c, opts),
		Pagination: BuildPagination(c, opts),
	}
	for _, col := range cols {
		p.Headers = append(p.Headers, header(t, col, pinning))
	}

	var actions func(*table.Row[T]) []Link
	for _, row := range t.Rows() {
		rp := RowProps{ID: row.ID, Selected: row.IsSelected()}
		for _, col := range cols {
			cell := CellProps{Class: cellClass(col.ID, pinning)}
			switch col.ID {
			case SelectColumnID:
				cell.Kind = CellSelect
				cell.RowID = row.ID
				cell.Checked = row.IsSelected()
			case ActionsColumnID:
				if actions == nil {
					actions = rowActionLinks(c)
				}
				cell.Kind = CellActions
				cell.Actions = actions(row)
			default:
				cell.Text = FormatCell(col.Meta(), row.Value(col.ID))
			}
			rp.Cells = append(rp.Cells, cell)
		}
		p.Rows = append(p.Rows, rp)
	}
	return p
}

func cellClass(id string, pinning table.ColumnPinning) string {
	switch {
	case slices.Contains(pinning.Left, id):
		return "dt-cell is-pinned-left"
	case slices.Contains(pinning.Right, id):
		return "dt-cell is-pinned-right"
	}
	return "dt-cell"
}

func header[T any](t *table.Table[T], col *table.Column[T], pinning table.ColumnPinning) HeaderProps {
	h := HeaderProps{
		ID:       col.ID,
		Label:    col.Label(),
		Class:    cellClass(col.ID, pinning),
		AriaSort: "none",
	}
	desc, sorted := col.IsSorted()
	if sorted {
		h.Sorted = true
		h.AriaSort = "ascending"
		h.SortIcon = "dt-sort-asc"
		if desc {
			h.AriaSort = "descending"
			h.SortIcon = "dt-sort-desc"
		}
	}

	switch {
	case col.ID == SelectColumnID:
		all := t.IsAllPageRowsSelected()
		h.Kind = HeaderSelect
		h.Next = strconv.FormatBool(!all)
		switch {
		case all:
			h.Checked = "true"
		case t.IsSomePageRowsSelected():
			h.Checked = "mixed"
		default:
			h.Checked = "false"
		}
	case col.CanSort():
		h.Kind = HeaderSort
		if !sorted {
			h.SortIcon = "dt-sort-none"
		}
	case col.ID != ActionsColumnID:
		h.Kind = HeaderText
	}
	return h
}

// rowActionLinks returns a function listing, for each faceted column, a
// link filtering the table to the row's value.
func rowActionLinks[T any](c *datatable.Coordinator[T]) func(*table.Row[T]) []Link {
	var faceted []*table.Column[T]
	for _, col := range c.Table().FilterableColumns() {
		if col.Meta().HasOptions() {
			faceted = append(faceted, col)
		}
	}
	return func(row *table.Row[T]) []Link {
		var links []Link
		for _, col := range faceted {
			value := fmt.Sprint(row.Value(col.ID))
			links = append(links, Link{
				Label: col.Label() + ": " + FormatCell(col.Meta(), value),
				URL:   setFilter(c, col.ID, filters.Strings([]string{value})),
			})
		}
		return links
	}
}
