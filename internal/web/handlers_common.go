package web

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/JonMunkholm/datatable/internal/core"
	"github.com/JonMunkholm/datatable/internal/datatable"
	"github.com/JonMunkholm/datatable/internal/pagination"
	"github.com/JonMunkholm/datatable/internal/querystate"
	"github.com/JonMunkholm/datatable/internal/table"
	"github.com/JonMunkholm/datatable/internal/ui"
)

const (
	tasksPath    = "/tasks"
	tasksTableID = "tasks"
)

// View operations posted to /tasks/view.
const (
	opSort           = "sort"
	opClearSort      = "clear-sort"
	opToggleColumn   = "toggle-column"
	opShowAllColumns = "show-all-columns"
	opSelectRow      = "select-row"
	opSelectPage     = "select-page"
	opClearSelection = "clear-selection"
)

var errInvalidReturn = errors.New("invalid view operation: return URL must be a tasks page on this site")

// tableConfig describes the tasks table. facets feed the option counts;
// the zero value still lists every option.
func (s *Server) tableConfig(facets core.TaskFacets) datatable.Config[core.Task] {
	t := s.cfg.Table
	return datatable.Config[core.Task]{
		Columns:   core.TaskColumns(facets),
		PageCount: -1,
		InitialState: table.State{
			Pagination: pagination.State{PageSize: t.DefaultPageSize},
			Sorting:    []table.ColumnSort{{ID: "createdAt", Desc: true}},
			ColumnPinning: table.ColumnPinning{
				Left:  []string{ui.SelectColumnID},
				Right: []string{ui.ActionsColumnID},
			},
		},
		GetRowID:             core.TaskRowID,
		EnableMultiSort:      t.MultiSort,
		MaxMultiSortColCount: 3,
		ArraySeparator:       t.ArraySeparator,
		SplitPattern:         s.split,
		NoSplit:              t.SplitPattern == "off",
		SortFilterValues:     t.SortFilterValues,
		History:              querystate.History(t.History),
		Shallow:              t.Shallow,
		Debounce:             int(t.Debounce.Milliseconds()),
		Throttle:             int(t.Throttle.Milliseconds()),
	}
}

// coordinator builds the tasks table for u and the session's stored view
// state. It has no rows until load.
func (s *Server) coordinator(ctx context.Context, u *url.URL, facets core.TaskFacets) (*datatable.Coordinator[core.Task], error) {
	view, err := s.views.Load(ctx, viewKey(ctx, tasksTableID))
	if err != nil {
		return nil, fmt.Errorf("view store: load: %w", err)
	}
	return datatable.New(querystate.NewStore(u), view, s.tableConfig(facets)), nil
}

// taskQuery translates the table state into a data source query.
func taskQuery(c *datatable.Coordinator[core.Task]) (core.TaskQuery, error) {
	return core.TaskQueryFrom(c.Pagination(), c.ActiveFilterValues(), c.Table().State().Sorting)
}

// load fetches the page the URL asks for and hands it to the table.
func (s *Server) load(ctx context.Context, c *datatable.Coordinator[core.Task]) (core.TasksResult, error) {
	q, err := taskQuery(c)
	if err != nil {
		return core.TasksResult{}, err
	}
	res, err := s.service.GetTasks(ctx, q)
	if err != nil {
		return core.TasksResult{}, err
	}
	c.SetData(res.Data, res.PageCount)
	return res, nil
}

func (s *Server) uiOptions() ui.Options {
	return ui.Options{
		ViewAction: tasksPath + "/view",
		PageSizes:  s.cfg.Table.PageSizeChoices(),
		Now:        s.now(),
		Location:   s.location,
	}
}

// returnURL validates the page a view operation goes back to. Only
// relative tasks URLs are accepted.
func returnURL(raw string) (*url.URL, error) {
	if raw == "" {
		return &url.URL{Path: tasksPath}, nil
	}
	if strings.HasPrefix(raw, "//") || strings.Contains(raw, `\`) {
		return nil, errInvalidReturn
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" || u.Path != tasksPath {
		return nil, errInvalidReturn
	}
	return &url.URL{Path: u.Path, RawQuery: u.RawQuery}, nil
}

// needsRows reports whether op acts on the rows of the current page.
func needsRows(op string) bool {
	return op == opSelectRow || op == opSelectPage
}

// applyViewOp performs one view operation on the table.
func applyViewOp[T any](c *datatable.Coordinator[T], op string, form url.Values) error {
	t := c.Table()

	column := func() (*table.Column[T], error) {
		id := form.Get("column")
		col := t.Column(id)
		if col == nil {
			return nil, fmt.Errorf("%w: %q", core.ErrUnknownColumn, id)
		}
		return col, nil
	}
	flag := func(name string) (bool, error) {
		v, err := strconv.ParseBool(form.Get(name))
		if err != nil {
			return false, fmt.Errorf("invalid view operation %s: %s=%q", op, name, form.Get(name))
		}
		return v, nil
	}

	switch op {
	case opSort:
		col, err := column()
		if err != nil {
			return err
		}
		if !col.CanSort() {
			return fmt.Errorf("invalid view operation %s: column %q is not sortable", op, col.ID)
		}
		multi := form.Get("multi") == "true"
		switch form.Get("dir") {
		case "asc":
			col.SetSortDirection(false, multi)
		case "desc":
			col.SetSortDirection(true, multi)
		case "":
			col.ToggleSorting(multi)
		default:
			return fmt.Errorf("invalid view operation %s: dir=%q", op, form.Get("dir"))
		}

	case opClearSort:
		if form.Get("column") == "" {
			t.ResetSorting()
			return nil
		}
		col, err := column()
		if err != nil {
			return err
		}
		col.ClearSorting()

	case opToggleColumn:
		col, err := column()
		if err != nil {
			return err
		}
		if !col.CanHide() {
			return fmt.Errorf("invalid view operation %s: column %q cannot be hidden", op, col.ID)
		}
		visible, err := flag("visible")
		if err != nil {
			return err
		}
		col.ToggleVisibility(visible)

	case opShowAllColumns:
		t.ToggleAllColumnsVisible(true)

	case opSelectRow:
		selected, err := flag("selected")
		if err != nil {
			return err
		}
		id := form.Get("row")
		i := slices.IndexFunc(t.Rows(), func(r *table.Row[T]) bool { return r.ID == id })
		if i < 0 {
			return fmt.Errorf("invalid view operation %s: row %q is not on this page", op, id)
		}
		t.Rows()[i].ToggleSelected(selected)

	case opSelectPage:
		selected, err := flag("selected")
		if err != nil {
			return err
		}
		t.ToggleAllPageRowsSelected(selected)

	case opClearSelection:
		t.ResetRowSelection()

	default:
		return fmt.Errorf("invalid view operation %q", op)
	}
	return nil
}
