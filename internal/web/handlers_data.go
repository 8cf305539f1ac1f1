package web

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/datatable/internal/core"
	"github.com/JonMunkholm/datatable/internal/filters"
	"github.com/JonMunkholm/datatable/internal/logging"
	"github.com/JonMunkholm/datatable/internal/table"
)

// exportPageSize is how many tasks an export reads per query.
const exportPageSize = 100

// handleTasksExport streams the filtered, sorted tasks as CSV. Visible data
// columns are exported in table order. scope=selected limits the export to
// the selected rows.
func (s *Server) handleTasksExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := s.exports.Acquire(ctx); err != nil {
		if errors.Is(err, core.ErrTooManyExports) {
			w.Header().Set("Retry-After", "5")
		}
		s.fail(w, r, err)
		return
	}
	defer s.exports.Release()

	c, err := s.coordinator(ctx, r.URL, core.TaskFacets{})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	q, err := taskQuery(c)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	onlySelected := r.URL.Query().Get("scope") == "selected"
	selection := c.View().RowSelection

	var cols []*table.Column[core.Task]
	for _, col := range c.Table().VisibleColumns() {
		if col.Def().Accessor != nil {
			cols = append(cols, col)
		}
	}

	// Read the first page before writing headers so errors can still be
	// reported properly.
	q.Page, q.PerPage = 1, exportPageSize
	res, err := s.service.GetTasks(ctx, q)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	filename := fmt.Sprintf("tasks_%s.csv", s.now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	logger := logging.FromContext(ctx)
	csvWriter := csv.NewWriter(w)
	header := make([]string, len(cols))
	for i, col := range cols {
		header[i] = col.Label()
	}
	if err := csvWriter.Write(header); err != nil {
		logger.Error("write csv", "error", err)
		return
	}

	rows := 0
	for {
		for _, task := range res.Data {
			if onlySelected && !selection[task.ID] {
				continue
			}
			record := make([]string, len(cols))
			for i, col := range cols {
				record[i] = formatCellForExport(col.Def().Accessor(task))
			}
			if err := csvWriter.Write(record); err != nil {
				// The client is gone; nothing more will reach it.
				logger.Error("write csv", "row", rows, "error", err)
				return
			}
			rows++
		}
		if q.Page >= res.PageCount {
			break
		}
		q.Page++
		if res, err = s.service.GetTasks(ctx, q); err != nil {
			// Headers are out; the truncated file is all we can do.
			logger.Error("export tasks", "page", q.Page, "error", err)
			break
		}
	}
	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		logger.Error("write csv", "error", err)
		return
	}
	s.stateChange("url", "export")
	logger.Info("tasks exported", "rows", rows, "selected_only", onlySelected)
}

// formatCellForExport formats a cell value for CSV. Dates use ISO 8601 and
// text that a spreadsheet would evaluate as a formula is quoted.
func formatCellForExport(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case time.Time:
		if val.IsZero() {
			return ""
		}
		return val.UTC().Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case string:
		if val != "" && strings.ContainsRune("=+-@\t\r", rune(val[0])) {
			return "'" + val
		}
		return val
	}
	return fmt.Sprint(v)
}

// TasksResponse is the JSON shape of /api/tasks.
type TasksResponse struct {
	State     TableState  `json:"state"`
	Data      []core.Task `json:"data"`
	PageCount int         `json:"pageCount"`
	Total     int64       `json:"total"`
}

// TableState is the table state a URL and session resolve to.
type TableState struct {
	Page             int                `json:"page"`
	PerPage          int                `json:"perPage"`
	Sorting          []table.ColumnSort `json:"sorting"`
	Filters          map[string]any     `json:"filters"`
	ColumnVisibility map[string]bool    `json:"columnVisibility"`
	RowSelection     map[string]bool    `json:"rowSelection"`
}

// handleAPITasks returns one page of tasks together with the resolved
// table state.
func (s *Server) handleAPITasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	c, err := s.coordinator(ctx, r.URL, core.TaskFacets{})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.load(ctx, c)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	st := c.Table().State()
	out := TasksResponse{
		State: TableState{
			Page:             st.Pagination.PageIndex + 1,
			PerPage:          st.Pagination.PageSize,
			Sorting:          st.Sorting,
			Filters:          make(map[string]any),
			ColumnVisibility: st.ColumnVisibility,
			RowSelection:     st.RowSelection,
		},
		Data:      res.Data,
		PageCount: res.PageCount,
		Total:     res.Total,
	}
	if out.Data == nil {
		out.Data = []core.Task{}
	}
	for id, v := range c.FilterValues() {
		switch v.Kind() {
		case filters.KindString:
			out.State.Filters[id] = v.Text()
		case filters.KindArray:
			out.State.Filters[id] = v.List()
		}
	}
	writeJSON(w, r, out)
}

// handleAPIFacets returns the option counts and hours range the filter
// widgets show.
func (s *Server) handleAPIFacets(w http.ResponseWriter, r *http.Request) {
	facets, err := s.service.GetFacets(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, facets)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, map[string]string{"status": "ok"})
}

// writeJSON encodes v as JSON. Encoding errors are only logged since the
// headers are already sent.
func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode", "error", err)
	}
}
