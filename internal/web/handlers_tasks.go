package web

import (
	"fmt"
	"net/http"

	"github.com/JonMunkholm/datatable/internal/core"
	"github.com/JonMunkholm/datatable/internal/datatable"
	"github.com/JonMunkholm/datatable/internal/logging"
	"github.com/JonMunkholm/datatable/internal/querystate"
	"github.com/JonMunkholm/datatable/internal/ui"
)

// handleTasks renders the tasks table for the URL state. Submitted widget
// inputs are folded into filters first; plain requests are then redirected
// to the normalized URL, htmx requests get it in a header.
func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	facets, err := s.service.GetFacets(ctx)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := s.coordinator(ctx, r.URL, facets)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	applied, err := ui.ApplyInputs(c, s.location)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if applied {
		s.stateChange("url", "filter")
		if !isHTMX(r) {
			http.Redirect(w, r, c.URL(), http.StatusSeeOther)
			return
		}
	}

	if _, err := s.load(ctx, c); err != nil {
		s.fail(w, r, err)
		return
	}
	s.renderTable(w, r, c)
}

func (s *Server) renderTable(w http.ResponseWriter, r *http.Request, c *datatable.Coordinator[core.Task]) {
	body := ui.DataTable(c, s.uiOptions())

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Add("Vary", "HX-Request")

	var err error
	if isHTMX(r) {
		if c.URLChanged() {
			header := "HX-Replace-Url"
			if c.Query().History() == querystate.HistoryPush {
				header = "HX-Push-Url"
			}
			w.Header().Set(header, c.URL())
		}
		err = body.Render(r.Context(), w)
	} else {
		page := ui.PageProps{Title: "Tasks", Heading: "Tasks", Scripts: s.scripts}
		err = ui.Page(page, body).Render(r.Context(), w)
	}
	if err != nil {
		logging.FromContext(r.Context()).Error("render tasks", "error", err)
	}
}

// handleTasksView applies one view operation (sorting, visibility,
// selection) to the session's view state and returns to the page.
func (s *Server) handleTasksView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	form := r.PostForm

	back, err := returnURL(form.Get("return"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := s.coordinator(ctx, back, core.TaskFacets{})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	op := form.Get("op")
	if needsRows(op) {
		if _, err := s.load(ctx, c); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	if err := applyViewOp(c, op, form); err != nil {
		s.fail(w, r, err)
		return
	}

	if c.ViewChanged() {
		if err := s.views.Save(ctx, viewKey(ctx, tasksTableID), c.View()); err != nil {
			s.fail(w, r, fmt.Errorf("view store: save: %w", err))
			return
		}
		s.stateChange("view", op)
		logging.FromContext(ctx).Debug("view state saved", "table", tasksTableID, "op", op)
	}
	http.Redirect(w, r, c.URL(), http.StatusSeeOther)
}
