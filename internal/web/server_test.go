package web

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/datatable/internal/config"
	"github.com/JonMunkholm/datatable/internal/core"
	"github.com/JonMunkholm/datatable/internal/logging"
	"github.com/JonMunkholm/datatable/internal/viewstate"
)

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func fixtureTasks() []core.Task {
	day := func(d int) time.Time { return time.Date(2024, 3, d, 9, 0, 0, 0, time.UTC) }
	return []core.Task{
		{ID: "t1", Code: "TASK-1", Title: "Fix login bug", Status: core.StatusTodo, Label: core.LabelBug, Priority: core.PriorityHigh, EstimatedHours: 2, CreatedAt: day(1)},
		{ID: "t2", Code: "TASK-2", Title: "Deploy service", Status: core.StatusDone, Label: core.LabelFeature, Priority: core.PriorityLow, EstimatedHours: 8, CreatedAt: day(5)},
		{ID: "t3", Code: "TASK-3", Title: "=cmd()", Status: core.StatusTodo, Label: core.LabelDocumentation, Priority: core.PriorityMedium, EstimatedHours: 0.5, CreatedAt: day(8)},
		{ID: "t4", Code: "TASK-4", Title: "Archived thing", Status: core.StatusTodo, Label: core.LabelBug, Priority: core.PriorityLow, Archived: true, CreatedAt: day(9)},
	}
}

func newTestServer(t *testing.T, vars map[string]string) *Server {
	t.Helper()
	env := map[string]string{"RATE_LIMIT_ENABLED": "false"}
	for k, v := range vars {
		env[k] = v
	}
	cfg, err := config.LoadFrom(func(k string) string { return env[k] })
	require.NoError(t, err)

	views, err := viewstate.NewMemoryStore(time.Hour, "")
	require.NoError(t, err)
	t.Cleanup(func() { views.Close() })

	svc := core.NewService(core.NewMemoryStore(fixtureTasks()...))
	s, err := NewServer(svc, views, cfg, WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return s
}

// client sends requests with a fixed session cookie.
type client struct {
	t       *testing.T
	s       *Server
	session string
}

func newClient(t *testing.T, s *Server) *client {
	return &client{t: t, s: s, session: uuid.NewString()}
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	req.AddCookie(&http.Cookie{Name: "dt_session", Value: c.session})
	rec := httptest.NewRecorder()
	c.s.Router().ServeHTTP(rec, req)
	return rec
}

func (c *client) get(target string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return c.do(req)
}

func (c *client) post(target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *client) api(target string) TasksResponse {
	c.t.Helper()
	rec := c.get(target)
	require.Equal(c.t, http.StatusOK, rec.Code, rec.Body.String())
	var out TasksResponse
	require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func titles(tasks []core.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Title
	}
	return out
}

// ============================================================================
// Pages
// ============================================================================

func TestRootRedirects(t *testing.T) {
	c := newClient(t, newTestServer(t, nil))
	rec := c.get("/")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/tasks", rec.Header().Get("Location"))
}

func TestTasksPage(t *testing.T) {
	c := newClient(t, newTestServer(t, nil))
	rec := c.get("/tasks")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<!DOCTYPE html>")
	assert.Contains(t, body, `id="data-table"`)
	assert.Contains(t, body, "Fix login bug")
	assert.Contains(t, body, "=cmd()")
	assert.NotContains(t, body, "Archived thing")
	assert.Less(t, strings.Index(body, "=cmd()"), strings.Index(body, "Fix login bug"), "newest first by default")
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestTasksPage_FiltersFromURL(t *testing.T) {
	c := newClient(t, newTestServer(t, nil))
	rec := c.get("/tasks?status=done")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Deploy service")
	assert.NotContains(t, rec.Body.String(), "Fix login bug")
}

func TestTasksPage_InputsRedirect(t *testing.T) {
	c := newClient(t, newTestServer(t, nil))
	rec := c.get("/tasks?set.title=deploy&page=2&status=done")

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/tasks?status=done&title=deploy", rec.Header().Get("Location"))
}

func TestTasksPage_HTMXPartial(t *testing.T) {
	c := newClient(t, newTestServer(t, nil))
	rec := c.get("/tasks?set.title=Deploy", "HX-Request", "true")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/tasks?title=Deploy", rec.Header().Get("HX-Replace-Url"))
	body := rec.Body.String()
	assert.NotContains(t, body, "<!DOCTYPE")
	assert.Contains(t, body, "Deploy service")
	assert.NotContains(t, body, "Fix login bug")
}

func TestTasksPage_HTMXPushHistory(t *testing.T) {
	c := newClient(t, newTestServer(t, map[string]string{"TABLE_HISTORY": "push"}))
	rec := c.get("/tasks?set.title=Deploy", "HX-Request", "true")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/tasks?title=Deploy", rec.Header().Get("HX-Push-Url"))
	assert.Empty(t, rec.Header().Get("HX-Replace-Url"))
}

func TestTasksPage_InvalidFilter(t *testing.T) {
	c := newClient(t, newTestServer(t, nil))

	rec := c.get("/tasks?createdAt=yesterday")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "QRY001")

	rec = c.get("/tasks?createdAt=yesterday", "HX-Request", "true")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `role="alert"`)
	assert.Equal(t, "#data-table", rec.Header().Get("HX-Retarget"))
}

func TestTasksPage_InvalidDateInput(t *testing.T) {
	c := newClient(t, newTestServer(t, nil))
	rec := c.get("/tasks?set.createdAt.from=not-a-date", "Accept", "application/json")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "QRY001", body.Code)
}

func TestSessionCookie(t *testing.T) {
	s := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tasks", nil))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "dt_session", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	_, err := uuid.Parse(cookies[0].Value)
	assert.NoError(t, err)

	c := &client{t: t, s: s, session: "not-a-uuid"}
	rec = c.get("/tasks")
	require.Len(t, rec.Result().Cookies(), 1)
	assert.NotEqual(t, "not-a-uuid", rec.Result().Cookies()[0].Value)
}

// ============================================================================
// View operations
// ============================================================================

func TestViewOp_Sort(t *testing.T) {
	c := newClient(t, newTestServer(t, nil))

	rec := c.post("/tasks/view", url.Values{"op": {"sort"}, "column": {"title"}, "return": {"/tasks?status=todo,done"}})
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/tasks?status=todo%2Cdone", rec.Header().Get("Location"))

	out := c.api("/api/tasks")
	require.Len(t, out.State.Sorting, 1)
	assert.Equal(t, "title", out.State.Sorting[0].ID)
	assert.False(t, out.State.Sorting[0].Desc)
	assert.Equal(t, []string{"=cmd()", "Deploy service", "Fix login bug"}, titles(out.Data))

	c.post("/tasks/view", url.Values{"op": {"sort"}, "column": {"title"}})
	out = c.api("/api/tasks")
	assert.True(t, out.State.Sorting[0].Desc)

	c.post("/tasks/view", url.Values{"op": {"clear-sort"}})
	out = c.api("/api/tasks")
	assert.Empty(t, out.State.Sorting)
}

func TestViewOp_SortIsPerSession(t *testing.T) {
	s := newTestServer(t, nil)
	a, b := newClient(t, s), newClient(t, s)

	a.post("/tasks/view", url.Values{"op": {"sort"}, "column": {"title"}})

	assert.Equal(t, "title", a.api("/api/tasks").State.Sorting[0].ID)
	assert.Equal(t, "createdAt", b.api("/api/tasks").State.Sorting[0].ID)
}

func TestViewOp_ToggleColumn(t *testing.T) {
	c := newClient(t, newTestServer(t, nil))

	rec := c.post("/tasks/view", url.Values{"op": {"toggle-column"}, "column": {"label"}, "visible": {"false"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, map[string]bool{"label": false}, c.api("/api/tasks").State.ColumnVisibility)

	body := c.get("/tasks").Body.String()
	assert.NotContains(t, body, `<th scope="col" class="dt-cell" data-column="label"`)

	c.post("/tasks/view", url.Values{"op": {"show-all-columns"}})
	assert.True(t, c.api("/api/tasks").State.ColumnVisibility["label"])
	assert.Contains(t, c.get("/tasks").Body.String(), `data-column="label"`)
}

func TestViewOp_SelectRow(t *testing.T) {
	c := newClient(t, newTestServer(t, nil))

	rec := c.post("/tasks/view", url.Values{"op": {"select-row"}, "row": {"t1"}, "selected": {"true"}})
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, map[string]bool{"t1": true}, c.api("/api/tasks").State.RowSelection)
	assert.Contains(t, c.get("/tasks").Body.String(), "1 of 3 row(s) selected.")

	rec = c.post("/tasks/view", url.Values{"op": {"select-row"}, "row": {"t4"}, "selected": {"true"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "archived rows are not on the page")

	c.post("/tasks/view", url.Values{"op": {"select-page"}, "selected": {"true"}})
	assert.Len(t, c.api("/api/tasks").State.RowSelection, 3)

	c.post("/tasks/view", url.Values{"op": {"clear-selection"}})
	assert.Empty(t, c.api("/api/tasks").State.RowSelection)
}

func TestViewOp_Errors(t *testing.T) {
	c := newClient(t, newTestServer(t, nil))

	tests := []struct {
		name string
		form url.Values
		code string
	}{
		{"unknown op", url.Values{"op": {"explode"}}, "QRY002"},
		{"unknown column", url.Values{"op": {"sort"}, "column": {"nope"}}, "TBL001"},
		{"unsortable column", url.Values{"op": {"sort"}, "column": {"select"}}, "QRY002"},
		{"bad flag", url.Values{"op": {"toggle-column"}, "column": {"title"}, "visible": {"maybe"}}, "QRY002"},
		{"foreign return", url.Values{"op": {"clear-sort"}, "return": {"https://evil.example/tasks"}}, "QRY002"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := c.post("/tasks/view", tt.form)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.code)
		})
	}
}

// ============================================================================
// Export & API
// ============================================================================

func TestExport(t *testing.T) {
	c := newClient(t, newTestServer(t, nil))
	rec := c.get("/tasks/export?status=todo")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "tasks_20240310_120000.csv")

	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Task", "Title", "Status", "Priority", "Label", "Est. Hours", "Created At"}, records[0])
	assert.Equal(t, []string{"TASK-3", "'=cmd()", "todo", "medium", "documentation", "0.5", "2024-03-08T09:00:00Z"}, records[1])
	assert.Equal(t, "TASK-1", records[2][0])
}

func TestExport_SelectedOnly(t *testing.T) {
	c := newClient(t, newTestServer(t, nil))
	c.post("/tasks/view", url.Values{"op": {"select-row"}, "row": {"t2"}, "selected": {"true"}})

	records, err := csv.NewReader(c.get("/tasks/export?scope=selected").Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "TASK-2", records[1][0])
}

// failingWriter accepts headers but fails every body write, like a
// connection the client dropped.
type failingWriter struct {
	*httptest.ResponseRecorder
}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("connection reset by peer")
}

func TestExport_WriteErrorLogged(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(logging.New(&buf, "info", "json"))
	t.Cleanup(func() { slog.SetDefault(prev) })

	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/tasks/export", nil)
	req.AddCookie(&http.Cookie{Name: "dt_session", Value: uuid.NewString()})
	s.Router().ServeHTTP(failingWriter{httptest.NewRecorder()}, req)

	out := buf.String()
	assert.Contains(t, out, `"msg":"write csv"`)
	assert.Contains(t, out, "connection reset by peer")
	assert.NotContains(t, out, "tasks exported")
	assert.Equal(t, 0, s.exports.Active(), "slot released")
}

func TestExport_Busy(t *testing.T) {
	s := newTestServer(t, map[string]string{"EXPORT_MAX_CONCURRENT": "1", "EXPORT_MAX_WAIT": "10ms"})
	require.NoError(t, s.exports.Acquire(context.Background()))
	defer s.exports.Release()

	rec := newClient(t, s).get("/tasks/export", "Accept", "application/json")

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "5", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "RATE002")
}

func TestAPITasks(t *testing.T) {
	c := newClient(t, newTestServer(t, nil))
	out := c.api("/api/tasks?status=todo,done&perPage=2&title=fix%20login")

	assert.Equal(t, 1, out.State.Page)
	assert.Equal(t, 2, out.State.PerPage)
	assert.Equal(t, []any{"todo", "done"}, out.State.Filters["status"])
	assert.Equal(t, "fix login", out.State.Filters["title"])
	assert.Equal(t, []string{"Fix login bug"}, titles(out.Data))
	assert.Equal(t, 1, out.PageCount)
	assert.EqualValues(t, 1, out.Total)
}

func TestAPITasks_Paging(t *testing.T) {
	c := newClient(t, newTestServer(t, nil))
	out := c.api("/api/tasks?perPage=2&page=2")

	assert.Equal(t, 2, out.PageCount)
	assert.EqualValues(t, 3, out.Total)
	assert.Equal(t, []string{"Fix login bug"}, titles(out.Data))
}

func TestAPIFacets(t *testing.T) {
	c := newClient(t, newTestServer(t, nil))
	rec := c.get("/api/tasks/facets")
	require.Equal(t, http.StatusOK, rec.Code)

	var facets core.TaskFacets
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &facets))
	assert.Equal(t, 2, facets.StatusCounts[core.StatusTodo])
	assert.Equal(t, 0, facets.StatusCounts[core.StatusCanceled])
	assert.Equal(t, 1, facets.LabelCounts[core.LabelBug], "archived tasks are not counted")
	assert.Equal(t, 8.0, facets.Hours.Max)
}

// ============================================================================
// Infrastructure routes
// ============================================================================

func TestHealthAndStatic(t *testing.T) {
	c := newClient(t, newTestServer(t, nil))

	rec := c.get("/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = c.get("/static/app.js")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "data-debounce-ms")
}

func TestMetricsEndpoint(t *testing.T) {
	c := newClient(t, newTestServer(t, nil))
	c.get("/tasks?set.title=x")

	rec := c.get("/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `datatable_http_requests_total{method="GET",route="/tasks",status="303"} 1`)
	assert.Contains(t, body, `datatable_state_changes_total{kind="url",op="filter"} 1`)
}

func TestMetricsEndpoint_Token(t *testing.T) {
	c := newClient(t, newTestServer(t, map[string]string{"METRICS_TOKEN": "t0ken"}))

	assert.Equal(t, http.StatusUnauthorized, c.get("/metrics").Code)
	assert.Equal(t, http.StatusOK, c.get("/metrics", "Authorization", "Bearer t0ken").Code)
}

func TestMetricsDisabled(t *testing.T) {
	s := newTestServer(t, map[string]string{"METRICS_ENABLED": "false"})
	assert.Nil(t, s.Metrics())
	assert.Equal(t, http.StatusNotFound, newClient(t, s).get("/metrics").Code)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, map[string]string{
		"RATE_LIMIT_ENABLED":             "true",
		"RATE_LIMIT_REQUESTS_PER_MINUTE": "1",
		"RATE_LIMIT_BURST":               "1",
	})
	c := newClient(t, s)

	assert.Equal(t, http.StatusOK, c.get("/healthz").Code)

	rec := c.get("/healthz")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "RATE001")
}

// ============================================================================
// Helpers
// ============================================================================

func TestReturnURL(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"", "/tasks", true},
		{"/tasks?page=2&status=todo", "/tasks?page=2&status=todo", true},
		{"/tasks#top", "/tasks", true},
		{"//evil.example/tasks", "", false},
		{"https://evil.example/tasks", "", false},
		{`/\evil.example`, "", false},
		{"/other", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			u, err := returnURL(tt.raw)
			if !tt.ok {
				assert.ErrorIs(t, err, errInvalidReturn)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, u.String())
		})
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(errors.New("invalid filter value for x")))
	assert.Equal(t, http.StatusBadRequest, statusFor(core.ErrUnknownColumn))
	assert.Equal(t, http.StatusTooManyRequests, statusFor(errRateLimited))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(errors.New("dial: connection refused")))
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(context.DeadlineExceeded))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}

func TestFormatCellForExport(t *testing.T) {
	assert.Equal(t, "", formatCellForExport(nil))
	assert.Equal(t, "", formatCellForExport(time.Time{}))
	assert.Equal(t, "2024-03-10T12:00:00Z", formatCellForExport(testNow))
	assert.Equal(t, "1.5", formatCellForExport(1.5))
	assert.Equal(t, "true", formatCellForExport(true))
	assert.Equal(t, "'+1", formatCellForExport("+1"))
	assert.Equal(t, "plain", formatCellForExport("plain"))
}

func TestRateLimiterSweep(t *testing.T) {
	rl := newRateLimiter(60, 1, time.Minute)
	now := testNow
	rl.now = func() time.Time { return now }

	ok, _ := rl.reserve("198.51.100.1")
	assert.True(t, ok)
	ok, wait := rl.reserve("198.51.100.1")
	assert.False(t, ok)
	assert.Equal(t, time.Second, wait)

	now = now.Add(2 * time.Second)
	ok, _ = rl.reserve("198.51.100.1")
	assert.True(t, ok, "a token refills after a second")

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, rl.sweep())
	assert.Equal(t, 0, rl.sweep())
}
