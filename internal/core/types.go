package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/datatable/internal/pagination"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Task is one row of the tasks table.
type Task struct {
	ID             string    `json:"id"`
	Code           string    `json:"code"`
	Title          string    `json:"title"`
	Status         string    `json:"status"`
	Label          string    `json:"label"`
	Priority       string    `json:"priority"`
	EstimatedHours float64   `json:"estimatedHours"`
	Archived       bool      `json:"archived"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Task statuses.
const (
	StatusTodo       = "todo"
	StatusInProgress = "in-progress"
	StatusDone       = "done"
	StatusCanceled   = "canceled"
)

// Task labels.
const (
	LabelBug           = "bug"
	LabelFeature       = "feature"
	LabelEnhancement   = "enhancement"
	LabelDocumentation = "documentation"
)

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

var (
	Statuses   = []string{StatusTodo, StatusInProgress, StatusDone, StatusCanceled}
	Labels     = []string{LabelBug, LabelFeature, LabelEnhancement, LabelDocumentation}
	Priorities = []string{PriorityLow, PriorityMedium, PriorityHigh}
)

// SortSpec orders query results by one column.
type SortSpec struct {
	Column string `json:"column"`
	Desc   bool   `json:"desc"`
}

// TaskQuery selects one page of tasks.
type TaskQuery struct {
	Page    int // 1-indexed
	PerPage int

	Title    string
	Status   []string
	Priority []string
	Label    []string

	CreatedFrom *time.Time
	CreatedTo   *time.Time
	HoursMin    *float64
	HoursMax    *float64

	IncludeArchived bool

	Sort []SortSpec
}

// Offset returns the number of tasks before the requested page.
func (q TaskQuery) Offset() int {
	return pagination.State{PageIndex: max(q.Page, 1) - 1, PageSize: q.PerPage}.Offset()
}

// TasksResult is one page of tasks and the number of pages available.
type TasksResult struct {
	Data      []Task `json:"data"`
	PageCount int    `json:"pageCount"`
	Total     int64  `json:"total"`
}

// HoursRange is the span of estimated hours across all tasks.
type HoursRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}
