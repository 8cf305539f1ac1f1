package core

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnknownColumn is returned for sort or count requests naming a column
// the tasks table does not have.
var ErrUnknownColumn = errors.New("unknown column")

// TaskStore is a source of tasks. Implementations must be safe for
// concurrent use.
type TaskStore interface {
	// ListTasks returns the requested page and the total number of
	// matching tasks.
	ListTasks(ctx context.Context, q TaskQuery) ([]Task, int64, error)

	// CountBy counts non-archived tasks per distinct value of column.
	CountBy(ctx context.Context, column string) (map[string]int, error)

	// HoursRange returns the estimated hours span of non-archived tasks.
	HoursRange(ctx context.Context) (HoursRange, error)

	// InsertTasks bulk-inserts tasks and returns the number written.
	InsertTasks(ctx context.Context, tasks []Task) (int64, error)

	Close()
}

// taskColumn maps a public column id to its database column.
type taskColumn struct {
	id       string
	db       string
	sortable bool
	countBy  bool
}

var taskColumns = []taskColumn{
	{id: "id", db: "id"},
	{id: "code", db: "code", sortable: true},
	{id: "title", db: "title", sortable: true},
	{id: "status", db: "status", sortable: true, countBy: true},
	{id: "label", db: "label", sortable: true, countBy: true},
	{id: "priority", db: "priority", sortable: true, countBy: true},
	{id: "estimatedHours", db: "estimated_hours", sortable: true},
	{id: "archived", db: "archived"},
	{id: "createdAt", db: "created_at", sortable: true},
	{id: "updatedAt", db: "updated_at"},
}

func lookupColumn(id string) (taskColumn, bool) {
	for _, c := range taskColumns {
		if c.id == id {
			return c, true
		}
	}
	return taskColumn{}, false
}

func sortColumn(id string) (taskColumn, error) {
	c, ok := lookupColumn(id)
	if !ok || !c.sortable {
		return taskColumn{}, fmt.Errorf("%w: %s", ErrUnknownColumn, id)
	}
	return c, nil
}

func countColumn(id string) (taskColumn, error) {
	c, ok := lookupColumn(id)
	if !ok || !c.countBy {
		return taskColumn{}, fmt.Errorf("%w: %s", ErrUnknownColumn, id)
	}
	return c, nil
}

// validateSort rejects sort entries on unknown or unsortable columns.
func validateSort(sorts []SortSpec) error {
	for _, s := range sorts {
		if _, err := sortColumn(s.Column); err != nil {
			return err
		}
	}
	return nil
}
