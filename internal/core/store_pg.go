package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const tasksTable = "tasks"

// PgStore reads and writes tasks in PostgreSQL.
type PgStore struct {
	db    DBTX
	close func()
}

// NewPgStore returns a store over pool. Close closes the pool.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{db: pool, close: pool.Close}
}

func (s *PgStore) Close() {
	if s.close != nil {
		s.close()
	}
}

var selectColumns = []string{
	"id", "code", "title", "status", "label", "priority",
	"estimated_hours", "archived", "created_at", "updated_at",
}

// buildListQuery returns the count query, the page query and their shared
// arguments. The page query appends LIMIT and OFFSET placeholders.
func buildListQuery(q TaskQuery) (countSQL, listSQL string, args []any, err error) {
	wb := NewWhereBuilder()
	if !q.IncludeArchived {
		wb.AddBool("archived", false)
	}
	wb.AddContains("title", q.Title)
	wb.AddIn("status", q.Status)
	wb.AddIn("priority", q.Priority)
	wb.AddIn("label", q.Label)
	if q.CreatedFrom != nil || q.CreatedTo != nil {
		var lo, hi any
		if q.CreatedFrom != nil {
			lo = *q.CreatedFrom
		}
		if q.CreatedTo != nil {
			hi = *q.CreatedTo
		}
		wb.AddRange("created_at", lo, hi)
	}
	if q.HoursMin != nil || q.HoursMax != nil {
		var lo, hi any
		if q.HoursMin != nil {
			lo = *q.HoursMin
		}
		if q.HoursMax != nil {
			hi = *q.HoursMax
		}
		wb.AddRange("estimated_hours", lo, hi)
	}
	whereClause, args := wb.Build()

	var orderParts []string
	for _, sort := range q.Sort {
		col, err := sortColumn(sort.Column)
		if err != nil {
			return "", "", nil, err
		}
		dir := "ASC"
		if sort.Desc {
			dir = "DESC"
		}
		orderParts = append(orderParts, fmt.Sprintf("%s %s", quoteIdentifier(col.db), dir))
	}
	orderParts = append(orderParts, `"created_at" ASC`, `"id" ASC`)

	quoted := make([]string, len(selectColumns))
	for i, c := range selectColumns {
		quoted[i] = quoteIdentifier(c)
	}

	countSQL = fmt.Sprintf("SELECT COUNT(*) FROM %s%s", quoteIdentifier(tasksTable), whereClause)
	listSQL = fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s",
		strings.Join(quoted, ", "),
		quoteIdentifier(tasksTable),
		whereClause,
		strings.Join(orderParts, ", "),
	)
	if q.PerPage > 0 {
		argIndex := wb.NextArgIndex()
		listSQL += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	}
	return countSQL, listSQL, args, nil
}

// ListTasks runs the count and the page query with the same filters.
func (s *PgStore) ListTasks(ctx context.Context, q TaskQuery) ([]Task, int64, error) {
	countSQL, listSQL, args, err := buildListQuery(q)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.db.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	listArgs := args
	if q.PerPage > 0 {
		listArgs = append(append([]any{}, args...), q.PerPage, q.Offset())
	}

	rows, err := s.db.Query(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []Task{}
	for rows.Next() {
		var t Task
		if err := rows.Scan(
			&t.ID, &t.Code, &t.Title, &t.Status, &t.Label, &t.Priority,
			&t.EstimatedHours, &t.Archived, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows error: %w", err)
	}

	return tasks, total, nil
}

// CountBy groups non-archived tasks by column.
func (s *PgStore) CountBy(ctx context.Context, column string) (map[string]int, error) {
	col, err := countColumn(column)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		"SELECT %[1]s, COUNT(*) FROM %[2]s WHERE archived = false GROUP BY %[1]s",
		quoteIdentifier(col.db),
		quoteIdentifier(tasksTable),
	)
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count tasks by %s: %w", column, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			value string
			n     int64
		)
		if err := rows.Scan(&value, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[value] = int(n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return counts, nil
}

// HoursRange returns the estimated hours span, zero when the table is empty.
func (s *PgStore) HoursRange(ctx context.Context) (HoursRange, error) {
	query := fmt.Sprintf(
		"SELECT COALESCE(MIN(estimated_hours), 0), COALESCE(MAX(estimated_hours), 0) FROM %s WHERE archived = false",
		quoteIdentifier(tasksTable),
	)
	var r HoursRange
	if err := s.db.QueryRow(ctx, query).Scan(&r.Min, &r.Max); err != nil {
		return HoursRange{}, fmt.Errorf("hours range: %w", err)
	}
	return r, nil
}

// InsertTasks bulk-loads tasks with COPY.
func (s *PgStore) InsertTasks(ctx context.Context, tasks []Task) (int64, error) {
	if len(tasks) == 0 {
		return 0, nil
	}
	n, err := s.db.CopyFrom(ctx,
		pgx.Identifier{tasksTable},
		selectColumns,
		pgx.CopyFromSlice(len(tasks), func(i int) ([]any, error) {
			t := tasks[i]
			return []any{
				t.ID, t.Code, t.Title, t.Status, t.Label, t.Priority,
				t.EstimatedHours, t.Archived, t.CreatedAt, t.UpdatedAt,
			}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("copy tasks: %w", err)
	}
	return n, nil
}
