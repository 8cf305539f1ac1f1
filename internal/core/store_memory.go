package core

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// MemoryStore keeps tasks in process memory. It backs the demo server when
// no database is configured, and the service tests.
type MemoryStore struct {
	mu    sync.RWMutex
	tasks []Task
	ids   map[string]struct{}
}

// NewMemoryStore returns a store holding a copy of tasks.
func NewMemoryStore(tasks ...Task) *MemoryStore {
	s := &MemoryStore{ids: make(map[string]struct{})}
	if _, err := s.InsertTasks(context.Background(), tasks); err != nil {
		panic(err)
	}
	return s
}

// InsertTasks appends tasks. A duplicate id fails the whole batch.
func (s *MemoryStore) InsertTasks(_ context.Context, tasks []Task) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(tasks))
	for _, t := range tasks {
		if _, dup := s.ids[t.ID]; dup {
			return 0, fmt.Errorf("insert tasks: duplicate key %q", t.ID)
		}
		if _, dup := seen[t.ID]; dup {
			return 0, fmt.Errorf("insert tasks: duplicate key %q", t.ID)
		}
		seen[t.ID] = struct{}{}
	}
	for _, t := range tasks {
		s.ids[t.ID] = struct{}{}
		s.tasks = append(s.tasks, t)
	}
	return int64(len(tasks)), nil
}

// ListTasks filters, sorts and pages the stored tasks.
func (s *MemoryStore) ListTasks(_ context.Context, q TaskQuery) ([]Task, int64, error) {
	if err := validateSort(q.Sort); err != nil {
		return nil, 0, err
	}

	s.mu.RLock()
	matched := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if matchTask(t, q) {
			matched = append(matched, t)
		}
	}
	s.mu.RUnlock()

	slices.SortStableFunc(matched, func(a, b Task) int {
		return compareTasks(a, b, q.Sort)
	})

	total := int64(len(matched))
	if q.PerPage <= 0 {
		return matched, total, nil
	}
	start := q.Offset()
	if start >= len(matched) {
		return []Task{}, total, nil
	}
	end := start + min(q.PerPage, len(matched)-start)
	return matched[start:end], total, nil
}

// CountBy counts non-archived tasks per value of column.
func (s *MemoryStore) CountBy(_ context.Context, column string) (map[string]int, error) {
	col, err := countColumn(column)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, t := range s.tasks {
		if t.Archived {
			continue
		}
		switch col.id {
		case "status":
			counts[t.Status]++
		case "label":
			counts[t.Label]++
		case "priority":
			counts[t.Priority]++
		}
	}
	return counts, nil
}

// HoursRange returns the min and max estimated hours of non-archived tasks,
// or a zero range when there are none.
func (s *MemoryStore) HoursRange(_ context.Context) (HoursRange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var r HoursRange
	first := true
	for _, t := range s.tasks {
		if t.Archived {
			continue
		}
		if first {
			r = HoursRange{Min: t.EstimatedHours, Max: t.EstimatedHours}
			first = false
			continue
		}
		r.Min = min(r.Min, t.EstimatedHours)
		r.Max = max(r.Max, t.EstimatedHours)
	}
	return r, nil
}

// Len returns the number of stored tasks.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

func (s *MemoryStore) Close() {}

func matchTask(t Task, q TaskQuery) bool {
	if t.Archived && !q.IncludeArchived {
		return false
	}
	if title := strings.TrimSpace(q.Title); title != "" &&
		!strings.Contains(strings.ToLower(t.Title), strings.ToLower(title)) {
		return false
	}
	if len(q.Status) > 0 && !slices.Contains(q.Status, t.Status) {
		return false
	}
	if len(q.Priority) > 0 && !slices.Contains(q.Priority, t.Priority) {
		return false
	}
	if len(q.Label) > 0 && !slices.Contains(q.Label, t.Label) {
		return false
	}
	if q.CreatedFrom != nil && t.CreatedAt.Before(*q.CreatedFrom) {
		return false
	}
	if q.CreatedTo != nil && t.CreatedAt.After(*q.CreatedTo) {
		return false
	}
	if q.HoursMin != nil && t.EstimatedHours < *q.HoursMin {
		return false
	}
	if q.HoursMax != nil && t.EstimatedHours > *q.HoursMax {
		return false
	}
	return true
}

// compareTasks orders by the sort list, then by creation time and id so
// pages are stable. This matches the ORDER BY the Postgres store emits.
func compareTasks(a, b Task, sorts []SortSpec) int {
	for _, s := range sorts {
		c := compareField(a, b, s.Column)
		if s.Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

func compareField(a, b Task, column string) int {
	switch column {
	case "code":
		return cmp.Compare(a.Code, b.Code)
	case "title":
		return cmp.Compare(a.Title, b.Title)
	case "status":
		return cmp.Compare(a.Status, b.Status)
	case "label":
		return cmp.Compare(a.Label, b.Label)
	case "priority":
		return cmp.Compare(a.Priority, b.Priority)
	case "estimatedHours":
		return cmp.Compare(a.EstimatedHours, b.EstimatedHours)
	case "createdAt":
		return a.CreatedAt.Compare(b.CreatedAt)
	}
	return 0
}
