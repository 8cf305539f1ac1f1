package core

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/JonMunkholm/datatable/internal/pagination"
)

// QueryTimeout bounds a single data-source call.
var QueryTimeout = 10 * time.Second

const tracerName = "github.com/JonMunkholm/datatable/internal/core"

// Service answers the tasks page's data requests.
type Service struct {
	store       TaskStore
	tracer      trace.Tracer
	maxPageSize int
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithMaxPageSize caps the per-page value a query may request.
func WithMaxPageSize(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.maxPageSize = n
		}
	}
}

// NewService creates a new Service over store.
func NewService(store TaskStore, opts ...ServiceOption) *Service {
	s := &Service{
		store:       store,
		tracer:      otel.Tracer(tracerName),
		maxPageSize: 100,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying task store.
func (s *Service) Store() TaskStore { return s.store }

func (s *Service) span(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "tasks."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// GetTasks returns one page of tasks and the page count for q.
// PerPage is clamped to the configured maximum and Page to the largest
// page whose offset fits an int; pages past the end come back empty.
func (s *Service) GetTasks(ctx context.Context, q TaskQuery) (result TasksResult, err error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = pagination.DefaultPageSize
	}
	if q.PerPage > s.maxPageSize {
		q.PerPage = s.maxPageSize
	}
	if limit := math.MaxInt/q.PerPage + 1; q.Page > limit {
		q.Page = limit
	}

	ctx, span := s.span(ctx, "GetTasks",
		attribute.Int("tasks.page", q.Page),
		attribute.Int("tasks.per_page", q.PerPage),
		attribute.Int("tasks.sort_count", len(q.Sort)),
	)
	defer func() { endSpan(span, err) }()

	if err := validateSort(q.Sort); err != nil {
		return TasksResult{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	tasks, total, err := s.store.ListTasks(ctx, q)
	if err != nil {
		return TasksResult{}, fmt.Errorf("list tasks: %w", err)
	}
	span.SetAttributes(attribute.Int64("tasks.total", total))

	return TasksResult{
		Data:      tasks,
		PageCount: pagination.PageCount(total, q.PerPage),
		Total:     total,
	}, nil
}

// GetTaskStatusCounts returns the number of tasks per status, including
// statuses with no tasks.
func (s *Service) GetTaskStatusCounts(ctx context.Context) (map[string]int, error) {
	return s.countBy(ctx, "status", Statuses)
}

// GetTaskPriorityCounts returns the number of tasks per priority.
func (s *Service) GetTaskPriorityCounts(ctx context.Context) (map[string]int, error) {
	return s.countBy(ctx, "priority", Priorities)
}

// GetTaskLabelCounts returns the number of tasks per label.
func (s *Service) GetTaskLabelCounts(ctx context.Context) (map[string]int, error) {
	return s.countBy(ctx, "label", Labels)
}

func (s *Service) countBy(ctx context.Context, column string, values []string) (counts map[string]int, err error) {
	ctx, span := s.span(ctx, "CountBy", attribute.String("tasks.column", column))
	defer func() { endSpan(span, err) }()

	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	raw, err := s.store.CountBy(ctx, column)
	if err != nil {
		return nil, fmt.Errorf("count tasks by %s: %w", column, err)
	}

	counts = make(map[string]int, len(values))
	for _, v := range values {
		counts[v] = raw[v]
	}
	return counts, nil
}

// GetEstimatedHoursRange returns the min and max estimated hours.
func (s *Service) GetEstimatedHoursRange(ctx context.Context) (r HoursRange, err error) {
	ctx, span := s.span(ctx, "GetEstimatedHoursRange")
	defer func() { endSpan(span, err) }()

	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	r, err = s.store.HoursRange(ctx)
	if err != nil {
		return HoursRange{}, fmt.Errorf("estimated hours range: %w", err)
	}
	return r, nil
}

// GetFacets loads every aggregate the tasks columns need for their filter
// widgets.
func (s *Service) GetFacets(ctx context.Context) (TaskFacets, error) {
	status, err := s.GetTaskStatusCounts(ctx)
	if err != nil {
		return TaskFacets{}, err
	}
	priority, err := s.GetTaskPriorityCounts(ctx)
	if err != nil {
		return TaskFacets{}, err
	}
	label, err := s.GetTaskLabelCounts(ctx)
	if err != nil {
		return TaskFacets{}, err
	}
	hours, err := s.GetEstimatedHoursRange(ctx)
	if err != nil {
		return TaskFacets{}, err
	}
	return TaskFacets{StatusCounts: status, PriorityCounts: priority, LabelCounts: label, Hours: hours}, nil
}

// Seed inserts n generated tasks and returns how many were written.
func (s *Service) Seed(ctx context.Context, n int, seed uint64) (written int64, err error) {
	ctx, span := s.span(ctx, "Seed", attribute.Int("tasks.count", n))
	defer func() { endSpan(span, err) }()

	written, err = s.store.InsertTasks(ctx, GenerateTasks(n, seed, time.Now()))
	if err != nil {
		return 0, fmt.Errorf("seed tasks: %w", err)
	}
	return written, nil
}
