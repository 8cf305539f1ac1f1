package core

import (
	"strings"

	"github.com/JonMunkholm/datatable/internal/table"
)

// TaskFacets are the aggregates the tasks columns show in their filters.
type TaskFacets struct {
	StatusCounts   map[string]int `json:"statusCounts"`
	PriorityCounts map[string]int `json:"priorityCounts"`
	LabelCounts    map[string]int `json:"labelCounts"`
	Hours          HoursRange     `json:"estimatedHours"`
}

var statusIcons = map[string]string{
	StatusTodo:       "circle",
	StatusInProgress: "timer",
	StatusDone:       "circle-check",
	StatusCanceled:   "circle-x",
}

var priorityIcons = map[string]string{
	PriorityLow:    "arrow-down",
	PriorityMedium: "arrow-right",
	PriorityHigh:   "arrow-up",
}

// Title turns a status, label or priority value into display text:
// "in-progress" becomes "In Progress".
func Title(value string) string {
	words := strings.FieldsFunc(value, func(r rune) bool { return r == '-' || r == '_' || r == ' ' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func options(values []string, counts map[string]int, icons map[string]string) []table.Option {
	opts := make([]table.Option, len(values))
	for i, v := range values {
		opts[i] = table.Option{Label: Title(v), Value: v, Count: counts[v], Icon: icons[v]}
	}
	return opts
}

// TaskColumns returns the tasks table's columns. Title, status, priority,
// label, estimated hours and created date sync their filters to the URL.
func TaskColumns(f TaskFacets) []table.ColumnDef[Task] {
	on, off := table.Bool(true), table.Bool(false)

	return []table.ColumnDef[Task]{
		{
			ID:            "select",
			EnableSorting: off,
			EnableHiding:  off,
		},
		{
			ID:           "code",
			Header:       "Task",
			Accessor:     func(t Task) any { return t.Code },
			EnableHiding: off,
			Meta:         table.ColumnMeta{Label: "Task"},
		},
		{
			ID:                 "title",
			Header:             "Title",
			Accessor:           func(t Task) any { return t.Title },
			EnableColumnFilter: on,
			Meta: table.ColumnMeta{
				Label:       "Title",
				Placeholder: "Search titles...",
				Variant:     table.VariantText,
			},
		},
		{
			ID:                 "status",
			Header:             "Status",
			Accessor:           func(t Task) any { return t.Status },
			EnableColumnFilter: on,
			Meta: table.ColumnMeta{
				Label:   "Status",
				Variant: table.VariantMultiSelect,
				Options: options(Statuses, f.StatusCounts, statusIcons),
			},
		},
		{
			ID:                 "priority",
			Header:             "Priority",
			Accessor:           func(t Task) any { return t.Priority },
			EnableColumnFilter: on,
			Meta: table.ColumnMeta{
				Label:   "Priority",
				Variant: table.VariantMultiSelect,
				Options: options(Priorities, f.PriorityCounts, priorityIcons),
			},
		},
		{
			ID:                 "label",
			Header:             "Label",
			Accessor:           func(t Task) any { return t.Label },
			EnableColumnFilter: on,
			Meta: table.ColumnMeta{
				Label:   "Label",
				Variant: table.VariantMultiSelect,
				Options: options(Labels, f.LabelCounts, nil),
			},
		},
		{
			ID:                 "estimatedHours",
			Header:             "Est. Hours",
			Accessor:           func(t Task) any { return t.EstimatedHours },
			EnableColumnFilter: on,
			Meta: table.ColumnMeta{
				Label:   "Est. Hours",
				Variant: table.VariantRange,
				Range:   [2]float64{f.Hours.Min, f.Hours.Max},
				Unit:    "hr",
			},
		},
		{
			ID:                 "createdAt",
			Header:             "Created At",
			Accessor:           func(t Task) any { return t.CreatedAt },
			EnableColumnFilter: on,
			Meta: table.ColumnMeta{
				Label:   "Created At",
				Variant: table.VariantDateRange,
			},
		},
		{
			ID:            "actions",
			EnableSorting: off,
			EnableHiding:  off,
		},
	}
}

// TaskRowID keys table rows by task id.
func TaskRowID(t Task, _ int) string { return t.ID }
