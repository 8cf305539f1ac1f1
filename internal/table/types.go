// Package table is a small controlled table model: columns, rows, and the
// row pipeline (filter, sort, paginate) plus the state those steps read.
//
// The model keeps no state it is told to control. Every mutation is turned
// into an Updater and handed to the matching OnXChange callback; the owner
// applies it and feeds the new state back with SetState. Without a callback
// the model falls back to updating its own copy.
package table

import (
	"github.com/JonMunkholm/datatable/internal/filters"
	"github.com/JonMunkholm/datatable/internal/pagination"
)

// Variant selects the filter widget a column gets in the toolbar.
type Variant string

const (
	VariantText        Variant = "text"
	VariantNumber      Variant = "number"
	VariantRange       Variant = "range"
	VariantDate        Variant = "date"
	VariantDateRange   Variant = "dateRange"
	VariantSelect      Variant = "select"
	VariantMultiSelect Variant = "multiSelect"
)

// Option is one selectable value of a faceted filter.
type Option struct {
	Label string
	Value string
	Count int
	Icon  string
}

// ColumnMeta carries presentation hints for a column.
type ColumnMeta struct {
	Label       string
	Placeholder string
	Variant     Variant
	Options     []Option
	Range       [2]float64
	Unit        string
}

// HasOptions reports whether the column filters on a fixed option set.
// Such columns store their filter as an array in the URL.
func (m ColumnMeta) HasOptions() bool { return len(m.Options) > 0 }

// ColumnDef describes one column over rows of type T.
type ColumnDef[T any] struct {
	ID       string
	Header   string
	Accessor func(row T) any

	// Optional per-column switches. Nil falls back to Options.DefaultColumn.
	EnableColumnFilter *bool
	EnableSorting      *bool
	EnableHiding       *bool

	// FilterFn overrides the default client-side filter.
	FilterFn func(row T, value filters.Value) bool

	Meta ColumnMeta
}

// ColumnDefaults are applied to columns that leave a switch unset.
type ColumnDefaults struct {
	EnableColumnFilter *bool
	EnableSorting      *bool
	EnableHiding       *bool
}

// Bool returns a pointer to b, for the optional column switches.
func Bool(b bool) *bool { return &b }

// ColumnSort is one entry of the sorting state.
type ColumnSort struct {
	ID   string `json:"id"`
	Desc bool   `json:"desc"`
}

// ColumnPinning lists column ids pinned to either side.
type ColumnPinning struct {
	Left  []string
	Right []string
}

// State is the full controlled state of a table.
type State struct {
	Pagination       pagination.State
	Sorting          []ColumnSort
	ColumnFilters    []filters.ColumnFilter
	ColumnVisibility map[string]bool
	RowSelection     map[string]bool
	ColumnPinning    ColumnPinning
}

// Updater derives a new state slice from the old one.
type Updater[S any] func(old S) S

// Replace returns an updater that ignores the old value.
func Replace[S any](v S) Updater[S] {
	return func(S) S { return v }
}

// Options configure a Table.
type Options[T any] struct {
	Data          []T
	Columns       []ColumnDef[T]
	DefaultColumn ColumnDefaults

	// PageCount is the number of pages the data source reports when
	// pagination is manual. -1 means unknown.
	PageCount int

	// State is the controlled state. Zero-valued parts fall back to
	// InitialState.
	State        State
	InitialState State

	GetRowID func(row T, index int) string

	EnableRowSelection   bool
	EnableMultiSort      bool
	MaxMultiSortColCount int

	ManualPagination bool
	ManualFiltering  bool
	ManualSorting    bool

	OnPaginationChange       func(Updater[pagination.State])
	OnSortingChange          func(Updater[[]ColumnSort])
	OnColumnFiltersChange    func(Updater[[]filters.ColumnFilter])
	OnColumnVisibilityChange func(Updater[map[string]bool])
	OnRowSelectionChange     func(Updater[map[string]bool])
}
