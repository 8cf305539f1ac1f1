package ui

import (
	"github.com/a-h/templ"

	"github.com/JonMunkholm/datatable/internal/datatable"
	"github.com/JonMunkholm/datatable/internal/table"
)

// ToolbarProps drive the row above the table.
type ToolbarProps struct {
	Widgets  []templ.Component
	ResetURL string
	View     ViewOptionsProps
}

// FilterWidget returns the widget for a filterable column, or nil when its
// variant has none.
func FilterWidget[T any](c *datatable.Coordinator[T], col *table.Column[T], opts Options) templ.Component {
	switch col.Meta().Variant {
	case table.VariantText, table.VariantNumber:
		return TextFilter(BuildTextFilter(c, col))
	case table.VariantDate, table.VariantDateRange:
		return DateFilter(BuildDateFilter(c, col, opts))
	case table.VariantSelect, table.VariantMultiSelect:
		return FacetedFilter(BuildFacetedFilter(c, col))
	}
	return nil
}

// BuildToolbar mounts a widget per visible filterable column and offers a
// reset link while any filter is active.
func BuildToolbar[T any](c *datatable.Coordinator[T], opts Options) ToolbarProps {
	t := c.Table()
	p := ToolbarProps{View: BuildViewOptions(c, opts)}
	for _, col := range t.FilterableColumns() {
		if !col.IsVisible() {
			continue
		}
		if w := FilterWidget(c, col, opts); w != nil {
			p.Widgets = append(p.Widgets, w)
		}
	}
	if t.IsFiltered() {
		p.ResetURL = c.Preview(func(t *table.Table[T]) { t.ResetColumnFilters() })
	}
	return p
}

// Toolbar renders the filter widgets, the reset link and the view options.
func Toolbar[T any](c *datatable.Coordinator[T], opts Options) templ.Component {
	return toolbarView(BuildToolbar(c, opts))
}

// viewParams are the hidden fields of a view operation form.
func viewParams(op, returnURL string, fields ...Param) []Param {
	return append([]Param{{Name: "op", Value: op}, {Name: "return", Value: returnURL}}, fields...)
}
