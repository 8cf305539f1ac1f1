package table

import "maps"

// Row is one data row bound to its table.
type Row[T any] struct {
	table    *Table[T]
	ID       string
	Index    int
	Original T
}

// Value returns the accessor value of the column with id.
func (r *Row[T]) Value(columnID string) any {
	c := r.table.Column(columnID)
	if c == nil || c.def.Accessor == nil {
		return nil
	}
	return c.def.Accessor(r.Original)
}

// CanSelect reports whether row selection is enabled.
func (r *Row[T]) CanSelect() bool { return r.table.opts.EnableRowSelection }

// IsSelected reports whether the row is selected.
func (r *Row[T]) IsSelected() bool { return r.table.state.RowSelection[r.ID] }

// ToggleSelected selects or deselects the row.
func (r *Row[T]) ToggleSelected(selected bool) {
	if !r.CanSelect() {
		return
	}
	id := r.ID
	r.table.SetRowSelection(func(old map[string]bool) map[string]bool {
		next := maps.Clone(old)
		if next == nil {
			next = map[string]bool{}
		}
		if selected {
			next[id] = true
		} else {
			delete(next, id)
		}
		return next
	})
}
