package core

import (
	"fmt"
	"strings"
)

// WhereBuilder accumulates SQL conditions with numbered placeholders.
// Empty values are skipped so callers can add every optional filter
// unconditionally.
type WhereBuilder struct {
	conditions []string
	args       []any
	argIndex   int
}

// NewWhereBuilder returns an empty builder whose first placeholder is $1.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{argIndex: 1}
}

func (wb *WhereBuilder) add(cond string, args ...any) {
	wb.conditions = append(wb.conditions, cond)
	wb.args = append(wb.args, args...)
	wb.argIndex += len(args)
}

// AddBool adds an equality condition on a boolean column.
func (wb *WhereBuilder) AddBool(column string, value bool) {
	wb.add(fmt.Sprintf("%s = $%d", column, wb.argIndex), value)
}

// AddContains adds a case-insensitive substring match.
func (wb *WhereBuilder) AddContains(column string, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	wb.add(fmt.Sprintf("%s ILIKE $%d", column, wb.argIndex), "%"+escapeLike(value)+"%")
}

// AddIn adds a set membership condition using one array parameter.
func (wb *WhereBuilder) AddIn(column string, values []string) {
	if len(values) == 0 {
		return
	}
	wb.add(fmt.Sprintf("%s = ANY($%d)", column, wb.argIndex), values)
}

// AddRange adds inclusive bounds. A nil bound is open.
func (wb *WhereBuilder) AddRange(column string, lo, hi any) {
	if lo != nil {
		wb.add(fmt.Sprintf("%s >= $%d", column, wb.argIndex), lo)
	}
	if hi != nil {
		wb.add(fmt.Sprintf("%s <= $%d", column, wb.argIndex), hi)
	}
}

// NextArgIndex returns the number of the next placeholder, for LIMIT and
// OFFSET after the WHERE clause.
func (wb *WhereBuilder) NextArgIndex() int {
	return wb.argIndex
}

// Build returns " WHERE a AND b" and its arguments, or "" and nil when no
// condition was added.
func (wb *WhereBuilder) Build() (string, []any) {
	if len(wb.conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(wb.conditions, " AND "), wb.args
}

// quoteIdentifier quotes a SQL identifier to prevent injection.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
