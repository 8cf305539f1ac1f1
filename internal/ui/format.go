package ui

import (
	"fmt"
	"strconv"
	"time"

	"github.com/JonMunkholm/datatable/internal/table"
)

// FormatCell renders a cell value as display text. Values of option
// columns show the option label; numbers carry the column unit.
func FormatCell(meta table.ColumnMeta, v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case time.Time:
		if val.IsZero() {
			return ""
		}
		return val.Format(DateLayout)
	case bool:
		if val {
			return "Yes"
		}
		return "No"
	case float64:
		return withUnit(strconv.FormatFloat(val, 'f', -1, 64), meta.Unit)
	case float32:
		return withUnit(strconv.FormatFloat(float64(val), 'f', -1, 32), meta.Unit)
	case int:
		return withUnit(strconv.Itoa(val), meta.Unit)
	case int64:
		return withUnit(strconv.FormatInt(val, 10), meta.Unit)
	case string:
		for _, o := range meta.Options {
			if o.Value == val {
				return o.Label
			}
		}
		return val
	}
	return fmt.Sprint(v)
}

func withUnit(s, unit string) string {
	if unit == "" {
		return s
	}
	return s + " " + unit
}
