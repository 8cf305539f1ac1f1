package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/datatable/internal/datatable"
	"github.com/JonMunkholm/datatable/internal/filters"
	"github.com/JonMunkholm/datatable/internal/querystate"
	"github.com/JonMunkholm/datatable/internal/table"
)

// Date input suffixes, appended to InputPrefix + column id.
const (
	OnSuffix   = ".on"
	FromSuffix = ".from"
	ToSuffix   = ".to"
)

// ApplyInputs folds submitted widget input parameters into the coordinated
// table's column filters, which writes them to the URL the usual way. The
// input parameters are removed. It reports whether any input was present.
func ApplyInputs[T any](c *datatable.Coordinator[T], loc *time.Location) (bool, error) {
	if loc == nil {
		loc = time.UTC
	}
	values := c.Query().Values()

	var present []string
	for key := range values {
		if strings.HasPrefix(key, InputPrefix) {
			present = append(present, key)
		}
	}
	if len(present) == 0 {
		return false, nil
	}

	t := c.Table()
	for _, col := range t.FilterableColumns() {
		v, ok, err := inputValue(values, col, loc)
		if err != nil {
			return true, err
		}
		if ok {
			col.SetFilterValue(v)
		}
	}

	for _, key := range present {
		c.Query().Delete(key, querystate.Options{History: querystate.HistoryReplace})
	}
	return true, nil
}

func inputValue[T any](values map[string][]string, col *table.Column[T], loc *time.Location) (filters.Value, bool, error) {
	get := func(suffix string) (string, bool) {
		v, ok := values[InputPrefix+col.ID+suffix]
		if !ok || len(v) == 0 {
			return "", ok
		}
		return strings.TrimSpace(v[0]), true
	}

	switch col.Meta().Variant {
	case table.VariantDate:
		on, ok := get(OnSuffix)
		if !ok {
			return filters.Value{}, false, nil
		}
		if on == "" {
			return filters.None(), true, nil
		}
		day, err := time.ParseInLocation(inputDateLayout, on, loc)
		if err != nil {
			return filters.Value{}, false, fmt.Errorf("invalid filter value for %s: %q", col.ID, on)
		}
		return DayRange(day, day), true, nil

	case table.VariantDateRange:
		from, hasFrom := get(FromSuffix)
		to, hasTo := get(ToSuffix)
		if !hasFrom && !hasTo {
			return filters.Value{}, false, nil
		}
		if from == "" && to == "" {
			return filters.None(), true, nil
		}
		bounds := make([]string, 2)
		for i, s := range []string{from, to} {
			if s == "" {
				continue
			}
			day, err := time.ParseInLocation(inputDateLayout, s, loc)
			if err != nil {
				return filters.Value{}, false, fmt.Errorf("invalid filter value for %s: %q", col.ID, s)
			}
			r := DayRange(day, day).List()
			bounds[i] = r[i]
		}
		return filters.Strings(bounds), true, nil

	case table.VariantSelect, table.VariantMultiSelect:
		raw, ok := values[InputPrefix+col.ID]
		if !ok {
			return filters.Value{}, false, nil
		}
		var picked []string
		for _, v := range raw {
			if v = strings.TrimSpace(v); v != "" {
				picked = append(picked, v)
			}
		}
		if len(picked) == 0 {
			return filters.None(), true, nil
		}
		return filters.Strings(picked), true, nil
	}

	text, ok := get("")
	if !ok {
		return filters.Value{}, false, nil
	}
	if text == "" {
		return filters.None(), true, nil
	}
	return filters.String(text), true, nil
}
