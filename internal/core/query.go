package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/datatable/internal/filters"
	"github.com/JonMunkholm/datatable/internal/pagination"
	"github.com/JonMunkholm/datatable/internal/table"
)

// TaskQueryFrom builds the data-source query for the table state. values
// are the raw filter values keyed by column id; range filters hold
// "from,to" where either side may be empty.
func TaskQueryFrom(p pagination.State, values map[string]filters.Value, sorting []table.ColumnSort) (TaskQuery, error) {
	params := pagination.ToParams(p)
	q := TaskQuery{
		Page:     params.Page,
		PerPage:  params.PerPage,
		Title:    strings.TrimSpace(values["title"].Text()),
		Status:   values["status"].List(),
		Priority: values["priority"].List(),
		Label:    values["label"].List(),
	}

	if v := values["createdAt"]; !v.IsEmpty() {
		from, to, err := msRange(v)
		if err != nil {
			return TaskQuery{}, fmt.Errorf("invalid filter value for createdAt: %w", err)
		}
		q.CreatedFrom, q.CreatedTo = from, to
	}
	if v := values["estimatedHours"]; !v.IsEmpty() {
		lo, hi, err := floatRange(v)
		if err != nil {
			return TaskQuery{}, fmt.Errorf("invalid filter value for estimatedHours: %w", err)
		}
		q.HoursMin, q.HoursMax = lo, hi
	}

	for _, s := range sorting {
		if _, err := sortColumn(s.ID); err != nil {
			continue
		}
		q.Sort = append(q.Sort, SortSpec{Column: s.ID, Desc: s.Desc})
	}
	return q, nil
}

// bounds splits a range filter into its two sides. A string value is split
// on commas; an array value is taken item by item.
func bounds(v filters.Value) (lo, hi string) {
	parts := v.List()
	if v.Kind() == filters.KindString {
		parts = strings.Split(v.Text(), ",")
	}
	if len(parts) > 0 {
		lo = strings.TrimSpace(parts[0])
	}
	if len(parts) > 1 {
		hi = strings.TrimSpace(parts[1])
	}
	return lo, hi
}

func msRange(v filters.Value) (from, to *time.Time, err error) {
	lo, hi := bounds(v)
	parse := func(s string) (*time.Time, error) {
		if s == "" {
			return nil, nil
		}
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a timestamp", s)
		}
		t := time.UnixMilli(ms).UTC()
		return &t, nil
	}
	if from, err = parse(lo); err != nil {
		return nil, nil, err
	}
	if to, err = parse(hi); err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

func floatRange(v filters.Value) (lo, hi *float64, err error) {
	a, b := bounds(v)
	parse := func(s string) (*float64, error) {
		if s == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", s)
		}
		return &f, nil
	}
	if lo, err = parse(a); err != nil {
		return nil, nil, err
	}
	if hi, err = parse(b); err != nil {
		return nil, nil, err
	}
	return lo, hi, nil
}
