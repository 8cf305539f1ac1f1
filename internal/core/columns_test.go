package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/datatable/internal/table"
)

func TestTitle(t *testing.T) {
	assert.Equal(t, "In Progress", Title("in-progress"))
	assert.Equal(t, "Todo", Title("todo"))
	assert.Equal(t, "", Title(""))
}

func TestTaskColumns(t *testing.T) {
	cols := TaskColumns(TaskFacets{
		StatusCounts: map[string]int{StatusTodo: 3},
		LabelCounts:  map[string]int{LabelBug: 2},
		Hours:        HoursRange{Min: 0.5, Max: 24},
	})

	byID := map[string]table.ColumnDef[Task]{}
	var filterable []string
	for _, c := range cols {
		byID[c.ID] = c
		if c.EnableColumnFilter != nil && *c.EnableColumnFilter {
			filterable = append(filterable, c.ID)
		}
	}
	assert.Equal(t, []string{"title", "status", "priority", "label", "estimatedHours", "createdAt"}, filterable)

	status := byID["status"]
	require.Len(t, status.Meta.Options, len(Statuses))
	assert.Equal(t, table.Option{Label: "Todo", Value: StatusTodo, Count: 3, Icon: "circle"}, status.Meta.Options[0])
	assert.Equal(t, 0, status.Meta.Options[1].Count)

	label := byID["label"]
	assert.Equal(t, table.VariantMultiSelect, label.Meta.Variant)
	require.Len(t, label.Meta.Options, len(Labels))
	assert.Equal(t, table.Option{Label: "Bug", Value: LabelBug, Count: 2}, label.Meta.Options[0])

	assert.Equal(t, [2]float64{0.5, 24}, byID["estimatedHours"].Meta.Range)
	assert.Equal(t, "Search titles...", byID["title"].Meta.Placeholder)
	assert.Nil(t, byID["actions"].Accessor)

	task := Task{ID: "abc", Title: "x"}
	assert.Equal(t, "x", byID["title"].Accessor(task))
	assert.Equal(t, "abc", TaskRowID(task, 0))
}
