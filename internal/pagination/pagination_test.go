package pagination

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromParams(t *testing.T) {
	tests := []struct {
		name        string
		params      Params
		defaultSize int
		want        State
	}{
		{"first page", Params{Page: 1, PerPage: 10}, 10, State{PageIndex: 0, PageSize: 10}},
		{"third page", Params{Page: 3, PerPage: 20}, 10, State{PageIndex: 2, PageSize: 20}},
		{"zero page clamps", Params{Page: 0, PerPage: 20}, 10, State{PageIndex: 0, PageSize: 20}},
		{"negative page clamps", Params{Page: -4, PerPage: 20}, 10, State{PageIndex: 0, PageSize: 20}},
		{"missing size uses default", Params{Page: 2}, 25, State{PageIndex: 1, PageSize: 25}},
		{"missing default uses package default", Params{Page: 2}, 0, State{PageIndex: 1, PageSize: DefaultPageSize}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromParams(tt.params, tt.defaultSize))
		})
	}
}

func TestToParams_RoundTrip(t *testing.T) {
	for _, s := range []State{{0, 10}, {4, 50}} {
		assert.Equal(t, s, FromParams(ToParams(s), 10))
	}
	assert.Equal(t, Params{Page: 1, PerPage: 10}, ToParams(State{PageIndex: -1, PageSize: 10}))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, State{PageIndex: 4, PageSize: 10}, State{PageIndex: 9, PageSize: 10}.Clamp(5))
	assert.Equal(t, State{PageIndex: 9, PageSize: 10}, State{PageIndex: 9, PageSize: 10}.Clamp(UnknownPageCount))
	assert.Equal(t, State{PageIndex: 0, PageSize: 10}, State{PageIndex: -2, PageSize: 10}.Clamp(3))
}

func TestOffsetAndPageCount(t *testing.T) {
	assert.Equal(t, 40, State{PageIndex: 2, PageSize: 20}.Offset())
	assert.Equal(t, 0, State{PageIndex: 2, PageSize: 0}.Offset())
	assert.Equal(t, math.MaxInt, State{PageIndex: math.MaxInt / 2, PageSize: 10}.Offset(), "saturates")

	assert.Equal(t, 1, PageCount(0, 10))
	assert.Equal(t, 1, PageCount(10, 10))
	assert.Equal(t, 2, PageCount(11, 10))
	assert.Equal(t, 3, PageCount(21, 0))
}
