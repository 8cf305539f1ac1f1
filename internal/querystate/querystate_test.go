package querystate

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestInteger_Parse(t *testing.T) {
	tests := []struct {
		raw    string
		want   int
		wantOK bool
	}{
		{"1", 1, true},
		{" 42 ", 42, true},
		{"-3", -3, true},
		{"", 0, false},
		{"abc", 0, false},
		{"12abc", 0, false},
	}

	p := Integer()
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := p.Parse(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestArrayOf_RoundTrip(t *testing.T) {
	p := ArrayOf(String(), ",")

	raw := p.Serialize([]string{"todo", "a,b", "done"})
	assert.Equal(t, "todo,a%2Cb,done", raw)

	got, ok := p.Parse(raw)
	require.True(t, ok)
	assert.Equal(t, []string{"todo", "a,b", "done"}, got)
}

func TestArrayOf_RoundTripEscapedSeparator(t *testing.T) {
	p := ArrayOf(String(), ",")

	items := []string{"a%2Cb", "50%", "x,%y"}
	raw := p.Serialize(items)
	assert.Equal(t, "a%252Cb,50%25,x%2C%25y", raw)

	got, ok := p.Parse(raw)
	require.True(t, ok)
	assert.Equal(t, items, got)
}

func TestArrayOf_EmptyAndBlankItems(t *testing.T) {
	p := ArrayOf(String(), ",")

	got, ok := p.Parse("")
	require.True(t, ok)
	assert.Empty(t, got)

	got, _ = p.Parse("a,,b,")
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestArrayOf_DropsInvalidItems(t *testing.T) {
	p := ArrayOf(Integer(), "|")

	got, ok := p.Parse("1|x|3")
	require.True(t, ok)
	assert.Equal(t, []int{1, 3}, got)
	assert.Equal(t, "1|3", p.Serialize(got))
}

func TestGet_DefaultsAndInvalid(t *testing.T) {
	s := NewStore(mustURL(t, "/tasks?page=abc&perPage=20"))
	page := Integer().WithDefault(1)
	perPage := Integer().WithDefault(10)
	title := String()

	v, ok := Get(s, "page", page)
	assert.True(t, ok)
	assert.Equal(t, 1, v, "invalid value falls back to default")

	v, _ = Get(s, "perPage", perPage)
	assert.Equal(t, 20, v)

	str, ok := Get(s, "title", title)
	assert.False(t, ok)
	assert.Equal(t, "", str)
}

func TestSet_ClearOnDefault(t *testing.T) {
	s := NewStore(mustURL(t, "/tasks?page=3"))
	page := Integer().WithDefault(1).WithOptions(Options{ClearOnDefault: true})

	Set(s, "page", page, 1)
	_, present := s.Raw("page")
	assert.False(t, present, "default value is omitted")
	assert.Equal(t, "/tasks", s.String())

	Set(s, "page", page, 2)
	assert.Equal(t, "/tasks?page=2", s.String())
}

func TestSet_KeepsDefaultWithoutClearOnDefault(t *testing.T) {
	s := NewStore(mustURL(t, "/tasks"))
	page := Integer().WithDefault(1)

	Set(s, "page", page, 1)
	assert.Equal(t, "/tasks?page=1", s.String())
}

func TestStore_HistoryMerging(t *testing.T) {
	s := NewStore(mustURL(t, "/tasks"))
	assert.False(t, s.Changed())
	assert.Equal(t, HistoryReplace, s.History())
	assert.True(t, s.Shallow())

	Set(s, "a", String().WithOptions(Options{History: HistoryReplace, Shallow: true}), "x")
	assert.Equal(t, HistoryReplace, s.History())
	assert.True(t, s.Shallow())

	Set(s, "b", String().WithOptions(Options{History: HistoryPush}), "y")
	assert.Equal(t, HistoryPush, s.History())
	assert.False(t, s.Shallow())

	Set(s, "c", String().WithOptions(Options{History: HistoryReplace, Scroll: true}), "z")
	assert.Equal(t, HistoryPush, s.History(), "push is sticky")
	assert.True(t, s.Scroll())
	assert.True(t, s.Changed())
}

func TestStore_CloneIsIndependent(t *testing.T) {
	s := NewStore(mustURL(t, "/tasks?status=todo"))
	c := s.Clone()

	Set(c, "status", String(), "done")
	Clear(c, "missing", String())

	raw, _ := s.Raw("status")
	assert.Equal(t, "todo", raw)
	assert.False(t, s.Changed())
	assert.True(t, c.Changed())
	assert.Equal(t, "/tasks?status=done", c.String())
}

func TestNewStore_Nil(t *testing.T) {
	s := NewStore(nil)
	assert.Equal(t, "/", s.String())
}
