package viewstate

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/datatable/internal/logging"
	"github.com/JonMunkholm/datatable/internal/table"
)

func sampleState() *State {
	return &State{
		Sorting:          []table.ColumnSort{{ID: "title", Desc: true}},
		RowSelection:     map[string]bool{"TASK-1": true},
		ColumnVisibility: map[string]bool{"label": false},
	}
}

// ============================================================================
// MemoryStore
// ============================================================================

func TestMemoryStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	m, err := NewMemoryStore(time.Hour, "")
	require.NoError(t, err)
	defer m.Close()

	s := sampleState()
	require.NoError(t, m.Save(ctx, "k", s))

	s.RowSelection["TASK-2"] = true
	got, err := m.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, sampleState(), got, "store keeps its own copy")

	got.Sorting[0].Desc = false
	again, _ := m.Load(ctx, "k")
	assert.True(t, again.Sorting[0].Desc, "loaded state is a copy")
}

func TestMemoryStore_Missing(t *testing.T) {
	m, err := NewMemoryStore(time.Hour, "")
	require.NoError(t, err)

	got, err := m.Load(context.Background(), "nope")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStore_ExpiryAndSweep(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	m, err := NewMemoryStore(time.Minute, "", WithClock(clock))
	require.NoError(t, err)

	require.NoError(t, m.Save(ctx, "a", sampleState()))
	mu.Lock()
	now = now.Add(30 * time.Second)
	mu.Unlock()
	require.NoError(t, m.Save(ctx, "b", sampleState()))

	mu.Lock()
	now = now.Add(45 * time.Second)
	mu.Unlock()

	got, err := m.Load(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, got, "expired entry is not returned")
	assert.Equal(t, 2, m.Len())

	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, 1, m.Len())

	got, _ = m.Load(ctx, "b")
	assert.NotNil(t, got)
}

func TestMemoryStore_SweepLogsToLogger(t *testing.T) {
	var buf bytes.Buffer
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	m, err := NewMemoryStore(time.Minute, "",
		WithClock(func() time.Time { return now }),
		WithLogger(logging.New(&buf, "debug", "json")))
	require.NoError(t, err)

	m.sweep()
	assert.Empty(t, buf.String(), "nothing removed, nothing logged")

	require.NoError(t, m.Save(context.Background(), "a", sampleState()))
	now = now.Add(2 * time.Minute)
	m.sweep()

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "view state sweep", entry["msg"])
	assert.Equal(t, 1.0, entry["removed"])
}

func TestMemoryStore_InvalidSchedule(t *testing.T) {
	_, err := NewMemoryStore(time.Minute, "every now and then")
	assert.Error(t, err)
}

func TestMemoryStore_ScheduledSweepStops(t *testing.T) {
	m, err := NewMemoryStore(time.Minute, DefaultSweepSchedule)
	require.NoError(t, err)
	require.NoError(t, m.Close())

	_, err = m.Load(context.Background(), "k")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, m.Save(context.Background(), "k", sampleState()), ErrClosed)
}

func TestMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	m, err := NewMemoryStore(time.Hour, "")
	require.NoError(t, err)

	require.NoError(t, m.Save(ctx, "k", sampleState()))
	require.NoError(t, m.Delete(ctx, "k"))
	require.NoError(t, m.Delete(ctx, "k"))

	got, _ := m.Load(ctx, "k")
	assert.Nil(t, got)
}

// ============================================================================
// RedisStore
// ============================================================================

type fakeRedis struct {
	mu      sync.Mutex
	data    map[string][]byte
	ttls    map[string]time.Duration
	expires int
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(v), nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value.([]byte)
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) Expire(_ context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expires++
	f.ttls[key] = expiration
	_, ok := f.data[key]
	return redis.NewBoolResult(ok, nil)
}

func TestRedisStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	s := newRedisStore(fake, "", 10*time.Minute)

	require.NoError(t, s.Save(ctx, Key("sess", "tasks"), sampleState()))
	assert.Contains(t, fake.data, DefaultRedisPrefix+"sess:tasks")
	assert.Equal(t, 10*time.Minute, fake.ttls[DefaultRedisPrefix+"sess:tasks"])

	got, err := s.Load(ctx, Key("sess", "tasks"))
	require.NoError(t, err)
	assert.Equal(t, sampleState(), got)
	assert.Equal(t, 1, fake.expires, "load refreshes the ttl")
}

func TestRedisStore_Missing(t *testing.T) {
	s := newRedisStore(newFakeRedis(), "p:", time.Minute)

	got, err := s.Load(context.Background(), "k")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStore_CorruptData(t *testing.T) {
	fake := newFakeRedis()
	fake.data["p:k"] = []byte("{not json")
	s := newRedisStore(fake, "p:", time.Minute)

	_, err := s.Load(context.Background(), "k")
	assert.Error(t, err)
}

func TestRedisStore_DeleteAndClose(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	s := newRedisStore(fake, "p:", time.Minute)

	require.NoError(t, s.Save(ctx, "k", sampleState()))
	require.NoError(t, s.Delete(ctx, "k"))
	assert.Empty(t, fake.data)

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Save(ctx, "k", sampleState()), ErrClosed)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), Config{Backend: "etcd"})
	assert.Error(t, err)
}

func TestState_IsZero(t *testing.T) {
	var nilState *State
	assert.True(t, nilState.IsZero())
	assert.True(t, (&State{}).IsZero())
	assert.False(t, sampleState().IsZero())
	assert.Equal(t, &State{}, nilState.Clone())
}
