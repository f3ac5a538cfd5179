package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"smartsender/internal/apperr"
	"smartsender/internal/storage"
)

type record struct {
	ID      string     `json:"id"`
	Count   int        `json:"count"`
	Tags    []string   `json:"tags"`
	At      time.Time  `json:"at"`
	ReadAt  *time.Time `json:"read_at,omitempty"`
	Flagged bool       `json:"flagged"`
}

// brokenKV fails every call.
type brokenKV struct{}

var errDown = errors.New("substrate down")

func (brokenKV) Get(context.Context, string) ([]byte, error)  { return nil, errDown }
func (brokenKV) Set(context.Context, string, []byte) error    { return errDown }
func (brokenKV) Delete(context.Context, string) error         { return errDown }
func (brokenKV) DeletePrefix(context.Context, string) error   { return errDown }
func (brokenKV) Close() error                                 { return nil }

// flakyKV fails the next failGets reads and otherwise behaves like memory.
type flakyKV struct {
	*storage.Memory
	failGets atomic.Int32
}

func (f *flakyKV) Get(ctx context.Context, key string) ([]byte, error) {
	if f.failGets.Add(-1) >= 0 {
		return nil, errors.New("i/o timeout")
	}
	f.failGets.Store(0)
	return f.Memory.Get(ctx, key)
}

// gatedKV parks the first read after it has hit the substrate until release
// is closed.
type gatedKV struct {
	*storage.Memory
	reached chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedKV) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := g.Memory.Get(ctx, key)
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.reached)
		<-g.release
	}
	return v, err
}

func seedRecords() []record {
	return []record{{ID: "seed-1", Tags: []string{"a"}, At: time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)}}
}

func newObserved(kv storage.KV) (*Store, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.WarnLevel)
	return New(kv, zap.New(core), nil), logs
}

func TestLoadSeedsOnMiss(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	s, logs := newObserved(kv)
	c := NewCollection(s, KeyConversations, seedRecords)

	got := c.Load(ctx)
	assert.Equal(t, seedRecords(), got)
	assert.Zero(t, logs.Len())

	raw, err := kv.Get(ctx, KeyConversations)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "seed-1")
}

func TestLoadReturnsFreshCopies(t *testing.T) {
	ctx := context.Background()
	s, _ := newObserved(storage.NewMemory())
	c := NewCollection(s, KeyMessages, seedRecords)

	first := c.Load(ctx)
	first[0].Tags[0] = "mutated"
	first[0].Count = 99

	second := c.Load(ctx)
	assert.Equal(t, "a", second[0].Tags[0])
	assert.Zero(t, second[0].Count)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newObserved(storage.NewMemory())
	c := NewCollection[record](s, KeyMessages, nil)

	readAt := time.Date(2024, 2, 1, 10, 30, 0, 0, time.UTC)
	want := []record{
		{ID: "msg-1", Count: 2, Tags: []string{"x", "y"}, At: time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC), ReadAt: &readAt},
		{ID: "msg-2", Tags: []string{}, At: time.Date(2024, 2, 1, 11, 0, 0, 0, time.UTC), Flagged: true},
	}
	require.NoError(t, c.Save(ctx, want))
	assert.Equal(t, want, c.Load(ctx))
}

func TestCorruptValueFallsBackToSeed(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	require.NoError(t, kv.Set(ctx, KeyConversations, []byte("{not json")))

	s, logs := newObserved(kv)
	c := NewCollection(s, KeyConversations, seedRecords)

	assert.Equal(t, seedRecords(), c.Load(ctx))
	require.Equal(t, 1, logs.FilterField(zap.String("reason", "decode")).Len())

	// The corrupt value was replaced.
	logs.TakeAll()
	assert.Equal(t, seedRecords(), c.Load(ctx))
	assert.Zero(t, logs.Len())
}

func TestUnavailableSubstrateSoftFails(t *testing.T) {
	ctx := context.Background()
	s, logs := newObserved(brokenKV{})
	c := NewCollection(s, KeyFiles, seedRecords)

	assert.Equal(t, seedRecords(), c.Load(ctx))
	assert.GreaterOrEqual(t, logs.Len(), 1)

	err := c.Save(ctx, seedRecords())
	assert.ErrorIs(t, err, apperr.ErrStorageUnavailable)
	assert.ErrorIs(t, err, errDown)
	assert.ErrorIs(t, s.Remove(ctx, KeyFiles), apperr.ErrStorageUnavailable)
	assert.ErrorIs(t, s.Clear(ctx), apperr.ErrStorageUnavailable)
}

func TestStoreGetSetRemove(t *testing.T) {
	ctx := context.Background()
	s, _ := newObserved(storage.NewMemory())

	var token string
	assert.False(t, s.Get(ctx, KeyToken, &token))

	require.NoError(t, s.Set(ctx, KeyToken, "abc"))
	assert.True(t, s.Get(ctx, KeyToken, &token))
	assert.Equal(t, "abc", token)

	require.NoError(t, s.Remove(ctx, KeyToken))
	assert.False(t, s.Get(ctx, KeyToken, &token))
}

func TestClearOnlyTouchesOwnKeys(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	s, _ := newObserved(kv)

	require.NoError(t, s.Set(ctx, KeyToken, "abc"))
	require.NoError(t, s.Set(ctx, KeyMessages, []record{{ID: "m"}}))
	require.NoError(t, kv.Set(ctx, "theme", []byte(`"dark"`)))

	require.NoError(t, s.Clear(ctx))

	var token string
	assert.False(t, s.Get(ctx, KeyToken, &token))
	_, err := kv.Get(ctx, KeyMessages)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = kv.Get(ctx, "theme")
	assert.NoError(t, err)
}

func TestUpdateAbortsOnError(t *testing.T) {
	ctx := context.Background()
	s, _ := newObserved(storage.NewMemory())
	c := NewCollection(s, KeyActivity, seedRecords)

	boom := errors.New("boom")
	err := c.Update(ctx, func(items []record) ([]record, error) {
		return append(items, record{ID: "never"}), boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Len(t, c.Load(ctx), 1)
}

func TestUpdateSerialisesWriters(t *testing.T) {
	ctx := context.Background()
	s, _ := newObserved(storage.NewMemory())
	c := NewCollection[record](s, KeyActivity, nil)

	const writers = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := c.Update(ctx, func(items []record) ([]record, error) {
				return append(items, record{ID: "r"}), nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Len(t, c.Load(ctx), writers)
}

func storedRecords(t *testing.T, kv storage.KV, key string) []record {
	t.Helper()
	raw, err := kv.Get(context.Background(), key)
	require.NoError(t, err)
	var out []record
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestReadFailureNeverOverwrites(t *testing.T) {
	ctx := context.Background()
	kv := &flakyKV{Memory: storage.NewMemory()}
	s, logs := newObserved(kv)
	c := NewCollection(s, KeyMessages, seedRecords)

	stored := []record{{ID: "m1"}, {ID: "m2"}, {ID: "m3"}, {ID: "m4"}, {ID: "m5"}, {ID: "m6"}}
	require.NoError(t, c.Save(ctx, stored))

	kv.failGets.Store(1)
	called := false
	err := c.Update(ctx, func(items []record) ([]record, error) {
		called = true
		return append(items, record{ID: "new"}), nil
	})
	assert.ErrorIs(t, err, apperr.ErrStorageUnavailable)
	assert.False(t, called)
	assert.Len(t, storedRecords(t, kv, KeyMessages), 6)

	kv.failGets.Store(1)
	assert.Equal(t, seedRecords(), c.Load(ctx), "an unreadable substrate yields the seed")
	assert.Equal(t, 1, logs.FilterField(zap.String("reason", "read")).Len())
	assert.Len(t, storedRecords(t, kv, KeyMessages), 6)

	require.NoError(t, c.Update(ctx, func(items []record) ([]record, error) {
		return append(items, record{ID: "new"}), nil
	}))
	assert.Len(t, c.Load(ctx), 7)
}

func TestReadReportsWhy(t *testing.T) {
	ctx := context.Background()
	kv := &flakyKV{Memory: storage.NewMemory()}
	s, _ := newObserved(kv)

	var v []record
	assert.ErrorIs(t, s.Read(ctx, KeyFiles, &v), storage.ErrNotFound)

	require.NoError(t, kv.Set(ctx, KeyFiles, []byte("{nope")))
	assert.ErrorIs(t, s.Read(ctx, KeyFiles, &v), ErrCorrupt)

	kv.failGets.Store(1)
	assert.ErrorIs(t, s.Read(ctx, KeyFiles, &v), apperr.ErrStorageUnavailable)
}

func TestFirstLoadDoesNotClobberConcurrentUpdate(t *testing.T) {
	ctx := context.Background()
	kv := &gatedKV{Memory: storage.NewMemory(), reached: make(chan struct{}), release: make(chan struct{})}
	s, _ := newObserved(kv)
	c := NewCollection[record](s, KeyConversations, nil)

	loaded := make(chan []record)
	go func() { loaded <- c.Load(ctx) }()
	<-kv.reached

	require.NoError(t, c.Update(ctx, func(items []record) ([]record, error) {
		return append(items, record{ID: "conv-1"}), nil
	}))
	close(kv.release)

	got := <-loaded
	require.Len(t, got, 1)
	assert.Equal(t, "conv-1", got[0].ID)
	assert.Len(t, c.Load(ctx), 1)
}

func TestUpdateMayLoadAnotherCollection(t *testing.T) {
	ctx := context.Background()
	s, _ := newObserved(storage.NewMemory())
	outer := NewCollection[record](s, KeyConversations, nil)
	inner := NewCollection(s, KeyStaff, seedRecords)

	done := make(chan error, 1)
	go func() {
		done <- outer.Update(ctx, func(items []record) ([]record, error) {
			return append(items, inner.Load(ctx)...), nil
		})
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("nested seeding load blocked")
	}
	assert.Equal(t, seedRecords(), outer.Load(ctx))
}
