package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestCache() (*Memory, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewMemoryWithClock(clock.Now), clock
}

func TestMemory_PutGet(t *testing.T) {
	c, _ := newTestCache()
	key := Key{View: "summary", Owner: "alice"}

	_, ok := c.Get(key)
	assert.False(t, ok)

	c.Put(key, 42, time.Minute)

	v, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestMemory_Expiry(t *testing.T) {
	c, clock := newTestCache()
	key := Key{View: "summary", Owner: "alice"}
	c.Put(key, "v", time.Minute)

	clock.Advance(59 * time.Second)
	_, ok := c.Get(key)
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok = c.Get(key)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestMemory_KeysWithSeparatorsDoNotCollide(t *testing.T) {
	c, _ := newTestCache()
	a := Key{View: "history", Owner: "a:b", Param: "c"}
	b := Key{View: "history", Owner: "a", Param: "b:c"}

	c.Put(a, "first", time.Minute)
	c.Put(b, "second", time.Minute)

	va, _ := c.Get(a)
	vb, _ := c.Get(b)
	assert.Equal(t, "first", va)
	assert.Equal(t, "second", vb)
}

func TestMemory_Invalidate_OnlyMatchingPrefix(t *testing.T) {
	c, _ := newTestCache()
	summaryAlice := Key{View: "summary", Owner: "alice"}
	historyAlice := Key{View: "history", Owner: "alice", Param: "30D"}
	summaryBob := Key{View: "summary", Owner: "bob"}

	c.Put(summaryAlice, 1, time.Minute)
	c.Put(historyAlice, 2, time.Minute)
	c.Put(summaryBob, 3, time.Minute)

	removed := c.Invalidate(Prefix{View: "summary", Owner: "alice"})

	assert.Equal(t, 1, removed)
	_, ok := c.Get(summaryAlice)
	assert.False(t, ok)
	_, ok = c.Get(historyAlice)
	assert.True(t, ok)
	_, ok = c.Get(summaryBob)
	assert.True(t, ok)
	assert.Equal(t, uint64(1), c.Stats().Invalidations)
}

func TestMemory_Invalidate_AllParams(t *testing.T) {
	c, _ := newTestCache()
	c.Put(Key{View: "movers", Owner: "alice", Param: "5"}, 1, time.Minute)
	c.Put(Key{View: "movers", Owner: "alice", Param: "10"}, 2, time.Minute)

	assert.Equal(t, 2, c.Invalidate(Prefix{View: "movers", Owner: "alice"}))
}

func TestGetOrLoad_CachesResult(t *testing.T) {
	c, _ := newTestCache()
	key := Key{View: "summary", Owner: "alice"}
	calls := 0

	load := func(context.Context) (int, error) {
		calls++
		return 7, nil
	}

	v1, err := GetOrLoad(context.Background(), c, key, time.Minute, load)
	require.NoError(t, err)
	v2, err := GetOrLoad(context.Background(), c, key, time.Minute, load)
	require.NoError(t, err)

	assert.Equal(t, 7, v1)
	assert.Equal(t, 7, v2)
	assert.Equal(t, 1, calls)
}

func TestGetOrLoad_ErrorsAreNotCached(t *testing.T) {
	c, _ := newTestCache()
	key := Key{View: "summary", Owner: "alice"}
	boom := errors.New("boom")

	_, err := GetOrLoad(context.Background(), c, key, time.Minute, func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)

	v, err := GetOrLoad(context.Background(), c, key, time.Minute, func(context.Context) (int, error) { return 9, nil })
	require.NoError(t, err)
	assert.Equal(t, 9, v)
}

func TestGetOrLoad_SharesConcurrentLoads(t *testing.T) {
	c, _ := newTestCache()
	key := Key{View: "analytics", Owner: "alice", Param: "30D"}

	var calls atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once

	load := func(context.Context) (string, error) {
		calls.Add(1)
		once.Do(func() { close(started) })
		<-release
		return "bundle", nil
	}

	const callers = 10
	var wg sync.WaitGroup
	results := make([]string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := GetOrLoad(context.Background(), c, key, time.Minute, load)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	<-started
	// Give the remaining callers time to join the in-flight load
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, "bundle", r)
	}
	assert.LessOrEqual(t, calls.Load(), int32(callers))
	v, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "bundle", v)
}

func TestGetOrLoad_InvalidationDuringLoadDiscardsResult(t *testing.T) {
	c, _ := newTestCache()
	key := Key{View: "summary", Owner: "alice"}

	v, err := GetOrLoad(context.Background(), c, key, time.Minute, func(context.Context) (string, error) {
		// A write lands while the stale computation is running
		c.Invalidate(key.Prefix())
		return "stale", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "stale", v)

	_, ok := c.Get(key)
	assert.False(t, ok, "a value computed before invalidation must not be cached")

	v, err = GetOrLoad(context.Background(), c, key, time.Minute, func(context.Context) (string, error) { return "fresh", nil })
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
}

func TestGetOrLoad_CallerCancellationDoesNotFailSharers(t *testing.T) {
	c, _ := newTestCache()
	key := Key{View: "summary", Owner: "alice"}

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	load := func(ctx context.Context) (string, error) {
		once.Do(func() { close(started) })
		<-release
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return "summary", nil
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := GetOrLoad(firstCtx, c, key, time.Minute, load)
		firstErr <- err
	}()
	<-started

	second := make(chan string, 1)
	go func() {
		v, err := GetOrLoad(context.Background(), c, key, time.Minute, load)
		assert.NoError(t, err)
		second <- v
	}()
	// Let the second caller join the in-flight load
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	assert.Equal(t, "summary", <-second)

	v, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "summary", v)
}

func TestMemory_Sweep(t *testing.T) {
	c, clock := newTestCache()
	c.Put(Key{View: "price", Owner: "a"}, 1, time.Minute)
	c.Put(Key{View: "asset", Owner: "a"}, 2, time.Hour)

	clock.Advance(2 * time.Minute)

	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, 1, c.Len())
}

func TestMemory_Stats(t *testing.T) {
	c, _ := newTestCache()
	key := Key{View: "summary", Owner: "alice"}

	c.Get(key)
	c.Put(key, 1, time.Minute)
	c.Get(key)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
}
