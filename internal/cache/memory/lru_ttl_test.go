package memory

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

func TestExpiry(t *testing.T) {
	now := time.Unix(0, 0)
	c := NewLRUTTL[string, int](4, 0, time.Minute)
	c.SetClock(func() time.Time { return now })

	c.Set("a", 1, 0)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUTTL[string, int](2, 0, time.Minute)
	c.Set("a", 1, 0)
	c.Set("b", 2, 0)
	_, _ = c.Get("a")
	c.Set("c", 3, 0)

	_, ok := c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
}

func TestEvictsBySize(t *testing.T) {
	c := NewLRUTTL[string, string](10, 10, time.Minute)
	c.Set("a", "x", 6)
	c.Set("b", "y", 6)
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())
}

func TestGetOrLoadCoalesces(t *testing.T) {
	c := NewLRUTTL[string, int](4, 0, time.Minute)
	var calls atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) (int, int, error) {
		calls.Add(1)
		<-release
		return 7, 1, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrLoad(context.Background(), "k", load)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, []int{7, 7, 7, 7, 7}, results)
	assert.EqualValues(t, 1, calls.Load())
}

func TestGetOrLoadDoesNotCacheErrors(t *testing.T) {
	c := NewLRUTTL[string, int](4, 0, time.Minute)
	boom := errors.New("boom")
	_, err := c.GetOrLoad(context.Background(), "k", func(context.Context) (int, int, error) { return 0, 0, boom })
	assert.ErrorIs(t, err, boom)

	v, err := c.GetOrLoad(context.Background(), "k", func(context.Context) (int, int, error) { return 3, 0, nil })
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}
