package cache_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TuSKan/zarrcore/cache"
)

func TestLRUCountLimitEvictsLeastRecentlyUsed(t *testing.T) {
	c := cache.NewLRUCountLimit[[]byte](2)
	c.Insert(cache.Key{ArrayPath: "a", Indices: []int{0}}, []byte("x"))
	c.Insert(cache.Key{ArrayPath: "a", Indices: []int{1}}, []byte("y"))
	c.Insert(cache.Key{ArrayPath: "a", Indices: []int{2}}, []byte("z"))

	_, ok := c.Get(cache.Key{ArrayPath: "a", Indices: []int{0}})
	require.False(t, ok)
	require.Equal(t, 2, c.Len())
}

func TestLRUCountLimitGetOrTryInsertWithSingleflight(t *testing.T) {
	c := cache.NewLRUCountLimit[int](10)
	var calls int32
	key := cache.Key{ArrayPath: "a", Indices: []int{0}}

	var wg sync.WaitGroup
	results := make([]int, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrTryInsertWith(key, func() (int, error) {
				atomic.AddInt32(&calls, 1)
				return 42, nil
			})
			require.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, v := range results {
		require.Equal(t, 42, v)
	}
}

func TestLRUSizeLimitEvictsByWeight(t *testing.T) {
	weigher := func(v []byte) int { return len(v) }
	c := cache.NewLRUSizeLimit[[]byte](10, weigher)

	c.Insert(cache.Key{ArrayPath: "a", Indices: []int{0}}, make([]byte, 6))
	c.Insert(cache.Key{ArrayPath: "a", Indices: []int{1}}, make([]byte, 6))

	require.LessOrEqual(t, c.Size(), 10)
	_, ok := c.Get(cache.Key{ArrayPath: "a", Indices: []int{0}})
	require.False(t, ok)
	_, ok = c.Get(cache.Key{ArrayPath: "a", Indices: []int{1}})
	require.True(t, ok)
}

func TestLRUSizeLimitInvalidate(t *testing.T) {
	weigher := func(v []byte) int { return len(v) }
	c := cache.NewLRUSizeLimit[[]byte](10, weigher)
	key := cache.Key{ArrayPath: "a", Indices: []int{0}}
	c.Insert(key, make([]byte, 4))
	require.Equal(t, 4, c.Size())
	c.Invalidate(key)
	require.Equal(t, 0, c.Size())
	require.True(t, c.IsEmpty())
}
