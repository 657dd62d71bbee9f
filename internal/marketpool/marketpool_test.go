package marketpool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubmitSerializesPerMarket(t *testing.T) {
	p := New(nil)
	defer p.ReleaseAll()

	var running int32
	var maxConcurrent int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := Submit(context.Background(), p, "market-1", func() (int, error) {
				cur := atomic.AddInt32(&running, 1)
				for {
					m := atomic.LoadInt32(&maxConcurrent)
					if cur <= m || atomic.CompareAndSwapInt32(&maxConcurrent, m, cur) {
						break
					}
				}
				atomic.AddInt32(&running, -1)
				return 1, nil
			})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, atomic.LoadInt32(&maxConcurrent))
}

func TestSubmitDifferentMarketsRunIndependently(t *testing.T) {
	p := New(nil)
	defer p.ReleaseAll()

	v1, err := Submit(context.Background(), p, "m1", func() (string, error) { return "a", nil })
	require.NoError(t, err)
	require.Equal(t, "a", v1)

	v2, err := Submit(context.Background(), p, "m2", func() (string, error) { return "b", nil })
	require.NoError(t, err)
	require.Equal(t, "b", v2)
}
