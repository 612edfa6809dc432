package loadercache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/f1viz-service-go/pkg/utils/cache"
)

func TestGetSharesLoad(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	c := New(WithLoader(func(_ context.Context, key string) (*string, error) {
		calls.Add(1)
		<-release
		v := "value-" + key
		return &v, nil
	}))

	const n = 20
	var wg sync.WaitGroup
	results := make([]*string, n)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Get(context.Background(), "a")
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, v := range results {
		require.NotNil(t, v)
		assert.Equal(t, "value-a", *v)
	}
}

func TestFailureIsNotCached(t *testing.T) {
	var calls atomic.Int32
	c := New(WithLoader(func(_ context.Context, _ int) (*int, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("unavailable")
		}
		v := 42
		return &v, nil
	}))

	_, err := c.Get(context.Background(), 1)
	require.Error(t, err)

	v, err := c.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 42, *v)

	_, err = c.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestExpiration(t *testing.T) {
	var calls atomic.Int32
	loader := func(_ context.Context, _ int) (*int32, error) {
		v := calls.Add(1)
		return &v, nil
	}

	never := New(WithLoader(loader), WithExpiration[int, int32](0))
	first, _ := never.Get(context.Background(), 1)
	time.Sleep(5 * time.Millisecond)
	second, _ := never.Get(context.Background(), 1)
	assert.Same(t, first, second)

	short := New(WithLoader(loader), WithExpiration[int, int32](time.Millisecond))
	first, _ = short.Get(context.Background(), 1)
	time.Sleep(5 * time.Millisecond)
	second, _ = short.Get(context.Background(), 1)
	assert.NotEqual(t, *first, *second)
}

func TestInvalidate(t *testing.T) {
	var calls atomic.Int32
	c := New(WithLoader(func(_ context.Context, _ string) (*int32, error) {
		v := calls.Add(1)
		return &v, nil
	}), WithExpiration[string, int32](0))

	ctx := context.Background()
	_, _ = c.Get(ctx, "a")
	_, _ = c.Get(ctx, "b")
	c.Invalidate(ctx, "a")
	_, _ = c.Get(ctx, "a")
	_, _ = c.Get(ctx, "b")
	assert.Equal(t, int32(3), calls.Load())

	c.InvalidateAll(ctx)
	_, _ = c.Get(ctx, "a")
	_, _ = c.Get(ctx, "b")
	assert.Equal(t, int32(5), calls.Load())
}

func TestNoLoader(t *testing.T) {
	c := New[string, string]()
	_, err := c.Get(context.Background(), "a")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestCanceledWaiter(t *testing.T) {
	release := make(chan struct{})
	c := New(WithLoader(func(_ context.Context, _ string) (*string, error) {
		<-release
		v := "done"
		return &v, nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	v, err := c.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "done", *v)
}

func TestInvalidateAllDuringLoad(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	c := New(WithExpiration[string, int](0),
		WithLoader(func(_ context.Context, _ string) (*int, error) {
			n := int(calls.Add(1))
			if n == 1 {
				close(started)
				<-release
			}
			return &n, nil
		}))

	done := make(chan *int)
	go func() {
		v, err := c.Get(context.Background(), "bundle")
		assert.NoError(t, err)
		done <- v
	}()
	<-started
	c.InvalidateAll(context.Background())
	close(release)

	first := <-done
	require.NotNil(t, first)
	assert.Equal(t, 1, *first)

	second, err := c.Get(context.Background(), "bundle")
	require.NoError(t, err)
	assert.Equal(t, 2, *second)
	assert.Equal(t, int32(2), calls.Load())
}
