package cache_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benritz/cgbfutures/internal/cache"
	"benritz/cgbfutures/internal/types"
)

type countingLoader struct {
	mu    sync.Mutex
	calls map[string]int
	err   error
}

func newCountingLoader() *countingLoader {
	return &countingLoader{calls: make(map[string]int)}
}

func (l *countingLoader) Load(ctx context.Context, code string) (*types.Bond, error) {
	l.mu.Lock()
	l.calls[code]++
	l.mu.Unlock()

	if l.err != nil {
		return nil, l.err
	}
	return &types.Bond{BondCode: code}, nil
}

func (l *countingLoader) callsFor(code string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[code]
}

func TestBondCache_GetLoadsOnceAndReusesResult(t *testing.T) {
	// GIVEN: an empty cache and a loader that counts invocations
	// WHEN: the same code is requested twice
	// THEN: the loader only runs once and both calls return the same pointer
	c := cache.New()
	loader := newCountingLoader()

	first, err := c.Get(context.Background(), "240006.IB", loader)
	require.NoError(t, err)

	second, err := c.Get(context.Background(), "240006.IB", loader)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, loader.callsFor("240006.IB"))
	assert.Equal(t, 1, c.Len())
}

func TestBondCache_FailedLoadIsNotCached(t *testing.T) {
	// GIVEN: a loader that always fails
	// WHEN: Get is called twice for the same code
	// THEN: both calls error and the loader is retried each time
	c := cache.New()
	loader := newCountingLoader()
	loader.err = fmt.Errorf("descriptor not found")

	_, err := c.Get(context.Background(), "240006.IB", loader)
	assert.Error(t, err)

	_, err = c.Get(context.Background(), "240006.IB", loader)
	assert.Error(t, err)

	assert.Equal(t, 2, loader.callsFor("240006.IB"))
	assert.Equal(t, 0, c.Len())
}

func TestBondCache_ConcurrentGetsLoadExactlyOnce(t *testing.T) {
	// GIVEN: many goroutines racing to resolve the same code
	// WHEN: they all call Get concurrently
	// THEN: the double-checked lock in Get ensures only one load happens
	c := cache.New()
	loader := newCountingLoader()

	const goroutines = 50
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			_, err := c.Get(context.Background(), "240006.IB", loader)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, loader.callsFor("240006.IB"))
}

func TestBondCache_ClearEmptiesCache(t *testing.T) {
	c := cache.New()
	loader := newCountingLoader()

	_, err := c.Get(context.Background(), "240006.IB", loader)
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())

	_, err = c.Get(context.Background(), "240006.IB", loader)
	require.NoError(t, err)
	assert.Equal(t, 2, loader.callsFor("240006.IB"))
}
