package guard_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/require"

	"vidrelay/internal/guard"
)

func TestTryAcquireExclusive(t *testing.T) {
	t.Parallel()

	g := guard.New(time.Minute)
	key := guard.Key("viewer-1", "file-1")

	token, ok := g.TryAcquire(key)
	require.True(t, ok)

	_, ok = g.TryAcquire(key)
	require.False(t, ok)

	g.Release(key, token)
	_, ok = g.TryAcquire(key)
	require.True(t, ok)
}

func TestConcurrentAcquireSingleWinner(t *testing.T) {
	t.Parallel()

	g := guard.New(time.Minute)
	key := guard.Key("viewer-1", "file-1")

	var wins atomic.Int32
	var wg conc.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Go(func() {
			if _, ok := g.TryAcquire(key); ok {
				wins.Add(1)
			}
		})
	}
	wg.Wait()

	require.Equal(t, int32(1), wins.Load())
}

func TestLockExpires(t *testing.T) {
	t.Parallel()

	g := guard.New(20 * time.Millisecond)
	key := guard.Key("viewer-1", "file-1")

	_, ok := g.TryAcquire(key)
	require.True(t, ok)
	_, ok = g.TryAcquire(key)
	require.False(t, ok)

	time.Sleep(40 * time.Millisecond)

	_, ok = g.TryAcquire(key)
	require.True(t, ok, "expired lock must be reclaimable without Release")
}

func TestStaleReleaseKeepsSuccessorLock(t *testing.T) {
	t.Parallel()

	g := guard.New(20 * time.Millisecond)
	key := guard.Key("viewer-1", "file-1")

	stale, ok := g.TryAcquire(key)
	require.True(t, ok)

	// First holder outlives its TTL; a second request re-acquires the key.
	time.Sleep(40 * time.Millisecond)
	_, ok = g.TryAcquire(key)
	require.True(t, ok)

	// The slow first holder finishing now must not free the new lock.
	g.Release(key, stale)
	_, ok = g.TryAcquire(key)
	require.False(t, ok, "stale release must not evict the successor's lock")
}

func TestDistinctKeysDoNotShare(t *testing.T) {
	t.Parallel()

	g := guard.New(time.Minute)

	acquire := func(viewer, resource string) bool {
		_, ok := g.TryAcquire(guard.Key(viewer, resource))
		return ok
	}

	require.True(t, acquire("viewer-1", "file-1"))
	require.True(t, acquire("viewer-2", "file-1"))
	require.True(t, acquire("viewer-1", "file-2"))
}
