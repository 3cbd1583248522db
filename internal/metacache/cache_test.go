package metacache_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"vidrelay/internal/metacache"
	"vidrelay/models"
	"vidrelay/services/upstream"
)

type fakeFetcher struct {
	mu    sync.Mutex
	calls int
	meta  models.FileMetadata
	errs  []error // consumed per call; nil entry means success
}

func (f *fakeFetcher) FetchMetadata(_ context.Context, id string) (models.FileMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var err error
	if f.calls < len(f.errs) {
		err = f.errs[f.calls]
	}
	f.calls++
	if err != nil {
		return models.FileMetadata{}, err
	}
	meta := f.meta
	meta.ID = id
	return meta, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestCacheHitAvoidsUpstream(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{meta: models.FileMetadata{SizeBytes: 1000, MimeType: "video/mp4"}}
	cache := metacache.New(fetcher, time.Minute)

	for i := 0; i < 5; i++ {
		meta, err := cache.Get(context.Background(), "abc123")
		require.NoError(t, err)
		require.Equal(t, int64(1000), meta.SizeBytes)
	}
	require.Equal(t, 1, fetcher.callCount())
}

func TestCacheTTLExpiry(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{meta: models.FileMetadata{SizeBytes: 1000}}
	cache := metacache.New(fetcher, 20*time.Millisecond)

	_, err := cache.Get(context.Background(), "abc123")
	require.NoError(t, err)
	require.Equal(t, 1, fetcher.callCount())

	time.Sleep(40 * time.Millisecond)

	_, err = cache.Get(context.Background(), "abc123")
	require.NoError(t, err)
	require.Equal(t, 2, fetcher.callCount(), "expired entry must trigger exactly one refetch")
}

func TestCacheInvalidate(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{meta: models.FileMetadata{SizeBytes: 1000}}
	cache := metacache.New(fetcher, time.Minute)

	_, err := cache.Get(context.Background(), "abc123")
	require.NoError(t, err)

	cache.Invalidate("abc123")

	_, err = cache.Get(context.Background(), "abc123")
	require.NoError(t, err)
	require.Equal(t, 2, fetcher.callCount())
}

func TestCacheRetriesTransientOnce(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{
		meta: models.FileMetadata{SizeBytes: 500},
		errs: []error{fmt.Errorf("dial tcp: %w", upstream.ErrTransient)},
	}
	cache := metacache.New(fetcher, time.Minute)

	meta, err := cache.Get(context.Background(), "abc123")
	require.NoError(t, err)
	require.Equal(t, int64(500), meta.SizeBytes)
	require.Equal(t, 2, fetcher.callCount())
}

func TestCacheNotFoundNotRetried(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{errs: []error{upstream.ErrNotFound, upstream.ErrNotFound}}
	cache := metacache.New(fetcher, time.Minute)

	_, err := cache.Get(context.Background(), "missing")
	require.ErrorIs(t, err, upstream.ErrNotFound)
	require.Equal(t, 1, fetcher.callCount())
}

func TestCacheNeverServesStaleOnFailure(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{
		meta: models.FileMetadata{SizeBytes: 1000},
		errs: []error{nil, upstream.ErrTransient, upstream.ErrTransient},
	}
	cache := metacache.New(fetcher, 20*time.Millisecond)

	_, err := cache.Get(context.Background(), "abc123")
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)

	_, err = cache.Get(context.Background(), "abc123")
	require.ErrorIs(t, err, upstream.ErrTransient)
}
