package metacache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"

	"vidrelay/models"
	"vidrelay/services/upstream"
)

const defaultTTL = 300 * time.Second

// MetadataFetcher loads object metadata from the upstream store.
type MetadataFetcher interface {
	FetchMetadata(ctx context.Context, id string) (models.FileMetadata, error)
}

type entry struct {
	meta      models.FileMetadata
	expiresAt time.Time
}

// Cache is a TTL-bounded map of upstream object ids to their metadata. It is
// shared across request tasks; the lock is never held across an upstream
// call. Expired entries are never served — range math needs exact sizes, so
// a failed refresh fails the request rather than reusing a stale size.
type Cache struct {
	fetcher MetadataFetcher
	ttl     time.Duration

	mu      sync.RWMutex
	entries map[string]entry
}

// New builds a cache over the given fetcher. A non-positive ttl falls back
// to 300 seconds.
func New(fetcher MetadataFetcher, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{
		fetcher: fetcher,
		ttl:     ttl,
		entries: make(map[string]entry),
	}
}

// Get returns the cached metadata for id, fetching from upstream on a miss
// or after expiry. Concurrent misses for the same id may each hit upstream;
// metadata calls are cheap enough that coalescing is not worth a lock across
// I/O.
func (c *Cache) Get(ctx context.Context, id string) (models.FileMetadata, error) {
	now := time.Now()

	c.mu.RLock()
	e, ok := c.entries[id]
	c.mu.RUnlock()
	if ok && now.Before(e.expiresAt) {
		return e.meta, nil
	}

	meta, err := c.fetch(ctx, id)
	if err != nil {
		if errors.Is(err, upstream.ErrNotFound) {
			c.Invalidate(id)
		}
		return models.FileMetadata{}, err
	}

	c.Put(meta)
	return meta, nil
}

// Put stores metadata with a fresh TTL. Used after a fetch and by callers
// that refine a field locally (for example a sniffed MIME type).
func (c *Cache) Put(meta models.FileMetadata) {
	now := time.Now()

	c.mu.Lock()
	c.entries[meta.ID] = entry{meta: meta, expiresAt: now.Add(c.ttl)}
	for id, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, id)
		}
	}
	c.mu.Unlock()
}

// Invalidate drops the entry for id, forcing the next Get to hit upstream.
func (c *Cache) Invalidate(id string) {
	c.mu.Lock()
	delete(c.entries, id)
	c.mu.Unlock()
}

// fetch performs the upstream metadata lookup, retrying once on transient
// failures. Not-found responses surface immediately.
func (c *Cache) fetch(ctx context.Context, id string) (models.FileMetadata, error) {
	var meta models.FileMetadata
	err := retry.Do(
		func() error {
			var ferr error
			meta, ferr = c.fetcher.FetchMetadata(ctx, id)
			return ferr
		},
		retry.Context(ctx),
		retry.Attempts(2),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, upstream.ErrNotFound)
		}),
	)
	if err != nil {
		return models.FileMetadata{}, err
	}
	return meta, nil
}
