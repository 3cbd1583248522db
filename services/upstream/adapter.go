package upstream

import (
	"context"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"vidrelay/models"
)

const (
	defaultMaxObjectBytes int64 = 64 * 1024 * 1024
	defaultCacheEntries         = 4
)

// WholeObjectAdapter adapts a backend that only supports full downloads to
// the ranged Provider contract. Fetched payloads sit in a small LRU so the
// chunk loop of a single response does not re-download the object per chunk.
//
// This path buffers entire objects in memory and is a documented degradation:
// objects above the size gate are refused outright, and every cold download
// is logged. Prefer a backend with real ranged reads.
type WholeObjectAdapter struct {
	backend        WholeFetcher
	maxObjectBytes int64
	cache          *lru.Cache[string, []byte]
}

var _ Provider = (*WholeObjectAdapter)(nil)

// NewWholeObjectAdapter wraps backend with a size gate and an entry-bounded
// payload cache. Non-positive arguments fall back to 64 MiB and 4 entries.
func NewWholeObjectAdapter(backend WholeFetcher, maxObjectBytes int64, cacheEntries int) (*WholeObjectAdapter, error) {
	if maxObjectBytes <= 0 {
		maxObjectBytes = defaultMaxObjectBytes
	}
	if cacheEntries <= 0 {
		cacheEntries = defaultCacheEntries
	}
	cache, err := lru.New[string, []byte](cacheEntries)
	if err != nil {
		return nil, fmt.Errorf("build payload cache: %w", err)
	}
	return &WholeObjectAdapter{
		backend:        backend,
		maxObjectBytes: maxObjectBytes,
		cache:          cache,
	}, nil
}

func (a *WholeObjectAdapter) FetchMetadata(ctx context.Context, id string) (models.FileMetadata, error) {
	meta, err := a.backend.FetchMetadata(ctx, id)
	if err != nil {
		return models.FileMetadata{}, err
	}
	if meta.SizeBytes > a.maxObjectBytes {
		return models.FileMetadata{}, fmt.Errorf("file %s is %d bytes, gate is %d: %w",
			id, meta.SizeBytes, a.maxObjectBytes, ErrObjectTooLarge)
	}
	return meta, nil
}

func (a *WholeObjectAdapter) FetchRange(ctx context.Context, id string, start, length int64) ([]byte, error) {
	if length <= 0 {
		return nil, nil
	}

	payload, err := a.payload(ctx, id)
	if err != nil {
		return nil, err
	}

	size := int64(len(payload))
	if start >= size {
		return nil, nil
	}
	end := start + length
	if end > size {
		end = size
	}
	chunk := make([]byte, end-start)
	copy(chunk, payload[start:end])
	return chunk, nil
}

// MakePublic forwards to the backend when it supports permissions, and is a
// no-op otherwise.
func (a *WholeObjectAdapter) MakePublic(ctx context.Context, id string) error {
	if p, ok := a.backend.(interface {
		MakePublic(ctx context.Context, id string) error
	}); ok {
		return p.MakePublic(ctx, id)
	}
	return nil
}

func (a *WholeObjectAdapter) payload(ctx context.Context, id string) ([]byte, error) {
	if payload, ok := a.cache.Get(id); ok {
		return payload, nil
	}

	slog.Warn("upstream.whole_object_fallback.cold_fetch",
		"file_id", id,
		"max_object_bytes", a.maxObjectBytes,
	)

	payload, err := a.backend.FetchAll(ctx, id)
	if err != nil {
		return nil, err
	}
	if int64(len(payload)) > a.maxObjectBytes {
		return nil, fmt.Errorf("file %s is %d bytes, gate is %d: %w",
			id, len(payload), a.maxObjectBytes, ErrObjectTooLarge)
	}

	a.cache.Add(id, payload)
	return payload, nil
}
