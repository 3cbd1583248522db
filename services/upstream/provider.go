package upstream

import (
	"context"
	"errors"

	"vidrelay/models"
)

var (
	// ErrNotFound means the id is unknown to the upstream store. Never retried.
	ErrNotFound = errors.New("upstream object not found")
	// ErrTransient covers network and availability failures that a client may
	// retry with a fresh request.
	ErrTransient = errors.New("upstream temporarily unavailable")
	// ErrObjectTooLarge is returned by the whole-object fallback when an
	// object exceeds its configured buffering gate.
	ErrObjectTooLarge = errors.New("object too large for whole-object fallback")
)

// Provider is the remote object store holding the actual media bytes. The
// streaming core consumes it and never implements it; ranged reads are a hard
// requirement (backends without them are wrapped, see WholeObjectAdapter).
type Provider interface {
	// FetchMetadata resolves size, MIME type and timestamps for an object.
	FetchMetadata(ctx context.Context, id string) (models.FileMetadata, error)

	// FetchRange returns up to length bytes starting at start. A short or
	// empty result means the object ends before the requested interval does.
	FetchRange(ctx context.Context, id string, start, length int64) ([]byte, error)

	// MakePublic marks the object world-readable. Best effort; serving must
	// not depend on it succeeding.
	MakePublic(ctx context.Context, id string) error
}

// WholeFetcher is the degraded backend shape: no ranged reads, only full
// object downloads.
type WholeFetcher interface {
	FetchMetadata(ctx context.Context, id string) (models.FileMetadata, error)
	FetchAll(ctx context.Context, id string) ([]byte, error)
}
