package streaming

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/gabriel-vasile/mimetype"

	"vidrelay/internal/metacache"
	"vidrelay/internal/stream"
	"vidrelay/models"
	"vidrelay/services/upstream"
)

// sniffLen is how many leading bytes are fetched when upstream metadata
// carries no MIME type.
const sniffLen int64 = 3072

// Service resolves a stream request into metadata plus a validated byte
// range, and relays the body. It owns no per-request state; the Session
// created in Stream is the only mutable piece and lives for one response.
type Service struct {
	provider upstream.Provider
	cache    *metacache.Cache
	relay    *stream.Relay
}

// NewService wires the streaming core. The cache must be built over the same
// provider (or one resolving the same ids).
func NewService(provider upstream.Provider, cache *metacache.Cache, relay *stream.Relay) *Service {
	return &Service{provider: provider, cache: cache, relay: relay}
}

// Prepare resolves metadata for the file and validates the Range header
// against it. Malformed Range headers are ignored and the full file is
// served, matching what mainstream media servers do; out-of-bounds ranges
// surface stream.ErrUnsatisfiableRange with usable metadata so the caller
// can emit the 416 Content-Range. Metadata errors pass through untouched
// (upstream.ErrNotFound, upstream.ErrTransient).
func (s *Service) Prepare(ctx context.Context, fileID, rangeHeader string) (models.FileMetadata, stream.ByteRange, error) {
	meta, err := s.cache.Get(ctx, fileID)
	if err != nil {
		return models.FileMetadata{}, stream.ByteRange{}, err
	}

	rng, err := stream.ParseRange(rangeHeader, meta.SizeBytes)
	if errors.Is(err, stream.ErrMalformedRange) {
		slog.Warn("streaming.range.malformed",
			"file_id", fileID,
			"range_header", rangeHeader,
		)
		rng, err = stream.ParseRange("", meta.SizeBytes)
	}
	if err != nil {
		return meta, stream.ByteRange{}, err
	}

	if meta.MimeType == "" && meta.SizeBytes > 0 {
		meta.MimeType = s.sniffMimeType(ctx, meta)
	}

	return meta, rng, nil
}

// Stream relays the resolved byte range to w and returns the session for
// accounting. Callers decide how to treat a returned error based on
// Session.BytesWritten: zero means the HTTP layer can still answer cleanly,
// anything else means the connection is already committed.
func (s *Service) Stream(ctx context.Context, meta models.FileMetadata, rng stream.ByteRange, w io.Writer) (*stream.Session, error) {
	sess := stream.NewSession(meta.ID, rng)
	err := s.relay.Stream(ctx, s.provider, sess, w)
	return sess, err
}

// Invalidate drops the cached metadata for a file, forcing a fresh upstream
// lookup on the next request. Called after upstream deletes.
func (s *Service) Invalidate(fileID string) {
	s.cache.Invalidate(fileID)
}

// sniffMimeType detects the content type from the object's first bytes and
// remembers it alongside the cached metadata. Detection failures fall back
// to the generic video type at header-build time.
func (s *Service) sniffMimeType(ctx context.Context, meta models.FileMetadata) string {
	length := sniffLen
	if meta.SizeBytes < length {
		length = meta.SizeBytes
	}

	head, err := s.provider.FetchRange(ctx, meta.ID, 0, length)
	if err != nil || len(head) == 0 {
		slog.Debug("streaming.mime_sniff.failed", "file_id", meta.ID, "err", err)
		return ""
	}

	detected := mimetype.Detect(head).String()
	meta.MimeType = detected
	s.cache.Put(meta)
	return detected
}
