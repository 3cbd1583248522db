package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"vidrelay/internal/guard"
	"vidrelay/internal/stream"
	"vidrelay/models"
	"vidrelay/services/streaming"
	"vidrelay/services/upstream"
)

type streamService interface {
	Prepare(ctx context.Context, fileID, rangeHeader string) (models.FileMetadata, stream.ByteRange, error)
	Stream(ctx context.Context, meta models.FileMetadata, rng stream.ByteRange, w io.Writer) (*stream.Session, error)
}

// StreamHandler serves media bytes from the upstream store with HTTP range
// semantics.
type StreamHandler struct {
	Service streamService
	Guard   *guard.RequestGuard
}

var _ streamService = (*streaming.Service)(nil)

// NewStreamHandler wires the stream endpoint.
func NewStreamHandler(service streamService, g *guard.RequestGuard) *StreamHandler {
	return &StreamHandler{Service: service, Guard: g}
}

// Stream handles GET and HEAD on /api/stream/{id}.
//
// Headers and status are committed before the first body byte, so any error
// surfaced after that point can only terminate the connection; the player's
// own error handling takes over from there.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	fileID := mux.Vars(r)["id"]
	if strings.TrimSpace(fileID) == "" {
		http.Error(w, "missing file id", http.StatusBadRequest)
		return
	}

	if r.Method == http.MethodGet && h.Guard != nil {
		key := guard.Key(viewerKey(r), fileID)
		token, ok := h.Guard.TryAcquire(key)
		if !ok {
			w.Header().Set("Retry-After", "2")
			http.Error(w, "request already in progress", http.StatusTooManyRequests)
			return
		}
		defer h.Guard.Release(key, token)
	}

	meta, rng, err := h.Service.Prepare(r.Context(), fileID, r.Header.Get("Range"))
	if err != nil {
		h.writePrepareError(w, fileID, meta, err)
		return
	}

	status, headers := streaming.BuildResponse(meta, rng)
	copyHeaders(w, headers)
	w.WriteHeader(status)

	if r.Method == http.MethodHead || rng.Length() == 0 {
		return
	}

	sess, err := h.Service.Stream(r.Context(), meta, rng, w)
	if err != nil {
		switch {
		case errors.Is(err, stream.ErrClientGone):
			slog.Debug("stream.client_gone",
				"file_id", fileID,
				"bytes_written", sess.BytesWritten(),
			)
		case sess.BytesWritten() == 0:
			// Headers are out but no body bytes were delivered. Nothing
			// clean is possible; log and let the connection drop.
			slog.Error("stream.failed_before_first_byte", "file_id", fileID, "err", err)
		default:
			slog.Error("stream.aborted_mid_transfer",
				"file_id", fileID,
				"bytes_written", sess.BytesWritten(),
				"range_length", rng.Length(),
				"err", err,
			)
		}
		return
	}

	slog.Info("stream.completed",
		"file_id", fileID,
		"status", status,
		"bytes_written", sess.BytesWritten(),
		"elapsed", sess.Elapsed(),
	)
}

func (h *StreamHandler) writePrepareError(w http.ResponseWriter, fileID string, meta models.FileMetadata, err error) {
	switch {
	case errors.Is(err, upstream.ErrNotFound):
		w.WriteHeader(http.StatusNotFound)
	case errors.Is(err, stream.ErrUnsatisfiableRange):
		status, headers := streaming.BuildUnsatisfiable(meta.SizeBytes)
		copyHeaders(w, headers)
		w.WriteHeader(status)
	case errors.Is(err, upstream.ErrObjectTooLarge):
		slog.Warn("stream.object_too_large", "file_id", fileID, "err", err)
		http.Error(w, "file too large to serve", http.StatusBadGateway)
	default:
		slog.Warn("stream.metadata_unavailable", "file_id", fileID, "err", err)
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}
}

func copyHeaders(w http.ResponseWriter, headers http.Header) {
	for key, values := range headers {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
}

// viewerKey identifies the requesting client for duplicate-request scoping.
func viewerKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.Index(fwd, ","); idx != -1 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
