package streaming

import (
	"fmt"
	"net/http"
	"strconv"

	"vidrelay/internal/stream"
	"vidrelay/models"
)

const defaultContentType = "video/mp4"

// BuildResponse computes the status code and header set for a resolved
// request. Full responses are 200 with a short positive cache; partial ones
// are 206 with no-store, since cached sub-ranges are useless to a seeking
// player. Accept-Ranges is always advertised.
func BuildResponse(meta models.FileMetadata, rng stream.ByteRange) (int, http.Header) {
	headers := http.Header{}
	headers.Set("Accept-Ranges", "bytes")
	headers.Set("Content-Type", contentType(meta))
	headers.Set("Content-Length", strconv.FormatInt(rng.Length(), 10))

	if !rng.Partial {
		headers.Set("Cache-Control", "public, max-age=3600")
		return http.StatusOK, headers
	}

	headers.Set("Cache-Control", "no-store")
	headers.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", rng.Start, rng.End, rng.Total))
	return http.StatusPartialContent, headers
}

// BuildUnsatisfiable produces the terminal 416 response for an out-of-bounds
// range. The relay is never invoked for these.
func BuildUnsatisfiable(total int64) (int, http.Header) {
	headers := http.Header{}
	headers.Set("Accept-Ranges", "bytes")
	headers.Set("Content-Range", fmt.Sprintf("bytes */%d", total))
	return http.StatusRequestedRangeNotSatisfiable, headers
}

func contentType(meta models.FileMetadata) string {
	if meta.MimeType != "" {
		return meta.MimeType
	}
	return defaultContentType
}
