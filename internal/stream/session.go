package stream

import (
	"time"

	"github.com/google/uuid"
)

// Session tracks one in-flight relay of bytes for a single response. It is
// owned exclusively by the request task that created it and is never shared
// across requests.
type Session struct {
	ID     string
	FileID string
	Range  ByteRange

	startedAt    time.Time
	bytesWritten int64
}

// NewSession creates the bookkeeping record for one response body transfer.
func NewSession(fileID string, rng ByteRange) *Session {
	return &Session{
		ID:        uuid.NewString(),
		FileID:    fileID,
		Range:     rng,
		startedAt: time.Now(),
	}
}

// BytesWritten reports how many body bytes have reached the downstream
// writer so far. Callers use a zero value to tell pre-stream failures
// (recoverable at the HTTP layer) from mid-stream ones (connection is lost).
func (s *Session) BytesWritten() int64 { return s.bytesWritten }

// Elapsed returns the wall time since the transfer began.
func (s *Session) Elapsed() time.Duration { return time.Since(s.startedAt) }
