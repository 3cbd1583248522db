package stream

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

const defaultChunkSize int64 = 2 * 1024 * 1024 // 2 MiB

// RangeFetcher pulls one byte interval of an upstream object. A response
// shorter than length means the object ends early; an empty response means
// end-of-stream.
type RangeFetcher interface {
	FetchRange(ctx context.Context, id string, start, length int64) ([]byte, error)
}

// Relay forwards a validated byte range from an upstream object to a
// downstream writer in bounded chunks. One chunk is in flight at a time
// (two when read-ahead is enabled), so peak memory stays bounded no matter
// how large the object is.
type Relay struct {
	// ChunkSize caps how many bytes are fetched and buffered per iteration.
	ChunkSize int64
	// ChunkTimeout bounds each individual upstream fetch call.
	ChunkTimeout time.Duration
	// ReadAhead enables fetching the next chunk while the current one is
	// being written downstream. Buffered bytes stay under two chunks.
	ReadAhead bool
}

// Stream writes the session's byte range from src to dst, flushing after
// every chunk so a progressively-playing client sees data immediately.
//
// Chunks are written in strictly increasing offset order. A short upstream
// read terminates the transfer cleanly (the object may be shorter than its
// reported metadata); an upstream error or a downstream write failure stops
// the loop at once. errors wrapping ErrClientGone indicate the downstream
// side went away and are not server failures. ErrNothingDelivered is
// returned when a non-empty range produced no bytes at all.
func (r *Relay) Stream(ctx context.Context, src RangeFetcher, sess *Session, dst io.Writer) error {
	chunkSize := r.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}

	if sess.Range.Length() <= 0 {
		return nil
	}

	var err error
	if r.ReadAhead {
		err = r.streamPrefetched(ctx, src, sess, dst, chunkSize)
	} else {
		err = r.streamSequential(ctx, src, sess, dst, chunkSize)
	}
	if err != nil {
		return err
	}

	if sess.bytesWritten == 0 {
		return ErrNothingDelivered
	}

	slog.Debug("stream.relay.done",
		"session_id", sess.ID,
		"file_id", sess.FileID,
		"range_start", sess.Range.Start,
		"range_end", sess.Range.End,
		"bytes_written", sess.bytesWritten,
		"elapsed", sess.Elapsed(),
	)
	return nil
}

func (r *Relay) streamSequential(ctx context.Context, src RangeFetcher, sess *Session, dst io.Writer, chunkSize int64) error {
	flusher, _ := dst.(interface{ Flush() })

	remaining := sess.Range.Length()
	position := sess.Range.Start

	for remaining > 0 {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrClientGone, ctx.Err())
		default:
		}

		readLen := chunkSize
		if remaining < readLen {
			readLen = remaining
		}

		data, err := r.fetchChunk(ctx, src, sess.FileID, position, readLen)
		if err != nil {
			return fmt.Errorf("fetch chunk at %d: %w", position, err)
		}
		if len(data) == 0 {
			// Upstream object is shorter than reported; not an error.
			break
		}

		n, werr := dst.Write(data)
		sess.bytesWritten += int64(n)
		if werr != nil {
			return fmt.Errorf("%w: %v", ErrClientGone, werr)
		}
		if flusher != nil {
			flusher.Flush()
		}

		remaining -= int64(n)
		position += int64(n)

		if int64(len(data)) < readLen {
			break
		}
	}

	return nil
}

func (r *Relay) fetchChunk(ctx context.Context, src RangeFetcher, id string, position, length int64) ([]byte, error) {
	if r.ChunkTimeout <= 0 {
		return src.FetchRange(ctx, id, position, length)
	}
	fctx, cancel := context.WithTimeout(ctx, r.ChunkTimeout)
	defer cancel()
	return src.FetchRange(fctx, id, position, length)
}
