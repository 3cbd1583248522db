package stream

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/acomagu/bufpipe"
	"github.com/sourcegraph/conc"
)

// streamPrefetched overlaps the upstream fetch of the next chunk with the
// downstream write of the current one. A token gate holds the producer back
// so the pipe never buffers more than two chunks of data.
func (r *Relay) streamPrefetched(ctx context.Context, src RangeFetcher, sess *Session, dst io.Writer, chunkSize int64) error {
	pr, pw := bufpipe.New(nil)
	tokens := make(chan struct{}, 2)
	done := make(chan struct{})

	var wg conc.WaitGroup
	wg.Go(func() {
		defer pw.Close()

		remaining := sess.Range.Length()
		position := sess.Range.Start
		for remaining > 0 {
			select {
			case tokens <- struct{}{}:
			case <-ctx.Done():
				_ = pw.CloseWithError(ctx.Err())
				return
			case <-done:
				return
			}

			readLen := chunkSize
			if remaining < readLen {
				readLen = remaining
			}
			data, err := r.fetchChunk(ctx, src, sess.FileID, position, readLen)
			if err != nil {
				_ = pw.CloseWithError(fmt.Errorf("fetch chunk at %d: %w", position, err))
				return
			}
			if len(data) == 0 {
				return
			}
			if _, err := pw.Write(data); err != nil {
				return
			}
			remaining -= int64(len(data))
			position += int64(len(data))
			if int64(len(data)) < readLen {
				return
			}
		}
	})

	err := r.drainPipe(ctx, pr, sess, dst, chunkSize, tokens)
	close(done)
	_ = pr.Close()
	wg.Wait()
	return err
}

func (r *Relay) drainPipe(ctx context.Context, pr *bufpipe.PipeReader, sess *Session, dst io.Writer, chunkSize int64, tokens chan struct{}) error {
	flusher, _ := dst.(interface{ Flush() })

	buf := make([]byte, chunkSize)
	var sinceRelease int64

	for {
		n, rerr := pr.Read(buf)
		if n > 0 {
			written, werr := dst.Write(buf[:n])
			sess.bytesWritten += int64(written)
			if werr != nil {
				return fmt.Errorf("%w: %v", ErrClientGone, werr)
			}
			if flusher != nil {
				flusher.Flush()
			}

			sinceRelease += int64(n)
			for sinceRelease >= chunkSize {
				select {
				case <-tokens:
				default:
				}
				sinceRelease -= chunkSize
			}
		}

		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return fmt.Errorf("%w: %v", ErrClientGone, ctx.Err())
			}
			return rerr
		}
	}
}
