package stream_test

import (
	"errors"
	"testing"

	"vidrelay/internal/stream"
)

func TestParseRangeExplicit(t *testing.T) {
	t.Parallel()

	rng, err := stream.ParseRange("bytes=0-1023", 4096)
	if err != nil {
		t.Fatalf("ParseRange() error = %v", err)
	}
	if rng.Start != 0 || rng.End != 1023 || !rng.Partial {
		t.Fatalf("ParseRange() = %#v, want start=0 end=1023 partial", rng)
	}
	if rng.Length() != 1024 {
		t.Fatalf("Length() = %d, want 1024", rng.Length())
	}
}

func TestParseRangeOpenEnded(t *testing.T) {
	t.Parallel()

	rng, err := stream.ParseRange("bytes=100-", 1000)
	if err != nil {
		t.Fatalf("ParseRange() error = %v", err)
	}
	if rng.Start != 100 || rng.End != 999 {
		t.Fatalf("ParseRange() = %#v, want start=100 end=999", rng)
	}
}

func TestParseRangeAbsentHeader(t *testing.T) {
	t.Parallel()

	rng, err := stream.ParseRange("", 500)
	if err != nil {
		t.Fatalf("ParseRange() error = %v", err)
	}
	if rng.Start != 0 || rng.End != 499 || rng.Partial {
		t.Fatalf("ParseRange() = %#v, want full-file range", rng)
	}
}

func TestParseRangeMalformed(t *testing.T) {
	t.Parallel()

	for _, header := range []string{
		"items=0-1",
		"bytes=0-1,2-3",
		"bytes=-500",
		"bytes=abc-def",
		"bytes=10",
	} {
		if _, err := stream.ParseRange(header, 1000); !errors.Is(err, stream.ErrMalformedRange) {
			t.Fatalf("ParseRange(%q) error = %v, want ErrMalformedRange", header, err)
		}
	}
}

func TestParseRangeUnsatisfiable(t *testing.T) {
	t.Parallel()

	for _, header := range []string{
		"bytes=2000-3000",
		"bytes=1000-",
		"bytes=0-1000",
		"bytes=500-100",
	} {
		if _, err := stream.ParseRange(header, 1000); !errors.Is(err, stream.ErrUnsatisfiableRange) {
			t.Fatalf("ParseRange(%q) error = %v, want ErrUnsatisfiableRange", header, err)
		}
	}
}

func TestParseRangeUnknownSize(t *testing.T) {
	t.Parallel()

	if _, err := stream.ParseRange("bytes=0-10", 0); !errors.Is(err, stream.ErrUnsatisfiableRange) {
		t.Fatalf("expected ErrUnsatisfiableRange for unknown size, got %v", err)
	}

	rng, err := stream.ParseRange("", 0)
	if err != nil {
		t.Fatalf("ParseRange() error = %v", err)
	}
	if rng.Length() != 0 || rng.Partial {
		t.Fatalf("empty object without header should yield an empty full range, got %#v", rng)
	}
}
