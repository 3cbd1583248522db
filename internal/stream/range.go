package stream

import (
	"regexp"
	"strconv"
)

// ByteRange is a validated byte interval of a remote object.
// Start and End are inclusive; Partial reports whether the request carried a
// Range header (callers use it to pick 206 over 200).
type ByteRange struct {
	Start   int64
	End     int64
	Total   int64
	Partial bool
}

// Length returns the number of bytes covered by the range.
func (r ByteRange) Length() int64 {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// Only single ranges of the form bytes=<start>-[<end>] are supported; a
// single <video> element never issues multi-range or suffix requests.
var rangePattern = regexp.MustCompile(`^bytes=(\d+)-(\d*)$`)

// ParseRange validates a raw Range header value against the object's known
// total size.
//
// An absent header yields the full-file range with Partial=false. A header
// that does not match bytes=<start>-[<end>] (including multi-range and
// suffix forms) yields ErrMalformedRange; callers are expected to treat that
// as "no header" and serve the full file. A well-formed header whose interval
// falls outside [0,total) yields ErrUnsatisfiableRange.
func ParseRange(header string, total int64) (ByteRange, error) {
	if header == "" {
		end := total - 1
		if total <= 0 {
			end = -1
		}
		return ByteRange{Start: 0, End: end, Total: total}, nil
	}

	m := rangePattern.FindStringSubmatch(header)
	if m == nil {
		return ByteRange{}, ErrMalformedRange
	}

	// Ranges cannot be validated until the object size is known.
	if total <= 0 {
		return ByteRange{}, ErrUnsatisfiableRange
	}

	start, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return ByteRange{}, ErrMalformedRange
	}

	end := total - 1
	if m[2] != "" {
		end, err = strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			return ByteRange{}, ErrMalformedRange
		}
	}

	if start >= total || end >= total || start > end {
		return ByteRange{}, ErrUnsatisfiableRange
	}

	return ByteRange{Start: start, End: end, Total: total, Partial: true}, nil
}
