package textsource

import (
	"errors"
	"fmt"

	fsutil "github.com/kk-code-lab/bigtext/internal/fs"
)

var (
	// ErrIO indicates that a file could not be read or mapped.
	ErrIO = errors.New("file unavailable")

	// ErrRange indicates an offset or length outside [0, Len].
	ErrRange = errors.New("offset out of range")

	// ErrDisposed indicates an operation on a closed source or a swapped-out buffer.
	ErrDisposed = errors.New("buffer disposed")

	// ErrEncoding indicates bytes that cannot be decoded under the detected encoding.
	ErrEncoding = errors.New("undecodable byte sequence")

	// ErrCancelled indicates that a background operation was cancelled.
	ErrCancelled = errors.New("operation cancelled")

	// ErrNotReady indicates a position past the committed scan boundary.
	ErrNotReady = errors.New("position not yet scanned")
)

// IOError describes a failed file operation.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }

// RangeError describes a range that does not fit the source.
type RangeError struct {
	Offset int64
	Count  int64
	Len    int64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("range [%d, %d) outside [0, %d]", e.Offset, e.Offset+e.Count, e.Len)
}

func (e *RangeError) Is(target error) bool { return target == ErrRange }

// EncodingError reports a chunk whose bytes could not be decoded.
type EncodingError struct {
	Chunk      int
	ByteOffset int64
	Encoding   fsutil.Encoding
	Err        error
}

func (e *EncodingError) Error() string {
	msg := fmt.Sprintf("chunk %d at byte %d is not valid %s", e.Chunk, e.ByteOffset, e.Encoding)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *EncodingError) Unwrap() error { return e.Err }

func (e *EncodingError) Is(target error) bool { return target == ErrEncoding }

// CheckRange validates that [start, start+count) lies within [0, length].
func CheckRange(start, count, length int64) error {
	if start < 0 || count < 0 || start > length || count > length-start {
		return &RangeError{Offset: start, Count: count, Len: length}
	}
	return nil
}
