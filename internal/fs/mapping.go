package fs

import (
	"errors"
	"sync"
)

// ErrTooLarge is returned when a file does not fit in the address space.
var ErrTooLarge = errors.New("file too large to map")

// Mapping is a read-only view of a file's bytes.
type Mapping struct {
	data    []byte
	release func() error
	once    sync.Once
	err     error
}

// Bytes returns the mapped content. The slice must not be used after Close.
func (m *Mapping) Bytes() []byte {
	if m == nil {
		return nil
	}
	return m.data
}

// Len returns the mapped size in bytes.
func (m *Mapping) Len() int64 {
	if m == nil {
		return 0
	}
	return int64(len(m.data))
}

// Close releases the mapping. It is safe to call more than once.
func (m *Mapping) Close() error {
	if m == nil {
		return nil
	}
	m.once.Do(func() {
		if m.release != nil {
			m.err = m.release()
		}
		m.data = nil
	})
	return m.err
}
