package hal

import (
	"fmt"
	"io"
	"os"
	"sync"
)

type memStore struct {
	mu  sync.Mutex
	buf []byte
}

// NewMemStore returns a zeroed in-memory store of size bytes.
func NewMemStore(size int) BlockStore {
	return &memStore{buf: make([]byte, size)}
}

func (s *memStore) Size() int64 { return int64(len(s.buf)) }

func (s *memStore) ReadAt(p []byte, off int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if off < 0 {
		return 0, fmt.Errorf("mem read at %d: %w", off, os.ErrInvalid)
	}
	if off >= int64(len(s.buf)) {
		return 0, io.EOF
	}
	n := copy(p, s.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (s *memStore) WriteAt(p []byte, off int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if off < 0 || off+int64(len(p)) > int64(len(s.buf)) {
		return 0, fmt.Errorf("mem write of %d bytes at %d: %w", len(p), off, os.ErrInvalid)
	}
	return copy(s.buf[off:], p), nil
}

func (s *memStore) Close() error { return nil }
