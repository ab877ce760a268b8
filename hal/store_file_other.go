//go:build !linux && !darwin

package hal

import (
	"fmt"
	"os"
)

type fileStore struct {
	*os.File
	size int64
}

// OpenFileStore opens the disk image at path, creating it with size bytes
// if it does not exist or is empty. An existing image keeps its size.
func OpenFileStore(path string, size int64) (BlockStore, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open disk image: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat disk image: %w", err)
	}
	if st.Size() > 0 {
		size = st.Size()
	} else if err := f.Truncate(size); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("size disk image: %w", err)
	}
	return &fileStore{File: f, size: size}, nil
}

func (s *fileStore) Size() int64 { return s.size }

func (s *fileStore) Close() error {
	syncErr := s.File.Sync()
	if err := s.File.Close(); err != nil {
		return err
	}
	return syncErr
}
