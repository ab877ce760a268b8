//go:build linux || darwin

package hal

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// fileStore is a disk image accessed with positional syscalls and held
// under an exclusive advisory lock.
type fileStore struct {
	f    *os.File
	fd   int
	size int64
}

// OpenFileStore opens the disk image at path, creating it with size bytes
// if it does not exist or is empty. An existing image keeps its size.
func OpenFileStore(path string, size int64) (BlockStore, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open disk image: %w", err)
	}
	fd := int(f.Fd())
	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%s: %w", path, ErrStoreLocked)
		}
		return nil, fmt.Errorf("lock disk image: %w", err)
	}

	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat disk image: %w", err)
	}
	if st.Size() > 0 {
		size = st.Size()
	} else if err := unix.Ftruncate(fd, size); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("size disk image: %w", err)
	}
	return &fileStore{f: f, fd: fd, size: size}, nil
}

func (s *fileStore) Size() int64 { return s.size }

func (s *fileStore) ReadAt(p []byte, off int64) (int, error) {
	read := 0
	for read < len(p) {
		n, err := unix.Pread(s.fd, p[read:], off+int64(read))
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return read, fmt.Errorf("pread at %d: %w", off, err)
		}
		if n == 0 {
			return read, io.EOF
		}
		read += n
	}
	return read, nil
}

func (s *fileStore) WriteAt(p []byte, off int64) (int, error) {
	if off+int64(len(p)) > s.size {
		return 0, fmt.Errorf("write of %d bytes at %d past image end: %w", len(p), off, os.ErrInvalid)
	}
	written := 0
	for written < len(p) {
		n, err := unix.Pwrite(s.fd, p[written:], off+int64(written))
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return written, fmt.Errorf("pwrite at %d: %w", off, err)
		}
		written += n
	}
	return written, nil
}

// Sync flushes the image to stable storage.
func (s *fileStore) Sync() error {
	return unix.Fsync(s.fd)
}

func (s *fileStore) Close() error {
	syncErr := s.Sync()
	_ = unix.Flock(s.fd, unix.LOCK_UN)
	if err := s.f.Close(); err != nil {
		return err
	}
	return syncErr
}
