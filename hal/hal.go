// Package hal is the boundary between the kernel and the machine it runs
// on: the tick source, the disk controller and its backing stores, and
// logging.
package hal

import (
	"errors"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// ErrDiskBusy is returned when a command is issued while another is
	// outstanding.
	ErrDiskBusy = errors.New("hal: disk busy")
	// ErrDiskClosed is returned by a controller after Close.
	ErrDiskClosed = errors.New("hal: disk closed")
	// ErrStoreLocked is returned when a disk image is in use by another
	// process.
	ErrStoreLocked = errors.New("hal: disk image locked")
)

// Time provides a tick stream. Sequence numbers increase by one per tick;
// a slow reader may see gaps.
type Time interface {
	Ticks() <-chan uint64
	Interval() time.Duration
}

// DiskOp is a disk command.
type DiskOp uint8

const (
	DiskRead DiskOp = iota + 1
	DiskWrite
)

func (op DiskOp) String() string {
	switch op {
	case DiskRead:
		return "read"
	case DiskWrite:
		return "write"
	default:
		return "unknown"
	}
}

// Disk is a block device that executes one command at a time and signals
// completion through an interrupt callback.
type Disk interface {
	// Init prepares the device for use.
	Init() error
	// Geometry returns the number of blocks and the block size in bytes.
	Geometry() (blocks, blockSize int)
	// Issue starts op on block. buf must be exactly one block long and
	// must not be touched until the completion interrupt.
	Issue(op DiskOp, block int, buf []byte) error
	// Result returns the outcome of the last completed command.
	Result() error
	// SetInterrupt installs the completion callback. It is called from a
	// device goroutine.
	SetInterrupt(fn func())
	Close() error
}

// BlockStore is the medium behind a disk.
type BlockStore interface {
	io.ReaderAt
	io.WriterAt
	Size() int64
	Close() error
}

// HAL provides the only contact point between the kernel and the outside
// world.
type HAL interface {
	Logger() logrus.FieldLogger
	Time() Time
	// Disk returns the disk controller, or nil if the host has none.
	Disk() Disk
	Close() error
}
