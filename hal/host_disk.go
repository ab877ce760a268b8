package hal

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// DiskOptions configures a DiskController.
type DiskOptions struct {
	// BlockSize is the size of one block in bytes. Default 512.
	BlockSize int
	// Latency is how long each command takes before it completes.
	Latency time.Duration
}

// DiskStats reports controller activity.
type DiskStats struct {
	Issued    uint64
	Completed uint64
	Rejected  uint64
	// MaxOutstanding is the highest number of commands ever in flight at once.
	MaxOutstanding int
}

// DiskController emulates a disk controller over a BlockStore. Commands
// run on their own goroutine and complete by calling the interrupt
// callback.
type DiskController struct {
	store BlockStore
	opts  DiskOptions

	mu          sync.Mutex
	irq         func()
	ready       bool
	closed      bool
	outstanding int
	result      error
	stats       DiskStats
	wg          sync.WaitGroup
}

var _ Disk = (*DiskController)(nil)

// NewDisk returns a controller for store.
func NewDisk(store BlockStore, opts DiskOptions) *DiskController {
	if opts.BlockSize <= 0 {
		opts.BlockSize = 512
	}
	return &DiskController{store: store, opts: opts}
}

func (c *DiskController) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrDiskClosed
	}
	if c.store == nil {
		return fmt.Errorf("disk init: no store: %w", os.ErrInvalid)
	}
	if c.store.Size() < int64(c.opts.BlockSize) {
		return fmt.Errorf("disk init: store of %d bytes holds no %d-byte block: %w", c.store.Size(), c.opts.BlockSize, os.ErrInvalid)
	}
	c.ready = true
	return nil
}

func (c *DiskController) Geometry() (blocks, blockSize int) {
	if c.store == nil {
		return 0, c.opts.BlockSize
	}
	return int(c.store.Size() / int64(c.opts.BlockSize)), c.opts.BlockSize
}

func (c *DiskController) SetInterrupt(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.irq = fn
}

func (c *DiskController) Issue(op DiskOp, block int, buf []byte) error {
	blocks, size := c.Geometry()

	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.closed:
		return ErrDiskClosed
	case !c.ready:
		return fmt.Errorf("disk issue: not initialized: %w", os.ErrInvalid)
	case c.outstanding > 0:
		c.stats.Rejected++
		return ErrDiskBusy
	case op != DiskRead && op != DiskWrite:
		return fmt.Errorf("disk issue: op %d: %w", op, os.ErrInvalid)
	case block < 0 || block >= blocks:
		return fmt.Errorf("disk issue: block %d of %d: %w", block, blocks, os.ErrInvalid)
	case len(buf) != size:
		return fmt.Errorf("disk issue: buffer of %d bytes, block is %d: %w", len(buf), size, os.ErrInvalid)
	}

	c.outstanding++
	if c.outstanding > c.stats.MaxOutstanding {
		c.stats.MaxOutstanding = c.outstanding
	}
	c.stats.Issued++
	c.wg.Add(1)
	go c.execute(op, int64(block)*int64(size), buf)
	return nil
}

func (c *DiskController) execute(op DiskOp, off int64, buf []byte) {
	defer c.wg.Done()
	if c.opts.Latency > 0 {
		time.Sleep(c.opts.Latency)
	}

	var err error
	switch op {
	case DiskRead:
		_, err = c.store.ReadAt(buf, off)
	case DiskWrite:
		_, err = c.store.WriteAt(buf, off)
	}
	if err != nil {
		err = fmt.Errorf("disk %s at %d: %w", op, off, err)
	}

	c.mu.Lock()
	c.result = err
	c.outstanding--
	c.stats.Completed++
	irq := c.irq
	c.mu.Unlock()

	if irq != nil {
		irq()
	}
}

func (c *DiskController) Result() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// Stats returns a snapshot of the controller counters.
func (c *DiskController) Stats() DiskStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Close waits for the outstanding command and closes the store.
func (c *DiskController) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.wg.Wait()
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}
