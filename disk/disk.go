// Package disk is the asynchronous block driver. Client tasks queue
// requests and sleep; a manager daemon feeds the controller one command at
// a time and wakes each client when the completion interrupt for its
// command has been serviced.
package disk

import (
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"greenos/hal"
	"greenos/kernel"
)

var (
	// ErrBlockRange is returned for a block number outside the disk.
	ErrBlockRange = fmt.Errorf("%w: block out of range", kernel.ErrInvalid)
	// ErrBufferSize is returned when a buffer is not exactly one block.
	ErrBufferSize = fmt.Errorf("%w: buffer is not one block", kernel.ErrInvalid)
)

// Options configures Init.
type Options struct {
	// Logger receives driver logs. Nil discards them.
	Logger logrus.FieldLogger
	// Registerer receives the driver metrics. Nil keeps them unregistered.
	Registerer prometheus.Registerer
}

type request struct {
	link  kernel.Links[*request]
	task  *kernel.Task
	op    hal.DiskOp
	block int
	buf   []byte
	err   error
}

func (r *request) QueueLinks() *kernel.Links[*request] { return &r.link }

// Driver is the disk subsystem of one kernel.
type Driver struct {
	k   *kernel.Kernel
	dev hal.Disk
	log *logrus.Entry
	m   *metrics

	blocks    int
	blockSize int

	// Guarded by lock.
	lock     *kernel.Semaphore
	busy     bool
	inflight *request
	requests *kernel.Queue[*request]

	// Set by the interrupt handler, cleared by the manager.
	signal bool

	waiters *kernel.TaskQueue
	parked  *kernel.TaskQueue
	manager *kernel.Task
}

// Init initializes dev, installs the completion handler on k and starts the
// manager daemon. It must be called from a task of k.
func Init(k *kernel.Kernel, dev hal.Disk, opts Options) (*Driver, error) {
	if k == nil || dev == nil {
		return nil, fmt.Errorf("%w: nil kernel or device", kernel.ErrInvalid)
	}
	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("disk init: %w", err)
	}
	blocks, size := dev.Geometry()
	if blocks <= 0 || size <= 0 {
		return nil, fmt.Errorf("%w: disk geometry %dx%d", kernel.ErrInvalid, blocks, size)
	}

	m, err := newMetrics(opts.Registerer, k.Boot())
	if err != nil {
		return nil, fmt.Errorf("disk metrics: %w", err)
	}
	lock, err := k.NewSemaphore(1)
	if err != nil {
		return nil, err
	}

	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	d := &Driver{
		k:         k,
		dev:       dev,
		log:       log.WithFields(logrus.Fields{"boot": k.Boot(), "component": "disk"}),
		m:         m,
		blocks:    blocks,
		blockSize: size,
		lock:      lock,
		requests:  kernel.NewQueue[*request]("disk-requests"),
		waiters:   kernel.NewTaskQueue("disk-waiters"),
		parked:    kernel.NewTaskQueue("disk-manager"),
	}

	if err := k.InstallHandler(kernel.IRQDisk, d.interrupt); err != nil {
		return nil, err
	}
	dev.SetInterrupt(func() {
		if err := k.Raise(kernel.IRQDisk); err != nil && !errors.Is(err, kernel.ErrHalted) {
			d.log.WithError(err).Error("raise disk interrupt")
		}
	})

	mgr, err := k.CreateDaemon("disk-manager", d.manage, nil)
	if err != nil {
		return nil, err
	}
	d.manager = mgr

	d.log.WithFields(logrus.Fields{"blocks": blocks, "block_size": size}).Info("disk initialized")
	return d, nil
}

// Geometry returns the number of blocks and the block size in bytes.
func (d *Driver) Geometry() (blocks, blockSize int) {
	return d.blocks, d.blockSize
}

// ReadBlock reads block into buf, suspending the calling task until the
// read completes. buf must be exactly one block long.
func (d *Driver) ReadBlock(block int, buf []byte) error {
	return d.submit(hal.DiskRead, block, buf)
}

// WriteBlock writes buf to block, suspending the calling task until the
// write completes. buf must be exactly one block long.
func (d *Driver) WriteBlock(block int, buf []byte) error {
	return d.submit(hal.DiskWrite, block, buf)
}

func (d *Driver) submit(op hal.DiskOp, block int, buf []byte) error {
	if d == nil {
		return fmt.Errorf("%w: nil disk driver", kernel.ErrInvalid)
	}
	if block < 0 || block >= d.blocks {
		return fmt.Errorf("%w: %d of %d", ErrBlockRange, block, d.blocks)
	}
	if len(buf) != d.blockSize {
		return fmt.Errorf("%w: %d bytes, block is %d", ErrBufferSize, len(buf), d.blockSize)
	}

	k := d.k
	if err := d.lock.Down(); err != nil {
		return err
	}
	req := &request{task: k.Current(), op: op, block: block, buf: buf}
	_ = d.requests.Append(req)
	d.m.queued.Set(float64(d.requests.Len()))
	if d.parked.Contains(d.manager) {
		_ = k.Resume(d.manager)
	}
	// Park before releasing the lock so the completion cannot be missed.
	if err := k.Suspend(nil, d.waiters); err != nil {
		d.requests.Remove(req)
		d.m.queued.Set(float64(d.requests.Len()))
		_ = d.lock.Up()
		return err
	}
	_ = d.lock.Up()
	if err := k.Yield(); err != nil {
		return err
	}

	d.m.ops.WithLabelValues(op.String(), resultLabel(req.err)).Inc()
	return req.err
}

// manage is the body of the manager daemon.
func (d *Driver) manage(any) {
	k := d.k
	for {
		if err := d.lock.Down(); err != nil {
			return
		}
		if d.signal {
			d.signal = false
			d.complete()
		}
		if !d.busy {
			if req, ok := d.requests.PopFront(); ok {
				d.issue(req)
			}
		}
		if !d.signal && (d.busy || d.requests.Empty()) {
			_ = k.Suspend(nil, d.parked)
		}
		_ = d.lock.Up()
		_ = k.Yield()
	}
}

// issue hands req to the controller. A rejected command fails the request
// at once.
func (d *Driver) issue(req *request) {
	d.m.queued.Set(float64(d.requests.Len()))
	if err := d.dev.Issue(req.op, req.block, req.buf); err != nil {
		d.log.WithError(err).WithField("block", req.block).Warn("disk command rejected")
		req.err = err
		d.wake(req)
		return
	}
	d.inflight = req
	d.busy = true
	d.m.busy.Set(1)
}

// complete retires the in-flight command.
func (d *Driver) complete() {
	req := d.inflight
	d.inflight = nil
	d.busy = false
	d.m.busy.Set(0)
	if req == nil {
		d.log.Warn("completion without a command in flight")
		return
	}
	req.err = d.dev.Result()
	d.wake(req)
}

func (d *Driver) wake(req *request) {
	if err := d.k.Resume(req.task); err != nil {
		d.log.WithError(err).WithField("task", req.task.ID()).Error("wake disk client")
	}
}

// interrupt runs on the dispatcher when the controller completes a command.
func (d *Driver) interrupt() {
	d.signal = true
	d.m.interrupts.Inc()
	if d.parked.Contains(d.manager) {
		_ = d.k.Resume(d.manager)
	}
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
