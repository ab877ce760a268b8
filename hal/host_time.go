package hal

import (
	"sync"
	"time"
)

const tickBuffer = 1024

// Ticker is a wall-clock tick source.
type Ticker struct {
	interval time.Duration
	ch       chan uint64
	seq      uint64

	last time.Time
	acc  time.Duration

	stop chan struct{}
	once sync.Once
}

// NewTicker starts a tick source with the given interval. Ticks that the
// underlying timer coalesces are caught up from the elapsed wall time.
func NewTicker(interval time.Duration) *Ticker {
	if interval <= 0 {
		interval = time.Millisecond
	}
	t := &Ticker{
		interval: interval,
		ch:       make(chan uint64, tickBuffer),
		stop:     make(chan struct{}),
	}
	go t.run()
	return t
}

func (t *Ticker) Ticks() <-chan uint64 { return t.ch }

func (t *Ticker) Interval() time.Duration { return t.interval }

// Stop stops the ticker. The tick channel is not closed.
func (t *Ticker) Stop() {
	t.once.Do(func() { close(t.stop) })
}

func (t *Ticker) run() {
	tk := time.NewTicker(t.interval)
	defer tk.Stop()
	for {
		select {
		case <-t.stop:
			return
		case now := <-tk.C:
			t.step(now)
		}
	}
}

func (t *Ticker) step(now time.Time) {
	if t.last.IsZero() {
		t.last = now
		t.acc = 0
		t.stepN(1)
		return
	}

	t.acc += now.Sub(t.last)
	t.last = now

	ticks := uint64(t.acc / t.interval)
	if ticks == 0 {
		return
	}
	t.acc %= t.interval
	t.stepN(ticks)
}

func (t *Ticker) stepN(n uint64) {
	t.seq += n
	select {
	case t.ch <- t.seq:
	default:
	}
}

// ManualTime is a tick source advanced explicitly, for deterministic runs.
type ManualTime struct {
	mu       sync.Mutex
	interval time.Duration
	ch       chan uint64
	seq      uint64
}

// NewManualTime returns a tick source that only moves on Step.
func NewManualTime(interval time.Duration) *ManualTime {
	if interval <= 0 {
		interval = time.Millisecond
	}
	return &ManualTime{interval: interval, ch: make(chan uint64, tickBuffer)}
}

func (t *ManualTime) Ticks() <-chan uint64 { return t.ch }

func (t *ManualTime) Interval() time.Duration { return t.interval }

// Step advances time by n ticks and returns the new sequence number.
func (t *ManualTime) Step(n uint64) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq += n
	select {
	case t.ch <- t.seq:
	default:
	}
	return t.seq
}
