package hal

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func TestDiskControllerCompletes(t *testing.T) {
	d := NewDisk(NewMemStore(8*64), DiskOptions{BlockSize: 64, Latency: time.Millisecond})
	defer d.Close()

	if err := d.Issue(DiskRead, 0, make([]byte, 64)); err == nil {
		t.Fatalf("Issue() before Init error = nil, want error")
	}
	if err := d.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if blocks, size := d.Geometry(); blocks != 8 || size != 64 {
		t.Fatalf("Geometry() = %d, %d, want 8, 64", blocks, size)
	}

	irq := make(chan struct{}, 1)
	d.SetInterrupt(func() { irq <- struct{}{} })

	data := bytes.Repeat([]byte{0xAB}, 64)
	if err := d.Issue(DiskWrite, 3, data); err != nil {
		t.Fatalf("Issue(write) error = %v", err)
	}
	if err := d.Issue(DiskRead, 3, make([]byte, 64)); !errors.Is(err, ErrDiskBusy) {
		t.Fatalf("Issue() while busy error = %v, want ErrDiskBusy", err)
	}
	<-irq
	if err := d.Result(); err != nil {
		t.Fatalf("Result() = %v", err)
	}

	got := make([]byte, 64)
	if err := d.Issue(DiskRead, 3, got); err != nil {
		t.Fatalf("Issue(read) error = %v", err)
	}
	<-irq
	if !bytes.Equal(got, data) {
		t.Fatalf("read %x, want %x", got[:4], data[:4])
	}

	st := d.Stats()
	if st.Issued != 2 || st.Completed != 2 || st.Rejected != 1 || st.MaxOutstanding != 1 {
		t.Fatalf("Stats() = %+v", st)
	}
}

func TestDiskControllerValidates(t *testing.T) {
	d := NewDisk(NewMemStore(4*64), DiskOptions{BlockSize: 64})
	if err := d.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := d.Issue(DiskRead, 4, make([]byte, 64)); err == nil {
		t.Fatalf("Issue() out of range error = nil, want error")
	}
	if err := d.Issue(DiskRead, 0, make([]byte, 10)); err == nil {
		t.Fatalf("Issue() short buffer error = nil, want error")
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := d.Issue(DiskRead, 0, make([]byte, 64)); !errors.Is(err, ErrDiskClosed) {
		t.Fatalf("Issue() after Close error = %v, want ErrDiskClosed", err)
	}
}

func TestManualTime(t *testing.T) {
	mt := NewManualTime(0)
	if mt.Interval() != time.Millisecond {
		t.Fatalf("Interval() = %v, want 1ms", mt.Interval())
	}
	mt.Step(1)
	mt.Step(4)
	if got := <-mt.Ticks(); got != 1 {
		t.Fatalf("first tick = %d, want 1", got)
	}
	if got := <-mt.Ticks(); got != 5 {
		t.Fatalf("second tick = %d, want 5", got)
	}
}

func TestTickerAdvances(t *testing.T) {
	tk := NewTicker(time.Millisecond)
	defer tk.Stop()

	var last uint64
	for i := 0; i < 3; i++ {
		select {
		case seq := <-tk.Ticks():
			if seq <= last {
				t.Fatalf("tick %d after %d, want increasing", seq, last)
			}
			last = seq
		case <-time.After(time.Second):
			t.Fatalf("no tick within 1s")
		}
	}
}

func TestNewHostBackends(t *testing.T) {
	for _, backend := range []string{DiskNone, DiskMem, DiskEEPROM} {
		h, err := NewHost(HostConfig{DiskBackend: backend, Blocks: 16, BlockSize: 64})
		if err != nil {
			t.Fatalf("NewHost(%q) error = %v", backend, err)
		}
		if (h.Disk() == nil) != (backend == DiskNone) {
			t.Fatalf("NewHost(%q) Disk() = %v", backend, h.Disk())
		}
		if err := h.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
	}
	if _, err := NewHost(HostConfig{DiskBackend: "tape"}); err == nil {
		t.Fatalf("NewHost(tape) error = nil, want error")
	}
}
