package workload

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"greenos/kernel"
)

// Disk has several tasks write their own stripe of blocks, read it back,
// and then swap blocks pairwise across the disk.
func Disk(ctx context.Context, env Env) error {
	d := env.Disk
	if d == nil {
		return errors.New("no disk attached")
	}
	k := env.Kernel
	blocks, size := d.Geometry()
	const workers = 4
	if blocks < 2*workers {
		return fmt.Errorf("disk of %d blocks is too small", blocks)
	}

	tasks := make([]*kernel.Task, 0, workers)
	for w := 0; w < workers; w++ {
		w := w
		t, err := k.CreateNamed(fmt.Sprintf("disk-%d", w), func(any) {
			buf := make([]byte, size)
			got := make([]byte, size)
			for b := w; b < blocks; b += workers {
				if ctx.Err() != nil {
					k.Exit(2)
				}
				stamp(buf, b)
				if err := d.WriteBlock(b, buf); err != nil {
					env.Log.WithError(err).WithField("block", b).Error("write")
					k.Exit(3)
				}
				if err := d.ReadBlock(b, got); err != nil || !bytes.Equal(got, buf) {
					env.Log.WithField("block", b).Error("read back mismatch")
					k.Exit(4)
				}
			}
		}, nil)
		if err != nil {
			return err
		}
		tasks = append(tasks, t)
	}
	if err := joinAll(k, tasks); err != nil {
		return err
	}

	// Swap block i with block blocks-1-i in the lower half.
	a, b := make([]byte, size), make([]byte, size)
	swaps := 0
	for i := 0; i < blocks/2 && i < 8; i++ {
		j := blocks - 1 - i
		if err := d.ReadBlock(i, a); err != nil {
			return err
		}
		if err := d.ReadBlock(j, b); err != nil {
			return err
		}
		if err := d.WriteBlock(i, b); err != nil {
			return err
		}
		if err := d.WriteBlock(j, a); err != nil {
			return err
		}
		want := make([]byte, size)
		stamp(want, j)
		if err := d.ReadBlock(i, a); err != nil {
			return err
		}
		if !bytes.Equal(a, want) {
			return fmt.Errorf("block %d does not hold block %d after swap", i, j)
		}
		swaps++
	}
	env.Log.WithFields(logrus.Fields{"blocks": blocks, "swaps": swaps}).Info("disk done")
	return nil
}

// stamp fills buf with a pattern unique to block.
func stamp(buf []byte, block int) {
	for i := range buf {
		buf[i] = byte(block*31 + i)
	}
}
