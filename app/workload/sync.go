package workload

import (
	"context"
	"fmt"
	"time"

	"greenos/kernel"
)

// Sync exercises the mutex, semaphore and barrier: workers increment a
// shared counter under a mutex, yielding inside the critical section,
// then meet at a barrier and take turns through a semaphore.
func Sync(ctx context.Context, env Env) error {
	k := env.Kernel
	const workers, increments = 4, 50

	mu, err := k.NewMutex()
	if err != nil {
		return err
	}
	defer mu.Destroy()
	bar, err := k.NewBarrier(workers)
	if err != nil {
		return err
	}
	defer bar.Destroy()
	sem, err := k.NewSemaphore(2)
	if err != nil {
		return err
	}
	defer sem.Destroy()

	counter, inside, peak := 0, 0, 0
	tasks := make([]*kernel.Task, 0, workers)
	for i := 0; i < workers; i++ {
		t, err := k.CreateNamed(fmt.Sprintf("sync-%d", i), func(any) {
			for j := 0; j < increments; j++ {
				if ctx.Err() != nil || mu.Lock() != nil {
					k.Exit(2)
				}
				v := counter
				_ = k.Yield()
				counter = v + 1
				_ = mu.Unlock()
			}
			if bar.Join() != nil {
				k.Exit(3)
			}
			if sem.Down() != nil {
				k.Exit(4)
			}
			inside++
			if inside > peak {
				peak = inside
			}
			_ = k.Sleep(2 * time.Millisecond)
			inside--
			_ = sem.Up()
		}, nil)
		if err != nil {
			return err
		}
		tasks = append(tasks, t)
	}

	if err := joinAll(k, tasks); err != nil {
		return err
	}
	if counter != workers*increments {
		return fmt.Errorf("counter = %d, want %d", counter, workers*increments)
	}
	if peak > 2 {
		return fmt.Errorf("%d tasks inside a semaphore of 2", peak)
	}
	env.Log.WithField("counter", counter).Info("sync done")
	return nil
}
