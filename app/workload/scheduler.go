package workload

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"greenos/kernel"
)

// Scheduler runs CPU-bound tasks of different priorities side by side and
// reports how the processor was shared.
func Scheduler(ctx context.Context, env Env) error {
	k := env.Kernel
	prios := []int{-8, -4, 0, 4, 8}
	const rounds = 2000

	tasks := make([]*kernel.Task, 0, len(prios))
	for _, p := range prios {
		p := p
		t, err := k.CreateNamed(fmt.Sprintf("spin%+d", p), func(any) {
			if err := k.SetPriority(nil, p); err != nil {
				k.Exit(1)
			}
			sum := 0
			for i := 0; i < rounds; i++ {
				if ctx.Err() != nil {
					k.Exit(2)
				}
				for j := 0; j < 1000; j++ {
					sum += j
				}
				k.Checkpoint()
			}
			_ = sum
		}, nil)
		if err != nil {
			return err
		}
		tasks = append(tasks, t)
	}

	err := joinAll(k, tasks)
	for _, t := range tasks {
		st := t.Stats()
		env.Log.WithFields(logrus.Fields{
			"task":        t.Name(),
			"priority":    k.Priority(t),
			"processor":   st.Processor,
			"lifetime":    st.Lifetime,
			"activations": st.Activations,
		}).Info("scheduler task")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return err
}
