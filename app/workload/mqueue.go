package workload

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"greenos/kernel"
)

// MessageQueue runs producers that send random values through a small
// queue to a consumer that sums them.
func MessageQueue(ctx context.Context, env Env) error {
	k := env.Kernel
	const producers, perProducer, capacity = 3, 20, 4

	q, err := k.NewMessageQueue(capacity, 8)
	if err != nil {
		return err
	}
	defer q.Destroy()

	sent := make([]int64, producers)
	tasks := make([]*kernel.Task, 0, producers+1)
	for i := 0; i < producers; i++ {
		i := i
		t, err := k.CreateNamed(fmt.Sprintf("producer-%d", i), func(any) {
			rng := rand.New(rand.NewSource(int64(i) + 1))
			msg := make([]byte, 8)
			for j := 0; j < perProducer; j++ {
				if ctx.Err() != nil {
					k.Exit(2)
				}
				v := rng.Int63n(1000)
				binary.LittleEndian.PutUint64(msg, uint64(v))
				if q.Send(msg) != nil {
					k.Exit(3)
				}
				sent[i] += v
				_ = k.Sleep(time.Duration(rng.Intn(3)) * time.Millisecond)
			}
		}, nil)
		if err != nil {
			return err
		}
		tasks = append(tasks, t)
	}

	var received int64
	consumer, err := k.CreateNamed("consumer", func(any) {
		buf := make([]byte, 8)
		for j := 0; j < producers*perProducer; j++ {
			if q.Receive(buf) != nil {
				k.Exit(3)
			}
			received += int64(binary.LittleEndian.Uint64(buf))
		}
	}, nil)
	if err != nil {
		return err
	}
	tasks = append(tasks, consumer)

	if err := joinAll(k, tasks); err != nil {
		return err
	}
	var total int64
	for _, v := range sent {
		total += v
	}
	if total != received {
		return fmt.Errorf("received %d, sent %d", received, total)
	}
	env.Log.WithFields(logrus.Fields{"messages": producers * perProducer, "sum": received}).Info("mqueue done")
	return nil
}
