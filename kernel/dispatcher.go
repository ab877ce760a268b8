package kernel

import (
	"github.com/sirupsen/logrus"
)

// dispatch is the body of the dispatcher task. It runs while any
// non-daemon task is alive, then halts the kernel.
func (k *Kernel) dispatch(any) {
	d := k.dispatcher
	for k.live > 0 {
		k.serviceIRQs()
		k.wakeSleepers()

		next := agingPick(&k.ready, k.cfg.AgingStep)
		if next == nil {
			k.idle()
			continue
		}

		k.ready.Remove(next)
		next.state = StateRunning
		d.state = StateReady
		k.remaining.Store(int64(k.cfg.Quantum))
		k.record(EventDispatch, next)
		err := k.swap(d, next)
		d.state = StateRunning
		if err != nil {
			k.abandon(next)
		}

		if k.reap != nil {
			k.release(k.reap)
			k.reap = nil
		}
		k.metrics.ReadyTasks.Set(float64(k.ready.Len()))
	}
	k.shutdown()
}

// wakeSleepers moves every sleeper whose wake tick has passed to the ready
// queue.
func (k *Kernel) wakeSleepers() {
	if k.sleep.Empty() {
		return
	}
	now := k.ticks.Load()
	k.sleep.Each(func(t *Task) bool {
		if t.wakeTick <= now {
			k.resume(t)
		}
		return true
	})
}

// idle waits for the next tick or interrupt.
func (k *Kernel) idle() {
	select {
	case irq := <-k.irqs:
		k.handleIRQ(irq)
	case <-k.tickNote:
	}
}

// abandon retires a task whose context could not be restored.
func (k *Kernel) abandon(t *Task) {
	k.log.WithField("task", t.id).Error("task abandoned after failed switch")
	k.finish(t, PanicExitCode)
}

// shutdown halts the kernel and hands the processor back to the main task
// for good.
func (k *Kernel) shutdown() {
	d := k.dispatcher
	d.state = StateExited
	d.lifeTicks = k.ticks.Load() - d.created

	k.halted.Store(true)
	close(k.halt)
	for _, t := range k.tasks {
		if t != k.main {
			k.release(t)
		}
	}
	k.record(EventHalt, d)
	k.log.WithFields(logrus.Fields{
		"ticks":       k.ticks.Load(),
		"activations": d.activations,
	}).Info("kernel halted")

	m := k.main
	k.account(d, m)
	m.ctx.wake <- struct{}{}
	exitGoroutine()
}
