package kernel

import (
	"fmt"
	"runtime"

	"github.com/sirupsen/logrus"
)

// execContext is the saved execution state of a task: a goroutine parked
// on a one-slot channel. Sending on wake hands that goroutine the
// processor; at most one send is ever outstanding per context.
type execContext struct {
	wake chan struct{}
	halt <-chan struct{}
}

// newMainContext wraps the goroutine that called Init. It has no halt
// channel, so the main task only ever resumes through wake.
func newMainContext() *execContext {
	return &execContext{wake: make(chan struct{}, 1)}
}

func (k *Kernel) newContext(t *Task, entry EntryFunc, arg any) *execContext {
	c := &execContext{wake: make(chan struct{}, 1), halt: k.halt}
	go k.run(t, c, entry, arg)
	return c
}

// park blocks until the context is handed the processor. It reports false
// if the kernel halted first.
func (c *execContext) park() bool {
	select {
	case <-c.wake:
		return true
	case <-c.halt:
		return false
	}
}

func (k *Kernel) run(t *Task, c *execContext, entry EntryFunc, arg any) {
	if !c.park() {
		return
	}
	defer func() {
		r := recover()
		if k.halted.Load() {
			return
		}
		code := t.exitCode
		if r != nil {
			code = PanicExitCode
			k.metrics.Panics.Inc()
			k.log.WithFields(logrus.Fields{"task": t.id, "name": t.name, "panic": r}).Error("task panicked")
			triggerPanic(PanicInfo{Boot: k.boot, TaskID: t.id, Task: t.name, Value: r})
		}
		k.terminate(t, code)
	}()
	entry(arg)
}

// terminate finishes t and passes the processor to the dispatcher. It runs
// as the last thing on t's goroutine.
func (k *Kernel) terminate(t *Task, code int) {
	k.preemptOff = 0
	k.finish(t, code)
	d := k.dispatcher
	k.account(t, d)
	d.ctx.wake <- struct{}{}
}

// swap saves prev and restores next. It returns once prev is handed the
// processor again.
func (k *Kernel) swap(prev, next *Task) error {
	if next.ctx == nil || len(next.ctx.wake) == cap(next.ctx.wake) {
		err := fmt.Errorf("%w: %s -> %s", ErrSwitch, prev, next)
		k.log.WithError(err).Error("context switch failed")
		return err
	}
	// prev's context may be released by the dispatcher once next runs.
	pc := prev.ctx
	k.account(prev, next)
	next.ctx.wake <- struct{}{}
	if !pc.park() {
		exitGoroutine()
	}
	return nil
}

func (k *Kernel) account(prev, next *Task) {
	now := k.ticks.Load()
	if prev.state != StateExited {
		prev.procTicks += now - prev.lastDispatch
	}
	next.lastDispatch = now
	next.activations++
	k.current = next
	k.dispatching.Store(next == k.dispatcher)
	k.metrics.Switches.Inc()
	if k.debug {
		k.log.WithFields(logrus.Fields{"from": prev.id, "to": next.id}).Debug("switch")
	}
}

// release frees the context of an exited task.
func (k *Kernel) release(t *Task) {
	if t.ctx == nil {
		return
	}
	t.ctx = nil
	k.stacks--
	delete(k.tasks, t.id)
	if k.debug {
		k.log.WithField("task", t.id).Debug("context released")
	}
}

func exitGoroutine() {
	runtime.Goexit()
}
