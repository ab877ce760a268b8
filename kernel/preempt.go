package kernel

// startClock forwards tick sequence numbers from the configured clock
// until the kernel halts.
func (k *Kernel) startClock() {
	ch := k.cfg.Clock
	if ch == nil {
		return
	}
	go func() {
		for {
			select {
			case seq, ok := <-ch:
				if !ok {
					return
				}
				k.TickTo(seq)
			case <-k.halt:
				return
			}
		}
	}()
}

// TickTo advances the tick counter to seq. Sequence numbers that do not
// move time forward are ignored, so a clock may drop ticks under load.
// TickTo is the timer interrupt: it is safe to call from any goroutine and
// only charges the quantum of the running task when that task is not the
// dispatcher.
func (k *Kernel) TickTo(seq uint64) {
	for {
		cur := k.ticks.Load()
		if seq <= cur {
			return
		}
		if k.ticks.CompareAndSwap(cur, seq) {
			k.charge(seq - cur)
			break
		}
	}
	k.notifyTick()
}

// Tick advances time by one tick.
func (k *Kernel) Tick() {
	k.ticks.Add(1)
	k.charge(1)
	k.notifyTick()
}

func (k *Kernel) charge(n uint64) {
	if !k.dispatching.Load() {
		k.remaining.Add(-int64(n))
	}
}

func (k *Kernel) notifyTick() {
	select {
	case k.tickNote <- struct{}{}:
	default:
	}
}

// Checkpoint is a preemption point. If the running task has used up its
// quantum and preemption is enabled, it yields. Long computations should
// call it periodically; every kernel operation does so on its way out.
func (k *Kernel) Checkpoint() {
	if k.enter() != nil {
		return
	}
	k.checkpoint()
}

func (k *Kernel) checkpoint() {
	if k.preemptOff > 0 {
		return
	}
	cur := k.current
	if cur == nil || cur == k.dispatcher || cur.state != StateRunning {
		return
	}
	if k.remaining.Load() > 0 {
		return
	}
	k.metrics.Preemptions.Inc()
	k.record(EventPreempt, cur)
	k.yield()
}

// disablePreempt opens a section in which quantum expiry is not acted on.
func (k *Kernel) disablePreempt() { k.preemptOff++ }

// enablePreempt closes the section and takes any preemption that came due
// inside it.
func (k *Kernel) enablePreempt() {
	k.preemptOff--
	k.checkpoint()
}

// restorePreempt closes the section without a checkpoint. Callers use it
// right before giving up the processor themselves.
func (k *Kernel) restorePreempt() { k.preemptOff-- }
