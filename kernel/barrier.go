package kernel

import "fmt"

// Barrier releases a group of n tasks once all of them have arrived, then
// resets for the next round.
type Barrier struct {
	k       *Kernel
	n       int
	arrived int
	active  bool
	waiters TaskQueue
}

// NewBarrier creates a barrier for n participants.
func (k *Kernel) NewBarrier(n int) (*Barrier, error) {
	if err := k.enter(); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: barrier size %d", ErrInvalid, n)
	}
	k.disablePreempt()
	defer k.enablePreempt()
	return &Barrier{k: k, n: n, active: true, waiters: TaskQueue{name: "barrier"}}, nil
}

// Join arrives at the barrier. The n-th arrival releases the others and
// returns without blocking.
func (b *Barrier) Join() error {
	if b == nil || b.k == nil {
		return fmt.Errorf("%w: nil barrier", ErrInvalid)
	}
	k := b.k
	if err := k.enter(); err != nil {
		return err
	}
	if !b.active {
		return ErrInactive
	}
	k.disablePreempt()
	b.arrived++
	if b.arrived < b.n {
		return k.block(&b.waiters)
	}
	k.wakeAll(&b.waiters, nil)
	b.arrived = 0
	k.enablePreempt()
	return nil
}

// Destroy deactivates the barrier and wakes every waiter with ErrDestroyed.
func (b *Barrier) Destroy() error {
	if b == nil || b.k == nil {
		return fmt.Errorf("%w: nil barrier", ErrInvalid)
	}
	k := b.k
	if err := k.enter(); err != nil {
		return err
	}
	if !b.active {
		return ErrInactive
	}
	k.disablePreempt()
	b.active = false
	k.wakeAll(&b.waiters, ErrDestroyed)
	k.enablePreempt()
	return nil
}

// Arrived returns the number of tasks waiting in the current round.
func (b *Barrier) Arrived() int { return b.arrived }
