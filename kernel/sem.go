package kernel

import "fmt"

// Semaphore is a counting semaphore with a FIFO wait queue. A negative
// value is the number of waiting tasks.
type Semaphore struct {
	k       *Kernel
	value   int
	active  bool
	waiters TaskQueue
}

// NewSemaphore creates a semaphore with the given initial value.
func (k *Kernel) NewSemaphore(value int) (*Semaphore, error) {
	if err := k.enter(); err != nil {
		return nil, err
	}
	k.disablePreempt()
	defer k.enablePreempt()
	return &Semaphore{k: k, value: value, active: true, waiters: TaskQueue{name: "sem"}}, nil
}

// Down decrements the semaphore, blocking while no unit is available. It
// returns ErrDestroyed if the semaphore is destroyed while the caller waits.
func (s *Semaphore) Down() error {
	if err := s.check(); err != nil {
		return err
	}
	k := s.k
	k.disablePreempt()
	s.value--
	if s.value < 0 {
		return k.block(&s.waiters)
	}
	k.enablePreempt()
	return nil
}

// Up increments the semaphore and wakes the oldest waiter, if any.
func (s *Semaphore) Up() error {
	if err := s.check(); err != nil {
		return err
	}
	k := s.k
	k.disablePreempt()
	s.value++
	if s.value <= 0 {
		k.wakeOne(&s.waiters)
	}
	k.enablePreempt()
	return nil
}

// Destroy deactivates the semaphore and wakes every waiter with
// ErrDestroyed.
func (s *Semaphore) Destroy() error {
	if err := s.check(); err != nil {
		return err
	}
	k := s.k
	k.disablePreempt()
	s.active = false
	k.wakeAll(&s.waiters, ErrDestroyed)
	k.enablePreempt()
	return nil
}

// Value returns the current count.
func (s *Semaphore) Value() int { return s.value }

// Waiting returns the number of blocked tasks.
func (s *Semaphore) Waiting() int { return s.waiters.Len() }

func (s *Semaphore) check() error {
	if s == nil || s.k == nil {
		return fmt.Errorf("%w: nil semaphore", ErrInvalid)
	}
	if err := s.k.enter(); err != nil {
		return err
	}
	if !s.active {
		return ErrInactive
	}
	return nil
}
