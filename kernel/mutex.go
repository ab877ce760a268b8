package kernel

import "fmt"

// Mutex is a lock with direct hand-off: Unlock passes ownership to the
// oldest waiter without ever leaving the lock free.
//
// Destroying a held mutex is allowed. Waiters get ErrDestroyed and the
// holder's later Unlock returns ErrInactive.
type Mutex struct {
	k       *Kernel
	holder  *Task
	active  bool
	waiters TaskQueue
}

// NewMutex creates an unlocked mutex.
func (k *Kernel) NewMutex() (*Mutex, error) {
	if err := k.enter(); err != nil {
		return nil, err
	}
	k.disablePreempt()
	defer k.enablePreempt()
	return &Mutex{k: k, active: true, waiters: TaskQueue{name: "mutex"}}, nil
}

// Lock acquires the mutex, blocking while another task holds it.
func (m *Mutex) Lock() error {
	if err := m.check(); err != nil {
		return err
	}
	k := m.k
	cur := k.current
	if m.holder == cur {
		return fmt.Errorf("%w: %s already holds the mutex", ErrInvalid, cur)
	}
	k.disablePreempt()
	if m.holder != nil {
		// Unlock sets holder before waking us.
		return k.block(&m.waiters)
	}
	m.holder = cur
	k.enablePreempt()
	return nil
}

// Unlock releases the mutex or hands it to the oldest waiter. Only the
// holder may unlock.
func (m *Mutex) Unlock() error {
	if err := m.check(); err != nil {
		return err
	}
	k := m.k
	if m.holder != k.current {
		return fmt.Errorf("%w: %s does not hold the mutex", ErrInvalid, k.current)
	}
	k.disablePreempt()
	if next := m.waiters.Head(); next != nil {
		m.holder = next
		k.resume(next)
	} else {
		m.holder = nil
	}
	k.enablePreempt()
	return nil
}

// Destroy deactivates the mutex and wakes every waiter with ErrDestroyed.
func (m *Mutex) Destroy() error {
	if err := m.check(); err != nil {
		return err
	}
	k := m.k
	k.disablePreempt()
	m.active = false
	m.holder = nil
	k.wakeAll(&m.waiters, ErrDestroyed)
	k.enablePreempt()
	return nil
}

// Waiting returns the number of blocked tasks.
func (m *Mutex) Waiting() int { return m.waiters.Len() }

// Holder returns the task holding the mutex, or nil.
func (m *Mutex) Holder() *Task { return m.holder }

func (m *Mutex) check() error {
	if m == nil || m.k == nil {
		return fmt.Errorf("%w: nil mutex", ErrInvalid)
	}
	if err := m.k.enter(); err != nil {
		return err
	}
	if !m.active {
		return ErrInactive
	}
	return nil
}
