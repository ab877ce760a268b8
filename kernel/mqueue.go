package kernel

import "fmt"

// MessageQueue is a bounded FIFO of fixed-size messages. Senders block
// while it is full and receivers block while it is empty.
type MessageQueue struct {
	k      *Kernel
	size   int
	max    int
	count  int
	buf    []byte
	active bool

	lock  *Semaphore
	items *Semaphore
	slots *Semaphore
}

// NewMessageQueue creates a queue holding up to capacity messages of
// exactly size bytes each.
func (k *Kernel) NewMessageQueue(capacity, size int) (*MessageQueue, error) {
	if err := k.enter(); err != nil {
		return nil, err
	}
	if capacity <= 0 || size <= 0 {
		return nil, fmt.Errorf("%w: message queue %dx%d", ErrInvalid, capacity, size)
	}
	k.disablePreempt()
	defer k.enablePreempt()

	q := &MessageQueue{k: k, size: size, max: capacity, buf: make([]byte, capacity*size), active: true}
	q.lock = &Semaphore{k: k, value: 1, active: true, waiters: TaskQueue{name: "mq-buffer"}}
	q.items = &Semaphore{k: k, value: 0, active: true, waiters: TaskQueue{name: "mq-items"}}
	q.slots = &Semaphore{k: k, value: capacity, active: true, waiters: TaskQueue{name: "mq-slots"}}
	return q, nil
}

// Send appends msg, blocking while the queue is full. len(msg) must equal
// the message size.
func (q *MessageQueue) Send(msg []byte) error {
	if err := q.check(); err != nil {
		return err
	}
	if len(msg) != q.size {
		return fmt.Errorf("%w: message is %d bytes, queue takes %d", ErrInvalid, len(msg), q.size)
	}
	if err := q.slots.Down(); err != nil {
		return err
	}
	if err := q.lock.Down(); err != nil {
		return err
	}
	copy(q.buf[q.count*q.size:], msg)
	q.count++
	_ = q.lock.Up()
	return q.items.Up()
}

// Receive copies the oldest message into buf, blocking while the queue is
// empty. buf must hold at least one message.
func (q *MessageQueue) Receive(buf []byte) error {
	if err := q.check(); err != nil {
		return err
	}
	if len(buf) < q.size {
		return fmt.Errorf("%w: buffer is %d bytes, queue needs %d", ErrInvalid, len(buf), q.size)
	}
	if err := q.items.Down(); err != nil {
		return err
	}
	if err := q.lock.Down(); err != nil {
		return err
	}
	q.count--
	copy(buf, q.buf[:q.size])
	copy(q.buf, q.buf[q.size:(q.count+1)*q.size])
	_ = q.lock.Up()
	return q.slots.Up()
}

// Destroy deactivates the queue and wakes every blocked sender and
// receiver with ErrDestroyed.
func (q *MessageQueue) Destroy() error {
	if err := q.check(); err != nil {
		return err
	}
	q.active = false
	k := q.k
	k.disablePreempt()
	for _, s := range []*Semaphore{q.lock, q.items, q.slots} {
		s.active = false
		k.wakeAll(&s.waiters, ErrDestroyed)
	}
	k.enablePreempt()
	return nil
}

// Pending returns the number of queued messages.
func (q *MessageQueue) Pending() (int, error) {
	if err := q.check(); err != nil {
		return 0, err
	}
	return q.count, nil
}

// Capacity returns the maximum number of queued messages.
func (q *MessageQueue) Capacity() int { return q.max }

// MessageSize returns the fixed message size in bytes.
func (q *MessageQueue) MessageSize() int { return q.size }

func (q *MessageQueue) check() error {
	if q == nil || q.k == nil {
		return fmt.Errorf("%w: nil message queue", ErrInvalid)
	}
	if err := q.k.enter(); err != nil {
		return err
	}
	if !q.active {
		return ErrInactive
	}
	return nil
}
