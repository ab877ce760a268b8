package kernel

import "fmt"

// Links holds the intrusive link fields of a queue element. Embed it in the
// element type and return its address from QueueLinks.
type Links[E any] struct {
	prev, next E
	owner      namedQueue
}

// namedQueue is the owning *Queue[E] of a linked element.
type namedQueue interface{ Name() string }

// Element is implemented by pointer types that can be linked into a Queue.
type Element[E any] interface {
	comparable
	QueueLinks() *Links[E]
}

// Queue is a circular doubly linked list. Elements are appended at the tail
// and a known element is removed in constant time. An element belongs to at
// most one queue at a time.
//
// The zero value is an empty, unnamed queue.
type Queue[E Element[E]] struct {
	name string
	head E
	n    int
}

// TaskQueue is a queue of tasks.
type TaskQueue = Queue[*Task]

// NewQueue returns an empty queue. The name only shows up in logs and errors.
func NewQueue[E Element[E]](name string) *Queue[E] {
	return &Queue[E]{name: name}
}

// NewTaskQueue returns an empty task queue.
func NewTaskQueue(name string) *TaskQueue {
	return NewQueue[*Task](name)
}

func (q *Queue[E]) Name() string { return q.name }

func (q *Queue[E]) Len() int { return q.n }

func (q *Queue[E]) Empty() bool { return q.n == 0 }

// Head returns the first element, or the zero value if the queue is empty.
func (q *Queue[E]) Head() E { return q.head }

// Contains reports whether e is linked into q.
func (q *Queue[E]) Contains(e E) bool {
	var zero E
	if e == zero {
		return false
	}
	return e.QueueLinks().owner == namedQueue(q)
}

// Append links e at the tail of q.
func (q *Queue[E]) Append(e E) error {
	var zero E
	if e == zero {
		return fmt.Errorf("%w: nil element", ErrInvalid)
	}
	l := e.QueueLinks()
	if l.owner != nil {
		return fmt.Errorf("%w: element already in queue %q", ErrInvalid, l.owner.Name())
	}
	if q.n == 0 {
		l.prev, l.next = e, e
		q.head = e
	} else {
		tail := q.head.QueueLinks().prev
		l.prev, l.next = tail, q.head
		tail.QueueLinks().next = e
		q.head.QueueLinks().prev = e
	}
	l.owner = q
	q.n++
	return nil
}

// Remove unlinks e from q. It reports false if e is not a member of q.
func (q *Queue[E]) Remove(e E) bool {
	var zero E
	if e == zero {
		return false
	}
	l := e.QueueLinks()
	if l.owner != namedQueue(q) {
		return false
	}
	if q.n == 1 {
		q.head = zero
	} else {
		l.prev.QueueLinks().next = l.next
		l.next.QueueLinks().prev = l.prev
		if q.head == e {
			q.head = l.next
		}
	}
	l.prev, l.next, l.owner = zero, zero, nil
	q.n--
	return true
}

// PopFront unlinks and returns the head of q.
func (q *Queue[E]) PopFront() (E, bool) {
	e := q.head
	if !q.Remove(e) {
		var zero E
		return zero, false
	}
	return e, true
}

// Each visits the elements from head to tail until fn returns false.
// fn may remove the element it is given, but no other.
func (q *Queue[E]) Each(fn func(E) bool) {
	e := q.head
	for i, n := 0, q.n; i < n; i++ {
		next := e.QueueLinks().next
		if !fn(e) {
			return
		}
		e = next
	}
}

// queueOf returns the queue e is currently linked into, if any.
func queueOf[E Element[E]](e E) *Queue[E] {
	q, _ := e.QueueLinks().owner.(*Queue[E])
	return q
}
