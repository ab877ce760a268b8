package kernel

import (
	"errors"
	"testing"
)

type node struct {
	v    int
	link Links[*node]
}

func (n *node) QueueLinks() *Links[*node] { return &n.link }

func values(q *Queue[*node]) []int {
	var out []int
	q.Each(func(n *node) bool {
		out = append(out, n.v)
		return true
	})
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestQueueAppendRemove(t *testing.T) {
	q := NewQueue[*node]("test")
	nodes := make([]*node, 4)
	for i := range nodes {
		nodes[i] = &node{v: i}
		if err := q.Append(nodes[i]); err != nil {
			t.Fatalf("Append(%d) error = %v", i, err)
		}
	}
	if got := values(q); !equalInts(got, []int{0, 1, 2, 3}) {
		t.Fatalf("values = %v, want [0 1 2 3]", got)
	}

	if !q.Remove(nodes[2]) {
		t.Fatalf("Remove(2) = false, want true")
	}
	if !q.Remove(nodes[0]) {
		t.Fatalf("Remove(head) = false, want true")
	}
	if got := values(q); !equalInts(got, []int{1, 3}) {
		t.Fatalf("values = %v, want [1 3]", got)
	}
	if q.Head() != nodes[1] {
		t.Fatalf("Head() = %v, want node 1", q.Head().v)
	}
	if q.Remove(nodes[0]) {
		t.Fatalf("Remove() of non-member = true, want false")
	}

	tail := q.Head().link.prev
	if tail != nodes[3] || tail.link.next != nodes[1] {
		t.Fatalf("queue is not circular")
	}
}

func TestQueueSingleMembership(t *testing.T) {
	a := NewQueue[*node]("a")
	b := NewQueue[*node]("b")
	n := &node{v: 1}

	if err := a.Append(n); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := b.Append(n); !errors.Is(err, ErrInvalid) {
		t.Fatalf("Append() to second queue error = %v, want ErrInvalid", err)
	}
	if err := a.Append(nil); !errors.Is(err, ErrInvalid) {
		t.Fatalf("Append(nil) error = %v, want ErrInvalid", err)
	}
	if b.Remove(n) {
		t.Fatalf("Remove() from wrong queue = true, want false")
	}
	if !a.Contains(n) || b.Contains(n) {
		t.Fatalf("Contains() reports wrong owner")
	}

	a.Remove(n)
	if !a.Empty() || a.Head() != nil {
		t.Fatalf("queue not empty after removing only element")
	}
	if err := b.Append(n); err != nil {
		t.Fatalf("Append() after Remove() error = %v", err)
	}
}

func TestQueueEachRemovingCurrent(t *testing.T) {
	q := NewQueue[*node]("sweep")
	for i := 0; i < 6; i++ {
		_ = q.Append(&node{v: i})
	}

	var visited []int
	q.Each(func(n *node) bool {
		visited = append(visited, n.v)
		if n.v%2 == 0 {
			q.Remove(n)
		}
		return true
	})

	if !equalInts(visited, []int{0, 1, 2, 3, 4, 5}) {
		t.Fatalf("visited = %v, want every element once", visited)
	}
	if got := values(q); !equalInts(got, []int{1, 3, 5}) {
		t.Fatalf("values = %v, want [1 3 5]", got)
	}
}

func TestQueuePopFront(t *testing.T) {
	q := NewQueue[*node]("fifo")
	for i := 0; i < 3; i++ {
		_ = q.Append(&node{v: i})
	}
	for want := 0; want < 3; want++ {
		n, ok := q.PopFront()
		if !ok || n.v != want {
			t.Fatalf("PopFront() = %v, %v, want %d", n, ok, want)
		}
	}
	if _, ok := q.PopFront(); ok {
		t.Fatalf("PopFront() on empty queue ok = true, want false")
	}
}
