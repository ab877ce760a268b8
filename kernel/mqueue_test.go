package kernel

import (
	"encoding/binary"
	"errors"
	"fmt"
	"testing"
)

func TestMessageQueueBlocksWhenFull(t *testing.T) {
	k := boot(t, Config{})

	q, err := k.NewMessageQueue(2, 4)
	if err != nil {
		t.Fatalf("NewMessageQueue() error = %v", err)
	}

	var log []string
	mustCreate(t, k, "producer", func(any) {
		for i := uint32(1); i <= 3; i++ {
			msg := make([]byte, 4)
			binary.LittleEndian.PutUint32(msg, i)
			if err := q.Send(msg); err != nil {
				log = append(log, err.Error())
				return
			}
			log = append(log, fmt.Sprintf("sent %d", i))
		}
	})
	mustCreate(t, k, "consumer", func(any) {
		if n, _ := q.Pending(); n != 2 {
			log = append(log, fmt.Sprintf("pending %d", n))
		}
		buf := make([]byte, 8)
		for i := 0; i < 3; i++ {
			if err := q.Receive(buf); err != nil {
				log = append(log, err.Error())
				return
			}
			log = append(log, fmt.Sprintf("recv %d", binary.LittleEndian.Uint32(buf)))
		}
	})
	k.Exit(0)

	want := []string{"sent 1", "sent 2", "recv 1", "recv 2", "sent 3", "recv 3"}
	if fmt.Sprint(log) != fmt.Sprint(want) {
		t.Fatalf("log = %v, want %v", log, want)
	}
}

func TestMessageQueueSizes(t *testing.T) {
	k := boot(t, Config{})

	if _, err := k.NewMessageQueue(0, 4); !errors.Is(err, ErrInvalid) {
		t.Fatalf("NewMessageQueue(0, 4) error = %v, want ErrInvalid", err)
	}
	q, _ := k.NewMessageQueue(4, 4)
	if err := q.Send([]byte{1, 2, 3}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("Send() short message error = %v, want ErrInvalid", err)
	}
	if err := q.Send([]byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if err := q.Receive(make([]byte, 2)); !errors.Is(err, ErrInvalid) {
		t.Fatalf("Receive() short buffer error = %v, want ErrInvalid", err)
	}
	buf := make([]byte, 4)
	if err := q.Receive(buf); err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if fmt.Sprint(buf) != fmt.Sprint([]byte{1, 2, 3, 4}) {
		t.Fatalf("Receive() = %v, want [1 2 3 4]", buf)
	}
	k.Exit(0)
}

func TestMessageQueueDestroyWakesReceivers(t *testing.T) {
	k := boot(t, Config{})

	q, _ := k.NewMessageQueue(1, 1)
	var recvErr error
	mustCreate(t, k, "receiver", func(any) {
		recvErr = q.Receive(make([]byte, 1))
	})
	for q.items.Waiting() < 1 {
		_ = k.Yield()
	}
	if err := q.Destroy(); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if _, err := q.Pending(); !errors.Is(err, ErrInactive) {
		t.Fatalf("Pending() after Destroy() error = %v, want ErrInactive", err)
	}
	k.Exit(0)

	if !errors.Is(recvErr, ErrDestroyed) {
		t.Fatalf("Receive() error = %v, want ErrDestroyed", recvErr)
	}
}
