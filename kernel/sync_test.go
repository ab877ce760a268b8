package kernel

import (
	"errors"
	"fmt"
	"testing"
)

func TestSemaphoreNoOverAdmission(t *testing.T) {
	k := boot(t, Config{})

	s, err := k.NewSemaphore(2)
	if err != nil {
		t.Fatalf("NewSemaphore() error = %v", err)
	}
	inside, peak, done := 0, 0, 0
	for i := 0; i < 5; i++ {
		mustCreate(t, k, "user", func(any) {
			for round := 0; round < 3; round++ {
				if err := s.Down(); err != nil {
					return
				}
				inside++
				if inside > peak {
					peak = inside
				}
				_ = k.Yield()
				_ = k.Yield()
				inside--
				_ = s.Up()
				_ = k.Yield()
			}
			done++
		})
	}
	k.Exit(0)

	if peak != 2 {
		t.Fatalf("peak holders = %d, want 2", peak)
	}
	if done != 5 {
		t.Fatalf("done = %d, want 5", done)
	}
	if s.Value() != 2 {
		t.Fatalf("Value() = %d, want 2", s.Value())
	}
}

func TestSemaphoreFIFOWakeup(t *testing.T) {
	k := boot(t, Config{})

	s, _ := k.NewSemaphore(0)
	var woke []int
	for i := 0; i < 3; i++ {
		i := i
		mustCreate(t, k, "waiter", func(any) {
			if s.Down() == nil {
				woke = append(woke, i)
			}
		})
	}
	for s.Waiting() < 3 {
		_ = k.Yield()
	}
	for i := 0; i < 3; i++ {
		_ = s.Up()
	}
	k.Exit(0)

	if !equalInts(woke, []int{0, 1, 2}) {
		t.Fatalf("wake order = %v, want [0 1 2]", woke)
	}
}

func TestSemaphoreDestroyWakesWaiters(t *testing.T) {
	k := boot(t, Config{})

	s, _ := k.NewSemaphore(0)
	errs := make([]error, 0, 2)
	for i := 0; i < 2; i++ {
		mustCreate(t, k, "waiter", func(any) {
			errs = append(errs, s.Down())
		})
	}
	for s.Waiting() < 2 {
		_ = k.Yield()
	}
	if err := s.Destroy(); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if err := s.Down(); !errors.Is(err, ErrInactive) {
		t.Fatalf("Down() after Destroy() error = %v, want ErrInactive", err)
	}
	if err := s.Destroy(); !errors.Is(err, ErrInactive) {
		t.Fatalf("second Destroy() error = %v, want ErrInactive", err)
	}
	k.Exit(0)

	if len(errs) != 2 {
		t.Fatalf("woken waiters = %d, want 2", len(errs))
	}
	for _, err := range errs {
		if !errors.Is(err, ErrDestroyed) {
			t.Fatalf("waiter error = %v, want ErrDestroyed", err)
		}
	}
}

func TestSemaphoreNil(t *testing.T) {
	var s *Semaphore
	if err := s.Down(); !errors.Is(err, ErrInvalid) {
		t.Fatalf("Down() on nil error = %v, want ErrInvalid", err)
	}
}

func TestMutexHandOff(t *testing.T) {
	k := boot(t, Config{})

	m, _ := k.NewMutex()
	if err := m.Lock(); err != nil {
		t.Fatalf("Lock() error = %v", err)
	}

	var acquired []string
	holders := 0
	for _, name := range []string{"a", "b", "c"} {
		name := name
		mustCreate(t, k, name, func(any) {
			if m.Lock() != nil {
				return
			}
			holders++
			if holders > 1 {
				acquired = append(acquired, "overlap")
			}
			acquired = append(acquired, name)
			_ = k.Yield()
			holders--
			_ = m.Unlock()
		})
	}
	for m.Waiting() < 3 {
		_ = k.Yield()
	}

	if err := m.Unlock(); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	// The lock went straight to a, so main queues behind c.
	if m.Holder() == k.Current() || m.Holder() == nil {
		t.Fatalf("Holder() = %v after hand-off, want first waiter", m.Holder())
	}
	if err := m.Lock(); err != nil {
		t.Fatalf("Lock() error = %v", err)
	}
	acquired = append(acquired, "main")
	if err := m.Unlock(); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	k.Exit(0)

	want := []string{"a", "b", "c", "main"}
	if fmt.Sprint(acquired) != fmt.Sprint(want) {
		t.Fatalf("acquired = %v, want %v", acquired, want)
	}
}

func TestMutexUnlockByNonHolder(t *testing.T) {
	k := boot(t, Config{})

	m, _ := k.NewMutex()
	if err := m.Unlock(); !errors.Is(err, ErrInvalid) {
		t.Fatalf("Unlock() of free mutex error = %v, want ErrInvalid", err)
	}
	_ = m.Lock()
	if err := m.Lock(); !errors.Is(err, ErrInvalid) {
		t.Fatalf("recursive Lock() error = %v, want ErrInvalid", err)
	}
	var taskErr error
	mustCreate(t, k, "thief", func(any) {
		taskErr = m.Unlock()
	})
	_ = m.Unlock()
	k.Exit(0)

	if !errors.Is(taskErr, ErrInvalid) {
		t.Fatalf("Unlock() by non-holder error = %v, want ErrInvalid", taskErr)
	}
}

func TestMutexDestroyWhileHeld(t *testing.T) {
	k := boot(t, Config{})

	m, _ := k.NewMutex()
	_ = m.Lock()
	var waitErr error
	mustCreate(t, k, "waiter", func(any) {
		waitErr = m.Lock()
	})
	for m.Waiting() < 1 {
		_ = k.Yield()
	}
	if err := m.Destroy(); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if err := m.Unlock(); !errors.Is(err, ErrInactive) {
		t.Fatalf("Unlock() after Destroy() error = %v, want ErrInactive", err)
	}
	k.Exit(0)

	if !errors.Is(waitErr, ErrDestroyed) {
		t.Fatalf("waiter error = %v, want ErrDestroyed", waitErr)
	}
}

func TestBarrierRounds(t *testing.T) {
	k := boot(t, Config{})

	if _, err := k.NewBarrier(0); !errors.Is(err, ErrInvalid) {
		t.Fatalf("NewBarrier(0) error = %v, want ErrInvalid", err)
	}
	b, err := k.NewBarrier(3)
	if err != nil {
		t.Fatalf("NewBarrier(3) error = %v", err)
	}

	var log []string
	for i := 0; i < 3; i++ {
		i := i
		mustCreate(t, k, "party", func(any) {
			for round := 0; round < 2; round++ {
				for j := 0; j < i; j++ {
					_ = k.Yield()
				}
				log = append(log, fmt.Sprintf("arrive %d", round))
				if err := b.Join(); err != nil {
					log = append(log, err.Error())
					return
				}
				log = append(log, fmt.Sprintf("leave %d", round))
			}
		})
	}
	k.Exit(0)

	if len(log) != 12 {
		t.Fatalf("log = %v, want 12 entries", log)
	}
	for round := 0; round < 2; round++ {
		arrive, leave := fmt.Sprintf("arrive %d", round), fmt.Sprintf("leave %d", round)
		lastArrive, firstLeave, arrivals, leaves := -1, len(log), 0, 0
		for i, entry := range log {
			switch entry {
			case arrive:
				lastArrive = i
				arrivals++
			case leave:
				if i < firstLeave {
					firstLeave = i
				}
				leaves++
			}
		}
		if arrivals != 3 || leaves != 3 || lastArrive > firstLeave {
			t.Fatalf("round %d: log = %v, want three arrivals before any leave", round, log)
		}
	}
	if b.Arrived() != 0 {
		t.Fatalf("Arrived() = %d after full round, want 0", b.Arrived())
	}
}

func TestBarrierDestroyWakesWaiters(t *testing.T) {
	k := boot(t, Config{})

	b, _ := k.NewBarrier(3)
	var errs []error
	for i := 0; i < 2; i++ {
		mustCreate(t, k, "party", func(any) {
			errs = append(errs, b.Join())
		})
	}
	for b.Arrived() < 2 {
		_ = k.Yield()
	}
	if err := b.Destroy(); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if err := b.Join(); !errors.Is(err, ErrInactive) {
		t.Fatalf("Join() after Destroy() error = %v, want ErrInactive", err)
	}
	k.Exit(0)

	if len(errs) != 2 {
		t.Fatalf("woken = %d, want 2", len(errs))
	}
	for _, err := range errs {
		if !errors.Is(err, ErrDestroyed) {
			t.Fatalf("Join() error = %v, want ErrDestroyed", err)
		}
	}
}
