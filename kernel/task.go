package kernel

import (
	"fmt"
	"time"
)

// TaskID identifies a task. IDs are assigned in creation order and never reused.
type TaskID int64

// State is the scheduling state of a task.
type State uint8

const (
	StateReady State = iota + 1
	StateRunning
	StateSuspended
	StateExited
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateSuspended:
		return "suspended"
	case StateExited:
		return "exited"
	default:
		return "unknown"
	}
}

// EntryFunc is the body of a task. Returning from it exits the task with
// code 0.
type EntryFunc func(arg any)

// Task is a task control block.
//
// Fields are owned by whichever task currently holds the processor; other
// goroutines must not read them while the kernel is running.
type Task struct {
	k      *Kernel
	id     TaskID
	name   string
	daemon bool

	state    State
	prio     int
	dynPrio  int
	link     Links[*Task]
	wakeTick uint64
	exitCode int
	joiners  TaskQueue
	waitErr  error

	ctx *execContext

	created      uint64
	lastDispatch uint64
	procTicks    uint64
	lifeTicks    uint64
	activations  uint64
}

// QueueLinks implements Element.
func (t *Task) QueueLinks() *Links[*Task] { return &t.link }

func (t *Task) ID() TaskID { return t.id }

func (t *Task) Name() string { return t.name }

func (t *Task) State() State { return t.state }

// Daemon reports whether the task is a system task that does not keep the
// kernel alive.
func (t *Task) Daemon() bool { return t.daemon }

// ExitCode returns the exit code and whether the task has exited.
func (t *Task) ExitCode() (int, bool) {
	return t.exitCode, t.state == StateExited
}

func (t *Task) String() string {
	if t == nil {
		return "task(nil)"
	}
	if t.name != "" {
		return fmt.Sprintf("task %d (%s)", t.id, t.name)
	}
	return fmt.Sprintf("task %d", t.id)
}

// TaskStats is the accounting kept for a task.
type TaskStats struct {
	// Lifetime is the time from creation to exit, or to now for live tasks.
	Lifetime time.Duration
	// Processor is the time the task held the processor.
	Processor time.Duration
	// Activations counts how many times the task was given the processor.
	Activations uint64
}

// Stats returns the task's accounting in wall-clock units.
func (t *Task) Stats() TaskStats {
	interval := t.k.cfg.TickInterval
	life := t.lifeTicks
	if t.state != StateExited {
		life = t.k.ticks.Load() - t.created
	}
	return TaskStats{
		Lifetime:    time.Duration(life) * interval,
		Processor:   time.Duration(t.procTicks) * interval,
		Activations: t.activations,
	}
}
