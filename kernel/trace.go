package kernel

import "fmt"

// EventKind classifies a trace event.
type EventKind uint8

const (
	EventCreate EventKind = iota + 1
	EventDispatch
	EventSwitch
	EventPreempt
	EventSuspend
	EventResume
	EventExit
	EventIRQ
	EventHalt
)

func (e EventKind) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventDispatch:
		return "dispatch"
	case EventSwitch:
		return "switch"
	case EventPreempt:
		return "preempt"
	case EventSuspend:
		return "suspend"
	case EventResume:
		return "resume"
	case EventExit:
		return "exit"
	case EventIRQ:
		return "irq"
	case EventHalt:
		return "halt"
	default:
		return "unknown"
	}
}

// Event is one entry of the scheduling trace.
type Event struct {
	Tick uint64
	Kind EventKind
	Task TaskID
	IRQ  IRQ
}

func (e Event) String() string {
	if e.Kind == EventIRQ {
		return fmt.Sprintf("%8d %-8s irq=%d", e.Tick, e.Kind, e.IRQ)
	}
	return fmt.Sprintf("%8d %-8s task=%d", e.Tick, e.Kind, e.Task)
}

func (k *Kernel) record(kind EventKind, t *Task) {
	if k.cfg.TraceDepth == 0 {
		return
	}
	k.pushEvent(Event{Tick: k.ticks.Load(), Kind: kind, Task: t.id})
}

func (k *Kernel) pushEvent(e Event) {
	k.trace.PushBack(e)
	for k.trace.Len() > k.cfg.TraceDepth {
		k.trace.PopFront()
	}
}

// Trace returns the most recent scheduling events, oldest first. Call it
// from a task or after the kernel has halted.
func (k *Kernel) Trace() []Event {
	out := make([]Event, k.trace.Len())
	for i := range out {
		out[i] = k.trace.At(i)
	}
	return out
}
