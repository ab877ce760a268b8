package kernel

import (
	"sync"
	"sync/atomic"
)

// PanicExitCode is the exit code of a task whose body panicked.
const PanicExitCode = -1

// PanicInfo contains details about a recovered task panic.
type PanicInfo struct {
	Boot   string
	TaskID TaskID
	Task   string
	Value  any
	Stack  []byte
}

var (
	panicActive atomic.Bool
	panicOnce   sync.Once

	panicHandler atomic.Value // func(PanicInfo)
)

// InPanicMode reports whether any task in the process has panicked.
func InPanicMode() bool {
	return panicActive.Load()
}

// SetPanicHandler installs a process-wide panic handler.
//
// The handler is invoked at most once, for the first panic. It runs on the
// panicking task while it still holds the processor and must not panic.
func SetPanicHandler(fn func(PanicInfo)) {
	panicHandler.Store(fn)
}

func triggerPanic(info PanicInfo) {
	panicOnce.Do(func() {
		panicActive.Store(true)
		info.Stack = captureStack()
		if v := panicHandler.Load(); v != nil {
			if fn, ok := v.(func(PanicInfo)); ok && fn != nil {
				fn(info)
			}
		}
	})
}
