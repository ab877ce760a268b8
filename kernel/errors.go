package kernel

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalid is returned for nil handles, out-of-range arguments and
	// operations that make no sense for the target's current state.
	ErrInvalid = errors.New("kernel: invalid argument")

	// ErrInactive is returned by operations on a destroyed primitive.
	ErrInactive = errors.New("kernel: primitive inactive")

	// ErrDestroyed is returned to tasks that were blocked on a primitive
	// when it was destroyed.
	ErrDestroyed = fmt.Errorf("%w: destroyed while waiting", ErrInactive)

	// ErrNoStack is returned when the execution context limit is reached.
	ErrNoStack = errors.New("kernel: no execution context available")

	// ErrSwitch is returned when a context switch cannot be performed.
	ErrSwitch = errors.New("kernel: context switch failed")

	// ErrNotInit is returned when the kernel is used before Init.
	ErrNotInit = errors.New("kernel: not initialized")

	// ErrHalted is returned once the dispatcher has shut the kernel down.
	ErrHalted = errors.New("kernel: halted")
)
