package kernel

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

const (
	DefaultPriority = 0
	MinPriority     = -20
	MaxPriority     = 20

	defaultTickInterval = time.Millisecond
	defaultQuantum      = 10
	defaultAgingStep    = 1
	defaultMaxTasks     = 64
	defaultIRQDepth     = 64
)

// Config controls a kernel instance. Zero fields take their defaults.
type Config struct {
	// TickInterval is the wall-clock length of one timer tick.
	TickInterval time.Duration
	// Quantum is the number of ticks a task may run before it is preempted.
	Quantum int
	// AgingStep is subtracted from every ready task's dynamic priority on
	// each scheduling decision.
	AgingStep int
	// MaxTasks bounds the number of live execution contexts, including the
	// dispatcher and daemons.
	MaxTasks int
	// IRQDepth is the number of interrupts that may be pending before
	// Raise blocks.
	IRQDepth int
	// TraceDepth is the number of scheduling events retained by Trace.
	// Zero disables tracing.
	TraceDepth int

	// Clock delivers monotonically increasing tick sequence numbers. A nil
	// clock means time only advances through Tick and TickTo.
	Clock <-chan uint64
	// Logger receives kernel logs. Nil discards them.
	Logger logrus.FieldLogger
	// Registerer receives the kernel metrics. Nil keeps them unregistered.
	Registerer prometheus.Registerer
}

func (c Config) withDefaults() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = defaultTickInterval
	}
	if c.Quantum <= 0 {
		c.Quantum = defaultQuantum
	}
	if c.AgingStep <= 0 {
		c.AgingStep = defaultAgingStep
	}
	if c.MaxTasks <= 0 {
		c.MaxTasks = defaultMaxTasks
	}
	if c.IRQDepth <= 0 {
		c.IRQDepth = defaultIRQDepth
	}
	if c.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		c.Logger = l
	}
	return c
}

func (c Config) validate() error {
	if c.MaxTasks < 2 {
		return fmt.Errorf("%w: MaxTasks %d leaves no room for the dispatcher", ErrInvalid, c.MaxTasks)
	}
	if c.TraceDepth < 0 {
		return fmt.Errorf("%w: negative TraceDepth", ErrInvalid)
	}
	return nil
}
