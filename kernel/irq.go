package kernel

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// IRQ is an interrupt line.
type IRQ uint8

const (
	// IRQTimer is the tick. It is delivered through TickTo, never through
	// the interrupt queue.
	IRQTimer IRQ = iota
	// IRQDisk signals completion of a disk command.
	IRQDisk
	// IRQUser is the first line free for applications.
	IRQUser

	MaxIRQ IRQ = 8
)

func (i IRQ) String() string {
	switch i {
	case IRQTimer:
		return "timer"
	case IRQDisk:
		return "disk"
	default:
		return fmt.Sprintf("irq%d", uint8(i))
	}
}

// InstallHandler sets the handler for irq. Handlers run on the dispatcher
// with the processor held, so they may call Resume but must not block.
// A nil handler uninstalls the line.
func (k *Kernel) InstallHandler(irq IRQ, h func()) error {
	if err := k.enter(); err != nil {
		return err
	}
	if irq == IRQTimer || irq >= MaxIRQ {
		return fmt.Errorf("%w: cannot install handler for %s", ErrInvalid, irq)
	}
	k.handlers[irq] = h
	return nil
}

// Raise posts irq for delivery by the dispatcher. It is safe to call from
// any goroutine, blocks while the interrupt queue is full, and fails once
// the kernel has halted.
func (k *Kernel) Raise(irq IRQ) error {
	if irq >= MaxIRQ {
		return fmt.Errorf("%w: %s", ErrInvalid, irq)
	}
	if irq == IRQTimer {
		k.Tick()
		return nil
	}
	if k.halted.Load() {
		return ErrHalted
	}
	select {
	case k.irqs <- irq:
		return nil
	case <-k.halt:
		return ErrHalted
	}
}

// serviceIRQs runs the handlers of the interrupts pending on entry.
func (k *Kernel) serviceIRQs() {
	for n := len(k.irqs); n > 0; n-- {
		select {
		case irq := <-k.irqs:
			k.handleIRQ(irq)
		default:
			return
		}
	}
}

func (k *Kernel) handleIRQ(irq IRQ) {
	k.metrics.IRQs.WithLabelValues(irq.String()).Inc()
	if k.cfg.TraceDepth > 0 {
		k.pushEvent(Event{Tick: k.ticks.Load(), Kind: EventIRQ, Task: -1, IRQ: irq})
	}
	h := k.handlers[irq]
	if h == nil {
		k.log.WithField("irq", irq.String()).Warn("spurious interrupt")
		return
	}
	defer func() {
		if r := recover(); r != nil {
			k.log.WithFields(logrus.Fields{"irq": irq.String(), "panic": r}).Error("interrupt handler panicked")
		}
	}()
	h()
}
