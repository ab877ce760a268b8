package kernel

import (
	"github.com/prometheus/client_golang/prometheus"

	"greenos/internal/promutil"
)

const metricsNamespace = "greenos"

// Metrics holds the kernel collectors, curried with the boot id of one
// kernel instance.
type Metrics struct {
	Switches     prometheus.Counter
	Preemptions  prometheus.Counter
	TasksCreated prometheus.Counter
	TasksExited  prometheus.Counter
	Panics       prometheus.Counter
	ReadyTasks   prometheus.Gauge
	LiveTasks    prometheus.Gauge
	IRQs         *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer, boot string) (*Metrics, error) {
	counter := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "kernel",
			Name:      name,
			Help:      help,
		}, []string{"boot"})
	}
	gauge := func(name, help string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "kernel",
			Name:      name,
			Help:      help,
		}, []string{"boot"})
	}

	switches := counter("context_switches_total", "Context switches performed.")
	preempt := counter("preemptions_total", "Tasks forced to yield on quantum expiry.")
	created := counter("tasks_created_total", "Tasks created.")
	exited := counter("tasks_exited_total", "Tasks exited.")
	panics := counter("task_panics_total", "Task bodies that panicked.")
	ready := gauge("ready_tasks", "Tasks in the ready queue after the last dispatch.")
	live := gauge("live_tasks", "User tasks that have not exited.")
	irqs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "kernel",
		Name:      "interrupts_total",
		Help:      "Interrupts serviced by the dispatcher.",
	}, []string{"boot", "irq"})

	if reg != nil {
		var err error
		for _, c := range []**prometheus.CounterVec{&switches, &preempt, &created, &exited, &panics, &irqs} {
			if *c, err = promutil.Register(reg, *c); err != nil {
				return nil, err
			}
		}
		if ready, err = promutil.Register(reg, ready); err != nil {
			return nil, err
		}
		if live, err = promutil.Register(reg, live); err != nil {
			return nil, err
		}
	}

	l := prometheus.Labels{"boot": boot}
	return &Metrics{
		Switches:     switches.With(l),
		Preemptions:  preempt.With(l),
		TasksCreated: created.With(l),
		TasksExited:  exited.With(l),
		Panics:       panics.With(l),
		ReadyTasks:   ready.With(l),
		LiveTasks:    live.With(l),
		IRQs:         irqs.MustCurryWith(l),
	}, nil
}
