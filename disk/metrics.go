package disk

import (
	"github.com/prometheus/client_golang/prometheus"

	"greenos/internal/promutil"
)

type metrics struct {
	ops        *prometheus.CounterVec
	interrupts prometheus.Counter
	queued     prometheus.Gauge
	busy       prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer, boot string) (*metrics, error) {
	ops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "greenos",
		Subsystem: "disk",
		Name:      "operations_total",
		Help:      "Block operations completed, by kind and result.",
	}, []string{"boot", "op", "result"})
	irqs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "greenos",
		Subsystem: "disk",
		Name:      "interrupts_total",
		Help:      "Completion interrupts serviced.",
	}, []string{"boot"})
	queued := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "greenos",
		Subsystem: "disk",
		Name:      "queued_requests",
		Help:      "Requests waiting to be issued.",
	}, []string{"boot"})
	busy := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "greenos",
		Subsystem: "disk",
		Name:      "busy",
		Help:      "1 while a command is outstanding.",
	}, []string{"boot"})

	if reg != nil {
		var err error
		if ops, err = promutil.Register(reg, ops); err != nil {
			return nil, err
		}
		if irqs, err = promutil.Register(reg, irqs); err != nil {
			return nil, err
		}
		if queued, err = promutil.Register(reg, queued); err != nil {
			return nil, err
		}
		if busy, err = promutil.Register(reg, busy); err != nil {
			return nil, err
		}
	}

	l := prometheus.Labels{"boot": boot}
	return &metrics{
		ops:        ops.MustCurryWith(l),
		interrupts: irqs.With(l),
		queued:     queued.With(l),
		busy:       busy.With(l),
	}, nil
}
