package promutil

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func newCounter() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "greenos",
		Name:      "test_total",
		Help:      "Test counter.",
	}, []string{"boot"})
}

func TestRegisterReturnsExisting(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := Register(reg, newCounter())
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	second, err := Register(reg, newCounter())
	if err != nil {
		t.Fatalf("second Register() error = %v", err)
	}
	if second != first {
		t.Fatalf("second Register() returned a new collector, want the registered one")
	}
}

func TestRegisterTypeMismatch(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := Register(reg, newCounter()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "greenos",
		Name:      "test_total",
		Help:      "Test counter.",
	}, []string{"boot"})
	if _, err := Register(reg, g); err == nil {
		t.Fatalf("Register() of a gauge over a counter error = nil, want error")
	}
}
