// Package app wires a kernel to a HAL and runs a workload on it.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"greenos/app/workload"
	"greenos/disk"
	"greenos/hal"
	"greenos/internal/buildinfo"
	"greenos/kernel"
)

// Config controls a run.
type Config struct {
	Quantum    int
	AgingStep  int
	MaxTasks   int
	TraceDepth int

	// Workload names the program run by the main task.
	Workload string
	// Registerer receives kernel and disk metrics.
	Registerer prometheus.Registerer
}

// Result summarizes a finished run.
type Result struct {
	Boot  string
	Ticks uint64
	Trace []kernel.Event
}

// Run boots a kernel on h with the calling goroutine as the main task,
// runs the workload and returns once every task has exited.
func Run(ctx context.Context, h hal.HAL, cfg Config) (Result, error) {
	run, ok := workload.Lookup(cfg.Workload)
	if !ok {
		return Result{}, fmt.Errorf("unknown workload %q (have %v)", cfg.Workload, workload.Names())
	}

	log := h.Logger()
	installPanicHandler(log)

	t := h.Time()
	k, err := kernel.New(kernel.Config{
		TickInterval: t.Interval(),
		Quantum:      cfg.Quantum,
		AgingStep:    cfg.AgingStep,
		MaxTasks:     cfg.MaxTasks,
		TraceDepth:   cfg.TraceDepth,
		Clock:        t.Ticks(),
		Logger:       log,
		Registerer:   cfg.Registerer,
	})
	if err != nil {
		return Result{}, err
	}
	if err := k.Init(); err != nil {
		return Result{}, err
	}

	log.WithFields(buildinfo.Fields()).WithFields(logrus.Fields{
		"boot":     k.Boot(),
		"workload": cfg.Workload,
	}).Info("boot")

	env := workload.Env{Kernel: k, Log: log}
	if dev := h.Disk(); dev != nil {
		drv, err := disk.Init(k, dev, disk.Options{Logger: log, Registerer: cfg.Registerer})
		if err != nil {
			k.Exit(1)
			return Result{Boot: k.Boot()}, err
		}
		env.Disk = drv
	}

	runErr := run(ctx, env)
	code := 0
	if runErr != nil {
		code = 1
		log.WithError(runErr).Error("workload failed")
	}
	k.Exit(code)

	return Result{Boot: k.Boot(), Ticks: k.Ticks(), Trace: k.Trace()}, runErr
}
