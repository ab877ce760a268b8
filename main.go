package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"greenos/app"
	"greenos/hal"
	"greenos/internal/buildinfo"
)

func main() {
	var hcfg hal.HostConfig
	var acfg app.Config
	var metricsAddr string
	var logLevel string
	var showTrace bool
	var showVersion bool
	flag.DurationVar(&hcfg.TickInterval, "tick", time.Millisecond, "Timer interrupt interval.")
	flag.IntVar(&acfg.Quantum, "quantum", 10, "Ticks per time slice.")
	flag.StringVar(&acfg.Workload, "workload", "all", "Workload run by the main task.")
	flag.StringVar(&hcfg.DiskBackend, "disk", hal.DiskMem, "Disk backend: none, mem, file or eeprom.")
	flag.StringVar(&hcfg.DiskPath, "disk-path", "disk.img", "Image path for the file backend.")
	flag.IntVar(&hcfg.Blocks, "blocks", 256, "Disk size in blocks.")
	flag.IntVar(&hcfg.BlockSize, "block-size", 512, "Disk block size (bytes).")
	flag.DurationVar(&hcfg.Latency, "latency", 2*time.Millisecond, "Simulated disk command latency.")
	flag.StringVar(&metricsAddr, "metrics", "", "Serve Prometheus metrics on this address (empty = off).")
	flag.StringVar(&logLevel, "log-level", "info", "Log level.")
	flag.BoolVar(&hcfg.LogJSON, "log-json", false, "Log as JSON.")
	flag.BoolVar(&showTrace, "trace", false, "Print the scheduling trace after the run.")
	flag.BoolVar(&showVersion, "version", false, "Print the build stamp and exit.")
	flag.Parse()

	if showVersion {
		fmt.Println(buildinfo.String())
		return
	}

	lvl, err := logrus.ParseLevel(logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}
	hcfg.LogLevel = lvl
	if showTrace {
		acfg.TraceDepth = 256
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, hcfg, acfg, metricsAddr, showTrace); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, hcfg hal.HostConfig, acfg app.Config, metricsAddr string, showTrace bool) error {
	h, err := hal.NewHost(hcfg)
	if err != nil {
		return err
	}
	defer func() { _ = h.Close() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := buildinfo.Register(reg); err != nil {
		return err
	}
	acfg.Registerer = reg

	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})

	var res app.Result
	g.Go(func() error {
		defer close(done)
		var err error
		res, err = app.Run(gctx, h, acfg)
		return err
	})

	if metricsAddr != "" {
		srv := &http.Server{
			Addr:              metricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			err := srv.ListenAndServe()
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("metrics server: %w", err)
		})
		g.Go(func() error {
			select {
			case <-done:
			case <-gctx.Done():
			}
			sctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	h.Logger().WithFields(logrus.Fields{"boot": res.Boot, "ticks": res.Ticks}).Info("halted")
	if showTrace {
		for _, ev := range res.Trace {
			fmt.Println(ev)
		}
	}
	return nil
}
