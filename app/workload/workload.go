// Package workload holds the programs the main task can run.
package workload

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"greenos/disk"
	"greenos/kernel"
)

// Env is what a workload runs against. Disk is nil when the host has no
// disk.
type Env struct {
	Kernel *kernel.Kernel
	Disk   *disk.Driver
	Log    logrus.FieldLogger
}

// Func runs on the main task. It must join every task it creates before
// returning.
type Func func(ctx context.Context, env Env) error

var registry = map[string]Func{
	"scheduler": Scheduler,
	"sync":      Sync,
	"mqueue":    MessageQueue,
	"disk":      Disk,
	"all":       All,
}

// Lookup returns the workload called name. The empty name is "all".
func Lookup(name string) (Func, bool) {
	if name == "" {
		name = "all"
	}
	fn, ok := registry[name]
	return fn, ok
}

// Names returns the registered workload names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All runs every workload in turn, skipping disk when there is none.
func All(ctx context.Context, env Env) error {
	steps := []struct {
		name string
		fn   Func
	}{
		{"scheduler", Scheduler},
		{"sync", Sync},
		{"mqueue", MessageQueue},
	}
	if env.Disk != nil {
		steps = append(steps, struct {
			name string
			fn   Func
		}{"disk", Disk})
	}
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		env.Log.WithField("workload", s.name).Info("workload start")
		if err := s.fn(ctx, env); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}

// joinAll joins tasks and returns the first non-zero exit code as an error.
func joinAll(k *kernel.Kernel, tasks []*kernel.Task) error {
	var first error
	for _, t := range tasks {
		code, err := k.Join(t)
		if err == nil && code != 0 {
			err = fmt.Errorf("%s exited with code %d", t, code)
		}
		if err != nil && first == nil {
			first = err
		}
	}
	return first
}
