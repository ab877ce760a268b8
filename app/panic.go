package app

import (
	"strings"

	"github.com/sirupsen/logrus"

	"greenos/kernel"
)

func installPanicHandler(log logrus.FieldLogger) {
	kernel.SetPanicHandler(func(info kernel.PanicInfo) {
		entry := log.WithFields(logrus.Fields{
			"boot":  info.Boot,
			"task":  info.TaskID,
			"name":  info.Task,
			"panic": info.Value,
		})
		entry.Error("task panic")
		for _, line := range strings.Split(string(info.Stack), "\n") {
			if line == "" {
				continue
			}
			entry.Debug(line)
		}
	})
}
