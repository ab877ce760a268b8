// Package buildinfo carries the version stamped in at link time.
package buildinfo

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"greenos/internal/promutil"
)

// Set with -ldflags "-X greenos/internal/buildinfo.Version=...".
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Short returns the most specific identifier available: the release
// version, else the commit, else "dev".
func Short() string {
	if Version != "" && Version != "dev" {
		return Version
	}
	if Commit != "" && Commit != "unknown" {
		return Commit
	}
	return "dev"
}

// String returns version, commit and date in one line.
func String() string {
	return fmt.Sprintf("greenos %s (commit %s, built %s)", Version, Commit, Date)
}

// Fields returns the build stamp as log fields.
func Fields() logrus.Fields {
	return logrus.Fields{"version": Short(), "commit": Commit, "built": Date}
}

// Register exports greenos_build_info on reg. Registering twice on the same
// registry is not an error.
func Register(reg prometheus.Registerer) error {
	g, err := promutil.Register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "greenos",
		Name:      "build_info",
		Help:      "Build stamp of the running binary. Always 1.",
	}, []string{"version", "commit", "date"}))
	if err != nil {
		return err
	}
	g.WithLabelValues(Version, Commit, Date).Set(1)
	return nil
}
