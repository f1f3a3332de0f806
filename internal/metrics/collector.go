// Package metrics exposes Prometheus counters, gauges and histograms for
// the authentication and shared-secret subsystems. Subsystem files
// (auth.go, token.go, refresh.go, sharedsecret.go) each register their
// own metric set against the shared Registry below.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "hashrand"

// Registry is the package-local Prometheus registry. Using a dedicated
// registry instead of prometheus.DefaultRegisterer keeps this library
// safe to import from code that also maintains its own global registry
// (tests, multiple server instances in one process).
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(prometheus.NewGoCollector())
	Registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
}
