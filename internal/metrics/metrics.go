// Package metrics provides Prometheus metrics for rshell.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metric names use the rshell_ prefix.
const (
	Namespace = "rshell"
)

// Execution kinds.
const (
	KindCommand  = "command"
	KindScript   = "script"
	KindLocal    = "local"
	KindTransfer = "transfer"
)

// Execution results.
const (
	ResultSuccess = "success"
	ResultFailed  = "failed" // ran, exited non-zero
	ResultError   = "error"  // never ran to completion
)

var (
	// Registry holds every rshell metric. It is separate from the default
	// registerer so the CLI exports only what it owns.
	Registry = prometheus.NewRegistry()

	// BuildInfo is always 1 and labels the running version.
	BuildInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "build_info",
		Help:      "Build information.",
	}, []string{"version", "go_version"})

	// ExecutionsTotal counts commands, scripts and transfers by outcome.
	ExecutionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "executions_total",
		Help:      "Executions by kind and result.",
	}, []string{"kind", "result"})

	// ExecutionDuration observes wall time per execution.
	ExecutionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "execution_duration_seconds",
		Help:      "Execution wall time.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind"})

	// ReconnectsTotal counts reconnect attempts by result.
	ReconnectsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "reconnects_total",
		Help:      "Reconnect attempts by result.",
	}, []string{"result"})

	// ProvisionsTotal counts public key registration runs by result.
	ProvisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "key_registrations_total",
		Help:      "Public key registration runs by result.",
	}, []string{"result"})
)

func init() {
	Registry.MustRegister(
		BuildInfo,
		ExecutionsTotal,
		ExecutionDuration,
		ReconnectsTotal,
		ProvisionsTotal,
	)
}

// SetBuildInfo records the running version.
func SetBuildInfo(version, goVersion string) {
	BuildInfo.WithLabelValues(version, goVersion).Set(1)
}

// ObserveExecution records one execution of kind.
func ObserveExecution(kind, result string, elapsed time.Duration) {
	ExecutionsTotal.WithLabelValues(kind, result).Inc()
	ExecutionDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// RecordReconnect records a reconnect attempt.
func RecordReconnect(err error) {
	ReconnectsTotal.WithLabelValues(outcome(err)).Inc()
}

// RecordProvision records a key registration run.
func RecordProvision(err error) {
	ProvisionsTotal.WithLabelValues(outcome(err)).Inc()
}

// WriteTextfile writes every metric in the text exposition format, for the
// node_exporter textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}

func outcome(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}
