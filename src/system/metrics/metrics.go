// Package metrics exposes store counters through prometheus. Pass a
// nil registerer to keep the collectors unregistered, for tests.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	InsertsTotal   *prometheus.CounterVec
	ReadsTotal     *prometheus.CounterVec
	TakesTotal     *prometheus.CounterVec
	TasksExecuted  prometheus.Counter
	TaskFailures   prometheus.Counter
	BlockedWaiters prometheus.Gauge
	Subscriptions  prometheus.Gauge
}

// New builds the collector set and registers it with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		InsertsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pathspace",
			Name:      "inserts_total",
			Help:      "Insert operations by outcome.",
		}, []string{"outcome"}),
		ReadsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pathspace",
			Name:      "reads_total",
			Help:      "Read operations by outcome.",
		}, []string{"outcome"}),
		TakesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pathspace",
			Name:      "takes_total",
			Help:      "Take operations by outcome.",
		}, []string{"outcome"}),
		TasksExecuted: f.NewCounter(prometheus.CounterOpts{
			Namespace: "pathspace",
			Name:      "tasks_executed_total",
			Help:      "Stored task executions that ran to completion.",
		}),
		TaskFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: "pathspace",
			Name:      "task_failures_total",
			Help:      "Stored task executions that returned an error or panicked.",
		}),
		BlockedWaiters: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "pathspace",
			Name:      "blocked_waiters",
			Help:      "Readers currently parked on a blocking operation.",
		}),
		Subscriptions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "pathspace",
			Name:      "subscriptions",
			Help:      "Active path subscriptions.",
		}),
	}
}

// outcome label values
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
)
