// Package metrics holds the prometheus collectors of the snapshot engine.
// All recording methods are safe on a nil *Metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "staking_tracker"

type Metrics struct {
	MulticallChunks  *prometheus.CounterVec
	MulticallCalls   *prometheus.CounterVec
	TotalExtractions *prometheus.CounterVec
	Runs             *prometheus.CounterVec
	RunDuration      prometheus.Histogram
	RPCRequests      *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		MulticallChunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "multicall_chunks_total",
			Help:      "Multicall chunks sent, by outcome.",
		}, []string{"outcome"}),
		MulticallCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "multicall_calls_total",
			Help:      "Sub-calls carried by multicall chunks, by outcome.",
		}, []string{"outcome"}),
		TotalExtractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "total_staking_extractions_total",
			Help:      "Authoritative total extractions, by matching rule.",
		}, []string{"rule"}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_runs_total",
			Help:      "Snapshot runs, by result.",
		}, []string{"result"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_run_duration_seconds",
			Help:      "Wall time of a full snapshot run.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		RPCRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "eth_call requests sent, by endpoint and result.",
		}, []string{"endpoint", "result"}),
	}
}

// Register adds every collector to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.MulticallChunks, m.MulticallCalls, m.TotalExtractions, m.Runs, m.RunDuration, m.RPCRequests,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// MustRegisterMetrics creates the collectors and registers them with the default registry.
func MustRegisterMetrics() *Metrics {
	m := New()
	if err := m.Register(prometheus.DefaultRegisterer); err != nil {
		panic(err)
	}
	return m
}

func (m *Metrics) ObserveChunk(ok bool, calls int) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	m.MulticallChunks.WithLabelValues(outcome).Inc()
	if !ok {
		m.MulticallCalls.WithLabelValues("chunk_failed").Add(float64(calls))
	}
}

func (m *Metrics) ObserveCall(success bool) {
	if m == nil {
		return
	}
	if success {
		m.MulticallCalls.WithLabelValues("success").Inc()
		return
	}
	m.MulticallCalls.WithLabelValues("reverted").Inc()
}

func (m *Metrics) ObserveExtraction(rule string) {
	if m == nil {
		return
	}
	m.TotalExtractions.WithLabelValues(rule).Inc()
}

func (m *Metrics) ObserveRun(result string, started time.Time) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(result).Inc()
	m.RunDuration.Observe(time.Since(started).Seconds())
}

func (m *Metrics) ObserveRPC(endpoint string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.RPCRequests.WithLabelValues(endpoint, result).Inc()
}
