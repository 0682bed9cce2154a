package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndObserve(t *testing.T) {
	m := New()
	require.NoError(t, m.Register(prometheus.NewRegistry()))

	m.ObserveChunk(true, 10)
	m.ObserveChunk(false, 4)
	m.ObserveCall(true)
	m.ObserveCall(false)
	m.ObserveExtraction("preferred_index")
	m.ObserveRPC("http://rpc", errors.New("boom"))
	m.ObserveRun("ok", time.Now())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.MulticallChunks.WithLabelValues("failed")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.MulticallCalls.WithLabelValues("chunk_failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MulticallCalls.WithLabelValues("reverted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RPCRequests.WithLabelValues("http://rpc", "error")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveChunk(false, 3)
		m.ObserveCall(true)
		m.ObserveExtraction("none")
		m.ObserveRun("ok", time.Now())
		m.ObserveRPC("x", nil)
	})
}
