package metricsink

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	samples []Sample
	closed  bool
}

func (r *recordingSink) Emit(s Sample) { r.samples = append(r.samples, s) }
func (r *recordingSink) Close() error  { r.closed = true; return nil }

func TestMulti_FansOutToAllSinks(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	m := NewMulti(a, b)

	m.Emit(Sample{Name: "error", Value: 1400, At: time.Now()})

	assert.Len(t, a.samples, 1)
	assert.Len(t, b.samples, 1)
}

func TestMulti_CloseClosesAllSinks(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	m := NewMulti(a, b)

	require.NoError(t, m.Close())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestFileSink_AppendsCSVRows(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFileSink(dir, "scalars")
	require.NoError(t, err)

	sink.Emit(Sample{Name: "target", Value: 28, At: time.Unix(0, 100)})
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(filepath.Join(dir, "scalars.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "target")
	assert.Contains(t, string(data), "28")
}

func TestLogSink_DoesNotPanic(t *testing.T) {
	sink := LogSink{}
	assert.NotPanics(t, func() {
		sink.Emit(Sample{Name: "q", Value: 600, At: time.Now()})
	})
	assert.NoError(t, sink.Close())
}

func TestPrometheusSink_RegistersGaugePerName(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := NewPrometheusSink(reg)

	sink.Emit(Sample{Name: "target", Value: 7, At: time.Now()})
	sink.Emit(Sample{Name: "target", Value: 9, At: time.Now()})

	metricFamilies, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, mf := range metricFamilies {
		if mf.GetName() == "autoscalerd_target" {
			found = true
			assert.Equal(t, 9.0, mf.GetMetric()[0].GetGauge().GetValue())
		}
	}
	assert.True(t, found)
}
