package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counts(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.PersistResult(nil)
	m.PersistResult(nil)
	m.PersistResult(errors.New("disk full"))
	m.LoadedFrom("canonical")
	m.StatusChanged("PRESENT")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.persistWrites.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.persistWrites.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loadSource.WithLabelValues("canonical")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.statusChanges.WithLabelValues("PRESENT")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.PersistResult(nil)
		m.LoadedFrom("defaults")
		m.StatusChanged("NONE")
	})
}
