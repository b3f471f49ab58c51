package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the instruments of the attendance core. A nil *Metrics records nothing.
type Metrics struct {
	persistWrites *prometheus.CounterVec
	loadSource    *prometheus.CounterVec
	statusChanges *prometheus.CounterVec
}

// New creates the instruments and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		persistWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendly_persist_writes_total",
			Help: "Envelope writes to the canonical slot by result.",
		}, []string{"result"}),
		loadSource: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendly_load_source_total",
			Help: "Startup loads by the source that hydrated the store.",
		}, []string{"source"}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendly_status_changes_total",
			Help: "Attendance updates by target status.",
		}, []string{"status"}),
	}
	if reg != nil {
		reg.MustRegister(m.persistWrites, m.loadSource, m.statusChanges)
	}
	return m
}

// PersistResult counts one canonical write.
func (m *Metrics) PersistResult(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.persistWrites.WithLabelValues(result).Inc()
}

// LoadedFrom counts the source chosen at startup.
func (m *Metrics) LoadedFrom(source string) {
	if m == nil {
		return
	}
	m.loadSource.WithLabelValues(source).Inc()
}

// StatusChanged counts an attendance update.
func (m *Metrics) StatusChanged(status string) {
	if m == nil {
		return
	}
	m.statusChanges.WithLabelValues(status).Inc()
}
