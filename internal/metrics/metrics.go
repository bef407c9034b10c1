// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics is nil-safe: every method is a no-op on a nil receiver.
type Metrics struct {
	toggles       prometheus.Counter
	persists      *prometheus.CounterVec
	syncPushes    *prometheus.CounterVec
	rosterImports *prometheus.CounterVec
	backupUploads *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		toggles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "asistencia",
			Name:      "attendance_toggles_total",
			Help:      "Attendance marks flipped.",
		}),
		persists: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "asistencia",
			Name:      "persist_writes_total",
			Help:      "Whole-value writes to the durable medium by key and result.",
		}, []string{"key", "result"}),
		syncPushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "asistencia",
			Name:      "sync_pushes_total",
			Help:      "Webhook pushes by outcome.",
		}, []string{"outcome"}),
		rosterImports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "asistencia",
			Name:      "roster_imports_total",
			Help:      "Roster document imports by outcome.",
		}, []string{"outcome"}),
		backupUploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "asistencia",
			Name:      "backup_uploads_total",
			Help:      "Off-site backup uploads by target and outcome.",
		}, []string{"target", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.toggles, m.persists, m.syncPushes, m.rosterImports, m.backupUploads)
	}
	return m
}

func (m *Metrics) Toggle() {
	if m == nil {
		return
	}
	m.toggles.Inc()
}

func (m *Metrics) Persist(key string, err error) {
	if m == nil {
		return
	}
	m.persists.WithLabelValues(key, outcome(err)).Inc()
}

func (m *Metrics) SyncPush(err error) {
	if m == nil {
		return
	}
	m.syncPushes.WithLabelValues(outcome(err)).Inc()
}

// RosterImport records an import; result is "ok", "empty" or "error".
func (m *Metrics) RosterImport(result string) {
	if m == nil {
		return
	}
	m.rosterImports.WithLabelValues(result).Inc()
}

func (m *Metrics) BackupUpload(target string, err error) {
	if m == nil {
		return
	}
	m.backupUploads.WithLabelValues(target, outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
