package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Toggle()
	m.Toggle()
	m.Persist("julia_teacher_name", nil)
	m.SyncPush(errors.New("boom"))
	m.RosterImport("empty")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.toggles))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.persists.WithLabelValues("julia_teacher_name", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.syncPushes.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rosterImports.WithLabelValues("empty")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Toggle()
		m.Persist("k", nil)
		m.SyncPush(nil)
		m.RosterImport("ok")
		m.BackupUpload("b2", nil)
	})
}
