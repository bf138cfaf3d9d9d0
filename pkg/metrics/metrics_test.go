package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func value(t *testing.T, reg *prometheus.Registry, name, label string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != metricPrefix+name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if label != "" && (len(m.GetLabel()) == 0 || m.GetLabel()[0].GetValue() != label) {
				continue
			}
			if c := m.GetCounter(); c != nil {
				return c.GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s{%s} not found", name, label)
	return 0
}

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	InitWith(reg)
	InitWith(reg)

	IncNotification("phrase")
	IncNotification("phrase")
	IncTrigger("cooldown")
	IncAlarmEvent("stopped")
	IncMirror("queued")
	SetPending(3)
	SetAlarmActive(true)

	assert.Equal(t, 2.0, value(t, reg, "notifications_total", "phrase"))
	assert.Equal(t, 1.0, value(t, reg, "triggers_total", "cooldown"))
	assert.Equal(t, 1.0, value(t, reg, "alarm_events_total", "stopped"))
	assert.Equal(t, 1.0, value(t, reg, "mirror_total", "queued"))
	assert.Equal(t, 3.0, value(t, reg, "pending_notifications", ""))
	assert.Equal(t, 1.0, value(t, reg, "alarm_active", ""))

	SetAlarmActive(false)
	assert.Equal(t, 0.0, value(t, reg, "alarm_active", ""))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 6)
}
