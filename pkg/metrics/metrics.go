// Package metrics exposes prometheus counters for the listener daemon
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "transit_snoozer_"

var (
	registerOnce sync.Once

	notificationsTotal *prometheus.CounterVec
	triggersTotal      *prometheus.CounterVec
	alarmEventsTotal   *prometheus.CounterVec
	mirrorTotal        *prometheus.CounterVec
	pendingQueue       prometheus.Gauge
	alarmActive        prometheus.Gauge
)

// Init registers the metrics with the default registry
func Init() {
	InitWith(prometheus.DefaultRegisterer)
}

// InitWith registers the metrics with reg. Only the first call registers.
func InitWith(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		notificationsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "notifications_total",
				Help: "Captured notifications by classifier outcome",
			},
			[]string{"reason"},
		)
		triggersTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "triggers_total",
				Help: "Alarm trigger attempts by result",
			},
			[]string{"result"},
		)
		alarmEventsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alarm_events_total",
				Help: "Alarm lifecycle events by type",
			},
			[]string{"event"},
		)
		mirrorTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "mirror_total",
				Help: "Notifications mirrored to the foreground by outcome",
			},
			[]string{"outcome"},
		)
		pendingQueue = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "pending_notifications",
			Help: "Notifications waiting for a ready foreground",
		})
		alarmActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "alarm_active",
			Help: "1 while an alarm is sounding",
		})

		reg.MustRegister(
			notificationsTotal,
			triggersTotal,
			alarmEventsTotal,
			mirrorTotal,
			pendingQueue,
			alarmActive,
		)
	})
}

// IncNotification counts a classified notification
func IncNotification(reason string) {
	if notificationsTotal != nil {
		notificationsTotal.WithLabelValues(reason).Inc()
	}
}

// IncTrigger counts a trigger attempt
func IncTrigger(result string) {
	if triggersTotal != nil {
		triggersTotal.WithLabelValues(result).Inc()
	}
}

// IncAlarmEvent increments alarm lifecycle counters
func IncAlarmEvent(event string) {
	if alarmEventsTotal != nil {
		alarmEventsTotal.WithLabelValues(event).Inc()
	}
}

// IncMirror counts a mirror attempt
func IncMirror(outcome string) {
	if mirrorTotal != nil {
		mirrorTotal.WithLabelValues(outcome).Inc()
	}
}

// SetPending records the pending queue length
func SetPending(n int) {
	if pendingQueue != nil {
		pendingQueue.Set(float64(n))
	}
}

// SetAlarmActive records whether an alarm is sounding
func SetAlarmActive(active bool) {
	if alarmActive == nil {
		return
	}
	if active {
		alarmActive.Set(1)
	} else {
		alarmActive.Set(0)
	}
}
