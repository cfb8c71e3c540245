// internal/metrics/metrics.go
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors on a private registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	messages      *prometheus.CounterVec
	dropped       *prometheus.CounterVec
	notifications prometheus.Gauge
	wsClients     prometheus.Gauge
	readings      *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amp_monitor",
			Name:      "mqtt_messages_total",
			Help:      "MQTT messages handled, by routing result.",
		}, []string{"kind"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amp_monitor",
			Name:      "mqtt_dropped_total",
			Help:      "MQTT messages dropped, by reason.",
		}, []string{"reason"}),
		notifications: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "amp_monitor",
			Name:      "notifications_active",
			Help:      "Notifications currently held.",
		}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "amp_monitor",
			Name:      "ws_clients",
			Help:      "Connected websocket clients.",
		}),
		readings: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "amp_monitor",
			Name:      "amplifier_reading",
			Help:      "Latest numeric reading per amplifier and metric.",
		}, []string{"amplifier", "metric"}),
	}
	m.registry.MustRegister(m.messages, m.dropped, m.notifications, m.wsClients, m.readings)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) MessageHandled(kind string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(kind).Inc()
}

func (m *Metrics) MessageDropped(reason string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) SetNotificationsActive(n int) {
	if m == nil {
		return
	}
	m.notifications.Set(float64(n))
}

func (m *Metrics) SetWSClients(n int) {
	if m == nil {
		return
	}
	m.wsClients.Set(float64(n))
}

func (m *Metrics) ObserveReading(amplifier, metric string, v float64) {
	if m == nil {
		return
	}
	m.readings.WithLabelValues(amplifier, metric).Set(v)
}
