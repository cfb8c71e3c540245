// internal/ingest/sink.go
package ingest

import (
	"errors"

	"github.com/rs/zerolog"

	"amp-monitor/internal/data"
	"amp-monitor/internal/metrics"
	"amp-monitor/internal/storage"
)

// Publisher accepts notifications for display.
type Publisher interface {
	Publish(msg data.NotificationMessage)
}

// Checker inspects a reading and returns any alerts it raises.
type Checker interface {
	Check(amplifier string, metric data.Metric, r data.Reading) []data.Alert
}

// AlertProcessor handles alerts raised by a Checker.
type AlertProcessor interface {
	ProcessAlerts(alerts []data.Alert)
}

// Sink applies routed messages to the stores.
type Sink struct {
	router    *Router
	amps      *storage.AmplifierStore
	publisher Publisher
	checker   Checker
	alerts    AlertProcessor
	metrics   *metrics.Metrics
	logger    zerolog.Logger

	// OnData, when set, is called after each reading is stored.
	OnData func(data.DataEvent)
}

func NewSink(router *Router, amps *storage.AmplifierStore, pub Publisher, m *metrics.Metrics, logger zerolog.Logger) *Sink {
	return &Sink{router: router, amps: amps, publisher: pub, metrics: m, logger: logger}
}

// WithAnomalyCheck enables threshold alerts for numeric readings.
func (s *Sink) WithAnomalyCheck(c Checker, p AlertProcessor) *Sink {
	s.checker = c
	s.alerts = p
	return s
}

// Handle routes and applies a single message. It never panics on bad
// input; rejected messages are logged and counted.
func (s *Sink) Handle(topic string, payload []byte) Kind {
	res, err := s.router.Route(topic, payload)
	if err != nil {
		reason := "invalid_payload"
		if errors.Is(err, ErrInvalidUTF8) {
			reason = "invalid_utf8"
			s.logger.Error().Err(err).Str("topic", topic).Msg("failed to decode payload")
		} else {
			s.logger.Warn().Err(err).Str("topic", topic).Str("payload", string(payload)).Msg("failed to parse payload")
		}
		s.metrics.MessageDropped(reason)
		return KindIgnored
	}

	s.metrics.MessageHandled(res.Kind.String())

	switch res.Kind {
	case KindData:
		s.applyData(res.Data)
	case KindNotification:
		s.logger.Info().Str("id", res.Notification.ID).Str("type", res.Notification.Type).Msg("notification received")
		if s.publisher != nil {
			s.publisher.Publish(res.Notification)
		}
	case KindCleared:
		s.logger.Info().Str("topic", topic).Msg("null payload on notification topic, retained message cleared")
	default:
		s.logger.Debug().Str("topic", topic).Msg("ignored message")
	}
	return res.Kind
}

func (s *Sink) applyData(ev data.DataEvent) {
	s.logger.Debug().Str("amplifier", ev.AmplifierName).Str("metric", string(ev.Metric)).Str("value", ev.Value).Msg("reading")
	s.amps.SetMetric(ev.AmplifierName, ev.Metric, ev.Reading)

	if v, ok := ev.Reading.Float(); ok {
		s.metrics.ObserveReading(ev.AmplifierName, string(ev.Metric), v)
	}
	if s.checker != nil && s.alerts != nil {
		if alerts := s.checker.Check(ev.AmplifierName, ev.Metric, ev.Reading); len(alerts) > 0 {
			s.alerts.ProcessAlerts(alerts)
		}
	}
	if s.OnData != nil {
		s.OnData(ev)
	}
}
