// internal/alerting/alerter.go
package alerting

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"amp-monitor/internal/data"
)

// Publisher accepts notifications for display.
type Publisher interface {
	Publish(msg data.NotificationMessage)
}

type Alerter struct {
	pub    Publisher
	logger zerolog.Logger
}

func NewAlerter(pub Publisher, logger zerolog.Logger) *Alerter {
	return &Alerter{pub: pub, logger: logger}
}

// ProcessAlerts turns threshold alerts into notifications.
func (a *Alerter) ProcessAlerts(alerts []data.Alert) {
	for _, alert := range alerts {
		ev := a.logger.Warn()
		title := fmt.Sprintf("%s: %s out of range", alert.Amplifier, alert.Metric)
		if alert.Severity == data.TypeSuccess {
			ev = a.logger.Info()
			title = fmt.Sprintf("%s: %s back to normal", alert.Amplifier, alert.Metric)
		}
		ev.Str("amplifier", alert.Amplifier).
			Str("metric", string(alert.Metric)).
			Float64("value", alert.Value).
			Msg(alert.Message)

		if a.pub == nil {
			continue
		}
		a.pub.Publish(data.NotificationMessage{
			ID:      "alert-" + uuid.NewString(),
			Title:   title,
			Message: alert.Message,
			Type:    alert.Severity,
		})
	}
}
