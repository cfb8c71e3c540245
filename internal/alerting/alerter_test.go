package alerting

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amp-monitor/internal/data"
)

type recorder struct{ got []data.NotificationMessage }

func (r *recorder) Publish(msg data.NotificationMessage) { r.got = append(r.got, msg) }

func TestProcessAlerts(t *testing.T) {
	rec := &recorder{}
	a := NewAlerter(rec, zerolog.Nop())

	a.ProcessAlerts([]data.Alert{
		{Severity: data.TypeWarning, Amplifier: "Amp 1", Metric: data.MetricSWR, Value: 3.1, Message: "high swr"},
		{Severity: data.TypeSuccess, Amplifier: "Amp 1", Metric: data.MetricSWR, Value: 1.2, Message: "ok"},
	})

	require.Len(t, rec.got, 2)
	assert.Equal(t, data.TypeWarning, rec.got[0].Type)
	assert.Equal(t, "Amp 1: swr out of range", rec.got[0].Title)
	assert.Equal(t, "high swr", rec.got[0].Message)
	assert.True(t, strings.HasPrefix(rec.got[0].ID, "alert-"))
	assert.NotEqual(t, rec.got[0].ID, rec.got[1].ID)
	assert.Equal(t, data.TypeSuccess, rec.got[1].Type)
	assert.Equal(t, "Amp 1: swr back to normal", rec.got[1].Title)
}

func TestProcessAlertsWithoutPublisher(t *testing.T) {
	a := NewAlerter(nil, zerolog.Nop())
	assert.NotPanics(t, func() {
		a.ProcessAlerts([]data.Alert{{Severity: data.TypeWarning}})
	})
}
