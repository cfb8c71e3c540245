// internal/data/models.go
package data

import (
	"errors"
	"fmt"
	"time"
)

// Metric names one of the readings an amplifier publishes.
type Metric string

const (
	MetricPower   Metric = "power"
	MetricTemp    Metric = "temp"
	MetricSWR     Metric = "swr"
	MetricCurrent Metric = "current"
)

// Metrics lists every known metric in subscription order.
var Metrics = []Metric{MetricPower, MetricTemp, MetricSWR, MetricCurrent}

var ErrUnknownMetric = errors.New("unknown metric")

// ParseMetric maps a topic suffix or config key onto a Metric.
func ParseMetric(s string) (Metric, error) {
	for _, m := range Metrics {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMetric, s)
}

// AmplifierData is the latest snapshot of one amplifier's readings.
// Every field is independently optional.
type AmplifierData struct {
	Power   Reading `json:"power"`
	Temp    Reading `json:"temp"`
	SWR     Reading `json:"swr"`
	Current Reading `json:"current"`
}

// With returns a copy of d with the given metric replaced.
func (d AmplifierData) With(m Metric, r Reading) AmplifierData {
	switch m {
	case MetricPower:
		d.Power = r
	case MetricTemp:
		d.Temp = r
	case MetricSWR:
		d.SWR = r
	case MetricCurrent:
		d.Current = r
	}
	return d
}

// Field returns the reading stored for m.
func (d AmplifierData) Field(m Metric) Reading {
	switch m {
	case MetricPower:
		return d.Power
	case MetricTemp:
		return d.Temp
	case MetricSWR:
		return d.SWR
	case MetricCurrent:
		return d.Current
	}
	return Reading{}
}

// Notification categories understood by the UI. Any other string is allowed.
const (
	TypeInfo    = "info"
	TypeWarning = "warning"
	TypeError   = "error"
	TypeSuccess = "success"
)

// NotificationMessage is a transient user-facing message.
type NotificationMessage struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Message  string  `json:"message"`
	Type     string  `json:"type"`
	Duration *uint64 `json:"duration,omitempty"` // seconds
}

// Clone returns a copy that shares no memory with n.
func (n NotificationMessage) Clone() NotificationMessage {
	if n.Duration != nil {
		d := *n.Duration
		n.Duration = &d
	}
	return n
}

// DataEvent is a single metric update as pushed to UI clients.
type DataEvent struct {
	AmplifierName string  `json:"amplifierName"`
	Metric        Metric  `json:"metric"`
	Value         string  `json:"value"`
	Reading       Reading `json:"reading"`
}

// Alert - raised when a numeric reading crosses a configured range
type Alert struct {
	Timestamp time.Time `json:"timestamp"`
	Severity  string    `json:"severity"` // TypeWarning on entry, TypeSuccess on recovery
	Amplifier string    `json:"amplifier"`
	Metric    Metric    `json:"metric"`
	Value     float64   `json:"value"`
	Min       float64   `json:"min"`
	Max       float64   `json:"max"`
	Message   string    `json:"message"`
}
