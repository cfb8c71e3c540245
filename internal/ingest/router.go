// internal/ingest/router.go
package ingest

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"amp-monitor/internal/config"
	"amp-monitor/internal/data"
	"amp-monitor/internal/topic"
)

var ErrInvalidUTF8 = errors.New("payload is not valid UTF-8")

// Kind classifies a routed message.
type Kind int

const (
	KindIgnored Kind = iota
	KindData
	KindNotification
	KindCleared
)

func (k Kind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindNotification:
		return "notification"
	case KindCleared:
		return "cleared"
	}
	return "ignored"
}

// Result is the outcome of routing one message.
type Result struct {
	Kind         Kind
	Data         data.DataEvent
	Notification data.NotificationMessage
}

// Router classifies incoming MQTT messages by topic.
type Router struct {
	amplifiers []config.AmplifierConfig
	filters    []string
	now        func() time.Time
}

func NewRouter(cfg *config.Config) *Router {
	return &Router{
		amplifiers: cfg.Amplifiers,
		filters:    cfg.NotificationFilters(),
		now:        time.Now,
	}
}

// Route classifies payload received on topic. Notification topics are
// checked before amplifier prefixes.
func (r *Router) Route(t string, payload []byte) (Result, error) {
	if !utf8.Valid(payload) {
		return Result{}, ErrInvalidUTF8
	}

	if r.isNotificationTopic(t) {
		msg, err := data.ParseNotification(payload)
		if errors.Is(err, data.ErrNullPayload) {
			return Result{Kind: KindCleared}, nil
		}
		if err != nil {
			return Result{}, fmt.Errorf("notification on %s: %w", t, err)
		}
		msg.ID = fmt.Sprintf("%s-%d", t, r.now().UnixMilli())
		return Result{Kind: KindNotification, Notification: msg}, nil
	}

	for _, amp := range r.amplifiers {
		if !strings.HasPrefix(t, amp.DataTopicPrefix) {
			continue
		}
		metric, err := data.ParseMetric(strings.TrimPrefix(t, amp.DataTopicPrefix))
		if err != nil {
			return Result{Kind: KindIgnored}, nil
		}
		raw := string(payload)
		return Result{Kind: KindData, Data: data.DataEvent{
			AmplifierName: amp.Name,
			Metric:        metric,
			Value:         raw,
			Reading:       data.ParseReading(payload),
		}}, nil
	}
	return Result{Kind: KindIgnored}, nil
}

func (r *Router) isNotificationTopic(t string) bool {
	for _, f := range r.filters {
		if topic.Match(f, t) {
			return true
		}
	}
	return strings.Contains(t, "/n/")
}

// Subscriptions lists the topic filters the client subscribes to.
func Subscriptions(cfg *config.Config) []string {
	subs := make([]string, 0, len(cfg.Amplifiers)*len(data.Metrics)+2)
	for _, amp := range cfg.Amplifiers {
		for _, m := range data.Metrics {
			subs = append(subs, amp.DataTopicPrefix+string(m))
		}
	}
	return append(subs, cfg.NotificationFilters()...)
}
