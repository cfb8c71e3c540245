// internal/data/parser.go
package data

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrNullPayload marks a literal null, which publishers send to clear a
	// retained message.
	ErrNullPayload = errors.New("null payload")
)

// ParseReading turns a raw metric payload into a Reading. Numbers become
// numeric readings, empty or null payloads become absent, and anything else
// is kept verbatim.
func ParseReading(payload []byte) Reading {
	s := string(bytes.TrimSpace(payload))
	if s == "" || s == "null" {
		return Reading{}
	}
	if v, ok := parseFinite(s); ok {
		return Number(v)
	}
	return Raw(s)
}

type notificationWire struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Message  string  `json:"message"`
	Type     string  `json:"type"`
	Duration *uint64 `json:"duration"`
}

// ParseNotification decodes a notification payload. The caller is expected
// to assign the final ID.
func ParseNotification(payload []byte) (NotificationMessage, error) {
	trimmed := bytes.TrimSpace(payload)
	if bytes.Equal(trimmed, []byte("null")) {
		return NotificationMessage{}, ErrNullPayload
	}

	var w notificationWire
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return NotificationMessage{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if w.Type == "" {
		w.Type = TypeInfo
	}
	return NotificationMessage{
		ID:       w.ID,
		Title:    w.Title,
		Message:  w.Message,
		Type:     w.Type,
		Duration: w.Duration,
	}, nil
}
