// internal/notify/manager.go
package notify

import (
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"amp-monitor/internal/data"
	"amp-monitor/internal/storage"
)

// Manager publishes notifications into the store and removes them once
// their display duration has elapsed.
type Manager struct {
	store          *storage.NotificationStore
	defaultSeconds uint64
	logger         zerolog.Logger

	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool

	unit time.Duration // length of one duration second
}

// NewManager creates a Manager. defaultSeconds applies to messages without a
// duration; 0 keeps them until dismissed.
func NewManager(store *storage.NotificationStore, defaultSeconds int, logger zerolog.Logger) *Manager {
	return &Manager{
		store:          store,
		defaultSeconds: uint64(max(defaultSeconds, 0)),
		logger:         logger,
		timers:         make(map[string]*time.Timer),
		unit:           time.Second,
	}
}

// Publish adds msg to the store and schedules its expiry. Publishing an ID
// that is already present replaces it and restarts its timer.
//
// Store writes happen under m.mu so an expiry can never remove a message
// published after its timer fired. Store subscribers must not call back into
// the Manager.
func (m *Manager) Publish(msg data.NotificationMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := m.store.Push(msg)
	for _, e := range evicted {
		m.cancelLocked(e.ID)
	}
	m.cancelLocked(msg.ID)
	if m.stopped {
		return
	}

	ttl := m.ttl(msg)
	if ttl <= 0 {
		return
	}
	id := msg.ID
	var t *time.Timer
	t = time.AfterFunc(ttl, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.timers[id] != t {
			return
		}
		delete(m.timers, id)
		if m.store.Remove(id) {
			m.logger.Debug().Str("id", id).Msg("notification expired")
		}
	})
	m.timers[id] = t
}

// Dismiss removes a notification now and cancels its timer.
func (m *Manager) Dismiss(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelLocked(id)
	return m.store.Remove(id)
}

// Pending reports how many expiries are scheduled.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// Stop cancels every pending expiry. Later publishes are stored but never
// expire.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.timers {
		m.cancelLocked(id)
	}
	m.stopped = true
}

func (m *Manager) ttl(msg data.NotificationMessage) time.Duration {
	secs := m.defaultSeconds
	if msg.Duration != nil {
		secs = *msg.Duration
	}
	// Clamp instead of overflowing into a short or negative duration.
	if secs > uint64(math.MaxInt64/int64(m.unit)) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(secs) * m.unit
}

func (m *Manager) cancelLocked(id string) {
	if t, ok := m.timers[id]; ok {
		t.Stop()
		delete(m.timers, id)
	}
}
