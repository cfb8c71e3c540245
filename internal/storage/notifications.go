// internal/storage/notifications.go
package storage

import (
	"slices"

	"amp-monitor/internal/data"
)

// NotificationStore is the ordered list of active notifications.
type NotificationStore struct {
	w        *Writable[[]data.NotificationMessage]
	capacity int
}

// NewNotificationStore creates an empty store. A capacity above zero bounds
// the list; the oldest entry is evicted to make room.
func NewNotificationStore(capacity int) *NotificationStore {
	return &NotificationStore{
		w:        NewWritable([]data.NotificationMessage{}, cloneNotifications),
		capacity: capacity,
	}
}

// Push appends msg, or replaces in place an entry with the same ID. It
// returns the messages evicted to stay within capacity.
func (s *NotificationStore) Push(msg data.NotificationMessage) (evicted []data.NotificationMessage) {
	s.w.Update(func(cur []data.NotificationMessage) []data.NotificationMessage {
		msg := msg.Clone()
		if i := indexOf(cur, msg.ID); i >= 0 {
			cur[i] = msg
			return cur
		}
		cur = append(cur, msg)
		if s.capacity > 0 && len(cur) > s.capacity {
			n := len(cur) - s.capacity
			evicted = cloneNotifications(cur[:n])
			cur = slices.Delete(cur, 0, n)
		}
		return cur
	})
	return evicted
}

// Remove deletes the message with id and reports whether it was present.
func (s *NotificationStore) Remove(id string) bool {
	return s.w.Mutate(func(cur []data.NotificationMessage) ([]data.NotificationMessage, bool) {
		i := indexOf(cur, id)
		if i < 0 {
			return cur, false
		}
		return slices.Delete(cur, i, i+1), true
	})
}

func (s *NotificationStore) Get(id string) (data.NotificationMessage, bool) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	if i := indexOf(s.w.value, id); i >= 0 {
		return s.w.value[i].Clone(), true
	}
	return data.NotificationMessage{}, false
}

// List returns the messages in insertion order.
func (s *NotificationStore) List() []data.NotificationMessage {
	return s.w.Get()
}

func (s *NotificationStore) Len() int {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	return len(s.w.value)
}

func (s *NotificationStore) Clear() {
	s.w.Mutate(func(cur []data.NotificationMessage) ([]data.NotificationMessage, bool) {
		return cur[:0], len(cur) > 0
	})
}

func (s *NotificationStore) Subscribe(fn func([]data.NotificationMessage)) func() {
	return s.w.Subscribe(fn)
}

func cloneNotifications(list []data.NotificationMessage) []data.NotificationMessage {
	out := make([]data.NotificationMessage, len(list))
	for i, m := range list {
		out[i] = m.Clone()
	}
	return out
}

func indexOf(list []data.NotificationMessage, id string) int {
	return slices.IndexFunc(list, func(m data.NotificationMessage) bool { return m.ID == id })
}
