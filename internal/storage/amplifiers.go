// internal/storage/amplifiers.go
package storage

import (
	"maps"

	"amp-monitor/internal/data"
)

// AmplifierStore maps amplifier name to its latest readings.
type AmplifierStore struct {
	w *Writable[map[string]data.AmplifierData]
}

func NewAmplifierStore() *AmplifierStore {
	return &AmplifierStore{
		w: NewWritable(map[string]data.AmplifierData{}, maps.Clone[map[string]data.AmplifierData]),
	}
}

// SetMetric records one reading, creating the amplifier entry if needed.
func (s *AmplifierStore) SetMetric(name string, m data.Metric, r data.Reading) {
	s.w.Update(func(cur map[string]data.AmplifierData) map[string]data.AmplifierData {
		cur[name] = cur[name].With(m, r)
		return cur
	})
}

// Put replaces the whole entry for name.
func (s *AmplifierStore) Put(name string, d data.AmplifierData) {
	s.w.Update(func(cur map[string]data.AmplifierData) map[string]data.AmplifierData {
		cur[name] = d
		return cur
	})
}

func (s *AmplifierStore) Get(name string) (data.AmplifierData, bool) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	d, ok := s.w.value[name]
	return d, ok
}

// Delete removes name and reports whether it was present.
func (s *AmplifierStore) Delete(name string) bool {
	return s.w.Mutate(func(cur map[string]data.AmplifierData) (map[string]data.AmplifierData, bool) {
		if _, ok := cur[name]; !ok {
			return cur, false
		}
		delete(cur, name)
		return cur, true
	})
}

func (s *AmplifierStore) Snapshot() map[string]data.AmplifierData {
	return s.w.Get()
}

func (s *AmplifierStore) Len() int {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	return len(s.w.value)
}

// Subscribe receives a copy of the whole map on every change.
func (s *AmplifierStore) Subscribe(fn func(map[string]data.AmplifierData)) func() {
	return s.w.Subscribe(fn)
}
