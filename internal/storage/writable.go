// internal/storage/writable.go
package storage

import "sync"

// Writable holds a value and notifies subscribers whenever it changes.
// Writes are serialised; every subscriber sees changes in write order.
// Subscribers run on the writing goroutine and must not write to the same
// Writable from inside the callback.
type Writable[T any] struct {
	emitMu sync.Mutex // held across a write and its notifications
	mu     sync.Mutex // guards value and subs
	value  T
	subs   []subscriber[T]
	nextID uint64
	clone  func(T) T
}

type subscriber[T any] struct {
	id uint64
	fn func(T)
}

// NewWritable creates a Writable holding initial. clone, when non-nil, is
// used to hand out copies so callers never share the internal value.
func NewWritable[T any](initial T, clone func(T) T) *Writable[T] {
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return &Writable[T]{value: initial, clone: clone}
}

// Get returns a copy of the current value.
func (w *Writable[T]) Get() T {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.clone(w.value)
}

// Set replaces the value and notifies subscribers.
func (w *Writable[T]) Set(v T) {
	w.Mutate(func(T) (T, bool) { return v, true })
}

// Update applies fn to the current value and notifies subscribers. fn owns
// the value it is given for the duration of the call.
func (w *Writable[T]) Update(fn func(T) T) {
	w.Mutate(func(v T) (T, bool) { return fn(v), true })
}

// Mutate is Update with an opt-out: subscribers are only notified when fn
// reports a change. It returns that report.
func (w *Writable[T]) Mutate(fn func(T) (T, bool)) bool {
	w.emitMu.Lock()
	defer w.emitMu.Unlock()

	w.mu.Lock()
	next, changed := fn(w.value)
	if !changed {
		w.mu.Unlock()
		return false
	}
	w.value = next
	subs := append([]subscriber[T](nil), w.subs...)
	w.mu.Unlock()

	for _, s := range subs {
		s.fn(w.clone(next))
	}
	return true
}

// Subscribe calls fn with the current value, then again after every change
// until the returned function is called.
func (w *Writable[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	w.emitMu.Lock()
	defer w.emitMu.Unlock()

	w.mu.Lock()
	w.nextID++
	id := w.nextID
	w.subs = append(w.subs, subscriber[T]{id: id, fn: fn})
	current := w.clone(w.value)
	w.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			for i, s := range w.subs {
				if s.id == id {
					w.subs = append(w.subs[:i:i], w.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Subscribers returns the number of active subscriptions.
func (w *Writable[T]) Subscribers() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.subs)
}
