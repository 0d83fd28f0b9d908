// Package share holds the process-wide flags that the web panel writes and
// the flight-control tasks read.
package share

import "sync"

// Flag is a single named cell visible to every goroutine. Reads return the
// last written value, or the default before the first write. Watchers are
// only told about writes that change the value.
type Flag[T comparable] struct {
	name     string
	def      T
	mu       sync.RWMutex
	value    T
	onChange func()
}

func newFlag[T comparable](name string, def T, onChange func()) *Flag[T] {
	return &Flag[T]{
		name:     name,
		def:      def,
		value:    def,
		onChange: onChange,
	}
}

// Name returns the flag's name.
func (f *Flag[T]) Name() string { return f.name }

func (f *Flag[T]) Get() T {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.value
}

func (f *Flag[T]) Set(v T) {
	f.Swap(v)
}

// Swap stores v and returns the previous value in one step.
func (f *Flag[T]) Swap(v T) T {
	f.mu.Lock()
	old := f.value
	f.value = v
	f.mu.Unlock()
	if old != v && f.onChange != nil {
		f.onChange()
	}
	return old
}

// Reset puts the flag back to its default.
func (f *Flag[T]) Reset() { f.Set(f.def) }
