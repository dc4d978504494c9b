package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Loadable wraps a value that may not have been fetched yet.
//
// It has three observable states: not loaded, loaded with the zero value
// (absent) and loaded with a value (present). Callers must not treat a
// not-loaded value as absent.
type Loadable[T any] struct {
	loaded bool
	value  T
}

// Loaded returns a loaded value.
func Loaded[T any](v T) Loadable[T] {
	return Loadable[T]{loaded: true, value: v}
}

// NotLoaded returns a value that has not been fetched.
func NotLoaded[T any]() Loadable[T] {
	return Loadable[T]{}
}

// IsLoaded reports whether the value was fetched.
func (l Loadable[T]) IsLoaded() bool {
	return l.loaded
}

// Get returns the value and whether it was loaded.
func (l Loadable[T]) Get() (T, bool) {
	return l.value, l.loaded
}

// Or returns the value if loaded and def otherwise.
func (l Loadable[T]) Or(def T) T {
	if !l.loaded {
		return def
	}
	return l.value
}

// MapLoadable converts a loaded value with f and keeps NotLoaded as is.
func MapLoadable[T, U any](l Loadable[T], f func(T) U) Loadable[U] {
	if !l.loaded {
		return NotLoaded[U]()
	}
	return Loaded(f(l.value))
}

type loadableJSON[T any] struct {
	Loaded bool `json:"loaded"`
	Value  *T   `json:"value,omitempty"`
}

// MarshalJSON encodes the value as {"loaded":false} or {"loaded":true,"value":...}.
func (l Loadable[T]) MarshalJSON() ([]byte, error) {
	if !l.loaded {
		return []byte(`{"loaded":false}`), nil
	}
	v := l.value
	return json.Marshal(loadableJSON[T]{Loaded: true, Value: &v})
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (l *Loadable[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*l = Loadable[T]{}
		return nil
	}
	var raw loadableJSON[T]
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode loadable: %w", err)
	}
	*l = Loadable[T]{loaded: raw.Loaded}
	if raw.Loaded && raw.Value != nil {
		l.value = *raw.Value
	}
	return nil
}

// FieldValue is the value of a project custom field: not loaded, loaded
// with no option, or loaded with an option id.
type FieldValue = Loadable[FieldOptionID]

// OptionOf returns a loaded field value holding id. An empty id means the
// field was loaded and is blank.
func OptionOf(id FieldOptionID) FieldValue {
	return Loaded(id)
}
