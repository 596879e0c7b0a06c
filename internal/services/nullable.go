package services

import "encoding/json"

// Nullable is an optional JSON field that tells an absent key apart from an
// explicit null.
type Nullable[T any] struct {
	set   bool
	null  bool
	value T
}

// Value returns a Nullable holding v.
func Value[T any](v T) Nullable[T] {
	return Nullable[T]{set: true, value: v}
}

// Null returns a Nullable holding an explicit null.
func Null[T any]() Nullable[T] {
	return Nullable[T]{set: true, null: true}
}

// IsSet reports whether the key was present, null included.
func (n Nullable[T]) IsSet() bool { return n.set }

// Get returns the value and whether a non-null value was supplied.
func (n Nullable[T]) Get() (T, bool) {
	return n.value, n.set && !n.null
}

func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	var zero T
	n.set, n.value = true, zero
	if string(data) == "null" {
		n.null = true
		return nil
	}
	n.null = false
	return json.Unmarshal(data, &n.value)
}

func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if !n.set || n.null {
		return []byte("null"), nil
	}
	return json.Marshal(n.value)
}
