package model

// Result is the outcome of an engine entry point: either a value or an
// unavailable marker with a reason. Unavailable is a signal, not an error;
// callers treat it as missing input and lower their confidence.
type Result[T any] struct {
	value  T
	ok     bool
	reason string
}

// Available wraps a computed value.
func Available[T any](v T) Result[T] {
	return Result[T]{value: v, ok: true}
}

// Unavailable marks that no value could be produced.
func Unavailable[T any](reason string) Result[T] {
	return Result[T]{reason: reason}
}

// Get returns the value and whether it is available.
func (r Result[T]) Get() (T, bool) {
	return r.value, r.ok
}

// OK reports whether a value is available.
func (r Result[T]) OK() bool {
	return r.ok
}

// Reason explains why the result is unavailable.
func (r Result[T]) Reason() string {
	return r.reason
}
