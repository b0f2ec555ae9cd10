// Package operator composes observables. Every operator takes one or more publishers and returns a new one that
// honours the same demand protocol: it never emits more than its subscriber requested, it requests from upstream
// only what it needs to satisfy that, and it delivers exactly one terminal signal.
package operator

type (
	PredicateFunc[T any] func(item T) bool
)

// Tuple2 holds one value from each of two publishers.
type Tuple2[A, B any] struct {
	First  A
	Second B
}

// Tuple3 holds one value from each of three publishers.
type Tuple3[A, B, C any] struct {
	First  A
	Second B
	Third  C
}
