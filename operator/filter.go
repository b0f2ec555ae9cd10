package operator

import (
	"github.com/ducka/go-flow/demand"
	"github.com/ducka/go-flow/observe"
)

// Filter emits only the items that satisfy the predicate. Every dropped item is replaced by a request for one more
// from upstream, so downstream demand only counts delivered items.
func Filter[T any](predicate PredicateFunc[T], opts ...observe.ObservableOption) observe.OperatorFunc[T, T] {
	if predicate == nil {
		panic(`"Filter" expected predicate func`)
	}
	opts = observe.DefaultActivityName("Filter", opts)
	return func(source *observe.Observable[T]) *observe.Observable[T] {
		return observe.Operation[T, T](
			source,
			func(ctx observe.Context, upstream observe.Subscription, downstream observe.Downstream[T]) observe.Stage[T] {
				return observe.Stage[T]{
					OnNext: func(item T) demand.Demand {
						if !predicate(item) {
							return demand.Max(1)
						}
						downstream.Send(item)
						return demand.None()
					},
				}
			},
			opts...,
		)
	}
}
