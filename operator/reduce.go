package operator

import (
	"github.com/ducka/go-flow/demand"
	"github.com/ducka/go-flow/observe"
)

// Reduce combines every upstream item into a single value, emitted once upstream completes successfully. An empty
// upstream yields the seed.
func Reduce[T, TAcc any](seed TAcc, combiner AccumulatorFunc[TAcc, T], opts ...observe.ObservableOption) observe.OperatorFunc[T, TAcc] {
	if combiner == nil {
		panic(`"Reduce" expected combiner func`)
	}
	opts = observe.DefaultActivityName("Reduce", opts)
	return func(source *observe.Observable[T]) *observe.Observable[TAcc] {
		return observe.Operation[T, TAcc](
			source,
			func(ctx observe.Context, upstream observe.Subscription, downstream observe.Downstream[TAcc]) observe.Stage[T] {
				acc := seed
				return observe.Stage[T]{
					OnRequest: greedy(),
					OnNext: func(item T) demand.Demand {
						acc = combiner(acc, item)
						return demand.None()
					},
					OnComplete: func(completion observe.Completion) {
						if !completion.IsFailure() {
							downstream.Send(acc)
						}
						downstream.Complete(completion)
					},
				}
			},
			opts...,
		)
	}
}

// Collect emits every upstream item as one slice once upstream completes successfully.
func Collect[T any](opts ...observe.ObservableOption) observe.OperatorFunc[T, []T] {
	return Reduce[T, []T]([]T{}, func(acc []T, item T) []T {
		return append(acc, item)
	}, observe.DefaultActivityName("Collect", opts)...)
}
