package operator

import (
	"github.com/ducka/go-flow/demand"
	"github.com/ducka/go-flow/observe"
)

type AccumulatorFunc[TAcc, T any] func(acc TAcc, item T) TAcc

// Scan emits the running accumulation of the upstream items, one output per input.
func Scan[T, TAcc any](seed TAcc, accumulator AccumulatorFunc[TAcc, T], opts ...observe.ObservableOption) observe.OperatorFunc[T, TAcc] {
	if accumulator == nil {
		panic(`"Scan" expected accumulator func`)
	}
	opts = observe.DefaultActivityName("Scan", opts)
	return func(source *observe.Observable[T]) *observe.Observable[TAcc] {
		return observe.Operation[T, TAcc](
			source,
			func(ctx observe.Context, upstream observe.Subscription, downstream observe.Downstream[TAcc]) observe.Stage[T] {
				acc := seed
				return observe.Stage[T]{
					OnNext: func(item T) demand.Demand {
						acc = accumulator(acc, item)
						downstream.Send(acc)
						return demand.None()
					},
				}
			},
			opts...,
		)
	}
}
