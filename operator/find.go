package operator

import (
	"sync/atomic"

	"github.com/ducka/go-flow/demand"
	"github.com/ducka/go-flow/observe"
)

// First emits the first item satisfying the predicate, or the first item at all when predicate is nil, then
// cancels upstream and completes. It pulls upstream one item at a time and only once downstream has asked for a
// value. An upstream that completes without a match yields an empty, successful completion.
func First[T any](predicate PredicateFunc[T], opts ...observe.ObservableOption) observe.OperatorFunc[T, T] {
	if predicate == nil {
		predicate = func(T) bool { return true }
	}
	opts = observe.DefaultActivityName("First", opts)
	return func(source *observe.Observable[T]) *observe.Observable[T] {
		return observe.Operation[T, T](
			source,
			func(ctx observe.Context, upstream observe.Subscription, downstream observe.Downstream[T]) observe.Stage[T] {
				started := &atomic.Bool{}
				return observe.Stage[T]{
					OnRequest: func(d demand.Demand) demand.Demand {
						if started.CompareAndSwap(false, true) {
							return demand.Max(1)
						}
						return demand.None()
					},
					OnNext: func(item T) demand.Demand {
						if !predicate(item) {
							return demand.Max(1)
						}
						downstream.Send(item)
						downstream.Complete(observe.Finished())
						return demand.None()
					},
				}
			},
			opts...,
		)
	}
}

// Last emits the last item satisfying the predicate, or the last item at all when predicate is nil, once
// upstream has completed successfully. Only the latest match is held. If upstream never completes, nothing is
// ever emitted.
func Last[T any](predicate PredicateFunc[T], opts ...observe.ObservableOption) observe.OperatorFunc[T, T] {
	if predicate == nil {
		predicate = func(T) bool { return true }
	}
	opts = observe.DefaultActivityName("Last", opts)
	return func(source *observe.Observable[T]) *observe.Observable[T] {
		return observe.Operation[T, T](
			source,
			func(ctx observe.Context, upstream observe.Subscription, downstream observe.Downstream[T]) observe.Stage[T] {
				var last T
				found := false

				return observe.Stage[T]{
					OnRequest: greedy(),
					OnNext: func(item T) demand.Demand {
						if predicate(item) {
							last = item
							found = true
						}
						return demand.None()
					},
					OnComplete: func(completion observe.Completion) {
						if !completion.IsFailure() && found {
							downstream.Send(last)
						}
						downstream.Complete(completion)
					},
				}
			},
			opts...,
		)
	}
}

// greedy requests everything from upstream the first time downstream asks for anything.
func greedy() func(d demand.Demand) demand.Demand {
	started := &atomic.Bool{}
	return func(d demand.Demand) demand.Demand {
		if started.CompareAndSwap(false, true) {
			return demand.Unbounded()
		}
		return demand.None()
	}
}
