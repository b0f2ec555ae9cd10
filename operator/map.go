package operator

import (
	"github.com/ducka/go-flow/demand"
	"github.com/ducka/go-flow/instrumentation"
	"github.com/ducka/go-flow/observe"
)

type (
	MapFunc[TIn, TOut any]    func(item TIn, index int) TOut
	TryMapFunc[TIn, TOut any] func(item TIn, index int) (TOut, error)
)

// Map transforms the Items emitted by an Observable by applying a function to each item.
func Map[TIn, TOut any](mapper MapFunc[TIn, TOut], opts ...observe.ObservableOption) observe.OperatorFunc[TIn, TOut] {
	if mapper == nil {
		panic(`"Map" expected mapper func`)
	}
	opts = observe.DefaultActivityName("Map", opts)
	return func(source *observe.Observable[TIn]) *observe.Observable[TOut] {
		return observe.Operation[TIn, TOut](
			source,
			func(ctx observe.Context, upstream observe.Subscription, downstream observe.Downstream[TOut]) observe.Stage[TIn] {
				index := 0
				return observe.Stage[TIn]{
					OnNext: func(item TIn) demand.Demand {
						downstream.Send(mapper(item, index))
						index++
						return demand.None()
					},
				}
			},
			opts...,
		)
	}
}

// TryMap transforms items with a fallible mapper. A mapper error terminates the subscription with a
// *observe.TransformError, or with ContinueOnError skips the item and pulls a replacement from upstream.
func TryMap[TIn, TOut any](mapper TryMapFunc[TIn, TOut], opts ...observe.ObservableOption) observe.OperatorFunc[TIn, TOut] {
	if mapper == nil {
		panic(`"TryMap" expected mapper func`)
	}
	opts = observe.DefaultActivityName("TryMap", opts)
	return func(source *observe.Observable[TIn]) *observe.Observable[TOut] {
		return observe.Operation[TIn, TOut](
			source,
			func(ctx observe.Context, upstream observe.Subscription, downstream observe.Downstream[TOut]) observe.Stage[TIn] {
				index := 0
				return observe.Stage[TIn]{
					OnNext: func(item TIn) demand.Demand {
						output, err := mapper(item, index)
						index++

						if err != nil {
							return transformFailed(ctx, downstream, err)
						}

						downstream.Send(output)
						return demand.None()
					},
				}
			},
			opts...,
		)
	}
}

// transformFailed applies the stage's error strategy to a transform error and returns the demand to pull from
// upstream in place of the failed item.
func transformFailed[T any](ctx observe.Context, downstream observe.Downstream[T], err error) demand.Demand {
	failure := &observe.TransformError{Activity: ctx.Activity, Err: err}
	instrumentation.Logging().Warn(ctx.Activity, failure.Error())

	if ctx.ErrorStrategy == observe.ContinueOnError {
		instrumentation.Metrics().Incr(ctx.Activity, "transform_skipped", 1)
		return demand.Max(1)
	}

	downstream.Complete(observe.Failure(failure))
	return demand.None()
}
