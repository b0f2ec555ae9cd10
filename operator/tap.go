package operator

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/ducka/go-flow/demand"
	"github.com/ducka/go-flow/instrumentation"
	"github.com/ducka/go-flow/observe"
)

// Hooks observe a subscription without affecting it. Any hook may be nil.
type Hooks[T any] struct {
	OnNext     func(item T)
	OnComplete func(completion observe.Completion)
	OnRequest  func(d demand.Demand)
	OnCancel   func()
}

// Tap runs hooks for the events passing through it.
func Tap[T any](hooks Hooks[T], opts ...observe.ObservableOption) observe.OperatorFunc[T, T] {
	opts = observe.DefaultActivityName("Tap", opts)
	return func(source *observe.Observable[T]) *observe.Observable[T] {
		return observe.Operation[T, T](
			source,
			func(ctx observe.Context, upstream observe.Subscription, downstream observe.Downstream[T]) observe.Stage[T] {
				completed := &atomic.Bool{}
				if hooks.OnCancel != nil {
					context.AfterFunc(ctx, func() {
						if !completed.Load() {
							hooks.OnCancel()
						}
					})
				}

				return observe.Stage[T]{
					OnRequest: func(d demand.Demand) demand.Demand {
						if hooks.OnRequest != nil {
							hooks.OnRequest(d)
						}
						return d
					},
					OnNext: func(item T) demand.Demand {
						if hooks.OnNext != nil {
							hooks.OnNext(item)
						}
						downstream.Send(item)
						return demand.None()
					},
					OnComplete: func(completion observe.Completion) {
						completed.Store(true)
						if hooks.OnComplete != nil {
							hooks.OnComplete(completion)
						}
						downstream.Complete(completion)
					},
				}
			},
			opts...,
		)
	}
}

// Print logs every event passing through it at info level, prefixed with label.
func Print[T any](label string, opts ...observe.ObservableOption) observe.OperatorFunc[T, T] {
	opts = observe.DefaultActivityName("Print", opts)
	activity := label
	log := func(message string) {
		instrumentation.Logging().Info(activity, fmt.Sprintf("%s: %s", label, message))
	}

	return Tap(Hooks[T]{
		OnNext:     func(item T) { log(fmt.Sprintf("receive value: (%v)", item)) },
		OnComplete: func(completion observe.Completion) { log("receive " + completion.String()) },
		OnRequest:  func(d demand.Demand) { log("request " + d.String()) },
		OnCancel:   func() { log("receive cancel") },
	}, opts...)
}
