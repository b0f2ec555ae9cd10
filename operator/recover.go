package operator

import (
	"sync"

	"github.com/ducka/go-flow/demand"
	"github.com/ducka/go-flow/instrumentation"
	"github.com/ducka/go-flow/observe"
)

type (
	CatchFunc[T any] func(err error) *observe.Observable[T]
	MapErrorFunc     func(err error) error
)

// Catch replaces a failed source with the publisher returned by handler. Items already delivered stay delivered;
// outstanding demand carries over to the replacement. A failure of the replacement is not caught again.
func Catch[T any](handler CatchFunc[T], opts ...observe.ObservableOption) observe.OperatorFunc[T, T] {
	if handler == nil {
		panic(`"Catch" expected handler func`)
	}
	opts = observe.DefaultActivityName("Catch", opts)
	return func(source *observe.Observable[T]) *observe.Observable[T] {
		return recoverWith(source, func(err error, attempt int) *observe.Observable[T] {
			if attempt > 1 {
				return nil
			}
			return handler(err)
		}, opts)
	}
}

// ReplaceError replaces a failure with a single item followed by a successful completion.
func ReplaceError[T any](value T, opts ...observe.ObservableOption) observe.OperatorFunc[T, T] {
	return Catch(func(err error) *observe.Observable[T] {
		return observe.Value(value)
	}, observe.DefaultActivityName("ReplaceError", opts)...)
}

// Retry resubscribes to a failed source up to attempts more times before letting the failure through.
func Retry[T any](attempts int, opts ...observe.ObservableOption) observe.OperatorFunc[T, T] {
	opts = observe.DefaultActivityName("Retry", opts)
	return func(source *observe.Observable[T]) *observe.Observable[T] {
		return recoverWith(source, func(err error, attempt int) *observe.Observable[T] {
			if attempt > attempts {
				return nil
			}
			return source
		}, opts)
	}
}

// MapError rewrites the error of a failure. Items and successful completions pass through unchanged.
func MapError[T any](mapper MapErrorFunc, opts ...observe.ObservableOption) observe.OperatorFunc[T, T] {
	if mapper == nil {
		panic(`"MapError" expected mapper func`)
	}
	opts = observe.DefaultActivityName("MapError", opts)
	return func(source *observe.Observable[T]) *observe.Observable[T] {
		return observe.Operation[T, T](
			source,
			func(ctx observe.Context, upstream observe.Subscription, downstream observe.Downstream[T]) observe.Stage[T] {
				return observe.Stage[T]{
					OnNext: func(item T) demand.Demand {
						downstream.Send(item)
						return demand.None()
					},
					OnComplete: func(completion observe.Completion) {
						if completion.IsFailure() {
							completion = observe.Failure(mapper(completion.Err))
						}
						downstream.Complete(completion)
					},
				}
			},
			opts...,
		)
	}
}

func recoverWith[T any](source *observe.Observable[T], next func(err error, attempt int) *observe.Observable[T], opts []observe.ObservableOption) *observe.Observable[T] {
	return observe.ComposeFrom[T, T](
		source,
		func(ctx observe.Context, downstream *observe.Conduit[T]) {
			r := &relay[T]{ctx: ctx, downstream: downstream, next: next}
			downstream.OnRequest(r.request)
			downstream.OnRelease(r.cancel)
			r.subscribe(source)
		},
		opts...,
	)
}

// relay forwards one upstream subscription at a time to the downstream conduit, switching to a new upstream when
// the current one fails and next supplies a replacement.
type relay[T any] struct {
	mu         sync.Mutex
	ctx        observe.Context
	downstream *observe.Conduit[T]
	next       func(err error, attempt int) *observe.Observable[T]
	current    *observe.Link
	attempt    int
	cancelled  bool
}

func (r *relay[T]) subscribe(source *observe.Observable[T]) {
	link := &observe.Link{}

	r.mu.Lock()
	if r.cancelled {
		r.mu.Unlock()
		return
	}
	r.current = link
	r.mu.Unlock()

	source.SubscribeWith(&relaySubscriber[T]{relay: r, link: link})
}

func (r *relay[T]) request(d demand.Demand) {
	r.mu.Lock()
	current := r.current
	r.mu.Unlock()

	if current != nil {
		current.Request(d)
	}
}

func (r *relay[T]) cancel() {
	r.mu.Lock()
	r.cancelled = true
	current := r.current
	r.mu.Unlock()

	if current != nil {
		current.Cancel()
	}
}

func (r *relay[T]) failed(err error) {
	r.mu.Lock()
	r.attempt++
	attempt := r.attempt
	r.mu.Unlock()

	replacement := r.next(err, attempt)
	if replacement == nil {
		r.downstream.Complete(observe.Failure(err))
		return
	}

	instrumentation.Logging().Warn(r.ctx.Activity, "recovering from failure: "+err.Error())
	instrumentation.Metrics().Incr(r.ctx.Activity, "recovered", 1)
	r.subscribe(replacement)
}

type relaySubscriber[T any] struct {
	relay *relay[T]
	link  *observe.Link
}

func (s *relaySubscriber[T]) OnSubscribe(subscription observe.Subscription) {
	s.link.Bind(subscription)
	s.link.Request(s.relay.downstream.Outstanding())
}

func (s *relaySubscriber[T]) OnNext(v T) demand.Demand {
	s.relay.downstream.Offer(v, nil)
	return demand.None()
}

func (s *relaySubscriber[T]) OnComplete(completion observe.Completion) {
	if completion.IsFailure() {
		s.relay.failed(completion.Err)
		return
	}
	s.relay.downstream.Complete(completion)
}
