package observe

import (
	"context"
	"sync"

	"github.com/ducka/go-flow/demand"
	"github.com/ducka/go-flow/utils"
)

// Observable is the opaque publisher handle returned by every constructor and operator. It hides the concrete
// publisher behind it and carries the options that propagate down a pipeline.
type Observable[T any] struct {
	opts      observableOptions
	subscribe func(opts observableOptions, subscriber Subscriber[T])
}

var _ Publisher[int] = (*Observable[int])(nil)

func newObservable[T any](subscribe func(observableOptions, Subscriber[T]), opts observableOptions, options []ObservableOption) *Observable[T] {
	for _, opt := range options {
		opt(&opts)
	}

	return &Observable[T]{
		opts:      opts,
		subscribe: subscribe,
	}
}

// FromPublisher wraps any publisher in an Observable so operators can be applied to it.
func FromPublisher[T any](publisher Publisher[T], opts ...ObservableOption) *Observable[T] {
	if publisher == nil {
		panic(`"FromPublisher" expected a publisher`)
	}
	if o, ok := publisher.(*Observable[T]); ok && len(opts) == 0 {
		return o
	}
	return newObservable[T](
		func(_ observableOptions, subscriber Subscriber[T]) {
			publisher.SubscribeWith(subscriber)
		},
		newOptions(),
		DefaultActivityName("Publisher", opts),
	)
}

// SubscribeWith attaches a subscriber, activating a new subscription.
func (o *Observable[T]) SubscribeWith(subscriber Subscriber[T]) {
	if subscriber == nil {
		panic(`"SubscribeWith" expected a subscriber`)
	}
	o.subscribe(o.opts, subscriber)
}

// Subscribe attaches callbacks and returns the handle that cancels the subscription. By default all values
// are requested up front.
func (o *Observable[T]) Subscribe(onNext OnNextFunc[T], options ...SubscribeOption) *Cancellable {
	opts := &subscribeOptions{
		onError:        func(err error) {},
		onComplete:     func(completion Completion) {},
		initialDemand:  demand.Unbounded(),
		demandPerValue: demand.None(),
	}

	for _, opt := range options {
		opt(opts)
	}

	if onNext == nil {
		onNext = func(T) {}
	}

	s := &sink[T]{
		onNext:      onNext,
		opts:        opts,
		cancellable: &Cancellable{},
		done:        make(chan struct{}),
	}

	o.SubscribeWith(s)

	if opts.waitTillComplete {
		<-s.done
	}

	return s.cancellable
}

// ToResult requests every value and blocks until the subscription ends. A failure is reported as the final
// Error notification.
func (o *Observable[T]) ToResult() []Notification[T] {
	mu := &sync.Mutex{}
	notifications := make([]Notification[T], 0)

	o.Subscribe(
		func(v T) {
			mu.Lock()
			defer mu.Unlock()
			notifications = append(notifications, Next(v))
		},
		WithOnError(func(err error) {
			mu.Lock()
			defer mu.Unlock()
			notifications = append(notifications, Error[T](err))
		}),
		WithWaitTillComplete(),
	)

	mu.Lock()
	defer mu.Unlock()
	return notifications
}

// ToValues requests every value, blocks until the subscription ends and returns the values with the failure, if
// any.
func (o *Observable[T]) ToValues() ([]T, error) {
	values := make([]T, 0)
	var err error
	for _, n := range o.ToResult() {
		if n.Kind() == ErrorKind {
			err = n.Err()
			continue
		}
		values = append(values, n.Value())
	}
	return values, err
}

// Pipe applies operators that keep the element type.
func (o *Observable[T]) Pipe(operators ...OperatorFunc[T, T]) *Observable[T] {
	result := o
	for _, op := range operators {
		result = op(result)
	}
	return result
}

func (o *Observable[T]) Activity() string {
	return o.opts.activity
}

func (o *Observable[T]) Context() context.Context {
	return o.opts.ctx
}

// activate builds the per-subscription context: done when the subscription ends, and failing the conduit when
// the observable's configured context is done.
func activate[T any](opts observableOptions, c *Conduit[T]) Context {
	ctx, cancel := utils.MergeContexts(context.Background(), opts.ctx)
	stop := func() bool { return true }

	if opts.ctx.Done() != nil {
		stop = context.AfterFunc(opts.ctx, func() {
			c.Complete(Failure(opts.ctx.Err()))
		})
	}

	c.OnRelease(func() {
		stop()
		cancel()
	})

	stageCtx := NewContext(ctx, opts.activity)
	stageCtx.ErrorStrategy = opts.errorStrategy
	return stageCtx
}

type sink[T any] struct {
	onNext      OnNextFunc[T]
	opts        *subscribeOptions
	cancellable *Cancellable
	done        chan struct{}
}

func (s *sink[T]) OnSubscribe(subscription Subscription) {
	s.cancellable.attach(subscription)
	subscription.Request(s.opts.initialDemand)
}

func (s *sink[T]) OnNext(v T) demand.Demand {
	s.onNext(v)
	return s.opts.demandPerValue
}

func (s *sink[T]) OnComplete(completion Completion) {
	defer close(s.done)
	if completion.IsFailure() {
		s.opts.onError(completion.Err)
	}
	s.opts.onComplete(completion)
}
