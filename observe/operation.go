package observe

import (
	"sync"
	"sync/atomic"

	"github.com/ducka/go-flow/demand"
	"github.com/ducka/go-flow/instrumentation"
)

// ConnectFunc wires a new subscription: it registers the conduit's callbacks and subscribes to whatever upstream
// publishers feed it. The conduit is started once ConnectFunc returns.
type ConnectFunc[T any] func(ctx Context, downstream *Conduit[T])

// Compose builds an observable whose subscriptions are driven by connect. Values offered before the subscriber
// has requested them are buffered unless a different backpressure strategy is configured.
func Compose[T any](connect ConnectFunc[T], opts ...ObservableOption) *Observable[T] {
	return compose(connect, newOptions(), DefaultActivityName("Compose", opts))
}

// ComposeFrom is Compose with the context and error strategy inherited from parent.
func ComposeFrom[TParent, T any](parent *Observable[TParent], connect ConnectFunc[T], opts ...ObservableOption) *Observable[T] {
	return compose(connect, parent.opts.inherit(), DefaultActivityName("Compose", opts))
}

func compose[T any](connect ConnectFunc[T], base observableOptions, opts []ObservableOption) *Observable[T] {
	if connect == nil {
		panic(`"Compose" expected a connect func`)
	}

	return newObservable[T](
		func(opts observableOptions, subscriber Subscriber[T]) {
			conduit := NewConduit[T](subscriber, opts.strategyOr(Buffer), opts.activity)
			ctx := activate(opts, conduit)
			connect(ctx, conduit)
			conduit.Start()
		},
		base,
		opts,
	)
}

// Downstream is the side of an operation that values are emitted to.
type Downstream[T any] interface {
	// Send emits v. It reports whether v was accepted.
	Send(v T) bool
	// Complete cancels the upstream subscription and delivers the terminal signal downstream.
	Complete(completion Completion)
	// Outstanding is the downstream demand not yet satisfied.
	Outstanding() demand.Demand
}

// Stage holds the per-subscription behaviour of an operation.
type Stage[T any] struct {
	// OnNext receives an upstream value and returns the additional demand to request from upstream. Required.
	OnNext func(v T) demand.Demand
	// OnComplete receives the upstream terminal signal. Defaults to forwarding it downstream.
	OnComplete func(completion Completion)
	// OnRequest maps demand requested downstream to demand requested upstream. Defaults to requesting the same.
	OnRequest func(d demand.Demand) demand.Demand
}

// StageFunc builds the Stage for one subscription. upstream may be used to request or cancel at any time,
// including before the upstream subscription has been granted.
type StageFunc[TIn any, TOut any] func(ctx Context, upstream Subscription, downstream Downstream[TOut]) Stage[TIn]

// Operation observes items produced by a stage applied to the source's values. This function allows you to
// change the type of an Observable from one type to another. Options not supplied are inherited from the source.
func Operation[TIn any, TOut any](
	source *Observable[TIn],
	stageFn StageFunc[TIn, TOut],
	opts ...ObservableOption,
) *Observable[TOut] {
	if source == nil {
		panic(`"Operation" expected a source observable`)
	}
	if stageFn == nil {
		panic(`"Operation" expected a stage func`)
	}

	return compose[TOut](
		func(ctx Context, conduit *Conduit[TOut]) {
			upstream := &Link{}
			op := &operation[TIn, TOut]{
				conduit:  conduit,
				upstream: upstream,
				activity: ctx.Activity,
			}

			stage := stageFn(ctx, upstream, op)
			if stage.OnNext == nil {
				panic(`"Operation" expected a stage with an OnNext func`)
			}
			if stage.OnComplete == nil {
				stage.OnComplete = op.Complete
			}
			if stage.OnRequest == nil {
				stage.OnRequest = func(d demand.Demand) demand.Demand { return d }
			}
			op.stage = stage

			conduit.OnRequest(func(d demand.Demand) {
				upstream.Request(stage.OnRequest(d))
			})
			conduit.OnRelease(upstream.Cancel)

			source.SubscribeWith(op)
		},
		source.opts.inherit(),
		DefaultActivityName("Operation", opts),
	)
}

type operation[TIn any, TOut any] struct {
	conduit  *Conduit[TOut]
	upstream *Link
	stage    Stage[TIn]
	activity string
	done     atomic.Bool
}

var _ Subscriber[any] = (*operation[any, any])(nil)
var _ Downstream[any] = (*operation[any, any])(nil)

func (o *operation[TIn, TOut]) OnSubscribe(subscription Subscription) {
	o.upstream.Bind(subscription)
}

func (o *operation[TIn, TOut]) OnNext(v TIn) (more demand.Demand) {
	if o.done.Load() {
		return demand.None()
	}

	defer func() {
		if r := recover(); r != nil {
			if violation, ok := r.(*demand.ViolationError); ok {
				panic(violation)
			}
			instrumentation.Logging().Error(o.activity, "stage panicked")
			o.Complete(Failure(&PanicError{Activity: o.activity, Value: r}))
			more = demand.None()
		}
	}()

	return o.stage.OnNext(v)
}

func (o *operation[TIn, TOut]) OnComplete(completion Completion) {
	if o.done.Load() {
		return
	}
	o.stage.OnComplete(completion)
}

func (o *operation[TIn, TOut]) Send(v TOut) bool {
	if o.done.Load() {
		return false
	}
	return o.conduit.Offer(v, nil)
}

func (o *operation[TIn, TOut]) Complete(completion Completion) {
	if o.done.Swap(true) {
		return
	}
	o.upstream.Cancel()
	o.conduit.Complete(completion)
}

func (o *operation[TIn, TOut]) Outstanding() demand.Demand {
	return o.conduit.Outstanding()
}

// Link stands in for an upstream subscription that may not have been granted yet. Demand requested in the meantime
// is forwarded on Bind, and a cancel in the meantime cancels the subscription as soon as it arrives. The zero
// value is ready to use.
type Link struct {
	mu           sync.Mutex
	subscription Subscription
	pending      demand.Demand
	cancelled    bool
}

var _ Subscription = (*Link)(nil)

func (u *Link) Bind(subscription Subscription) {
	u.mu.Lock()
	if u.cancelled {
		u.mu.Unlock()
		subscription.Cancel()
		return
	}
	u.subscription = subscription
	pending := u.pending
	u.pending = demand.None()
	u.mu.Unlock()

	subscription.Request(pending)
}

func (u *Link) Request(d demand.Demand) {
	if !d.Positive() {
		return
	}

	u.mu.Lock()
	if u.cancelled {
		u.mu.Unlock()
		return
	}
	subscription := u.subscription
	if subscription == nil {
		u.pending = u.pending.Add(d)
	}
	u.mu.Unlock()

	if subscription != nil {
		subscription.Request(d)
	}
}

func (u *Link) Cancel() {
	u.mu.Lock()
	if u.cancelled {
		u.mu.Unlock()
		return
	}
	u.cancelled = true
	subscription := u.subscription
	u.subscription = nil
	u.mu.Unlock()

	if subscription != nil {
		subscription.Cancel()
	}
}
