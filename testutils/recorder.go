package testutils

import (
	"sync"
	"time"

	"github.com/ducka/go-flow/demand"
	"github.com/ducka/go-flow/observe"
	"github.com/ducka/go-flow/utils"
)

// Recorder is a subscriber that requests demand only when told to and records everything it receives. It also
// counts protocol breaches: values beyond granted demand, hooks before OnSubscribe and hooks after the
// subscription ended.
type Recorder[T any] struct {
	mu           sync.Mutex
	subscription observe.Subscription
	granted      demand.Demand
	values       []T
	completion   *observe.Completion
	cancelled    bool
	hooks        int
	violations   int
	done         chan struct{}

	perValue demand.Demand
	onNext   func(r *Recorder[T], v T)
}

var _ observe.Subscriber[any] = (*Recorder[any])(nil)

type RecorderOption[T any] func(r *Recorder[T])

// RequestPerValue makes the recorder return d from every OnNext.
func RequestPerValue[T any](d demand.Demand) RecorderOption[T] {
	return func(r *Recorder[T]) {
		r.perValue = d
	}
}

// OnEachValue runs fn after each value is recorded, on the delivering goroutine.
func OnEachValue[T any](fn func(r *Recorder[T], v T)) RecorderOption[T] {
	return func(r *Recorder[T]) {
		r.onNext = fn
	}
}

func NewRecorder[T any](opts ...RecorderOption[T]) *Recorder[T] {
	r := &Recorder[T]{
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Recorder[T]) OnSubscribe(subscription observe.Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.hooks++
	if r.subscription != nil || r.completion != nil {
		r.violations++
		return
	}
	r.subscription = subscription
}

func (r *Recorder[T]) OnNext(v T) demand.Demand {
	r.mu.Lock()
	r.hooks++
	if r.subscription == nil || r.completion != nil || r.cancelled {
		r.violations++
	}

	granted, err := r.granted.Decrement()
	if err != nil {
		r.violations++
	}
	r.granted = granted.Add(r.perValue)
	r.values = append(r.values, v)
	onNext := r.onNext
	r.mu.Unlock()

	if onNext != nil {
		onNext(r, v)
	}
	return r.perValue
}

func (r *Recorder[T]) OnComplete(completion observe.Completion) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.hooks++
	if r.subscription == nil || r.completion != nil || r.cancelled {
		r.violations++
		return
	}
	r.completion = &completion
	close(r.done)
}

// Request grants n more values.
func (r *Recorder[T]) Request(n int64) {
	r.RequestDemand(demand.Max(n))
}

func (r *Recorder[T]) RequestDemand(d demand.Demand) {
	r.mu.Lock()
	subscription := r.subscription
	r.granted = r.granted.Add(d)
	r.mu.Unlock()

	if subscription != nil {
		subscription.Request(d)
	}
}

func (r *Recorder[T]) Cancel() {
	r.mu.Lock()
	subscription := r.subscription
	if r.completion == nil {
		r.cancelled = true
	}
	r.mu.Unlock()

	if subscription != nil {
		subscription.Cancel()
	}
}

func (r *Recorder[T]) Subscribed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.subscription != nil
}

func (r *Recorder[T]) Values() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	values := make([]T, len(r.values))
	copy(values, r.values)
	return values
}

// Completion returns the terminal signal, if one has been received.
func (r *Recorder[T]) Completion() (observe.Completion, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.completion == nil {
		return observe.Completion{}, false
	}
	return *r.completion, true
}

// Notifications returns the recorded values followed by the terminal notification, if any.
func (r *Recorder[T]) Notifications() []observe.Notification[T] {
	r.mu.Lock()
	defer r.mu.Unlock()

	notifications := make([]observe.Notification[T], 0, len(r.values)+1)
	for _, v := range r.values {
		notifications = append(notifications, observe.Next(v))
	}
	if r.completion != nil {
		notifications = append(notifications, observe.FromCompletion[T](*r.completion))
	}
	return notifications
}

// Hooks is the number of hook invocations received, OnSubscribe included.
func (r *Recorder[T]) Hooks() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hooks
}

// Violations is the number of protocol breaches observed.
func (r *Recorder[T]) Violations() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.violations
}

// WaitForCompletion waits for the terminal signal and reports whether it arrived in time.
func (r *Recorder[T]) WaitForCompletion(timeout time.Duration) bool {
	return utils.WaitFor(r.done, timeout)
}
