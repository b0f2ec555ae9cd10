// Package observe implements the demand-driven publisher / subscriber / subscription protocol.
//
// A Publisher is a reusable template: every call to SubscribeWith activates a new Subscription. The
// Subscriber receives exactly one OnSubscribe call, then values only up to the demand it has requested,
// then at most one OnComplete. Hooks for a single subscription never run concurrently.
package observe

import (
	"github.com/ducka/go-flow/demand"
)

type (
	OnNextFunc[T any]      func(v T)
	OnErrorFunc            func(err error)
	OnCompleteFunc         func(completion Completion)
	OperatorFunc[I, O any] func(source *Observable[I]) *Observable[O]

	ErrorStrategy        string
	BackpressureStrategy string
	CompleteReason       string
)

const (
	// ContinueOnError instructs fallible stages to skip values whose transform fails
	ContinueOnError ErrorStrategy = "continue"
	// StopOnError instructs fallible stages to terminate the subscription with the transform failure
	StopOnError ErrorStrategy = "stop"

	// Block makes a producer wait until the subscriber has outstanding demand
	Block BackpressureStrategy = "block"
	// Drop discards values emitted while the subscriber has no outstanding demand
	Drop BackpressureStrategy = "drop"
	// Latest keeps only the newest value emitted while the subscriber has no outstanding demand
	Latest BackpressureStrategy = "latest"
	// Buffer queues every value until the subscriber requests it
	Buffer BackpressureStrategy = "buffer"
	// Strict treats a value emitted without outstanding demand as a demand violation and panics
	Strict BackpressureStrategy = "strict"

	// Failed indicates the subscription terminated with an error
	Failed CompleteReason = "failure"
	// Completed indicates the subscription terminated successfully
	Completed CompleteReason = "completed"
)

// Publisher produces a sequence of values for each subscriber that attaches to it.
type Publisher[T any] interface {
	SubscribeWith(subscriber Subscriber[T])
}

// Subscriber consumes the events of one subscription.
type Subscriber[T any] interface {
	// OnSubscribe is called once, before any other hook.
	OnSubscribe(subscription Subscription)
	// OnNext receives a value and returns additional demand, which is added to the outstanding demand.
	OnNext(v T) demand.Demand
	// OnComplete is called at most once, as the final hook.
	OnComplete(completion Completion)
}

// Subscription links one publisher activation to one subscriber.
type Subscription interface {
	// Request adds to the outstanding demand. It is a no-op once the subscription has ended.
	Request(d demand.Demand)
	// Cancel ends the subscription. It is safe to call more than once.
	Cancel()
}

// Completion is the terminal signal of a subscription.
type Completion struct {
	Reason CompleteReason
	Err    error
}

func Finished() Completion {
	return Completion{Reason: Completed}
}

func Failure(err error) Completion {
	if err == nil {
		err = ErrUnknownFailure
	}
	return Completion{Reason: Failed, Err: err}
}

func (c Completion) IsFailure() bool {
	return c.Reason == Failed
}

func (c Completion) String() string {
	if c.IsFailure() {
		return string(c.Reason) + ": " + c.Err.Error()
	}
	return string(c.Reason)
}
