package subject

import (
	"github.com/ducka/go-flow/observe"
)

// CurrentValue holds the latest pushed value. A new subscriber receives it first, ahead of any later push. While a
// subscriber has no outstanding demand only the newest undelivered value is kept for it.
type CurrentValue[T any] struct {
	hub   *hub[T]
	value T
}

var _ Subject[any] = (*CurrentValue[any])(nil)

func NewCurrentValue[T any](initial T) *CurrentValue[T] {
	return &CurrentValue[T]{
		hub:   newHub[T]("CurrentValue", observe.Latest),
		value: initial,
	}
}

func (s *CurrentValue[T]) SubscribeWith(subscriber observe.Subscriber[T]) {
	if subscriber == nil {
		panic(`"SubscribeWith" expected a subscriber`)
	}
	s.hub.attach(subscriber, func(conduit *observe.Conduit[T]) {
		conduit.Offer(s.value, nil)
	})
}

// Value is the latest value, readable with or without subscribers.
func (s *CurrentValue[T]) Value() T {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	return s.value
}

// Send stores v as the current value and relays it. It is a no-op once the subject has terminated.
func (s *CurrentValue[T]) Send(v T) {
	s.hub.push(v, func() { s.value = v })
}

func (s *CurrentValue[T]) SendCompletion(completion observe.Completion) {
	s.hub.complete(completion)
}

func (s *CurrentValue[T]) Complete() {
	s.hub.complete(observe.Finished())
}

func (s *CurrentValue[T]) Fail(err error) {
	s.hub.complete(observe.Failure(err))
}

func (s *CurrentValue[T]) Subscribers() int {
	return s.hub.count()
}

func (s *CurrentValue[T]) Terminated() bool {
	return s.hub.terminated()
}

func (s *CurrentValue[T]) AsObservable(opts ...observe.ObservableOption) *observe.Observable[T] {
	return observe.FromPublisher[T](s, observe.DefaultActivityName("CurrentValue", opts)...)
}
