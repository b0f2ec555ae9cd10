package subject

import (
	"github.com/ducka/go-flow/observe"
)

// Passthrough relays pushed values to the subscribers attached at the time of the push. It stores nothing: a
// subscriber sees only what is pushed after it attaches, and a value pushed while a subscriber has no outstanding
// demand is dropped for that subscriber.
type Passthrough[T any] struct {
	hub *hub[T]
}

var _ Subject[any] = (*Passthrough[any])(nil)

func NewPassthrough[T any]() *Passthrough[T] {
	return &Passthrough[T]{
		hub: newHub[T]("Passthrough", observe.Drop),
	}
}

func (s *Passthrough[T]) SubscribeWith(subscriber observe.Subscriber[T]) {
	if subscriber == nil {
		panic(`"SubscribeWith" expected a subscriber`)
	}
	s.hub.attach(subscriber, nil)
}

// Send is a no-op once the subject has terminated.
func (s *Passthrough[T]) Send(v T) {
	s.hub.push(v, nil)
}

func (s *Passthrough[T]) SendCompletion(completion observe.Completion) {
	s.hub.complete(completion)
}

func (s *Passthrough[T]) Complete() {
	s.hub.complete(observe.Finished())
}

func (s *Passthrough[T]) Fail(err error) {
	s.hub.complete(observe.Failure(err))
}

// Subscribers is the number of attached subscribers.
func (s *Passthrough[T]) Subscribers() int {
	return s.hub.count()
}

func (s *Passthrough[T]) Terminated() bool {
	return s.hub.terminated()
}

func (s *Passthrough[T]) AsObservable(opts ...observe.ObservableOption) *observe.Observable[T] {
	return observe.FromPublisher[T](s, observe.DefaultActivityName("Passthrough", opts)...)
}
