package subject

import (
	"sync"

	"github.com/ducka/go-flow/observe"
)

// Connectable relays a single subscription to its source through a subject, so every subscriber shares it. The
// source is not subscribed to until Connect is called.
type Connectable[T any] struct {
	mu         sync.Mutex
	source     *observe.Observable[T]
	subject    Subject[T]
	connection *observe.Cancellable
}

var _ observe.Publisher[any] = (*Connectable[any])(nil)

// Multicast shares source through subj.
func Multicast[T any](source *observe.Observable[T], subj Subject[T]) *Connectable[T] {
	if source == nil || subj == nil {
		panic(`"Multicast" expected a source and a subject`)
	}
	return &Connectable[T]{source: source, subject: subj}
}

func (c *Connectable[T]) SubscribeWith(subscriber observe.Subscriber[T]) {
	c.subject.SubscribeWith(subscriber)
}

// Connect subscribes the subject to the source, requesting everything. Calling it again returns the existing
// connection; cancelling that connection stops the source without completing the subject.
func (c *Connectable[T]) Connect() *observe.Cancellable {
	c.mu.Lock()
	if c.connection != nil {
		connection := c.connection
		c.mu.Unlock()
		return connection
	}
	bag := &observe.Bag{}
	c.connection = observe.NewCancellable(bag.Cancel)
	connection := c.connection
	c.mu.Unlock()

	c.source.Subscribe(
		c.subject.Send,
		observe.WithOnComplete(c.subject.SendCompletion),
	).Store(bag)

	return connection
}

func (c *Connectable[T]) AsObservable(opts ...observe.ObservableOption) *observe.Observable[T] {
	return observe.FromPublisher[T](c, observe.DefaultActivityName("Multicast", opts)...)
}

// Share multicasts source through a passthrough subject and connects on the first subscriber.
func Share[T any](source *observe.Observable[T], opts ...observe.ObservableOption) *observe.Observable[T] {
	connectable := Multicast[T](source, NewPassthrough[T]())
	return observe.FromPublisher[T](&autoConnect[T]{connectable: connectable}, observe.DefaultActivityName("Share", opts)...)
}

type autoConnect[T any] struct {
	connectable *Connectable[T]
}

func (a *autoConnect[T]) SubscribeWith(subscriber observe.Subscriber[T]) {
	a.connectable.SubscribeWith(subscriber)
	a.connectable.Connect()
}
