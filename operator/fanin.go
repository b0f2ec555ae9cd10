package operator

import (
	"sync"

	"github.com/ducka/go-flow/demand"
	"github.com/ducka/go-flow/observe"
)

type pendingEmit[T any] struct {
	v          T
	ack        func()
	completion *observe.Completion
}

// orderedEmitter hands values and the terminal signal to a conduit in the order they were enqueued. Callers
// enqueue while holding their own lock and flush after releasing it, so no lock is held while the conduit
// delivers.
type orderedEmitter[T any] struct {
	mu       sync.Mutex
	conduit  *observe.Conduit[T]
	pending  []pendingEmit[T]
	emitting bool
}

func newOrderedEmitter[T any](conduit *observe.Conduit[T]) *orderedEmitter[T] {
	return &orderedEmitter[T]{conduit: conduit}
}

func (e *orderedEmitter[T]) enqueue(v T, ack func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = append(e.pending, pendingEmit[T]{v: v, ack: ack})
}

func (e *orderedEmitter[T]) enqueueCompletion(completion observe.Completion) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = append(e.pending, pendingEmit[T]{completion: &completion})
}

func (e *orderedEmitter[T]) flush() {
	e.mu.Lock()
	if e.emitting {
		e.mu.Unlock()
		return
	}
	e.emitting = true

	for len(e.pending) > 0 {
		next := e.pending[0]
		e.pending[0] = pendingEmit[T]{}
		e.pending = e.pending[1:]
		e.mu.Unlock()

		if next.completion != nil {
			e.conduit.Complete(*next.completion)
		} else {
			e.conduit.Offer(next.v, next.ack)
		}

		e.mu.Lock()
	}

	e.emitting = false
	e.mu.Unlock()
}

// input subscribes to one of several upstream publishers, prefetching a single value at a time. Further values
// are pulled by requesting through link.
type input[T any] struct {
	index      int
	link       *observe.Link
	onNext     func(index int, v T)
	onComplete func(index int, completion observe.Completion)
}

var _ observe.Subscriber[any] = (*input[any])(nil)

func (i *input[T]) OnSubscribe(subscription observe.Subscription) {
	i.link.Bind(subscription)
	i.link.Request(demand.Max(1))
}

func (i *input[T]) OnNext(v T) demand.Demand {
	i.onNext(i.index, v)
	return demand.None()
}

func (i *input[T]) OnComplete(completion observe.Completion) {
	i.onComplete(i.index, completion)
}

func newLinks(n int) []*observe.Link {
	links := make([]*observe.Link, n)
	for i := range links {
		links[i] = &observe.Link{}
	}
	return links
}

func cancelAll(links []*observe.Link) {
	for _, link := range links {
		link.Cancel()
	}
}
