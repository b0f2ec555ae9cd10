package operator

import (
	"sync"

	"github.com/ducka/go-flow/demand"
	"github.com/ducka/go-flow/observe"
)

// Merge emits the items of every source as they arrive. It completes once every source has completed and fails as
// soon as any source fails. Each source is pulled one item at a time.
func Merge[T any](sources ...*observe.Observable[T]) *observe.Observable[T] {
	if len(sources) == 0 {
		return observe.Empty[T](observe.WithActivityName("Merge"))
	}

	return observe.ComposeFrom[T, T](
		sources[0],
		func(ctx observe.Context, downstream *observe.Conduit[T]) {
			m := &merger[T]{
				out:       newOrderedEmitter(downstream),
				links:     newLinks(len(sources)),
				remaining: len(sources),
			}
			downstream.OnRelease(func() { cancelAll(m.links) })

			for i, source := range sources {
				source.SubscribeWith(&input[T]{
					index:      i,
					link:       m.links[i],
					onNext:     m.next,
					onComplete: m.complete,
				})
			}
		},
		observe.WithActivityName("Merge"),
	)
}

// MergeWith merges the source with others.
func MergeWith[T any](others ...*observe.Observable[T]) observe.OperatorFunc[T, T] {
	return func(source *observe.Observable[T]) *observe.Observable[T] {
		return Merge(append([]*observe.Observable[T]{source}, others...)...)
	}
}

type merger[T any] struct {
	mu        sync.Mutex
	out       *orderedEmitter[T]
	links     []*observe.Link
	remaining int
	finished  bool
}

func (m *merger[T]) next(index int, v T) {
	m.mu.Lock()
	if m.finished {
		m.mu.Unlock()
		return
	}
	link := m.links[index]
	m.out.enqueue(v, func() { link.Request(demand.Max(1)) })
	m.mu.Unlock()

	m.out.flush()
}

func (m *merger[T]) complete(index int, completion observe.Completion) {
	m.mu.Lock()
	if m.finished {
		m.mu.Unlock()
		return
	}

	if completion.IsFailure() {
		m.finished = true
		m.out.enqueueCompletion(completion)
	} else {
		m.remaining--
		if m.remaining == 0 {
			m.finished = true
			m.out.enqueueCompletion(completion)
		}
	}
	failed := m.finished && completion.IsFailure()
	m.mu.Unlock()

	if failed {
		cancelAll(m.links)
	}
	m.out.flush()
}
