package operator

import (
	"sync"

	"github.com/ducka/go-flow/demand"
	"github.com/ducka/go-flow/observe"
)

// CombineLatest2 emits the latest item of each source whenever either source emits, once both have emitted at
// least once. It completes when both sources have completed, or as soon as a source completes without ever
// emitting.
func CombineLatest2[A, B any](a *observe.Observable[A], b *observe.Observable[B], opts ...observe.ObservableOption) *observe.Observable[Tuple2[A, B]] {
	return observe.ComposeFrom[A, Tuple2[A, B]](
		a,
		func(ctx observe.Context, downstream *observe.Conduit[Tuple2[A, B]]) {
			c := newCombiner(2, downstream, func(values []any) Tuple2[A, B] {
				return Tuple2[A, B]{First: as[A](values[0]), Second: as[B](values[1])}
			})
			a.SubscribeWith(&input[A]{index: 0, link: c.links[0], onNext: anyNext[A](c.next), onComplete: c.complete})
			b.SubscribeWith(&input[B]{index: 1, link: c.links[1], onNext: anyNext[B](c.next), onComplete: c.complete})
		},
		observe.DefaultActivityName("CombineLatest", opts)...,
	)
}

// CombineLatest3 is CombineLatest2 over three sources.
func CombineLatest3[A, B, C any](a *observe.Observable[A], b *observe.Observable[B], c *observe.Observable[C], opts ...observe.ObservableOption) *observe.Observable[Tuple3[A, B, C]] {
	return observe.ComposeFrom[A, Tuple3[A, B, C]](
		a,
		func(ctx observe.Context, downstream *observe.Conduit[Tuple3[A, B, C]]) {
			cb := newCombiner(3, downstream, func(values []any) Tuple3[A, B, C] {
				return Tuple3[A, B, C]{First: as[A](values[0]), Second: as[B](values[1]), Third: as[C](values[2])}
			})
			a.SubscribeWith(&input[A]{index: 0, link: cb.links[0], onNext: anyNext[A](cb.next), onComplete: cb.complete})
			b.SubscribeWith(&input[B]{index: 1, link: cb.links[1], onNext: anyNext[B](cb.next), onComplete: cb.complete})
			c.SubscribeWith(&input[C]{index: 2, link: cb.links[2], onNext: anyNext[C](cb.next), onComplete: cb.complete})
		},
		observe.DefaultActivityName("CombineLatest", opts)...,
	)
}

// combiner keeps the latest item of every input. An item that completes a combination is pulled again only once
// that combination has been delivered; items arriving before every input has published are pulled straight away.
type combiner[R any] struct {
	mu       sync.Mutex
	out      *orderedEmitter[R]
	links    []*observe.Link
	combine  func(values []any) R
	latest   []any
	has      []bool
	done     []bool
	finished bool
}

func newCombiner[R any](n int, downstream *observe.Conduit[R], combine func(values []any) R) *combiner[R] {
	c := &combiner[R]{
		out:     newOrderedEmitter(downstream),
		links:   newLinks(n),
		combine: combine,
		latest:  make([]any, n),
		has:     make([]bool, n),
		done:    make([]bool, n),
	}
	downstream.OnRelease(func() { cancelAll(c.links) })
	return c
}

func (c *combiner[R]) next(index int, v any) {
	link := c.links[index]
	pull := func() { link.Request(demand.Max(1)) }

	c.mu.Lock()
	if c.finished {
		c.mu.Unlock()
		return
	}

	c.latest[index] = v
	c.has[index] = true

	emit := all(c.has)
	if emit {
		c.out.enqueue(c.combine(c.latest), pull)
	}
	c.mu.Unlock()

	if !emit {
		pull()
	}
	c.out.flush()
}

func (c *combiner[R]) complete(index int, completion observe.Completion) {
	c.mu.Lock()
	if c.finished {
		c.mu.Unlock()
		return
	}

	switch {
	case completion.IsFailure():
		c.finished = true
		c.out.enqueueCompletion(completion)
	case !c.has[index]:
		c.finished = true
		c.out.enqueueCompletion(observe.Finished())
	default:
		c.done[index] = true
		if all(c.done) {
			c.finished = true
			c.out.enqueueCompletion(observe.Finished())
		}
	}
	finished := c.finished
	c.mu.Unlock()

	c.out.flush()
	if finished {
		cancelAll(c.links)
	}
}
