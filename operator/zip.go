package operator

import (
	"sync"

	"github.com/ducka/go-flow/demand"
	"github.com/ducka/go-flow/observe"
)

// Zip2 pairs the items of two sources strictly by position. It completes as soon as either source is exhausted;
// items left over on the other source are dropped.
func Zip2[A, B any](a *observe.Observable[A], b *observe.Observable[B], opts ...observe.ObservableOption) *observe.Observable[Tuple2[A, B]] {
	return observe.ComposeFrom[A, Tuple2[A, B]](
		a,
		func(ctx observe.Context, downstream *observe.Conduit[Tuple2[A, B]]) {
			z := newZipper(2, downstream, func(values []any) Tuple2[A, B] {
				return Tuple2[A, B]{First: as[A](values[0]), Second: as[B](values[1])}
			})
			a.SubscribeWith(&input[A]{index: 0, link: z.links[0], onNext: anyNext[A](z.next), onComplete: z.complete})
			b.SubscribeWith(&input[B]{index: 1, link: z.links[1], onNext: anyNext[B](z.next), onComplete: z.complete})
		},
		observe.DefaultActivityName("Zip", opts)...,
	)
}

// Zip3 is Zip2 over three sources.
func Zip3[A, B, C any](a *observe.Observable[A], b *observe.Observable[B], c *observe.Observable[C], opts ...observe.ObservableOption) *observe.Observable[Tuple3[A, B, C]] {
	return observe.ComposeFrom[A, Tuple3[A, B, C]](
		a,
		func(ctx observe.Context, downstream *observe.Conduit[Tuple3[A, B, C]]) {
			z := newZipper(3, downstream, func(values []any) Tuple3[A, B, C] {
				return Tuple3[A, B, C]{First: as[A](values[0]), Second: as[B](values[1]), Third: as[C](values[2])}
			})
			a.SubscribeWith(&input[A]{index: 0, link: z.links[0], onNext: anyNext[A](z.next), onComplete: z.complete})
			b.SubscribeWith(&input[B]{index: 1, link: z.links[1], onNext: anyNext[B](z.next), onComplete: z.complete})
			c.SubscribeWith(&input[C]{index: 2, link: z.links[2], onNext: anyNext[C](z.next), onComplete: z.complete})
		},
		observe.DefaultActivityName("Zip", opts)...,
	)
}

func anyNext[T any](next func(index int, v any)) func(index int, v T) {
	return func(index int, v T) {
		next(index, v)
	}
}

// zipper holds at most one pending item per input. A tuple is emitted once every input has one; delivering it
// pulls the next item from every input.
type zipper[R any] struct {
	mu       sync.Mutex
	out      *orderedEmitter[R]
	links    []*observe.Link
	combine  func(values []any) R
	slots    []any
	filled   []bool
	done     []bool
	finished bool
}

func newZipper[R any](n int, downstream *observe.Conduit[R], combine func(values []any) R) *zipper[R] {
	z := &zipper[R]{
		out:     newOrderedEmitter(downstream),
		links:   newLinks(n),
		combine: combine,
		slots:   make([]any, n),
		filled:  make([]bool, n),
		done:    make([]bool, n),
	}
	downstream.OnRelease(func() { cancelAll(z.links) })
	return z
}

func (z *zipper[R]) next(index int, v any) {
	z.mu.Lock()
	if z.finished {
		z.mu.Unlock()
		return
	}

	z.slots[index] = v
	z.filled[index] = true

	if all(z.filled) {
		tuple := z.combine(z.slots)
		for i := range z.slots {
			z.slots[i] = nil
			z.filled[i] = false
		}
		z.out.enqueue(tuple, z.refill)
	}
	finished := z.checkExhausted()
	z.mu.Unlock()

	z.out.flush()
	if finished {
		cancelAll(z.links)
	}
}

func (z *zipper[R]) complete(index int, completion observe.Completion) {
	z.mu.Lock()
	if z.finished {
		z.mu.Unlock()
		return
	}

	var finished bool
	if completion.IsFailure() {
		z.finished = true
		z.out.enqueueCompletion(completion)
		finished = true
	} else {
		z.done[index] = true
		finished = z.checkExhausted()
	}
	z.mu.Unlock()

	z.out.flush()
	if finished {
		cancelAll(z.links)
	}
}

// checkExhausted finishes the zip once an input has completed with nothing pending, since no further tuple can
// be formed. Must be called with the lock held.
func (z *zipper[R]) checkExhausted() bool {
	if z.finished {
		return false
	}
	for i := range z.done {
		if z.done[i] && !z.filled[i] {
			z.finished = true
			z.out.enqueueCompletion(observe.Finished())
			return true
		}
	}
	return false
}

func (z *zipper[R]) refill() {
	for _, link := range z.links {
		link.Request(demand.Max(1))
	}
}

// as converts v back to T. A nil interface value becomes T's zero value.
func as[T any](v any) T {
	t, _ := v.(T)
	return t
}

func all(flags []bool) bool {
	for _, f := range flags {
		if !f {
			return false
		}
	}
	return true
}
