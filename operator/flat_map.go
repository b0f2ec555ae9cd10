package operator

import (
	"sync"

	"github.com/ducka/go-flow/demand"
	"github.com/ducka/go-flow/observe"
)

type FlatMapFunc[TIn, TOut any] func(item TIn) *observe.Observable[TOut]

// FlatMap subscribes to the publisher returned for every upstream item and emits the items of all of them as they
// arrive. At most maxPublishers inner publishers are active at once; zero or less means no limit. It completes
// once upstream and every inner publisher have completed, and fails as soon as any of them fails.
func FlatMap[TIn, TOut any](mapper FlatMapFunc[TIn, TOut], maxPublishers int, opts ...observe.ObservableOption) observe.OperatorFunc[TIn, TOut] {
	if mapper == nil {
		panic(`"FlatMap" expected mapper func`)
	}
	opts = observe.DefaultActivityName("FlatMap", opts)
	return func(source *observe.Observable[TIn]) *observe.Observable[TOut] {
		return observe.ComposeFrom[TIn, TOut](
			source,
			func(ctx observe.Context, downstream *observe.Conduit[TOut]) {
				f := &flattener[TIn, TOut]{
					ctx:    ctx,
					mapper: mapper,
					limit:  maxPublishers,
					out:    newOrderedEmitter(downstream),
					outer:  &observe.Link{},
					inners: make(map[int]*observe.Link),
				}
				downstream.OnRelease(f.cancel)
				source.SubscribeWith(f)
			},
			opts...,
		)
	}
}

// Flatten flattens a stream of slices or batches into a flat stream of Items
func Flatten[T any](opts ...observe.ObservableOption) observe.OperatorFunc[[]T, T] {
	return FlatMap(func(items []T) *observe.Observable[T] {
		return observe.Sequence(items)
	}, 1, observe.DefaultActivityName("Flatten", opts)...)
}

type flattener[TIn, TOut any] struct {
	mu        sync.Mutex
	ctx       observe.Context
	mapper    FlatMapFunc[TIn, TOut]
	limit     int
	out       *orderedEmitter[TOut]
	outer     *observe.Link
	inners    map[int]*observe.Link
	nextID    int
	outerDone bool
	finished  bool
}

var _ observe.Subscriber[any] = (*flattener[any, any])(nil)

func (f *flattener[TIn, TOut]) OnSubscribe(subscription observe.Subscription) {
	f.outer.Bind(subscription)
	if f.limit > 0 {
		f.outer.Request(demand.Max(int64(f.limit)))
	} else {
		f.outer.Request(demand.Unbounded())
	}
}

func (f *flattener[TIn, TOut]) OnNext(item TIn) (more demand.Demand) {
	defer func() {
		if r := recover(); r != nil {
			f.fail(&observe.PanicError{Activity: f.ctx.Activity, Value: r})
			more = demand.None()
		}
	}()

	inner := f.mapper(item)

	f.mu.Lock()
	if f.finished {
		f.mu.Unlock()
		return demand.None()
	}
	id := f.nextID
	f.nextID++
	link := &observe.Link{}
	f.inners[id] = link
	f.mu.Unlock()

	inner.SubscribeWith(&input[TOut]{
		index:      id,
		link:       link,
		onNext:     f.innerNext,
		onComplete: f.innerComplete,
	})
	return demand.None()
}

func (f *flattener[TIn, TOut]) OnComplete(completion observe.Completion) {
	f.mu.Lock()
	if f.finished {
		f.mu.Unlock()
		return
	}
	if completion.IsFailure() {
		f.mu.Unlock()
		f.fail(completion.Err)
		return
	}
	f.outerDone = true
	if len(f.inners) == 0 {
		f.finished = true
		f.out.enqueueCompletion(observe.Finished())
	}
	f.mu.Unlock()

	f.out.flush()
}

func (f *flattener[TIn, TOut]) innerNext(id int, v TOut) {
	f.mu.Lock()
	link, ok := f.inners[id]
	if f.finished || !ok {
		f.mu.Unlock()
		return
	}
	f.out.enqueue(v, func() { link.Request(demand.Max(1)) })
	f.mu.Unlock()

	f.out.flush()
}

func (f *flattener[TIn, TOut]) innerComplete(id int, completion observe.Completion) {
	if completion.IsFailure() {
		f.fail(completion.Err)
		return
	}

	f.mu.Lock()
	if f.finished {
		f.mu.Unlock()
		return
	}
	delete(f.inners, id)
	if f.outerDone && len(f.inners) == 0 {
		f.finished = true
		f.out.enqueueCompletion(observe.Finished())
	}
	finished := f.finished
	f.mu.Unlock()

	f.out.flush()
	if !finished && f.limit > 0 {
		f.outer.Request(demand.Max(1))
	}
}

func (f *flattener[TIn, TOut]) fail(err error) {
	f.mu.Lock()
	if f.finished {
		f.mu.Unlock()
		return
	}
	f.finished = true
	f.out.enqueueCompletion(observe.Failure(err))
	f.mu.Unlock()

	f.out.flush()
	f.cancel()
}

func (f *flattener[TIn, TOut]) cancel() {
	f.outer.Cancel()

	f.mu.Lock()
	inners := make([]*observe.Link, 0, len(f.inners))
	for _, link := range f.inners {
		inners = append(inners, link)
	}
	f.mu.Unlock()

	cancelAll(inners)
}
