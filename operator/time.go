package operator

import (
	"context"
	"sync"
	"time"

	"github.com/ducka/go-flow/demand"
	"github.com/ducka/go-flow/observe"
	"github.com/ducka/go-flow/scheduler"
)

// Delay shifts every item and the successful completion later by d. A failure is delivered at once and discards
// whatever is still waiting.
func Delay[T any](d time.Duration, sch scheduler.Scheduler, opts ...observe.ObservableOption) observe.OperatorFunc[T, T] {
	if sch == nil {
		sch = scheduler.Real()
	}
	opts = observe.DefaultActivityName("Delay", opts)
	return func(source *observe.Observable[T]) *observe.Observable[T] {
		return observe.Operation[T, T](
			source,
			func(ctx observe.Context, upstream observe.Subscription, downstream observe.Downstream[T]) observe.Stage[T] {
				q := &delayQueue[T]{sch: sch, delay: d, downstream: downstream, tasks: make(map[int]scheduler.Cancellable)}
				context.AfterFunc(ctx, q.stop)

				return observe.Stage[T]{
					OnNext: func(item T) demand.Demand {
						q.push(delayed[T]{v: item})
						return demand.None()
					},
					OnComplete: func(completion observe.Completion) {
						if completion.IsFailure() {
							downstream.Complete(completion)
							return
						}
						q.push(delayed[T]{completion: &completion})
					},
				}
			},
			opts...,
		)
	}
}

type delayed[T any] struct {
	v          T
	completion *observe.Completion
}

// delayQueue releases items in arrival order; every scheduled callback releases the oldest waiting item.
type delayQueue[T any] struct {
	mu         sync.Mutex
	sch        scheduler.Scheduler
	delay      time.Duration
	downstream observe.Downstream[T]
	items      []delayed[T]
	tasks      map[int]scheduler.Cancellable
	nextID     int
	stopped    bool
}

func (q *delayQueue[T]) push(item delayed[T]) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return
	}
	id := q.nextID
	q.nextID++
	q.items = append(q.items, item)
	q.tasks[id] = q.sch.ScheduleAfter(q.delay, func() { q.release(id) })
}

func (q *delayQueue[T]) release(id int) {
	q.mu.Lock()
	if q.stopped || len(q.items) == 0 {
		q.mu.Unlock()
		return
	}
	delete(q.tasks, id)
	item := q.items[0]
	q.items = q.items[1:]
	q.mu.Unlock()

	if item.completion != nil {
		q.downstream.Complete(*item.completion)
		return
	}
	q.downstream.Send(item.v)
}

func (q *delayQueue[T]) stop() {
	q.mu.Lock()
	q.stopped = true
	tasks := q.tasks
	q.tasks = nil
	q.items = nil
	q.mu.Unlock()

	for _, task := range tasks {
		task.Cancel()
	}
}

// Debounce emits an item only once d has passed without upstream emitting another. The pending item is emitted
// straight away when upstream completes successfully. Upstream is consumed freely; if downstream has no demand,
// only the latest debounced item is kept.
func Debounce[T any](d time.Duration, sch scheduler.Scheduler, opts ...observe.ObservableOption) observe.OperatorFunc[T, T] {
	if sch == nil {
		sch = scheduler.Real()
	}
	opts = append([]observe.ObservableOption{observe.WithBackpressureStrategy(observe.Latest)}, opts...)
	opts = observe.DefaultActivityName("Debounce", opts)
	return func(source *observe.Observable[T]) *observe.Observable[T] {
		return observe.Operation[T, T](
			source,
			func(ctx observe.Context, upstream observe.Subscription, downstream observe.Downstream[T]) observe.Stage[T] {
				db := &debouncer[T]{sch: sch, delay: d, downstream: downstream}
				context.AfterFunc(ctx, db.stop)

				return observe.Stage[T]{
					OnRequest: greedy(),
					OnNext: func(item T) demand.Demand {
						db.push(item)
						return demand.None()
					},
					OnComplete: func(completion observe.Completion) {
						if !completion.IsFailure() {
							db.flush()
						}
						downstream.Complete(completion)
					},
				}
			},
			opts...,
		)
	}
}

type debouncer[T any] struct {
	mu         sync.Mutex
	sch        scheduler.Scheduler
	delay      time.Duration
	downstream observe.Downstream[T]
	latest     T
	pending    bool
	generation int
	task       scheduler.Cancellable
}

func (db *debouncer[T]) push(item T) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.task != nil {
		db.task.Cancel()
	}
	db.latest = item
	db.pending = true
	db.generation++
	generation := db.generation
	db.task = db.sch.ScheduleAfter(db.delay, func() { db.fire(generation) })
}

func (db *debouncer[T]) fire(generation int) {
	db.mu.Lock()
	if generation != db.generation || !db.pending {
		db.mu.Unlock()
		return
	}
	item := db.latest
	db.pending = false
	db.task = nil
	db.mu.Unlock()

	db.downstream.Send(item)
}

func (db *debouncer[T]) flush() {
	db.mu.Lock()
	if db.task != nil {
		db.task.Cancel()
		db.task = nil
	}
	item, pending := db.latest, db.pending
	db.pending = false
	db.generation++
	db.mu.Unlock()

	if pending {
		db.downstream.Send(item)
	}
}

func (db *debouncer[T]) stop() {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.task != nil {
		db.task.Cancel()
		db.task = nil
	}
	db.pending = false
	db.generation++
}

// Throttle throttles the rate of items emitted by the observable: after an item is emitted, items arriving within
// interval are dropped and replaced by a request for one more from upstream.
func Throttle[T any](interval time.Duration, sch scheduler.Scheduler, opts ...observe.ObservableOption) observe.OperatorFunc[T, T] {
	if sch == nil {
		sch = scheduler.Real()
	}
	opts = observe.DefaultActivityName("Throttle", opts)
	return func(source *observe.Observable[T]) *observe.Observable[T] {
		return observe.Operation[T, T](
			source,
			func(ctx observe.Context, upstream observe.Subscription, downstream observe.Downstream[T]) observe.Stage[T] {
				var last time.Time
				emitted := false

				return observe.Stage[T]{
					OnNext: func(item T) demand.Demand {
						now := sch.Now()
						if emitted && now.Sub(last) < interval {
							return demand.Max(1)
						}
						emitted = true
						last = now
						downstream.Send(item)
						return demand.None()
					},
				}
			},
			opts...,
		)
	}
}
