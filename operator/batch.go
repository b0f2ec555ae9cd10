package operator

import (
	"context"
	"sync"
	"time"

	"github.com/ducka/go-flow/demand"
	"github.com/ducka/go-flow/observe"
	"github.com/ducka/go-flow/scheduler"
)

// Batch batches up Items from the observable into slices of the specified size. A partial batch is emitted when
// upstream completes successfully. Every batch requested downstream requests batchSize items upstream.
func Batch[T any](batchSize int, opts ...observe.ObservableOption) observe.OperatorFunc[T, []T] {
	opts = observe.DefaultActivityName("Batch", opts)
	return batchOperation[T](batchSize, 0, nil, opts)
}

// BatchWithTimeout batches up Items from the observable into slices of the specified size. The flushTimeout ensures
// that Items will be batched up and emitted after the specified duration has elapsed, regardless of whether the
// batch is complete.
func BatchWithTimeout[T any](batchSize int, flushTimeout time.Duration, sch scheduler.Scheduler, opts ...observe.ObservableOption) observe.OperatorFunc[T, []T] {
	if sch == nil {
		sch = scheduler.Real()
	}
	opts = observe.DefaultActivityName("BatchWithTimeout", opts)
	return batchOperation[T](batchSize, flushTimeout, sch, opts)
}

func batchOperation[T any](batchSize int, flushTimeout time.Duration, sch scheduler.Scheduler, opts []observe.ObservableOption) observe.OperatorFunc[T, []T] {
	if batchSize < 1 {
		panic(`"Batch" expected a batch size of at least 1`)
	}
	return func(source *observe.Observable[T]) *observe.Observable[[]T] {
		return observe.Operation[T, []T](
			source,
			func(ctx observe.Context, upstream observe.Subscription, downstream observe.Downstream[[]T]) observe.Stage[T] {
				b := &batcher[T]{size: batchSize, timeout: flushTimeout, sch: sch, downstream: downstream}
				context.AfterFunc(ctx, b.stop)

				return observe.Stage[T]{
					OnRequest: func(d demand.Demand) demand.Demand {
						return d.Scale(int64(batchSize))
					},
					OnNext: func(item T) demand.Demand {
						b.add(item)
						return demand.None()
					},
					OnComplete: func(completion observe.Completion) {
						if !completion.IsFailure() {
							b.flush(-1)
						}
						downstream.Complete(completion)
					},
				}
			},
			opts...,
		)
	}
}

type batcher[T any] struct {
	mu         sync.Mutex
	size       int
	timeout    time.Duration
	sch        scheduler.Scheduler
	downstream observe.Downstream[[]T]
	batch      []T
	generation int
	task       scheduler.Cancellable
}

func (b *batcher[T]) add(item T) {
	b.mu.Lock()
	if b.batch == nil {
		b.batch = make([]T, 0, b.size)
	}
	b.batch = append(b.batch, item)

	if len(b.batch) < b.size {
		if len(b.batch) == 1 && b.sch != nil {
			generation := b.generation
			b.task = b.sch.ScheduleAfter(b.timeout, func() { b.flush(generation) })
		}
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()

	b.flush(-1)
}

// flush emits the current batch. A timed flush passes the generation it was scheduled for and is ignored if that
// batch has already gone.
func (b *batcher[T]) flush(generation int) {
	b.mu.Lock()
	if generation >= 0 && generation != b.generation {
		b.mu.Unlock()
		return
	}
	batch := b.batch
	b.batch = nil
	b.generation++
	if b.task != nil {
		b.task.Cancel()
		b.task = nil
	}
	b.mu.Unlock()

	if len(batch) > 0 {
		b.downstream.Send(batch)
	}
}

func (b *batcher[T]) stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.task != nil {
		b.task.Cancel()
		b.task = nil
	}
	b.generation++
}
