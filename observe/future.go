package observe

import (
	"context"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ducka/go-flow/demand"
	"github.com/ducka/go-flow/instrumentation"
)

// PerformFunc produces a single eventual value, such as the response of a network request.
type PerformFunc[T any] func(ctx context.Context) (T, error)

// Future observes the single value produced by perform, then completes. perform runs on its own goroutine once
// the subscriber first requests a value, and is retried according to WithRetry. Each subscription performs
// independently.
func Future[T any](perform PerformFunc[T], opts ...ObservableOption) *Observable[T] {
	if perform == nil {
		panic(`"Future" expected a perform func`)
	}

	return newObservable[T](
		func(opts observableOptions, subscriber Subscriber[T]) {
			conduit := NewConduit[T](subscriber, opts.strategyOr(Buffer), opts.activity)
			ctx := activate(opts, conduit)
			once := &sync.Once{}

			conduit.OnRequest(func(demand.Demand) {
				once.Do(func() {
					go resolve(ctx, conduit, perform, opts)
				})
			})
			conduit.Start()
		},
		newOptions(),
		DefaultActivityName("Future", opts),
	)
}

func resolve[T any](ctx Context, conduit *Conduit[T], perform PerformFunc[T], opts observableOptions) {
	attempt := 0

	v, err := retry.DoWithData(
		func() (result T, err error) {
			defer func() {
				if r := recover(); r != nil {
					err = retry.Unrecoverable(&PanicError{Activity: ctx.Activity, Value: r})
				}
			}()
			attempt++
			start := time.Now()
			defer func() {
				instrumentation.Metrics().Timing(ctx.Activity, "operation_duration", time.Since(start))
			}()
			return perform(ctx)
		},
		retry.Context(ctx),
		retry.Attempts(opts.retryAttempts),
		retry.Delay(opts.retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			instrumentation.Logging().Warn(ctx.Activity, "retrying after failure: "+err.Error())
		}),
	)

	instrumentation.Metrics().Incr(ctx.Activity, "perform_attempts", float64(attempt))

	if err != nil {
		conduit.Complete(Failure(err))
		return
	}

	conduit.Offer(v, nil)
	conduit.Complete(Finished())
}
