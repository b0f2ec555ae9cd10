package observe_test

import (
	"sync/atomic"
	"testing"

	"github.com/ducka/go-flow/demand"
	"github.com/ducka/go-flow/observe"
	"github.com/ducka/go-flow/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribe(t *testing.T) {
	t.Run("When subscribing with callbacks", func(t *testing.T) {
		var (
			values     []int
			completion observe.Completion
		)
		observe.Sequence([]int{1, 2}).Subscribe(
			func(v int) { values = append(values, v) },
			observe.WithOnComplete(func(c observe.Completion) { completion = c }),
			observe.WithWaitTillComplete(),
		)

		t.Run("Then every value and the completion are received", func(t *testing.T) {
			assert.Equal(t, []int{1, 2}, values)
			assert.Equal(t, observe.Finished(), completion)
		})
	})

	t.Run("When subscribing with a limited initial demand", func(t *testing.T) {
		var values []int
		c := observe.Range(0, 10).Subscribe(
			func(v int) { values = append(values, v) },
			observe.WithInitialDemand(demand.Max(2)),
		)

		t.Run("Then only that many values are received", func(t *testing.T) {
			assert.Equal(t, []int{0, 1}, values)
		})

		t.Run("Then more can be requested through the handle", func(t *testing.T) {
			c.Request(demand.Max(3))
			assert.Equal(t, []int{0, 1, 2, 3, 4}, values)
		})
	})

	t.Run("When every value requests one more", func(t *testing.T) {
		var values []int
		observe.Range(0, 5).Subscribe(
			func(v int) { values = append(values, v) },
			observe.WithInitialDemand(demand.Max(1)),
			observe.WithDemandPerValue(demand.Max(1)),
		)

		t.Run("Then the source is drained one value at a time", func(t *testing.T) {
			assert.Equal(t, []int{0, 1, 2, 3, 4}, values)
		})
	})

	t.Run("When the source fails", func(t *testing.T) {
		var err error
		observe.Fail[int](assert.AnError).Subscribe(nil, observe.WithOnError(func(e error) { err = e }))

		t.Run("Then the error callback receives the failure", func(t *testing.T) {
			assert.ErrorIs(t, err, assert.AnError)
		})
	})

	t.Run("When subscribing with a nil subscriber", func(t *testing.T) {
		t.Run("Then it panics", func(t *testing.T) {
			assert.Panics(t, func() { observe.Empty[int]().SubscribeWith(nil) })
		})
	})
}

func TestFromPublisher(t *testing.T) {
	t.Run("When wrapping a custom publisher", func(t *testing.T) {
		subscriptions := &atomic.Int32{}
		pub := publisherFunc[int](func(s observe.Subscriber[int]) {
			subscriptions.Add(1)
			observe.Sequence([]int{1, 2}).SubscribeWith(s)
		})

		ob := observe.FromPublisher[int](pub, observe.WithActivityName("custom"))
		actual, err := ob.ToValues()

		t.Run("Then it behaves like any observable", func(t *testing.T) {
			require.NoError(t, err)
			assert.Equal(t, []int{1, 2}, actual)
			assert.EqualValues(t, 1, subscriptions.Load())
			assert.Equal(t, "custom", ob.Activity())
		})
	})

	t.Run("When wrapping an observable without options", func(t *testing.T) {
		ob := observe.Empty[int]()

		t.Run("Then the observable itself is returned", func(t *testing.T) {
			assert.Same(t, ob, observe.FromPublisher[int](ob))
		})
	})
}

func TestPipe(t *testing.T) {
	t.Run("When piping same-typed operators", func(t *testing.T) {
		double := func(source *observe.Observable[int]) *observe.Observable[int] {
			return observe.Operation[int, int](source, func(ctx observe.Context, upstream observe.Subscription, downstream observe.Downstream[int]) observe.Stage[int] {
				return observe.Stage[int]{
					OnNext: func(v int) demand.Demand {
						downstream.Send(v * 2)
						return demand.None()
					},
				}
			})
		}

		actual, err := observe.Sequence([]int{1, 2}).Pipe(double, double).ToValues()

		t.Run("Then they are applied in order", func(t *testing.T) {
			require.NoError(t, err)
			assert.Equal(t, []int{4, 8}, actual)
		})
	})
}

func TestOperation(t *testing.T) {
	t.Run("When a stage completes early", func(t *testing.T) {
		source := observe.Generate(func() func() int {
			next := -1
			return func() int {
				next++
				return next
			}
		}())

		rec := testutils.NewRecorder[int]()
		observe.Operation[int, int](source, func(ctx observe.Context, upstream observe.Subscription, downstream observe.Downstream[int]) observe.Stage[int] {
			return observe.Stage[int]{
				OnRequest: func(d demand.Demand) demand.Demand { return demand.Max(1) },
				OnNext: func(v int) demand.Demand {
					if v == 2 {
						downstream.Complete(observe.Finished())
						return demand.None()
					}
					return demand.Max(1)
				},
			}
		}).SubscribeWith(rec)
		rec.Request(1)

		t.Run("Then the downstream completes and later values are ignored", func(t *testing.T) {
			assert.Empty(t, rec.Values())
			_, completed := rec.Completion()
			assert.True(t, completed)
			assert.Zero(t, rec.Violations())
		})
	})

	t.Run("When a stage panics", func(t *testing.T) {
		_, err := observe.Operation[int, int](observe.Sequence([]int{1}), func(ctx observe.Context, upstream observe.Subscription, downstream observe.Downstream[int]) observe.Stage[int] {
			return observe.Stage[int]{
				OnNext: func(v int) demand.Demand { panic("boom") },
			}
		}).ToValues()

		t.Run("Then the subscription fails with a panic error", func(t *testing.T) {
			var panicErr *observe.PanicError
			assert.ErrorAs(t, err, &panicErr)
		})
	})
}

type publisherFunc[T any] func(s observe.Subscriber[T])

func (f publisherFunc[T]) SubscribeWith(s observe.Subscriber[T]) {
	f(s)
}
