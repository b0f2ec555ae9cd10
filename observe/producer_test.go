package observe_test

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ducka/go-flow/observe"
	"github.com/ducka/go-flow/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestProducer(t *testing.T) {
	t.Run("When a producer writes values and returns", func(t *testing.T) {
		actual, err := observe.Producer(func(ctx observe.Context, w observe.StreamWriter[int]) {
			for i := 1; i <= 5; i++ {
				if err := w.Write(i); err != nil {
					return
				}
			}
		}).ToValues()

		t.Run("Then every value is emitted followed by completion", func(t *testing.T) {
			require.NoError(t, err)
			assert.Equal(t, []int{1, 2, 3, 4, 5}, actual)
		})
	})

	t.Run("When a producer reports an error", func(t *testing.T) {
		actual, err := observe.Producer(func(ctx observe.Context, w observe.StreamWriter[int]) {
			_ = w.Write(1)
			w.Error(assert.AnError)
		}).ToValues()

		t.Run("Then the subscription fails after the values written", func(t *testing.T) {
			assert.ErrorIs(t, err, assert.AnError)
			assert.Equal(t, []int{1}, actual)
		})
	})

	t.Run("When a producer panics", func(t *testing.T) {
		_, err := observe.Producer(func(ctx observe.Context, w observe.StreamWriter[int]) {
			panic("boom")
		}).ToValues()

		t.Run("Then the subscription fails with a panic error", func(t *testing.T) {
			var panicErr *observe.PanicError
			require.ErrorAs(t, err, &panicErr)
			assert.Equal(t, "boom", panicErr.Value)
		})
	})

	t.Run("When the subscriber requests less than the producer writes", func(t *testing.T) {
		writeErr := make(chan error, 1)
		written := &atomic.Int32{}

		rec := testutils.NewRecorder[int]()
		observe.Producer(func(ctx observe.Context, w observe.StreamWriter[int]) {
			for i := 0; ; i++ {
				if err := w.Write(i); err != nil {
					writeErr <- err
					return
				}
				written.Add(1)
			}
		}).SubscribeWith(rec)
		rec.Request(3)

		t.Run("Then the producer blocks until more is requested", func(t *testing.T) {
			assert.Eventually(t, func() bool { return written.Load() == 3 }, timeout, timeout/100)
			assert.Equal(t, []int{0, 1, 2}, rec.Values())
		})

		t.Run("Then cancelling unblocks the producer", func(t *testing.T) {
			rec.Cancel()
			select {
			case err := <-writeErr:
				assert.True(t, errors.Is(err, observe.ErrStreamClosed))
			case <-timeoutCh():
				t.Fatal("producer was not unblocked")
			}
			assert.Zero(t, rec.Violations())
		})
	})

	t.Run("When a producer waits for demand", func(t *testing.T) {
		m := useMeasurer(t)

		rec := testutils.NewRecorder[int]()
		observe.Producer(func(ctx observe.Context, w observe.StreamWriter[int]) {
			_ = w.Write(1)
		}, observe.WithActivityName("ingest")).SubscribeWith(rec)
		time.Sleep(20 * time.Millisecond)
		rec.Request(1)

		t.Run("Then the time spent blocked is measured", func(t *testing.T) {
			require.True(t, rec.WaitForCompletion(timeout))
			assert.Equal(t, []int{1}, rec.Values())
			m.AssertCalled(t, "Timing", "ingest", "item_backpressure", mock.Anything, mock.Anything)
		})
	})

	t.Run("When a producer tries to write without demand", func(t *testing.T) {
		accepted := make(chan bool, 1)
		observe.Producer(func(ctx observe.Context, w observe.StreamWriter[int]) {
			accepted <- w.TryWrite(1)
		}).SubscribeWith(testutils.NewRecorder[int]())

		t.Run("Then the value is not accepted", func(t *testing.T) {
			assert.False(t, <-accepted)
		})
	})
}
