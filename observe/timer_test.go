package observe_test

import (
	"testing"
	"time"

	"github.com/ducka/go-flow/observe"
	"github.com/ducka/go-flow/scheduler"
	"github.com/ducka/go-flow/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimer(t *testing.T) {
	t.Run("When a timer ticks more often than it is requested", func(t *testing.T) {
		start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		sch := scheduler.NewVirtual(start)

		rec := testutils.NewRecorder[time.Time]()
		observe.Timer(time.Second, sch).SubscribeWith(rec)
		rec.Request(2)

		sch.Advance(3 * time.Second)

		t.Run("Then ticks without demand are dropped", func(t *testing.T) {
			assert.Equal(t, []time.Time{start.Add(time.Second), start.Add(2 * time.Second)}, rec.Values())
			assert.Zero(t, rec.Violations())
		})

		t.Run("Then the next tick after a request is emitted", func(t *testing.T) {
			rec.Request(1)
			sch.Advance(time.Second)
			assert.Len(t, rec.Values(), 3)
			assert.Equal(t, start.Add(4*time.Second), rec.Values()[2])
		})

		t.Run("Then cancelling stops the timer", func(t *testing.T) {
			rec.Cancel()
			assert.Zero(t, sch.Pending())
		})
	})
}

func TestCron(t *testing.T) {
	t.Run("When a cron pattern fires every ten seconds", func(t *testing.T) {
		start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		sch := scheduler.NewVirtual(start)

		ob, err := observe.Cron("*/10 * * * * *", sch)
		require.NoError(t, err)

		rec := testutils.NewRecorder[time.Time]()
		ob.SubscribeWith(rec)
		rec.Request(10)
		sch.Advance(35 * time.Second)

		t.Run("Then an item is emitted on each scheduled time", func(t *testing.T) {
			assert.Equal(t, []time.Time{
				start.Add(10 * time.Second),
				start.Add(20 * time.Second),
				start.Add(30 * time.Second),
			}, rec.Values())
		})
	})

	t.Run("When the cron pattern can never fire", func(t *testing.T) {
		start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		sch := scheduler.NewVirtual(start)

		ob, err := observe.Cron("0 0 30 2 *", sch)
		require.NoError(t, err)

		rec := testutils.NewRecorder[time.Time]()
		ob.SubscribeWith(rec)
		rec.Request(1)

		t.Run("Then the stream finishes without emitting", func(t *testing.T) {
			require.True(t, rec.WaitForCompletion(time.Second))
			completion, completed := rec.Completion()
			assert.True(t, completed)
			assert.NoError(t, completion.Err)
			assert.Empty(t, rec.Values())
		})

		t.Run("Then nothing is left scheduled", func(t *testing.T) {
			assert.Equal(t, 0, sch.Pending())
		})
	})

	t.Run("When the cron pattern is malformed", func(t *testing.T) {
		_, err := observe.Cron("not a pattern", scheduler.Real())

		t.Run("Then an error is returned", func(t *testing.T) {
			assert.Error(t, err)
		})
	})

	t.Run("When a cron descriptor is used", func(t *testing.T) {
		start := time.Date(2024, 1, 1, 0, 30, 0, 0, time.UTC)
		sch := scheduler.NewVirtual(start)

		ob, err := observe.Cron("@hourly", sch)
		require.NoError(t, err)

		rec := testutils.NewRecorder[time.Time]()
		ob.SubscribeWith(rec)
		rec.Request(1)
		sch.Advance(time.Hour)

		t.Run("Then it fires on the descriptor's schedule", func(t *testing.T) {
			assert.Equal(t, []time.Time{start.Add(30 * time.Minute)}, rec.Values())
		})
	})
}
