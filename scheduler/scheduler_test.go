package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestVirtual(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("When advancing past scheduled callbacks", func(t *testing.T) {
		v := NewVirtual(start)
		var order []int

		v.ScheduleAfter(3*time.Second, func() { order = append(order, 3) })
		v.ScheduleAfter(time.Second, func() { order = append(order, 1) })
		v.ScheduleAfter(time.Second, func() { order = append(order, 2) })
		v.ScheduleAfter(10*time.Second, func() { order = append(order, 10) })

		v.Advance(5 * time.Second)

		t.Run("Then due callbacks run in due time order", func(t *testing.T) {
			assert.Equal(t, []int{1, 2, 3}, order)
		})

		t.Run("Then the clock moves to the target", func(t *testing.T) {
			assert.Equal(t, start.Add(5*time.Second), v.Now())
		})

		t.Run("Then callbacks not yet due remain pending", func(t *testing.T) {
			assert.Equal(t, 1, v.Pending())
		})
	})

	t.Run("When the backing clock is read directly", func(t *testing.T) {
		v := NewVirtual(start)
		v.Advance(90 * time.Second)

		t.Run("Then it agrees with the scheduler", func(t *testing.T) {
			assert.Equal(t, start.Add(90*time.Second), v.Clock().Now())
			assert.Equal(t, v.Now(), v.Clock().Now())
		})
	})

	t.Run("When a callback is cancelled", func(t *testing.T) {
		v := NewVirtual(start)
		ran := false

		task := v.ScheduleAfter(time.Second, func() { ran = true })
		task.Cancel()
		task.Cancel()
		v.Advance(time.Minute)

		t.Run("Then it never runs", func(t *testing.T) {
			assert.False(t, ran)
			assert.Equal(t, 0, v.Pending())
		})
	})

	t.Run("When a callback reschedules itself", func(t *testing.T) {
		v := NewVirtual(start)
		var ticks []time.Time

		var tick func()
		tick = func() {
			ticks = append(ticks, v.Now())
			v.ScheduleAfter(time.Second, tick)
		}
		v.ScheduleAfter(time.Second, tick)

		v.Advance(3 * time.Second)

		t.Run("Then every tick within the advance runs at its due time", func(t *testing.T) {
			assert.Equal(t, []time.Time{
				start.Add(time.Second),
				start.Add(2 * time.Second),
				start.Add(3 * time.Second),
			}, ticks)
		})
	})
}

func TestFromClock(t *testing.T) {
	t.Run("When a fake clock passes the due time", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		var ran atomic.Bool
		FromClock(clock).ScheduleAfter(time.Second, func() { ran.Store(true) })

		clock.Advance(time.Second)

		t.Run("Then the callback runs", func(t *testing.T) {
			assert.Eventually(t, ran.Load, time.Second, time.Millisecond)
		})
	})

	t.Run("When the callback is cancelled before the clock passes the due time", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		var ran atomic.Bool
		task := FromClock(clock).ScheduleAfter(time.Second, func() { ran.Store(true) })

		task.Cancel()
		clock.Advance(time.Minute)

		t.Run("Then it never runs", func(t *testing.T) {
			assert.Never(t, ran.Load, 50*time.Millisecond, 5*time.Millisecond)
		})
	})
}

func TestReal(t *testing.T) {
	t.Run("When a callback is scheduled", func(t *testing.T) {
		var ran atomic.Bool
		Real().ScheduleAfter(time.Millisecond, func() { ran.Store(true) })

		t.Run("Then it runs after the delay", func(t *testing.T) {
			assert.Eventually(t, ran.Load, time.Second, time.Millisecond)
		})
	})

	t.Run("When a callback is cancelled before it is due", func(t *testing.T) {
		var ran atomic.Bool
		task := Real().ScheduleAfter(50*time.Millisecond, func() { ran.Store(true) })
		task.Cancel()

		t.Run("Then it never runs", func(t *testing.T) {
			assert.Never(t, ran.Load, 100*time.Millisecond, 10*time.Millisecond)
		})
	})
}
