package operator

import (
	"testing"
	"time"

	"github.com/ducka/go-flow/scheduler"
	"github.com/ducka/go-flow/subject"
	"github.com/ducka/go-flow/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelay(t *testing.T) {
	t.Run("When items are delayed", func(t *testing.T) {
		sch := scheduler.NewVirtual(time.Now())
		subj := subject.NewPassthrough[int]()

		rec := testutils.NewRecorder[int]()
		Delay[int](time.Second, sch)(subj.AsObservable()).SubscribeWith(rec)
		rec.Request(10)

		subj.Send(1)
		sch.Advance(500 * time.Millisecond)
		subj.Send(2)

		t.Run("Then nothing is emitted before the delay has passed", func(t *testing.T) {
			assert.Empty(t, rec.Values())
		})

		t.Run("Then each item is emitted once its delay has passed", func(t *testing.T) {
			sch.Advance(500 * time.Millisecond)
			assert.Equal(t, []int{1}, rec.Values())

			sch.Advance(500 * time.Millisecond)
			assert.Equal(t, []int{1, 2}, rec.Values())
		})

		t.Run("Then the completion is delayed too", func(t *testing.T) {
			subj.Complete()
			_, completed := rec.Completion()
			assert.False(t, completed)

			sch.Advance(time.Second)
			_, completed = rec.Completion()
			assert.True(t, completed)
		})
	})

	t.Run("When the source fails", func(t *testing.T) {
		sch := scheduler.NewVirtual(time.Now())
		subj := subject.NewPassthrough[int]()

		rec := testutils.NewRecorder[int]()
		Delay[int](time.Second, sch)(subj.AsObservable()).SubscribeWith(rec)
		rec.Request(10)

		subj.Send(1)
		subj.Fail(assert.AnError)

		t.Run("Then the failure is delivered at once and pending items are discarded", func(t *testing.T) {
			completion, completed := rec.Completion()
			require.True(t, completed)
			assert.ErrorIs(t, completion.Err, assert.AnError)

			sch.Advance(time.Second)
			assert.Empty(t, rec.Values())
		})
	})
}

func TestDebounce(t *testing.T) {
	t.Run("When items arrive faster than the debounce interval", func(t *testing.T) {
		sch := scheduler.NewVirtual(time.Now())
		subj := subject.NewPassthrough[int]()

		rec := testutils.NewRecorder[int]()
		Debounce[int](100*time.Millisecond, sch)(subj.AsObservable()).SubscribeWith(rec)
		rec.Request(10)

		subj.Send(1)
		sch.Advance(50 * time.Millisecond)
		subj.Send(2)
		sch.Advance(50 * time.Millisecond)
		subj.Send(3)

		t.Run("Then only the last item is emitted once the source goes quiet", func(t *testing.T) {
			assert.Empty(t, rec.Values())
			sch.Advance(100 * time.Millisecond)
			assert.Equal(t, []int{3}, rec.Values())
		})

		t.Run("Then a pending item is emitted when the source completes", func(t *testing.T) {
			subj.Send(4)
			subj.Complete()
			assert.Equal(t, []int{3, 4}, rec.Values())
			_, completed := rec.Completion()
			assert.True(t, completed)
			assert.Zero(t, rec.Violations())
		})
	})
}

func TestThrottle(t *testing.T) {
	t.Run("When items arrive within the throttle interval", func(t *testing.T) {
		sch := scheduler.NewVirtual(time.Now())
		subj := subject.NewPassthrough[int]()

		rec := testutils.NewRecorder[int]()
		Throttle[int](time.Second, sch)(subj.AsObservable()).SubscribeWith(rec)
		rec.Request(10)

		subj.Send(1)
		subj.Send(2)
		sch.Advance(time.Second)
		subj.Send(3)

		t.Run("Then items within the interval are dropped", func(t *testing.T) {
			assert.Equal(t, []int{1, 3}, rec.Values())
		})
	})
}
