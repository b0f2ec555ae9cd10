package operator

import (
	"testing"

	"github.com/ducka/go-flow/demand"
	"github.com/ducka/go-flow/observe"
	"github.com/ducka/go-flow/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineDemand(t *testing.T) {
	build := func() *observe.Observable[int] {
		return Pipe3(
			observe.Range(0, 200),
			Map(func(item int, index int) int { return item * 2 }),
			Filter(func(item int) bool { return item%3 == 0 }),
			Scan(0, func(acc int, item int) int { return acc + item }),
		)
	}

	expected, err := build().ToValues()
	require.NoError(t, err)

	for _, seed := range []uint64{1, 7, 42} {
		t.Run("When a pipeline is pulled with random request sizes", func(t *testing.T) {
			rec := testutils.NewRecorder[int]()
			build().SubscribeWith(rec)

			requested := 0
			for _, n := range testutils.DemandSequence(seed, 30, 4) {
				rec.Request(n)
				requested += int(n)
			}

			t.Run("Then exactly the requested prefix is emitted", func(t *testing.T) {
				want := min(requested, len(expected))
				assert.Equal(t, expected[:want], rec.Values())
				assert.Zero(t, rec.Violations())
			})
		})
	}

	t.Run("When every value requests one more", func(t *testing.T) {
		rec := testutils.NewRecorder[int](testutils.RequestPerValue[int](demand.Max(1)))
		build().SubscribeWith(rec)
		rec.Request(1)

		t.Run("Then the whole pipeline drains and completes", func(t *testing.T) {
			assert.Equal(t, expected, rec.Values())
			_, completed := rec.Completion()
			assert.True(t, completed)
			assert.Zero(t, rec.Violations())
		})
	})

	t.Run("When the subscriber cancels midway", func(t *testing.T) {
		rec := testutils.NewRecorder[int](testutils.OnEachValue(func(r *testutils.Recorder[int], v int) {
			if len(r.Values()) == 2 {
				r.Cancel()
			}
		}))
		Map(func(item int, index int) int { return item })(observe.Range(1, 5)).SubscribeWith(rec)
		rec.Request(5)

		t.Run("Then nothing is delivered after the cancel", func(t *testing.T) {
			assert.Equal(t, []int{1, 2}, rec.Values())
			_, completed := rec.Completion()
			assert.False(t, completed)
			assert.Zero(t, rec.Violations())
		})
	})
}
