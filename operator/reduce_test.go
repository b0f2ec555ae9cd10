package operator

import (
	"testing"

	"github.com/ducka/go-flow/observe"
	"github.com/ducka/go-flow/testutils"
	"github.com/stretchr/testify/assert"
)

func TestReduce(t *testing.T) {
	sum := func(acc int, item int) int { return acc + item }

	t.Run("When summing [1,3,7]", func(t *testing.T) {
		rec := testutils.NewRecorder[int]()
		Reduce(0, sum)(observe.Sequence([]int{1, 3, 7})).SubscribeWith(rec)

		t.Run("And nothing has been requested", func(t *testing.T) {
			t.Run("Then nothing is emitted", func(t *testing.T) {
				assert.Empty(t, rec.Values())
			})
		})

		rec.Request(2)

		t.Run("Then 11 is emitted exactly once followed by a successful completion", func(t *testing.T) {
			assert.Equal(t, []int{11}, rec.Values())
			completion, ok := rec.Completion()
			assert.True(t, ok)
			assert.False(t, completion.IsFailure())
			assert.Zero(t, rec.Violations())
		})
	})

	t.Run("When upstream is held open", func(t *testing.T) {
		release := make(chan struct{})
		source := observe.Producer(func(ctx observe.Context, w observe.StreamWriter[int]) {
			for _, v := range []int{1, 3, 7} {
				_ = w.Write(v)
			}
			<-release
		})

		rec := testutils.NewRecorder[int]()
		Reduce(0, sum)(source).SubscribeWith(rec)
		rec.Request(1)

		t.Run("Then the result is not emitted before upstream completes", func(t *testing.T) {
			assert.Empty(t, rec.Values())
		})

		close(release)

		t.Run("Then the result is emitted after upstream completes", func(t *testing.T) {
			assert.True(t, rec.WaitForCompletion(timeout))
			assert.Equal(t, []int{11}, rec.Values())
		})
	})

	t.Run("When reducing an empty sequence", func(t *testing.T) {
		actual, err := Reduce(5, sum)(observe.Empty[int]()).ToValues()

		t.Run("Then the seed is emitted", func(t *testing.T) {
			assert.NoError(t, err)
			assert.Equal(t, []int{5}, actual)
		})
	})
}

func TestCollect(t *testing.T) {
	t.Run("When collecting a sequence", func(t *testing.T) {
		actual, err := Collect[string]()(observe.Sequence(testutils.WordSequence(3, 4))).ToValues()

		t.Run("Then a single slice holding every item is emitted", func(t *testing.T) {
			assert.NoError(t, err)
			assert.Len(t, actual, 1)
			assert.Equal(t, testutils.WordSequence(3, 4), actual[0])
		})
	})
}
