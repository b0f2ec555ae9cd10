package operator

import (
	"sync/atomic"
	"testing"

	"github.com/ducka/go-flow/observe"
	"github.com/ducka/go-flow/testutils"
	"github.com/stretchr/testify/assert"
)

func TestFilter(t *testing.T) {
	even := func(item int) bool { return item%2 == 0 }

	t.Run("When filtering a sequence of integers", func(t *testing.T) {
		actual, err := Filter(even)(observe.Range(1, 10)).ToValues()

		t.Run("Then only the matching items are emitted", func(t *testing.T) {
			assert.NoError(t, err)
			assert.Equal(t, []int{2, 4, 6, 8, 10}, actual)
		})
	})

	t.Run("When requesting 3 items over an upstream alternating between passing and failing items", func(t *testing.T) {
		pulled := &atomic.Int32{}
		source := Tap(Hooks[int]{
			OnNext: func(int) { pulled.Add(1) },
		})(observe.Range(1, 20))

		rec := testutils.NewRecorder[int]()
		Filter(even)(source).SubscribeWith(rec)
		rec.Request(3)

		t.Run("Then exactly 3 passing items are delivered", func(t *testing.T) {
			assert.Equal(t, []int{2, 4, 6}, rec.Values())
			assert.Zero(t, rec.Violations())
		})

		t.Run("Then upstream is pulled once more for every dropped item", func(t *testing.T) {
			assert.Equal(t, int32(6), pulled.Load())
		})

		t.Run("Then the subscription has not completed", func(t *testing.T) {
			_, completed := rec.Completion()
			assert.False(t, completed)
		})
	})
}
