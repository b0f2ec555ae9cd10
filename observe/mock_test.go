package observe_test

import (
	"errors"
	"testing"
	"time"

	"github.com/ducka/go-flow/demand"
	"github.com/ducka/go-flow/instrumentation"
	"github.com/ducka/go-flow/observe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type SubscriberMock[T any] struct {
	mock.Mock
}

func (s *SubscriberMock[T]) OnSubscribe(subscription observe.Subscription) {
	s.Called(subscription)
}

func (s *SubscriberMock[T]) OnNext(v T) demand.Demand {
	return s.Called(v).Get(0).(demand.Demand)
}

func (s *SubscriberMock[T]) OnComplete(completion observe.Completion) {
	s.Called(completion)
}

type MeasurerMock struct {
	mock.Mock
}

func (m *MeasurerMock) Incr(activity string, name string, value float64, tags ...string) {
	m.Called(activity, name, value, tags)
}

func (m *MeasurerMock) Timing(activity string, name string, value time.Duration, tags ...string) {
	m.Called(activity, name, value, tags)
}

// useMeasurer installs a measurer accepting every call for the duration of the test.
func useMeasurer(t *testing.T) *MeasurerMock {
	m := &MeasurerMock{}
	m.On("Incr", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return().Maybe()
	m.On("Timing", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return().Maybe()

	instrumentation.SetMeasurer(m)
	t.Cleanup(func() { instrumentation.SetMeasurer(&instrumentation.NilMeasurer{}) })
	return m
}

// expectSequence sets up the subscriber to request initial on subscribe, receive values in order, each time
// returning more, and then receive completion. The returned channel closes on completion.
func expectSequence[T any](subscriber *SubscriberMock[T], initial demand.Demand, more demand.Demand, completion observe.Completion, values ...T) <-chan struct{} {
	done := make(chan struct{})

	calls := []*mock.Call{
		subscriber.On("OnSubscribe", mock.Anything).Run(func(args mock.Arguments) {
			args.Get(0).(observe.Subscription).Request(initial)
		}).Return().Once(),
	}
	for _, v := range values {
		calls = append(calls, subscriber.On("OnNext", v).Return(more).NotBefore(calls...).Once())
	}
	subscriber.On("OnComplete", completion).Run(func(mock.Arguments) {
		close(done)
	}).Return().NotBefore(calls...).Once()

	return done
}

func TestSubscriberProtocol(t *testing.T) {
	t.Run("When a subscriber requests everything up front", func(t *testing.T) {
		subscriber := &SubscriberMock[int]{}
		done := expectSequence(subscriber, demand.Unbounded(), demand.None(), observe.Finished(), 1, 2, 3)

		observe.Sequence([]int{1, 2, 3}).SubscribeWith(subscriber)

		t.Run("Then the hooks are called in protocol order", func(t *testing.T) {
			select {
			case <-done:
			case <-timeoutCh():
				require.Fail(t, "timed out waiting for completion")
			}
			subscriber.AssertExpectations(t)
		})
	})

	t.Run("When a subscriber asks for one more value from each OnNext", func(t *testing.T) {
		subscriber := &SubscriberMock[string]{}
		done := expectSequence(subscriber, demand.Max(1), demand.Max(1), observe.Finished(), "a", "b")

		observe.Sequence([]string{"a", "b"}).SubscribeWith(subscriber)

		t.Run("Then every value is still delivered", func(t *testing.T) {
			select {
			case <-done:
			case <-timeoutCh():
				require.Fail(t, "timed out waiting for completion")
			}
			subscriber.AssertExpectations(t)
		})
	})

	t.Run("When the publisher fails", func(t *testing.T) {
		err := errors.New("boom")
		subscriber := &SubscriberMock[int]{}
		done := expectSequence(subscriber, demand.Max(5), demand.None(), observe.Failure(err))

		observe.Fail[int](err).SubscribeWith(subscriber)

		t.Run("Then only the failure follows the subscription", func(t *testing.T) {
			select {
			case <-done:
			case <-timeoutCh():
				require.Fail(t, "timed out waiting for completion")
			}
			subscriber.AssertExpectations(t)
			subscriber.AssertNotCalled(t, "OnNext", mock.Anything)
		})
	})

	t.Run("When nothing is requested", func(t *testing.T) {
		subscriber := &SubscriberMock[int]{}
		subscriber.On("OnSubscribe", mock.Anything).Return().Once()

		observe.Sequence([]int{1, 2}).SubscribeWith(subscriber)

		t.Run("Then no values are delivered", func(t *testing.T) {
			subscriber.AssertExpectations(t)
			assert.Len(t, subscriber.Calls, 1)
		})
	})
}
