package store

import (
	"context"
	"errors"
	"time"

	"github.com/ducka/go-flow/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

// StoreTestSuite holds the behaviour every StateStore implementation shares.
type StoreTestSuite struct {
	suite.Suite
	ctx       context.Context
	createSUT func() StateStore[string]
	// elapse lets time pass as far as the store under test can tell.
	elapse func(d time.Duration)
}

func NewStoreTestSuite(storeFactory func() StateStore[string], elapse func(d time.Duration)) *StoreTestSuite {
	if elapse == nil {
		elapse = time.Sleep
	}
	return &StoreTestSuite{
		createSUT: storeFactory,
		elapse:    elapse,
		ctx:       context.Background(),
	}
}

func (t *StoreTestSuite) TestGettingAndSetting() {
	sut := t.createSUT()

	result, err := sut.Get(t.ctx, uuid.NewString())
	t.NoError(err)
	t.Empty(result)

	newEntry := StateEntry[string]{
		Key:   uuid.NewString(),
		State: utils.ToPtr(uuid.NewString()),
	}
	t.Require().NoError(sut.Set(t.ctx, newEntry))

	got, err := sut.Get(t.ctx, newEntry.Key)
	t.Require().NoError(err)
	t.Require().Len(got, 1)
	t.Equal(newEntry.Key, got[0].Key)
	t.Equal(newEntry.State, got[0].State)
	t.NotNil(got[0].Timestamp)

	updatedEntry := StateEntry[string]{
		Key:       newEntry.Key,
		State:     utils.ToPtr(uuid.NewString()),
		Timestamp: got[0].Timestamp,
	}
	t.Require().NoError(sut.Set(t.ctx, updatedEntry))

	updated, err := sut.Get(t.ctx, updatedEntry.Key)
	t.Require().NoError(err)
	t.Require().Len(updated, 1)
	t.Equal(updatedEntry.State, updated[0].State)
	t.Greater(*updated[0].Timestamp, *got[0].Timestamp)

	err = sut.Set(t.ctx, StateEntry[string]{
		Key:       updatedEntry.Key,
		Timestamp: updated[0].Timestamp,
	})
	t.NoError(err)

	result, err = sut.Get(t.ctx, updatedEntry.Key)
	t.NoError(err)
	t.Empty(result)
}

func (t *StoreTestSuite) TestGettingSeveralKeys() {
	sut := t.createSUT()

	first, second := uuid.NewString(), uuid.NewString()
	t.Require().NoError(sut.Set(t.ctx,
		StateEntry[string]{Key: first, State: utils.ToPtr("first")},
		StateEntry[string]{Key: second, State: utils.ToPtr("second")},
	))

	got, err := sut.Get(t.ctx, second, uuid.NewString(), first)
	t.Require().NoError(err)
	t.Require().Len(got, 2)
	t.Equal(second, got[0].Key)
	t.Equal("second", *got[0].State)
	t.Equal(first, got[1].Key)
	t.Equal("first", *got[1].State)
}

func (t *StoreTestSuite) TestOptimisticConcurrency() {
	sut := t.createSUT()

	newEntry := StateEntry[string]{
		Key:   uuid.NewString(),
		State: utils.ToPtr(uuid.NewString()),
	}
	t.Require().NoError(sut.Set(t.ctx, newEntry))

	retrieved, err := sut.Get(t.ctx, newEntry.Key)
	t.Require().NoError(err)
	t.Require().NotEmpty(retrieved)

	// The first write moves the version on, so the second one is stale.
	t.NoError(sut.Set(t.ctx, retrieved...))
	err = sut.Set(t.ctx, retrieved...)

	var conflict *StateStoreConflict
	if t.True(errors.As(err, &conflict)) {
		t.Contains(conflict.GetConflicts(), newEntry.Key)
		t.Contains(conflict.Error(), newEntry.Key)
	}
}

func (t *StoreTestSuite) TestConflictsDoNotBlockOtherEntries() {
	sut := t.createSUT()

	existing := StateEntry[string]{Key: uuid.NewString(), State: utils.ToPtr("existing")}
	t.Require().NoError(sut.Set(t.ctx, existing))

	fresh := StateEntry[string]{Key: uuid.NewString(), State: utils.ToPtr("fresh")}

	// Writing over a stored key without having read it is a conflict
	err := sut.Set(t.ctx, StateEntry[string]{Key: existing.Key, State: utils.ToPtr("blind")}, fresh)

	var conflict *StateStoreConflict
	t.Require().True(errors.As(err, &conflict))
	t.Equal([]string{existing.Key}, conflict.GetConflicts())

	got, err := sut.Get(t.ctx, existing.Key, fresh.Key)
	t.Require().NoError(err)
	t.Require().Len(got, 2)
	t.Equal("existing", *got[0].State)
	t.Equal("fresh", *got[1].State)
}

func (t *StoreTestSuite) TestDeletingMissingKey() {
	sut := t.createSUT()

	t.NoError(sut.Set(t.ctx, StateEntry[string]{Key: uuid.NewString()}))
}

func (t *StoreTestSuite) TestEntryExpiry() {
	sut := t.createSUT()

	newEntry := StateEntry[string]{
		Key:    uuid.NewString(),
		State:  utils.ToPtr(uuid.NewString()),
		Expiry: utils.ToPtr(time.Second),
	}
	t.Require().NoError(sut.Set(t.ctx, newEntry))

	got, err := sut.Get(t.ctx, newEntry.Key)
	t.Require().NoError(err)
	t.Require().Len(got, 1)

	t.elapse(1500 * time.Millisecond)

	got, err = sut.Get(t.ctx, newEntry.Key)
	t.NoError(err)
	t.Empty(got)

	// An expired key can be written again as though it were new
	t.NoError(sut.Set(t.ctx, StateEntry[string]{Key: newEntry.Key, State: utils.ToPtr("again")}))
}

func (t *StoreTestSuite) TestCancelledContext() {
	sut := t.createSUT()

	ctx, cancel := context.WithCancel(t.ctx)
	cancel()

	_, err := sut.Get(ctx, uuid.NewString())
	assert.ErrorIs(t.T(), err, context.Canceled)
}
