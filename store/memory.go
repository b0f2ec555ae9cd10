package store

import (
	"context"
	"sync"
	"time"

	"github.com/ducka/go-flow/scheduler"
	"github.com/ducka/go-flow/utils"
)

const defaultPurgeInterval = 10 * time.Second

type InMemoryStore[T any] struct {
	store map[string]inMemoryStateEntryWrapper[T]
	mu    *sync.RWMutex
	sch   scheduler.Scheduler
	purge scheduler.Cancellable
	every time.Duration
	done  bool
}

type InMemoryOption func(o *inMemoryOptions)

type inMemoryOptions struct {
	sch           scheduler.Scheduler
	purgeInterval time.Duration
}

// WithClock drives expiry and the periodic purge from sch instead of the wall clock.
func WithClock(sch scheduler.Scheduler) InMemoryOption {
	return func(o *inMemoryOptions) {
		o.sch = sch
	}
}

func WithPurgeInterval(interval time.Duration) InMemoryOption {
	return func(o *inMemoryOptions) {
		o.purgeInterval = interval
	}
}

func NewInMemoryStore[T any](opts ...InMemoryOption) *InMemoryStore[T] {
	options := inMemoryOptions{
		sch:           scheduler.Real(),
		purgeInterval: defaultPurgeInterval,
	}
	for _, opt := range opts {
		opt(&options)
	}

	i := &InMemoryStore[T]{
		store: make(map[string]inMemoryStateEntryWrapper[T]),
		mu:    new(sync.RWMutex),
		sch:   options.sch,
		every: options.purgeInterval,
	}

	// Periodically purge the store of expired entries
	i.mu.Lock()
	i.schedulePurge()
	i.mu.Unlock()

	return i
}

// schedulePurge must be called with the lock held.
func (i *InMemoryStore[T]) schedulePurge() {
	if i.done {
		return
	}
	i.purge = i.sch.ScheduleAfter(i.every, func() {
		i.mu.Lock()
		defer i.mu.Unlock()

		now := i.sch.Now()
		for key, entry := range i.store {
			if entry.expired(now) {
				delete(i.store, key)
			}
		}
		i.schedulePurge()
	})
}

// Close stops the periodic purge.
func (i *InMemoryStore[T]) Close() {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.done = true
	if i.purge != nil {
		i.purge.Cancel()
	}
}

// Len is the number of entries held, expired entries not yet purged included.
func (i *InMemoryStore[T]) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.store)
}

func (i *InMemoryStore[T]) Get(ctx context.Context, keys ...string) ([]StateEntry[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	now := i.sch.Now()
	result := make([]StateEntry[T], 0, len(keys))
	for _, key := range keys {
		if entry, ok := i.store[key]; ok {

			// Don't return expired entries
			if entry.expired(now) {
				continue
			}

			result = append(result, entry.copy())
		}
	}
	return result, nil
}

func (i *InMemoryStore[T]) Set(ctx context.Context, entries ...StateEntry[T]) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	now := i.sch.Now()
	conflicts := make([]string, 0)

	for _, entry := range entries {
		stored, ok := i.store[entry.Key]
		if ok && stored.expired(now) {
			ok = false
		}

		var version int64
		if ok {
			if entry.Timestamp == nil || *entry.Timestamp != *stored.Timestamp {
				conflicts = append(conflicts, entry.Key)
				continue
			}
			version = *stored.Timestamp
		}

		if entry.State == nil {
			delete(i.store, entry.Key)
			continue
		}

		// Write the entry to the store, always moving the version forward
		next := max(now.UnixNano(), version+1)
		wrapper := inMemoryStateEntryWrapper[T]{
			StateEntry: StateEntry[T]{
				Key:       entry.Key,
				State:     utils.ToPtr(*entry.State),
				Timestamp: utils.ToPtr(next),
			},
		}

		if entry.Expiry != nil {
			wrapper.ExpireOn = utils.ToPtr(now.Add(*entry.Expiry))
		}

		i.store[entry.Key] = wrapper
	}

	return conflictOrNil(conflicts)
}

type inMemoryStateEntryWrapper[T any] struct {
	StateEntry[T]
	ExpireOn *time.Time
}

func (w inMemoryStateEntryWrapper[T]) expired(now time.Time) bool {
	return w.ExpireOn != nil && !w.ExpireOn.After(now)
}

// copy detaches the returned entry from the stored one.
func (w inMemoryStateEntryWrapper[T]) copy() StateEntry[T] {
	return StateEntry[T]{
		Key:       w.Key,
		State:     utils.ToPtr(*w.State),
		Timestamp: utils.ToPtr(*w.Timestamp),
	}
}
