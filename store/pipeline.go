package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ducka/go-flow/observe"
	"github.com/ducka/go-flow/operator"
	"github.com/ducka/go-flow/scheduler"
)

type (
	KeySelectorFunc[TIn any] func(item TIn) []string
	// StateMapFunc folds item into the state held for its key. The zero value is passed when no state is held.
	// Returning a nil state deletes it.
	StateMapFunc[TIn, TState any] func(item TIn, state TState) (*TState, error)
)

type Identifiable interface {
	GetKey() []string
}

func DefaultSelector[T Identifiable]() KeySelectorFunc[T] {
	return func(item T) []string {
		return item.GetKey()
	}
}

// Load observes the live entries held for keys, in key order.
func Load[TState any](st StateStore[TState], keys []string, opts ...observe.ObservableOption) *observe.Observable[StateEntry[TState]] {
	opts = observe.DefaultActivityName("Load", opts)
	return operator.Pipe1(
		observe.Future(func(ctx context.Context) ([]StateEntry[TState], error) {
			return st.Get(ctx, keys...)
		}, opts...),
		operator.Flatten[StateEntry[TState]](opts...),
	)
}

// Save writes each entry regardless of the version it was read at. A conflict with a concurrent writer is
// resolved by reading the stored version again and repeating the write, at most attempts times.
func Save[TState any](st StateStore[TState], attempts uint, opts ...observe.ObservableOption) observe.OperatorFunc[StateEntry[TState], StateEntry[TState]] {
	opts = observe.DefaultActivityName("Save", opts)
	return operator.FlatMap(func(entry StateEntry[TState]) *observe.Observable[StateEntry[TState]] {
		return observe.Future(func(ctx context.Context) (StateEntry[TState], error) {
			err := retryOnConflict(ctx, attempts, func() error {
				current, err := st.Get(ctx, entry.Key)
				if err != nil {
					return err
				}

				write := entry
				write.Timestamp = nil
				if len(current) > 0 {
					write.Timestamp = current[0].Timestamp
				}
				return st.Set(ctx, write)
			})
			return entry, err
		}, opts...)
	}, 1, opts...)
}

type StageOption func(o *stageOptions)

type stageOptions struct {
	batchSize int
	flush     time.Duration
	sch       scheduler.Scheduler
	attempts  uint
	expiry    *time.Duration
	opts      []observe.ObservableOption
}

// WithBatch groups up to size items, or whatever arrived within flush, into a single read and write.
func WithBatch(size int, flush time.Duration) StageOption {
	return func(o *stageOptions) {
		o.batchSize = size
		o.flush = flush
	}
}

func WithStageScheduler(sch scheduler.Scheduler) StageOption {
	return func(o *stageOptions) {
		o.sch = sch
	}
}

// WithConflictAttempts bounds how many times a batch is folded against freshly read state after a conflict.
func WithConflictAttempts(attempts uint) StageOption {
	return func(o *stageOptions) {
		o.attempts = attempts
	}
}

func WithStateExpiry(expiry time.Duration) StageOption {
	return func(o *stageOptions) {
		o.expiry = &expiry
	}
}

func WithObservableOptions(opts ...observe.ObservableOption) StageOption {
	return func(o *stageOptions) {
		o.opts = append(o.opts, opts...)
	}
}

// Stage folds every item into the state stored under its key and emits the resulting state. Items are processed
// in batches; keys whose write conflicts with another writer are folded again against the state that writer left.
// States deleted by the mapper are not emitted.
func Stage[TIn, TState any](keySelector KeySelectorFunc[TIn], mapper StateMapFunc[TIn, TState], st StateStore[TState], opts ...StageOption) observe.OperatorFunc[TIn, TState] {
	if keySelector == nil || mapper == nil {
		panic(`"Stage" expected key selector and mapper funcs`)
	}
	if st == nil {
		panic(`"Stage" expected a state store`)
	}

	options := stageOptions{
		batchSize: 10,
		flush:     50 * time.Millisecond,
		attempts:  5,
	}
	for _, opt := range opts {
		opt(&options)
	}
	observableOpts := observe.DefaultActivityName("Stage", options.opts)

	s := &stager[TIn, TState]{
		keySelector: keySelector,
		mapper:      mapper,
		store:       st,
		attempts:    options.attempts,
		expiry:      options.expiry,
	}

	return func(source *observe.Observable[TIn]) *observe.Observable[TState] {
		return operator.Pipe3(
			source,
			operator.BatchWithTimeout[TIn](options.batchSize, options.flush, options.sch, observableOpts...),
			operator.FlatMap(func(batch []TIn) *observe.Observable[[]TState] {
				return observe.Future(func(ctx context.Context) ([]TState, error) {
					return s.process(ctx, batch)
				}, observableOpts...)
			}, 1, observableOpts...),
			operator.Flatten[TState](observableOpts...),
		)
	}
}

type keyedItem[TIn any] struct {
	key  string
	item TIn
}

type stager[TIn, TState any] struct {
	keySelector KeySelectorFunc[TIn]
	mapper      StateMapFunc[TIn, TState]
	store       StateStore[TState]
	attempts    uint
	expiry      *time.Duration
}

func (s *stager[TIn, TState]) process(ctx context.Context, batch []TIn) ([]TState, error) {
	keys := make([]string, 0, len(batch))
	items := make([]keyedItem[TIn], 0, len(batch))
	seen := make(map[string]struct{}, len(batch))

	for _, item := range batch {
		key := strings.Join(s.keySelector(item), ":")
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
		items = append(items, keyedItem[TIn]{key: key, item: item})
	}

	// State after each item, kept once the write for its key has gone through
	states := make([]*TState, len(items))
	pending := keys

	err := retryOnConflict(ctx, s.attempts, func() error {
		entries, err := s.store.Get(ctx, pending...)
		if err != nil {
			return err
		}

		active := make(map[string]*TState, len(pending))
		versions := make(map[string]*int64, len(pending))
		for _, key := range pending {
			active[key] = nil
		}
		for _, entry := range entries {
			active[entry.Key] = entry.State
			versions[entry.Key] = entry.Timestamp
		}

		for i, it := range items {
			state, ok := active[it.key]
			if !ok {
				continue
			}
			if state == nil {
				state = new(TState)
			}

			next, err := s.mapper(it.item, *state)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			active[it.key] = next
			states[i] = next
		}

		writes := make([]StateEntry[TState], 0, len(pending))
		for _, key := range pending {
			// Nothing to delete for a key that was never stored
			if active[key] == nil && versions[key] == nil {
				continue
			}
			writes = append(writes, StateEntry[TState]{
				Key:       key,
				State:     active[key],
				Timestamp: versions[key],
				Expiry:    s.expiry,
			})
		}

		err = s.store.Set(ctx, writes...)

		var conflict *StateStoreConflict
		if errors.As(err, &conflict) {
			pending = conflict.GetConflicts()
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	changes := make([]TState, 0, len(states))
	for _, state := range states {
		if state != nil {
			changes = append(changes, *state)
		}
	}
	return changes, nil
}

func retryOnConflict(ctx context.Context, attempts uint, fn func() error) error {
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(5*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var conflict *StateStoreConflict
			return errors.As(err, &conflict)
		}),
	)
}
