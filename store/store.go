// Package store persists keyed pipeline state behind optimistic concurrency. Every entry carries the version it
// was read at; writing an entry whose version has moved on since is reported as a conflict rather than applied.
package store

import (
	"context"
	"strings"
	"time"
)

type StateEntry[TState any] struct {
	Key string
	// State is the stored value. Setting an entry with a nil State deletes it.
	State *TState
	// Timestamp is the version the entry was read at. It is nil for entries that have not been read from a store.
	Timestamp *int64
	// Expiry, when set, removes the entry once it has elapsed after the write.
	Expiry *time.Duration
}

type StateStore[TState any] interface {
	// Get returns the live entries for keys. Missing and expired keys are left out.
	Get(ctx context.Context, keys ...string) ([]StateEntry[TState], error)
	// Set writes entries. Entries that conflict are skipped and reported together in a *StateStoreConflict.
	Set(ctx context.Context, entries ...StateEntry[TState]) error
}

type StateStoreConflict struct {
	conflicts []string
}

func (s *StateStoreConflict) Error() string {
	return "state entry was modified concurrently: " + strings.Join(s.conflicts, ", ")
}

func (s *StateStoreConflict) GetConflicts() []string {
	return s.conflicts
}

func conflictOrNil(conflicts []string) error {
	if len(conflicts) > 0 {
		return &StateStoreConflict{conflicts: conflicts}
	}
	return nil
}
