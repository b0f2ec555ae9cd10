package testutils

import (
	"sync"
)

// ConcurrencySync holds concurrently running goroutines at a checkpoint until a specified number of them have
// arrived, then releases that group together.
type ConcurrencySync struct {
	mu    sync.Mutex
	cond  *sync.Cond
	limit int

	waiting    int
	generation int
	hits       int
}

func NewConcurrencySync(concurrencyLimit int) *ConcurrencySync {
	if concurrencyLimit < 1 {
		panic("concurrency limit must be greater than 0")
	}

	s := &ConcurrencySync{limit: concurrencyLimit}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Checkpoint blocks the calling goroutine until a full group has reached the checkpoint.
func (s *ConcurrencySync) Checkpoint() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hits++
	s.waiting++

	if s.waiting == s.limit {
		s.waiting = 0
		s.generation++
		s.cond.Broadcast()
		return
	}

	generation := s.generation
	for generation == s.generation {
		s.cond.Wait()
	}
}

// ReleaseCount returns the number of groups released from the checkpoint.
func (s *ConcurrencySync) ReleaseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// HitCount returns the number of times the checkpoint has been hit.
func (s *ConcurrencySync) HitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits
}
