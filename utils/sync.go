package utils

import (
	"sync"
	"time"
)

// WaitFor reports whether done closes before timeout elapses.
func WaitFor(done <-chan struct{}, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

// WaitForGroup reports whether wg finishes before timeout elapses.
func WaitForGroup(wg *sync.WaitGroup, timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	return WaitFor(done, timeout)
}
