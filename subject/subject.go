// Package subject provides publishers that imperative code can push values into. Every pushed event fans out to
// the subscribers attached when the push began.
package subject

import (
	"sync"

	"github.com/ducka/go-flow/instrumentation"
	"github.com/ducka/go-flow/observe"
	"github.com/google/uuid"
)

// Subject is a publisher that is also an imperative sink.
type Subject[T any] interface {
	observe.Publisher[T]
	Send(v T)
	SendCompletion(completion observe.Completion)
}

// hub holds the subscriber set shared by the subject variants. Every mutation of the set and every snapshot taken
// for a fan-out happens under mu; delivery happens outside it.
type hub[T any] struct {
	mu          sync.Mutex
	activity    string
	strategy    observe.BackpressureStrategy
	subscribers map[uuid.UUID]*observe.Conduit[T]
	terminal    *observe.Completion
}

func newHub[T any](activity string, strategy observe.BackpressureStrategy) *hub[T] {
	return &hub[T]{
		activity:    activity,
		strategy:    strategy,
		subscribers: make(map[uuid.UUID]*observe.Conduit[T]),
	}
}

// attach registers a new subscriber. seed runs under the lock, before any later push can reach the subscriber.
func (h *hub[T]) attach(subscriber observe.Subscriber[T], seed func(conduit *observe.Conduit[T])) {
	conduit := observe.NewConduit[T](subscriber, h.strategy, h.activity)

	h.mu.Lock()
	if h.terminal != nil {
		completion := *h.terminal
		h.mu.Unlock()

		conduit.Complete(completion)
		conduit.Start()
		return
	}

	id := uuid.New()
	h.subscribers[id] = conduit
	conduit.OnRelease(func() { h.detach(id) })
	if seed != nil {
		seed(conduit)
	}
	h.mu.Unlock()

	instrumentation.Logging().Debug(h.activity, "subscriber attached: "+id.String())
	conduit.Start()
}

func (h *hub[T]) detach(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subscribers, id)
}

// push fans v out to a snapshot of the subscriber set. update, if given, runs under the lock first. It reports
// false once the hub has terminated.
func (h *hub[T]) push(v T, update func()) bool {
	h.mu.Lock()
	if h.terminal != nil {
		h.mu.Unlock()
		return false
	}
	if update != nil {
		update()
	}
	snapshot := h.snapshot()
	h.mu.Unlock()

	for _, conduit := range snapshot {
		conduit.Offer(v, nil)
	}
	return true
}

func (h *hub[T]) complete(completion observe.Completion) {
	h.mu.Lock()
	if h.terminal != nil {
		h.mu.Unlock()
		return
	}
	h.terminal = &completion
	snapshot := h.snapshot()
	h.subscribers = make(map[uuid.UUID]*observe.Conduit[T])
	h.mu.Unlock()

	instrumentation.Logging().Debug(h.activity, "subject terminated: "+completion.String())
	for _, conduit := range snapshot {
		conduit.Complete(completion)
	}
}

// snapshot must be called with the lock held.
func (h *hub[T]) snapshot() []*observe.Conduit[T] {
	snapshot := make([]*observe.Conduit[T], 0, len(h.subscribers))
	for _, conduit := range h.subscribers {
		snapshot = append(snapshot, conduit)
	}
	return snapshot
}

func (h *hub[T]) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

func (h *hub[T]) terminated() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.terminal != nil
}
