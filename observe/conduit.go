package observe

import (
	"fmt"
	"sync"
	"time"

	"github.com/ducka/go-flow/demand"
	"github.com/ducka/go-flow/instrumentation"
)

type queued[T any] struct {
	v   T
	ack func()
}

// Conduit is the producer side of a single subscription. It owns the outstanding demand and serializes every
// hook invocation on the downstream subscriber: whichever goroutine finds the conduit idle becomes the drainer
// and delivers queued events; everyone else enqueues and returns. No hook runs while the conduit lock is held.
type Conduit[T any] struct {
	mu         sync.Mutex
	cond       *sync.Cond
	downstream Subscriber[T]
	strategy   BackpressureStrategy
	activity   string

	demand   demand.Demand
	queue    []queued[T]
	terminal *Completion

	draining  bool
	starting  bool
	pending   demand.Demand
	cancelled bool
	done      bool

	onRequest func(d demand.Demand)
	releases  []func()
	once      sync.Once
}

var _ Subscription = (*Conduit[any])(nil)

// NewConduit creates a conduit delivering to downstream. Events offered before Start are held back until the
// subscriber has been handed the subscription.
func NewConduit[T any](downstream Subscriber[T], strategy BackpressureStrategy, activity string) *Conduit[T] {
	if downstream == nil {
		panic(`"NewConduit" expected a subscriber`)
	}
	c := &Conduit[T]{
		downstream: downstream,
		strategy:   strategy,
		activity:   activity,
		draining:   true,
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// OnRequest registers a callback invoked, outside the conduit lock, with every demand the subscriber adds,
// whether through Request or as the return value of OnNext. Must be set before Start.
func (c *Conduit[T]) OnRequest(fn func(d demand.Demand)) {
	c.onRequest = fn
}

// OnRelease registers a callback invoked once when the subscription ends, by terminal delivery or cancellation.
// Callbacks run in registration order. Must be set before Start.
func (c *Conduit[T]) OnRelease(fn func()) {
	c.releases = append(c.releases, fn)
}

// Start hands the subscription to the subscriber. Events offered while OnSubscribe is running are held back and
// delivered once it returns, so OnSubscribe is always the first hook.
func (c *Conduit[T]) Start() {
	c.mu.Lock()
	c.starting = true
	c.mu.Unlock()

	c.downstream.OnSubscribe(c)

	c.mu.Lock()
	c.starting = false
	requested := c.pending
	c.pending = demand.None()
	c.drainLocked()

	if requested.Positive() && c.onRequest != nil {
		c.onRequest(requested)
	}
}

// Request adds to the outstanding demand.
func (c *Conduit[T]) Request(d demand.Demand) {
	if !d.Positive() {
		return
	}

	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		return
	}

	c.demand = c.demand.Add(d)
	c.cond.Broadcast()

	notify := c.onRequest != nil
	if c.starting {
		c.pending = c.pending.Add(d)
		notify = false
	}

	c.drain()

	instrumentation.Metrics().Incr(c.activity, "demand_requested", 1)

	if notify {
		c.onRequest(d)
	}
}

// Cancel ends the subscription. No hook starts after Cancel returns.
func (c *Conduit[T]) Cancel() {
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		return
	}
	c.done = true
	c.cancelled = true
	c.queue = nil
	c.cond.Broadcast()
	c.mu.Unlock()

	instrumentation.Metrics().Incr(c.activity, "cancelled", 1)
	instrumentation.Logging().Debug(c.activity, "subscription cancelled")

	c.finish()
}

// Offer emits v according to the conduit's backpressure strategy. ack, if given, runs after the subscriber has
// received v. It reports whether v was accepted.
func (c *Conduit[T]) Offer(v T, ack func()) bool {
	c.mu.Lock()
	if c.done || c.terminal != nil {
		c.mu.Unlock()
		return false
	}

	item := queued[T]{v: v, ack: ack}
	hasDemand := c.demand.Exceeds(int64(len(c.queue)))

	switch {
	case hasDemand:
		c.queue = append(c.queue, item)
	case c.strategy == Drop:
		c.mu.Unlock()
		instrumentation.Metrics().Incr(c.activity, "value_dropped", 1)
		return false
	case c.strategy == Latest:
		if len(c.queue) > 0 {
			c.queue[len(c.queue)-1] = item
		} else {
			c.queue = append(c.queue, item)
		}
	case c.strategy == Strict:
		c.mu.Unlock()
		violation := &demand.ViolationError{
			Activity: c.activity,
			Message:  fmt.Sprintf("value emitted with %s outstanding", c.Outstanding()),
		}
		instrumentation.Logging().Error(c.activity, violation.Error())
		panic(violation)
	default:
		c.queue = append(c.queue, item)
	}

	c.drain()
	return true
}

// TryOffer emits v only if the subscriber has outstanding demand for it.
func (c *Conduit[T]) TryOffer(v T) bool {
	c.mu.Lock()
	if c.done || c.terminal != nil || !c.demand.Exceeds(int64(len(c.queue))) {
		c.mu.Unlock()
		return false
	}

	c.queue = append(c.queue, queued[T]{v: v})
	c.drain()
	return true
}

// Write waits until the subscriber has outstanding demand, then emits v. It returns ErrStreamClosed once the
// subscription has ended.
func (c *Conduit[T]) Write(v T) error {
	c.mu.Lock()
	if !c.done && c.terminal == nil && !c.demand.Exceeds(int64(len(c.queue))) {
		start := time.Now()
		for !c.done && c.terminal == nil && !c.demand.Exceeds(int64(len(c.queue))) {
			c.cond.Wait()
		}
		instrumentation.Metrics().Timing(c.activity, "item_backpressure", time.Since(start))
	}
	if c.done || c.terminal != nil {
		c.mu.Unlock()
		return ErrStreamClosed
	}

	c.queue = append(c.queue, queued[T]{v: v})
	c.drain()
	return nil
}

// Complete delivers the terminal signal. A successful completion is delivered after every queued value; a
// failure discards them.
func (c *Conduit[T]) Complete(completion Completion) {
	c.mu.Lock()
	if c.done || c.terminal != nil {
		c.mu.Unlock()
		return
	}
	c.terminal = &completion
	if completion.IsFailure() {
		c.queue = nil
	}
	c.cond.Broadcast()
	c.drain()
}

// Outstanding is the demand not yet claimed by queued values.
func (c *Conduit[T]) Outstanding() demand.Demand {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done {
		return demand.None()
	}
	return c.demand.Subtract(int64(len(c.queue)))
}

// Closed reports whether the subscription has ended or a terminal signal is pending.
func (c *Conduit[T]) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done || c.terminal != nil
}

// drain must be called with the lock held. It returns with the lock released.
func (c *Conduit[T]) drain() {
	if c.draining {
		c.mu.Unlock()
		return
	}
	c.draining = true
	c.drainLocked()
}

// drainLocked must be called with the lock held by the drainer. It returns with the lock released.
func (c *Conduit[T]) drainLocked() {
	for !c.cancelled {
		if len(c.queue) > 0 && c.demand.Positive() {
			item := c.queue[0]
			c.queue[0] = queued[T]{}
			c.queue = c.queue[1:]
			c.demand, _ = c.demand.Decrement()
			c.mu.Unlock()

			more, err := c.deliver(item.v)
			if item.ack != nil {
				item.ack()
			}
			instrumentation.Metrics().Incr(c.activity, "value_emitted", 1)

			if err == nil && more.Positive() {
				c.mu.Lock()
				c.demand = c.demand.Add(more)
				c.cond.Broadcast()
				c.mu.Unlock()
				if c.onRequest != nil {
					c.onRequest(more)
				}
			}

			c.mu.Lock()
			if err != nil && c.terminal == nil && !c.done {
				failure := Failure(err)
				c.terminal = &failure
				c.queue = nil
			}
			continue
		}

		if c.terminal != nil && !c.done && len(c.queue) == 0 {
			completion := *c.terminal
			c.done = true
			c.cond.Broadcast()
			c.mu.Unlock()

			if completion.IsFailure() {
				instrumentation.Logging().Error(c.activity, completion.String())
			} else {
				instrumentation.Logging().Debug(c.activity, "completed")
			}

			c.downstream.OnComplete(completion)
			c.finish()

			c.mu.Lock()
		}
		break
	}

	c.draining = false
	c.mu.Unlock()
}

func (c *Conduit[T]) deliver(v T) (more demand.Demand, err error) {
	defer func() {
		if r := recover(); r != nil {
			if violation, ok := r.(*demand.ViolationError); ok {
				panic(violation)
			}
			err = &PanicError{Activity: c.activity, Value: r}
		}
	}()

	return c.downstream.OnNext(v), nil
}

func (c *Conduit[T]) finish() {
	c.once.Do(func() {
		for _, release := range c.releases {
			release()
		}
	})
}
