package observe

import (
	"sync"

	"github.com/ducka/go-flow/demand"
)

// Cancellable is the handle returned by Subscribe. Cancelling it ends the subscription it is attached to.
// Cancel may be called before the subscription is granted; the subscription is then cancelled as soon as it
// arrives.
type Cancellable struct {
	mu           sync.Mutex
	subscription Subscription
	cancelFn     func()
	cancelled    bool
}

// NewCancellable wraps an arbitrary teardown func in a Cancellable.
func NewCancellable(cancel func()) *Cancellable {
	return &Cancellable{cancelFn: cancel}
}

func (c *Cancellable) attach(subscription Subscription) {
	c.mu.Lock()
	if c.cancelled {
		c.mu.Unlock()
		subscription.Cancel()
		return
	}
	c.subscription = subscription
	c.mu.Unlock()
}

// Cancel is idempotent.
func (c *Cancellable) Cancel() {
	c.mu.Lock()
	if c.cancelled {
		c.mu.Unlock()
		return
	}
	c.cancelled = true
	subscription, cancelFn := c.subscription, c.cancelFn
	c.subscription, c.cancelFn = nil, nil
	c.mu.Unlock()

	if subscription != nil {
		subscription.Cancel()
	}
	if cancelFn != nil {
		cancelFn()
	}
}

// Request adds demand to the attached subscription. It is a no-op before the subscription is granted or after
// Cancel.
func (c *Cancellable) Request(d demand.Demand) {
	c.mu.Lock()
	subscription := c.subscription
	c.mu.Unlock()

	if subscription != nil {
		subscription.Request(d)
	}
}

// Store adds the handle to a bag so that it is cancelled with it.
func (c *Cancellable) Store(bag *Bag) *Cancellable {
	bag.Add(c)
	return c
}

// Bag owns a set of Cancellables and cancels them together, typically from the owner's teardown path.
type Bag struct {
	mu        sync.Mutex
	items     []*Cancellable
	cancelled bool
}

// Add stores c. Adding to a bag that has already been cancelled cancels c at once.
func (b *Bag) Add(c *Cancellable) {
	b.mu.Lock()
	if b.cancelled {
		b.mu.Unlock()
		c.Cancel()
		return
	}
	b.items = append(b.items, c)
	b.mu.Unlock()
}

func (b *Bag) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

func (b *Bag) Cancel() {
	b.mu.Lock()
	items := b.items
	b.items = nil
	b.cancelled = true
	b.mu.Unlock()

	for _, c := range items {
		c.Cancel()
	}
}
