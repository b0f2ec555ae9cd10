package observe

import (
	"sync"

	"github.com/ducka/go-flow/demand"
)

// Emitter is handed to a ProduceFunc. Values sent beyond the subscriber's outstanding demand panic with a
// *demand.ViolationError unless the observable was built with a different backpressure strategy.
type Emitter[T any] interface {
	Send(v T)
	Complete()
	Fail(err error)
	// Demand is the outstanding demand not yet satisfied by sent values.
	Demand() demand.Demand
	Context() Context
}

// ProduceFunc is invoked serially: once when the subscription is granted and again whenever the subscriber
// adds demand. It should send at most Demand() values and return.
type ProduceFunc[T any] func(emitter Emitter[T])

// Create observes values produced by a custom production callback. factory is called once per subscription, so
// every subscriber gets its own production state.
func Create[T any](factory func() ProduceFunc[T], opts ...ObservableOption) *Observable[T] {
	if factory == nil {
		panic(`"Create" expected a factory func`)
	}

	return newObservable[T](
		func(opts observableOptions, subscriber Subscriber[T]) {
			conduit := NewConduit[T](subscriber, opts.strategyOr(Strict), opts.activity)
			ctx := activate(opts, conduit)

			p := &pump[T]{
				produce: factory(),
				emitter: &emitter[T]{conduit: conduit, ctx: ctx},
			}

			conduit.OnRequest(func(demand.Demand) { p.run() })
			conduit.Start()
			p.run()
		},
		newOptions(),
		DefaultActivityName("Create", opts),
	)
}

type emitter[T any] struct {
	conduit *Conduit[T]
	ctx     Context
}

func (e *emitter[T]) Send(v T) {
	e.conduit.Offer(v, nil)
}

func (e *emitter[T]) Complete() {
	e.conduit.Complete(Finished())
}

func (e *emitter[T]) Fail(err error) {
	e.conduit.Complete(Failure(err))
}

func (e *emitter[T]) Demand() demand.Demand {
	return e.conduit.Outstanding()
}

func (e *emitter[T]) Context() Context {
	return e.ctx
}

// pump runs the produce func serially. A run requested while another is in progress is folded into one more
// pass by the running goroutine.
type pump[T any] struct {
	mu      sync.Mutex
	running bool
	again   bool
	produce ProduceFunc[T]
	emitter *emitter[T]
}

func (p *pump[T]) run() {
	p.mu.Lock()
	if p.running {
		p.again = true
		p.mu.Unlock()
		return
	}
	p.running = true
	p.mu.Unlock()

	for {
		p.call()

		p.mu.Lock()
		if !p.again || p.emitter.conduit.Closed() {
			p.running = false
			p.again = false
			p.mu.Unlock()
			return
		}
		p.again = false
		p.mu.Unlock()
	}
}

func (p *pump[T]) call() {
	defer func() {
		if r := recover(); r != nil {
			if violation, ok := r.(*demand.ViolationError); ok {
				p.mu.Lock()
				p.running = false
				p.mu.Unlock()
				panic(violation)
			}
			p.emitter.conduit.Complete(Failure(&PanicError{Activity: p.emitter.ctx.Activity, Value: r}))
		}
	}()

	if p.emitter.conduit.Closed() {
		return
	}
	p.produce(p.emitter)
}
