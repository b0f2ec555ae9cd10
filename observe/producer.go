package observe

import (
	"github.com/ducka/go-flow/demand"
)

// StreamWriter is handed to a ProducerFunc.
type StreamWriter[T any] interface {
	// Write emits v. With the default Block strategy it waits until the subscriber has outstanding demand. It
	// returns ErrStreamClosed once the subscription has ended.
	Write(v T) error
	// TryWrite emits v only if the subscriber has outstanding demand for it.
	TryWrite(v T) bool
	// Error terminates the subscription with err.
	Error(err error)
	// Close terminates the subscription successfully.
	Close()
}

// ProducerFunc produces values on its own goroutine. The subscription completes when it returns.
type ProducerFunc[T any] func(ctx Context, writer StreamWriter[T])

// Producer observes items produced by a callback function running on its own goroutine. ctx is done once the
// subscription has ended, which is the producer's cue to return.
func Producer[T any](producer ProducerFunc[T], opts ...ObservableOption) *Observable[T] {
	if producer == nil {
		panic(`"Producer" expected a producer func`)
	}

	return newObservable[T](
		func(opts observableOptions, subscriber Subscriber[T]) {
			conduit := NewConduit[T](subscriber, opts.strategyOr(Block), opts.activity)
			ctx := activate(opts, conduit)
			writer := &streamWriter[T]{conduit: conduit, strategy: opts.strategyOr(Block)}

			conduit.Start()

			go func() {
				defer func() {
					if r := recover(); r != nil {
						if violation, ok := r.(*demand.ViolationError); ok {
							panic(violation)
						}
						conduit.Complete(Failure(&PanicError{Activity: opts.activity, Value: r}))
					}
				}()

				producer(ctx, writer)
				conduit.Complete(Finished())
			}()
		},
		newOptions(),
		DefaultActivityName("Producer", opts),
	)
}

type streamWriter[T any] struct {
	conduit  *Conduit[T]
	strategy BackpressureStrategy
}

func (w *streamWriter[T]) Write(v T) error {
	if w.strategy == Block {
		return w.conduit.Write(v)
	}
	if w.conduit.Closed() {
		return ErrStreamClosed
	}
	w.conduit.Offer(v, nil)
	return nil
}

func (w *streamWriter[T]) TryWrite(v T) bool {
	return w.conduit.TryOffer(v)
}

func (w *streamWriter[T]) Error(err error) {
	w.conduit.Complete(Failure(err))
}

func (w *streamWriter[T]) Close() {
	w.conduit.Complete(Finished())
}
