package subject

import (
	"github.com/ducka/go-flow/observe"
)

// Published pairs a stored field with the subject that announces its changes. Owners create it explicitly for
// the fields they want to observe.
type Published[T any] struct {
	subject *CurrentValue[T]
}

func NewPublished[T any](initial T) *Published[T] {
	return &Published[T]{subject: NewCurrentValue(initial)}
}

func (p *Published[T]) Get() T {
	return p.subject.Value()
}

// Set stores v and publishes it to every subscriber.
func (p *Published[T]) Set(v T) {
	p.subject.Send(v)
}

// Publisher observes the field: the current value first, then every change.
func (p *Published[T]) Publisher(opts ...observe.ObservableOption) *observe.Observable[T] {
	return p.subject.AsObservable(observe.DefaultActivityName("Published", opts)...)
}

// Close completes the publisher and freezes the field: Set after Close is a no-op and Get keeps the last value.
func (p *Published[T]) Close() {
	p.subject.Complete()
}
