package operator

import (
	"github.com/ducka/go-flow/observe"
	"github.com/ducka/go-flow/utils"
)

// Decode deserializes every payload into a T. A payload that fails to decode is handled like any other transform
// failure: it terminates the subscription, or is skipped with ContinueOnError.
func Decode[T any](marshaller utils.Marshaller, opts ...observe.ObservableOption) observe.OperatorFunc[[]byte, T] {
	if marshaller == nil {
		panic(`"Decode" expected a marshaller`)
	}
	return TryMap(func(payload []byte, index int) (T, error) {
		var item T
		err := marshaller.Deserialize(payload, &item)
		return item, err
	}, observe.DefaultActivityName("Decode", opts)...)
}

// Encode serializes every item. A failure to encode is a transform failure.
func Encode[T any](marshaller utils.Marshaller, opts ...observe.ObservableOption) observe.OperatorFunc[T, []byte] {
	if marshaller == nil {
		panic(`"Encode" expected a marshaller`)
	}
	return TryMap(func(item T, index int) ([]byte, error) {
		return marshaller.Serialize(item)
	}, observe.DefaultActivityName("Encode", opts)...)
}
