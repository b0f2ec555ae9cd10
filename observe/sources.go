package observe

// Sequence observes a fixed, finite sequence of values, then completes.
func Sequence[T any](sequence []T, opts ...ObservableOption) *Observable[T] {
	items := make([]T, len(sequence))
	copy(items, sequence)

	return Create[T](func() ProduceFunc[T] {
		next := 0
		return func(e Emitter[T]) {
			for next < len(items) && e.Demand().Positive() {
				item := items[next]
				next++
				e.Send(item)
			}
			if next >= len(items) {
				e.Complete()
			}
		}
	}, DefaultActivityName("Sequence", opts)...)
}

// Array is an observable that emits items from an array
func Array[T any](items []T, opts ...ObservableOption) *Observable[T] {
	return Sequence(items, DefaultActivityName("Array", opts)...)
}

// Value is an observable that emits a single item
func Value[T any](value T, opts ...ObservableOption) *Observable[T] {
	return Sequence([]T{value}, DefaultActivityName("Value", opts)...)
}

// Empty is an observable that emits nothing. This observable completes immediately.
func Empty[T any](opts ...ObservableOption) *Observable[T] {
	return Create[T](func() ProduceFunc[T] {
		return func(e Emitter[T]) {
			e.Complete()
		}
	}, DefaultActivityName("Empty", opts)...)
}

// Fail is an observable that emits nothing and fails immediately with err.
func Fail[T any](err error, opts ...ObservableOption) *Observable[T] {
	return Create[T](func() ProduceFunc[T] {
		return func(e Emitter[T]) {
			e.Fail(err)
		}
	}, DefaultActivityName("Fail", opts)...)
}

// Range observes a range of generated integers
func Range(start, count int, opts ...ObservableOption) *Observable[int] {
	return Create[int](func() ProduceFunc[int] {
		next := start
		return func(e Emitter[int]) {
			for next < start+count && e.Demand().Positive() {
				item := next
				next++
				e.Send(item)
			}
			if next >= start+count {
				e.Complete()
			}
		}
	}, DefaultActivityName("Range", opts)...)
}

// Generate observes the values returned by fn, called once per demanded value. It never completes.
func Generate[T any](fn func() T, opts ...ObservableOption) *Observable[T] {
	if fn == nil {
		panic(`"Generate" expected a generator func`)
	}

	return Create[T](func() ProduceFunc[T] {
		return func(e Emitter[T]) {
			for e.Demand().Positive() && e.Context().Err() == nil {
				e.Send(fn())
			}
		}
	}, DefaultActivityName("Generate", opts)...)
}

// Repeat observes v forever.
func Repeat[T any](v T, opts ...ObservableOption) *Observable[T] {
	return Generate(func() T { return v }, DefaultActivityName("Repeat", opts)...)
}
