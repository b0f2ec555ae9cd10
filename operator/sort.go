package operator

import (
	"sort"

	"github.com/ducka/go-flow/observe"
)

type (
	SorterFunc[T any] func(left, right T) bool
)

// Sort emits every upstream item in the order given by comparer, once upstream has completed successfully. The
// sort is stable.
func Sort[T any](comparer SorterFunc[T], opts ...observe.ObservableOption) observe.OperatorFunc[T, T] {
	if comparer == nil {
		panic(`"Sort" expected comparer func`)
	}
	opts = observe.DefaultActivityName("Sort", opts)
	return func(source *observe.Observable[T]) *observe.Observable[T] {
		return Pipe2(
			source,
			Collect[T](opts...),
			FlatMap(func(items []T) *observe.Observable[T] {
				sort.Stable(newSorter[T](items, comparer))
				return observe.Sequence(items)
			}, 1, opts...),
		)
	}
}

type sorter[T any] struct {
	items    []T
	comparer SorterFunc[T]
}

func newSorter[T any](items []T, comparer SorterFunc[T]) sorter[T] {
	return sorter[T]{
		items:    items,
		comparer: comparer,
	}
}
func (s sorter[T]) Len() int           { return len(s.items) }
func (s sorter[T]) Swap(i, j int)      { s.items[i], s.items[j] = s.items[j], s.items[i] }
func (s sorter[T]) Less(i, j int) bool { return s.comparer(s.items[i], s.items[j]) }
