package operator

import (
	"github.com/ducka/go-flow/observe"
)

// If there is a commonly used sequence of operators in your code, use the `Pipe` functions to
// extract the sequence into a new operator. Even if a sequence is not that common, breaking
// it out into a single operator can improve readability.
func Pipe1[S any, O1 any](
	source *observe.Observable[S],
	f1 observe.OperatorFunc[S, O1],
) *observe.Observable[O1] {
	return f1(source)
}

func Pipe2[S any, O1 any, O2 any](
	source *observe.Observable[S],
	f1 observe.OperatorFunc[S, O1],
	f2 observe.OperatorFunc[O1, O2],
) *observe.Observable[O2] {
	return f2(f1(source))
}

func Pipe3[S any, O1 any, O2 any, O3 any](
	source *observe.Observable[S],
	f1 observe.OperatorFunc[S, O1],
	f2 observe.OperatorFunc[O1, O2],
	f3 observe.OperatorFunc[O2, O3],
) *observe.Observable[O3] {
	return f3(f2(f1(source)))
}

func Pipe4[S any, O1 any, O2 any, O3 any, O4 any](
	source *observe.Observable[S],
	f1 observe.OperatorFunc[S, O1],
	f2 observe.OperatorFunc[O1, O2],
	f3 observe.OperatorFunc[O2, O3],
	f4 observe.OperatorFunc[O3, O4],
) *observe.Observable[O4] {
	return f4(f3(f2(f1(source))))
}

func Pipe5[S any, O1 any, O2 any, O3 any, O4 any, O5 any](
	source *observe.Observable[S],
	f1 observe.OperatorFunc[S, O1],
	f2 observe.OperatorFunc[O1, O2],
	f3 observe.OperatorFunc[O2, O3],
	f4 observe.OperatorFunc[O3, O4],
	f5 observe.OperatorFunc[O4, O5],
) *observe.Observable[O5] {
	return f5(f4(f3(f2(f1(source)))))
}

func Pipe6[S any, O1 any, O2 any, O3 any, O4 any, O5 any, O6 any](
	source *observe.Observable[S],
	f1 observe.OperatorFunc[S, O1],
	f2 observe.OperatorFunc[O1, O2],
	f3 observe.OperatorFunc[O2, O3],
	f4 observe.OperatorFunc[O3, O4],
	f5 observe.OperatorFunc[O4, O5],
	f6 observe.OperatorFunc[O5, O6],
) *observe.Observable[O6] {
	return f6(f5(f4(f3(f2(f1(source))))))
}
