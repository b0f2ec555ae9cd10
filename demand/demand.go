package demand

import (
	"math"
	"strconv"
)

// MaxCount is the largest finite demand. Additions that would overflow saturate here.
const MaxCount int64 = math.MaxInt64

// Demand describes how many more values a subscriber is willing to receive. The zero value is None.
type Demand struct {
	n         int64
	unbounded bool
}

// Unbounded returns a demand with no limit.
func Unbounded() Demand {
	return Demand{unbounded: true}
}

// None returns a demand of zero.
func None() Demand {
	return Demand{}
}

// Max returns a demand for exactly n more values. A negative n is a programmer error and panics with a
// *ViolationError; use New when n comes from outside the program.
func Max(n int64) Demand {
	d, err := New(n)
	if err != nil {
		panic(err)
	}
	return d
}

// New validates n and returns a demand for exactly n more values.
func New(n int64) (Demand, error) {
	if n < 0 {
		return Demand{}, &ViolationError{Requested: n, Message: "demand must not be negative"}
	}
	return Demand{n: n}, nil
}

// Add returns the saturating sum of a and b.
func Add(a, b Demand) Demand {
	return a.Add(b)
}

// Add returns the saturating sum of d and other. Unbounded absorbs everything.
func (d Demand) Add(other Demand) Demand {
	if d.unbounded || other.unbounded {
		return Unbounded()
	}
	if d.n > MaxCount-other.n {
		return Demand{n: MaxCount}
	}
	return Demand{n: d.n + other.n}
}

// Decrement consumes one unit of demand. It fails with a *ViolationError when no demand is left.
func (d Demand) Decrement() (Demand, error) {
	if d.unbounded {
		return d, nil
	}
	if d.n == 0 {
		return d, &ViolationError{Message: "value emitted beyond granted demand"}
	}
	return Demand{n: d.n - 1}, nil
}

// Subtract removes n units, flooring at zero.
func (d Demand) Subtract(n int64) Demand {
	if d.unbounded || n <= 0 {
		return d
	}
	if n >= d.n {
		return None()
	}
	return Demand{n: d.n - n}
}

// Scale multiplies a finite demand by n, saturating at MaxCount.
func (d Demand) Scale(n int64) Demand {
	if d.unbounded {
		return d
	}
	if n <= 0 || d.n == 0 {
		return None()
	}
	if d.n > MaxCount/n {
		return Demand{n: MaxCount}
	}
	return Demand{n: d.n * n}
}

// Min returns the smaller of d and other.
func (d Demand) Min(other Demand) Demand {
	switch {
	case d.unbounded:
		return other
	case other.unbounded:
		return d
	case d.n < other.n:
		return d
	default:
		return other
	}
}

// Exceeds reports whether d allows more than n values.
func (d Demand) Exceeds(n int64) bool {
	return d.unbounded || d.n > n
}

func (d Demand) IsUnbounded() bool {
	return d.unbounded
}

func (d Demand) IsZero() bool {
	return !d.unbounded && d.n == 0
}

// Positive reports whether at least one more value may be emitted.
func (d Demand) Positive() bool {
	return d.unbounded || d.n > 0
}

// Count returns the finite count. Unbounded demand reports MaxCount.
func (d Demand) Count() int64 {
	if d.unbounded {
		return MaxCount
	}
	return d.n
}

func (d Demand) String() string {
	if d.unbounded {
		return "unbounded"
	}
	return "max(" + strconv.FormatInt(d.n, 10) + ")"
}
