// Package scheduler provides the timer abstraction time-based sources and operators are driven by.
package scheduler

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Cancellable stops a scheduled callback. It is safe to call more than once and after the callback has run.
type Cancellable interface {
	Cancel()
}

// Scheduler runs callbacks after a delay.
type Scheduler interface {
	Now() time.Time
	ScheduleAfter(d time.Duration, fn func()) Cancellable
}

// Real schedules on the wall clock.
func Real() Scheduler {
	return FromClock(clockwork.NewRealClock())
}

// FromClock schedules callbacks as timers on clock. Callbacks run on their own goroutine, as with time.AfterFunc.
func FromClock(clock clockwork.Clock) Scheduler {
	return clockScheduler{clock: clock}
}

type clockScheduler struct {
	clock clockwork.Clock
}

func (s clockScheduler) Now() time.Time {
	return s.clock.Now()
}

func (s clockScheduler) ScheduleAfter(d time.Duration, fn func()) Cancellable {
	return &timerTask{timer: s.clock.AfterFunc(d, fn)}
}

type timerTask struct {
	timer clockwork.Timer
}

func (t *timerTask) Cancel() {
	t.timer.Stop()
}

// Virtual is a manually advanced clock for tests, backed by a clockwork fake clock. Unlike timers on the fake clock
// itself, callbacks run on the goroutine calling Advance, in due-time order, with ties broken by scheduling order.
type Virtual struct {
	mu    sync.Mutex
	clock *clockwork.FakeClock
	seq   uint64
	tasks []*virtualTask
}

func NewVirtual(start time.Time) *Virtual {
	return &Virtual{clock: clockwork.NewFakeClockAt(start)}
}

// Clock is the fake clock backing v, for components that take a clockwork.Clock directly.
func (v *Virtual) Clock() clockwork.Clock {
	return v.clock
}

type virtualTask struct {
	owner *Virtual
	due   time.Time
	seq   uint64
	fn    func()
}

func (t *virtualTask) Cancel() {
	t.owner.remove(t)
}

func (v *Virtual) Now() time.Time {
	return v.clock.Now()
}

func (v *Virtual) ScheduleAfter(d time.Duration, fn func()) Cancellable {
	v.mu.Lock()
	defer v.mu.Unlock()

	if d < 0 {
		d = 0
	}
	v.seq++
	task := &virtualTask{owner: v, due: v.clock.Now().Add(d), seq: v.seq, fn: fn}
	v.tasks = append(v.tasks, task)
	return task
}

// Advance moves the clock forward by d, running every callback that falls due, including callbacks scheduled by
// callbacks run during this advance.
func (v *Virtual) Advance(d time.Duration) {
	target := v.clock.Now().Add(d)

	for {
		v.mu.Lock()
		task := v.nextDue(target)
		v.mu.Unlock()

		if task == nil {
			v.clock.Advance(target.Sub(v.clock.Now()))
			return
		}
		if step := task.due.Sub(v.clock.Now()); step > 0 {
			v.clock.Advance(step)
		}
		task.fn()
	}
}

// Pending is the number of scheduled callbacks that have not run or been cancelled.
func (v *Virtual) Pending() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.tasks)
}

// nextDue removes and returns the earliest task due at or before target. Must be called with the lock held.
func (v *Virtual) nextDue(target time.Time) *virtualTask {
	idx := -1
	for i, task := range v.tasks {
		if task.due.After(target) {
			continue
		}
		if idx < 0 || task.due.Before(v.tasks[idx].due) || (task.due.Equal(v.tasks[idx].due) && task.seq < v.tasks[idx].seq) {
			idx = i
		}
	}
	if idx < 0 {
		return nil
	}
	task := v.tasks[idx]
	v.tasks = append(v.tasks[:idx], v.tasks[idx+1:]...)
	return task
}

func (v *Virtual) remove(task *virtualTask) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i, t := range v.tasks {
		if t == task {
			v.tasks = append(v.tasks[:i], v.tasks[i+1:]...)
			return
		}
	}
}
