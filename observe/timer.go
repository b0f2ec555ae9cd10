package observe

import (
	"fmt"
	"sync"
	"time"

	"github.com/ducka/go-flow/scheduler"
	"github.com/robfig/cron/v3"
)

// Timer is an observable that emits the scheduler's time on a specified interval. Ticks that fall while the
// subscriber has no outstanding demand are dropped.
func Timer(interval time.Duration, sch scheduler.Scheduler, opts ...ObservableOption) *Observable[time.Time] {
	if interval <= 0 {
		panic(`"Timer" expected a positive interval`)
	}

	return ticker(func(now time.Time) time.Time {
		return now.Add(interval)
	}, sch, DefaultActivityName("Timer", opts))
}

// Cron is an observable that emits items on a specified cron schedule. The pattern accepts an optional seconds
// field and descriptors such as @hourly.
func Cron(cronPattern string, sch scheduler.Scheduler, opts ...ObservableOption) (*Observable[time.Time], error) {
	parser := cron.NewParser(
		cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)

	schedule, err := parser.Parse(cronPattern)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cron pattern: %w", err)
	}

	return ticker(schedule.Next, sch, DefaultActivityName("Cron", opts)), nil
}

func ticker(next func(now time.Time) time.Time, sch scheduler.Scheduler, opts []ObservableOption) *Observable[time.Time] {
	if sch == nil {
		sch = scheduler.Real()
	}

	return newObservable[time.Time](
		func(opts observableOptions, subscriber Subscriber[time.Time]) {
			conduit := NewConduit[time.Time](subscriber, opts.strategyOr(Drop), opts.activity)
			activate(opts, conduit)

			t := &tick{conduit: conduit, sch: sch, next: next}
			conduit.OnRelease(t.stop)
			conduit.Start()
			t.schedule()
		},
		newOptions(),
		opts,
	)
}

type tick struct {
	mu      sync.Mutex
	conduit *Conduit[time.Time]
	sch     scheduler.Scheduler
	next    func(now time.Time) time.Time
	task    scheduler.Cancellable
	stopped bool
}

// schedule arms the next tick. A schedule with no further activations, such as a cron pattern for 30 February,
// finishes the stream instead.
func (t *tick) schedule() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	now := t.sch.Now()
	at := t.next(now)
	if at.IsZero() {
		t.stopped = true
		t.mu.Unlock()
		t.conduit.Complete(Finished())
		return
	}
	t.task = t.sch.ScheduleAfter(at.Sub(now), t.fire)
	t.mu.Unlock()
}

func (t *tick) fire() {
	t.conduit.Offer(t.sch.Now(), nil)
	t.schedule()
}

func (t *tick) stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopped = true
	if t.task != nil {
		t.task.Cancel()
	}
}
