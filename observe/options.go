package observe

import (
	"context"
	"time"

	"github.com/ducka/go-flow/demand"
)

type observableOptions struct {
	ctx                  context.Context
	activity             string
	backpressureStrategy BackpressureStrategy
	errorStrategy        ErrorStrategy
	retryAttempts        uint
	retryDelay           time.Duration
}

func newOptions() observableOptions {
	return observableOptions{
		ctx:           context.Background(),
		errorStrategy: StopOnError,
		retryAttempts: 1,
	}
}

// inherit copies the settings that propagate from a source observable to the observables built on it.
func (o observableOptions) inherit() observableOptions {
	opts := newOptions()
	opts.ctx = o.ctx
	opts.errorStrategy = o.errorStrategy
	return opts
}

func (o observableOptions) strategyOr(fallback BackpressureStrategy) BackpressureStrategy {
	if o.backpressureStrategy == "" {
		return fallback
	}
	return o.backpressureStrategy
}

type ObservableOption func(options *observableOptions)

// WithContext fails active subscriptions with the context's error once it is done.
func WithContext(ctx context.Context) ObservableOption {
	return func(options *observableOptions) {
		options.ctx = ctx
	}
}

func WithErrorStrategy(strategy ErrorStrategy) ObservableOption {
	return func(options *observableOptions) {
		options.errorStrategy = strategy
	}
}

func WithBackpressureStrategy(strategy BackpressureStrategy) ObservableOption {
	return func(options *observableOptions) {
		options.backpressureStrategy = strategy
	}
}

func WithActivityName(activityName string) ObservableOption {
	return func(options *observableOptions) {
		options.activity = activityName
	}
}

// WithRetry makes a Future retry its perform func up to attempts times, waiting delay between tries.
func WithRetry(attempts uint, delay time.Duration) ObservableOption {
	return func(options *observableOptions) {
		if attempts < 1 {
			attempts = 1
		}
		options.retryAttempts = attempts
		options.retryDelay = delay
	}
}

// DefaultActivityName prefixes opts with an activity name, so a caller supplied name still wins.
func DefaultActivityName(name string, opts []ObservableOption) []ObservableOption {
	return append([]ObservableOption{WithActivityName(name)}, opts...)
}

type subscribeOptions struct {
	onError          OnErrorFunc
	onComplete       OnCompleteFunc
	initialDemand    demand.Demand
	demandPerValue   demand.Demand
	waitTillComplete bool
}

type SubscribeOption func(options *subscribeOptions)

func WithOnError(onError OnErrorFunc) SubscribeOption {
	return func(options *subscribeOptions) {
		options.onError = onError
	}
}

func WithOnComplete(onComplete OnCompleteFunc) SubscribeOption {
	return func(options *subscribeOptions) {
		options.onComplete = onComplete
	}
}

// WithInitialDemand sets the demand requested when the subscription is granted. Defaults to unbounded.
func WithInitialDemand(d demand.Demand) SubscribeOption {
	return func(options *subscribeOptions) {
		options.initialDemand = d
	}
}

// WithDemandPerValue sets the additional demand returned for every received value. Defaults to none.
func WithDemandPerValue(d demand.Demand) SubscribeOption {
	return func(options *subscribeOptions) {
		options.demandPerValue = d
	}
}

// WithWaitTillComplete blocks Subscribe until the subscription has ended.
func WithWaitTillComplete() SubscribeOption {
	return func(options *subscribeOptions) {
		options.waitTillComplete = true
	}
}
