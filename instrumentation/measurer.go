package instrumentation

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Measurer interface {
	Incr(activity string, name string, value float64, tags ...string)
	Timing(activity string, name string, value time.Duration, tags ...string)
}

type NilMeasurer struct{}

func (*NilMeasurer) Incr(activity string, name string, value float64, tags ...string)         {}
func (*NilMeasurer) Timing(activity string, name string, value time.Duration, tags ...string) {}

// PrometheusMeasurer exports counters and timings as two labelled vectors.
type PrometheusMeasurer struct {
	counters *prometheus.CounterVec
	timings  *prometheus.HistogramVec
}

func NewPrometheusMeasurer(registerer prometheus.Registerer) (*PrometheusMeasurer, error) {
	labels := []string{"activity", "name", "tags"}

	m := &PrometheusMeasurer{
		counters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flow",
			Name:      "events_total",
			Help:      "Count of pipeline events by activity.",
		}, labels),
		timings: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "flow",
			Name:      "duration_seconds",
			Help:      "Duration of pipeline operations by activity.",
			Buckets:   prometheus.DefBuckets,
		}, labels),
	}

	if err := registerer.Register(m.counters); err != nil {
		return nil, err
	}
	if err := registerer.Register(m.timings); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *PrometheusMeasurer) Incr(activity string, name string, value float64, tags ...string) {
	m.counters.WithLabelValues(activity, name, strings.Join(tags, ",")).Add(value)
}

func (m *PrometheusMeasurer) Timing(activity string, name string, value time.Duration, tags ...string) {
	m.timings.WithLabelValues(activity, name, strings.Join(tags, ",")).Observe(value.Seconds())
}
