package instrumentation

import (
	"bytes"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentation(t *testing.T) {
	t.Run("When no providers have been configured", func(t *testing.T) {
		t.Run("Then the nil providers should be in place", func(t *testing.T) {
			assert.IsType(t, &NilLogger{}, Logging())
			assert.IsType(t, &NilMeasurer{}, Metrics())
		})
	})

	t.Run("When setting a nil provider", func(t *testing.T) {
		t.Run("Then it should panic", func(t *testing.T) {
			assert.Panics(t, func() { SetLogger(nil) })
			assert.Panics(t, func() { SetMeasurer(nil) })
		})
	})

	t.Run("When logging through logrus", func(t *testing.T) {
		buf := &bytes.Buffer{}
		l := logrus.New()
		l.SetOutput(buf)
		l.SetLevel(logrus.DebugLevel)
		l.SetFormatter(&logrus.JSONFormatter{})

		SetLogger(NewLogrusLogger(l))
		defer SetLogger(&NilLogger{})

		Logging().Error("Map", "transform failed")

		t.Run("Then the entry should carry the activity", func(t *testing.T) {
			assert.Contains(t, buf.String(), `"activity":"Map"`)
			assert.Contains(t, buf.String(), `"msg":"transform failed"`)
		})
	})

	t.Run("When measuring through prometheus", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		m, err := NewPrometheusMeasurer(reg)
		require.NoError(t, err)

		m.Incr("Filter", "value_emitted", 2)
		m.Incr("Filter", "value_emitted", 1)
		m.Timing("Filter", "operation_duration", 10*time.Millisecond)

		t.Run("Then the counter should accumulate", func(t *testing.T) {
			assert.Equal(t, float64(3), testutil.ToFloat64(m.counters.WithLabelValues("Filter", "value_emitted", "")))
		})

		t.Run("Then registering twice should fail", func(t *testing.T) {
			_, err := NewPrometheusMeasurer(reg)
			assert.Error(t, err)
		})
	})
}
