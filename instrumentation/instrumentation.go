// Package instrumentation holds the process-wide logging and metrics providers used by every stage of a
// pipeline. Both default to no-op implementations.
package instrumentation

import (
	"sync/atomic"
)

var (
	measurer atomic.Pointer[measurerHolder]
	logger   atomic.Pointer[loggerHolder]
)

type measurerHolder struct{ Measurer }
type loggerHolder struct{ Logger }

func init() {
	SetMeasurer(&NilMeasurer{})
	SetLogger(&NilLogger{})
}

func SetMeasurer(provider Measurer) {
	if provider == nil {
		panic("Metrics provider must be specified")
	}

	measurer.Store(&measurerHolder{provider})
}

func SetLogger(provider Logger) {
	if provider == nil {
		panic("Logging provider must be specified")
	}

	logger.Store(&loggerHolder{provider})
}

func Metrics() Measurer {
	return measurer.Load().Measurer
}

func Logging() Logger {
	return logger.Load().Logger
}
