package instrumentation

import (
	"github.com/sirupsen/logrus"
)

type Logger interface {
	Debug(activity string, message string)
	Info(activity string, message string)
	Warn(activity string, message string)
	Error(activity string, message string)
}

type NilLogger struct{}

func (*NilLogger) Debug(string, string) {}
func (*NilLogger) Info(string, string)  {}
func (*NilLogger) Warn(string, string)  {}
func (*NilLogger) Error(string, string) {}

// LogrusLogger writes pipeline events through logrus, tagging every entry with its activity.
type LogrusLogger struct {
	entry *logrus.Entry
}

func NewLogrusLogger(l *logrus.Logger) *LogrusLogger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &LogrusLogger{entry: logrus.NewEntry(l)}
}

func (l *LogrusLogger) Debug(activity string, message string) {
	l.entry.WithField("activity", activity).Debug(message)
}

func (l *LogrusLogger) Info(activity string, message string) {
	l.entry.WithField("activity", activity).Info(message)
}

func (l *LogrusLogger) Warn(activity string, message string) {
	l.entry.WithField("activity", activity).Warn(message)
}

func (l *LogrusLogger) Error(activity string, message string) {
	l.entry.WithField("activity", activity).Error(message)
}
