package storage

import (
	"github.com/sirupsen/logrus"
)

// logger traces storage calls when the storage was configured with Debugger: true.
// Traces are written at info so they show up without lowering the shared logger's level.
type logger struct {
	entry           *logrus.Entry
	debuggerEnabled bool
}

func newLogger(l *logrus.Logger, enabled bool) *logger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &logger{
		entry:           l.WithField("component", "storage"),
		debuggerEnabled: enabled,
	}
}

func (l *logger) debug(s string, args ...interface{}) {
	if l != nil && l.debuggerEnabled && l.entry != nil {
		l.entry.Infof(s, args...)
	}
}

func (l *logger) warn(err error, s string, args ...interface{}) {
	if l != nil && l.entry != nil {
		l.entry.WithError(err).Warnf(s, args...)
	}
}
