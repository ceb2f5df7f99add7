// Package log provides loggers for audiomix packages.
package log

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

var debug bool

// Logger is implemented by logrus loggers and entries.
type Logger interface {
	Debug(...interface{})
	Debugf(string, ...interface{})
	Info(...interface{})
	Infof(string, ...interface{})
	Warnf(string, ...interface{})
	WithField(string, interface{}) *logrus.Entry
}

func init() {
	var err error
	debug, err = strconv.ParseBool(os.Getenv("AUDIOMIX_DEBUG"))
	if err != nil {
		debug = false
	}
}

// GetLogger returns a new logger instance.
func GetLogger() *logrus.Logger {
	l := logrus.New()
	if debug {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// WithLevel returns a new logger with level parsed from string. Debug
// environment setting takes precedence.
func WithLevel(level string) *logrus.Logger {
	l := GetLogger()
	if debug || level == "" {
		return l
	}
	if lvl, err := logrus.ParseLevel(level); err == nil {
		l.SetLevel(lvl)
	}
	return l
}

// Op returns an entry for a single operation. Parent entry fields are
// kept.
func Op(l Logger, op, id string) *logrus.Entry {
	return l.WithField("op", op).WithField("id", id)
}
