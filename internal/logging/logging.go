// Package logging builds the process logger.
package logging

import (
	"io"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

const (
	maxMessageLength = 500
	truncatedSuffix  = "... [TRUNCATED]"
)

// New returns a logger writing human readable lines to w.
func New(w io.Writer, level logrus.Level) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(level)
	log.SetFormatter(&truncatingFormatter{
		Formatter: &logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05",
		},
		max: maxMessageLength,
	})
	return log
}

// ParseLevel maps a config value to a level, defaulting to info.
func ParseLevel(s string) logrus.Level {
	level, err := logrus.ParseLevel(s)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// truncatingFormatter shortens very long messages, such as raw API
// responses, before handing the entry to the wrapped formatter.
type truncatingFormatter struct {
	logrus.Formatter
	max int
}

func (f *truncatingFormatter) Format(e *logrus.Entry) ([]byte, error) {
	if len(e.Message) <= f.max {
		return f.Formatter.Format(e)
	}
	cut := f.max
	for cut > 0 && !utf8.RuneStart(e.Message[cut]) {
		cut--
	}
	short := *e
	short.Message = e.Message[:cut] + truncatedSuffix
	return f.Formatter.Format(&short)
}
