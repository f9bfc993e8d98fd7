package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Log is the process-wide logger. It starts as a usable default so packages
// and tests that run before Init still emit to stderr.
var Log = logrus.New()

func Init() {
	InitWithOutput(os.Stdout, os.Getenv("LOG_LEVEL"))
}

func InitWithOutput(out io.Writer, level string) {
	Log = logrus.New()
	Log.SetOutput(out)
	Log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})

	if level == "" {
		level = "info"
	}

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	Log.SetLevel(logLevel)
}

func WithField(key string, value interface{}) *logrus.Entry {
	return Log.WithField(key, value)
}

func WithFields(fields logrus.Fields) *logrus.Entry {
	return Log.WithFields(fields)
}

// Component tags entries with the subsystem that produced them.
func Component(name string) *logrus.Entry {
	return Log.WithField("component", name)
}
