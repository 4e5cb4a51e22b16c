package utils

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// App default configurations
var (
	ModName = "utils"
	log     = logrus.WithField(
		"module", ModName,
	)
	DefaultLoglvl    = logrus.InfoLevel
	DefaultLogOutput = os.Stdout
	DefaultFormater  = &logrus.TextFormatter{FullTimestamp: true}
)

// Select Log Level from string
func ParseLogLevel(lvl string) logrus.Level {
	switch lvl {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		log.Warnf("unknown log level %q, using %s", lvl, DefaultLoglvl)
		return DefaultLoglvl
	}
}

// ParseLogOutput returns stdout for "terminal" (or empty), otherwise the
// given path is opened in append mode.
func ParseLogOutput(output string) (io.Writer, error) {
	switch output {
	case "", "terminal":
		return DefaultLogOutput, nil
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to open log file %s", output)
		}
		return f, nil
	}
}

// parse Formatter from string
func ParseLogFormatter(format string) logrus.Formatter {
	switch format {
	case "text":
		return &logrus.TextFormatter{FullTimestamp: true}
	case "json":
		return &logrus.JSONFormatter{}
	default:
		return DefaultFormater
	}
}
