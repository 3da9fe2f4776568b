package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// New - creates the application logger. Unknown levels fall back to info.
func New(level string, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
		logger.Warnf("Unknown log level %q, using info", level)
	}
	logger.SetLevel(parsed)
	return logger
}
