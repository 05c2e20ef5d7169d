/*
Custom logger with the 4 levels of logging (Debug, Error, Warn, Info)
*/
package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

var logger = logrus.New()

func init() {
	logger.Out = os.Stderr
	logger.Level = logrus.InfoLevel
	logger.Formatter = new(prefixed.TextFormatter)
}

func SetOut(out io.Writer) {
	logger.Out = out
}

func SetLevel(level string) error {
	l, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logger.Level = l
	return nil
}

func Debug(format string, args ...interface{}) {
	logger.Debugf(format, args...)
}

func Error(format string, args ...interface{}) {
	logger.Errorf(format, args...)
}

func Warn(format string, args ...interface{}) {
	logger.Warnf(format, args...)
}

func Info(format string, args ...interface{}) {
	logger.Infof(format, args...)
}

//WithFields returns an entry carrying the given fields, e.g. for run summaries.
func WithFields(fields map[string]interface{}) *logrus.Entry {
	return logger.WithFields(fields)
}

//Leveled adapts the package logger to loggers expecting key/value pairs,
//like the retrying HTTP client.
type Leveled struct{}

func (Leveled) Error(msg string, keysAndValues ...interface{}) {
	logger.WithFields(pairs(keysAndValues)).Error(msg)
}

func (Leveled) Warn(msg string, keysAndValues ...interface{}) {
	logger.WithFields(pairs(keysAndValues)).Warn(msg)
}

func (Leveled) Info(msg string, keysAndValues ...interface{}) {
	logger.WithFields(pairs(keysAndValues)).Info(msg)
}

func (Leveled) Debug(msg string, keysAndValues ...interface{}) {
	logger.WithFields(pairs(keysAndValues)).Debug(msg)
}

func pairs(keysAndValues []interface{}) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields[key] = keysAndValues[i+1]
		}
	}
	return fields
}
