package internal

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

var (
	once   sync.Once
	logger *logrus.Logger
)

// GetLogger returns the process-wide logger. It starts at WARN with text
// output until SetLogLevel and SetLogFormat apply the loaded config.
func GetLogger() *logrus.Logger {
	once.Do(func() {
		logger = logrus.New()
		logger.Out = os.Stdout
		logger.SetLevel(logrus.WarnLevel)
		logger.SetFormatter(newFormatter(LogFormatText))
	})
	return logger
}

func SetLogLevel(level logrus.Level) {
	GetLogger().SetLevel(level)
}

// SetLogFormat switches between "text" and "json" output. Unknown formats
// fall back to text.
func SetLogFormat(format string) {
	GetLogger().SetFormatter(newFormatter(format))
}

func newFormatter(format string) logrus.Formatter {
	if format == LogFormatJSON {
		return &logrus.JSONFormatter{}
	}
	return &logrus.TextFormatter{
		FullTimestamp: true,
		PadLevelText:  true,
	}
}

// LeveledLogger is the key/value logging interface expected by retryablehttp.
type LeveledLogger interface {
	Error(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

var _ LeveledLogger = &LeveledLogrus{}

// LeveledLogrus adapts a logrus logger to LeveledLogger. Pairs become fields;
// odd trailing keys and non-string keys are dropped.
type LeveledLogrus struct {
	*logrus.Logger
}

func NewLeveledLogrus(logger *logrus.Logger) *LeveledLogrus {
	return &LeveledLogrus{Logger: logger}
}

func (l *LeveledLogrus) log(level logrus.Level, msg string, keysAndValues []interface{}) {
	fields := make(logrus.Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields[key] = keysAndValues[i+1]
		}
	}
	l.WithFields(fields).Log(level, msg)
}

func (l *LeveledLogrus) Error(msg string, keysAndValues ...interface{}) {
	l.log(logrus.ErrorLevel, msg, keysAndValues)
}

func (l *LeveledLogrus) Info(msg string, keysAndValues ...interface{}) {
	l.log(logrus.InfoLevel, msg, keysAndValues)
}

func (l *LeveledLogrus) Warn(msg string, keysAndValues ...interface{}) {
	l.log(logrus.WarnLevel, msg, keysAndValues)
}

func (l *LeveledLogrus) Debug(msg string, keysAndValues ...interface{}) {
	l.log(logrus.DebugLevel, msg, keysAndValues)
}
