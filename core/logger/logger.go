package logger

import "sync"

// LogFormat is format type
type LogFormat string

const (
	TextFormat LogFormat = "text"
	JSONFormat LogFormat = "json"
)

// LogLevel is Logger Level type
type LogLevel string

const (
	// TraceLevel Designates finer-grained informational events than the Debug.
	TraceLevel LogLevel = "trace"
	// DebugLevel Usually only enabled when debugging. Very verbose logging.
	DebugLevel LogLevel = "debug"
	// InfoLevel General operational entries about what's going on inside the application.
	InfoLevel LogLevel = "info"
	// WarnLevel Non-critical entries that deserve eyes.
	WarnLevel LogLevel = "warn"
	// ErrorLevel Used for errors that should definitely be noted.
	ErrorLevel LogLevel = "error"
	// FatalLevel Logs and then calls `os.Exit(1)`. highest level of severity.
	FatalLevel LogLevel = "fatal"
)

// ILogger is a logger interface
type ILogger interface {
	WithFields(map[string]any) ILogger
	Trace(args ...any)
	Tracef(format string, args ...any)
	Debug(args ...any)
	Debugf(format string, args ...any)
	Info(args ...any)
	Infof(format string, args ...any)
	Warn(args ...any)
	Warnf(format string, args ...any)
	Error(args ...any)
	Errorf(format string, args ...any)
	Fatal(args ...any)
	Fatalf(format string, args ...any)
	GetLevel() LogLevel
	IsLevelEnabled(level LogLevel) bool
}

var (
	mu            sync.RWMutex
	defaultLogger ILogger = nopLogger{}
)

func Default() ILogger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

func SetDefault(logger ILogger) {
	if logger == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = logger
}

type nopLogger struct{}

func (l nopLogger) WithFields(map[string]any) ILogger { return l }
func (nopLogger) Trace(args ...any) {}
func (nopLogger) Tracef(format string, args ...any) {}
func (nopLogger) Debug(args ...any) {}
func (nopLogger) Debugf(format string, args ...any) {}
func (nopLogger) Info(args ...any) {}
func (nopLogger) Infof(format string, args ...any) {}
func (nopLogger) Warn(args ...any) {}
func (nopLogger) Warnf(format string, args ...any) {}
func (nopLogger) Error(args ...any) {}
func (nopLogger) Errorf(format string, args ...any) {}
func (nopLogger) Fatal(args ...any) {}
func (nopLogger) Fatalf(format string, args ...any) {}
func (nopLogger) GetLevel() LogLevel { return InfoLevel }
func (nopLogger) IsLevelEnabled(level LogLevel) bool { return false }
