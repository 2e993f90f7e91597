// Package logger writes the updater's diagnostic log: stdout always, plus a
// dated file under the user's config directory when Init is given one.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"
)

// Level represents log severity
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

type Logger struct {
	mu    sync.Mutex
	level Level
	out   *log.Logger
	file  *os.File
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// Init sets up the process-wide logger. With a non-empty logDir the log goes
// to a dated file there, mirrored to stdout; otherwise stdout only. Later
// calls are no-ops.
func Init(logDir string, minLevel Level) error {
	var initErr error
	once.Do(func() {
		defaultLogger = &Logger{
			level: minLevel,
			out:   log.New(os.Stdout, "", 0),
		}

		if logDir == "" {
			return
		}
		if err := os.MkdirAll(logDir, 0755); err != nil {
			initErr = fmt.Errorf("create log directory: %w", err)
			return
		}

		name := fmt.Sprintf("zwflasher_%s.log", time.Now().Format("2006-01-02"))
		f, err := os.OpenFile(filepath.Join(logDir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			initErr = fmt.Errorf("open log file: %w", err)
			return
		}

		defaultLogger.file = f
		defaultLogger.out = log.New(io.MultiWriter(os.Stdout, f), "", 0)
	})
	return initErr
}

// Close closes the log file if one is open
func Close() {
	if defaultLogger != nil && defaultLogger.file != nil {
		defaultLogger.file.Close()
	}
}

func active() *Logger {
	if defaultLogger == nil {
		defaultLogger = &Logger{
			level: INFO,
			out:   log.New(os.Stdout, "", 0),
		}
	}
	return defaultLogger
}

func (l *Logger) write(level Level, format string, args ...interface{}) {
	if level < l.level {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Caller frames: write, the public wrapper, the call site.
	caller := "unknown"
	if _, file, line, ok := runtime.Caller(2); ok {
		caller = fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}

	l.out.Printf("%s [%s] %s: %s",
		time.Now().Format("2006-01-02 15:04:05.000"), level, caller,
		fmt.Sprintf(format, args...))
}

// Debug logs chatty diagnostics, filtered out at the default INFO level
func Debug(format string, args ...interface{}) {
	active().write(DEBUG, format, args...)
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	active().write(INFO, format, args...)
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	active().write(WARN, format, args...)
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	active().write(ERROR, format, args...)
}

// WithError logs err with a formatted context message; a nil err is ignored
func WithError(err error, format string, args ...interface{}) {
	if err == nil {
		return
	}
	active().write(ERROR, "%s: %v", fmt.Sprintf(format, args...), err)
}
