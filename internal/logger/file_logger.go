package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger writes leveled entries to stdout and a daily log file.
type Logger struct {
	name    string
	logDir  string
	logFile *os.File
	sugar   *zap.SugaredLogger
	mu      sync.Mutex
}

// LogLevel represents different types of log entries
type LogLevel string

const (
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARN"
	LogLevelError   LogLevel = "ERROR"
	LogLevelTrade   LogLevel = "TRADE"
	LogLevelStatus  LogLevel = "STATUS"
)

// NewLogger creates a logger writing to stdout and <logDir>/<name>_<date>.log.
// level is a zap level name ("debug", "info", "warn", "error").
func NewLogger(name, logDir, level string) (*Logger, error) {
	if logDir == "" {
		logDir = "logs"
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	l := &Logger{name: name, logDir: logDir}
	file, err := os.OpenFile(l.GetLogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	l.logFile = file

	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	encoder := zapcore.NewConsoleEncoder(encoderCfg)

	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), lvl),
		zapcore.NewCore(encoder, zapcore.AddSync(file), lvl),
	)
	l.sugar = zap.New(core).Named(name).Sugar()

	l.sugar.Infof("session started, log file %s", l.GetLogPath())
	return l, nil
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{name: "nop", sugar: zap.NewNop().Sugar()}
}

// Named returns a child logger sharing the same sinks.
func (l *Logger) Named(name string) *Logger {
	return &Logger{
		name:   l.name,
		logDir: l.logDir,
		sugar:  l.sugar.Named(name),
	}
}

// Log writes a formatted entry with the specified level.
func (l *Logger) Log(level LogLevel, format string, args ...interface{}) {
	switch level {
	case LogLevelWarning:
		l.sugar.Warnf(format, args...)
	case LogLevelError:
		l.sugar.Errorf(format, args...)
	case LogLevelTrade, LogLevelStatus:
		l.sugar.With("kind", string(level)).Infof(format, args...)
	default:
		l.sugar.Infof(format, args...)
	}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.Log(LogLevelInfo, format, args...)
}

// Warning logs a warning message
func (l *Logger) Warning(format string, args ...interface{}) {
	l.Log(LogLevelWarning, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.Log(LogLevelError, format, args...)
}

// Trade logs a trading action
func (l *Logger) Trade(format string, args ...interface{}) {
	l.Log(LogLevelTrade, format, args...)
}

// Status logs periodic status information
func (l *Logger) Status(format string, args ...interface{}) {
	l.Log(LogLevelStatus, format, args...)
}

// LogError logs error with context
func (l *Logger) LogError(context string, err error) {
	l.Error("%s: %v", context, err)
}

// LogWarning logs warning with context
func (l *Logger) LogWarning(context string, message string, args ...interface{}) {
	l.Warning("%s: %s", context, fmt.Sprintf(message, args...))
}

// Close flushes buffered entries and closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_ = l.sugar.Sync()
	if l.logFile != nil {
		err := l.logFile.Close()
		l.logFile = nil
		return err
	}
	return nil
}

// GetLogPath returns the current log file path
func (l *Logger) GetLogPath() string {
	if l.logDir == "" {
		return ""
	}
	filename := fmt.Sprintf("%s_%s.log", l.name, time.Now().Format("2006-01-02"))
	return filepath.Join(l.logDir, filename)
}
