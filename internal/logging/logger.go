package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps slog with configuration and lifecycle management
type Logger struct {
	mu     sync.RWMutex
	config *Config
	file   io.WriteCloser
	logger *slog.Logger
}

// Config holds logging configuration
type Config struct {
	Level      string `yaml:"level"`       // debug, info, warn, error
	File       string `yaml:"file"`        // log file path (optional)
	MaxSize    int    `yaml:"max_size"`    // megabytes
	MaxBackups int    `yaml:"max_backups"` // number of old log files to keep
	MaxAge     int    `yaml:"max_age"`     // days
	Console    bool   `yaml:"console"`     // also log to stderr
	JSON       bool   `yaml:"json"`        // JSON format instead of text

	// Output replaces stderr as the console writer. Used by tests.
	Output io.Writer `yaml:"-"`
}

// DefaultConfig logs info and above to the console
func DefaultConfig() *Config {
	return &Config{
		Level:   "info",
		Console: true,
	}
}

var (
	globalMu     sync.Mutex
	globalLogger *Logger
)

// Initialize sets up the global logger
func Initialize(cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	l := &Logger{config: cfg}
	if err := l.configure(); err != nil {
		return err
	}

	globalMu.Lock()
	old := globalLogger
	globalLogger = l
	globalMu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	return nil
}

// GetLogger returns the global logger instance
func GetLogger() *Logger {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalLogger == nil {
		globalLogger = &Logger{config: DefaultConfig()}
		_ = globalLogger.configure()
	}
	return globalLogger
}

// configure sets up the logger based on config
func (l *Logger) configure() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	level := parseLevel(l.config.Level)

	var writers []io.Writer

	if l.config.Console {
		if l.config.Output != nil {
			writers = append(writers, l.config.Output)
		} else {
			writers = append(writers, os.Stderr)
		}
	}

	if l.file != nil {
		l.file.Close()
		l.file = nil
	}

	if l.config.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   l.config.File,
			MaxSize:    l.config.MaxSize,
			MaxBackups: l.config.MaxBackups,
			MaxAge:     l.config.MaxAge,
			Compress:   true,
		}
		l.file = rotator
		writers = append(writers, rotator)
	}

	var writer io.Writer
	switch len(writers) {
	case 0:
		writer = io.Discard
	case 1:
		writer = writers[0]
	default:
		writer = io.MultiWriter(writers...)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if l.config.JSON {
		handler = slog.NewJSONHandler(writer, opts)
	} else {
		handler = slog.NewTextHandler(writer, opts)
	}

	l.logger = slog.New(handler)
	slog.SetDefault(l.logger)

	return nil
}

// parseLevel converts string level to slog.Level
func parseLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Reload reconfigures the logger with new settings
func (l *Logger) Reload(cfg *Config) error {
	l.mu.Lock()
	l.config = cfg
	l.mu.Unlock()
	return l.configure()
}

// Level reports the configured level name
func (l *Logger) Level() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config.Level
}

// Close closes any open file handles
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// Underlying returns the underlying *slog.Logger for advanced usage
func (l *Logger) Underlying() *slog.Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.logger
}

func (l *Logger) Debug(msg string, args ...any) {
	l.Underlying().Debug(msg, args...)
}

func (l *Logger) Debugf(format string, v ...interface{}) {
	l.Underlying().Debug(fmt.Sprintf(format, v...))
}

func (l *Logger) Info(msg string, args ...any) {
	l.Underlying().Info(msg, args...)
}

func (l *Logger) Infof(format string, v ...interface{}) {
	l.Underlying().Info(fmt.Sprintf(format, v...))
}

func (l *Logger) Warn(msg string, args ...any) {
	l.Underlying().Warn(msg, args...)
}

func (l *Logger) Warnf(format string, v ...interface{}) {
	l.Underlying().Warn(fmt.Sprintf(format, v...))
}

func (l *Logger) Error(msg string, args ...any) {
	l.Underlying().Error(msg, args...)
}

func (l *Logger) Errorf(format string, v ...interface{}) {
	l.Underlying().Error(fmt.Sprintf(format, v...))
}

func (l *Logger) Fatal(msg string, args ...any) {
	l.Underlying().Error(msg, args...)
	os.Exit(1)
}

// WithError returns a logger with an error field
func (l *Logger) WithError(err error) *slog.Logger {
	return l.Underlying().With(Err(err))
}

// WithHost returns a logger scoped to one adapter
func (l *Logger) WithHost(host string) *slog.Logger {
	return l.Underlying().With(Host(host))
}

// Package-level convenience functions

// Debug logs at debug level
func Debug(msg string, args ...any) {
	GetLogger().Debug(msg, args...)
}

// Debugf logs formatted message at debug level
func Debugf(format string, v ...interface{}) {
	GetLogger().Debugf(format, v...)
}

// Info logs at info level
func Info(msg string, args ...any) {
	GetLogger().Info(msg, args...)
}

// Infof logs formatted message at info level
func Infof(format string, v ...interface{}) {
	GetLogger().Infof(format, v...)
}

// Warn logs at warn level
func Warn(msg string, args ...any) {
	GetLogger().Warn(msg, args...)
}

// Warnf logs formatted message at warn level
func Warnf(format string, v ...interface{}) {
	GetLogger().Warnf(format, v...)
}

// Error logs at error level
func Error(msg string, args ...any) {
	GetLogger().Error(msg, args...)
}

// Errorf logs formatted message at error level
func Errorf(format string, v ...interface{}) {
	GetLogger().Errorf(format, v...)
}

// Fatal logs at error level and exits
func Fatal(msg string, args ...any) {
	GetLogger().Fatal(msg, args...)
}

// WithError returns a logger with an error field
func WithError(err error) *slog.Logger {
	return GetLogger().WithError(err)
}

// WithHost returns a logger scoped to one adapter
func WithHost(host string) *slog.Logger {
	return GetLogger().WithHost(host)
}
