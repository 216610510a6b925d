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

// LogCategory represents different log categories
type LogCategory string

const (
	CategoryDispatch LogCategory = "dispatch" // Task lifecycle events (JSON)
	CategoryTransfer LogCategory = "transfer" // Raw child-process output (JSON, one entry per line)
	CategoryError    LogCategory = "error"    // Application errors (JSON)
)

// Categories lists every category with its own daily file
func Categories() []LogCategory {
	return []LogCategory{CategoryDispatch, CategoryTransfer, CategoryError}
}

// ValidCategory reports whether c names a known category
func ValidCategory(c LogCategory) bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// MultiLogger writes categorized JSON logs into daily files named
// <category>-YYYYMMDD.log and forwards general output to a base logger.
type MultiLogger struct {
	base        *zap.Logger
	config      MultiLoggerConfig
	level       zapcore.Level
	loggers     map[LogCategory]*zap.Logger
	files       map[LogCategory]*os.File
	mu          sync.RWMutex
	currentDate string
	now         func() time.Time
}

// MultiLoggerConfig contains configuration for multi-output logging
type MultiLoggerConfig struct {
	Level   string // debug, info, warn, error
	LogsDir string // Directory for log files
}

// NewMultiLogger creates a new multi-output logger
func NewMultiLogger(config MultiLoggerConfig, base *zap.Logger) (*MultiLogger, error) {
	if config.LogsDir == "" {
		return nil, fmt.Errorf("logs_dir must be specified")
	}
	if err := os.MkdirAll(config.LogsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}
	if base == nil {
		base = zap.NewNop()
	}

	level, err := zapcore.ParseLevel(config.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	ml := &MultiLogger{
		base:   base,
		config: config,
		level:  level,
		now:    time.Now,
	}

	ml.mu.Lock()
	defer ml.mu.Unlock()
	if err := ml.openAll(); err != nil {
		return nil, err
	}
	return ml, nil
}

// openAll (re)opens every category file for the current date. Caller holds mu.
func (ml *MultiLogger) openAll() error {
	date := ml.now().Format("20060102")
	loggers := make(map[LogCategory]*zap.Logger)
	files := make(map[LogCategory]*os.File)

	for _, category := range Categories() {
		level := ml.level
		if category == CategoryError {
			level = zapcore.ErrorLevel
		}
		logger, file, err := ml.createStructuredLogger(category, date, level)
		if err != nil {
			for _, f := range files {
				f.Close()
			}
			return fmt.Errorf("failed to create %s logger: %w", category, err)
		}
		loggers[category] = logger
		files[category] = file
	}

	for _, f := range ml.files {
		f.Close()
	}
	ml.loggers = loggers
	ml.files = files
	ml.currentDate = date
	return nil
}

func (ml *MultiLogger) createStructuredLogger(category LogCategory, date string, level zapcore.Level) (*zap.Logger, *os.File, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.MessageKey = "msg"
	encoderConfig.LevelKey = "level"
	encoderConfig.CallerKey = ""

	path := filepath.Join(ml.config.LogsDir, fmt.Sprintf("%s-%s.log", category, date))
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, err
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(file), level)
	return zap.New(core), file, nil
}

// GetLogsDir returns the logs directory path
func (ml *MultiLogger) GetLogsDir() string {
	return ml.config.LogsDir
}

// GetLogger returns the structured logger for a category, rolling files over at midnight
func (ml *MultiLogger) GetLogger(category LogCategory) *zap.Logger {
	today := ml.now().Format("20060102")

	ml.mu.RLock()
	stale := today != ml.currentDate
	ml.mu.RUnlock()

	if stale {
		ml.mu.Lock()
		if today != ml.currentDate {
			if err := ml.openAll(); err != nil {
				ml.base.Error("Failed to roll log files", zap.Error(err))
			}
		}
		ml.mu.Unlock()
	}

	ml.mu.RLock()
	defer ml.mu.RUnlock()
	if logger, ok := ml.loggers[category]; ok {
		return logger
	}
	return ml.loggers[CategoryError]
}

// General returns the base logger
func (ml *MultiLogger) General() *zap.Logger {
	return ml.base
}

// Dispatch returns the dispatch logger
func (ml *MultiLogger) Dispatch() *zap.Logger {
	return ml.GetLogger(CategoryDispatch)
}

// Transfer returns the transfer logger
func (ml *MultiLogger) Transfer() *zap.Logger {
	return ml.GetLogger(CategoryTransfer)
}

// Error returns the error logger
func (ml *MultiLogger) Error() *zap.Logger {
	return ml.GetLogger(CategoryError)
}

// LogDispatchEvent logs a task lifecycle event
func (ml *MultiLogger) LogDispatchEvent(event string, fields ...zap.Field) {
	ml.Dispatch().Info(event, fields...)
}

// WriteTransferLine records one raw output line of a child process
func (ml *MultiLogger) WriteTransferLine(taskID, tool, line string) {
	ml.Transfer().Info(line, zap.String("task_id", taskID), zap.String("tool", tool))
}

// LogAppError logs an application error to the error file and the base logger
func (ml *MultiLogger) LogAppError(msg string, fields ...zap.Field) {
	ml.Error().Error(msg, fields...)
	ml.base.Error(msg, fields...)
}

// Sync flushes all loggers
func (ml *MultiLogger) Sync() error {
	ml.mu.RLock()
	defer ml.mu.RUnlock()

	var lastErr error
	for _, logger := range ml.loggers {
		if err := logger.Sync(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Close flushes and closes all category files
func (ml *MultiLogger) Close() error {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	var lastErr error
	for category, logger := range ml.loggers {
		logger.Sync()
		if err := ml.files[category].Close(); err != nil {
			lastErr = err
		}
	}
	ml.loggers = map[LogCategory]*zap.Logger{}
	ml.files = map[LogCategory]*os.File{}
	return lastErr
}
