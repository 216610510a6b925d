package logger

import (
	"go.uber.org/zap"
)

// LoggerAdapter provides a unified interface for both single and multi-logger
type LoggerAdapter struct {
	multiLogger  *MultiLogger
	singleLogger *zap.Logger
	useMulti     bool
}

// NewLoggerAdapter creates a new logger adapter
func NewLoggerAdapter(multiLogger *MultiLogger) *LoggerAdapter {
	return &LoggerAdapter{
		multiLogger: multiLogger,
		useMulti:    true,
	}
}

// NewSingleLoggerAdapter routes every category to one logger
func NewSingleLoggerAdapter(logger *zap.Logger) *LoggerAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggerAdapter{
		singleLogger: logger,
		useMulti:     false,
	}
}

// General returns the general logger
func (la *LoggerAdapter) General() *zap.Logger {
	if la.useMulti {
		return la.multiLogger.General()
	}
	return la.singleLogger
}

// Dispatch returns the dispatch logger
func (la *LoggerAdapter) Dispatch() *zap.Logger {
	if la.useMulti {
		return la.multiLogger.Dispatch()
	}
	return la.singleLogger
}

// Transfer returns the transfer logger
func (la *LoggerAdapter) Transfer() *zap.Logger {
	if la.useMulti {
		return la.multiLogger.Transfer()
	}
	return la.singleLogger
}

// Error returns the error logger
func (la *LoggerAdapter) Error() *zap.Logger {
	if la.useMulti {
		return la.multiLogger.Error()
	}
	return la.singleLogger
}

// LogDispatchEvent logs a task lifecycle event
func (la *LoggerAdapter) LogDispatchEvent(event string, fields ...zap.Field) {
	if la.useMulti {
		la.multiLogger.LogDispatchEvent(event, fields...)
		return
	}
	la.singleLogger.Info(event, fields...)
}

// WriteTransferLine records one raw output line of a child process
func (la *LoggerAdapter) WriteTransferLine(taskID, tool, line string) {
	if la.useMulti {
		la.multiLogger.WriteTransferLine(taskID, tool, line)
		return
	}
	la.singleLogger.Debug(line, zap.String("task_id", taskID), zap.String("tool", tool))
}

// LogAppError logs an error to the error category
func (la *LoggerAdapter) LogAppError(msg string, fields ...zap.Field) {
	if la.useMulti {
		la.multiLogger.LogAppError(msg, fields...)
		return
	}
	la.singleLogger.Error(msg, fields...)
}

// Sync flushes all loggers
func (la *LoggerAdapter) Sync() error {
	if la.useMulti {
		return la.multiLogger.Sync()
	}
	return la.singleLogger.Sync()
}
