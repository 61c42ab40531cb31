// Copyright (C) 2024 right-sizer contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package logger provides the leveled logger used across the control
// loop, built on go.uber.org/zap rather than the standard library's
// log.Logger so that the same logger backs both our own call sites and
// the controller-runtime logger bridge (zapr) the orchestrator client
// needs at startup.
package logger

import (
	"os"
	"strings"
	"sync"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the severity of a log message.
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

// Logger wraps a zap.SugaredLogger with the level-gated, printf-style
// call surface the rest of this codebase uses.
type Logger struct {
	mu     sync.RWMutex
	level  LogLevel
	prefix string
	atom   zap.AtomicLevel
	sugar  *zap.SugaredLogger
	base   *zap.Logger
}

// Global is the process-wide logger, set by Init.
var Global *Logger

// NewLogger creates a new Logger at the given level string ("debug",
// "info", "warn", "error"), with an optional prefix prepended to every
// message.
func NewLogger(levelStr string, prefix string) *Logger {
	level := parseLogLevel(levelStr)

	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	// Colorize levels only when stdout is a terminal.
	if fileInfo, _ := os.Stdout.Stat(); fileInfo != nil && (fileInfo.Mode()&os.ModeCharDevice) != 0 {
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	atom := zap.NewAtomicLevelAt(zapLevelFor(level))
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(cfg),
		zapcore.Lock(zapcore.AddSync(os.Stdout)),
		atom,
	)

	base := zap.New(core)
	return &Logger{
		level:  level,
		prefix: prefix,
		atom:   atom,
		sugar:  base.Sugar(),
		base:   base,
	}
}

// Init initializes the global logger at levelStr.
func Init(levelStr string) {
	Global = NewLogger(levelStr, "")
}

// Zap exposes the underlying *zap.Logger.
func (l *Logger) Zap() *zap.Logger {
	return l.base
}

// Logr adapts the underlying zap logger into a logr.Logger, used at
// startup to route controller-runtime's and klog's output through the
// same sink as everything else.
func (l *Logger) Logr() logr.Logger {
	return zapr.NewLogger(l.base)
}

func parseLogLevel(levelStr string) LogLevel {
	switch strings.ToLower(levelStr) {
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

func zapLevelFor(l LogLevel) zapcore.Level {
	switch l {
	case DEBUG:
		return zapcore.DebugLevel
	case INFO:
		return zapcore.InfoLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *Logger) format(format string) string {
	l.mu.RLock()
	prefix := l.prefix
	l.mu.RUnlock()
	if prefix == "" {
		return format
	}
	return "[" + prefix + "] " + format
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(l.format(format), args...)
}

// Info logs an info message.
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(l.format(format), args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.sugar.Warnf(l.format(format), args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(l.format(format), args...)
}

// SetLevel changes the log level at runtime, adjusting the core's
// atomic level so the change takes effect on subsequent messages.
func (l *Logger) SetLevel(levelStr string) {
	level := parseLogLevel(levelStr)
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
	l.atom.SetLevel(zapLevelFor(level))
}

// WithPrefix returns a logger sharing this one's sink but tagging
// every message with prefix, to scope log lines to a component (e.g.
// "ingress", "actuate").
func (l *Logger) WithPrefix(prefix string) *Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return &Logger{
		level:  l.level,
		prefix: prefix,
		atom:   l.atom,
		sugar:  l.sugar,
		base:   l.base,
	}
}

// Debug logs a debug message on the global logger.
func Debug(format string, args ...interface{}) {
	if Global != nil {
		Global.Debug(format, args...)
	}
}

// Info logs an info message on the global logger.
func Info(format string, args ...interface{}) {
	if Global != nil {
		Global.Info(format, args...)
	}
}

// Warn logs a warning message on the global logger.
func Warn(format string, args ...interface{}) {
	if Global != nil {
		Global.Warn(format, args...)
	}
}

// Error logs an error message on the global logger.
func Error(format string, args ...interface{}) {
	if Global != nil {
		Global.Error(format, args...)
	}
}

// GetLogger returns the global logger, initializing it at INFO level
// if Init has not yet been called.
func GetLogger() *Logger {
	if Global == nil {
		Init("info")
	}
	return Global
}
