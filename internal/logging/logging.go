/*
Copyright 2025 Kube-ZEN Contributors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package logging

import (
	"os"

	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"k8s.io/klog/v2"
)

// Logger wraps zap.Logger with component-specific context
type Logger struct {
	*zap.Logger
	componentName string
}

// Info logs an info message
func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.Logger.Info(msg, fields...)
}

// Error logs an error message with enhanced context
// If fields don't already include error_category, it is added automatically
func (l *Logger) Error(err error, msg string, fields ...zap.Field) {
	if err == nil {
		l.Logger.Error(msg, fields...)
		return
	}

	hasCategory := false
	for _, f := range fields {
		if f.Key == "error_category" {
			hasCategory = true
			break
		}
	}

	errorFields := []zap.Field{zap.Error(err)}
	if !hasCategory {
		category := CategorizeError(err)
		errorFields = append(errorFields, ErrorCategoryField(category))
	}

	if !hasCategory && isDevelopment() {
		stack := GetStackTrace(3) // Skip: GetStackTrace -> Error -> caller
		if stack != "" {
			errorFields = append(errorFields, ErrorStackField(stack))
		}
	}

	l.Logger.Error(msg, append(fields, errorFields...)...)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, fields ...zap.Field) {
	l.Logger.Debug(msg, fields...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.Logger.Warn(msg, fields...)
}

// LoggerConfig holds configuration for logger creation
type LoggerConfig struct {
	// ComponentName is the name of the component
	ComponentName string
	// Development enables development mode (pretty console logs, stack traces)
	Development bool
	// LogLevel sets the minimum log level (debug, info, warn, error)
	// If empty, uses environment variable LOG_LEVEL or defaults to info
	LogLevel string
	// EnableStackTraces enables stack traces for errors (even in production)
	EnableStackTraces bool
}

// NewLogger creates a new structured logger for a component with default configuration.
// It also installs the same core as klog's backend, so log lines emitted by
// client-go's leader election and workqueue machinery are folded into the
// controller's structured output instead of going to klog's own writer.
func NewLogger(componentName string) *Logger {
	config := LoggerConfig{
		ComponentName: componentName,
		Development:   isDevelopment(),
	}
	return NewLoggerWithConfig(config)
}

// NewLoggerWithConfig creates a new structured logger with custom configuration
func NewLoggerWithConfig(config LoggerConfig) *Logger {
	if config.ComponentName == "" {
		config.ComponentName = "unknown"
	}

	devMode := config.Development
	if !devMode {
		devMode = isDevelopment()
	}

	logLevel := getLogLevel(config.LogLevel)

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	if devMode {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	core := zapcore.NewCore(
		encoder,
		zapcore.AddSync(os.Stdout),
		logLevel,
	)

	options := []zap.Option{
		zap.AddCaller(),
	}
	if devMode || config.EnableStackTraces {
		options = append(options, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	baseLogger := zap.New(core, options...)
	componentLogger := baseLogger.With(zap.String("component", config.ComponentName))

	// client-go's leaderelection and workqueue packages log through klog;
	// route that through the same zap core so both show up in one stream.
	klog.SetLogger(zapr.NewLogger(baseLogger))

	return &Logger{
		Logger:        componentLogger,
		componentName: config.ComponentName,
	}
}

// getLogLevel parses log level from string or environment variable
func getLogLevel(level string) zapcore.Level {
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	if level == "" {
		level = "info"
	}

	switch level {
	case "debug", "DEBUG":
		return zapcore.DebugLevel
	case "info", "INFO":
		return zapcore.InfoLevel
	case "warn", "WARN", "warning", "WARNING":
		return zapcore.WarnLevel
	case "error", "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// WithComponent adds component name to log context
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger:        l.Logger.With(zap.String("component", component)),
		componentName: component,
	}
}

// WithField adds a field to the log context
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{
		Logger:        l.Logger.With(zap.Any(key, value)),
		componentName: l.componentName,
	}
}

// WithFields adds multiple fields to the log context
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	zapFields := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zapFields = append(zapFields, zap.Any(k, v))
	}

	return &Logger{
		Logger:        l.Logger.With(zapFields...),
		componentName: l.componentName,
	}
}

// isDevelopment checks if we're in development mode
func isDevelopment() bool {
	return os.Getenv("LOG_LEVEL") == "debug" ||
		os.Getenv("DEVELOPMENT") == "true" ||
		os.Getenv("ENV") == "development"
}
