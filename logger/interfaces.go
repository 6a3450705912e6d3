package logger

import (
	"context"
	"io"

	"go.uber.org/zap"
)

// Logger represents the logging interface
type Logger interface {
	// Logging levels
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// Context and enrichment
	With(fields ...Field) Logger
	WithContext(ctx context.Context) Logger
	Named(name string) Logger

	// Utilities
	Sync() error
}

// Field represents a structured log field
type Field interface {
	Key() string
	Value() any
	// ZapField returns the underlying zap.Field for efficient conversion
	ZapField() zap.Field
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" json:"level"`
	Format      string `yaml:"format" json:"format"`
	Environment string `yaml:"environment" json:"environment"`

	// Color enables coloured levels in console output.
	Color  bool      `yaml:"color" json:"color"`
	// Output receives the encoded entries; stderr when nil.
	Output io.Writer `yaml:"-" json:"-"`
}
