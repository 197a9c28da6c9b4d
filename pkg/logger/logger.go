package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger with campaign-specific context helpers
type Logger struct {
	zerolog.Logger
}

// Config holds logger configuration
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json or console
	Output string // stdout or file path
}

// New creates a new logger with the given configuration
func New(cfg Config) *Logger {
	var output io.Writer = os.Stdout

	if cfg.Output != "" && cfg.Output != "stdout" {
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			output = file
		}
	}

	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Caller().
		Logger()

	return &Logger{Logger: logger}
}

// Nop returns a logger that discards everything. Used by tests.
func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}

// WithComponent adds a component field to the logger
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger: l.With().Str("component", component).Logger(),
	}
}

// WithSource adds a source field to the logger (for trend sources)
func (l *Logger) WithSource(sourceType, sourceName string) *Logger {
	return &Logger{
		Logger: l.With().
			Str("source_type", sourceType).
			Str("source_name", sourceName).
			Logger(),
	}
}

// WithPlatform adds the publishing platform to the logger
func (l *Logger) WithPlatform(platform string) *Logger {
	return &Logger{
		Logger: l.With().Str("platform", platform).Logger(),
	}
}

// WithTopic adds the topic title, and its ID once the topic is stored
func (l *Logger) WithTopic(id uint, title string) *Logger {
	ctx := l.With().Str("topic", title)
	if id != 0 {
		ctx = ctx.Uint("topic_id", id)
	}
	return &Logger{Logger: ctx.Logger()}
}

// WithContentID adds a content ID to the logger
func (l *Logger) WithContentID(id uint) *Logger {
	return &Logger{
		Logger: l.With().Uint("content_id", id).Logger(),
	}
}
