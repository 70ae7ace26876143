// Package logging configures the zerolog logger shared by the collector.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultFile is the process log, appended to across runs.
const DefaultFile = "collector.log"

type Config struct {
	// Level is one of debug, info, warn, error. Unknown values mean info.
	Level string

	// Pretty renders the console stream with zerolog.ConsoleWriter.
	Pretty bool

	// Output is the console stream (default: os.Stderr).
	Output io.Writer

	// FilePath, when set, also receives every entry as a JSON line.
	FilePath string
}

func DefaultConfig() Config {
	return Config{
		Level:    "info",
		Pretty:   true,
		Output:   os.Stderr,
		FilePath: DefaultFile,
	}
}

// Setup configures the global zerolog logger. The returned closer releases the
// log file and must be called on shutdown.
func Setup(cfg Config) (zerolog.Logger, io.Closer, error) {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	console := cfg.Output
	if console == nil {
		console = os.Stderr
	}
	if cfg.Pretty {
		console = zerolog.ConsoleWriter{Out: console, TimeFormat: "2006-01-02 15:04:05"}
	}

	var closer io.Closer = nopCloser{}
	output := console
	if cfg.FilePath != "" {
		f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Nop(), closer, fmt.Errorf("open log file: %w", err)
		}
		closer = f
		output = zerolog.MultiLevelWriter(console, f)
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger, closer, nil
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger derives a logger tagged with a component name from the global one.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Tag adds a field to the global logger, so loggers created afterwards by
// NewLogger carry it too.
func Tag(key, value string) zerolog.Logger {
	log.Logger = log.Logger.With().Str(key, value).Logger()
	return log.Logger
}
