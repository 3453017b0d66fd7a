// Package logging builds the zerolog loggers shared by the binaries.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Format selects how log lines are rendered.
type Format string

const (
	FormatJSON   Format = "json"
	FormatPretty Format = "pretty"
)

// ParseFormat accepts "json", "pretty" or "console".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "pretty", "console", "text":
		return FormatPretty, nil
	}
	return "", fmt.Errorf("logging: unknown format %q", s)
}

// ParseLevel is zerolog.ParseLevel with an empty string meaning info.
func ParseLevel(s string) (zerolog.Level, error) {
	if strings.TrimSpace(s) == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("logging: %w", err)
	}
	return lvl, nil
}

// New returns a logger writing to w at the given level. Pretty output is
// meant for terminals; JSON for everything else.
func New(w io.Writer, level zerolog.Level, format Format) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if format == FormatPretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Component tags every line of log with the emitting subsystem.
func Component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
