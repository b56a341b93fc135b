// Package logging configures the global zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/seenimoa/krxvalue/internal/config"
)

// Setup sets the global level and output from cfg. Logs go to stderr so
// report output on stdout stays clean.
func Setup(cfg config.LoggingConfig) error {
	return SetupWriter(cfg, os.Stderr)
}

// SetupWriter is Setup with an explicit destination.
func SetupWriter(cfg config.LoggingConfig, w io.Writer) error {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	out := w
	switch strings.ToLower(cfg.Format) {
	case "json":
	case "", "text":
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05", NoColor: !isTerminal(w)}
	default:
		return fmt.Errorf("unknown log format %q (want text or json)", cfg.Format)
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return nil
}

// ParseLevel maps a configured level name to a zerolog level. The empty
// string means info.
func ParseLevel(s string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "", "info":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
