// Package logging builds the process logger. Output always goes to stderr in
// production because stdout carries JSON-RPC frames and CLI JSON output.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// New returns a timestamped zerolog logger writing to w.
// Terminals get console formatting; everything else gets JSON lines.
func New(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	out := w
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		out = zerolog.ConsoleWriter{Out: f, TimeFormat: time.Kitchen}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Nop returns a disabled logger, used by tests and library callers that don't log.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
