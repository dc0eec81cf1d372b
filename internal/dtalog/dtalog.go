// Package dtalog provides structured logging for the decoder pipeline
// using zerolog, phase-scoped the way pkg/logging scopes s3inv-index's
// index-build phases to a "phase" field.
package dtalog

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

var (
	logger *zerolog.Logger
	pretty bool
)

func init() {
	l := zerolog.New(os.Stderr).With().Timestamp().Logger()
	logger = &l
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// Init configures the package logger. debug raises the level to Debug;
// human switches to a color console writer and enables the "_h"
// human-readable companion fields CompletionEvent adds via humanfmt.
func Init(debug bool, human bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	pretty = human

	var output zerolog.LevelWriter
	if human {
		output = zerolog.LevelWriterAdapter{Writer: zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}}
	} else {
		output = zerolog.LevelWriterAdapter{Writer: os.Stderr}
	}

	l := zerolog.New(output).With().Timestamp().Logger()
	logger = &l
}

// L returns the base logger.
func L() *zerolog.Logger { return logger }

// WithPhase returns a logger scoped to a decode phase ("header",
// "metadata", "data", "value_labels").
func WithPhase(phase string) zerolog.Logger {
	return logger.With().Str("phase", phase).Logger()
}

// SetLogger overrides the package logger, used by hosts embedding the
// reader into their own logging pipeline and by tests.
func SetLogger(l zerolog.Logger) {
	logger = &l
}

// IsPrettyMode reports whether CompletionEvent should attach
// human-readable companion fields alongside raw numeric ones.
func IsPrettyMode() bool { return pretty }
