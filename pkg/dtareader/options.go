package dtareader

import (
	"github.com/rs/zerolog"

	"github.com/korenmiklos/stata-dta/internal/byteio"
	"github.com/korenmiklos/stata-dta/pkg/dtasource"
	"github.com/korenmiklos/stata-dta/pkg/membudget"
)

// config collects every functional option's effect before Open runs the
// actual decode, following the teacher's Config-struct-plus-functional-
// options convention.
type config struct {
	logger    zerolog.Logger
	hasLogger bool
	chunkCap  int
	budget    *membudget.Budget
	source    dtasource.Source
	encoding  byteio.StringEncoding
}

const defaultChunkCap = 4096

func defaultConfig() config {
	return config{
		chunkCap: defaultChunkCap,
	}
}

// Option configures Open. Each Option is a small closure over config,
// the same shape as the teacher's functional options for its downloader
// and budget constructors.
type Option func(*config)

// WithLogger attaches a zerolog.Logger the Reader scopes per decode
// phase via internal/dtalog. Without this option, Open uses the package
// default logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *config) {
		c.logger = log
		c.hasLogger = true
	}
}

// WithChunkCap sets the maximum row count NextChunk returns per call.
// Ignored (falls back to the default) if n <= 0.
func WithChunkCap(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.chunkCap = n
		}
	}
}

// WithMemoryBudget shares a membudget.Budget across this Reader and any
// others opened against it, capping NextChunk's effective chunk size to
// whatever the budget currently allows so many concurrently open Readers
// can't collectively exceed one ceiling.
func WithMemoryBudget(b *membudget.Budget) Option {
	return func(c *config) { c.budget = b }
}

// WithSource overrides how bytes are fetched, bypassing dtasource.Open's
// path-based dispatch. Tests use this to hand in a dtasource.MemorySource
// built from an in-memory fixture.
func WithSource(src dtasource.Source) Option {
	return func(c *config) { c.source = src }
}

// WithStringEncoding selects how invalid UTF-8 in string fields (names,
// labels, formats, and string cell values) is handled; see
// byteio.StringEncoding. Default is byteio.LossyUTF8.
func WithStringEncoding(e byteio.StringEncoding) Option {
	return func(c *config) { c.encoding = e }
}
