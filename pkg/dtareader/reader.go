// Package dtareader is the public façade over the decoder pipeline: it
// wires dtasource, byteio, dtaheader, dtameta, dtadata, and valuelabel
// into the three-function host boundary (schema mapping, open, chunked
// read) described by the format's integration contract.
package dtareader

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/korenmiklos/stata-dta/internal/byteio"
	"github.com/korenmiklos/stata-dta/internal/dtadata"
	"github.com/korenmiklos/stata-dta/internal/dtaerr"
	"github.com/korenmiklos/stata-dta/internal/dtaheader"
	"github.com/korenmiklos/stata-dta/internal/dtalog"
	"github.com/korenmiklos/stata-dta/internal/dtameta"
	"github.com/korenmiklos/stata-dta/pkg/dtasource"
	"github.com/korenmiklos/stata-dta/pkg/valuelabel"
)

// state is the Reader's lifecycle: Open -> Exhausted -> Closed. A Reader
// exists only after a successful Open, so there is no unopened state.
type state int

const (
	stateOpen state = iota
	stateExhausted
	stateClosed
)

// Reader decodes one .dta file's schema up front and then streams its
// row data as column batches. A Reader is not safe for concurrent use.
type Reader struct {
	src    dtasource.Source
	r      *byteio.Reader
	header *dtaheader.FileHeader
	meta   *dtameta.Metadata
	cursor *dtadata.Cursor

	cfg   config
	log   zerolog.Logger
	state state

	labels     *valuelabel.Table
	labelsRead bool
}

// Open decodes a .dta file's header and metadata and positions a Reader
// at the start of its row-data region. The path may be a local filesystem
// path or an "s3://bucket/key" URI, unless WithSource overrides sourcing
// entirely.
func Open(path string, opts ...Option) (*Reader, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	src := cfg.source
	if src == nil {
		var err error
		src, err = dtasource.Open(path)
		if err != nil {
			return nil, err
		}
	}

	r := byteio.New(src)
	r.SetStringEncoding(cfg.encoding)

	phaseLog := func(phase string) zerolog.Logger {
		if cfg.hasLogger {
			return cfg.logger.With().Str("phase", phase).Logger()
		}
		return dtalog.WithPhase(phase)
	}

	baseLog := phaseLog("header")
	start := timeNow()
	header, err := dtaheader.Decode(r)
	if err != nil {
		src.Close()
		return nil, err
	}
	dtalog.PhaseComplete(baseLog, "header", timeNow().Sub(start)).
		Str("dialect", dialectName(header.Tagged)).
		Log("decoded header")

	metaLog := phaseLog("metadata")
	start = timeNow()
	meta, err := dtameta.Decode(r, header)
	if err != nil {
		src.Close()
		return nil, err
	}
	dtalog.PhaseComplete(metaLog, "metadata", timeNow().Sub(start)).
		Int("variables", len(meta.Variables)).
		Log("decoded metadata")

	cursor, err := dtadata.Locate(r, header, meta)
	if err != nil {
		src.Close()
		return nil, err
	}

	if cfg.budget != nil {
		if allowed := cfg.budget.ChunkRowBudget(rowWidthOf(meta)); allowed < cfg.chunkCap {
			cfg.chunkCap = allowed
		}
	}

	rd := &Reader{
		src:    src,
		r:      r,
		header: header,
		meta:   meta,
		cursor: cursor,
		cfg:    cfg,
		log:    phaseLog("data"),
		state:  stateOpen,
	}
	return rd, nil
}

func rowWidthOf(m *dtameta.Metadata) int { return m.RowWidth }

func dialectName(tagged bool) string {
	if tagged {
		return "tagged"
	}
	return "legacy"
}

// Header returns the decoded file header.
func (rd *Reader) Header() *dtaheader.FileHeader { return rd.header }

// Variables returns the decoded per-variable metadata, in file order.
func (rd *Reader) Variables() []dtameta.Variable { return rd.meta.Variables }

// NObs returns the (possibly truncated) observation count computed at
// open time, per the §3 defensive-truncation rule.
func (rd *Reader) NObs() uint64 { return rd.cursor.NObs() }

// HasMore reports whether NextChunk would return further rows.
func (rd *Reader) HasMore() bool {
	return rd.state == stateOpen && rd.cursor.HasMore()
}

// NextChunk decodes the next chunk of rows, honoring WithChunkCap and any
// WithMemoryBudget ceiling. It returns (nil, nil) once the file is
// exhausted, per the host boundary's chunk contract, and fails with
// dtaerr.ErrClosed after Close.
func (rd *Reader) NextChunk() (*dtadata.ColumnBatch, error) {
	switch rd.state {
	case stateClosed:
		return nil, dtaerr.ErrClosed
	case stateExhausted:
		return nil, nil
	}

	cap := rd.cfg.chunkCap
	if rd.cfg.budget != nil {
		if allowed := rd.cfg.budget.ChunkRowBudget(rowWidthOf(rd.meta)); allowed < cap {
			cap = allowed
		}
	}

	start := timeNow()
	batch, err := rd.cursor.NextChunk(cap)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		rd.state = stateExhausted
		return nil, nil
	}

	dtalog.ChunkComplete(rd.log, "data", timeNow().Sub(start)).
		Rows(int(batch.Cardinality)).
		Uint64("rows_read", rd.cursor.RowsRead()).
		Throughput(int(batch.Cardinality)).
		Log("decoded chunk")

	if !rd.cursor.HasMore() {
		rd.state = stateExhausted
	}
	return batch, nil
}

// ValueLabels decodes (on first call) and returns the file's value-label
// sets. This is a side channel: it is never consulted by NextChunk, and
// decoding it costs nothing until a caller asks. Best-effort: a malformed
// or absent value-label section yields an empty, non-nil Table rather
// than an error, matching characteristics' §4.3 tolerance.
func (rd *Reader) ValueLabels() (*valuelabel.Table, error) {
	if rd.state == stateClosed {
		return nil, dtaerr.ErrClosed
	}
	if rd.labelsRead {
		return rd.labels, nil
	}
	if err := rd.cursor.SeekPastData(); err != nil {
		rd.labels = &valuelabel.Table{}
		rd.labelsRead = true
		return rd.labels, nil
	}
	table, err := valuelabel.Decode(rd.r, rd.header)
	if err != nil {
		table = &valuelabel.Table{}
	}
	rd.labels = table
	rd.labelsRead = true
	return rd.labels, nil
}

// Close releases the underlying byte source. Close is idempotent.
func (rd *Reader) Close() error {
	if rd.state == stateClosed {
		return nil
	}
	rd.state = stateClosed
	return rd.src.Close()
}

func timeNow() time.Time { return time.Now() }
