package dtalog

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/korenmiklos/stata-dta/pkg/humanfmt"
)

// CompletionEvent builds a consistent structured log line for a completed
// unit of decode work: a header read, a metadata decode, or a chunk
// materialized off the data cursor.
type CompletionEvent struct {
	log     zerolog.Logger
	event   string
	phase   string
	elapsed time.Duration
	fields  map[string]interface{}
}

// NewCompletionEvent starts building a completion event.
func NewCompletionEvent(log zerolog.Logger, event, phase string, elapsed time.Duration) *CompletionEvent {
	return &CompletionEvent{
		log:     log,
		event:   event,
		phase:   phase,
		elapsed: elapsed,
		fields:  make(map[string]interface{}),
	}
}

// Int adds an int field.
func (ce *CompletionEvent) Int(key string, val int) *CompletionEvent {
	ce.fields[key] = val
	return ce
}

// Uint64 adds a uint64 field.
func (ce *CompletionEvent) Uint64(key string, val uint64) *CompletionEvent {
	ce.fields[key] = val
	return ce
}

// Str adds a string field.
func (ce *CompletionEvent) Str(key, val string) *CompletionEvent {
	ce.fields[key] = val
	return ce
}

// Rows adds a row count with an optional human-readable companion.
func (ce *CompletionEvent) Rows(n int) *CompletionEvent {
	ce.fields["rows"] = n
	if IsPrettyMode() {
		ce.fields["rows_h"] = humanfmt.Count(int64(n))
	}
	return ce
}

// Bytes adds a byte count with an optional human-readable companion.
func (ce *CompletionEvent) Bytes(key string, n int64) *CompletionEvent {
	ce.fields[key] = n
	if IsPrettyMode() {
		ce.fields[key+"_h"] = humanfmt.Bytes(n)
	}
	return ce
}

// Throughput adds a rows-per-second field derived from the event's
// elapsed duration.
func (ce *CompletionEvent) Throughput(rows int) *CompletionEvent {
	if ce.elapsed > 0 {
		ce.fields["rows_per_sec"] = float64(rows) / ce.elapsed.Seconds()
	}
	return ce
}

// Log emits the event at info level.
func (ce *CompletionEvent) Log(msg string) {
	e := ce.log.Info().
		Str("event", ce.event).
		Str("phase", ce.phase).
		Int64("duration_ms", ce.elapsed.Milliseconds())
	if IsPrettyMode() {
		e = e.Str("duration_h", humanfmt.Duration(ce.elapsed))
	}
	for k, v := range ce.fields {
		e = e.Interface(k, v)
	}
	e.Msg(msg)
}

// PhaseComplete logs the completion of a whole decode phase (header,
// metadata, value labels).
func PhaseComplete(log zerolog.Logger, phase string, elapsed time.Duration) *CompletionEvent {
	return NewCompletionEvent(log, "phase_completed", phase, elapsed)
}

// ChunkComplete logs the completion of one NextChunk call.
func ChunkComplete(log zerolog.Logger, phase string, elapsed time.Duration) *CompletionEvent {
	return NewCompletionEvent(log, "chunk_completed", phase, elapsed)
}
