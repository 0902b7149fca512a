package io

import (
	"bytes"

	"github.com/paveg/polecat/internal/errors"
	"github.com/paveg/polecat/internal/monitoring"
)

// Outcome is a sink's answer to a write
type Outcome int

const (
	// Continue asks for more data
	Continue Outcome = iota
	// Abort stops the write
	Abort
)

func (o Outcome) String() string {
	if o == Abort {
		return "abort"
	}
	return "continue"
}

// OutcomeFromLength maps the callback convention where a negative return
// stops the write.
func OutcomeFromLength(n int) Outcome {
	if n < 0 {
		return Abort
	}
	return Continue
}

// Sink receives bytes from the engine
type Sink interface {
	Write(p []byte) Outcome
}

// SinkFunc adapts a function to a Sink
type SinkFunc func(p []byte) Outcome

// Write calls f(p)
func (f SinkFunc) Write(p []byte) Outcome {
	return f(p)
}

// BufferSink collects everything written to it
type BufferSink struct {
	bytes.Buffer
}

// Write appends p
func (b *BufferSink) Write(p []byte) Outcome {
	b.Buffer.Write(p)
	return Continue
}

// SinkWriter is an io.Writer over a Sink. Writes are split into chunks of at
// most chunkSize bytes and the sink is consulted after every chunk.
type SinkWriter struct {
	sink      Sink
	chunkSize int
	written   int64
	aborted   bool
	metrics   *monitoring.Metrics
	target    string
}

// DefaultSinkChunkSize is used when a non-positive chunk size is given
const DefaultSinkChunkSize = 64 * 1024

// NewSinkWriter creates a writer over sink
func NewSinkWriter(sink Sink, chunkSize int) *SinkWriter {
	if chunkSize <= 0 {
		chunkSize = DefaultSinkChunkSize
	}
	return &SinkWriter{sink: sink, chunkSize: chunkSize}
}

// Instrument counts written bytes under target
func (w *SinkWriter) Instrument(m *monitoring.Metrics, target string) *SinkWriter {
	w.metrics = monitoring.Resolve(m)
	w.target = target
	return w
}

// Write hands p to the sink chunk by chunk. Once the sink has aborted every
// call fails.
func (w *SinkWriter) Write(p []byte) (int, error) {
	if w.aborted {
		return 0, errors.NewIOError("SinkWrite", errors.ErrSinkAborted)
	}
	n := 0
	for n < len(p) {
		end := n + w.chunkSize
		if end > len(p) {
			end = len(p)
		}
		outcome := w.sink.Write(p[n:end])
		w.written += int64(end - n)
		w.metrics.AddSinkBytes(w.target, end-n)
		n = end
		if outcome == Abort {
			w.aborted = true
			return n, errors.NewIOError("SinkWrite", errors.ErrSinkAborted)
		}
	}
	return n, nil
}

// Written returns the number of bytes handed to the sink
func (w *SinkWriter) Written() int64 {
	return w.written
}

// Aborted reports whether the sink stopped the write
func (w *SinkWriter) Aborted() bool {
	return w.aborted
}
