package mcpr

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// StreamWriter appends records to a raw recording.tmcpr stream on disk.
// It is the intermediate artifact of a live recording; WriteArchive later
// copies it into the final .mcpr.
//
// StreamWriter is not safe for concurrent use. The recorder drives it from a
// single goroutine.
type StreamWriter struct {
	bw      *bufio.Writer
	closer  io.Closer
	records int
	last    int32
	closed  bool
}

// NewStreamWriter wraps out. If out implements io.Closer, Close closes it.
func NewStreamWriter(out io.Writer) *StreamWriter {
	s := &StreamWriter{bw: bufio.NewWriter(out)}
	if c, ok := out.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// CreateStream creates (or truncates) the raw stream file at path.
func CreateStream(path string) (*StreamWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create stream %s: %w", path, err)
	}
	return NewStreamWriter(f), nil
}

// WriteRecord frames rec into the buffered stream.
func (s *StreamWriter) WriteRecord(rec Record) error {
	if s.closed {
		return ErrWriterClosed
	}
	if err := WriteRecord(s.bw, rec); err != nil {
		return err
	}
	s.records++
	if rec.Timestamp > s.last {
		s.last = rec.Timestamp
	}
	return nil
}

// Flush pushes buffered bytes to the underlying writer.
func (s *StreamWriter) Flush() error {
	if s.closed {
		return ErrWriterClosed
	}
	return s.bw.Flush()
}

// Records returns the number of records written so far.
func (s *StreamWriter) Records() int { return s.records }

// LastTimestamp returns the highest timestamp written so far.
func (s *StreamWriter) LastTimestamp() int32 { return s.last }

// Close flushes and closes the stream. Subsequent calls are no-ops.
func (s *StreamWriter) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.bw.Flush()
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
