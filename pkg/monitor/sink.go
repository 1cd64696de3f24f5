package monitor

import (
	"bufio"
	"os"
	"strings"
)

// Sink is an append-only text destination owned by exactly one monitor.
// With flush enabled every row is pushed through to the OS immediately;
// otherwise rows are buffered until Close.
type Sink struct {
	file   *os.File
	w      *bufio.Writer
	flush  bool
	stdout bool
	closed bool
}

// NewSink opens a sink at path, truncating any existing file. An empty path
// selects standard output, which Close leaves open.
func NewSink(path string, flush bool) (*Sink, error) {
	if path == "" {
		return &Sink{file: os.Stdout, w: bufio.NewWriter(os.Stdout), flush: flush, stdout: true}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &Sink{file: f, w: bufio.NewWriter(f), flush: flush}, nil
}

// WriteRow joins fields with ", " and appends the line.
func (s *Sink) WriteRow(fields ...string) error {
	if _, err := s.w.WriteString(strings.Join(fields, ", ")); err != nil {
		return err
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return err
	}
	if s.flush {
		return s.w.Flush()
	}
	return nil
}

// Close flushes buffered rows and closes the underlying file. Standard
// output is flushed but never closed. Subsequent calls are no-ops.
func (s *Sink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.w.Flush()
	if !s.stdout {
		if cerr := s.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
