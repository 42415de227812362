package sse

import "io"

type flusher interface {
	Flush() error
}

// Writer emits "data: <payload>\n\n" records. If the destination can be
// flushed (e.g. a *bufio.Writer handed out by fasthttp), each record is
// flushed as soon as it is written so clients see deltas immediately.
type Writer struct {
	w io.Writer
	f flusher
}

// NewWriter returns a Writer over w.
func NewWriter(w io.Writer) *Writer {
	sw := &Writer{w: w}
	if f, ok := w.(flusher); ok {
		sw.f = f
	}
	return sw
}

// WriteData writes one record. The payload is written as is; a payload
// containing a blank line will be split into several records by the
// reading side.
func (w *Writer) WriteData(payload string) error {
	if _, err := io.WriteString(w.w, DataPrefix+payload+"\n\n"); err != nil {
		return err
	}
	if w.f != nil {
		return w.f.Flush()
	}
	return nil
}
