package sse

import (
	"bytes"
	"errors"
	"io"
	"iter"
	"net/http"

	"golang.org/x/text/encoding/unicode"
)

const (
	// DataPrefix marks the records a Decoder yields.
	DataPrefix = "data: "

	chunkSize = 4096
)

var recordSep = []byte("\n\n")

// Decoder turns a streamed response body into payload strings. Records are
// delimited by a blank line; only records starting with "data: " produce a
// payload, everything else (event:, id:, comments) is dropped. A record
// still unterminated when the body ends is discarded.
//
// The body is decoded as UTF-8 on the fly: a leading BOM is removed,
// invalid bytes become U+FFFD, and a character split across two reads is
// completed by the second read.
//
// A Decoder is meant for a single consumer goroutine. It never reads more
// than one chunk ahead of the payload being returned; cancel the request
// context to abort a blocked read.
type Decoder struct {
	body io.ReadCloser
	src  io.Reader

	chunk []byte
	buf   []byte

	// scanned is how far buf has been searched for a separator.
	scanned int

	pending []string
	err     error
	closed  bool
}

// NewDecoder wraps body. It fails with ErrStreamUnavailable when body is
// nil or http.NoBody.
func NewDecoder(body io.ReadCloser) (*Decoder, error) {
	if body == nil || body == http.NoBody {
		return nil, ErrStreamUnavailable
	}

	return &Decoder{
		body:  body,
		src:   unicode.UTF8BOM.NewDecoder().Reader(body),
		chunk: make([]byte, chunkSize),
	}, nil
}

// Next returns the next payload. It returns io.EOF once the stream is
// finished or the Decoder was closed. A failed read surfaces exactly once
// as a *ReadError, after the payloads completed before the failure; every
// later call returns io.EOF.
func (d *Decoder) Next() (string, error) {
	for {
		if len(d.pending) > 0 {
			p := d.pending[0]
			d.pending = d.pending[1:]
			return p, nil
		}

		if d.err != nil {
			err := d.err
			d.err = nil
			return "", err
		}

		if d.closed {
			return "", io.EOF
		}

		n, err := d.src.Read(d.chunk)
		if n > 0 {
			d.feed(d.chunk[:n])
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				d.err = &ReadError{Err: err}
			}
			_ = d.release()
		}
	}
}

// Payloads returns the payloads as a sequence. A read failure is yielded
// once as the final element. The body is released when the loop ends,
// including on an early break.
func (d *Decoder) Payloads() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		defer d.Close()

		for {
			p, err := d.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", err)
				return
			}
			if !yield(p, nil) {
				return
			}
		}
	}
}

// Close releases the body and discards any payloads not yet returned.
// It is safe to call more than once.
func (d *Decoder) Close() error {
	d.pending = nil
	d.err = nil
	return d.release()
}

// feed appends decoded text and moves every complete record out of the
// buffer. At most one partial record remains afterwards.
func (d *Decoder) feed(text []byte) {
	d.buf = append(d.buf, text...)

	start := 0
	// The separator may straddle the previous feed boundary.
	from := max(d.scanned-len(recordSep)+1, 0)
	for {
		i := bytes.Index(d.buf[from:], recordSep)
		if i < 0 {
			break
		}
		end := from + i
		if p, ok := bytes.CutPrefix(d.buf[start:end], []byte(DataPrefix)); ok {
			d.pending = append(d.pending, string(p))
		}
		start = end + len(recordSep)
		from = start
	}

	if start > 0 {
		d.buf = append(d.buf[:0], d.buf[start:]...)
	}
	d.scanned = len(d.buf)
}

func (d *Decoder) release() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.buf = nil
	d.scanned = 0
	return d.body.Close()
}
