package sse_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing/iotest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/consolechat/pkg/sse"
)

// body is an io.ReadCloser over a fixed list of chunks. Each Read returns
// exactly one chunk, then failWith (or io.EOF).
type body struct {
	chunks   [][]byte
	failWith error
	closed   int
}

func newBody(chunks ...string) *body {
	b := &body{}
	for _, c := range chunks {
		b.chunks = append(b.chunks, []byte(c))
	}
	return b
}

func (b *body) Read(p []byte) (int, error) {
	if len(b.chunks) == 0 {
		if b.failWith != nil {
			return 0, b.failWith
		}
		return 0, io.EOF
	}
	n := copy(p, b.chunks[0])
	if n == len(b.chunks[0]) {
		b.chunks = b.chunks[1:]
	} else {
		b.chunks[0] = b.chunks[0][n:]
	}
	return n, nil
}

func (b *body) Close() error {
	b.closed++
	return nil
}

// readCloser attaches a close counter to any reader.
type readCloser struct {
	io.Reader
	closed int
}

func (r *readCloser) Close() error {
	r.closed++
	return nil
}

func collect(d *sse.Decoder) ([]string, error) {
	var out []string
	for p, err := range d.Payloads() {
		if err != nil {
			return out, err
		}
		out = append(out, p)
	}
	return out, nil
}

var _ = Describe("Decoder", func() {
	Describe("NewDecoder", func() {
		It("rejects a nil body", func() {
			_, err := sse.NewDecoder(nil)
			Expect(err).To(MatchError(sse.ErrStreamUnavailable))
		})

		It("rejects http.NoBody", func() {
			_, err := sse.NewDecoder(http.NoBody)
			Expect(err).To(MatchError(sse.ErrStreamUnavailable))
		})
	})

	Describe("Payloads", func() {
		It("yields payloads in order from a single chunk", func() {
			d, err := sse.NewDecoder(newBody("data: A\n\ndata: B\n\n"))
			Expect(err).NotTo(HaveOccurred())

			out, err := collect(d)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal([]string{"A", "B"}))
		})

		It("reassembles records split across chunks", func() {
			d, err := sse.NewDecoder(newBody("da", "ta: hel", "lo\n", "\n"))
			Expect(err).NotTo(HaveOccurred())

			out, err := collect(d)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal([]string{"hello"}))
		})

		It("produces the same payloads byte by byte as in one chunk", func() {
			stream := "data: 你好\n\nevent: ping\n\ndata: {\"delta\":\"x\"}\n\ndata: \n\n: c\n\ndata: end\n\ndata: tail"

			whole, err := sse.NewDecoder(newBody(stream))
			Expect(err).NotTo(HaveOccurred())
			expected, err := collect(whole)
			Expect(err).NotTo(HaveOccurred())
			Expect(expected).To(Equal([]string{"你好", `{"delta":"x"}`, "", "end"}))

			rc := &readCloser{Reader: iotest.OneByteReader(strings.NewReader(stream))}
			split, err := sse.NewDecoder(rc)
			Expect(err).NotTo(HaveOccurred())
			out, err := collect(split)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal(expected))
		})

		It("completes a multi-byte character split across chunks", func() {
			// 日 is E6 97 A5
			d, err := sse.NewDecoder(newBody("data: \xe6\x97", "\xa5\n\n"))
			Expect(err).NotTo(HaveOccurred())

			out, err := collect(d)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal([]string{"日"}))
		})

		It("drops records without the data prefix", func() {
			// event: and comment records are dropped, not reported.
			d, err := sse.NewDecoder(newBody("event: ping\n\n: keep-alive\n\ndata:nospace\n\ndata: ok\n\n"))
			Expect(err).NotTo(HaveOccurred())

			out, err := collect(d)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal([]string{"ok"}))
		})

		It("strips the prefix only once", func() {
			d, err := sse.NewDecoder(newBody("data: data: x\n\n"))
			Expect(err).NotTo(HaveOccurred())

			out, err := collect(d)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal([]string{"data: x"}))
		})

		It("drops the tail of a payload that contains a blank line", func() {
			d, err := sse.NewDecoder(newBody("data: para one\n\npara two\n\ndata: next\n\n"))
			Expect(err).NotTo(HaveOccurred())

			out, err := collect(d)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal([]string{"para one", "next"}))
		})

		It("never emits an unterminated trailing record", func() {
			d, err := sse.NewDecoder(newBody("data: partial"))
			Expect(err).NotTo(HaveOccurred())

			out, err := collect(d)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(BeEmpty())
		})

		It("treats extra newlines as empty records", func() {
			d, err := sse.NewDecoder(newBody("data: a\n\n\n\ndata: b\n", "\n"))
			Expect(err).NotTo(HaveOccurred())

			out, err := collect(d)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal([]string{"a", "b"}))
		})

		It("strips a leading byte order mark", func() {
			d, err := sse.NewDecoder(newBody("\xef\xbb\xbfdata: A\n\n"))
			Expect(err).NotTo(HaveOccurred())

			out, err := collect(d)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal([]string{"A"}))
		})

		It("replaces invalid bytes with U+FFFD", func() {
			d, err := sse.NewDecoder(newBody("data: a\xffb\n\n"))
			Expect(err).NotTo(HaveOccurred())

			out, err := collect(d)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal([]string{"a\uFFFDb"}))
		})

		It("yields nothing on an empty stream", func() {
			d, err := sse.NewDecoder(newBody())
			Expect(err).NotTo(HaveOccurred())

			out, err := collect(d)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(BeEmpty())
		})

		It("yields nothing when iterated a second time", func() {
			d, err := sse.NewDecoder(newBody("data: A\n\n"))
			Expect(err).NotTo(HaveOccurred())

			_, err = collect(d)
			Expect(err).NotTo(HaveOccurred())

			out, err := collect(d)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(BeEmpty())
		})

		It("closes the body when the stream ends", func() {
			b := newBody("data: A\n\n")
			d, err := sse.NewDecoder(b)
			Expect(err).NotTo(HaveOccurred())

			_, err = collect(d)
			Expect(err).NotTo(HaveOccurred())
			Expect(b.closed).To(Equal(1))
		})

		It("closes the body when the consumer stops early", func() {
			b := newBody("data: A\n\n", "data: B\n\n")
			d, err := sse.NewDecoder(b)
			Expect(err).NotTo(HaveOccurred())

			for p := range d.Payloads() {
				Expect(p).To(Equal("A"))
				break
			}
			Expect(b.closed).To(Equal(1))

			p, err := d.Next()
			Expect(err).To(MatchError(io.EOF))
			Expect(p).To(BeEmpty())
		})
	})

	Describe("read failures", func() {
		It("yields earlier payloads and then the failure", func() {
			b := newBody("data: A\n\n")
			b.failWith = errors.New("connection reset")
			d, err := sse.NewDecoder(b)
			Expect(err).NotTo(HaveOccurred())

			out, err := collect(d)
			Expect(out).To(Equal([]string{"A"}))
			Expect(err).To(MatchError(sse.ErrTransportRead))
			Expect(err).To(MatchError(ContainSubstring("connection reset")))

			var readErr *sse.ReadError
			Expect(errors.As(err, &readErr)).To(BeTrue())
			Expect(b.closed).To(Equal(1))
		})

		It("reports the failure once and then ends", func() {
			rc := &readCloser{Reader: iotest.DataErrReader(iotest.ErrReader(context.Canceled))}
			d, err := sse.NewDecoder(rc)
			Expect(err).NotTo(HaveOccurred())

			_, err = d.Next()
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
			Expect(errors.Is(err, sse.ErrTransportRead)).To(BeTrue())

			_, err = d.Next()
			Expect(err).To(MatchError(io.EOF))
		})

		It("yields payloads completed by the failing read before the error", func() {
			rc := &readCloser{Reader: iotest.DataErrReader(io.MultiReader(
				strings.NewReader("data: A\n\ndata: B\n\n"),
				iotest.ErrReader(errors.New("boom")),
			))}
			d, err := sse.NewDecoder(rc)
			Expect(err).NotTo(HaveOccurred())

			out, err := collect(d)
			Expect(out).To(Equal([]string{"A", "B"}))
			Expect(err).To(MatchError(ContainSubstring("boom")))
			Expect(rc.closed).To(Equal(1))
		})
	})

	Describe("Close", func() {
		It("is idempotent and discards pending payloads", func() {
			b := newBody("data: A\n\ndata: B\n\n")
			d, err := sse.NewDecoder(b)
			Expect(err).NotTo(HaveOccurred())

			p, err := d.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(p).To(Equal("A"))

			Expect(d.Close()).To(Succeed())
			Expect(d.Close()).To(Succeed())
			Expect(b.closed).To(Equal(1))

			_, err = d.Next()
			Expect(err).To(MatchError(io.EOF))
		})
	})

	It("handles many records in one read", func() {
		var sb strings.Builder
		for i := range 500 {
			fmt.Fprintf(&sb, "data: %d\n\n", i)
		}

		d, err := sse.NewDecoder(newBody(sb.String()))
		Expect(err).NotTo(HaveOccurred())

		out, err := collect(d)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(HaveLen(500))
		Expect(out[0]).To(Equal("0"))
		Expect(out[499]).To(Equal("499"))
	})
})

var _ = Describe("Writer", func() {
	It("frames payloads as data records", func() {
		var sb strings.Builder
		w := sse.NewWriter(&sb)
		Expect(w.WriteData("hello")).To(Succeed())
		Expect(w.WriteData("")).To(Succeed())
		Expect(sb.String()).To(Equal("data: hello\n\ndata: \n\n"))
	})

	It("flushes after each record", func() {
		f := &flushRecorder{}
		w := sse.NewWriter(f)
		Expect(w.WriteData("a")).To(Succeed())
		Expect(w.WriteData("b")).To(Succeed())
		Expect(f.flushes).To(Equal(2))
	})

	It("round-trips through the Decoder", func() {
		var sb strings.Builder
		w := sse.NewWriter(&sb)
		for _, p := range []string{"one", "二", "three"} {
			Expect(w.WriteData(p)).To(Succeed())
		}

		d, err := sse.NewDecoder(io.NopCloser(strings.NewReader(sb.String())))
		Expect(err).NotTo(HaveOccurred())
		out, err := collect(d)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal([]string{"one", "二", "three"}))
	})
})

type flushRecorder struct {
	strings.Builder
	flushes int
}

func (f *flushRecorder) Flush() error {
	f.flushes++
	return nil
}
