package rowcsv

import (
	"context"
	"io"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// ctxWriter observes cancellation whenever buffered output is flushed to the sink.
type ctxWriter struct {
	ctx context.Context
	w   io.Writer
}

func (c *ctxWriter) Write(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.w.Write(p)
}

// ctxReader observes cancellation whenever the staging buffer is refilled from the source.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// encodeSink wraps w so UTF-8 output is transcoded into charset.
// The returned closer must be closed to flush the transcoder.
func encodeSink(w io.Writer, charset encoding.Encoding) (io.Writer, io.Closer) {
	if charset == nil {
		return w, nil
	}
	tw := transform.NewWriter(w, charset.NewEncoder())
	return tw, tw
}

// decodeSource wraps r so input in charset is transcoded to UTF-8.
func decodeSource(r io.Reader, charset encoding.Encoding) io.Reader {
	if charset == nil {
		return r
	}
	return transform.NewReader(r, charset.NewDecoder())
}
