package rowcsv

import (
	"iter"
	"strings"
	"sync"
	"unicode/utf8"
)

const (
	// segment limits keep pooled cells from holding on to large values
	segmentSize    = 128
	poolMaxSegment = 64
)

var segmentPool = sync.Pool{
	New: func() any {
		buf := make([]byte, 0, segmentSize)
		return &buf
	},
}

func getSegment() *[]byte {
	return segmentPool.Get().(*[]byte)
}

func putSegment(buf *[]byte) {
	if buf == nil || cap(*buf) != segmentSize {
		return
	}
	*buf = (*buf)[:0]
	segmentPool.Put(buf)
}

// CellWriter receives the text a Formatter produces for one cell.
//
// The text is stored in fixed-size pooled segments; a long value spans several discontiguous
// segments and the encoder scans and copies them in place.
type CellWriter struct {
	segs []*[]byte
	n    int
}

// Write appends p to the cell. It never fails.
func (c *CellWriter) Write(p []byte) (int, error) {
	written := len(p)
	for len(p) > 0 {
		seg := c.tail()
		room := cap(*seg) - len(*seg)
		if room > len(p) {
			room = len(p)
		}
		*seg = append(*seg, p[:room]...)
		p = p[room:]
	}
	c.n += written
	return written, nil
}

// WriteString appends s to the cell. It never fails.
func (c *CellWriter) WriteString(s string) (int, error) {
	written := len(s)
	for len(s) > 0 {
		seg := c.tail()
		room := cap(*seg) - len(*seg)
		if room > len(s) {
			room = len(s)
		}
		*seg = append(*seg, s[:room]...)
		s = s[room:]
	}
	c.n += written
	return written, nil
}

// WriteByte appends b to the cell. It never fails.
func (c *CellWriter) WriteByte(b byte) error {
	seg := c.tail()
	*seg = append(*seg, b)
	c.n++
	return nil
}

// WriteRune appends the UTF-8 encoding of r.
func (c *CellWriter) WriteRune(r rune) (int, error) {
	var scratch [utf8.UTFMax]byte
	return c.Write(utf8.AppendRune(scratch[:0], r))
}

// Len returns the number of bytes written so far.
func (c *CellWriter) Len() int { return c.n }

// Segments yields the written bytes in order, one segment at a time.
// The slices are only valid until the cell is reused.
func (c *CellWriter) Segments() iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		for _, seg := range c.segs {
			if len(*seg) == 0 {
				continue
			}
			if !yield(*seg) {
				return
			}
		}
	}
}

// String materialises the cell contents.
func (c *CellWriter) String() string {
	if len(c.segs) == 1 {
		return string(*c.segs[0])
	}
	var b strings.Builder
	b.Grow(c.n)
	for seg := range c.Segments() {
		b.Write(seg)
	}
	return b.String()
}

func (c *CellWriter) tail() *[]byte {
	if n := len(c.segs); n > 0 {
		if seg := c.segs[n-1]; len(*seg) < cap(*seg) {
			return seg
		}
	}
	seg := getSegment()
	c.segs = append(c.segs, seg)
	return seg
}

// reset returns all segments to the pool.
func (c *CellWriter) reset() {
	for i, seg := range c.segs {
		putSegment(seg)
		c.segs[i] = nil
	}
	if cap(c.segs) > poolMaxSegment {
		c.segs = nil
	} else {
		c.segs = c.segs[:0]
	}
	c.n = 0
}

// setString replaces the contents with s; used for headers and comment lines.
func (c *CellWriter) setString(s string) {
	c.reset()
	_, _ = c.WriteString(s)
}
