package rowcsv

import (
	"io"
	"unsafe"
)

type tokenKind uint8

const (
	tokenRecord tokenKind = iota + 1
	tokenComment
)

type cellState uint8

const (
	stateFieldStart cellState = iota
	stateUnquoted
	stateQuoted
	stateAfterQuote
)

// tokenizer splits a byte stream into records and comments.
//
// Cell contents are accumulated in dataBuf and addressed by pairs of offsets in fieldBounds, so
// a record costs a single backing buffer regardless of its width.
type tokenizer struct {
	src io.Reader

	buf    []byte
	bufPos int
	bufLen int
	bufErr error

	dataBuf     []byte
	fieldBounds []int
	comment     []byte
	joiner      []byte

	separator byte
	quote     byte
	escape    byte
	marker    byte

	line     int
	finished bool
}

func newTokenizer(src io.Reader, opts *Options) *tokenizer {
	return &tokenizer{
		src:         src,
		buf:         make([]byte, opts.bufferSize),
		dataBuf:     make([]byte, 0, 512),
		fieldBounds: make([]int, 0, 32),
		joiner:      opts.rowEnding.bytes(),
		separator:   opts.separator,
		quote:       opts.quote,
		escape:      opts.escape,
		marker:      opts.comment,
		line:        1,
	}
}

// next parses the next record or run of consecutive comment lines.
// io.EOF signals that the source is exhausted.
func (t *tokenizer) next() (tokenKind, error) {
	if t.finished {
		return 0, io.EOF
	}
	t.comment = t.comment[:0]
	sawComment := false

	for t.marker != 0 {
		b, err := t.peekByte()
		if err != nil && err != io.EOF {
			return 0, err
		}
		if err == io.EOF || b != t.marker {
			break
		}
		if sawComment {
			t.comment = append(t.comment, t.joiner...)
		}
		sawComment = true
		t.bufPos++
		if err := t.readCommentLine(); err != nil {
			return 0, err
		}
	}
	if sawComment {
		return tokenComment, nil
	}

	if err := t.readRecord(); err != nil {
		return 0, err
	}
	return tokenRecord, nil
}

// readCommentLine appends the rest of the current line to comment.
func (t *tokenizer) readCommentLine() error {
	for {
		if err := t.fill(); err != nil {
			if err == io.EOF {
				t.finished = true
				return nil
			}
			return err
		}
		data := t.buf[t.bufPos:t.bufLen]
		end := -1
		for i, c := range data {
			if c == '\r' || c == '\n' {
				end = i
				break
			}
		}
		if end < 0 {
			t.comment = append(t.comment, data...)
			t.bufPos = t.bufLen
			continue
		}
		t.comment = append(t.comment, data[:end]...)
		t.bufPos += end
		return t.consumeRowEnding()
	}
}

// readRecord parses one record into dataBuf and fieldBounds.
func (t *tokenizer) readRecord() error {
	t.dataBuf = t.dataBuf[:0]
	t.fieldBounds = t.fieldBounds[:0]

	state := stateFieldStart
	started := false
	column := 1
	fieldStart := 0

	closeField := func() {
		t.fieldBounds = append(t.fieldBounds, fieldStart, len(t.dataBuf))
		fieldStart = len(t.dataBuf)
	}

	for {
		if err := t.fill(); err != nil {
			if err != io.EOF {
				return err
			}
			if state == stateQuoted {
				t.finished = true
				return t.wrapError(column, ErrUnterminatedQuote)
			}
			t.finished = true
			if !started {
				return io.EOF
			}
			// Flush a trailing field if data ended without a row ending.
			closeField()
			return nil
		}
		started = true

		if state == stateUnquoted || state == stateQuoted {
			// Copy runs of plain bytes in one step.
			if n := t.plainRun(state == stateQuoted); n > 0 {
				t.dataBuf = append(t.dataBuf, t.buf[t.bufPos:t.bufPos+n]...)
				t.bufPos += n
				column += n
				continue
			}
		}

		b := t.buf[t.bufPos]
		t.bufPos++
		curColumn := column
		column++

		switch state {
		case stateQuoted:
			if t.escape != 0 && t.escape != t.quote && b == t.escape {
				next, err := t.peekByte()
				if err != nil && err != io.EOF {
					return err
				}
				if err == nil && (next == t.quote || next == t.escape) {
					t.bufPos++
					column++
					t.dataBuf = append(t.dataBuf, next)
					continue
				}
				t.dataBuf = append(t.dataBuf, b)
				continue
			}
			if b == t.quote {
				if t.escape == t.quote {
					// Double quote inside quotes represents an escaped quote.
					next, err := t.peekByte()
					if err != nil && err != io.EOF {
						return err
					}
					if err == nil && next == t.quote {
						t.bufPos++
						column++
						t.dataBuf = append(t.dataBuf, t.quote)
						continue
					}
				}
				state = stateAfterQuote
				continue
			}
			if b == '\n' {
				// Track logical line numbers for embedded row endings.
				t.line++
				column = 1
			}
			t.dataBuf = append(t.dataBuf, b)

		default:
			switch {
			case b == t.separator:
				closeField()
				state = stateFieldStart
			case b == '\n' || b == '\r':
				t.bufPos--
				closeField()
				return t.consumeRowEnding()
			case state == stateAfterQuote:
				return t.wrapError(curColumn, ErrQuoteTrailer)
			case t.quote != 0 && b == t.quote:
				// A quote starts a quoted field only at the beginning of the field.
				if state == stateFieldStart {
					state = stateQuoted
					continue
				}
				return t.wrapError(curColumn, ErrBareQuote)
			default:
				t.dataBuf = append(t.dataBuf, b)
				state = stateUnquoted
			}
		}
	}
}

// plainRun counts buffered bytes that need no interpretation in the given state.
func (t *tokenizer) plainRun(quoted bool) int {
	data := t.buf[t.bufPos:t.bufLen]
	for i, c := range data {
		if quoted {
			if c == t.quote || (t.escape != 0 && c == t.escape) || c == '\n' {
				return i
			}
			continue
		}
		if c == t.separator || c == '\n' || c == '\r' || (t.quote != 0 && c == t.quote) {
			return i
		}
	}
	return len(data)
}

// consumeRowEnding consumes CR, LF or CRLF at the current position.
func (t *tokenizer) consumeRowEnding() error {
	b := t.buf[t.bufPos]
	t.bufPos++
	t.line++
	if b == '\r' {
		next, err := t.peekByte()
		if err == nil && next == '\n' {
			t.bufPos++
		} else if err != nil && err != io.EOF {
			return err
		}
	}
	return nil
}

// fill ensures at least one buffered byte is available.
func (t *tokenizer) fill() error {
	for t.bufPos >= t.bufLen {
		if t.bufErr != nil {
			return t.bufErr
		}
		n, err := t.src.Read(t.buf)
		t.bufPos = 0
		t.bufLen = n
		if err != nil {
			t.bufErr = err
		}
	}
	return nil
}

// peekByte returns the next buffered byte without consuming it.
func (t *tokenizer) peekByte() (byte, error) {
	if err := t.fill(); err != nil {
		return 0, err
	}
	return t.buf[t.bufPos], nil
}

func (t *tokenizer) fieldCount() int {
	return len(t.fieldBounds) / 2
}

// field returns the bytes of field i. They are only valid until the next call to next.
func (t *tokenizer) field(i int) []byte {
	return t.dataBuf[t.fieldBounds[2*i]:t.fieldBounds[2*i+1]]
}

// fieldString returns field i without copying; the string aliases dataBuf.
func (t *tokenizer) fieldString(i int) string {
	b := t.field(i)
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(unsafe.SliceData(b), len(b))
}

func (t *tokenizer) commentText() string {
	return string(t.comment)
}

// wrapError attaches the current line and supplied column to err, producing a *ParseError.
func (t *tokenizer) wrapError(column int, err error) error {
	return &ParseError{Line: t.line, Column: column, Err: err}
}
