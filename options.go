package rowcsv

import (
	"golang.org/x/text/encoding"
)

const defaultBufferSize = 1 << 10 // 1024 bytes

// RowEnding selects the row terminator used when writing.
// Reading always accepts CR, LF and CRLF.
type RowEnding uint8

const (
	RowEndingCRLF RowEnding = iota
	RowEndingLF
	RowEndingCR
)

func (r RowEnding) String() string {
	switch r {
	case RowEndingCRLF:
		return "CRLF"
	case RowEndingLF:
		return "LF"
	case RowEndingCR:
		return "CR"
	}
	return "RowEnding(?)"
}

func (r RowEnding) bytes() []byte {
	switch r {
	case RowEndingLF:
		return []byte{'\n'}
	case RowEndingCR:
		return []byte{'\r'}
	default:
		return []byte{'\r', '\n'}
	}
}

// WriteHeader controls whether writers emit a header row.
type WriteHeader uint8

const (
	WriteHeaderAlways WriteHeader = iota
	WriteHeaderNever
)

// TrailingRowEnding controls whether a row ending follows the last written row.
type TrailingRowEnding uint8

const (
	TrailingRowEndingNever TrailingRowEnding = iota
	TrailingRowEndingAlways
)

// ReadHeader controls how readers treat the first row.
type ReadHeader uint8

const (
	// ReadHeaderAlways treats the first row as column names.
	ReadHeaderAlways ReadHeader = iota
	// ReadHeaderNever maps cells positionally in binding order.
	ReadHeaderNever
	// ReadHeaderDetect treats the first row as a header iff every cell names a bound member.
	ReadHeaderDetect
)

// Options is the immutable configuration shared by writers and readers.
type Options struct {
	charset           encoding.Encoding
	separator         byte
	quote             byte
	escape            byte
	comment           byte
	rowEnding         RowEnding
	writeHeader       WriteHeader
	trailingRowEnding TrailingRowEnding
	readHeader        ReadHeader
	bufferSize        int
}

// Option configures NewOptions.
type Option func(*Options)

var defaultOptions = mustOptions()

func mustOptions() *Options {
	o, err := NewOptions()
	if err != nil {
		panic(err.Error())
	}
	return o
}

// DefaultOptions returns the shared default configuration:
// separator ',', quote and escape '"', no comment character, CRLF row endings,
// header always written and read, no trailing row ending.
func DefaultOptions() *Options {
	return defaultOptions
}

// NewOptions builds validated Options. Invalid combinations fail with ErrConfiguration.
func NewOptions(opts ...Option) (*Options, error) {
	o := &Options{
		separator:  ',',
		quote:      '"',
		escape:     '"',
		bufferSize: defaultBufferSize,
	}
	for _, opt := range opts {
		opt(o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	return o, nil
}

// With returns a copy of o with opts applied.
func (o *Options) With(opts ...Option) (*Options, error) {
	cp := *o
	for _, opt := range opts {
		opt(&cp)
	}
	if err := cp.validate(); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (o *Options) validate() error {
	for _, c := range []struct {
		name string
		r    byte
	}{{"separator", o.separator}, {"quote", o.quote}, {"escape", o.escape}, {"comment", o.comment}} {
		if c.r >= 0x80 {
			return configError(OpOptions, "%s must be an ASCII character", c.name)
		}
		if c.r == '\r' || c.r == '\n' {
			return configError(OpOptions, "%s cannot be a row ending character", c.name)
		}
	}
	if o.separator == 0 {
		return configError(OpOptions, "separator is required")
	}
	if o.quote != 0 && o.separator == o.quote {
		return configError(OpOptions, "separator and quote cannot both be '%c'", o.separator)
	}
	if o.comment != 0 && (o.comment == o.separator || o.comment == o.quote || o.comment == o.escape) {
		return configError(OpOptions, "comment character '%c' collides with another special character", o.comment)
	}
	if o.escape != 0 && o.quote == 0 {
		return configError(OpOptions, "escape character '%c' requires a quote character", o.escape)
	}
	if o.escape != 0 && o.escape == o.separator {
		return configError(OpOptions, "separator and escape cannot both be '%c'", o.separator)
	}
	if o.rowEnding > RowEndingCR {
		return configError(OpOptions, "unknown row ending %d", o.rowEnding)
	}
	if o.writeHeader > WriteHeaderNever {
		return configError(OpOptions, "unknown write header policy %d", o.writeHeader)
	}
	if o.trailingRowEnding > TrailingRowEndingAlways {
		return configError(OpOptions, "unknown trailing row ending policy %d", o.trailingRowEnding)
	}
	if o.readHeader > ReadHeaderDetect {
		return configError(OpOptions, "unknown read header policy %d", o.readHeader)
	}
	if o.bufferSize <= 0 {
		return configError(OpOptions, "buffer size must be positive")
	}
	return nil
}

// WithSeparator sets the field delimiter.
func WithSeparator(r rune) Option {
	return func(o *Options) { o.separator = asciiOption(r) }
}

// WithQuote sets the quote character. Zero disables quoting.
func WithQuote(r rune) Option {
	return func(o *Options) { o.quote = asciiOption(r) }
}

// WithEscape sets the character that escapes a quote inside a quoted value. Zero disables escaping.
func WithEscape(r rune) Option {
	return func(o *Options) { o.escape = asciiOption(r) }
}

// WithComment sets the line-comment marker. Zero disables comments.
func WithComment(r rune) Option {
	return func(o *Options) { o.comment = asciiOption(r) }
}

// WithRowEnding sets the row terminator used when writing.
func WithRowEnding(r RowEnding) Option {
	return func(o *Options) { o.rowEnding = r }
}

// WithWriteHeader sets the header policy for writers.
func WithWriteHeader(h WriteHeader) Option {
	return func(o *Options) { o.writeHeader = h }
}

// WithTrailingRowEnding sets whether a row ending follows the last row.
func WithTrailingRowEnding(t TrailingRowEnding) Option {
	return func(o *Options) { o.trailingRowEnding = t }
}

// WithReadHeader sets the header policy for readers.
func WithReadHeader(h ReadHeader) Option {
	return func(o *Options) { o.readHeader = h }
}

// WithCharset transcodes byte sinks and sources through enc. Nil means UTF-8.
func WithCharset(enc encoding.Encoding) Option {
	return func(o *Options) { o.charset = enc }
}

// WithBufferSize sets the size of the I/O staging buffers.
func WithBufferSize(n int) Option {
	return func(o *Options) { o.bufferSize = n }
}

// asciiOption maps r to a byte; non-ASCII runes map to an invalid marker caught by validate.
func asciiOption(r rune) byte {
	if r < 0 || r >= 0x80 {
		return 0xFF
	}
	return byte(r)
}

// Separator returns the field delimiter.
func (o *Options) Separator() rune { return rune(o.separator) }

// Quote returns the quote character and whether one is configured.
func (o *Options) Quote() (rune, bool) { return rune(o.quote), o.quote != 0 }

// Escape returns the escape character and whether one is configured.
func (o *Options) Escape() (rune, bool) { return rune(o.escape), o.escape != 0 }

// Comment returns the comment character and whether one is configured.
func (o *Options) Comment() (rune, bool) { return rune(o.comment), o.comment != 0 }

func (o *Options) RowEnding() RowEnding                 { return o.rowEnding }
func (o *Options) WriteHeader() WriteHeader             { return o.writeHeader }
func (o *Options) TrailingRowEnding() TrailingRowEnding { return o.trailingRowEnding }
func (o *Options) ReadHeader() ReadHeader               { return o.readHeader }
func (o *Options) Charset() encoding.Encoding           { return o.charset }
func (o *Options) BufferSize() int                      { return o.bufferSize }
