package rowcsv

import (
	"context"
	"io"
	"unsafe"

	"go.uber.org/zap"
)

// RecordReader parses raw []string records using the grammar configured in Options.
type RecordReader struct {
	tok  *tokenizer
	src  *ctxReader
	opts *Options

	// ReuseRecord indicates whether Read should reuse the backing array of the returned slice.
	ReuseRecord bool
	// FieldsPerRecord expects each record to contain this many fields. Zero captures the width
	// of the first record; a negative value disables the check.
	FieldsPerRecord int
	// OnComment receives comment lines; consecutive comment lines arrive joined by the row ending.
	// When nil, comments are skipped.
	OnComment func(comment string) error

	record []string
}

// NewRecordReader creates a RecordReader that consumes CSV data from r, panicking if r is nil.
// A nil opts selects DefaultOptions.
func NewRecordReader(r io.Reader, opts *Options) *RecordReader {
	if r == nil {
		panic("rowcsv: reader source cannot be nil")
	}
	if opts == nil {
		opts = DefaultOptions()
	}
	src := &ctxReader{ctx: context.Background(), r: r}
	return &RecordReader{
		tok:    newTokenizer(decodeSource(src, opts.charset), opts),
		src:    src,
		opts:   opts,
		record: make([]string, 0, 16),
	}
}

// Read parses the next CSV record. io.EOF signals that no more records remain.
func (r *RecordReader) Read() (dst []string, err error) {
	if r == nil || r.tok == nil {
		return nil, io.EOF
	}
	for {
		kind, err := r.tok.next()
		if err != nil {
			return nil, err
		}
		if kind == tokenComment {
			if err := r.comment(); err != nil {
				return nil, err
			}
			continue
		}
		return r.buildRecord()
	}
}

// ReadContext is Read with cancellation observed whenever the source is read.
func (r *RecordReader) ReadContext(ctx context.Context) ([]string, error) {
	if r == nil || r.tok == nil {
		return nil, io.EOF
	}
	r.src.ctx = ctx
	defer func() { r.src.ctx = context.Background() }()
	return r.Read()
}

// ReadAll exhausts the reader, repeatedly calling Read to collect records until io.EOF
// and returning the accumulated records slice plus the first non-EOF error encountered.
func (r *RecordReader) ReadAll() (records [][]string, err error) {
	for {
		record, err := r.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		if r.ReuseRecord {
			record = append([]string(nil), record...)
		}
		records = append(records, record)
	}
}

// Line returns the line the reader will parse next.
func (r *RecordReader) Line() int {
	return r.tok.line
}

func (r *RecordReader) comment() error {
	text := r.tok.commentText()
	Logger().Debug("comment read", zap.Int("line", r.tok.line), zap.Int("bytes", len(text)))
	if r.OnComment == nil {
		return nil
	}
	return r.OnComment(text)
}

// buildRecord maps the accumulated fieldBounds onto the data buffer, respecting ReuseRecord,
// and returns the materialised []string representing the current record.
func (r *RecordReader) buildRecord() ([]string, error) {
	tok := r.tok
	fieldCount := tok.fieldCount()

	var recordStr string
	if r.ReuseRecord {
		if len(tok.dataBuf) > 0 {
			// Zero-copy string construction so fields can share a single backing buffer.
			recordStr = unsafe.String(unsafe.SliceData(tok.dataBuf), len(tok.dataBuf))
		}
		if cap(r.record) < fieldCount {
			r.record = make([]string, fieldCount)
		}
		r.record = r.record[:fieldCount]
	} else {
		recordStr = string(tok.dataBuf)
		r.record = make([]string, fieldCount)
	}

	for i := 0; i < fieldCount; i++ {
		start := tok.fieldBounds[2*i]
		end := tok.fieldBounds[2*i+1]
		r.record[i] = recordStr[start:end]
	}

	if r.FieldsPerRecord < 0 {
		return r.record, nil
	}
	if r.FieldsPerRecord == 0 {
		r.FieldsPerRecord = len(r.record)
		return r.record, nil
	}
	if len(r.record) != r.FieldsPerRecord {
		return r.record, ErrFieldCount
	}
	return r.record, nil
}
