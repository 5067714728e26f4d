package rowcsv

import (
	"bufio"
	"context"
	"io"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// RecordWriter emits raw []string records using the grammar configured in Options.
type RecordWriter struct {
	dst    *bufio.Writer
	sink   *ctxWriter
	closer io.Closer
	opts   *Options

	// AlwaysQuote forces quoting for all fields when enabled.
	AlwaysQuote bool

	enc      encoder
	cell     CellWriter
	wroteAny bool
	closed   bool
	err      error
}

// NewRecordWriter creates a RecordWriter over w. A nil opts selects DefaultOptions.
func NewRecordWriter(w io.Writer, opts *Options) *RecordWriter {
	if w == nil {
		panic(errWriterNoTarget.Error())
	}
	if opts == nil {
		opts = DefaultOptions()
	}
	rw := &RecordWriter{opts: opts}
	rw.attach(w)
	return rw
}

func (w *RecordWriter) attach(dst io.Writer) {
	w.sink = &ctxWriter{ctx: context.Background(), w: dst}
	out, closer := encodeSink(w.sink, w.opts.charset)
	w.closer = closer
	if w.dst == nil {
		w.dst = bufio.NewWriterSize(out, w.opts.bufferSize)
	} else {
		w.dst.Reset(out)
	}
	w.enc = newEncoder(w.dst, w.opts)
}

// Reset updates the underlying writer while preserving the configuration.
// A zero RecordWriter is usable after Reset and writes with DefaultOptions.
func (w *RecordWriter) Reset(dst io.Writer) {
	if w == nil {
		panic(errNilWriter.Error())
	}
	if dst == nil {
		panic(errWriterNoTarget.Error())
	}
	if w.opts == nil {
		w.opts = DefaultOptions()
	}
	w.attach(dst)
	w.wroteAny = false
	w.closed = false
	w.err = nil
}

// Write emits a single record. Records are separated by the configured row ending.
func (w *RecordWriter) Write(record []string) error {
	if err := w.usable(); err != nil {
		return err
	}
	if err := w.beginRow(); err != nil {
		return err
	}
	for i := range record {
		w.cell.setString(record[i])
		if err := w.writeField(i, len(record), &w.cell); err != nil {
			return err
		}
	}
	w.cell.reset()
	return nil
}

// WriteContext is Write with cancellation observed when output is flushed to the sink.
func (w *RecordWriter) WriteContext(ctx context.Context, record []string) error {
	if err := w.usable(); err != nil {
		return err
	}
	w.sink.ctx = ctx
	defer func() { w.sink.ctx = context.Background() }()
	return w.Write(record)
}

// WriteAll writes multiple records, stopping at the first error.
func (w *RecordWriter) WriteAll(records [][]string) error {
	if w == nil {
		return errNilWriter
	}
	for _, record := range records {
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

// WriteComment emits text as comment lines. Multi-line text yields one comment line per line.
func (w *RecordWriter) WriteComment(text string) error {
	if err := w.usable(); err != nil {
		return err
	}
	if w.opts.comment == 0 {
		return configError(OpWrite, "No comment character configured, cannot write a comment line")
	}
	if err := w.beginRow(); err != nil {
		return err
	}
	return w.fail(w.enc.writeComment(text))
}

// Flush flushes pending buffered data to the underlying writer.
func (w *RecordWriter) Flush() error {
	if w == nil {
		return errNilWriter
	}
	if w.dst == nil {
		return errWriterNoTarget
	}
	if w.err != nil {
		return w.err
	}
	return w.fail(w.dst.Flush())
}

// Close applies the trailing row-ending policy and flushes. It does not close the sink.
func (w *RecordWriter) Close() error {
	if w == nil {
		return errNilWriter
	}
	if w.closed {
		return nil
	}
	w.closed = true
	defer w.cell.reset()

	var err error
	if w.err == nil && w.wroteAny && w.opts.trailingRowEnding == TrailingRowEndingAlways {
		err = w.fail(w.enc.writeRowEnding())
	}
	if w.err == nil {
		err = multierr.Append(err, w.fail(w.dst.Flush()))
	}
	if w.closer != nil {
		err = multierr.Append(err, w.closer.Close())
	}
	Logger().Debug("record writer closed", zap.Bool("wrote", w.wroteAny), zap.Error(err))
	return err
}

// Error reports the first error encountered by the writer.
func (w *RecordWriter) Error() error {
	if w == nil {
		return errNilWriter
	}
	return w.err
}

func (w *RecordWriter) usable() error {
	if w == nil {
		return errNilWriter
	}
	if w.dst == nil {
		return errWriterNoTarget
	}
	if w.closed {
		return errWriterClosed
	}
	return w.err
}

// beginRow separates the next row from whatever was written before it.
func (w *RecordWriter) beginRow() error {
	if w.wroteAny {
		if err := w.enc.writeRowEnding(); err != nil {
			return w.fail(err)
		}
	}
	w.wroteAny = true
	return nil
}

// writeField emits cell as field i of a row with n fields.
// A row made of one empty field is written as an empty quoted value so it is not read back as
// a blank line.
func (w *RecordWriter) writeField(i, n int, cell *CellWriter) error {
	if i > 0 {
		if err := w.enc.writeSeparator(); err != nil {
			return w.fail(err)
		}
	}
	w.enc.alwaysQuote = w.AlwaysQuote || (n == 1 && cell.Len() == 0 && w.enc.quote != 0)
	return w.fail(w.enc.writeCell(cell))
}

// fail records err as the sticky writer error.
func (w *RecordWriter) fail(err error) error {
	if err != nil && w.err == nil {
		w.err = err
	}
	return err
}
