package rowcsv

import (
	"context"
	"iter"

	"go.uber.org/zap"
)

// Writer encodes rows of type T through the members of a Bound configuration.
type Writer[T any] struct {
	rec        *RecordWriter
	bound      *Bound[T]
	userCtx    any
	row        int
	headerDone bool
}

// Write encodes row. The header, when enabled, is written before the first row.
//
// Any failure aborts the whole write: the writer keeps returning the error and output already
// flushed downstream is left as is.
func (w *Writer[T]) Write(row T) error {
	if w == nil {
		return errNilWriter
	}
	if err := w.rec.usable(); err != nil {
		return err
	}
	if err := w.writeHeader(); err != nil {
		return err
	}
	if err := w.rec.beginRow(); err != nil {
		return err
	}
	cell := &w.rec.cell
	for i, m := range w.bound.ser {
		ctx := writingColumnContext(w.row, NamedColumn(i, m.name), w.userCtx)
		if err := w.format(m, row, ctx, cell); err != nil {
			cell.reset()
			return w.rec.fail(err)
		}
		if err := w.rec.writeField(i, len(w.bound.ser), cell); err != nil {
			cell.reset()
			return err
		}
	}
	cell.reset()
	w.row++
	return nil
}

// format stages the cell for m, leaving it empty when the member is suppressed.
func (w *Writer[T]) format(m SerializableMember, row T, ctx Context, cell *CellWriter) error {
	cell.reset()
	if !m.shouldSerialize.IsZero() {
		ok, err := m.shouldSerialize.invoke(row, ctx)
		if err != nil {
			return dataError(OpWrite, "should-serialize failed").at(ctx.Column()).row(ctx.RowNumber()).strategy(m.shouldSerialize).cause(err)
		}
		if !ok {
			return nil
		}
	}
	value, err := m.getter.invoke(row)
	if err != nil {
		return dataError(OpWrite, "getter failed").at(ctx.Column()).row(ctx.RowNumber()).strategy(m.getter).cause(err)
	}
	if m.emitDefault == EmitDefaultValueNo && m.isDefault(value) {
		return nil
	}
	if err := m.formatter.invoke(value, ctx, cell); err != nil {
		return dataError(OpWrite, "formatter failed").at(ctx.Column()).row(ctx.RowNumber()).strategy(m.formatter).cause(err)
	}
	return nil
}

// WriteContext is Write with cancellation observed when output is flushed to the sink.
func (w *Writer[T]) WriteContext(ctx context.Context, row T) error {
	if w == nil {
		return errNilWriter
	}
	if err := w.rec.usable(); err != nil {
		return err
	}
	w.rec.sink.ctx = ctx
	defer func() { w.rec.sink.ctx = context.Background() }()
	return w.Write(row)
}

// WriteAll writes rows, stopping at the first error.
func (w *Writer[T]) WriteAll(rows []T) error {
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteSeq writes every row of seq, stopping at the first error or when ctx is cancelled.
func (w *Writer[T]) WriteSeq(ctx context.Context, seq iter.Seq[T]) error {
	for row := range seq {
		if err := w.WriteContext(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

// WriteComment writes text as comment lines, after the header if one is pending.
func (w *Writer[T]) WriteComment(text string) error {
	if w == nil {
		return errNilWriter
	}
	if err := w.rec.usable(); err != nil {
		return err
	}
	if w.bound.opts.comment == 0 {
		return configError(OpWrite, "No comment character configured, cannot write a comment line")
	}
	if err := w.writeHeader(); err != nil {
		return err
	}
	return w.rec.WriteComment(text)
}

// Flush flushes buffered output to the sink.
func (w *Writer[T]) Flush() error {
	if w == nil {
		return errNilWriter
	}
	return w.rec.Flush()
}

// Close writes a pending header, applies the trailing row-ending policy and flushes.
// The sink itself is not closed.
func (w *Writer[T]) Close() error {
	if w == nil {
		return errNilWriter
	}
	if w.rec.closed {
		return nil
	}
	if w.rec.err == nil {
		// A failed header is already recorded as the writer error returned by Close.
		_ = w.writeHeader()
	}
	if err := w.rec.Close(); err != nil {
		return err
	}
	return w.rec.err
}

// Error reports the first error encountered by the writer.
func (w *Writer[T]) Error() error {
	if w == nil {
		return errNilWriter
	}
	return w.rec.err
}

// RowNumber returns the number of rows written so far.
func (w *Writer[T]) RowNumber() int { return w.row }

func (w *Writer[T]) writeHeader() error {
	if w.headerDone {
		return nil
	}
	w.headerDone = true
	if w.bound.opts.writeHeader != WriteHeaderAlways {
		return nil
	}
	if err := w.rec.beginRow(); err != nil {
		return err
	}
	cell := &w.rec.cell
	defer cell.reset()
	for i, name := range w.bound.columns {
		cell.setString(name)
		if err := w.rec.writeField(i, len(w.bound.columns), cell); err != nil {
			return err
		}
	}
	Logger().Debug("header written", zap.Strings("columns", w.bound.columns))
	return nil
}
