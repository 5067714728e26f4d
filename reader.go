package rowcsv

import (
	"context"
	"io"
	"iter"
	"strings"

	"go.uber.org/zap"
)

// Reader decodes rows of type T through the members of a Bound configuration.
type Reader[T any] struct {
	rec     *RecordReader
	bound   *Bound[T]
	userCtx any

	// OnComment receives comment lines; consecutive comment lines arrive joined by the row ending.
	// When nil, comments are skipped.
	OnComment func(comment string) error

	// columns maps a cell position to a member index, -1 for unbound cells.
	columns    []int
	headerDone bool
	row        int

	args    []any
	seen    []bool
	pending []pendingSet
	resets  []pendingReset

	closed bool
	err    error
}

type pendingSet struct {
	value  any
	ctx    Context
	member int
}

type pendingReset struct {
	ctx    Context
	member int
}

// Read decodes the next row. io.EOF signals that no more rows remain.
//
// Any failure aborts the whole read: the reader keeps returning the error.
func (r *Reader[T]) Read() (T, error) {
	var zero T
	if r == nil {
		return zero, io.EOF
	}
	if r.closed {
		return zero, errReaderClosed
	}
	if r.err != nil {
		return zero, r.err
	}
	row, err := r.read()
	if err != nil && err != io.EOF {
		r.err = err
	}
	return row, err
}

func (r *Reader[T]) read() (T, error) {
	var zero T
	tok := r.rec.tok
	for {
		kind, err := tok.next()
		if err != nil {
			return zero, err
		}
		if kind == tokenComment {
			if err := r.rec.comment(); err != nil {
				return zero, err
			}
			continue
		}
		if !r.headerDone {
			r.headerDone = true
			isHeader, err := r.mapColumns()
			if err != nil {
				return zero, err
			}
			if isHeader {
				continue
			}
		}
		return r.bindRow()
	}
}

// ReadContext is Read with cancellation observed whenever the source is read.
func (r *Reader[T]) ReadContext(ctx context.Context) (T, error) {
	if r == nil || r.closed {
		return r.Read()
	}
	r.rec.src.ctx = ctx
	defer func() { r.rec.src.ctx = context.Background() }()
	return r.Read()
}

// ReadAll decodes every remaining row.
func (r *Reader[T]) ReadAll() ([]T, error) {
	var rows []T
	for {
		row, err := r.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
}

// All yields every remaining row; iteration stops after the first error.
func (r *Reader[T]) All() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for {
			row, err := r.Read()
			if err == io.EOF {
				return
			}
			if !yield(row, err) || err != nil {
				return
			}
		}
	}
}

// Result is one element of a Stream.
type Result[T any] struct {
	Row T
	Err error
}

// Stream decodes rows on a separate goroutine. The channel is closed on EOF, after the first
// error (which is delivered), or when ctx is cancelled. The reader must not be used directly
// while the stream is active.
func (r *Reader[T]) Stream(ctx context.Context, bufsize int) <-chan Result[T] {
	ch := make(chan Result[T], bufsize)
	go func() {
		defer close(ch)
		for {
			row, err := r.ReadContext(ctx)
			if err == io.EOF {
				return
			}
			select {
			case ch <- Result[T]{Row: row, Err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return ch
}

// Close releases the reader's buffers. The source is not closed.
func (r *Reader[T]) Close() error {
	if r == nil || r.closed {
		return nil
	}
	r.closed = true
	tok := r.rec.tok
	tok.buf, tok.dataBuf, tok.fieldBounds, tok.comment = nil, nil, nil, nil
	r.args, r.pending, r.resets = nil, nil, nil
	return nil
}

// RowNumber returns the number of rows decoded so far.
func (r *Reader[T]) RowNumber() int { return r.row }

func (r *Reader[T]) comment(text string) error {
	if r.OnComment == nil {
		return nil
	}
	return r.OnComment(text)
}

// mapColumns decides from the first record how cells map to members.
// It reports whether that record was a header.
func (r *Reader[T]) mapColumns() (bool, error) {
	tok := r.rec.tok
	deser := r.bound.deser

	isHeader := false
	switch r.bound.opts.readHeader {
	case ReadHeaderAlways:
		isHeader = true
	case ReadHeaderDetect:
		isHeader = tok.fieldCount() > 0
		for i := 0; i < tok.fieldCount() && isHeader; i++ {
			_, isHeader = r.bound.byName[tok.fieldString(i)]
		}
	}

	if !isHeader {
		r.columns = make([]int, len(deser))
		for i := range r.columns {
			r.columns[i] = i
		}
		return false, nil
	}

	ctx := readingHeaderContext(r.userCtx)
	r.columns = make([]int, tok.fieldCount())
	mapped := make([]bool, len(deser))
	names := make([]string, tok.fieldCount())
	for i := range r.columns {
		name := tok.fieldString(i)
		names[i] = strings.Clone(name)
		mi, ok := r.bound.byName[name]
		if !ok {
			r.columns[i] = -1
			continue
		}
		if mapped[mi] {
			return true, dataError(OpRead, "column %q appears more than once in the header", name).at(NamedColumn(i, names[i]))
		}
		mapped[mi] = true
		r.columns[i] = mi
	}
	for mi, m := range deser {
		if m.required && !mapped[mi] {
			return true, dataError(OpRead, "required column %q is missing from the header", m.name).at(NamedColumn(mi, m.name))
		}
	}
	Logger().Debug("header read",
		zap.Stringer("mode", ctx.Mode()),
		zap.Strings("header", names),
		zap.Ints("members", r.columns))
	return true, nil
}

// bindRow parses the current record and assembles a row from it.
// Constructor arguments are buffered in parameter order, the instance is created, and then
// setters and resets run in cell order.
func (r *Reader[T]) bindRow() (T, error) {
	var zero T
	tok := r.rec.tok
	deser := r.bound.deser

	clear(r.args)
	clear(r.seen)
	r.pending = r.pending[:0]
	r.resets = r.resets[:0]

	for i := 0; i < tok.fieldCount() && i < len(r.columns); i++ {
		mi := r.columns[i]
		if mi < 0 {
			continue
		}
		m := deser[mi]
		ctx := readingColumnContext(r.row, NamedColumn(i, m.name), r.userCtx)
		cell := tok.fieldString(i)
		value, err := m.parser.invoke(cell, ctx)
		if err != nil {
			return zero, dataError(OpRead, "parser failed").at(ctx.Column()).row(r.row).input(strings.Clone(cell)).strategy(m.parser).cause(err)
		}
		r.seen[mi] = true
		if slot, ok := m.setter.ParameterIndex(); ok {
			r.args[slot] = value
		} else {
			r.pending = append(r.pending, pendingSet{member: mi, value: value, ctx: ctx})
		}
		if !m.reset.IsZero() {
			r.resets = append(r.resets, pendingReset{member: mi, ctx: ctx})
		}
	}

	for mi, m := range deser {
		if m.required && !r.seen[mi] {
			return zero, dataError(OpRead, "required column %q is missing from the row", m.name).at(NamedColumn(mi, m.name)).row(r.row)
		}
	}

	provider := r.bound.provider
	inst, err := provider.invoke(r.args, discoveringCellsContext(r.row, r.userCtx))
	if err != nil {
		return zero, dataError(OpRead, "instance provider failed").row(r.row).strategy(provider).cause(err)
	}
	row, ok := inst.(T)
	if !ok && inst != nil {
		return zero, argumentError(OpRead, "%s returned %T", provider, inst).strategy(provider)
	}

	for _, p := range r.pending {
		m := deser[p.member]
		if err := m.setter.invoke(&row, p.value, p.ctx); err != nil {
			return zero, dataError(OpRead, "setter failed").at(p.ctx.Column()).row(r.row).strategy(m.setter).cause(err)
		}
	}
	for _, p := range r.resets {
		m := deser[p.member]
		if err := m.reset.invoke(&row, p.ctx); err != nil {
			return zero, dataError(OpRead, "reset failed").at(p.ctx.Column()).row(r.row).strategy(m.reset).cause(err)
		}
	}
	r.row++
	return row, nil
}
