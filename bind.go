package rowcsv

import (
	"bufio"
	"io"
	"reflect"

	"go.uber.org/zap"
)

// Bound is the validated binding set of row type T under one Options value.
// It is immutable and may be shared by any number of writers and readers.
type Bound[T any] struct {
	opts     *Options
	rowType  reflect.Type
	provider InstanceProvider
	ser      []SerializableMember
	deser    []DeserializableMember
	columns  []string
	byName   map[string]int
}

// Bind resolves the members of T through describer and validates them against opts.
// A nil opts selects DefaultOptions.
//
// Configuration problems (column names that cannot be written under opts, duplicate columns,
// unsupported constructor arity) are reported here rather than mid-stream.
func Bind[T any](describer TypeDescriber, opts *Options) (*Bound[T], error) {
	if describer == nil {
		return nil, argumentError(OpBind, "type describer is required")
	}
	if opts == nil {
		opts = DefaultOptions()
	}
	rowType := reflect.TypeFor[T]()

	provider, err := describer.InstanceProvider(rowType)
	if err != nil {
		return nil, err
	}
	ser, err := describer.SerializableMembers(rowType)
	if err != nil {
		return nil, err
	}
	deser, err := describer.DeserializableMembers(rowType)
	if err != nil {
		return nil, err
	}

	b := &Bound[T]{
		opts:     opts,
		rowType:  rowType,
		provider: provider,
		ser:      ser,
		deser:    deser,
		byName:   make(map[string]int, len(deser)),
	}
	if err := b.validateWrite(); err != nil {
		return nil, err
	}
	if err := b.validateRead(); err != nil {
		return nil, err
	}

	ctx := discoveringColumnsContext(nil)
	Logger().Debug("bound row type",
		zap.Stringer("type", rowType),
		zap.Stringer("mode", ctx.Mode()),
		zap.Strings("columns", b.columns),
		zap.Int("readable", len(deser)),
		zap.Int("arity", provider.Arity()))
	return b, nil
}

func (b *Bound[T]) validateWrite() error {
	enc := newEncoder(bufio.NewWriter(io.Discard), b.opts)
	seen := make(map[string]bool, len(b.ser))
	var cell CellWriter
	defer cell.reset()

	for i, m := range b.ser {
		if m.rowType != b.rowType {
			return argumentError(OpBind, "member %s belongs to %v, not %v", m.name, m.rowType, b.rowType)
		}
		if seen[m.name] {
			return configError(OpBind, "duplicate column %q", m.name).at(NamedColumn(i, m.name))
		}
		seen[m.name] = true
		if b.opts.writeHeader == WriteHeaderAlways {
			cell.setString(m.name)
			if err := enc.writeCell(&cell); err != nil {
				return err
			}
		}
		b.columns = append(b.columns, m.name)
	}
	return nil
}

func (b *Bound[T]) validateRead() error {
	if len(b.deser) > 0 && b.provider.IsZero() {
		return configError(OpBind, "no instance provider for %v", b.rowType)
	}
	if !b.provider.IsZero() && !b.provider.row.AssignableTo(b.rowType) {
		return argumentError(OpBind, "%s creates %v, not %v", b.provider, b.provider.row, b.rowType)
	}
	if b.provider.Arity() > MaxConstructorArity {
		return configError(OpBind, "%s takes %d parameters, at most %d are supported",
			b.provider, b.provider.Arity(), MaxConstructorArity)
	}

	slots := make(map[int]string)
	for i, m := range b.deser {
		if m.rowType != b.rowType {
			return argumentError(OpBind, "member %s belongs to %v, not %v", m.name, m.rowType, b.rowType)
		}
		if _, dup := b.byName[m.name]; dup {
			return configError(OpBind, "duplicate column %q", m.name).at(NamedColumn(i, m.name))
		}
		b.byName[m.name] = i

		idx, ok := m.setter.ParameterIndex()
		if !ok {
			continue
		}
		if idx < 0 || idx >= b.provider.Arity() {
			return argumentError(OpBind, "member %s: constructor parameter %d outside [0, %d)", m.name, idx, b.provider.Arity())
		}
		if other, dup := slots[idx]; dup {
			return argumentError(OpBind, "members %s and %s both bind constructor parameter %d", other, m.name, idx)
		}
		slots[idx] = m.name
		param := b.provider.ParameterType(idx)
		for _, step := range m.parser.steps {
			if !step.value.AssignableTo(param) {
				return argumentError(OpBind, "member %s: parser %s yields %v, constructor parameter %d takes %v",
					m.name, step.name, step.value, idx, param)
			}
		}
	}
	return nil
}

// Options returns the options the binding was validated against.
func (b *Bound[T]) Options() *Options { return b.opts }

// Columns returns the written column names in order.
func (b *Bound[T]) Columns() []string { return append([]string(nil), b.columns...) }

// NewWriter creates a Writer over w. userCtx is exposed to strategies through Context.Value.
func (b *Bound[T]) NewWriter(w io.Writer, userCtx any) *Writer[T] {
	return &Writer[T]{
		rec:     NewRecordWriter(w, b.opts),
		bound:   b,
		userCtx: userCtx,
	}
}

// NewReader creates a Reader over r. userCtx is exposed to strategies through Context.Value.
func (b *Bound[T]) NewReader(r io.Reader, userCtx any) *Reader[T] {
	rd := &Reader[T]{
		rec:     NewRecordReader(r, b.opts),
		bound:   b,
		userCtx: userCtx,
		args:    make([]any, b.provider.Arity()),
		seen:    make([]bool, len(b.deser)),
	}
	rd.rec.OnComment = rd.comment
	return rd
}
