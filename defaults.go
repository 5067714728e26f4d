package rowcsv

import (
	"encoding"
	"encoding/base64"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"
)

var (
	timeType           = reflect.TypeFor[time.Time]()
	durationType       = reflect.TypeFor[time.Duration]()
	uuidType           = reflect.TypeFor[uuid.UUID]()
	decimalType        = reflect.TypeFor[apd.Decimal]()
	bytesType          = reflect.TypeFor[[]byte]()
	textMarshalerType  = reflect.TypeFor[encoding.TextMarshaler]()
	textUnmarshalerTyp = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// DefaultFormatter returns the built-in Formatter for t.
//
// Covered: bool, every integer width, float32/64 (shortest exact form), string, []byte (base64),
// time.Time (RFC 3339 with nanoseconds), time.Duration, uuid.UUID, apd.Decimal, types implementing
// encoding.TextMarshaler, and pointers to any of these (nil writes an empty cell).
func DefaultFormatter(t reflect.Type) (Formatter, bool) {
	fn, ok := defaultFormat(t)
	if !ok {
		return Formatter{}, false
	}
	return Formatter{steps: []formatStep{{format: fn, value: t, name: "default " + t.String()}}}, true
}

// DefaultParser returns the built-in Parser for t; it mirrors DefaultFormatter.
// An empty cell parses to "" for strings and to nil for pointers.
func DefaultParser(t reflect.Type) (Parser, bool) {
	fn, ok := defaultParse(t)
	if !ok {
		return Parser{}, false
	}
	return Parser{steps: []parseStep{{parse: fn, value: t, name: "default " + t.String()}}}, true
}

type formatFunc = func(value any, ctx Context, dst *CellWriter) error

type parseFunc = func(cell string, ctx Context) (any, error)

func defaultFormat(t reflect.Type) (formatFunc, bool) {
	switch t {
	case timeType:
		return func(v any, _ Context, dst *CellWriter) error {
			var scratch [64]byte
			_, err := dst.Write(v.(time.Time).AppendFormat(scratch[:0], time.RFC3339Nano))
			return err
		}, true
	case durationType:
		return func(v any, _ Context, dst *CellWriter) error {
			_, err := dst.WriteString(v.(time.Duration).String())
			return err
		}, true
	case uuidType:
		return func(v any, _ Context, dst *CellWriter) error {
			_, err := dst.WriteString(v.(uuid.UUID).String())
			return err
		}, true
	case decimalType:
		return func(v any, _ Context, dst *CellWriter) error {
			d := v.(apd.Decimal)
			_, err := dst.WriteString(d.String())
			return err
		}, true
	case bytesType:
		return func(v any, _ Context, dst *CellWriter) error {
			_, err := dst.WriteString(base64.StdEncoding.EncodeToString(v.([]byte)))
			return err
		}, true
	}

	if t.Kind() == reflect.Pointer {
		elem, ok := defaultFormat(t.Elem())
		if !ok {
			return nil, false
		}
		return func(v any, ctx Context, dst *CellWriter) error {
			rv := reflect.ValueOf(v)
			if !rv.IsValid() || rv.IsNil() {
				return nil
			}
			return elem(rv.Elem().Interface(), ctx, dst)
		}, true
	}

	if t.Implements(textMarshalerType) {
		return func(v any, _ Context, dst *CellWriter) error {
			text, err := v.(encoding.TextMarshaler).MarshalText()
			if err != nil {
				return err
			}
			_, err = dst.Write(text)
			return err
		}, true
	}

	switch t.Kind() {
	case reflect.Bool:
		return func(v any, _ Context, dst *CellWriter) error {
			_, err := dst.WriteString(strconv.FormatBool(reflect.ValueOf(v).Bool()))
			return err
		}, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return func(v any, _ Context, dst *CellWriter) error {
			var scratch [24]byte
			_, err := dst.Write(strconv.AppendInt(scratch[:0], reflect.ValueOf(v).Int(), 10))
			return err
		}, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return func(v any, _ Context, dst *CellWriter) error {
			var scratch [24]byte
			_, err := dst.Write(strconv.AppendUint(scratch[:0], reflect.ValueOf(v).Uint(), 10))
			return err
		}, true
	case reflect.Float32, reflect.Float64:
		bits := t.Bits()
		return func(v any, _ Context, dst *CellWriter) error {
			var scratch [32]byte
			_, err := dst.Write(strconv.AppendFloat(scratch[:0], reflect.ValueOf(v).Float(), 'g', -1, bits))
			return err
		}, true
	case reflect.String:
		return func(v any, _ Context, dst *CellWriter) error {
			_, err := dst.WriteString(reflect.ValueOf(v).String())
			return err
		}, true
	}
	return nil, false
}

func defaultParse(t reflect.Type) (parseFunc, bool) {
	switch t {
	case timeType:
		return func(cell string, _ Context) (any, error) {
			return time.Parse(time.RFC3339Nano, cell)
		}, true
	case durationType:
		return func(cell string, _ Context) (any, error) {
			return time.ParseDuration(cell)
		}, true
	case uuidType:
		return func(cell string, _ Context) (any, error) {
			return uuid.Parse(cell)
		}, true
	case decimalType:
		return func(cell string, _ Context) (any, error) {
			d, _, err := apd.NewFromString(cell)
			if err != nil {
				return nil, err
			}
			return *d, nil
		}, true
	case bytesType:
		return func(cell string, _ Context) (any, error) {
			return base64.StdEncoding.DecodeString(cell)
		}, true
	}

	if t.Kind() == reflect.Pointer {
		elem, ok := defaultParse(t.Elem())
		if !ok {
			return nil, false
		}
		return func(cell string, ctx Context) (any, error) {
			if cell == "" {
				return reflect.Zero(t).Interface(), nil
			}
			v, err := elem(cell, ctx)
			if err != nil {
				return nil, err
			}
			p := reflect.New(t.Elem())
			p.Elem().Set(reflect.ValueOf(v))
			return p.Interface(), nil
		}, true
	}

	if reflect.PointerTo(t).Implements(textUnmarshalerTyp) {
		return func(cell string, _ Context) (any, error) {
			p := reflect.New(t)
			if err := p.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(cell)); err != nil {
				return nil, err
			}
			return p.Elem().Interface(), nil
		}, true
	}

	switch t.Kind() {
	case reflect.Bool:
		return func(cell string, _ Context) (any, error) {
			b, err := strconv.ParseBool(cell)
			if err != nil {
				return nil, err
			}
			return convertKind(t, reflect.ValueOf(b)), nil
		}, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		bits := t.Bits()
		return func(cell string, _ Context) (any, error) {
			n, err := strconv.ParseInt(cell, 10, bits)
			if err != nil {
				return nil, err
			}
			v := reflect.New(t).Elem()
			v.SetInt(n)
			return v.Interface(), nil
		}, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		bits := t.Bits()
		return func(cell string, _ Context) (any, error) {
			n, err := strconv.ParseUint(cell, 10, bits)
			if err != nil {
				return nil, err
			}
			v := reflect.New(t).Elem()
			v.SetUint(n)
			return v.Interface(), nil
		}, true
	case reflect.Float32, reflect.Float64:
		bits := t.Bits()
		return func(cell string, _ Context) (any, error) {
			f, err := strconv.ParseFloat(cell, bits)
			if err != nil {
				return nil, err
			}
			v := reflect.New(t).Elem()
			v.SetFloat(f)
			return v.Interface(), nil
		}, true
	case reflect.String:
		return func(cell string, _ Context) (any, error) {
			// Cells alias the reader's buffer.
			return convertKind(t, reflect.ValueOf(strings.Clone(cell))), nil
		}, true
	}
	return nil, false
}

func convertKind(t reflect.Type, v reflect.Value) any {
	if v.Type() == t {
		return v.Interface()
	}
	return v.Convert(t).Interface()
}

type integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

type enumName[E integer] struct {
	name  string
	value E
}

// Enum formats and parses a named integer type by member name.
type Enum[E integer] struct {
	names []enumName[E]
	flags bool
}

// NewEnum builds an Enum from the value→name table.
func NewEnum[E integer](names map[E]string) (*Enum[E], error) {
	return newEnum(names, false)
}

// NewFlags builds a flags Enum: combined values are written as ", "-joined member names.
func NewFlags[E integer](names map[E]string) (*Enum[E], error) {
	return newEnum(names, true)
}

func newEnum[E integer](names map[E]string, flags bool) (*Enum[E], error) {
	if len(names) == 0 {
		return nil, argumentError(OpBind, "enum %v has no members", reflect.TypeFor[E]())
	}
	e := &Enum[E]{flags: flags}
	seen := make(map[string]bool, len(names))
	for v, n := range names {
		if n == "" || strings.ContainsAny(n, ", ") {
			return nil, argumentError(OpBind, "enum %v: invalid member name %q", reflect.TypeFor[E](), n)
		}
		if seen[n] {
			return nil, argumentError(OpBind, "enum %v: duplicate member name %q", reflect.TypeFor[E](), n)
		}
		seen[n] = true
		e.names = append(e.names, enumName[E]{name: n, value: v})
	}
	slices.SortFunc(e.names, func(a, b enumName[E]) int {
		switch {
		case a.value < b.value:
			return -1
		case a.value > b.value:
			return 1
		}
		return 0
	})
	return e, nil
}

// Format returns the text for v.
func (e *Enum[E]) Format(v E) (string, error) {
	for _, n := range e.names {
		if n.value == v {
			return n.name, nil
		}
	}
	if !e.flags {
		return "", fmt.Errorf("%v(%d) has no name", reflect.TypeFor[E](), v)
	}
	var parts []string
	rest := v
	for i := len(e.names) - 1; i >= 0; i-- {
		n := e.names[i]
		if n.value != 0 && rest&n.value == n.value {
			parts = append(parts, n.name)
			rest &^= n.value
		}
	}
	if rest != 0 || len(parts) == 0 {
		return "", fmt.Errorf("%v(%d) is not a combination of named flags", reflect.TypeFor[E](), v)
	}
	slices.Reverse(parts)
	return strings.Join(parts, ", "), nil
}

// Parse returns the value named by text.
func (e *Enum[E]) Parse(text string) (E, error) {
	if !e.flags {
		return e.lookup(text)
	}
	var v E
	for part := range strings.SplitSeq(text, ",") {
		n, err := e.lookup(strings.TrimSpace(part))
		if err != nil {
			return 0, err
		}
		v |= n
	}
	return v, nil
}

func (e *Enum[E]) lookup(name string) (E, error) {
	for _, n := range e.names {
		if n.name == name {
			return n.value, nil
		}
	}
	return 0, fmt.Errorf("%q is not a member of %v", name, reflect.TypeFor[E]())
}

// Formatter returns a Formatter writing members by name.
func (e *Enum[E]) Formatter() Formatter {
	return FormatterFunc("enum "+reflect.TypeFor[E]().String(), func(v E, _ Context, dst *CellWriter) error {
		s, err := e.Format(v)
		if err != nil {
			return err
		}
		_, err = dst.WriteString(s)
		return err
	})
}

// Parser returns a Parser reading members by name.
func (e *Enum[E]) Parser() Parser {
	return ParserFunc("enum "+reflect.TypeFor[E]().String(), func(cell string, _ Context) (E, error) {
		return e.Parse(cell)
	})
}
