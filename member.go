package rowcsv

import (
	"reflect"
)

// EmitDefaultValue controls whether a member equal to its type's zero value is written.
type EmitDefaultValue uint8

const (
	EmitDefaultValueYes EmitDefaultValue = iota + 1
	EmitDefaultValueNo
)

// defaultEquality names how a member decides its value is the zero value.
type defaultEquality uint8

const (
	equalityEquatable defaultEquality = iota + 1
	equalityOperator
	equalityStructural
)

// SerializableMember binds one written column to its strategies.
type SerializableMember struct {
	rowType         reflect.Type
	getter          Getter
	formatter       Formatter
	shouldSerialize ShouldSerialize
	isDefault       func(any) bool
	name            string
	emitDefault     EmitDefaultValue
	equality        defaultEquality
}

// NewSerializableMember validates and builds a SerializableMember for rows of rowType.
// A zero ShouldSerialize means the member is always written.
func NewSerializableMember(
	rowType reflect.Type,
	name string,
	getter Getter,
	formatter Formatter,
	shouldSerialize ShouldSerialize,
	emitDefault EmitDefaultValue,
) (SerializableMember, error) {
	switch {
	case rowType == nil:
		return SerializableMember{}, argumentError(OpBind, "row type is required")
	case name == "":
		return SerializableMember{}, argumentError(OpBind, "member name is required")
	case getter.IsZero():
		return SerializableMember{}, argumentError(OpBind, "member %s: getter is required", name)
	case formatter.IsZero():
		return SerializableMember{}, argumentError(OpBind, "member %s: formatter is required", name)
	}
	if !related(getter.owner, rowType) {
		return SerializableMember{}, argumentError(OpBind, "member %s: %s is declared on %v, not %v", name, getter, getter.owner, rowType)
	}
	for _, step := range formatter.steps {
		if !getter.value.AssignableTo(step.value) {
			return SerializableMember{}, argumentError(OpBind, "member %s: formatter %s takes %v, getter yields %v", name, step.name, step.value, getter.value)
		}
	}
	if !shouldSerialize.IsZero() && !related(shouldSerialize.owner, rowType) {
		return SerializableMember{}, argumentError(OpBind, "member %s: %s is declared on %v, not %v", name, shouldSerialize, shouldSerialize.owner, rowType)
	}
	if emitDefault != EmitDefaultValueYes && emitDefault != EmitDefaultValueNo {
		return SerializableMember{}, dataError(OpBind, "member %s: unexpected EmitDefaultValue %d", name, emitDefault)
	}

	m := SerializableMember{
		rowType:         rowType,
		getter:          getter,
		formatter:       formatter,
		shouldSerialize: shouldSerialize,
		name:            name,
		emitDefault:     emitDefault,
	}
	m.isDefault, m.equality = defaultCheck(getter.value)
	return m, nil
}

func (m SerializableMember) Name() string                     { return m.name }
func (m SerializableMember) RowType() reflect.Type            { return m.rowType }
func (m SerializableMember) Getter() Getter                   { return m.getter }
func (m SerializableMember) Formatter() Formatter             { return m.formatter }
func (m SerializableMember) ShouldSerialize() ShouldSerialize { return m.shouldSerialize }
func (m SerializableMember) EmitDefaultValue() EmitDefaultValue {
	return m.emitDefault
}

// DeserializableMember binds one read column to its strategies.
type DeserializableMember struct {
	rowType  reflect.Type
	parser   Parser
	setter   Setter
	reset    Reset
	name     string
	required bool
}

// NewDeserializableMember validates and builds a DeserializableMember for rows of rowType.
// A zero Reset means nothing runs after the member is read.
func NewDeserializableMember(
	rowType reflect.Type,
	name string,
	parser Parser,
	setter Setter,
	reset Reset,
	required bool,
) (DeserializableMember, error) {
	switch {
	case rowType == nil:
		return DeserializableMember{}, argumentError(OpBind, "row type is required")
	case name == "":
		return DeserializableMember{}, argumentError(OpBind, "member name is required")
	case parser.IsZero():
		return DeserializableMember{}, argumentError(OpBind, "member %s: parser is required", name)
	case setter.IsZero():
		return DeserializableMember{}, argumentError(OpBind, "member %s: setter is required", name)
	}
	if idx, ok := setter.ParameterIndex(); ok {
		if idx < 0 || idx >= MaxConstructorArity {
			return DeserializableMember{}, argumentError(OpBind, "member %s: constructor parameter index %d out of range", name, idx)
		}
	} else if !related(setter.owner, rowType) {
		return DeserializableMember{}, argumentError(OpBind, "member %s: %s is declared on %v, not %v", name, setter, setter.owner, rowType)
	}
	for _, step := range parser.steps {
		if !step.value.AssignableTo(setter.value) {
			return DeserializableMember{}, argumentError(OpBind, "member %s: parser %s yields %v, setter takes %v", name, step.name, step.value, setter.value)
		}
	}
	if !reset.IsZero() && !related(reset.owner, rowType) {
		return DeserializableMember{}, argumentError(OpBind, "member %s: %s is declared on %v, not %v", name, reset, reset.owner, rowType)
	}
	return DeserializableMember{
		rowType:  rowType,
		parser:   parser,
		setter:   setter,
		reset:    reset,
		name:     name,
		required: required,
	}, nil
}

func (m DeserializableMember) Name() string          { return m.name }
func (m DeserializableMember) RowType() reflect.Type { return m.rowType }
func (m DeserializableMember) Parser() Parser        { return m.parser }
func (m DeserializableMember) Setter() Setter        { return m.setter }
func (m DeserializableMember) Reset() Reset          { return m.reset }
func (m DeserializableMember) IsRequired() bool      { return m.required }

// related reports whether a strategy declared on owner may be used with rows of rowType.
// A nil owner marks a static strategy.
func related(owner, rowType reflect.Type) bool {
	return owner == nil || owner == rowType || rowType.AssignableTo(owner)
}

// defaultCheck picks how values of t are compared with the zero value:
// an Equal(t) bool method, then ==, then a structural zero check.
func defaultCheck(t reflect.Type) (func(any) bool, defaultEquality) {
	if nilable(t) {
		return func(v any) bool {
			if v == nil {
				return true
			}
			rv := reflect.ValueOf(v)
			return nilable(rv.Type()) && rv.IsNil()
		}, equalityOperator
	}
	if m, ok := t.MethodByName("Equal"); ok {
		mt := m.Type
		if mt.NumIn() == 2 && mt.In(1) == t && mt.NumOut() == 1 && mt.Out(0).Kind() == reflect.Bool {
			zero := reflect.Zero(t)
			return func(v any) bool {
				if v == nil {
					return true
				}
				return m.Func.Call([]reflect.Value{reflect.ValueOf(v), zero})[0].Bool()
			}, equalityEquatable
		}
	}
	if t.Comparable() {
		zero := reflect.Zero(t).Interface()
		return func(v any) bool {
			return v == nil || v == zero
		}, equalityOperator
	}
	return func(v any) bool {
		return v == nil || reflect.ValueOf(v).IsZero()
	}, equalityStructural
}
