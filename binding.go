package rowcsv

import (
	"fmt"
	"reflect"
)

// Backing names what a strategy is implemented with.
type Backing uint8

const (
	BackingNone Backing = iota
	BackingFunc
	BackingMethod
	BackingField
	BackingConstructorParameter
)

func (b Backing) String() string {
	switch b {
	case BackingNone:
		return "none"
	case BackingFunc:
		return "func"
	case BackingMethod:
		return "method"
	case BackingField:
		return "field"
	case BackingConstructorParameter:
		return "constructor parameter"
	}
	return fmt.Sprintf("Backing(%d)", uint8(b))
}

// MaxConstructorArity is the largest number of constructor parameters an InstanceProvider may take.
const MaxConstructorArity = 8

// as converts an erased value to V, mapping nil to the zero value.
func as[V any](value any) (V, bool) {
	if value == nil {
		var zero V
		return zero, nilable(reflect.TypeFor[V]())
	}
	v, ok := value.(V)
	return v, ok
}

func nilable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return true
	}
	return false
}

// guard converts a panic raised by a user strategy into an error.
func guard(err *error) {
	if p := recover(); p != nil {
		if e, ok := p.(error); ok {
			*err = fmt.Errorf("strategy panicked: %w", e)
			return
		}
		*err = fmt.Errorf("strategy panicked: %v", p)
	}
}

func typeMismatch(strategy string, want reflect.Type, got any) error {
	return fmt.Errorf("%s expected %v, got %T", strategy, want, got)
}

// Getter reads a member value from a row.
type Getter struct {
	get     func(row any) (any, error)
	owner   reflect.Type
	value   reflect.Type
	name    string
	backing Backing
}

// GetterFunc wraps fn as a Getter for rows of type R.
func GetterFunc[R, V any](name string, fn func(R) V) Getter {
	if fn == nil {
		return Getter{}
	}
	g := Getter{owner: reflect.TypeFor[R](), value: reflect.TypeFor[V](), name: name, backing: BackingFunc}
	g.get = func(row any) (any, error) {
		r, ok := as[R](row)
		if !ok {
			return nil, typeMismatch(g.String(), g.owner, row)
		}
		return fn(r), nil
	}
	return g
}

// GetterField reads the exported struct field named field. rowType may be a struct or a pointer to one.
func GetterField(rowType reflect.Type, field string) (Getter, error) {
	sf, err := lookupField(rowType, field)
	if err != nil {
		return Getter{}, err
	}
	g := Getter{owner: rowType, value: sf.Type, name: field, backing: BackingField}
	g.get = func(row any) (any, error) {
		rv := reflect.ValueOf(row)
		if rv.Kind() == reflect.Pointer {
			if rv.IsNil() {
				return nil, fmt.Errorf("%s: nil row", g)
			}
			rv = rv.Elem()
		}
		return rv.FieldByIndex(sf.Index).Interface(), nil
	}
	return g, nil
}

// GetterMethod calls the niladic method named method. It may return V or (V, error).
func GetterMethod(rowType reflect.Type, method string) (Getter, error) {
	if rowType == nil {
		return Getter{}, argumentError(OpBind, "row type is required")
	}
	m, ok := rowType.MethodByName(method)
	if !ok {
		return Getter{}, argumentError(OpBind, "%v has no method %s", rowType, method)
	}
	mt := m.Type
	returnsErr := mt.NumOut() == 2 && mt.Out(1) == errorType
	if mt.NumIn() != 1 || (mt.NumOut() != 1 && !returnsErr) {
		return Getter{}, argumentError(OpBind, "%v.%s must take no arguments and return a value", rowType, method)
	}
	g := Getter{owner: rowType, value: mt.Out(0), name: method, backing: BackingMethod}
	g.get = func(row any) (any, error) {
		out := m.Func.Call([]reflect.Value{reflect.ValueOf(row)})
		if returnsErr && !out[1].IsNil() {
			return nil, out[1].Interface().(error)
		}
		return out[0].Interface(), nil
	}
	return g, nil
}

func (g Getter) IsZero() bool            { return g.get == nil }
func (g Getter) Backing() Backing        { return g.backing }
func (g Getter) ValueType() reflect.Type { return g.value }
func (g Getter) String() string          { return fmt.Sprintf("Getter(%s %s)", g.backing, g.name) }

func (g Getter) invoke(row any) (v any, err error) {
	defer guard(&err)
	return g.get(row)
}

// Setter stores a parsed value on a row, or marks it as a constructor argument.
type Setter struct {
	set     func(rowPtr any, value any, ctx Context) error
	owner   reflect.Type
	value   reflect.Type
	name    string
	param   int
	backing Backing
}

// SetterFunc wraps fn as a Setter for rows of type R. fn receives a pointer to the row.
func SetterFunc[R, V any](name string, fn func(*R, V)) Setter {
	if fn == nil {
		return Setter{}
	}
	s := Setter{owner: reflect.TypeFor[R](), value: reflect.TypeFor[V](), name: name, backing: BackingFunc}
	s.set = func(rowPtr any, value any, _ Context) error {
		v, ok := as[V](value)
		if !ok {
			return typeMismatch(s.String(), s.value, value)
		}
		return withRowPointer(rowPtr, func(p *R) { fn(p, v) })
	}
	return s
}

// SetterField assigns the exported struct field named field.
// rowType may be a struct or a pointer to one.
func SetterField(rowType reflect.Type, field string) (Setter, error) {
	sf, err := lookupField(rowType, field)
	if err != nil {
		return Setter{}, err
	}
	s := Setter{owner: rowType, value: sf.Type, name: field, backing: BackingField}
	s.set = func(rowPtr any, value any, _ Context) error {
		rv := reflect.ValueOf(rowPtr).Elem()
		if rv.Kind() == reflect.Pointer {
			if rv.IsNil() {
				return fmt.Errorf("%s: nil row", s)
			}
			rv = rv.Elem()
		}
		fv := rv.FieldByIndex(sf.Index)
		if value == nil {
			fv.SetZero()
			return nil
		}
		fv.Set(reflect.ValueOf(value))
		return nil
	}
	return s, nil
}

// SetterMethod calls the single-argument method named method. It may return nothing or an error.
// Pointer-receiver methods are found on struct row types.
func SetterMethod(rowType reflect.Type, method string) (Setter, error) {
	if rowType == nil {
		return Setter{}, argumentError(OpBind, "row type is required")
	}
	recv := rowType
	if rowType.Kind() != reflect.Pointer {
		recv = reflect.PointerTo(rowType)
	}
	m, ok := recv.MethodByName(method)
	if !ok {
		return Setter{}, argumentError(OpBind, "%v has no method %s", recv, method)
	}
	mt := m.Type
	returnsErr := mt.NumOut() == 1 && mt.Out(0) == errorType
	if mt.NumIn() != 2 || (mt.NumOut() != 0 && !returnsErr) {
		return Setter{}, argumentError(OpBind, "%v.%s must take one argument", recv, method)
	}
	s := Setter{owner: rowType, value: mt.In(1), name: method, backing: BackingMethod}
	s.set = func(rowPtr any, value any, _ Context) error {
		rv := reflect.ValueOf(rowPtr)
		if rowType.Kind() == reflect.Pointer {
			rv = rv.Elem()
		}
		arg := reflect.Zero(s.value)
		if value != nil {
			arg = reflect.ValueOf(value)
		}
		out := m.Func.Call([]reflect.Value{rv, arg})
		if returnsErr && !out[0].IsNil() {
			return out[0].Interface().(error)
		}
		return nil
	}
	return s, nil
}

// ConstructorParameter binds a member to parameter index of the row's InstanceProvider.
func ConstructorParameter[V any](index int) Setter {
	return Setter{
		value:   reflect.TypeFor[V](),
		name:    fmt.Sprintf("#%d", index),
		param:   index,
		backing: BackingConstructorParameter,
	}
}

func (s Setter) IsZero() bool            { return s.backing == BackingNone }
func (s Setter) Backing() Backing        { return s.backing }
func (s Setter) ValueType() reflect.Type { return s.value }

// ParameterIndex returns the constructor slot for constructor-parameter setters.
func (s Setter) ParameterIndex() (int, bool) {
	return s.param, s.backing == BackingConstructorParameter
}

func (s Setter) String() string { return fmt.Sprintf("Setter(%s %s)", s.backing, s.name) }

func (s Setter) invoke(rowPtr any, value any, ctx Context) (err error) {
	defer guard(&err)
	return s.set(rowPtr, value, ctx)
}

// withRowPointer hands fn a *R for rowPtr, which points at the row slot of the reader.
func withRowPointer[R any](rowPtr any, fn func(*R)) error {
	if p, ok := rowPtr.(*R); ok {
		fn(p)
		return nil
	}
	// R is an interface the row type implements.
	r, ok := reflect.ValueOf(rowPtr).Elem().Interface().(R)
	if !ok {
		return fmt.Errorf("row %T does not implement %v", rowPtr, reflect.TypeFor[R]())
	}
	fn(&r)
	return nil
}

type formatStep struct {
	format func(value any, ctx Context, dst *CellWriter) error
	value  reflect.Type
	name   string
}

// Formatter turns a member value into cell text.
// A Formatter built with Else tries each step in order until one succeeds.
type Formatter struct {
	steps []formatStep
}

// FormatterFunc wraps fn as a Formatter for values of type V.
func FormatterFunc[V any](name string, fn func(V, Context, *CellWriter) error) Formatter {
	if fn == nil {
		return Formatter{}
	}
	valueType := reflect.TypeFor[V]()
	step := formatStep{value: valueType, name: name}
	step.format = func(value any, ctx Context, dst *CellWriter) error {
		v, ok := as[V](value)
		if !ok {
			return typeMismatch("Formatter "+name, valueType, value)
		}
		return fn(v, ctx, dst)
	}
	return Formatter{steps: []formatStep{step}}
}

// Else returns a Formatter that falls back to other when f fails.
func (f Formatter) Else(other Formatter) Formatter {
	steps := make([]formatStep, 0, len(f.steps)+len(other.steps))
	steps = append(steps, f.steps...)
	steps = append(steps, other.steps...)
	return Formatter{steps: steps}
}

func (f Formatter) IsZero() bool { return len(f.steps) == 0 }

// ValueType returns the value type of the first step.
func (f Formatter) ValueType() reflect.Type {
	if f.IsZero() {
		return nil
	}
	return f.steps[0].value
}

func (f Formatter) String() string {
	return "Formatter(" + joinStepNames(len(f.steps), func(i int) string { return f.steps[i].name }) + ")"
}

// invoke runs each step into a fresh cell; the first success wins and the last failure surfaces.
func (f Formatter) invoke(value any, ctx Context, dst *CellWriter) (err error) {
	defer guard(&err)
	for _, step := range f.steps {
		dst.reset()
		if err = step.format(value, ctx, dst); err == nil {
			return nil
		}
	}
	dst.reset()
	return err
}

type parseStep struct {
	parse func(cell string, ctx Context) (any, error)
	value reflect.Type
	name  string
}

// Parser turns cell text into a member value.
// A Parser built with Else tries each step in order until one succeeds.
type Parser struct {
	steps []parseStep
}

// ParserFunc wraps fn as a Parser producing values of type V.
// The cell string aliases the reader's buffer and must be cloned if retained.
func ParserFunc[V any](name string, fn func(cell string, ctx Context) (V, error)) Parser {
	if fn == nil {
		return Parser{}
	}
	step := parseStep{value: reflect.TypeFor[V](), name: name}
	step.parse = func(cell string, ctx Context) (any, error) {
		return fn(cell, ctx)
	}
	return Parser{steps: []parseStep{step}}
}

// Else returns a Parser that falls back to other when p fails.
func (p Parser) Else(other Parser) Parser {
	steps := make([]parseStep, 0, len(p.steps)+len(other.steps))
	steps = append(steps, p.steps...)
	steps = append(steps, other.steps...)
	return Parser{steps: steps}
}

func (p Parser) IsZero() bool { return len(p.steps) == 0 }

// ValueType returns the value type of the first step.
func (p Parser) ValueType() reflect.Type {
	if p.IsZero() {
		return nil
	}
	return p.steps[0].value
}

func (p Parser) String() string {
	return "Parser(" + joinStepNames(len(p.steps), func(i int) string { return p.steps[i].name }) + ")"
}

func (p Parser) invoke(cell string, ctx Context) (v any, err error) {
	defer guard(&err)
	for _, step := range p.steps {
		if v, err = step.parse(cell, ctx); err == nil {
			return v, nil
		}
	}
	return nil, err
}

func joinStepNames(n int, name func(int) string) string {
	s := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			s += " else "
		}
		s += name(i)
	}
	return s
}

// ShouldSerialize decides whether a member is written for a given row.
type ShouldSerialize struct {
	fn      func(row any, ctx Context) (bool, error)
	owner   reflect.Type
	name    string
	backing Backing
}

// ShouldSerializeFunc wraps fn as a ShouldSerialize strategy owned by R.
func ShouldSerializeFunc[R any](name string, fn func(R, Context) bool) ShouldSerialize {
	if fn == nil {
		return ShouldSerialize{}
	}
	s := ShouldSerialize{owner: reflect.TypeFor[R](), name: name, backing: BackingFunc}
	s.fn = func(row any, ctx Context) (bool, error) {
		r, ok := as[R](row)
		if !ok {
			return false, typeMismatch(s.String(), s.owner, row)
		}
		return fn(r, ctx), nil
	}
	return s
}

// ShouldSerializeStatic wraps fn as a ShouldSerialize strategy that ignores the row.
func ShouldSerializeStatic(name string, fn func(Context) bool) ShouldSerialize {
	if fn == nil {
		return ShouldSerialize{}
	}
	return ShouldSerialize{
		fn:      func(_ any, ctx Context) (bool, error) { return fn(ctx), nil },
		name:    name,
		backing: BackingFunc,
	}
}

func (s ShouldSerialize) IsZero() bool { return s.fn == nil }

// OwnerType returns the row type the strategy is declared on, or nil for static strategies.
func (s ShouldSerialize) OwnerType() reflect.Type { return s.owner }

func (s ShouldSerialize) String() string {
	return fmt.Sprintf("ShouldSerialize(%s %s)", s.backing, s.name)
}

func (s ShouldSerialize) invoke(row any, ctx Context) (ok bool, err error) {
	defer guard(&err)
	return s.fn(row, ctx)
}

// Reset clears transient row state after a member has been read.
type Reset struct {
	fn      func(rowPtr any, ctx Context) error
	owner   reflect.Type
	name    string
	backing Backing
}

// ResetFunc wraps fn as a Reset strategy owned by R. fn receives a pointer to the row.
func ResetFunc[R any](name string, fn func(*R, Context)) Reset {
	if fn == nil {
		return Reset{}
	}
	return Reset{
		fn: func(rowPtr any, ctx Context) error {
			return withRowPointer(rowPtr, func(p *R) { fn(p, ctx) })
		},
		owner:   reflect.TypeFor[R](),
		name:    name,
		backing: BackingFunc,
	}
}

// ResetStatic wraps fn as a Reset strategy that does not touch the row.
func ResetStatic(name string, fn func(Context)) Reset {
	if fn == nil {
		return Reset{}
	}
	return Reset{
		fn:      func(_ any, ctx Context) error { fn(ctx); return nil },
		name:    name,
		backing: BackingFunc,
	}
}

func (r Reset) IsZero() bool { return r.fn == nil }

// OwnerType returns the row type the strategy is declared on, or nil for static strategies.
func (r Reset) OwnerType() reflect.Type { return r.owner }

func (r Reset) String() string { return fmt.Sprintf("Reset(%s %s)", r.backing, r.name) }

func (r Reset) invoke(rowPtr any, ctx Context) (err error) {
	defer guard(&err)
	return r.fn(rowPtr, ctx)
}

// InstanceProvider creates row instances, optionally from constructor arguments.
type InstanceProvider struct {
	create  func(args []any, ctx Context) (any, error)
	row     reflect.Type
	params  []reflect.Type
	name    string
	backing Backing
}

// InstanceProviderFunc wraps fn as a parameterless InstanceProvider.
func InstanceProviderFunc[R any](name string, fn func(Context) (R, error)) InstanceProvider {
	if fn == nil {
		return InstanceProvider{}
	}
	return InstanceProvider{
		create:  func(_ []any, ctx Context) (any, error) { return fn(ctx) },
		row:     reflect.TypeFor[R](),
		name:    name,
		backing: BackingFunc,
	}
}

// ConstructorOf wraps a constructor function fn whose parameters are filled by
// constructor-parameter members. fn must return R or (R, error) and take at most
// MaxConstructorArity parameters.
func ConstructorOf[R any](name string, fn any) (InstanceProvider, error) {
	fv := reflect.ValueOf(fn)
	if !fv.IsValid() || fv.Kind() != reflect.Func || fv.IsNil() {
		return InstanceProvider{}, argumentError(OpBind, "constructor %s must be a non-nil func", name)
	}
	ft := fv.Type()
	rowType := reflect.TypeFor[R]()
	if ft.NumIn() > MaxConstructorArity {
		return InstanceProvider{}, configError(OpBind,
			"constructor %s takes %d parameters, at most %d are supported", name, ft.NumIn(), MaxConstructorArity)
	}
	if ft.IsVariadic() {
		return InstanceProvider{}, argumentError(OpBind, "constructor %s cannot be variadic", name)
	}
	returnsErr := ft.NumOut() == 2 && ft.Out(1) == errorType
	if (ft.NumOut() != 1 && !returnsErr) || !ft.Out(0).AssignableTo(rowType) {
		return InstanceProvider{}, argumentError(OpBind, "constructor %s must return %v or (%v, error)", name, rowType, rowType)
	}
	params := make([]reflect.Type, ft.NumIn())
	for i := range params {
		params[i] = ft.In(i)
	}
	return InstanceProvider{
		create: func(args []any, _ Context) (any, error) {
			in := make([]reflect.Value, len(params))
			for i, p := range params {
				if i >= len(args) || args[i] == nil {
					in[i] = reflect.Zero(p)
					continue
				}
				in[i] = reflect.ValueOf(args[i])
			}
			out := fv.Call(in)
			if returnsErr && !out[1].IsNil() {
				return nil, out[1].Interface().(error)
			}
			return out[0].Interface(), nil
		},
		row:     rowType,
		params:  params,
		name:    name,
		backing: BackingFunc,
	}, nil
}

// zeroInstanceProvider creates zero rows; pointer row types get a freshly allocated element.
func zeroInstanceProvider(rowType reflect.Type) InstanceProvider {
	return InstanceProvider{
		create: func(_ []any, _ Context) (any, error) {
			if rowType.Kind() == reflect.Pointer {
				return reflect.New(rowType.Elem()).Interface(), nil
			}
			return reflect.Zero(rowType).Interface(), nil
		},
		row:     rowType,
		name:    "zero " + rowType.String(),
		backing: BackingFunc,
	}
}

func (p InstanceProvider) IsZero() bool          { return p.create == nil }
func (p InstanceProvider) RowType() reflect.Type { return p.row }
func (p InstanceProvider) Arity() int            { return len(p.params) }

// ParameterType returns the type of constructor parameter i.
func (p InstanceProvider) ParameterType(i int) reflect.Type { return p.params[i] }

func (p InstanceProvider) String() string {
	return fmt.Sprintf("InstanceProvider(%s %s)", p.backing, p.name)
}

func (p InstanceProvider) invoke(args []any, ctx Context) (v any, err error) {
	defer guard(&err)
	return p.create(args, ctx)
}

var errorType = reflect.TypeFor[error]()

func lookupField(rowType reflect.Type, field string) (reflect.StructField, error) {
	if rowType == nil {
		return reflect.StructField{}, argumentError(OpBind, "row type is required")
	}
	st := rowType
	if st.Kind() == reflect.Pointer {
		st = st.Elem()
	}
	if st.Kind() != reflect.Struct {
		return reflect.StructField{}, argumentError(OpBind, "%v is not a struct", rowType)
	}
	sf, ok := st.FieldByName(field)
	if !ok {
		return reflect.StructField{}, argumentError(OpBind, "%v has no field %s", rowType, field)
	}
	if !sf.IsExported() {
		return reflect.StructField{}, argumentError(OpBind, "%v.%s is not exported", rowType, field)
	}
	return sf, nil
}
