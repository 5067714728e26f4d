package rowcsv

import (
	"errors"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

type widget struct {
	Name   string
	Count  int
	Tags   []string
	secret int
}

func (w widget) Label() string { return "w:" + w.Name }

func (w widget) Broken() (string, error) { return "", errBoom }

func (w *widget) SetLabel(s string) { w.Name = strings.TrimPrefix(s, "w:") }

func (w *widget) SetCount(n int) error {
	if n < 0 {
		return errBoom
	}
	w.Count = n
	return nil
}

var widgetType = reflect.TypeFor[widget]()

func TestGetters(t *testing.T) {
	t.Parallel()

	row := widget{Name: "x", Count: 3}

	fn := GetterFunc("name", func(w widget) string { return w.Name })
	require.Equal(t, BackingFunc, fn.Backing())
	require.Equal(t, reflect.TypeFor[string](), fn.ValueType())
	v, err := fn.invoke(row)
	require.NoError(t, err)
	require.Equal(t, "x", v)

	_, err = fn.invoke("not a widget")
	require.Error(t, err)

	field, err := GetterField(widgetType, "Count")
	require.NoError(t, err)
	require.Equal(t, BackingField, field.Backing())
	v, err = field.invoke(row)
	require.NoError(t, err)
	require.Equal(t, 3, v)

	method, err := GetterMethod(widgetType, "Label")
	require.NoError(t, err)
	require.Equal(t, BackingMethod, method.Backing())
	v, err = method.invoke(row)
	require.NoError(t, err)
	require.Equal(t, "w:x", v)

	broken, err := GetterMethod(widgetType, "Broken")
	require.NoError(t, err)
	_, err = broken.invoke(row)
	require.ErrorIs(t, err, errBoom)
}

func TestGetterConstructionErrors(t *testing.T) {
	t.Parallel()

	_, err := GetterField(widgetType, "secret")
	require.ErrorIs(t, err, ErrArgument)
	_, err = GetterField(widgetType, "Missing")
	require.ErrorIs(t, err, ErrArgument)
	_, err = GetterField(reflect.TypeFor[int](), "Count")
	require.ErrorIs(t, err, ErrArgument)
	_, err = GetterMethod(widgetType, "SetLabel")
	require.ErrorIs(t, err, ErrArgument)
	_, err = GetterMethod(nil, "Label")
	require.ErrorIs(t, err, ErrArgument)
	require.True(t, GetterFunc[widget, int]("nil", nil).IsZero())
}

func TestSetters(t *testing.T) {
	t.Parallel()

	var row widget
	ctx := readingColumnContext(0, ColumnAt(0), nil)

	fn := SetterFunc("count", func(w *widget, n int) { w.Count = n })
	require.NoError(t, fn.invoke(&row, 7, ctx))
	require.Equal(t, 7, row.Count)
	require.Error(t, fn.invoke(&row, "seven", ctx))

	tags := SetterFunc("tags", func(w *widget, tags []string) { w.Tags = tags })
	row.Tags = []string{"a"}
	require.NoError(t, tags.invoke(&row, nil, ctx))
	require.Nil(t, row.Tags)

	field, err := SetterField(widgetType, "Name")
	require.NoError(t, err)
	require.NoError(t, field.invoke(&row, "named", ctx))
	require.Equal(t, "named", row.Name)

	method, err := SetterMethod(widgetType, "SetLabel")
	require.NoError(t, err)
	require.Equal(t, reflect.TypeFor[string](), method.ValueType())
	require.NoError(t, method.invoke(&row, "w:labelled", ctx))
	require.Equal(t, "labelled", row.Name)

	checked, err := SetterMethod(widgetType, "SetCount")
	require.NoError(t, err)
	require.NoError(t, checked.invoke(&row, 2, ctx))
	require.Equal(t, 2, row.Count)
	require.ErrorIs(t, checked.invoke(&row, -1, ctx), errBoom)

	_, err = SetterMethod(widgetType, "Label")
	require.ErrorIs(t, err, ErrArgument)
}

func TestConstructorParameterSetter(t *testing.T) {
	t.Parallel()

	s := ConstructorParameter[int](2)
	idx, ok := s.ParameterIndex()
	require.True(t, ok)
	require.Equal(t, 2, idx)
	require.Equal(t, BackingConstructorParameter, s.Backing())

	_, ok = SetterFunc("count", func(w *widget, n int) { w.Count = n }).ParameterIndex()
	require.False(t, ok)
}

func TestStrategyPanicsBecomeErrors(t *testing.T) {
	t.Parallel()

	g := GetterFunc("panics", func(widget) int { panic("kaboom") })
	_, err := g.invoke(widget{})
	require.ErrorContains(t, err, "strategy panicked: kaboom")

	s := SetterFunc("panics", func(*widget, int) { panic(errBoom) })
	err = s.invoke(&widget{}, 1, readingColumnContext(0, ColumnAt(0), nil))
	require.ErrorIs(t, err, errBoom)
}

func TestFormatterElse(t *testing.T) {
	t.Parallel()

	failing := FormatterFunc("failing", func(v int, _ Context, dst *CellWriter) error {
		_, _ = dst.WriteString("partial")
		return errBoom
	})
	plain := FormatterFunc("plain", func(v int, _ Context, dst *CellWriter) error {
		_, err := dst.WriteString(strconv.Itoa(v))
		return err
	})

	f := failing.Else(plain)
	require.Equal(t, "Formatter(failing else plain)", f.String())
	require.Equal(t, reflect.TypeFor[int](), f.ValueType())

	var cell CellWriter
	defer cell.reset()
	require.NoError(t, f.invoke(42, writingColumnContext(0, ColumnAt(0), nil), &cell))
	require.Equal(t, "42", cell.String())

	require.ErrorIs(t, failing.invoke(1, writingColumnContext(0, ColumnAt(0), nil), &cell), errBoom)
	require.Zero(t, cell.Len())
}

func TestParserElse(t *testing.T) {
	t.Parallel()

	strict := ParserFunc("strict", func(cell string, _ Context) (int, error) {
		return strconv.Atoi(cell)
	})
	lenient := ParserFunc("lenient", func(cell string, _ Context) (int, error) {
		if cell == "" {
			return -1, nil
		}
		return 0, errBoom
	})

	p := strict.Else(lenient)
	ctx := readingColumnContext(0, ColumnAt(0), nil)

	v, err := p.invoke("12", ctx)
	require.NoError(t, err)
	require.Equal(t, 12, v)

	v, err = p.invoke("", ctx)
	require.NoError(t, err)
	require.Equal(t, -1, v)

	_, err = p.invoke("x", ctx)
	require.ErrorIs(t, err, errBoom)
}

func TestShouldSerializeAndReset(t *testing.T) {
	t.Parallel()

	ctx := writingColumnContext(0, ColumnAt(0), nil)

	s := ShouldSerializeFunc("hasName", func(w widget, _ Context) bool { return w.Name != "" })
	require.Equal(t, widgetType, s.OwnerType())
	ok, err := s.invoke(widget{Name: "x"}, ctx)
	require.NoError(t, err)
	require.True(t, ok)

	static := ShouldSerializeStatic("never", func(Context) bool { return false })
	require.Nil(t, static.OwnerType())
	ok, err = static.invoke(widget{}, ctx)
	require.NoError(t, err)
	require.False(t, ok)

	row := widget{Name: "abc"}
	r := ResetFunc("upper", func(w *widget, _ Context) { w.Name = strings.ToUpper(w.Name) })
	require.NoError(t, r.invoke(&row, ctx))
	require.Equal(t, "ABC", row.Name)

	calls := 0
	rs := ResetStatic("count", func(Context) { calls++ })
	require.NoError(t, rs.invoke(&row, ctx))
	require.Equal(t, 1, calls)
}

type point struct{ x, y int }

func newPoint(x, y int) point { return point{x: x, y: y} }

func TestConstructorOf(t *testing.T) {
	t.Parallel()

	p, err := ConstructorOf[point]("newPoint", newPoint)
	require.NoError(t, err)
	require.Equal(t, 2, p.Arity())
	require.Equal(t, reflect.TypeFor[int](), p.ParameterType(1))
	require.Equal(t, reflect.TypeFor[point](), p.RowType())

	v, err := p.invoke([]any{1, nil}, discoveringCellsContext(0, nil))
	require.NoError(t, err)
	require.Equal(t, point{x: 1}, v)

	withErr, err := ConstructorOf[point]("checked", func(x int) (point, error) {
		if x < 0 {
			return point{}, errBoom
		}
		return point{x: x}, nil
	})
	require.NoError(t, err)
	_, err = withErr.invoke([]any{-1}, discoveringCellsContext(0, nil))
	require.ErrorIs(t, err, errBoom)
}

func TestConstructorOfErrors(t *testing.T) {
	t.Parallel()

	nine := func(a, b, c, d, e, f, g, h, i int) point { return point{} }
	_, err := ConstructorOf[point]("nine", nine)
	require.ErrorIs(t, err, ErrConfiguration)

	eight := func(a, b, c, d, e, f, g, h int) point { return point{} }
	_, err = ConstructorOf[point]("eight", eight)
	require.NoError(t, err)

	_, err = ConstructorOf[point]("variadic", func(xs ...int) point { return point{} })
	require.ErrorIs(t, err, ErrArgument)

	_, err = ConstructorOf[point]("wrong", func() widget { return widget{} })
	require.ErrorIs(t, err, ErrArgument)

	_, err = ConstructorOf[point]("notFunc", 42)
	require.ErrorIs(t, err, ErrArgument)

	_, err = ConstructorOf[point]("nil", nil)
	require.ErrorIs(t, err, ErrArgument)
}

func TestInstanceProviders(t *testing.T) {
	t.Parallel()

	p := InstanceProviderFunc("fresh", func(ctx Context) (widget, error) {
		return widget{Count: ctx.RowNumber()}, nil
	})
	require.Zero(t, p.Arity())
	v, err := p.invoke(nil, discoveringCellsContext(5, nil))
	require.NoError(t, err)
	require.Equal(t, widget{Count: 5}, v)

	zp := zeroInstanceProvider(reflect.TypeFor[*widget]())
	v, err = zp.invoke(nil, discoveringCellsContext(0, nil))
	require.NoError(t, err)
	require.Equal(t, &widget{}, v)
}
