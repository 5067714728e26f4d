package rowcsv

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func requireInvalidOperation(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		p := recover()
		require.NotNil(t, p, "expected panic")
		err, ok := p.(error)
		require.True(t, ok, "panic value %v is not an error", p)
		require.True(t, errors.Is(err, ErrInvalidOperation), "panic %v is not an invalid operation", err)
	}()
	fn()
}

func TestContextModes(t *testing.T) {
	t.Parallel()

	col := NamedColumn(2, "Foo")

	discovering := discoveringColumnsContext("user")
	require.Equal(t, DiscoveringColumns, discovering.Mode())
	require.False(t, discovering.HasRowNumber())
	require.False(t, discovering.HasColumn())
	require.Equal(t, "user", discovering.Value())
	requireInvalidOperation(t, func() { discovering.RowNumber() })
	requireInvalidOperation(t, func() { discovering.Column() })

	cells := discoveringCellsContext(4, nil)
	require.Equal(t, 4, cells.RowNumber())
	requireInvalidOperation(t, func() { cells.Column() })

	header := readingHeaderContext(nil)
	requireInvalidOperation(t, func() { header.RowNumber() })

	writing := writingColumnContext(1, col, nil)
	require.Equal(t, WritingColumn, writing.Mode())
	require.Equal(t, 1, writing.RowNumber())
	require.Equal(t, col, writing.Column())

	reading := readingColumnContext(1, col, nil)
	require.Equal(t, ReadingColumn, reading.Mode())
	require.Equal(t, col, reading.Column())
	require.Equal(t, "ReadingColumn row=1 column=2 (\"Foo\")", reading.String())
}

func TestContextEqual(t *testing.T) {
	t.Parallel()

	col := ColumnAt(0)
	a := writingColumnContext(3, col, []int{1, 2})
	b := writingColumnContext(3, col, []int{1, 2})
	require.True(t, a.Equal(b))

	require.False(t, a.Equal(writingColumnContext(4, col, []int{1, 2})))
	require.False(t, a.Equal(writingColumnContext(3, ColumnAt(1), []int{1, 2})))
	require.False(t, a.Equal(readingColumnContext(3, col, []int{1, 2})))
	require.False(t, a.Equal(writingColumnContext(3, col, nil)))
	require.True(t, discoveringColumnsContext(nil).Equal(discoveringColumnsContext(nil)))
	require.True(t, discoveringColumnsContext(7).Equal(discoveringColumnsContext(7)))
	require.False(t, discoveringColumnsContext(7).Equal(discoveringColumnsContext(int64(7))))
}

func TestColumnIdentifier(t *testing.T) {
	t.Parallel()

	c := ColumnAt(3)
	_, ok := c.Name()
	require.False(t, ok)
	require.Equal(t, 3, c.Index())
	require.Equal(t, "3", c.String())

	n := NamedColumn(0, "Bar")
	name, ok := n.Name()
	require.True(t, ok)
	require.Equal(t, "Bar", name)
	require.NotEqual(t, n, NamedColumn(0, "Baz"))
}
