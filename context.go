package rowcsv

import (
	"fmt"
	"reflect"
	"strconv"
)

// ColumnIdentifier names a column by position and, when known, by header name.
type ColumnIdentifier struct {
	name    string
	index   int
	hasName bool
}

// ColumnAt identifies an unnamed column.
func ColumnAt(index int) ColumnIdentifier {
	return ColumnIdentifier{index: index}
}

// NamedColumn identifies a column with a header name.
func NamedColumn(index int, name string) ColumnIdentifier {
	return ColumnIdentifier{index: index, name: name, hasName: true}
}

func (c ColumnIdentifier) Index() int { return c.index }

// Name returns the column name and whether one is known.
func (c ColumnIdentifier) Name() (string, bool) { return c.name, c.hasName }

func (c ColumnIdentifier) String() string {
	if c.hasName {
		return strconv.Itoa(c.index) + " (" + strconv.Quote(c.name) + ")"
	}
	return strconv.Itoa(c.index)
}

// ContextMode is the phase of an operation a Context was created in.
type ContextMode uint8

const (
	DiscoveringColumns ContextMode = iota + 1
	DiscoveringCells
	WritingColumn
	ReadingHeader
	ReadingColumn
)

func (m ContextMode) String() string {
	switch m {
	case DiscoveringColumns:
		return "DiscoveringColumns"
	case DiscoveringCells:
		return "DiscoveringCells"
	case WritingColumn:
		return "WritingColumn"
	case ReadingHeader:
		return "ReadingHeader"
	case ReadingColumn:
		return "ReadingColumn"
	}
	return fmt.Sprintf("ContextMode(%d)", uint8(m))
}

// Context is the per-call metadata handed to every strategy invocation.
// Only the engines create contexts.
type Context struct {
	value     any
	column    ColumnIdentifier
	row       int
	mode      ContextMode
	hasRow    bool
	hasColumn bool
}

func discoveringColumnsContext(value any) Context {
	return Context{mode: DiscoveringColumns, value: value}
}

func discoveringCellsContext(row int, value any) Context {
	return Context{mode: DiscoveringCells, row: row, hasRow: true, value: value}
}

func writingColumnContext(row int, col ColumnIdentifier, value any) Context {
	return Context{mode: WritingColumn, row: row, hasRow: true, column: col, hasColumn: true, value: value}
}

func readingHeaderContext(value any) Context {
	return Context{mode: ReadingHeader, value: value}
}

func readingColumnContext(row int, col ColumnIdentifier, value any) Context {
	return Context{mode: ReadingColumn, row: row, hasRow: true, column: col, hasColumn: true, value: value}
}

func (c Context) Mode() ContextMode { return c.mode }

func (c Context) HasRowNumber() bool { return c.hasRow }

// RowNumber returns the zero-based data row. It panics when the mode carries no row.
func (c Context) RowNumber() int {
	if !c.hasRow {
		panic(fmt.Errorf("%w: no row number available in %s", ErrInvalidOperation, c.mode))
	}
	return c.row
}

func (c Context) HasColumn() bool { return c.hasColumn }

// Column returns the column being processed. It panics when the mode carries no column.
func (c Context) Column() ColumnIdentifier {
	if !c.hasColumn {
		panic(fmt.Errorf("%w: no column available in %s", ErrInvalidOperation, c.mode))
	}
	return c.column
}

// Value returns the opaque value supplied when the writer or reader was created.
func (c Context) Value() any { return c.value }

// Equal reports whether both contexts carry the same mode, row, column and user value.
func (c Context) Equal(o Context) bool {
	if c.mode != o.mode || c.hasRow != o.hasRow || c.hasColumn != o.hasColumn {
		return false
	}
	if c.hasRow && c.row != o.row {
		return false
	}
	if c.hasColumn && c.column != o.column {
		return false
	}
	return sameValue(c.value, o.value)
}

func (c Context) String() string {
	s := c.mode.String()
	if c.hasRow {
		s += " row=" + strconv.Itoa(c.row)
	}
	if c.hasColumn {
		s += " column=" + c.column.String()
	}
	return s
}

// sameValue compares opaque user values without panicking on uncomparable dynamic types.
func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if va := reflect.ValueOf(a); va.Comparable() {
		return va.Equal(reflect.ValueOf(b))
	}
	return reflect.DeepEqual(a, b)
}
