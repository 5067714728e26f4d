package rowcsv

import (
	"errors"
	"fmt"
	"strings"
)

// Error classes. Every *Error matches exactly one of them with errors.Is.
var (
	// ErrConfiguration marks failures caused by Options or bindings, independent of the data.
	ErrConfiguration = errors.New("rowcsv: configuration error")
	// ErrData marks failures caused by the specific row or cell being processed.
	ErrData = errors.New("rowcsv: data error")
	// ErrArgument marks programming errors in binding construction.
	ErrArgument = errors.New("rowcsv: invalid argument")
	// ErrInvalidOperation is raised when a Context field is read in a mode that does not carry it.
	ErrInvalidOperation = errors.New("rowcsv: invalid operation")
)

var (
	// ErrBareQuote is returned when an unexpected quote is found in an unquoted field.
	ErrBareQuote = errors.New("rowcsv: bare quote in non-quoted field")
	// ErrUnterminatedQuote is returned when a quoted field is not closed before EOF.
	ErrUnterminatedQuote = errors.New("rowcsv: unterminated quoted field")
	// ErrQuoteTrailer is returned when a closing quote is followed by something other than a
	// separator or row ending.
	ErrQuoteTrailer = errors.New("rowcsv: unexpected character after closing quote")
	// ErrFieldCount is returned when a record contains an unexpected number of fields.
	ErrFieldCount = errors.New("rowcsv: wrong number of fields")

	errNilWriter      = errors.New("rowcsv: writer is nil")
	errWriterNoTarget = errors.New("rowcsv: writer destination cannot be nil")
	errWriterClosed   = errors.New("rowcsv: writer is closed")
	errReaderClosed   = errors.New("rowcsv: reader is closed")
)

// Class identifies which of the three failure families an Error belongs to.
type Class uint8

const (
	ClassConfiguration Class = iota + 1
	ClassData
	ClassArgument
)

func (c Class) String() string {
	switch c {
	case ClassConfiguration:
		return "configuration"
	case ClassData:
		return "data"
	case ClassArgument:
		return "argument"
	default:
		return fmt.Sprintf("Class(%d)", uint8(c))
	}
}

func (c Class) sentinel() error {
	switch c {
	case ClassConfiguration:
		return ErrConfiguration
	case ClassData:
		return ErrData
	case ClassArgument:
		return ErrArgument
	}
	return nil
}

// Op names the operation an Error surfaced from.
type Op string

const (
	OpBind    Op = "bind"
	OpOptions Op = "options"
	OpWrite   Op = "write"
	OpRead    Op = "read"
)

// Error is the structured error returned by the encoding and decoding engines.
type Error struct {
	Cause     error
	Column    *ColumnIdentifier
	Op        Op
	Strategy  string
	Input     string
	Detail    string
	Class     Class
	HasInput  bool
	HasRow    bool
	RowNumber int
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("rowcsv: ")
	if e.Op != "" {
		b.WriteString(string(e.Op))
		b.WriteByte(' ')
	}
	b.WriteString(e.Class.String())
	b.WriteString(" error")

	if e.HasRow {
		fmt.Fprintf(&b, " on row %d", e.RowNumber)
	}
	if e.Column != nil {
		b.WriteString(" at column ")
		b.WriteString(e.Column.String())
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.HasInput {
		fmt.Fprintf(&b, " (input %q)", e.Input)
	}
	if e.Strategy != "" {
		b.WriteString(" [")
		b.WriteString(e.Strategy)
		b.WriteByte(']')
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the class sentinel of e.
func (e *Error) Is(target error) bool {
	return target != nil && target == e.Class.sentinel()
}

func configError(op Op, format string, args ...any) *Error {
	return &Error{Class: ClassConfiguration, Op: op, Detail: fmt.Sprintf(format, args...)}
}

func argumentError(op Op, format string, args ...any) *Error {
	return &Error{Class: ClassArgument, Op: op, Detail: fmt.Sprintf(format, args...)}
}

func dataError(op Op, format string, args ...any) *Error {
	return &Error{Class: ClassData, Op: op, Detail: fmt.Sprintf(format, args...)}
}

func (e *Error) at(col ColumnIdentifier) *Error {
	e.Column = &col
	return e
}

func (e *Error) row(n int) *Error {
	e.RowNumber = n
	e.HasRow = true
	return e
}

func (e *Error) strategy(s fmt.Stringer) *Error {
	e.Strategy = s.String()
	return e
}

func (e *Error) input(s string) *Error {
	e.Input = s
	e.HasInput = true
	return e
}

func (e *Error) cause(err error) *Error {
	e.Cause = err
	return e
}

// unescapableError is raised when a value needs escaping that Options cannot express.
func unescapableError(c byte) *Error {
	return configError(OpWrite,
		"Tried to write a value contain '%s' which requires escaping a value, but no way to escape a value is configured",
		printableByte(c))
}

func printableByte(c byte) string {
	switch c {
	case '\r':
		return `\r`
	case '\n':
		return `\n`
	case '\t':
		return `\t`
	}
	return string(rune(c))
}

// ParseError contains location information for CSV grammar violations.
type ParseError struct {
	Line   int
	Column int
	Err    error
}

// Error formats the parse error message with the stored line, column, and Err values.
func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("rowcsv: parse error on line %d, column %d: %v", e.Line, e.Column, e.Err)
}

// Unwrap returns the underlying Err so ParseError participates in errors.Unwrap.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is classifies grammar violations as data errors.
func (e *ParseError) Is(target error) bool {
	return target == ErrData
}
