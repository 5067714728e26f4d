package rowcsv

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func TestRecordWriterWrite(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		records [][]string
		opts    []Option
		config  func(*RecordWriter)
		want    string
	}{
		{
			name:    "basic",
			records: [][]string{{"a", "b", "c"}},
			want:    "a,b,c",
		},
		{
			name: "multipleRecords",
			records: [][]string{
				{"alpha", "beta"},
				{"gamma", "delta"},
			},
			want: "alpha,beta\r\ngamma,delta",
		},
		{
			name:    "emptyField",
			records: [][]string{{"", "b"}},
			want:    ",b",
		},
		{
			name:    "soleEmptyField",
			records: [][]string{{"a"}, {""}},
			want:    "a\r\n\"\"",
		},
		{
			name:    "separatorForcesQuote",
			records: [][]string{{"alpha,beta"}},
			want:    "\"alpha,beta\"",
		},
		{
			name: "quoteEscaping",
			records: [][]string{
				{"he said \"hello\"", "plain"},
			},
			want: "\"he said \"\"hello\"\"\",plain",
		},
		{
			name:    "newlineForcesQuote",
			records: [][]string{{"multi\nline", "z"}},
			want:    "\"multi\nline\",z",
		},
		{
			name:    "carriageReturnForcesQuote",
			records: [][]string{{"a\rb"}},
			want:    "\"a\rb\"",
		},
		{
			name:    "alwaysQuote",
			records: [][]string{{"alpha", "beta"}},
			config: func(w *RecordWriter) {
				w.AlwaysQuote = true
			},
			want: "\"alpha\",\"beta\"",
		},
		{
			name:    "customSeparator",
			records: [][]string{{"a;b", "c"}},
			opts:    []Option{WithSeparator(';')},
			want:    "\"a;b\";c",
		},
		{
			name:    "customQuote",
			records: [][]string{{"alpha'beta", "plain"}},
			opts:    []Option{WithQuote('\''), WithEscape('\'')},
			want:    "'alpha''beta',plain",
		},
		{
			name:    "distinctEscape",
			records: [][]string{{`a"b`, `c\d`, `x,\`}},
			opts:    []Option{WithEscape('\\')},
			want:    `"a\"b",c\d,"x,\\"`,
		},
		{
			name:    "commentCharacterForcesQuote",
			records: [][]string{{"#hello", "a#b", "plain"}},
			opts:    []Option{WithComment('#')},
			want:    "\"#hello\",\"a#b\",plain",
		},
		{
			name:    "lineFeed",
			records: [][]string{{"a"}, {"b"}},
			opts:    []Option{WithRowEnding(RowEndingLF)},
			want:    "a\nb",
		},
		{
			name:    "carriageReturn",
			records: [][]string{{"a"}, {"b"}},
			opts:    []Option{WithRowEnding(RowEndingCR)},
			want:    "a\rb",
		},
		{
			name:    "trailingRowEnding",
			records: [][]string{{"a"}, {"b"}},
			opts:    []Option{WithTrailingRowEnding(TrailingRowEndingAlways)},
			want:    "a\r\nb\r\n",
		},
		{
			name:    "trailingRowEndingWithoutRows",
			records: nil,
			opts:    []Option{WithTrailingRowEnding(TrailingRowEndingAlways)},
			want:    "",
		},
		{
			name:    "longValueSpansSegments",
			records: [][]string{{strings.Repeat("x", 300) + "," + strings.Repeat("\"", 200)}},
			want:    "\"" + strings.Repeat("x", 300) + "," + strings.Repeat("\"\"", 200) + "\"",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			w := NewRecordWriter(&buf, testOptions(t, tc.opts...))
			if tc.config != nil {
				tc.config(w)
			}
			for _, rec := range tc.records {
				if err := w.Write(rec); err != nil {
					t.Fatalf("Write() error = %v", err)
				}
			}
			if err := w.Close(); err != nil {
				t.Fatalf("Close() error = %v", err)
			}
			if got := buf.String(); got != tc.want {
				t.Fatalf("unexpected output:\n got: %q\nwant: %q", got, tc.want)
			}
		})
	}
}

func TestRecordWriterUnescapable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		opts   []Option
		config func(*RecordWriter)
		record []string
		msg    string
	}{
		{
			name:   "noQuote",
			opts:   []Option{WithQuote(0), WithEscape(0)},
			record: []string{"a,b"},
			msg:    "Tried to write a value contain ','",
		},
		{
			name:   "noQuoteNewline",
			opts:   []Option{WithQuote(0), WithEscape(0)},
			record: []string{"ok", "a\nb"},
			msg:    `Tried to write a value contain '\n'`,
		},
		{
			name:   "noEscape",
			opts:   []Option{WithEscape(0)},
			record: []string{"a\"b"},
			msg:    "Tried to write a value contain '\"'",
		},
		{
			name:   "alwaysQuoteWithoutQuote",
			opts:   []Option{WithQuote(0), WithEscape(0)},
			config: func(w *RecordWriter) { w.AlwaysQuote = true },
			record: []string{"plain"},
			msg:    "AlwaysQuote requires a quote character",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			w := NewRecordWriter(&bytes.Buffer{}, testOptions(t, tc.opts...))
			if tc.config != nil {
				tc.config(w)
			}
			err := w.Write(tc.record)
			require.ErrorIs(t, err, ErrConfiguration)
			require.Contains(t, err.Error(), tc.msg)
			require.ErrorIs(t, w.Error(), ErrConfiguration)
			require.ErrorIs(t, w.Write([]string{"x"}), ErrConfiguration)
		})
	}
}

func TestRecordWriterComments(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewRecordWriter(&buf, testOptions(t, WithComment('#')))
	require.NoError(t, w.Write([]string{"Foo", "Bar"}))
	require.NoError(t, w.WriteComment("hello\nworld"))
	require.NoError(t, w.WriteComment("a#b\r\n\rc"))
	require.NoError(t, w.Close())
	require.Equal(t, "Foo,Bar\r\n#hello\r\n#world\r\n#a#b\r\n#\r\n#c", buf.String())

	w = NewRecordWriter(&bytes.Buffer{}, nil)
	require.ErrorIs(t, w.WriteComment("nope"), ErrConfiguration)
}

func TestRecordWriterWriteAll(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewRecordWriter(&buf, nil)

	records := [][]string{
		{"alpha", "beta"},
		{"gamma", "delta"},
	}

	require.NoError(t, w.WriteAll(records))
	require.NoError(t, w.Flush())
	require.Equal(t, "alpha,beta\r\ngamma,delta", buf.String())
}

func TestRecordWriterReset(t *testing.T) {
	t.Parallel()

	var buf1 bytes.Buffer
	var buf2 bytes.Buffer

	var w RecordWriter
	w.Reset(&buf1)

	if err := w.Write([]string{"a"}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if got := buf1.String(); got != "a" {
		t.Fatalf("unexpected buf1 contents %q", got)
	}

	w.Reset(&buf2)
	if err := w.Write([]string{"x", "y"}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if got := buf2.String(); got != "x,y" {
		t.Fatalf("unexpected buf2 contents %q", got)
	}
}

type flushFailWriter struct {
	fail error
}

func (f *flushFailWriter) Write([]byte) (int, error) {
	return 0, f.fail
}

func TestRecordWriterFlushError(t *testing.T) {
	t.Parallel()

	exp := errors.New("flush failed")
	w := NewRecordWriter(&flushFailWriter{fail: exp}, nil)

	if err := w.Write([]string{"a"}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Flush(); !errors.Is(err, exp) {
		t.Fatalf("expected flush error %v, got %v", exp, err)
	}
	if err := w.Write([]string{"b"}); !errors.Is(err, exp) {
		t.Fatalf("Write() should return stored error %v, got %v", exp, err)
	}
	if err := w.Error(); !errors.Is(err, exp) {
		t.Fatalf("Error() should return %v, got %v", exp, err)
	}
}

func TestRecordWriterClosed(t *testing.T) {
	t.Parallel()

	w := NewRecordWriter(&strings.Builder{}, nil)
	require.NoError(t, w.Error())
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	require.ErrorIs(t, w.Write([]string{"a"}), errWriterClosed)
}

func TestRecordWriterWriteContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	w := NewRecordWriter(&buf, testOptions(t, WithBufferSize(4)))
	err := w.WriteContext(ctx, []string{"abcdefgh"})
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, buf.Len())

	// The context only applies to the call it was passed to.
	w.Reset(&buf)
	require.NoError(t, w.Write([]string{"abcdefgh"}))
	require.NoError(t, w.Close())
	require.Equal(t, "abcdefgh", buf.String())
}

func TestRecordWriterCharset(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewRecordWriter(&buf, testOptions(t, WithCharset(charmap.Windows1252)))
	require.NoError(t, w.Write([]string{"café", "naïve"}))
	require.NoError(t, w.Close())
	require.Equal(t, "caf\xe9,na\xefve", buf.String())
}

func TestNewRecordWriterNilPanics(t *testing.T) {
	t.Parallel()

	require.Panics(t, func() { NewRecordWriter(nil, nil) })
}
