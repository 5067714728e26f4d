package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/oleg578/rowcsv"
)

func TestParse(t *testing.T) {
	t.Parallel()

	cfg, err := Parse(strings.NewReader(`
input:
  separator: ";"
  comment: "#"
  read_header: detect
  charset: windows-1252
output:
  quote: "'"
  escape: "\\"
  row_ending: lf
  write_header: never
  trailing_row_ending: always
  buffer_size: 4096
`))
	require.NoError(t, err)

	in, err := cfg.Input.Options()
	require.NoError(t, err)
	require.Equal(t, ';', in.Separator())
	c, ok := in.Comment()
	require.True(t, ok)
	require.Equal(t, '#', c)
	require.Equal(t, rowcsv.ReadHeaderDetect, in.ReadHeader())
	require.Equal(t, charmap.Windows1252, in.Charset())

	out, err := cfg.Output.Options()
	require.NoError(t, err)
	q, _ := out.Quote()
	require.Equal(t, '\'', q)
	e, _ := out.Escape()
	require.Equal(t, '\\', e)
	require.Equal(t, rowcsv.RowEndingLF, out.RowEnding())
	require.Equal(t, rowcsv.WriteHeaderNever, out.WriteHeader())
	require.Equal(t, rowcsv.TrailingRowEndingAlways, out.TrailingRowEnding())
	require.Equal(t, 4096, out.BufferSize())
}

func TestParseEmpty(t *testing.T) {
	t.Parallel()

	cfg, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	opts, err := cfg.Input.Options()
	require.NoError(t, err)
	require.Equal(t, ',', opts.Separator())
}

func TestParseUnknownKey(t *testing.T) {
	t.Parallel()

	_, err := Parse(strings.NewReader("input:\n  delimiter: \";\"\n"))
	require.Error(t, err)
}

func TestDialectQuotingDisabled(t *testing.T) {
	t.Parallel()

	empty := ""
	opts, err := Dialect{Quote: &empty}.Options()
	require.NoError(t, err)
	_, ok := opts.Quote()
	require.False(t, ok)
	_, ok = opts.Escape()
	require.False(t, ok)
}

func TestDialectErrors(t *testing.T) {
	t.Parallel()

	two := "ab"
	tests := map[string]Dialect{
		"multiCharSeparator": {Separator: ";;"},
		"quoteTooLong":       {Quote: &two},
		"rowEnding":          {RowEnding: "crcr"},
		"writeHeader":        {WriteHeader: "sometimes"},
		"trailing":           {TrailingRowEnding: "maybe"},
		"readHeader":         {ReadHeader: "guess"},
		"charset":            {Charset: "no-such-charset"},
		"invalidCombination": {Separator: "\""},
		"nonASCII":           {Comment: "§"},
	}
	for name, d := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := d.Options()
			require.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "dialect.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  row_ending: cr\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	opts, err := cfg.Output.Options()
	require.NoError(t, err)
	require.Equal(t, rowcsv.RowEndingCR, opts.RowEnding())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
