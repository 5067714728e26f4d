// Package config loads CSV dialects for rowcsv from YAML files.
//
// A file describes the dialect used to read input and the dialect used to write output:
//
//	input:
//	  separator: ";"
//	  comment: "#"
//	  read_header: detect
//	output:
//	  row_ending: lf
//	  trailing_row_ending: always
//	  charset: windows-1252
//
// Omitted keys keep rowcsv defaults. Setting quote or escape to the empty string disables it.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/ianaindex"
	"gopkg.in/yaml.v3"

	"github.com/oleg578/rowcsv"
)

// Config is the top-level configuration file.
type Config struct {
	// Input configures how CSV is read.
	Input Dialect `yaml:"input"`

	// Output configures how CSV is written.
	Output Dialect `yaml:"output"`
}

// Dialect is the YAML form of rowcsv.Options.
type Dialect struct {
	Separator         string  `yaml:"separator,omitempty"`
	Quote             *string `yaml:"quote,omitempty"`
	Escape            *string `yaml:"escape,omitempty"`
	Comment           string  `yaml:"comment,omitempty"`
	RowEnding         string  `yaml:"row_ending,omitempty"`
	WriteHeader       string  `yaml:"write_header,omitempty"`
	TrailingRowEnding string  `yaml:"trailing_row_ending,omitempty"`
	ReadHeader        string  `yaml:"read_header,omitempty"`
	Charset           string  `yaml:"charset,omitempty"`
	BufferSize        int     `yaml:"buffer_size,omitempty"`
}

// Load reads and parses the config file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a config document. Unknown keys are rejected.
func Parse(r io.Reader) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// Options converts the dialect into validated rowcsv options.
func (d Dialect) Options() (*rowcsv.Options, error) {
	var opts []rowcsv.Option

	if d.Separator != "" {
		r, err := char("separator", d.Separator)
		if err != nil {
			return nil, err
		}
		opts = append(opts, rowcsv.WithSeparator(r))
	}
	if d.Quote != nil {
		r, err := optionalChar("quote", *d.Quote)
		if err != nil {
			return nil, err
		}
		opts = append(opts, rowcsv.WithQuote(r))
		if d.Escape == nil && r == 0 {
			// No quote means nothing can be escaped either.
			opts = append(opts, rowcsv.WithEscape(0))
		}
	}
	if d.Escape != nil {
		r, err := optionalChar("escape", *d.Escape)
		if err != nil {
			return nil, err
		}
		opts = append(opts, rowcsv.WithEscape(r))
	}
	if d.Comment != "" {
		r, err := char("comment", d.Comment)
		if err != nil {
			return nil, err
		}
		opts = append(opts, rowcsv.WithComment(r))
	}

	if d.RowEnding != "" {
		switch strings.ToLower(d.RowEnding) {
		case "crlf":
			opts = append(opts, rowcsv.WithRowEnding(rowcsv.RowEndingCRLF))
		case "lf":
			opts = append(opts, rowcsv.WithRowEnding(rowcsv.RowEndingLF))
		case "cr":
			opts = append(opts, rowcsv.WithRowEnding(rowcsv.RowEndingCR))
		default:
			return nil, fmt.Errorf("row_ending: unknown value %q (want crlf, lf or cr)", d.RowEnding)
		}
	}
	if d.WriteHeader != "" {
		switch strings.ToLower(d.WriteHeader) {
		case "always":
			opts = append(opts, rowcsv.WithWriteHeader(rowcsv.WriteHeaderAlways))
		case "never":
			opts = append(opts, rowcsv.WithWriteHeader(rowcsv.WriteHeaderNever))
		default:
			return nil, fmt.Errorf("write_header: unknown value %q (want always or never)", d.WriteHeader)
		}
	}
	if d.TrailingRowEnding != "" {
		switch strings.ToLower(d.TrailingRowEnding) {
		case "always":
			opts = append(opts, rowcsv.WithTrailingRowEnding(rowcsv.TrailingRowEndingAlways))
		case "never":
			opts = append(opts, rowcsv.WithTrailingRowEnding(rowcsv.TrailingRowEndingNever))
		default:
			return nil, fmt.Errorf("trailing_row_ending: unknown value %q (want always or never)", d.TrailingRowEnding)
		}
	}
	if d.ReadHeader != "" {
		switch strings.ToLower(d.ReadHeader) {
		case "always":
			opts = append(opts, rowcsv.WithReadHeader(rowcsv.ReadHeaderAlways))
		case "never":
			opts = append(opts, rowcsv.WithReadHeader(rowcsv.ReadHeaderNever))
		case "detect":
			opts = append(opts, rowcsv.WithReadHeader(rowcsv.ReadHeaderDetect))
		default:
			return nil, fmt.Errorf("read_header: unknown value %q (want always, never or detect)", d.ReadHeader)
		}
	}
	if d.Charset != "" {
		enc, err := ianaindex.IANA.Encoding(d.Charset)
		if err != nil {
			return nil, fmt.Errorf("charset: %w", err)
		}
		if enc == nil {
			return nil, fmt.Errorf("charset: %q is not supported", d.Charset)
		}
		opts = append(opts, rowcsv.WithCharset(enc))
	}
	if d.BufferSize != 0 {
		opts = append(opts, rowcsv.WithBufferSize(d.BufferSize))
	}
	return rowcsv.NewOptions(opts...)
}

func char(key, s string) (rune, error) {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || size != len(s) {
		return 0, fmt.Errorf("%s: want a single character, got %q", key, s)
	}
	return r, nil
}

func optionalChar(key, s string) (rune, error) {
	if s == "" {
		return 0, nil
	}
	return char(key, s)
}
