package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/multierr"
)

type readCloser struct {
	io.Reader
	close func() error
}

func (r readCloser) Close() error { return r.close() }

type writeCloser struct {
	io.Writer
	close func() error
}

func (w writeCloser) Close() error { return w.close() }

// openInput opens path for reading, "-" meaning stdin. .zst files are decompressed.
func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return readCloser{Reader: os.Stdin, close: func() error { return nil }}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	if !strings.HasSuffix(path, ".zst") {
		return f, nil
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open zstd input: %w", err)
	}
	return readCloser{Reader: dec, close: func() error {
		dec.Close()
		return f.Close()
	}}, nil
}

// createOutput creates path for writing, "-" meaning stdout. .zst files are compressed.
func createOutput(path string) (io.WriteCloser, error) {
	if path == "-" {
		return writeCloser{Writer: os.Stdout, close: func() error { return nil }}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	if !strings.HasSuffix(path, ".zst") {
		return f, nil
	}
	enc, err := zstd.NewWriter(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create zstd output: %w", err)
	}
	return writeCloser{Writer: enc, close: func() error {
		return multierr.Append(enc.Close(), f.Close())
	}}, nil
}
