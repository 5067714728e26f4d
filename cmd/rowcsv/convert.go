package main

import (
	"context"
	"io"

	"github.com/oleg578/rowcsv"
)

type stats struct {
	Records  int
	Comments int
	Fields   int
}

// convert copies every record from in to out, re-encoding from one dialect to the other.
func convert(ctx context.Context, in io.Reader, out io.Writer, inOpts, outOpts *rowcsv.Options, keepComments bool) (stats, error) {
	var st stats
	r := rowcsv.NewRecordReader(in, inOpts)
	r.ReuseRecord = true
	r.FieldsPerRecord = -1
	w := rowcsv.NewRecordWriter(out, outOpts)

	_, outComments := outOpts.Comment()
	r.OnComment = func(text string) error {
		st.Comments++
		if keepComments && outComments {
			return w.WriteComment(text)
		}
		return nil
	}

	for {
		record, err := r.ReadContext(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return st, err
		}
		st.Records++
		st.Fields += len(record)
		if err := w.WriteContext(ctx, record); err != nil {
			return st, err
		}
	}
	return st, w.Close()
}

// check parses in and counts what it saw; the first grammar error is returned.
func check(ctx context.Context, in io.Reader, opts *rowcsv.Options) (stats, error) {
	var st stats
	r := rowcsv.NewRecordReader(in, opts)
	r.ReuseRecord = true
	r.FieldsPerRecord = -1
	r.OnComment = func(string) error {
		st.Comments++
		return nil
	}
	for {
		record, err := r.ReadContext(ctx)
		if err == io.EOF {
			return st, nil
		}
		if err != nil {
			return st, err
		}
		st.Records++
		st.Fields += len(record)
	}
}
