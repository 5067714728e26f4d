// # RowCSV: A Row-Binding Streaming CSV Codec for Go
//
// RowCSV converts between Go row values and CSV text. The codec itself never inspects concrete
// row types: a TypeDescriber hands it ordered member bindings (getters, setters, formatters,
// parsers, should-serialize and reset hooks, and an instance provider), and the encoding and
// decoding engines drive those bindings column by column.
//
// # Features
//
// - RFC 4180 quoting with configurable separator, quote, escape and comment characters.
// - Comment lines on both paths, CR/LF/CRLF row endings, header and trailing row-ending policy.
// - Record-level RecordReader/RecordWriter for raw []string rows and typed Reader[T]/Writer[T].
// - Constructor-bound members that may appear in any header order.
// - Context-aware variants (WriteContext, ReadContext, Stream) that honour cancellation at
//   flush and fill boundaries.
// - Structured errors classed as configuration, data or argument failures (see Error).
//
// # Getting Started
//
//	describer := rowcsv.NewManualTypeDescriber()
//	// register members for Order ...
//	bound, err := rowcsv.Bind[Order](describer, rowcsv.DefaultOptions())
//	w := bound.NewWriter(os.Stdout, nil)
//	defer w.Close()
//	w.Write(Order{ID: 1, Name: "widget"})
//
// # Thread Safety
//
// Options, bound configurations and member descriptors are immutable and safe to share.
// Writer, Reader, RecordWriter and RecordReader keep a cursor and staging buffers and are NOT
// safe for concurrent use.
package rowcsv
