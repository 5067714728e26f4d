package rowcsv

import (
	"bufio"
	"strings"
)

// encoder holds the character-level write grammar for one Options value.
type encoder struct {
	dst         *bufio.Writer
	rowEnding   []byte
	separator   byte
	quote       byte
	escape      byte
	comment     byte
	alwaysQuote bool
}

func newEncoder(dst *bufio.Writer, opts *Options) encoder {
	return encoder{
		dst:       dst,
		rowEnding: opts.rowEnding.bytes(),
		separator: opts.separator,
		quote:     opts.quote,
		escape:    opts.escape,
		comment:   opts.comment,
	}
}

// needsQuote scans every segment of cell for a character that cannot appear bare.
// It returns the first such character.
func (e *encoder) needsQuote(cell *CellWriter) (byte, bool) {
	for seg := range cell.Segments() {
		for _, b := range seg {
			if e.special(b) {
				return b, true
			}
		}
	}
	return 0, false
}

func (e *encoder) special(b byte) bool {
	switch {
	case b == '\r', b == '\n', b == e.separator:
		return true
	case e.quote != 0 && b == e.quote:
		return true
	case e.comment != 0 && b == e.comment:
		return true
	}
	return false
}

// writeCell emits cell, quoting and escaping it when required.
func (e *encoder) writeCell(cell *CellWriter) error {
	offending, quoted := e.needsQuote(cell)
	if e.alwaysQuote {
		quoted = true
	}
	if !quoted {
		for seg := range cell.Segments() {
			if _, err := e.dst.Write(seg); err != nil {
				return err
			}
		}
		return nil
	}
	if e.quote == 0 {
		if e.alwaysQuote && offending == 0 {
			return configError(OpWrite, "AlwaysQuote requires a quote character")
		}
		return unescapableError(offending)
	}

	if err := e.dst.WriteByte(e.quote); err != nil {
		return err
	}
	for seg := range cell.Segments() {
		start := 0
		for i, b := range seg {
			if b != e.quote && (e.escape == 0 || b != e.escape) {
				continue
			}
			if e.escape == 0 {
				return unescapableError(b)
			}
			if start < i {
				if _, err := e.dst.Write(seg[start:i]); err != nil {
					return err
				}
			}
			if _, err := e.dst.Write([]byte{e.escape, b}); err != nil {
				return err
			}
			start = i + 1
		}
		if start < len(seg) {
			if _, err := e.dst.Write(seg[start:]); err != nil {
				return err
			}
		}
	}
	return e.dst.WriteByte(e.quote)
}

func (e *encoder) writeSeparator() error {
	return e.dst.WriteByte(e.separator)
}

func (e *encoder) writeRowEnding() error {
	_, err := e.dst.Write(e.rowEnding)
	return err
}

// writeComment emits text as one comment line per source line, joined by the row ending.
// The comment character is not escaped inside a comment.
func (e *encoder) writeComment(text string) error {
	if e.comment == 0 {
		return configError(OpWrite, "No comment character configured, cannot write a comment line")
	}
	for i, line := range splitLines(text) {
		if i > 0 {
			if err := e.writeRowEnding(); err != nil {
				return err
			}
		}
		if err := e.dst.WriteByte(e.comment); err != nil {
			return err
		}
		if _, err := e.dst.WriteString(line); err != nil {
			return err
		}
	}
	return nil
}

// splitLines splits on CRLF, CR and LF uniformly.
func splitLines(text string) []string {
	var lines []string
	for {
		i := strings.IndexAny(text, "\r\n")
		if i < 0 {
			return append(lines, text)
		}
		lines = append(lines, text[:i])
		if text[i] == '\r' && i+1 < len(text) && text[i+1] == '\n' {
			i++
		}
		text = text[i+1:]
	}
}
