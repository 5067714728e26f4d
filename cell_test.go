package rowcsv

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCellWriterSegments(t *testing.T) {
	t.Parallel()

	var c CellWriter
	long := strings.Repeat("abcdefghij", 40)
	_, _ = c.WriteString(long[:100])
	_, _ = c.Write([]byte(long[100:250]))
	_ = c.WriteByte('!')
	_, _ = c.WriteRune('é')

	want := long[:250] + "!é"
	require.Equal(t, len(want), c.Len())
	require.Equal(t, want, c.String())

	var joined bytes.Buffer
	segments := 0
	for seg := range c.Segments() {
		require.LessOrEqual(t, len(seg), segmentSize)
		joined.Write(seg)
		segments++
	}
	require.Equal(t, want, joined.String())
	require.Greater(t, segments, 1)

	c.reset()
	require.Zero(t, c.Len())
	require.Empty(t, c.String())
}

func TestCellWriterSetString(t *testing.T) {
	t.Parallel()

	var c CellWriter
	_, _ = c.WriteString("stale")
	c.setString("fresh")
	require.Equal(t, "fresh", c.String())
	c.reset()
}
