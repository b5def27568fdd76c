package stream

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kristopolous/streamdown/internal/block"
	"github.com/kristopolous/streamdown/internal/config"
	"github.com/kristopolous/streamdown/internal/style"
)

func testRegistry(width int) style.Registry {
	cfg := config.Style{
		Margin:     2,
		ListIndent: 2,
		HSV:        [3]float64{0.8, 0.5, 0.5},
		Dark:       config.Multiplier{H: 1.00, S: 1.50, V: 0.25},
		Mid:        config.Multiplier{H: 1.00, S: 1.00, V: 0.50},
		Symbol:     config.Multiplier{H: 1.00, S: 1.00, V: 1.50},
		Head:       config.Multiplier{H: 1.00, S: 2.00, V: 1.50},
		Grey:       config.Multiplier{H: 1.00, S: 0.12, V: 1.25},
		Bright:     config.Multiplier{H: 1.00, S: 2.00, V: 2.00},
		Syntax:     "monokai",
	}
	return style.NewRegistry(cfg, width, width)
}

func renderAll(t *testing.T, input string) string {
	t.Helper()
	m := block.New(testRegistry(60), "", nil, nil, nil)
	var out bytes.Buffer
	d := New(&out, m, Options{Timeout: time.Hour})
	require.NoError(t, d.Run(strings.NewReader(input)))
	return out.String()
}

// TestStreamingParity is the property of spec.md §8.1: rendering byte-by-
// byte produces the same output as rendering one whole read, for the same
// Machine/Driver configuration.
func TestStreamingParity(t *testing.T) {
	input := "# Title\n\nSome **bold** text that is long enough to wrap onto more than a single output line for sure.\n\n- item one\n- item two\n"

	whole := renderAll(t, input)

	m := block.New(testRegistry(60), "", nil, nil, nil)
	var out bytes.Buffer
	d := New(&out, m, Options{Timeout: time.Hour})
	for i := 0; i < len(input); i++ {
		d.feed([]byte{input[i]})
	}
	d.finish()

	require.Equal(t, whole, out.String())
}

func TestBracketClosureAtEOF(t *testing.T) {
	m := block.New(testRegistry(60), "", nil, nil, nil)
	var out bytes.Buffer
	d := New(&out, m, Options{})
	require.NoError(t, d.Run(strings.NewReader("a **bold that never closes\n")))
	require.False(t, m.InlineOpen())
}

func TestSetextPromotionRewritesPreviousLine(t *testing.T) {
	out := renderAll(t, "hello\n===\n")
	require.Contains(t, out, "hello")
	require.Contains(t, out, "\x1b[1m")
}

func TestPartialLineWithoutTrailingNewlineIsNotForcedANewline(t *testing.T) {
	out := renderAll(t, "no newline at all")
	require.False(t, strings.HasSuffix(out, "\n"))
}

func TestCodeBlockRendersWithoutBackticks(t *testing.T) {
	out := renderAll(t, "```go\nfunc main() {}\n```\n")
	require.NotContains(t, out, "```")
	require.Contains(t, out, "func")
}

// TestCodeBlockCloseFlushesLookAheadImmediately covers the FlagFlush wiring:
// a closed code block drains the look-ahead buffer right away instead of
// holding it for possible setext promotion by a following line.
func TestCodeBlockCloseFlushesLookAheadImmediately(t *testing.T) {
	m := block.New(testRegistry(60), "", nil, nil, nil)
	var out bytes.Buffer
	d := New(&out, m, Options{Timeout: time.Hour})
	require.NoError(t, d.Run(strings.NewReader("```go\nx := 1\n```\n")))
	require.Empty(t, d.pendingRaw)
	require.False(t, d.pendingIsParagraph)
}
