package block

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

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

func allText(chunks []Chunk) string {
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(c.Text)
	}
	return b.String()
}

func TestProcessLineHeadingH1IsCentered(t *testing.T) {
	m := New(testRegistry(40), "", nil, nil, nil)
	chunks := m.ProcessLine("# Title")
	require.Len(t, chunks, 1)
	require.Contains(t, chunks[0].Text, "Title")
	require.Contains(t, chunks[0].Text, "\x1b[1m")
}

func TestProcessLineHeadingH3UsesHeadColor(t *testing.T) {
	m := New(testRegistry(40), "", nil, nil, nil)
	chunks := m.ProcessLine("### Section")
	require.Len(t, chunks, 1)
	require.Contains(t, chunks[0].Text, "Section")
}

func TestProcessLineParagraphShortPassesThrough(t *testing.T) {
	m := New(testRegistry(80), "", nil, nil, nil)
	chunks := m.ProcessLine("hello world")
	require.Len(t, chunks, 1)
	require.Contains(t, chunks[0].Text, "hello world")
}

func TestProcessLineParagraphLongWraps(t *testing.T) {
	m := New(testRegistry(20), "", nil, nil, nil)
	chunks := m.ProcessLine("this is a long paragraph that should wrap onto more than one output line")
	require.True(t, len(chunks) > 1)
}

func TestProcessLineEmptyLineCollapsesRepeats(t *testing.T) {
	m := New(testRegistry(40), "", nil, nil, nil)
	first := m.ProcessLine("")
	second := m.ProcessLine("")
	require.NotEmpty(t, first)
	require.Empty(t, second)
}

func TestProcessLineHorizontalRuleWithoutSetextContext(t *testing.T) {
	m := New(testRegistry(40), "", nil, nil, nil)
	m.ProcessLine("")
	chunks := m.ProcessLine("---")
	require.Len(t, chunks, 1)
	require.Contains(t, chunks[0].Text, "─")
}

func TestProcessLineSetextPromotionFlagsOnNonBlankContext(t *testing.T) {
	m := New(testRegistry(40), "", nil, nil, nil)
	m.ProcessLine("Title")
	chunks := m.ProcessLine("===")
	require.Len(t, chunks, 1)
	require.Equal(t, FlagPromoteH2, chunks[0].Flag)
}

func TestProcessLineListItemAddsBullet(t *testing.T) {
	m := New(testRegistry(40), "", nil, nil, nil)
	chunks := m.ProcessLine("- first item")
	require.NotEmpty(t, chunks)
	require.Contains(t, allText(chunks), "•")
}

func TestProcessLineOrderedListUsesNumber(t *testing.T) {
	m := New(testRegistry(40), "", nil, nil, nil)
	chunks := m.ProcessLine("1. first")
	require.NotEmpty(t, chunks)
	require.Contains(t, allText(chunks), "1")
}

func TestProcessLineTableRowsAbsorbSeparator(t *testing.T) {
	m := New(testRegistry(40), "", nil, nil, nil)
	header := m.ProcessLine("| a | b |")
	sep := m.ProcessLine("|---|---|")
	body := m.ProcessLine("| x | y |")
	require.NotEmpty(t, header)
	require.Empty(t, sep)
	require.NotEmpty(t, body)
}

func TestProcessLineCodeFenceEntryAndExit(t *testing.T) {
	m := New(testRegistry(40), "", nil, nil, nil)
	open := m.ProcessLine("```go")
	require.Empty(t, open)
	body := m.ProcessLine("func main() {}")
	require.NotEmpty(t, body)
	close := m.ProcessLine("```")
	require.NotEmpty(t, close)
}

func TestProcessLineCodeLineWrappingMultipleSegmentsEachGetOwnNewline(t *testing.T) {
	m := New(testRegistry(10), "", nil, nil, nil)
	m.ProcessLine("```bash")
	chunks := m.ProcessLine("echo hello world this is long")
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		require.True(t, strings.HasSuffix(c.Text, "\n"))
	}
}

func TestProcessLineMalformedTableSeparatorLogsWarning(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	m := New(testRegistry(40), "", nil, nil, logger)
	m.ProcessLine("| a | b |")
	m.ProcessLine("| x | y |")
	require.Contains(t, buf.String(), "malformed table")
}

func TestProcessLineIndentDecreaseBelowFirstLineLogsWarning(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	m := New(testRegistry(40), "", nil, nil, logger)
	m.ProcessLine("  first line sets the indent")
	m.ProcessLine("no leading space")
	require.Contains(t, buf.String(), "indentation decreased")
}

func TestProcessLineThinkTagTogglesBlockquoteDepth(t *testing.T) {
	m := New(testRegistry(40), "", nil, nil, nil)
	require.Equal(t, 0, m.blockDepth)
	m.ProcessLine("<think>")
	require.Equal(t, 1, m.blockDepth)
	m.ProcessLine("</think>")
	require.Equal(t, 0, m.blockDepth)
}

func TestProcessLineBlockquoteDepthCountsAngleBrackets(t *testing.T) {
	m := New(testRegistry(40), "", nil, nil, nil)
	m.ProcessLine(">> nested quote")
	require.Equal(t, 2, m.blockDepth)
}

func TestProcessLineLatexMathSpanSubstitutes(t *testing.T) {
	m := New(testRegistry(40), "", nil, nil, nil)
	chunks := m.ProcessLine(`energy $E=mc^2$ via $\alpha$ decay`)
	require.NotEmpty(t, chunks)
	require.Contains(t, allText(chunks), "α")
}
