package highlight

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHighlightProducesANSIForKnownLanguage(t *testing.T) {
	h := New("go", "monokai", nil)
	out, err := h.Highlight("func main() {}\n")
	require.NoError(t, err)
	require.Contains(t, out, "\x1b[")
	require.Contains(t, out, "func")
}

func TestHighlightFallsBackToBashForUnknownLanguage(t *testing.T) {
	h := New("not-a-real-language-xyz", "monokai", nil)
	out, err := h.Highlight("echo hello\n")
	require.NoError(t, err)
	require.Contains(t, out, "echo")
}

func TestHighlightFallsBackToDefaultStyleForUnknownStyle(t *testing.T) {
	h := New("go", "not-a-real-style-xyz", nil)
	out, err := h.Highlight("x := 1\n")
	require.NoError(t, err)
	require.NotEmpty(t, out)
}

func TestFilenamesReturnsLexerExtensions(t *testing.T) {
	h := New("python", "monokai", nil)
	require.NotEmpty(t, h.Filenames())
}

func TestNewLogsWarnOnUnknownLanguage(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	New("not-a-real-language-xyz", "monokai", logger)
	require.Contains(t, buf.String(), "unknown code language")
}

func TestNewLogsWarnOnUnknownStyle(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	New("go", "not-a-real-style-xyz", logger)
	require.Contains(t, buf.String(), "unknown chroma style")
}
