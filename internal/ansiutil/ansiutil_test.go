package ansiutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVisibleStripsCSI(t *testing.T) {
	require.Equal(t, "hello", Visible("\x1b[1mhello\x1b[0m"))
}

func TestVisibleStripsOSC(t *testing.T) {
	s := "\x1b]8;;https://example.com\x1b\\link\x1b]8;;\x1b\\"
	require.Equal(t, "link", Visible(s))
}

func TestVisibleLengthCountsRunesNotBytes(t *testing.T) {
	require.Equal(t, 2, VisibleLength("\x1b[31m日本\x1b[0m"))
}

func TestVisibleWidthCountsDoubleWidthRunes(t *testing.T) {
	require.Equal(t, 4, VisibleWidth("\x1b[31m日本\x1b[0m"))
}

func TestExtractCodesSimple(t *testing.T) {
	require.Equal(t, []string{"1", "31"}, ExtractCodes("\x1b[1;31mtext\x1b[0m")[:2])
}

func TestExtractCodesKeepsTruecolorIntact(t *testing.T) {
	codes := ExtractCodes("\x1b[38;2;255;0;0mred\x1b[0m")
	require.Equal(t, []string{"38;2;255;0;0", "0"}, codes)
}

func TestCollapseDropsSupersededClass(t *testing.T) {
	active := []string{"1", "31"}
	got := Collapse(active, []string{"32"})
	require.Equal(t, []string{"1", "32"}, got)
}

func TestCollapseFullResetClearsEverything(t *testing.T) {
	active := []string{"1", "31", "4"}
	got := Collapse(active, []string{"0"})
	require.Empty(t, got)
}

func TestCollapseAppendsNewClass(t *testing.T) {
	active := []string{"1"}
	got := Collapse(active, []string{"31"})
	require.Equal(t, []string{"1", "31"}, got)
}

func TestRenderRoundTrip(t *testing.T) {
	require.Equal(t, "\x1b[1;31m", Render([]string{"1", "31"}))
	require.Equal(t, "", Render(nil))
}

func TestStripKeystrokesRemovesCursorReport(t *testing.T) {
	require.Equal(t, "abc", StripKeystrokes("\x1b[6nabc"))
}
