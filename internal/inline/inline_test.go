package inline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testLink  = "\x1b[38;2;1;2;3m\x1b[4m"
	testMidBG = "\x1b[48;2;4;5;6m"
	testBG    = "\x1b[48;2;7;8;9m"
)

func format(line string) string {
	reg := &Registers{}
	return Format(line, reg, testLink, testMidBG, testBG, nil)
}

func TestFormatBoldToggle(t *testing.T) {
	out := format("**bold**")
	require.Equal(t, boldOpen+"bold"+boldClose, out)
}

func TestFormatItalicRequiresNonSpaceToOpen(t *testing.T) {
	out := format("* not italic *")
	require.Equal(t, "* not italic *", out)
}

func TestFormatItalicOpensAndCloses(t *testing.T) {
	out := format("*word*")
	require.Equal(t, italicOpen+"word"+italicClose, out)
}

func TestFormatUnderlineRequiresAlnumNeighbor(t *testing.T) {
	out := format("foo_bar_baz")
	require.Equal(t, "foo_bar_baz", out)
}

func TestFormatStrikeToggle(t *testing.T) {
	out := format("~~gone~~")
	require.Equal(t, strikeOpen+"gone"+strikeClose, out)
}

func TestFormatBoldItalicCombined(t *testing.T) {
	out := format("***both***")
	require.Equal(t, boldOpen+italicOpen+"both"+boldClose+italicClose, out)
}

func TestFormatInlineCodeSwitchesBackground(t *testing.T) {
	out := format("`code`")
	require.Equal(t, testMidBG+"code"+testBG, out)
}

func TestFormatInlineCodeSymmetricDelimiterLength(t *testing.T) {
	out := format("``has ` backtick``")
	require.Equal(t, testMidBG+"has ` backtick"+testBG, out)
}

func TestFormatLinkEmitsOSC8(t *testing.T) {
	out := format("[click](https://example.com)")
	require.Contains(t, out, "\x1b]8;;https://example.com\x1b\\")
	require.Contains(t, out, "click")
}

func TestFormatFootnoteRefToSuperscript(t *testing.T) {
	out := format("see[^12]")
	require.Equal(t, "see¹²", out)
}

func TestFormatImageSubstitutesURLOnFailure(t *testing.T) {
	reg := &Registers{}
	out := Format("![alt](img.png)", reg, testLink, testMidBG, testBG, func(ref string) (string, bool) {
		return "", false
	})
	require.Equal(t, "img.png", out)
}

func TestFormatImageUsesRendererOutputOnSuccess(t *testing.T) {
	reg := &Registers{}
	out := Format("![alt](img.png)", reg, testLink, testMidBG, testBG, func(ref string) (string, bool) {
		return "<<rendered>>", true
	})
	require.Equal(t, "<<rendered>>", out)
}

func TestFormatRegistersSurviveAcrossCalls(t *testing.T) {
	reg := &Registers{}
	first := Format("*open", reg, testLink, testMidBG, testBG, nil)
	require.True(t, reg.Italic)
	second := Format("close*", reg, testLink, testMidBG, testBG, nil)
	require.False(t, reg.Italic)
	require.Equal(t, italicOpen+"open", first)
	require.Equal(t, "close"+italicClose, second)
}
