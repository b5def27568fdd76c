package image

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectCapabilityNoneByDefault(t *testing.T) {
	t.Setenv("KITTY_WINDOW_ID", "")
	t.Setenv("TERM", "xterm-256color")
	t.Setenv("TERM_PROGRAM", "")
	t.Setenv("LC_TERMINAL", "")
	t.Setenv("COLORTERM", "")

	require.Equal(t, CapNone, DetectCapability())
}

func TestDetectCapabilityKitty(t *testing.T) {
	t.Setenv("KITTY_WINDOW_ID", "1")
	require.Equal(t, CapKitty, DetectCapability())
}

func TestDetectCapabilityITerm(t *testing.T) {
	t.Setenv("KITTY_WINDOW_ID", "")
	t.Setenv("TERM", "xterm-256color")
	t.Setenv("TERM_PROGRAM", "iTerm.app")
	require.Equal(t, CapITerm, DetectCapability())
}

func TestRenderFailsGracefullyForMissingFile(t *testing.T) {
	t.Setenv("KITTY_WINDOW_ID", "1")
	out, ok := Render("/nonexistent/path/to/image.png")
	require.False(t, ok)
	require.Empty(t, out)
}

func TestRenderReportsNoCapability(t *testing.T) {
	t.Setenv("KITTY_WINDOW_ID", "")
	t.Setenv("TERM", "xterm-256color")
	t.Setenv("TERM_PROGRAM", "")
	t.Setenv("LC_TERMINAL", "")
	t.Setenv("COLORTERM", "")

	out, ok := Render("anything.png")
	require.False(t, ok)
	require.Empty(t, out)
}
