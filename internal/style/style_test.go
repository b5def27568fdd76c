package style

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kristopolous/streamdown/internal/config"
)

func defaultStyleConfig() config.Style {
	return config.Style{
		Margin:     2,
		ListIndent: 2,
		Width:      0,
		HSV:        [3]float64{0.8, 0.5, 0.5},
		Dark:       config.Multiplier{H: 1.00, S: 1.50, V: 0.25},
		Mid:        config.Multiplier{H: 1.00, S: 1.00, V: 0.50},
		Symbol:     config.Multiplier{H: 1.00, S: 1.00, V: 1.50},
		Head:       config.Multiplier{H: 1.00, S: 2.00, V: 1.50},
		Grey:       config.Multiplier{H: 1.00, S: 0.12, V: 1.25},
		Bright:     config.Multiplier{H: 1.00, S: 2.00, V: 2.00},
		Syntax:     "monokai",
	}
}

func TestNewRegistryClampsEachRoleIndependently(t *testing.T) {
	reg := NewRegistry(defaultStyleConfig(), 0, 80)

	for _, role := range []Role{Dark, Mid, Symbol, Head, Grey, Bright} {
		c := reg.Colors[role]
		require.GreaterOrEqual(t, int(c.R)+int(c.G)+int(c.B), 0)
	}

	// Bright has S and V multipliers of 2.00 against a 0.5 base, so both
	// clamp to 1.0: full saturation, full value.
	bright := reg.Colors[Bright]
	require.True(t, bright.R == 255 || bright.G == 255 || bright.B == 255)
}

func TestNewRegistryWidthFallsBackToTerminal(t *testing.T) {
	cfg := defaultStyleConfig()
	reg := NewRegistry(cfg, 0, 100)
	require.Equal(t, 100, reg.FullWidth)
	require.Equal(t, 96, reg.Width)
}

func TestNewRegistryWidthOverrideWins(t *testing.T) {
	cfg := defaultStyleConfig()
	reg := NewRegistry(cfg, 40, 100)
	require.Equal(t, 40, reg.FullWidth)
	require.Equal(t, 36, reg.Width)
}

func TestNewRegistryConfigWidthUsedWhenNoOverride(t *testing.T) {
	cfg := defaultStyleConfig()
	cfg.Width = 60
	reg := NewRegistry(cfg, 0, 200)
	require.Equal(t, 60, reg.FullWidth)
}

func TestFGAndBGProduceTruecolorEscapes(t *testing.T) {
	reg := NewRegistry(defaultStyleConfig(), 0, 80)
	fg := reg.FG(Symbol)
	require.Contains(t, fg, "\x1b[38;2;")
	bg := reg.BG(Symbol)
	require.Contains(t, bg, "\x1b[48;2;")
}

func TestCodePadWidthMatchesFullWidth(t *testing.T) {
	reg := NewRegistry(defaultStyleConfig(), 40, 80)
	pad := reg.CodePad()
	// 40 glyphs plus escape codes and trailing reset/newline.
	require.Contains(t, pad[0], "▄▄▄")
	require.Contains(t, pad[1], "▀▀▀")
	require.Equal(t, 40, strings.Count(pad[0], "▄"))
	require.Equal(t, 40, strings.Count(pad[1], "▀"))
}

func TestMarginSpaces(t *testing.T) {
	reg := NewRegistry(defaultStyleConfig(), 0, 80)
	require.Equal(t, "  ", reg.MarginSpaces())
}
