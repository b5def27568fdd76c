// Package style derives the six terminal color roles streamdown paints
// with from a single base HSV triple, the same apply_multipliers scheme
// the original implementation uses: each role multiplies the base H/S/V
// by a fixed per-role factor, clamps each component to 1.0, and converts
// to RGB for a truecolor SGR sequence.
package style

import (
	"fmt"
	"math"

	"github.com/kristopolous/streamdown/internal/config"
)

// Role names one of the six derived colors.
type Role int

const (
	Dark Role = iota
	Mid
	Symbol
	Head
	Grey
	Bright
)

// RGB is a truecolor triple in the 0-255 range.
type RGB struct {
	R, G, B uint8
}

// Registry holds the resolved RGB value for every role plus the layout
// constants (Margin, ListIndent, Width, PrettyPad, Syntax) a render
// session needs. It is built once per session from the config and any
// `-c`/`-w` CLI overrides, then passed explicitly to every package that
// paints output, per the core's "no global singleton" design.
type Registry struct {
	Colors     map[Role]RGB
	Margin     int
	ListIndent int
	PrettyPad  bool
	FullWidth  int
	Width      int
	Syntax     string
}

// multiplier is the per-role H/S/V scale factor, sourced from
// config.Style's Dark/Mid/Symbol/Head/Grey/Bright fields.
type multiplier struct {
	h, s, v float64
}

// NewRegistry builds the color-role registry from the base HSV triple
// (cfg.HSV, which cmd replaces when `-c` is given) and the resolved Style
// config, clamping the terminal width the same way main() computes
// state.FullWidth/state.Width: an explicit widthOverride of 0 falls back
// to cfg.Width, and a cfg.Width of 0 falls back to termWidth.
func NewRegistry(cfg config.Style, widthOverride int, termWidth int) Registry {
	h, s, v := cfg.HSV[0], cfg.HSV[1], cfg.HSV[2]

	mults := map[Role]multiplier{
		Dark:   {cfg.Dark.H, cfg.Dark.S, cfg.Dark.V},
		Mid:    {cfg.Mid.H, cfg.Mid.S, cfg.Mid.V},
		Symbol: {cfg.Symbol.H, cfg.Symbol.S, cfg.Symbol.V},
		Head:   {cfg.Head.H, cfg.Head.S, cfg.Head.V},
		Grey:   {cfg.Grey.H, cfg.Grey.S, cfg.Grey.V},
		Bright: {cfg.Bright.H, cfg.Bright.S, cfg.Bright.V},
	}

	colors := make(map[Role]RGB, len(mults))
	for role, m := range mults {
		colors[role] = applyMultiplier(h, s, v, m)
	}

	fullWidth := widthOverride
	if fullWidth == 0 {
		fullWidth = cfg.Width
	}
	if fullWidth == 0 {
		fullWidth = termWidth
	}

	return Registry{
		Colors:     colors,
		Margin:     cfg.Margin,
		ListIndent: cfg.ListIndent,
		PrettyPad:  cfg.PrettyPad,
		FullWidth:  fullWidth,
		Width:      fullWidth - 2*cfg.Margin,
		Syntax:     cfg.Syntax,
	}
}

// applyMultiplier mirrors apply_multipliers: scale each HSV component by
// the role's multiplier, clamp to 1.0, and convert to RGB.
func applyMultiplier(h, s, v float64, m multiplier) RGB {
	hh := math.Min(1.0, h*m.h)
	ss := math.Min(1.0, s*m.s)
	vv := math.Min(1.0, v*m.v)
	r, g, b := hsvToRGB(hh, ss, vv)
	return RGB{R: r, G: g, B: b}
}

// hsvToRGB converts an HSV triple (each in [0,1]) to 8-bit RGB, the same
// conversion colorsys.hsv_to_rgb performs.
func hsvToRGB(h, s, v float64) (uint8, uint8, uint8) {
	if s == 0 {
		c := uint8(clampByte(v * 255))
		return c, c, c
	}
	i := math.Floor(h * 6)
	f := h*6 - i
	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))

	var r, g, b float64
	switch int(i) % 6 {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	case 5:
		r, g, b = v, p, q
	}
	return uint8(clampByte(r * 255)), uint8(clampByte(g * 255)), uint8(clampByte(b * 255))
}

func clampByte(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 255 {
		return 255
	}
	return x
}

// FG returns the truecolor foreground SGR escape for role.
func (r Registry) FG(role Role) string {
	c := r.Colors[role]
	return fmt.Sprintf("\x1b[38;2;%d;%d;%dm", c.R, c.G, c.B)
}

// BG returns the truecolor background SGR escape for role.
func (r Registry) BG(role Role) string {
	c := r.Colors[role]
	return fmt.Sprintf("\x1b[48;2;%d;%d;%dm", c.R, c.G, c.B)
}

// Link returns the escape sequence used to open a hyperlink label:
// Symbol-colored, underlined.
func (r Registry) Link() string {
	return r.FG(Symbol) + "\x1b[4m"
}

// Blockquote returns the prefix painted before every blockquote line:
// a Grey left-bar glyph.
func (r Registry) Blockquote() string {
	return r.FG(Grey) + " ▎ "
}

// CodePad returns the top/bottom filled border lines PrettyPad draws
// around a code block, each FullWidth columns wide.
func (r Registry) CodePad() [2]string {
	top := "\x1b[0m" + r.FG(Dark) + barLine(r.FullWidth, '▄') + "\x1b[0m\n"
	bottom := "\x1b[0m" + r.FG(Dark) + barLine(r.FullWidth, '▀') + "\x1b[0m"
	return [2]string{top, bottom}
}

func barLine(width int, glyph rune) string {
	if width <= 0 {
		return ""
	}
	runes := make([]rune, width)
	for i := range runes {
		runes[i] = glyph
	}
	return string(runes)
}

// MarginSpaces returns Margin worth of leading space padding, the
// MARGIN_SPACES constant recomputed per registry.
func (r Registry) MarginSpaces() string {
	return barLine(r.Margin, ' ')
}
