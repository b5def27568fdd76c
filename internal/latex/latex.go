// Package latex implements the narrow LaTeX-to-unicode plugin interface
// described in spec.md §6: given a line, it returns Unhandled (the line
// isn't LaTeX, the caller continues normal processing), Consumed (the
// plugin fully handled the line, emit nothing further), or Replaced with
// Chunks (a sequence of replacement output to yield in the plugin's place).
package latex

import (
	"regexp"
	"strings"
)

// Outcome classifies what a Plugin did with a line.
type Outcome int

const (
	Unhandled Outcome = iota
	Consumed
	Replaced
)

// Result is a Plugin's verdict for one line.
type Result struct {
	Outcome Outcome
	Chunks  []string
}

// Plugin transforms LaTeX math spans into their closest unicode rendering.
type Plugin interface {
	Process(line string) Result
}

// UnicodePlugin is a minimal, dependency-free LaTeX-to-unicode converter:
// it recognizes `$$...$$` and `$...$` math spans and substitutes the
// common greek letters, sub/superscripts, and operators pylatexenc's
// unicode renderer covers, leaving anything it doesn't recognize as the
// literal source with the delimiters stripped. No ecosystem LaTeX-to-
// unicode library was found in the retrieval pack (the pack's LaTeX
// dependencies all convert the opposite direction, Markdown into LaTeX),
// so this stays on the standard library — see DESIGN.md.
type UnicodePlugin struct{}

// NewUnicodePlugin returns the default plugin.
func NewUnicodePlugin() *UnicodePlugin { return &UnicodePlugin{} }

var mathSpanRe = regexp.MustCompile(`\$\$([^$]+)\$\$|\$([^$]+)\$`)

// Process rewrites every math span in line to its unicode approximation.
// It always returns Replaced (never Consumed: a line can contain prose
// around its math spans) unless line has no math span at all, in which
// case it returns Unhandled so the caller's normal inline formatting
// proceeds untouched.
func (p *UnicodePlugin) Process(line string) Result {
	if !mathSpanRe.MatchString(line) {
		return Result{Outcome: Unhandled}
	}
	out := mathSpanRe.ReplaceAllStringFunc(line, func(m string) string {
		sub := mathSpanRe.FindStringSubmatch(m)
		body := sub[1]
		if body == "" {
			body = sub[2]
		}
		return toUnicode(body)
	})
	return Result{Outcome: Replaced, Chunks: []string{out}}
}

// toUnicode substitutes the common LaTeX math macros and symbols for
// their unicode equivalents; anything unrecognized passes through
// unchanged, matching the original implementation's "best effort"
// substitution rather than full LaTeX parsing.
func toUnicode(body string) string {
	body = superscriptRe.ReplaceAllStringFunc(body, func(m string) string {
		sub := superscriptRe.FindStringSubmatch(m)
		return toScript(firstNonEmpty(sub[1], sub[2]), superscripts)
	})
	body = subscriptRe.ReplaceAllStringFunc(body, func(m string) string {
		sub := subscriptRe.FindStringSubmatch(m)
		return toScript(firstNonEmpty(sub[1], sub[2]), subscripts)
	})
	for macro, glyph := range macros {
		body = strings.ReplaceAll(body, macro, glyph)
	}
	return strings.TrimSpace(body)
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func toScript(s string, table map[rune]rune) string {
	var b strings.Builder
	for _, r := range s {
		if g, ok := table[r]; ok {
			b.WriteRune(g)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var (
	superscriptRe = regexp.MustCompile(`\^\{([^}]+)\}|\^(\w)`)
	subscriptRe   = regexp.MustCompile(`_\{([^}]+)\}|_(\w)`)

	superscripts = map[rune]rune{
		'0': '⁰', '1': '¹', '2': '²', '3': '³', '4': '⁴', '5': '⁵', '6': '⁶', '7': '⁷', '8': '⁸', '9': '⁹',
		'+': '⁺', '-': '⁻', '=': '⁼', 'n': 'ⁿ', 'i': 'ⁱ',
	}
	subscripts = map[rune]rune{
		'0': '₀', '1': '₁', '2': '₂', '3': '₃', '4': '₄', '5': '₅', '6': '₆', '7': '₇', '8': '₈', '9': '₉',
		'+': '₊', '-': '₋', '=': '₌',
	}

	macros = map[string]string{
		`\alpha`: "α", `\beta`: "β", `\gamma`: "γ", `\delta`: "δ", `\epsilon`: "ε",
		`\theta`: "θ", `\lambda`: "λ", `\mu`: "μ", `\pi`: "π", `\sigma`: "σ",
		`\phi`: "φ", `\omega`: "ω", `\Delta`: "Δ", `\Sigma`: "Σ", `\Omega`: "Ω",
		`\infty`: "∞", `\sum`: "∑", `\int`: "∫", `\sqrt`: "√", `\times`: "×",
		`\div`: "÷", `\leq`: "≤", `\geq`: "≥", `\neq`: "≠", `\approx`: "≈",
		`\pm`: "±", `\rightarrow`: "→", `\leftarrow`: "←", `\cdot`: "·",
	}
)
