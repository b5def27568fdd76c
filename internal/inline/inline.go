// Package inline implements the one-line inline formatter (C2): emphasis,
// inline code, links, images, and footnote references, tokenized in a
// single left-to-right pass with open-style registers that persist across
// calls to Format so a paragraph's bold/italic/underline/strike state
// survives a line wrap.
package inline

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	boldOpen       = "\x1b[1m"
	boldClose      = "\x1b[22m"
	italicOpen     = "\x1b[3m"
	italicClose    = "\x1b[23m"
	underlineOpen  = "\x1b[4m"
	underlineClose = "\x1b[24m"
	strikeOpen     = "\x1b[9m"
	strikeClose    = "\x1b[29m"
)

// ImageRenderer resolves an image reference to its terminal-protocol
// escape sequence, returning ok=false (and the caller substitutes the raw
// URL) when the image can't be rendered — a missing capability, a fetch
// failure, or an unsupported format.
type ImageRenderer func(ref string) (string, bool)

// Registers holds the cross-line open-style state the block state machine
// keeps per paragraph: once a style is opened it must be reasserted at the
// top of every wrapped continuation line (C3's job) and closed explicitly
// before the registers are considered clean again.
type Registers struct {
	Bold          bool
	Italic        bool
	Underline     bool
	Strike        bool
	InlineCode    bool
	codeDelimiter string
}

// Reset clears every open register, used when a code block starts and
// when the stream ends.
func (r *Registers) Reset() {
	*r = Registers{}
}

var (
	imageRe    = regexp.MustCompile(`!\[([^\]]*)\]\(([^)]+)\)`)
	linkRe     = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	footnoteRe = regexp.MustCompile(`\[\^(\d+)\](:)?`)

	// tokenRe's alternation is ordered longest-first because Go's RE2
	// engine takes the first alternative that matches, not the longest.
	tokenRe = regexp.MustCompile("~~|\\*\\*_|_\\*\\*|\\*\\*\\*|___|\\*\\*|__|\\*|_|`+|[^~*_`]+")

	superscriptDigits = map[rune]rune{
		'0': '⁰', '1': '¹', '2': '²', '3': '³', '4': '⁴',
		'5': '⁵', '6': '⁶', '7': '⁷', '8': '⁸', '9': '⁹',
	}
)

// Format applies the C2 pipeline to one logical line: image refs, link
// refs, footnote refs, then the emphasis/inline-code tokenizer. linkStyle
// opens a link label, midBG is the escape sequence Registers.InlineCode
// switches the background to (Style.Mid), and ambientBG is the background
// to restore on close (Style.Dark inside a blockquote, or the plain
// background reset otherwise).
func Format(line string, reg *Registers, linkStyle, midBG, ambientBG string, renderImage ImageRenderer) string {
	line = replaceImages(line, renderImage)
	line = replaceLinks(line, linkStyle)
	line = replaceFootnotes(line)
	return tokenize(line, reg, midBG, ambientBG)
}

func replaceImages(line string, renderImage ImageRenderer) string {
	return imageRe.ReplaceAllStringFunc(line, func(m string) string {
		sub := imageRe.FindStringSubmatch(m)
		url := sub[2]
		if renderImage != nil {
			if out, ok := renderImage(url); ok {
				return out
			}
		}
		return url
	})
}

func replaceLinks(line, linkStyle string) string {
	return linkRe.ReplaceAllStringFunc(line, func(m string) string {
		sub := linkRe.FindStringSubmatch(m)
		text, url := sub[1], sub[2]
		return "\x1b]8;;" + url + "\x1b\\" + linkStyle + text + underlineClose + "\x1b]8;;\x1b\\"
	})
}

func replaceFootnotes(line string) string {
	return footnoteRe.ReplaceAllStringFunc(line, func(m string) string {
		sub := footnoteRe.FindStringSubmatch(m)
		var sup strings.Builder
		for _, d := range sub[1] {
			sup.WriteRune(superscriptDigits[d])
		}
		return sup.String()
	})
}

// tokenize runs the emphasis/inline-code scanner described in spec.md
// §4.2: a single pass over delimiter tokens and plain-text runs, toggling
// reg's registers and emitting the matching SGR escape on each open/close.
func tokenize(line string, reg *Registers, midBG, ambientBG string) string {
	matches := tokenRe.FindAllStringIndex(line, -1)
	var out strings.Builder
	prevToken := ""

	for _, m := range matches {
		token := line[m[0]:m[1]]
		var next rune
		if m[1] < len(line) {
			next, _ = utf8.DecodeRuneInString(line[m[1]:])
		}
		boundary := !isAlnum(lastRune(prevToken))

		switch {
		case strings.HasPrefix(token, "`"):
			if !reg.InlineCode {
				reg.InlineCode = true
				reg.codeDelimiter = token
				out.WriteString(midBG)
			} else if token == reg.codeDelimiter {
				reg.InlineCode = false
				reg.codeDelimiter = ""
				out.WriteString(ambientBG)
			} else {
				out.WriteString(token)
			}

		case reg.InlineCode:
			out.WriteString(token)

		case token == "~~":
			if reg.Strike || boundary {
				reg.Strike = !reg.Strike
				out.WriteString(toggle(reg.Strike, strikeOpen, strikeClose))
			} else {
				out.WriteString(token)
			}

		case token == "***" || token == "___" || token == "**_" || token == "_**":
			reg.Bold = !reg.Bold
			reg.Italic = !reg.Italic
			out.WriteString(toggle(reg.Bold, boldOpen, boldClose))
			out.WriteString(toggle(reg.Italic, italicOpen, italicClose))

		case token == "**" || token == "__":
			if reg.Bold || boundary {
				reg.Bold = !reg.Bold
				out.WriteString(toggle(reg.Bold, boldOpen, boldClose))
			} else {
				out.WriteString(token)
			}

		case token == "*":
			if reg.Italic || (boundary && next != ' ' && next != 0) {
				reg.Italic = !reg.Italic
				out.WriteString(toggle(reg.Italic, italicOpen, italicClose))
			} else {
				out.WriteString(token)
			}

		case token == "_":
			if reg.Underline || (boundary && isAlnum(next)) {
				reg.Underline = !reg.Underline
				out.WriteString(toggle(reg.Underline, underlineOpen, underlineClose))
			} else {
				out.WriteString(token)
			}

		default:
			out.WriteString(token)
		}

		prevToken = token
	}

	return out.String()
}

func toggle(open bool, onSeq, offSeq string) string {
	if open {
		return onSeq
	}
	return offSeq
}

func lastRune(s string) rune {
	if s == "" {
		return 0
	}
	r := []rune(s)
	return r[len(r)-1]
}

func isAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
