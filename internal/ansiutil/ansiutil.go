// Package ansiutil provides the low-level ANSI/SGR helpers the rest of
// streamdown builds on: stripping escape sequences to measure visible
// width, extracting the SGR codes embedded in a string, and collapsing a
// style preamble so wrapped lines don't accumulate redundant codes.
package ansiutil

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
)

// csiOrOSC matches a CSI sequence (`ESC [ ... m|K`) or an OSC sequence
// (`ESC ] ... BEL|ESC\`), the same escape grammar the original
// implementation's ANSIESCAPE/KEYCODE_RE regexes cover.
var csiOrOSC = regexp.MustCompile("\x1b(?:\\[[0-9;]*[mK]|\\][^\x07\x1b]*(?:\x07|\x1b\\\\))")

// sgrCode matches one `ESC[...m` sequence so its parameter list can be
// split into individual codes.
var sgrCode = regexp.MustCompile(`\x1b\[([0-9;]*)m`)

// Visible strips every CSI/OSC escape sequence from s, leaving only the
// glyphs a terminal would actually render.
func Visible(s string) string {
	return csiOrOSC.ReplaceAllString(s, "")
}

// VisibleLength returns the character count (not byte length) of
// Visible(s), correct for multi-byte UTF-8 content.
func VisibleLength(s string) int {
	return len([]rune(Visible(s)))
}

// VisibleWidth returns the terminal column width of Visible(s), using
// east-asian-aware rune widths so CJK and emoji glyphs count correctly.
func VisibleWidth(s string) int {
	return runewidth.StringWidth(Visible(s))
}

// ExtractCodes returns the ordered sequence of SGR codes contained in s,
// including all codes from every `ESC[...m` sequence, each as the
// original decimal string (so "38;2;255;0;0" parses back to truecolor
// foregrounds without losing its sub-parameters).
func ExtractCodes(s string) []string {
	var codes []string
	for _, m := range sgrCode.FindAllStringSubmatch(s, -1) {
		codes = append(codes, splitSGRParams(m[1])...)
	}
	return codes
}

// splitSGRParams splits a raw SGR parameter list on `;`, re-joining the
// multi-part truecolor/256-color sequences (38/48;2;r;g;b or 38/48;5;n)
// back into a single code so each entry in the result is one complete,
// independently meaningful SGR code.
func splitSGRParams(raw string) []string {
	if raw == "" {
		return []string{"0"}
	}
	parts := strings.Split(raw, ";")
	var codes []string
	for i := 0; i < len(parts); i++ {
		p := parts[i]
		if p == "38" || p == "48" {
			if i+1 < len(parts) && parts[i+1] == "2" && i+4 < len(parts) {
				codes = append(codes, strings.Join(parts[i:i+5], ";"))
				i += 4
				continue
			}
			if i+1 < len(parts) && parts[i+1] == "5" && i+2 < len(parts) {
				codes = append(codes, strings.Join(parts[i:i+3], ";"))
				i += 2
				continue
			}
		}
		codes = append(codes, p)
	}
	return codes
}

// styleClass identifies the SGR "class" a code belongs to: codes in the
// same class are mutually exclusive, so a later one supersedes an
// earlier one in Collapse.
func styleClass(code string) string {
	switch {
	case code == "0":
		return "reset"
	case code == "1" || code == "21" || code == "22":
		return "bold"
	case code == "3" || code == "23":
		return "italic"
	case code == "4" || code == "24":
		return "underline"
	case code == "9" || code == "29":
		return "strike"
	case strings.HasPrefix(code, "38"):
		return "fg"
	case strings.HasPrefix(code, "48"):
		return "bg"
	case code == "39":
		return "fg"
	case code == "49":
		return "bg"
	case len(code) == 2 && code[0] == '3':
		return "fg"
	case len(code) == 2 && code[0] == '4':
		return "bg"
	default:
		return "other:" + code
	}
}

// Collapse merges the active style preamble (a sequence of SGR codes
// currently open at the start of a line) with a newly encountered
// sequence of codes, dropping any active code whose class is superseded
// by a code in new. A "0" full reset in new drops everything.
func Collapse(active []string, new []string) []string {
	classOf := make(map[string]string, len(active))
	order := make([]string, 0, len(active)+len(new))

	for _, c := range active {
		cls := styleClass(c)
		if _, ok := classOf[cls]; !ok {
			order = append(order, cls)
		}
		classOf[cls] = c
	}

	for _, c := range new {
		cls := styleClass(c)
		if cls == "reset" {
			classOf = map[string]string{}
			order = order[:0]
			continue
		}
		if _, ok := classOf[cls]; !ok {
			order = append(order, cls)
		}
		classOf[cls] = c
	}

	result := make([]string, 0, len(order))
	for _, cls := range order {
		result = append(result, classOf[cls])
	}
	return result
}

// Render turns a sequence of SGR codes into one `ESC[...m` escape
// sequence, or the empty string if codes is empty.
func Render(codes []string) string {
	if len(codes) == 0 {
		return ""
	}
	return "\x1b[" + strings.Join(codes, ";") + "m"
}

// StripKeystrokes removes the bracketed-paste/cursor-report escape
// sequences a PTY-attached child may echo back, distinct from the
// SGR/OSC styling sequences Visible strips.
func StripKeystrokes(s string) string {
	return keystrokeRE.ReplaceAllString(s, "")
}

var keystrokeRE = regexp.MustCompile(`\x1b(?:[@-Z\\-_]|\[[0-?]*[ -/]*[@-~])`)

// ParseSGRInt parses a single SGR code's leading integer, returning 0 for
// malformed or empty input (equivalent to the bare reset code).
func ParseSGRInt(code string) int {
	n, err := strconv.Atoi(strings.SplitN(code, ";", 2)[0])
	if err != nil {
		return 0
	}
	return n
}
