// Package wrap implements the visible-width word-wrapper and table
// layouter (C3): wrapping that preserves and re-applies the active SGR
// style on every wrapped line, and the table cell-grid renderer built on
// top of it.
package wrap

import (
	"fmt"
	"strings"

	"github.com/kristopolous/streamdown/internal/ansiutil"
	"github.com/kristopolous/streamdown/internal/style"
)

// Text wraps an already inline-formatted string (SGR codes already
// embedded by internal/inline) to width columns. firstPrefix is prepended
// to the first produced line, subsequentPrefix to every later line;
// indent is extra left-padding applied to every continuation line before
// any carried-over style codes. Active SGR codes spotted in consumed
// words are collapsed (per internal/ansiutil.Collapse) and re-emitted at
// the top of every continuation line so a style opened mid-paragraph
// survives the wrap.
func Text(text string, width, indent int, firstPrefix, subsequentPrefix string) []string {
	if width <= 0 {
		width = 1
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	words = append(words, "")

	var lines []string
	var activeCodes []string
	currentLine := ""

	flush := func() {
		prefix := firstPrefix
		if len(lines) > 0 {
			prefix = subsequentPrefix
		}
		lineContent := prefix + currentLine
		margin := width - ansiutil.VisibleLength(lineContent)
		if margin < 0 {
			margin = 0
		}
		lines = append(lines, lineContent+strings.Repeat(" ", margin)+"\x1b[0m")
	}

	for _, word := range words {
		if codes := ansiutil.ExtractCodes(word); len(codes) > 0 {
			activeCodes = ansiutil.Collapse(activeCodes, codes)
		}

		fits := word != "" && ansiutil.VisibleLength(currentLine)+ansiutil.VisibleLength(word)+1 <= width
		if fits {
			if currentLine == "" {
				currentLine = word
			} else {
				currentLine += " " + word
			}
			continue
		}

		flush()
		currentLine = strings.Repeat(" ", indent) + ansiutil.Render(activeCodes) + word
	}

	if len(lines) == 0 {
		return nil
	}

	result := make([]string, len(lines))
	result[0] = lines[0]
	carried := ansiutil.Render(activeCodes)
	for i := 1; i < len(lines); i++ {
		result[i] = carried + lines[i]
	}
	return result
}

// FormatTable lays out one table row of cell strings into one or more
// screen lines: each cell is wrapped to the shared column width, the row
// height is the tallest wrapped cell, and every sub-row is joined with a
// Symbol-colored `│`. Header rows paint a Mid background; body rows paint
// Dark; a body row's last sub-row additionally carries an underlined
// bottom accent in the Mid color to separate visually-adjacent rows.
func FormatTable(cells []string, reg style.Registry, isHeader bool) []string {
	numCols := len(cells)
	if numCols == 0 {
		return nil
	}
	available := reg.Width - (numCols + 1)
	colWidth := available / numCols
	if colWidth < 1 {
		colWidth = 1
	}

	bgRole := style.Dark
	if isHeader {
		bgRole = style.Mid
	}

	wrapped := make([][]string, numCols)
	rowHeight := 0
	for i, cell := range cells {
		lines := Text(cell, colWidth, 0, "", "")
		if len(lines) == 0 {
			lines = []string{""}
		}
		wrapped[i] = lines
		if len(lines) > rowHeight {
			rowHeight = len(lines)
		}
	}

	mid := reg.Colors[style.Mid]
	accent := fmt.Sprintf("\x1b[4;58;2;%d;%d;%dm", mid.R, mid.G, mid.B)
	sep := reg.BG(bgRole) + reg.FG(style.Symbol) + "│" + "\x1b[0m"

	var out []string
	for ix := 0; ix < rowHeight; ix++ {
		extra := ""
		if !isHeader && ix == rowHeight-1 {
			extra = accent
		}

		segments := make([]string, numCols)
		for i, lines := range wrapped {
			seg := ""
			if ix < len(lines) {
				seg = lines[ix]
			}
			margin := colWidth - ansiutil.VisibleLength(seg)
			if margin < 0 {
				margin = 0
			}
			segments[i] = reg.BG(bgRole) + extra + " " + seg + strings.Repeat(" ", margin)
		}

		joined := strings.Join(segments, reg.BG(bgRole)+extra+sep)
		out = append(out, reg.MarginSpaces()+joined+"\x1b[0m")
	}
	return out
}

// IsTableSeparator reports whether line is a Markdown table header
// separator row (`^[\s|:-]+$`), silently absorbed when transitioning
// from TableHeader to TableBody.
func IsTableSeparator(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	for _, r := range trimmed {
		switch r {
		case '|', ':', '-', ' ', '\t':
		default:
			return false
		}
	}
	return true
}
