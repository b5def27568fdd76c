// Package codeblock implements the streaming code-block highlighter (C4):
// as each new line of fenced or indented code arrives, it re-tokenizes the
// whole accumulated buffer and emits only the portion of the highlighted
// output that wasn't already emitted, so syntax highlighting stays stable
// even though later tokens (a closing string quote, say) can retroactively
// change how earlier bytes were colored.
package codeblock

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/kristopolous/streamdown/internal/ansiutil"
	"github.com/kristopolous/streamdown/internal/highlight"
	"github.com/kristopolous/streamdown/internal/style"
)

const (
	reset   = "\x1b[0m"
	bgReset = "\x1b[49m"
	fgReset = "\x1b[39m"
)

// Streamer accumulates one fenced or indented code block's raw source and
// emits incrementally-highlighted, background-filled, margin-padded lines.
type Streamer struct {
	highlighter *highlight.Highlighter
	reg         style.Registry

	language  string
	buffer    []rune // code_buffer: raw source highlighted so far, used as highlighting context
	genLen    int    // code_gen: rune length of the last highlighted render
	indent    int    // code_indent: leading-space width stripped from every line
	firstLine bool

	raw strings.Builder // full raw text, kept for the scrape feature
}

// NewStreamer starts a code block in language, highlighted with the named
// chroma style and laid out against reg's full width. logger may be nil
// to disable the highlighter-fallback warning (spec.md §7).
func NewStreamer(language, styleName string, reg style.Registry, logger *slog.Logger) *Streamer {
	if language == "" {
		language = "bash"
	}
	return &Streamer{
		highlighter: highlight.New(language, styleName, logger),
		reg:         reg,
		language:    language,
		firstLine:   true,
	}
}

// FeedLine strips the detected code indent from line, splits it into
// FullWidth-wide segments (by character count, not at word boundaries),
// and returns one rendered, background-filled chunk per segment.
func (s *Streamer) FeedLine(line string) []string {
	s.raw.WriteString(line)

	if s.firstLine {
		s.firstLine = false
		s.indent = leadingSpaces(line)
		line = line[min(s.indent, len(line)):]
	} else if strings.HasPrefix(line, strings.Repeat(" ", s.indent)) {
		line = line[s.indent:]
	}

	indent, segments := codeWrap(line, s.reg.FullWidth)

	chunks := make([]string, 0, len(segments))
	for _, seg := range segments {
		chunks = append(chunks, s.renderSegment(indent, seg))
	}
	return chunks
}

// renderSegment re-highlights the whole accumulated buffer plus seg, then
// extracts only the stable new suffix of the highlighted output: earlier
// tokens can change color as later context arrives (a closing quote, a
// completed keyword), so genLen tracks rune-length watermark rather than a
// byte offset into the raw source.
func (s *Streamer) renderSegment(indent int, seg string) string {
	segRunes := []rune(seg)
	candidate := append(append([]rune{}, s.buffer...), segRunes...)

	highlighted, err := s.highlighter.Highlight(string(candidate))
	if err != nil {
		highlighted = string(candidate)
	}
	highlighted = strings.TrimSuffix(highlighted, reset+"\n")
	highlightedRunes := []rune(highlighted)

	visLen := ansiutil.VisibleLength(strings.TrimLeft(string(s.buffer), " \t\n"))

	delta := 0
	for s.genLen-delta > 0 && ansiutil.VisibleLength(string(highlightedRunes[:clampIndex(s.genLen-delta, len(highlightedRunes))])) > visLen {
		delta++
	}

	start := clampIndex(s.genLen-delta, len(highlightedRunes))
	batch := string(highlightedRunes[start:])
	batch = strings.TrimPrefix(batch, reset)
	batch = strings.TrimPrefix(batch, fgReset)

	s.buffer = candidate
	s.genLen = len(highlightedRunes)

	codeLine := strings.Repeat(" ", indent) + strings.TrimSpace(batch)
	margin := s.reg.FullWidth - ansiutil.VisibleLength(codeLine)
	if margin < 0 {
		margin = 0
	}
	return s.reg.BG(style.Dark) + codeLine + strings.Repeat(" ", margin) + bgReset
}

// Raw returns the block's accumulated raw source, used by internal/block
// to remember the last code block's contents for the Clipboard feature.
func (s *Streamer) Raw() string {
	return s.raw.String()
}

// Scrape writes the block's raw source to dir/file_<index>.<ext>, picking
// ext from the lexer's registered filenames (falling back to "sh"), the
// same resolution the `-s` flag's original implementation performs.
func (s *Streamer) Scrape(dir string, index int) error {
	ext := "sh"
	if names := s.highlighter.Filenames(); len(names) > 0 {
		if dot := strings.LastIndex(names[0], "."); dot >= 0 {
			ext = names[0][dot+1:]
		}
	}
	path := filepath.Join(dir, fmt.Sprintf("file_%d.%s", index, ext))
	return os.WriteFile(path, []byte(s.raw.String()), 0o644)
}

// codeWrap splits text into FullWidth-wide (minus the text's own leading
// indent) segments, preserving an empty line as a single empty segment.
func codeWrap(textIn string, fullWidth int) (int, []string) {
	trimmed := strings.TrimLeft(textIn, " ")
	indent := len([]rune(textIn)) - len([]rune(trimmed))

	width := fullWidth - indent
	if width <= 0 {
		width = 1
	}

	runes := []rune(trimmed)
	if len(runes) == 0 {
		return 0, []string{textIn}
	}

	var segments []string
	for i := 0; i < len(runes); i += width {
		end := i + width
		if end > len(runes) {
			end = len(runes)
		}
		segments = append(segments, string(runes[i:end]))
	}
	return indent, segments
}

func leadingSpaces(s string) int {
	n := 0
	for _, r := range s {
		if r != ' ' {
			break
		}
		n++
	}
	return n
}

func clampIndex(i, max int) int {
	if i < 0 {
		return 0
	}
	if i > max {
		return max
	}
	return i
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
