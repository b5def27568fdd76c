// Package highlight bridges the block renderer to chroma, re-tokenizing
// the whole accumulated code buffer on every call the way the original
// implementation calls pygments.highlight(code_buffer + new_line, ...)
// from scratch each time; internal/codeblock is responsible for diffing
// successive outputs into a stable streamed prefix.
package highlight

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// fallbackLanguage is used when the fenced code block's info string names
// a language chroma doesn't recognize, matching the original's
// `except pygments.util.ClassNotFound: lexer = get_lexer_by_name("Bash")`.
const fallbackLanguage = "bash"

// Highlighter tokenizes source in one language against one chroma style.
type Highlighter struct {
	lexer chroma.Lexer
	style *chroma.Style
}

// New resolves a lexer for language (falling back to bash) and a style by
// name (falling back to chroma's built-in default), mirroring the
// original's try/except around get_lexer_by_name/get_style_by_name. Either
// fallback is logged at Warn (spec.md §7); logger may be nil to disable
// logging.
func New(language, styleName string, logger *slog.Logger) *Highlighter {
	lexer := lexers.Get(language)
	if lexer == nil {
		if logger != nil {
			logger.Warn("unknown code language, falling back", "language", language, "fallback", fallbackLanguage)
		}
		lexer = lexers.Get(fallbackLanguage)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := styles.Get(styleName)
	if _, known := styles.Registry[styleName]; !known {
		if logger != nil {
			logger.Warn("unknown chroma style, falling back to default", "style", styleName)
		}
		style = styles.Fallback
	}

	return &Highlighter{lexer: lexer, style: style}
}

// Filenames returns the lexer's registered filename glob patterns, used
// by internal/codeblock to pick an extension for the `-s` scrape feature
// (`get_lexer_by_name(lang).filenames[0].split('.')[-1]` in the original).
func (h *Highlighter) Filenames() []string {
	return h.lexer.Config().Filenames
}

// Highlight tokenizes source and renders it as a truecolor ANSI string
// with one SGR span per token, resetting after every span so callers can
// safely slice/truncate the result byte-for-byte without splitting an
// open escape sequence across a boundary.
func (h *Highlighter) Highlight(source string) (string, error) {
	iterator, err := h.lexer.Tokenise(nil, source)
	if err != nil {
		return "", fmt.Errorf("tokenize: %w", err)
	}

	var buf strings.Builder
	for token := iterator(); token != chroma.EOF; token = iterator() {
		if token.Value == "" {
			continue
		}
		writeToken(&buf, h.style, token)
	}
	return buf.String(), nil
}

func writeToken(buf *strings.Builder, style *chroma.Style, token chroma.Token) {
	entry := style.Get(token.Type)

	var codes []string
	if entry.Colour.IsSet() {
		codes = append(codes, fmt.Sprintf("38;2;%d;%d;%d", entry.Colour.Red(), entry.Colour.Green(), entry.Colour.Blue()))
	}
	if entry.Bold == chroma.Yes {
		codes = append(codes, "1")
	}
	if entry.Italic == chroma.Yes {
		codes = append(codes, "3")
	}
	if entry.Underline == chroma.Yes {
		codes = append(codes, "4")
	}

	if len(codes) == 0 {
		buf.WriteString(token.Value)
		return
	}
	fmt.Fprintf(buf, "\x1b[%sm%s\x1b[0m", strings.Join(codes, ";"), token.Value)
}
