// Package block implements the line-dispatched block state machine (C5):
// the per-line recognizer that classifies each incoming line as a heading,
// horizontal rule, list item, table row, code fence, block-quote, or
// paragraph and renders it, delegating to internal/inline, internal/wrap,
// internal/codeblock, and internal/latex as each classification requires.
package block

import (
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/kristopolous/streamdown/internal/ansiutil"
	"github.com/kristopolous/streamdown/internal/codeblock"
	"github.com/kristopolous/streamdown/internal/inline"
	"github.com/kristopolous/streamdown/internal/latex"
	"github.com/kristopolous/streamdown/internal/style"
	"github.com/kristopolous/streamdown/internal/wrap"
)

// Flag signals a deferred effect the caller (internal/stream, C6) must
// apply to its one-chunk look-ahead buffer.
type Flag int

const (
	// FlagNone: commit the chunk as-is.
	FlagNone Flag = iota
	// FlagFlush: drain the look-ahead buffer as a single chunk without
	// adding a trailing newline. Raised on fenced/indented code-block
	// exit, since nothing before a closed code block is still eligible
	// for setext promotion.
	FlagFlush
	// FlagPromoteH1: rewrite the previously buffered chunk into a level-1
	// setext heading instead of emitting this (blank) line.
	FlagPromoteH1
	// FlagPromoteH2: same, level 2.
	FlagPromoteH2
)

// Chunk is one unit of output C5 yields; C6 is responsible for newline
// normalization and applying Flag to its look-ahead buffer.
type Chunk struct {
	Text string
	Flag Flag
}

type tableMode int

const (
	tableNone tableMode = iota
	tableHeader
	tableBody
)

type codeMode int

const (
	codeNone codeMode = iota
	codeBacktick
	codeSpaces
)

type listItem struct {
	indent int
	kind   string // "bullet" | "number"
}

var (
	thinkRe     = regexp.MustCompile(`^(<think>|</think>)$`)
	quoteRe     = regexp.MustCompile(`^(>\s*)+`)
	pipeRowRe   = regexp.MustCompile(`^\s*\|.+\|\s*$`)
	listRe      = regexp.MustCompile(`^(\s*)([+*\-]|\+\-+|\d+\.)\s+(.*)`)
	headingRe   = regexp.MustCompile(`^\s*(#{1,6})\s+(.*)`)
	hrRe        = regexp.MustCompile(`^\s*([-=_*]){3,}\s*$`)
	fenceOpenRe = regexp.MustCompile("^\\s*```\\s*([^\\s]*)")
	spacesCodeRe = regexp.MustCompile(`^    \s*[^\s*]`)
)

// Machine holds the per-session parse state described in spec.md §3.
type Machine struct {
	reg         style.Registry
	latexPlugin latex.Plugin
	renderImage inline.ImageRenderer
	logger      *slog.Logger

	inlineReg inline.Registers

	blockDepth  int
	inThink     bool
	lastLineEmpty bool
	firstIndentSet bool
	firstIndent int

	inList          bool
	listStack       []listItem
	orderedCounters []int

	table tableMode

	codeMode     codeMode
	codeStreamer *codeblock.Streamer
	codeIndent   int

	scrapeDir   string
	scrapeIndex int

	// LastCodeBlock holds the most recently closed code block's raw
	// source, used by the Clipboard feature on exit.
	LastCodeBlock string
}

// New builds a Machine for one render session. logger receives the
// highlighter-fallback, indentation-decrease, and malformed-table-separator
// warnings spec.md §7 catalogs; a nil logger disables them.
func New(reg style.Registry, scrapeDir string, renderImage inline.ImageRenderer, plugin latex.Plugin, logger *slog.Logger) *Machine {
	if plugin == nil {
		plugin = latex.NewUnicodePlugin()
	}
	return &Machine{reg: reg, scrapeDir: scrapeDir, renderImage: renderImage, latexPlugin: plugin, logger: logger}
}

func (m *Machine) warn(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Warn(msg, args...)
	}
}

// spaceLeft returns the margin (at line start) or block-quote gutter
// prefix that precedes every emitted visual line.
func (m *Machine) spaceLeft(atLineStart bool) string {
	prefix := ""
	if atLineStart {
		prefix = m.reg.MarginSpaces()
	}
	if m.blockDepth > 0 {
		prefix += strings.Repeat(m.reg.Blockquote(), m.blockDepth)
	}
	return prefix
}

// ProcessLine dispatches one complete logical line (no trailing newline
// required) through the block recognizer, in the priority order of
// spec.md §4.5, and returns the chunks it produced.
func (m *Machine) ProcessLine(line string) []Chunk {
	// 0. LaTeX plugin gets first look at every line.
	if m.codeMode == codeNone {
		switch res := m.latexPlugin.Process(line); res.Outcome {
		case latex.Consumed:
			return nil
		case latex.Replaced:
			line = res.Chunks[0]
		}
	}

	// 1. Block-quote / think marker.
	if thinkRe.MatchString(strings.TrimSpace(line)) {
		m.inThink = !m.inThink
		if m.inThink {
			m.blockDepth++
		} else {
			m.blockDepth--
			if m.blockDepth < 0 {
				m.blockDepth = 0
			}
			return []Chunk{{Text: "\x1b[0m"}}
		}
		return nil
	}
	if loc := quoteRe.FindString(line); loc != "" && m.codeMode == codeNone {
		m.blockDepth = strings.Count(loc, ">")
		line = line[len(loc):]
	}

	// 2. Empty-line collapse (outside code).
	if m.codeMode == codeNone {
		if strings.TrimSpace(line) == "" {
			if m.lastLineEmpty {
				return nil
			}
			m.lastLineEmpty = true
			return []Chunk{{Text: m.spaceLeft(true)}}
		}
	}
	wasLastLineEmpty := m.lastLineEmpty
	if m.codeMode == codeNone {
		m.lastLineEmpty = false
	}

	// 3. List-bullet reset.
	if !m.inList && len(m.orderedCounters) > 0 {
		m.orderedCounters[0] = 0
	} else {
		m.inList = false
	}

	// First-line indent stripping.
	if m.codeMode == codeNone {
		indent := len(line) - len(strings.TrimLeft(line, " "))
		if !m.firstIndentSet {
			m.firstIndent = indent
			m.firstIndentSet = true
		}
		if indent >= m.firstIndent {
			line = line[m.firstIndent:]
		} else {
			m.warn("line indentation decreased below the block's first line", "indent", indent, "first_indent", m.firstIndent)
		}
	}

	// Table exit: once in a table, any non-pipe-row line (outside code) closes it.
	if m.table != tableNone && m.codeMode == codeNone && !pipeRowRe.MatchString(line) {
		m.table = tableNone
	}

	// 4. Table row.
	if m.codeMode == codeNone && pipeRowRe.MatchString(line) {
		return m.handleTableRow(line)
	}

	// 5. Code block entry/exit.
	if chunks, handled := m.handleCode(line, wasLastLineEmpty); handled {
		return chunks
	}

	// 6. List item.
	if sub := listRe.FindStringSubmatch(line); sub != nil {
		return m.handleListItem(sub)
	}

	// 7. Heading.
	if sub := headingRe.FindStringSubmatch(line); sub != nil {
		level := len(sub[1])
		return []Chunk{{Text: m.emitHeading(level, sub[2])}}
	}

	// 8. Horizontal rule / setext promotion.
	if sub := hrRe.FindStringSubmatch(line); sub != nil {
		if wasLastLineEmpty || m.lastLineEmpty {
			rule := m.reg.MarginSpaces() + m.reg.FG(style.Symbol) + strings.Repeat("─", m.reg.Width) + "\x1b[0m"
			return []Chunk{{Text: rule}}
		}
		flag := FlagPromoteH1
		if sub[1] == "=" {
			flag = FlagPromoteH2
		}
		return []Chunk{{Text: "", Flag: flag}}
	}

	// 9. Paragraph.
	return m.handleParagraph(line)
}

func (m *Machine) handleParagraph(line string) []Chunk {
	if line == "" {
		return []Chunk{{Text: ""}}
	}
	if ansiutil.VisibleLength(line) < m.reg.Width {
		formatted := inline.Format(line, &m.inlineReg, m.reg.Link(), m.reg.BG(style.Mid), ambientBG(m.blockDepth, m.reg), m.renderImage)
		return []Chunk{{Text: m.spaceLeft(true) + formatted}}
	}

	formatted := inline.Format(line, &m.inlineReg, m.reg.Link(), m.reg.BG(style.Mid), ambientBG(m.blockDepth, m.reg), m.renderImage)
	lines := wrap.Text(formatted, m.reg.Width, 0, "", "")
	chunks := make([]Chunk, 0, len(lines))
	for _, l := range lines {
		chunks = append(chunks, Chunk{Text: m.spaceLeft(true) + l + "\n"})
	}
	return chunks
}

func ambientBG(blockDepth int, reg style.Registry) string {
	if blockDepth > 0 {
		return reg.BG(style.Dark)
	}
	return "\x1b[49m"
}

// InlineOpen reports whether any cross-line inline style register (bold,
// italic, underline, strike, inline-code) is currently open. internal/stream
// consults this before treating a buffered partial line as a possible
// shell prompt (spec.md §4.6): a prompt never straddles unterminated
// emphasis.
func (m *Machine) InlineOpen() bool {
	return m.inlineReg.Bold || m.inlineReg.Italic || m.inlineReg.Underline ||
		m.inlineReg.Strike || m.inlineReg.InlineCode
}

// CloseInline force-closes any open inline style register and returns the
// SGR reset needed to balance them, or "" if nothing was open. Called by
// internal/stream at end-of-stream as the bracket-closure defense spec.md
// §4.6/§8 require against unterminated emphasis.
func (m *Machine) CloseInline() string {
	if !m.InlineOpen() {
		return ""
	}
	m.inlineReg.Reset()
	return "\x1b[0m"
}

// PromoteHeading re-renders text as a setext-promoted heading (level 1
// for "---", level 2 for "==="). internal/stream (C6) calls this against
// its one-chunk look-ahead buffer's raw source line when a Chunk carries
// FlagPromoteH1/FlagPromoteH2, replacing the paragraph it already queued.
func (m *Machine) PromoteHeading(level int, text string) string {
	return m.emitHeading(level, text)
}

func (m *Machine) emitHeading(level int, text string) string {
	reg := m.reg
	formatted := inline.Format(text, &inline.Registers{}, reg.Link(), reg.BG(style.Mid), "\x1b[49m", m.renderImage)
	spacesToCenter := float64(reg.Width-ansiutil.VisibleLength(formatted)) / 2

	pad := func(f func(float64) float64) string {
		n := int(f(spacesToCenter))
		if n < 0 {
			n = 0
		}
		return strings.Repeat(" ", n)
	}

	switch level {
	case 1:
		return "\n" + reg.MarginSpaces() + "\x1b[1m" + pad(math.Floor) + formatted + pad(math.Ceil) + "\x1b[22m\n"
	case 2:
		return "\n" + reg.MarginSpaces() + "\x1b[1m" + reg.FG(style.Bright) + pad(math.Floor) + formatted + pad(math.Ceil) + "\x1b[0m\n\n"
	case 3:
		return reg.MarginSpaces() + reg.FG(style.Head) + "\x1b[1m" + formatted + "\x1b[0m"
	case 4:
		return reg.MarginSpaces() + reg.FG(style.Symbol) + formatted + "\x1b[0m"
	default:
		return reg.MarginSpaces() + formatted + "\x1b[0m"
	}
}

func (m *Machine) handleTableRow(line string) []Chunk {
	if m.table == tableHeader && wrap.IsTableSeparator(line) {
		m.table = tableBody
		return nil // separator row absorbed silently
	}
	if m.table == tableHeader {
		m.warn("malformed table: row after header is not a separator", "line", line)
	}
	if m.table == tableNone {
		m.table = tableHeader
	}

	trimmed := strings.Trim(strings.TrimSpace(line), "|")
	rawCells := strings.Split(trimmed, "|")
	cells := make([]string, len(rawCells))
	for i, c := range rawCells {
		cells[i] = strings.TrimSpace(c)
	}

	rows := wrap.FormatTable(cells, m.reg, m.table == tableHeader)
	chunks := make([]Chunk, 0, len(rows))
	for _, r := range rows {
		chunks = append(chunks, Chunk{Text: r + "\n"})
	}
	return chunks
}

// handleCode manages fenced/indented code block entry, in-block line
// feeding, and exit. It returns handled=false when the line isn't code
// related and the caller should continue to the next dispatch step.
func (m *Machine) handleCode(line string, lastLineEmpty bool) ([]Chunk, bool) {
	var chunks []Chunk

	if m.codeMode == codeNone {
		if sub := fenceOpenRe.FindStringSubmatch(line); sub != nil {
			lang := sub[1]
			if lang == "" {
				lang = "bash"
			}
			m.startCode(codeBacktick, lang)
			if m.reg.PrettyPad {
				chunks = append(chunks, Chunk{Text: m.reg.CodePad()[0]})
			}
			return chunks, true
		}
		if lastLineEmpty && !m.inList && spacesCodeRe.MatchString(line) {
			m.startCode(codeSpaces, "bash")
			if m.reg.PrettyPad {
				chunks = append(chunks, Chunk{Text: m.reg.CodePad()[0]})
			}
			// CodeSpaces doesn't consume the triggering line.
		} else {
			return nil, false
		}
	}

	closing := (m.codeMode == codeBacktick && strings.TrimSpace(line) == "```") ||
		(m.codeMode == codeSpaces && !strings.HasPrefix(line, "    "))

	if closing {
		if m.scrapeDir != "" {
			_ = m.codeStreamer.Scrape(m.scrapeDir, m.scrapeIndex)
			m.scrapeIndex++
		}
		m.LastCodeBlock = m.codeStreamer.Raw()
		wasSpaces := m.codeMode == codeSpaces
		m.codeMode = codeNone
		if m.reg.PrettyPad {
			chunks = append(chunks, Chunk{Text: m.reg.CodePad()[1]})
		}
		chunks = append(chunks, Chunk{Text: "\x1b[0m", Flag: FlagFlush})
		if wasSpaces {
			// Not consumed: re-dispatch through the normal pipeline.
			return append(chunks, m.ProcessLine(line)...), true
		}
		return chunks, true
	}

	for _, seg := range m.codeStreamer.FeedLine(line + "\n") {
		chunks = append(chunks, Chunk{Text: seg + "\n"})
	}
	return chunks, true
}

func (m *Machine) startCode(mode codeMode, language string) {
	m.codeMode = mode
	m.inlineReg.Reset()
	m.codeStreamer = codeblock.NewStreamer(language, m.reg.Syntax, m.reg, m.logger)
}

func (m *Machine) handleListItem(sub []string) []Chunk {
	m.inList = true
	indent := len(sub[1])
	listType := "bullet"
	if sub[2][0] >= '0' && sub[2][0] <= '9' {
		listType = "number"
	}
	content := sub[3]

	for len(m.listStack) > 0 && m.listStack[len(m.listStack)-1].indent > indent {
		m.listStack = m.listStack[:len(m.listStack)-1]
		if len(m.orderedCounters) > 0 {
			m.orderedCounters = m.orderedCounters[:len(m.orderedCounters)-1]
		}
	}
	if len(m.listStack) > 0 && m.listStack[len(m.listStack)-1].indent < indent {
		m.listStack = append(m.listStack, listItem{indent: indent, kind: listType})
		m.orderedCounters = append(m.orderedCounters, 0)
	} else if len(m.listStack) == 0 {
		m.listStack = append(m.listStack, listItem{indent: indent, kind: listType})
		m.orderedCounters = append(m.orderedCounters, 0)
	}
	if listType == "number" {
		m.orderedCounters[len(m.orderedCounters)-1]++
	}

	depth := len(m.listStack) * 2
	wrapWidth := m.reg.Width - depth - 2*m.reg.ListIndent

	bullet := "•"
	if listType == "number" {
		parsed, _ := strconv.ParseFloat(strings.TrimSuffix(sub[2], "."), 64)
		n := m.orderedCounters[len(m.orderedCounters)-1]
		if int(parsed) > n {
			n = int(parsed)
		}
		bullet = fmt.Sprintf("%d", n)
	}

	formatted := inline.Format(content, &m.inlineReg, m.reg.Link(), m.reg.BG(style.Mid), ambientBG(m.blockDepth, m.reg), m.renderImage)
	firstPrefix := strings.Repeat(" ", max0(depth-len([]rune(bullet)))) + m.reg.FG(style.Symbol) + bullet + "\x1b[0m "
	subPrefix := strings.Repeat(" ", max0(depth-1))

	lines := wrap.Text(formatted, wrapWidth, m.reg.ListIndent, firstPrefix, subPrefix)
	chunks := make([]Chunk, 0, len(lines))
	for _, l := range lines {
		chunks = append(chunks, Chunk{Text: m.spaceLeft(true) + l + "\n"})
	}
	return chunks
}

func max0(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
