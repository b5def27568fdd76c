// Package stream implements the byte-loop stream driver (C6): it frames
// an arbitrarily-chunked, possibly-slow byte stream into logical lines,
// dispatches each line through internal/block's state machine, and writes
// the rendered chunks to stdout without corrupting mid-line ANSI state.
// It owns the one-chunk look-ahead buffer setext promotion needs, the
// idle-timeout prompt-flush heuristic for interactive pipes, and the
// final bracket-closure and clipboard cleanup on exit.
package stream

import (
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kristopolous/streamdown/internal/ansiutil"
	"github.com/kristopolous/streamdown/internal/block"
	"github.com/kristopolous/streamdown/internal/clipboard"
)

// debugIdleByte is written to the log exactly once, on the first idle
// timeout tick, the same one-shot marker the original implementation
// writes to its byte log.
const debugIdleByte = "🫣"

// promptRe matches a buffered partial line's visible text against the
// "looks like a shell prompt" heuristic spec.md §4.6 describes.
var promptRe = regexp.MustCompile(`^.*>\s+$`)

// Options configures one render session's driver.
type Options struct {
	// Timeout is the idle window (features.Timeout) governing both the
	// prompt-flush heuristic and the log-idle record separator.
	Timeout time.Duration
	// Clipboard enables the OSC-52 emission of the last code block's
	// contents on Close.
	Clipboard bool
	// Logger receives warnings for decode errors, highlighter fallback,
	// and other non-fatal conditions spec.md §7 catalogs. A nil Logger
	// disables the driver's logging.
	Logger *slog.Logger
}

// Driver multiplexes one input stream through a block.Machine and writes
// rendered output to out. It is not safe for concurrent use; one Driver
// renders one session.
type Driver struct {
	machine *block.Machine
	out     io.Writer
	opts    Options

	lineBuf strings.Builder
	pending []byte // undecoded trailing UTF-8 bytes across reads

	pendingOut         strings.Builder
	pendingHasNewline  bool
	pendingRaw         string
	pendingIsParagraph bool

	idleLogged bool
}

// New builds a Driver that renders through machine and writes to out.
func New(out io.Writer, machine *block.Machine, opts Options) *Driver {
	if opts.Timeout <= 0 {
		opts.Timeout = 500 * time.Millisecond
	}
	return &Driver{machine: machine, out: out, opts: opts}
}

// Run drives a blocking read loop to EOF: the "regular file / stdin
// file-descriptor" mode of spec.md §4.6, used for regular files and for
// stdin when the caller doesn't need the idle-timeout prompt heuristic.
func (d *Driver) Run(r io.Reader) error {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			d.feed(buf[:n])
		}
		if err != nil {
			if err == io.EOF {
				d.finish()
				return nil
			}
			return err
		}
	}
}

// readResult is one delivery from a background reader goroutine: either a
// chunk of bytes, a terminal error, or both (a final short read).
type readResult struct {
	data []byte
	err  error
}

func readLoop(r io.Reader, ch chan<- readResult) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			cp := make([]byte, n)
			copy(cp, buf[:n])
			ch <- readResult{data: cp}
		}
		if err != nil {
			ch <- readResult{err: err}
			return
		}
	}
}

// RunInteractive drives the non-blocking-pipe mode of spec.md §4.6: a
// background goroutine performs the blocking reads (Go has no portable
// select() over an arbitrary io.Reader), and this loop selects between
// newly arrived bytes and an idle timer, applying the possible-prompt
// flush heuristic whenever the timer fires before a newline arrives.
func (d *Driver) RunInteractive(r io.Reader) error {
	ch := make(chan readResult)
	go readLoop(r, ch)

	timer := time.NewTimer(d.opts.Timeout)
	defer timer.Stop()

	for {
		select {
		case res := <-ch:
			if len(res.data) > 0 {
				d.feed(res.data)
				resetTimer(timer, d.opts.Timeout)
			}
			if res.err != nil {
				if res.err == io.EOF {
					d.finish()
					return nil
				}
				return res.err
			}
		case <-timer.C:
			d.onIdle()
			resetTimer(timer, d.opts.Timeout)
		}
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

// onIdle implements the idle-timeout "possible prompt" heuristic: a
// buffered, newline-less line is emitted as a partial chunk only when
// every inline style register is closed and its visible text looks like
// a trailing shell prompt. The first idle tick of a session writes a
// one-shot debug marker to the log.
func (d *Driver) onIdle() {
	if !d.idleLogged {
		d.idleLogged = true
		if d.opts.Logger != nil {
			d.opts.Logger.Debug("idle tick", "marker", debugIdleByte)
		}
	}

	if d.lineBuf.Len() == 0 {
		return
	}
	if d.machine.InlineOpen() {
		return
	}
	line := d.lineBuf.String()
	if !promptRe.MatchString(ansiutil.Visible(line)) {
		return
	}

	d.lineBuf.Reset()
	d.flushPendingToStdout()
	d.pendingIsParagraph = false
	chunks := d.machine.ProcessLine(line)
	var text strings.Builder
	for _, c := range chunks {
		text.WriteString(c.Text)
	}
	io.WriteString(d.out, text.String())
}

// feed appends newly read bytes to the pending decode buffer and commits
// every complete line it can assemble. Partial UTF-8 sequences split
// across reads are left in pending until more bytes complete them,
// matching spec.md §3's decoding invariant.
func (d *Driver) feed(data []byte) {
	d.pending = append(d.pending, data...)

	for len(d.pending) > 0 {
		if !utf8.FullRune(d.pending) {
			// Either a genuinely incomplete multi-byte sequence (wait for
			// more bytes) or a run of invalid bytes too short to tell; Go's
			// FullRune treats both as "not full" up to utf8.UTFMax bytes.
			if len(d.pending) < utf8.UTFMax {
				return
			}
		}
		r, size := utf8.DecodeRune(d.pending)
		d.appendRune(r)
		d.pending = d.pending[size:]
	}
}

func (d *Driver) appendRune(r rune) {
	if r == '\n' {
		line := d.lineBuf.String()
		d.lineBuf.Reset()
		d.commitLine(line, true)
		return
	}
	d.lineBuf.WriteRune(r)
}

// finish flushes any trailing partial line (no terminating newline), the
// one-chunk look-ahead buffer, and closes any still-open inline style
// register — the bracket-closure defense of spec.md §4.6/§8.
func (d *Driver) finish() {
	if len(d.pending) > 0 {
		// A UTF-8-violating prefix followed by end-of-stream: log and
		// decode it permissively (replacement runes) rather than drop it.
		if d.opts.Logger != nil {
			d.opts.Logger.Warn("invalid utf-8 at end of stream", "bytes", len(d.pending))
		}
		for len(d.pending) > 0 {
			r, size := utf8.DecodeRune(d.pending)
			if size == 0 {
				break
			}
			d.appendRune(r)
			d.pending = d.pending[size:]
		}
	}
	if d.lineBuf.Len() > 0 {
		line := d.lineBuf.String()
		d.lineBuf.Reset()
		d.commitLine(line, false)
	}
	d.flushPendingToStdout()
	if closeSeq := d.machine.CloseInline(); closeSeq != "" {
		io.WriteString(d.out, closeSeq)
	}
}

// commitLine dispatches one complete logical line through the block
// machine and folds the resulting chunks into the one-chunk look-ahead
// buffer, applying FlagPromoteH1/FlagPromoteH2 against the previously
// buffered (not yet written) line when setext underlining is detected.
func (d *Driver) commitLine(raw string, hasNewline bool) {
	chunks := d.machine.ProcessLine(raw)

	var newPending strings.Builder
	flushedPrevious := false
	consumedPromotion := false
	forceFlush := false

	flushPrev := func() {
		if !flushedPrevious {
			d.flushPendingToStdout()
			flushedPrevious = true
		}
	}

	for _, c := range chunks {
		switch c.Flag {
		case block.FlagPromoteH1, block.FlagPromoteH2:
			if !flushedPrevious && d.pendingIsParagraph {
				level := 1
				if c.Flag == block.FlagPromoteH2 {
					level = 2
				}
				replacement := d.machine.PromoteHeading(level, d.pendingRaw)
				d.pendingOut.Reset()
				io.WriteString(d.out, replacement)
				d.pendingIsParagraph = false
				flushedPrevious = true
				consumedPromotion = true
			} else {
				flushPrev()
			}
		case block.FlagFlush:
			flushPrev()
			newPending.WriteString(c.Text)
			forceFlush = true
		default:
			flushPrev()
			newPending.WriteString(c.Text)
		}
	}

	if !flushedPrevious {
		// Nothing in this line produced output (absorbed table separator,
		// repeated blank-line collapse, silent fence open): leave the
		// look-ahead buffer exactly as it was.
		return
	}
	if consumedPromotion {
		d.pendingRaw = raw
		d.pendingIsParagraph = false
		return
	}
	if forceFlush {
		// FlagFlush: write this chunk immediately instead of holding it in
		// the look-ahead buffer, and without adding a trailing newline —
		// nothing after a closed code block can retroactively promote it.
		io.WriteString(d.out, newPending.String())
		d.pendingOut.Reset()
		d.pendingHasNewline = false
		d.pendingRaw = ""
		d.pendingIsParagraph = false
		return
	}

	d.pendingOut.Reset()
	d.pendingOut.WriteString(newPending.String())
	d.pendingHasNewline = hasNewline
	d.pendingRaw = raw
	d.pendingIsParagraph = isPlainParagraph(raw, chunks)
}

// isPlainParagraph reports whether raw/chunks look like a short,
// single-chunk paragraph eligible for setext promotion: exactly one
// FlagNone chunk, and raw isn't itself a structural line (heading, rule,
// list item, table row, code fence).
func isPlainParagraph(raw string, chunks []block.Chunk) bool {
	if len(chunks) != 1 || chunks[0].Flag != block.FlagNone {
		return false
	}
	t := strings.TrimSpace(raw)
	if t == "" {
		return false
	}
	if strings.HasPrefix(t, "#") || strings.HasPrefix(t, "|") || strings.HasPrefix(t, "```") {
		return false
	}
	if strings.Trim(t, "-=_* ") == "" {
		return false
	}
	if f := strings.Fields(t); len(f) > 1 && (f[0] == "-" || f[0] == "*" || f[0] == "+" ||
		(strings.HasSuffix(f[0], ".") && strings.Trim(f[0], "0123456789") == ".")) {
		return false
	}
	return true
}

// flushPendingToStdout writes the buffered look-ahead chunk, applying
// newline normalization (spec.md §4.6): a source line that lacked a
// final newline has any trailing "\n" stripped from its rendered chunk;
// otherwise the chunk is made to end in exactly one.
func (d *Driver) flushPendingToStdout() {
	if d.pendingOut.Len() == 0 {
		return
	}
	text := d.pendingOut.String()
	d.pendingOut.Reset()
	if d.pendingHasNewline {
		if !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
	} else {
		text = strings.TrimSuffix(text, "\n")
	}
	io.WriteString(d.out, text)
}

// Close runs the end-of-session cleanup spec.md §5 describes beyond the
// bracket closure finish() already performed: emitting the OSC-52
// clipboard payload for the last code block if enabled. Terminal-mode
// restoration and PTY/child cleanup are the exec-mode caller's
// responsibility (internal/stream's RunExec scopes its own acquisition).
func (d *Driver) Close() error {
	if d.opts.Clipboard && d.machine.LastCodeBlock != "" {
		return clipboard.EmitOSC52(d.out, d.machine.LastCodeBlock)
	}
	return nil
}
