// Package cmd wires streamdown's cobra CLI surface (spec.md §6) to the
// block machine and stream driver: positional filenames (or stdin),
// `-l`/`-c`/`-w`/`-e`/`-s` flags, config loading, and exit-code handling.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kristopolous/streamdown/internal/block"
	"github.com/kristopolous/streamdown/internal/cliinput"
	"github.com/kristopolous/streamdown/internal/config"
	"github.com/kristopolous/streamdown/internal/image"
	"github.com/kristopolous/streamdown/internal/latex"
	"github.com/kristopolous/streamdown/internal/stream"
	"github.com/kristopolous/streamdown/internal/style"
)

var (
	logLevel  string
	colorBase string
	widthFlag int
	execCmd   string
	scrapeDir string
)

var rootCmd = &cobra.Command{
	Use:   "streamdown [files...]",
	Short: "Stream Markdown to styled terminal output as it arrives",
	Long: `streamdown renders Markdown to ANSI-styled terminal output incrementally,
as bytes arrive from a file, a pipe, or a wrapped child process, without
ever holding the whole document in memory.

Examples:
  cat README.md | streamdown
  streamdown notes.md
  streamdown -e bash`,
	Args: cobra.ArbitraryArgs,
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVarP(&logLevel, "level", "l", "warn", "log level (debug, info, warn, error)")
	rootCmd.Flags().StringVarP(&colorBase, "color", "c", "", "base color as H,S,V floats in [0,1]")
	rootCmd.Flags().IntVarP(&widthFlag, "width", "w", 0, "width override (0 = auto)")
	rootCmd.Flags().StringVarP(&execCmd, "exec", "e", "", "wrap a child process in exec mode")
	rootCmd.Flags().StringVarP(&scrapeDir, "scrape", "s", "", "scrape each code block to DIR/file_<i>.<ext>")
}

// Execute runs the root command, exiting with spec.md §6's exit codes: 0
// on normal completion, 130 on interrupt.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if ctx.Err() != nil {
		os.Exit(130)
	}
	if err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if colorBase != "" {
		hsv, err := parseHSV(colorBase)
		if err != nil {
			return fmt.Errorf("invalid -c color triple: %w", err)
		}
		cfg.Style.HSV = hsv
	}

	logger := newLogger(logLevel, cfg.Features.Logging)

	if scrapeDir != "" {
		if err := os.MkdirAll(scrapeDir, 0o755); err != nil {
			return fmt.Errorf("failed to create scrape dir: %w", err)
		}
	}

	termWidth := detectWidth()
	reg := style.NewRegistry(cfg.Style, widthFlag, termWidth)
	timeout := time.Duration(cfg.Features.Timeout * float64(time.Second))

	newMachine := func() *block.Machine {
		return block.New(reg, scrapeDir, image.Render, latex.NewUnicodePlugin(), logger)
	}

	opts := stream.Options{Timeout: timeout, Clipboard: cfg.Features.Clipboard, Logger: logger}

	ctx := cmd.Context()

	if execCmd != "" {
		shell := os.Getenv("SHELL")
		if shell == "" {
			shell = "/bin/sh"
		}
		d := stream.New(os.Stdout, newMachine(), opts)
		go stopOnCancel(ctx, d)
		if err := d.RunExec(shell, []string{"-c", execCmd}); err != nil {
			return err
		}
		return d.Close()
	}

	paths, err := cliinput.ResolvePaths(args)
	if err != nil {
		return err
	}

	if len(paths) == 0 {
		switch {
		case cliinput.HasStdin():
			d := stream.New(os.Stdout, newMachine(), opts)
			go stopOnCancel(ctx, d)
			if err := d.RunInteractive(os.Stdin); err != nil {
				return err
			}
			return d.Close()
		case cliinput.IsStdinTTY():
			return cmd.Help()
		default:
			return fmt.Errorf("no input: provide filenames or pipe data to stdin")
		}
	}

	sources, err := cliinput.OpenSources(paths)
	if err != nil {
		return err
	}

	var d *stream.Driver
	for _, src := range sources {
		if len(sources) > 1 {
			fmt.Print(cliinput.Banner(src.Name))
		}
		d = stream.New(os.Stdout, newMachine(), opts)
		if err := d.Run(src.Reader); err != nil {
			_ = src.Reader.Close()
			return fmt.Errorf("failed to render %q: %w", src.Name, err)
		}
		_ = src.Reader.Close()
	}
	if d != nil {
		return d.Close()
	}
	return nil
}

// stopOnCancel cleans up d if ctx is cancelled (SIGINT/SIGTERM) while a
// driver loop is blocked reading input, the keyboard-interrupt cleanup
// path spec.md §5 requires.
func stopOnCancel(ctx context.Context, d *stream.Driver) {
	<-ctx.Done()
	_ = d.Close()
}

func parseHSV(s string) ([3]float64, error) {
	var out [3]float64
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return out, fmt.Errorf("expected H,S,V, got %q", s)
	}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return out, fmt.Errorf("component %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func detectWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}

// newLogger builds the slog logger warnings (lexer fallback, malformed
// table separator, indentation decrease) are written to, per spec.md §7.
// When the Logging feature is enabled it writes at Debug level to a
// per-session temp file (so the idle-tick debug marker is recorded too);
// otherwise it writes at the `-l` level to stderr.
func newLogger(level string, loggingEnabled bool) *slog.Logger {
	lvl := parseLevel(level)

	if loggingEnabled {
		f, err := os.CreateTemp("", "streamdown-*.log")
		if err == nil {
			return slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
		}
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
