// Package cliinput resolves the positional filename arguments and stdin
// handling described in spec.md §6's CLI table: zero or more input
// filenames (glob patterns expanded), falling back to stdin when none are
// given and stdin is piped, or to the help text when stdin is a TTY.
package cliinput

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/term"
)

// Source is one input stream the stream driver will render, paired with
// the display name used for the multi-file banner.
type Source struct {
	Name   string
	Reader io.ReadCloser
}

// ResolvePaths expands glob patterns (including doublestar `**`) and `~`
// home-directory prefixes in the given positional arguments. A pattern
// that matches nothing and contains no glob metacharacters is kept as a
// literal path so a later open failure can report a clear error.
func ResolvePaths(paths []string) ([]string, error) {
	var resolved []string
	for _, path := range paths {
		expanded := expandHome(path)

		matches, err := doublestar.FilepathGlob(expanded)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", path, err)
		}

		if len(matches) == 0 {
			if !containsGlobChars(expanded) {
				resolved = append(resolved, expanded)
			}
			continue
		}
		resolved = append(resolved, matches...)
	}
	return resolved, nil
}

// OpenSources opens every resolved path in order, skipping directories.
// Callers must close each Source's Reader.
func OpenSources(paths []string) ([]Source, error) {
	sources := make([]Source, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %q: %w", path, err)
		}
		if info.IsDir() {
			continue
		}

		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %q: %w", path, err)
		}
		sources = append(sources, Source{Name: path, Reader: f})
	}
	return sources, nil
}

// HasStdin reports whether stdin is piped (not a TTY) and therefore has
// bytes available to the stream driver.
func HasStdin() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) == 0
}

// IsStdinTTY reports whether stdin is attached to an interactive terminal,
// the "no filenames and a TTY" case that exits with the help text instead
// of blocking on a read.
func IsStdinTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Banner formats the "\n------\n# name\n\n------\n" separator the original
// implementation prints between successive files when more than one
// filename is given on the command line.
func Banner(name string) string {
	return fmt.Sprintf("\n------\n# %s\n\n------\n", name)
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

func containsGlobChars(path string) bool {
	return strings.ContainsAny(path, "*?[")
}
