package stream

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/creack/pty"
	"golang.org/x/term"
)

// RunExec implements the exec-mode multiplexing of spec.md §4.6: name/args
// is launched with its standard streams wired to a PTY, the caller's
// terminal is placed in raw mode (term.MakeRaw, not cbreak: signal keys
// are not processed locally either) for the duration, keystrokes are
// forwarded byte-by-byte to the PTY and echoed to stdout until a newline
// resets the echo window, and PTY output is fed into the block machine
// outside an echo window. Cleanup (terminal restore, PTY close, child
// wait) runs on every exit path, matching the scoped-acquisition
// guarantee spec.md §5 requires.
func (d *Driver) RunExec(name string, args []string) error {
	cmd := exec.Command(name, args...)
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return fmt.Errorf("start pty: %w", err)
	}
	defer func() { _ = ptmx.Close() }()
	defer func() { _ = cmd.Wait() }()

	stdinFd := int(os.Stdin.Fd())
	oldState, rawErr := term.MakeRaw(stdinFd)
	if rawErr == nil {
		defer func() { _ = term.Restore(stdinFd, oldState) }()
	}

	stdinCh := make(chan readResult)
	ptyCh := make(chan readResult)
	go readLoop(os.Stdin, stdinCh)
	go readLoop(ptmx, ptyCh)

	echoing := false
	for {
		select {
		case res := <-stdinCh:
			if len(res.data) > 0 {
				_, _ = ptmx.Write(res.data)
				for _, b := range res.data {
					_, _ = d.out.Write([]byte{b})
					echoing = b != '\n' && b != '\r'
				}
			}
			if res.err != nil {
				d.finish()
				return nil
			}
		case res := <-ptyCh:
			if len(res.data) > 0 {
				if echoing {
					_, _ = d.out.Write(res.data)
				} else {
					d.feed(res.data)
				}
			}
			if res.err != nil {
				d.finish()
				return nil
			}
		}
	}
}
