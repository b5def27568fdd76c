// Package clipboard emits the OSC-52 terminal escape sequence used to push
// text onto the system clipboard without shelling out to a platform
// clipboard utility. This is the "Clipboard" feature toggle described in
// spec.md §6: on exit, if enabled, the driver emits an OSC-52 payload
// carrying the last code block's contents.
package clipboard

import (
	"encoding/base64"
	"fmt"
	"io"
)

// EmitOSC52 writes the OSC-52 "set clipboard" escape sequence for text to w.
// Terminals that support it (iTerm2, Ghostty, kitty, Windows Terminal, ...)
// pick up the payload as if the user had copied it manually.
func EmitOSC52(w io.Writer, text string) error {
	encoded := base64.StdEncoding.EncodeToString([]byte(text))
	_, err := fmt.Fprintf(w, "\x1b]52;c;%s\a", encoded)
	return err
}
