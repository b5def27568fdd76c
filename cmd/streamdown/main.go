// Command streamdown renders Markdown to styled terminal output as it
// streams in from a file, a pipe, or a wrapped child process.
package main

import "github.com/kristopolous/streamdown/cmd"

func main() {
	cmd.Execute()
}
