package main

import (
	"bytes"
	"io"
	"os"

	"golang.org/x/term"
)

// termWriter wraps a file and converts \n to \r\n when the file is a
// terminal. Raw mode disables the kernel's NL-to-CRNL translation, so
// without this, command output staircases. Redirected output passes
// through unchanged.
func termWriter(f *os.File) io.Writer {
	if term.IsTerminal(int(f.Fd())) {
		return &crlfWriter{w: f}
	}
	return f
}

type crlfWriter struct {
	w io.Writer
}

func (c *crlfWriter) Write(p []byte) (int, error) {
	replaced := bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))
	_, err := c.w.Write(replaced)
	return len(p), err // report original length to caller
}
