package editor

import (
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"
)

// Terminal is the capability surface the editor renders through. The real
// implementation is Tty; tests substitute a recording fake.
type Terminal interface {
	io.Reader
	io.Writer

	// EnterRaw switches to raw input mode; ExitRaw restores the previous
	// state. Calls nest safely: only the outermost pair toggles the mode.
	EnterRaw() error
	ExitRaw() error

	// Width returns the column count, or 0 when unknown.
	Width() int

	// CursorRow queries the 1-based cursor row. ok is false when the
	// terminal does not report its position; callers fall back to a
	// default row.
	CursorRow() (row int, ok bool)
}

// Tty implements Terminal on the controlling terminal. It opens /dev/tty
// directly so the editor works even when stdout is redirected.
type Tty struct {
	f        *os.File
	oldState *term.State
	rawDepth int
}

// OpenTty opens the controlling terminal.
func OpenTty() (*Tty, error) {
	f, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open /dev/tty: %w", err)
	}
	return &Tty{f: f}, nil
}

// Close restores terminal state and closes the tty fd.
func (t *Tty) Close() {
	if t.oldState != nil {
		term.Restore(int(t.f.Fd()), t.oldState)
		t.oldState = nil
	}
	t.f.Close()
}

// File returns the underlying tty file, for writers that need the fd.
func (t *Tty) File() *os.File { return t.f }

func (t *Tty) Read(p []byte) (int, error)  { return t.f.Read(p) }
func (t *Tty) Write(p []byte) (int, error) { return t.f.Write(p) }

func (t *Tty) EnterRaw() error {
	if t.rawDepth == 0 {
		old, err := term.MakeRaw(int(t.f.Fd()))
		if err != nil {
			return fmt.Errorf("raw mode: %w", err)
		}
		t.oldState = old
	}
	t.rawDepth++
	return nil
}

func (t *Tty) ExitRaw() error {
	if t.rawDepth == 0 {
		return nil
	}
	t.rawDepth--
	if t.rawDepth == 0 && t.oldState != nil {
		err := term.Restore(int(t.f.Fd()), t.oldState)
		t.oldState = nil
		return err
	}
	return nil
}

func (t *Tty) Width() int {
	w, _, err := term.GetSize(int(t.f.Fd()))
	if err != nil {
		return 0
	}
	return w
}

// cursorReplyTimeout bounds the wait for a DSR reply. Some terminals never
// answer ESC[6n; without a deadline the editor would block on them.
const cursorReplyTimeout = 200 * time.Millisecond

// CursorRow asks the terminal for the cursor position with the DSR escape
// and parses the "\x1b[<row>;<col>R" reply. Any parse trouble or a
// terminal that never answers reports ok=false so the caller can pick a
// sane default instead of failing.
func (t *Tty) CursorRow() (int, bool) {
	if _, err := t.f.WriteString("\x1b[6n"); err != nil {
		return 0, false
	}
	return readCursorReply(t.f)
}

func readCursorReply(f *os.File) (int, bool) {
	if err := f.SetReadDeadline(time.Now().Add(cursorReplyTimeout)); err == nil {
		defer f.SetReadDeadline(time.Time{})
	}

	var buf [32]byte
	n := 0
	for n < len(buf) {
		m, err := f.Read(buf[n : n+1])
		if err != nil {
			return 0, false
		}
		if m == 0 {
			continue
		}
		if buf[n] == 'R' {
			n++
			break
		}
		n++
	}

	var row, col int
	if _, err := fmt.Sscanf(string(buf[:n]), "\x1b[%d;%dR", &row, &col); err != nil {
		return 0, false
	}
	if row < 1 {
		return 0, false
	}
	return row, true
}
