// Package editor implements a raw-mode line editor with inline
// autosuggestion, history navigation, and wrap-aware repainting. It reads
// one key event at a time from the controlling terminal; no concurrent key
// processing takes place.
package editor

import (
	"errors"
	"io"
	"strings"
)

// ErrInterrupt is returned when the user presses Ctrl-C.
var ErrInterrupt = errors.New("interrupted")

// Mode selects how submitted input is treated. The editor only uses it to
// decide whether inline suggestions apply (manual mode only).
type Mode int

const (
	ModeManual Mode = iota
	ModeAgent
)

// Completer supplies full-line completion candidates for a partial input.
type Completer interface {
	Complete(partial string) []string
}

// Editor owns the input state for one prompt at a time: buffer, cursor
// offset, history cursor, and the current inline suggestion.
type Editor struct {
	term      Terminal
	completer Completer
	hist      *History
	mode      Mode

	margin []rune // prompt text, styled plainly so width math stays honest

	buf          []rune
	cursor       int // rune offset, 0 <= cursor <= len(buf)
	histIdx      int // -1 = live input, 0 = newest history entry
	draft        string
	lastAccepted string
	suggestion   string // full-line suggestion, "" when none

	startRow int
	lastRows int
}

// New creates an editor. completer may be nil to disable suggestions.
func New(t Terminal, hist *History, completer Completer) *Editor {
	if hist == nil {
		hist = &History{}
	}
	return &Editor{term: t, completer: completer, hist: hist, histIdx: -1}
}

// SetMode switches between manual and agent input handling.
func (e *Editor) SetMode(m Mode) { e.mode = m }

// Mode returns the current input mode.
func (e *Editor) Mode() Mode { return e.mode }

// History returns the editor's history log.
func (e *Editor) History() *History { return e.hist }

// ReadLine displays the prompt and reads one line. It returns io.EOF on
// Ctrl-D with an empty buffer and ErrInterrupt on Ctrl-C. The submitted
// line is appended to history (if non-empty and distinct from the previous
// entry) and the input state is reset.
func (e *Editor) ReadLine(prompt string) (string, error) {
	if err := e.term.EnterRaw(); err != nil {
		return "", err
	}
	defer e.term.ExitRaw()

	e.margin = []rune(prompt)
	e.reset()

	row, ok := e.term.CursorRow()
	if !ok {
		row = 1 // terminal doesn't report position; paint from the top
	}
	e.startRow = row
	e.refreshSuggestion()
	e.repaint()

	for {
		key, err := readKey(e.term)
		if err != nil {
			return "", err
		}

		switch key.Kind {
		case KeyCtrlC:
			e.term.Write([]byte("\r\n"))
			e.reset()
			return "", ErrInterrupt

		case KeyCtrlD:
			if len(e.buf) == 0 {
				e.term.Write([]byte("\r\n"))
				return "", io.EOF
			}

		case KeyEnter:
			line := string(e.buf)
			e.term.Write([]byte("\r\n"))
			e.hist.Append(line)
			e.reset()
			return line, nil

		default:
			e.handleKey(key)
		}

		e.refreshSuggestion()
		e.repaint()
	}
}

// handleKey applies one non-terminal key event to the input state.
func (e *Editor) handleKey(key Key) {
	switch key.Kind {
	case KeyRune:
		e.buf = append(e.buf, 0)
		copy(e.buf[e.cursor+1:], e.buf[e.cursor:])
		e.buf[e.cursor] = key.Rune
		e.cursor++
		e.lastAccepted = ""

	case KeyBackspace:
		if e.cursor > 0 {
			e.buf = append(e.buf[:e.cursor-1], e.buf[e.cursor:]...)
			e.cursor--
		}

	case KeyDelete:
		if e.cursor < len(e.buf) {
			e.buf = append(e.buf[:e.cursor], e.buf[e.cursor+1:]...)
		}

	case KeyLeft:
		if e.cursor > 0 {
			e.cursor--
		}

	case KeyRight:
		if e.cursor < len(e.buf) {
			e.cursor++
		} else {
			e.acceptSuggestion()
		}

	case KeyTab:
		e.acceptSuggestion()

	case KeyUp:
		e.historyUp()

	case KeyDown:
		e.historyDown()

	case KeyHome:
		e.cursor = 0

	case KeyEnd:
		e.cursor = len(e.buf)

	case KeyCtrlU:
		e.buf = e.buf[:0]
		e.cursor = 0
	}
}

// acceptSuggestion replaces the buffer with the current suggestion and
// moves the cursor to the end. A suggestion is only offered in manual mode
// and only once per accepted value.
func (e *Editor) acceptSuggestion() {
	if e.suggestion == "" {
		return
	}
	e.lastAccepted = e.suggestion
	e.buf = []rune(e.suggestion)
	e.cursor = len(e.buf)
	e.suggestion = ""
}

// historyUp steps to older entries, snapshotting the live draft on the
// first step. Clamped at the oldest entry.
func (e *Editor) historyUp() {
	if e.hist.Len() == 0 {
		return
	}
	if e.histIdx == -1 {
		e.draft = string(e.buf)
	}
	if e.histIdx < e.hist.Len()-1 {
		e.histIdx++
	}
	e.setBuffer(e.hist.Entry(e.histIdx))
}

// historyDown steps toward newer entries; stepping past the newest restores
// the live draft and leaves history-browsing mode.
func (e *Editor) historyDown() {
	if e.histIdx == -1 {
		return
	}
	e.histIdx--
	if e.histIdx == -1 {
		e.setBuffer(e.draft)
		return
	}
	e.setBuffer(e.hist.Entry(e.histIdx))
}

func (e *Editor) setBuffer(s string) {
	e.buf = []rune(s)
	e.cursor = len(e.buf)
}

// refreshSuggestion recomputes the inline suggestion for the current
// buffer: the first candidate that strictly extends the buffer
// (case-insensitive prefix) and wasn't the one just accepted.
func (e *Editor) refreshSuggestion() {
	e.suggestion = ""
	if e.mode != ModeManual || e.completer == nil || len(e.buf) == 0 {
		return
	}
	input := string(e.buf)
	fold := strings.ToLower(input)
	for _, cand := range e.completer.Complete(input) {
		if len([]rune(cand)) <= len(e.buf) {
			continue
		}
		if !strings.HasPrefix(strings.ToLower(cand), fold) {
			continue
		}
		if cand == e.lastAccepted {
			continue
		}
		e.suggestion = cand
		return
	}
}

// reset clears the input state for the next prompt.
func (e *Editor) reset() {
	e.buf = e.buf[:0]
	e.cursor = 0
	e.histIdx = -1
	e.draft = ""
	e.lastAccepted = ""
	e.suggestion = ""
	e.lastRows = 0
}

// Confirm asks a single-key yes/no question in raw mode. Only 'y'/'Y'
// answers true; Ctrl-C reports ErrInterrupt.
func (e *Editor) Confirm(prompt string) (bool, error) {
	if err := e.term.EnterRaw(); err != nil {
		return false, err
	}
	defer e.term.ExitRaw()

	e.term.Write([]byte(prompt))
	for {
		key, err := readKey(e.term)
		if err != nil {
			return false, err
		}
		switch key.Kind {
		case KeyCtrlC:
			e.term.Write([]byte("\r\n"))
			return false, ErrInterrupt
		case KeyRune:
			e.term.Write([]byte(string(key.Rune) + "\r\n"))
			return key.Rune == 'y' || key.Rune == 'Y', nil
		case KeyEnter:
			e.term.Write([]byte("\r\n"))
			return false, nil
		}
	}
}
