package editor

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

// fakeTerm replays scripted key bytes and records every write.
type fakeTerm struct {
	in     *bytes.Reader
	width  int
	row    int
	rowOK  bool
	writes []string
}

func newFakeTerm(input string) *fakeTerm {
	return &fakeTerm{in: bytes.NewReader([]byte(input)), width: 80, row: 1, rowOK: true}
}

func (f *fakeTerm) Read(p []byte) (int, error) { return f.in.Read(p) }
func (f *fakeTerm) EnterRaw() error            { return nil }
func (f *fakeTerm) ExitRaw() error             { return nil }
func (f *fakeTerm) Width() int                 { return f.width }
func (f *fakeTerm) CursorRow() (int, bool)     { return f.row, f.rowOK }

func (f *fakeTerm) Write(p []byte) (int, error) {
	f.writes = append(f.writes, string(p))
	return len(p), nil
}

// mapCompleter returns fixed candidates per exact input.
type mapCompleter map[string][]string

func (m mapCompleter) Complete(partial string) []string { return m[partial] }

const (
	keyUp    = "\x1b[A"
	keyDown  = "\x1b[B"
	keyRight = "\x1b[C"
	keyLeft  = "\x1b[D"
)

func readOne(t *testing.T, input string, hist *History, c Completer) (string, error) {
	t.Helper()
	ed := New(newFakeTerm(input), hist, c)
	return ed.ReadLine("> ")
}

func TestReadLineTypedInput(t *testing.T) {
	hist := &History{}
	line, err := readOne(t, "hello\r", hist, nil)
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if line != "hello" {
		t.Errorf("line = %q, want %q", line, "hello")
	}
	if hist.Len() != 1 || hist.Entry(0) != "hello" {
		t.Errorf("history not updated: len=%d", hist.Len())
	}
}

func TestCtrlCInterrupts(t *testing.T) {
	_, err := readOne(t, "abc\x03", &History{}, nil)
	if !errors.Is(err, ErrInterrupt) {
		t.Fatalf("err = %v, want ErrInterrupt", err)
	}
}

func TestCtrlDOnEmptyBufferIsEOF(t *testing.T) {
	_, err := readOne(t, "\x04", &History{}, nil)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("err = %v, want io.EOF", err)
	}
}

func TestCtrlDOnNonEmptyBufferIsIgnored(t *testing.T) {
	line, err := readOne(t, "a\x04b\r", &History{}, nil)
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if line != "ab" {
		t.Errorf("line = %q, want %q", line, "ab")
	}
}

func TestHistoryNavigation(t *testing.T) {
	hist := &History{}
	hist.Seed([]string{"a", "b", "c"})

	// Three ups walk c, b, a; one down comes back to b.
	line, err := readOne(t, keyUp+keyUp+keyUp+keyDown+"\r", hist, nil)
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if line != "b" {
		t.Errorf("line = %q, want %q", line, "b")
	}
}

func TestHistoryClampsAtOldest(t *testing.T) {
	hist := &History{}
	hist.Seed([]string{"a", "b"})
	line, err := readOne(t, strings.Repeat(keyUp, 5)+"\r", hist, nil)
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if line != "a" {
		t.Errorf("line = %q, want %q", line, "a")
	}
}

func TestHistoryDownRestoresDraft(t *testing.T) {
	hist := &History{}
	hist.Seed([]string{"older"})
	line, err := readOne(t, "dra"+keyUp+keyDown+"\r", hist, nil)
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if line != "dra" {
		t.Errorf("line = %q, want draft %q", line, "dra")
	}
}

func TestHistoryDownOnLiveInputIsNoop(t *testing.T) {
	line, err := readOne(t, "keep"+keyDown+"\r", &History{}, nil)
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if line != "keep" {
		t.Errorf("line = %q, want %q", line, "keep")
	}
}

func TestTabAcceptsSuggestion(t *testing.T) {
	c := mapCompleter{"ec": {"echo hello"}}
	line, err := readOne(t, "ec\t\r", &History{}, c)
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if line != "echo hello" {
		t.Errorf("line = %q, want %q", line, "echo hello")
	}
}

func TestRightAtEndAcceptsSuggestion(t *testing.T) {
	c := mapCompleter{"ec": {"echo hello"}}
	line, err := readOne(t, "ec"+keyRight+"\r", &History{}, c)
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if line != "echo hello" {
		t.Errorf("line = %q, want %q", line, "echo hello")
	}
}

func TestRightInsideBufferOnlyMovesCursor(t *testing.T) {
	c := mapCompleter{"ab": {"abide"}}
	// Left then right keeps the buffer as typed; the suggestion is not
	// accepted because the cursor was not at the end when right was hit.
	line, err := readOne(t, "ab"+keyLeft+keyRight+keyLeft+"X\r", &History{}, c)
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if line != "aXb" {
		t.Errorf("line = %q, want %q", line, "aXb")
	}
}

func TestAcceptedSuggestionNotReoffered(t *testing.T) {
	c := mapCompleter{
		"ec":        {"echo hello"},
		"echo hell": {"echo hello"},
	}
	// Accept, then backspace: the same suggestion must not come back, so
	// a second tab is a no-op and the shortened line is submitted.
	line, err := readOne(t, "ec\t\x7f\t\r", &History{}, c)
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if line != "echo hell" {
		t.Errorf("line = %q, want %q", line, "echo hell")
	}
}

func TestTypingRevalidatesSuggestions(t *testing.T) {
	c := mapCompleter{
		"ec":          {"echo hello"},
		"echo hello!": {"echo hello!!"},
	}
	// Inserting a rune clears the accepted marker, so new input earns a
	// fresh suggestion.
	line, err := readOne(t, "ec\t!\t\r", &History{}, c)
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if line != "echo hello!!" {
		t.Errorf("line = %q, want %q", line, "echo hello!!")
	}
}

func TestNoSuggestionsInAgentMode(t *testing.T) {
	c := mapCompleter{"ec": {"echo hello"}}
	ed := New(newFakeTerm("ec\t\r"), &History{}, c)
	ed.SetMode(ModeAgent)
	line, err := ed.ReadLine("> ")
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if line != "ec" {
		t.Errorf("line = %q, want %q", line, "ec")
	}
}

func TestSuggestionMustStrictlyExtendInput(t *testing.T) {
	ed := New(newFakeTerm(""), &History{}, mapCompleter{"ls": {"ls", "LS"}})
	ed.setBuffer("ls")
	ed.refreshSuggestion()
	if ed.suggestion != "" {
		t.Errorf("suggestion = %q, want none for same-length candidates", ed.suggestion)
	}
}

func TestCursorStaysWithinBuffer(t *testing.T) {
	ed := New(newFakeTerm(""), &History{}, nil)
	keys := []Key{
		{Kind: KeyRune, Rune: 'a'},
		{Kind: KeyRune, Rune: 'b'},
		{Kind: KeyLeft},
		{Kind: KeyLeft},
		{Kind: KeyLeft}, // past start
		{Kind: KeyBackspace},
		{Kind: KeyRune, Rune: 'c'},
		{Kind: KeyEnd},
		{Kind: KeyRight}, // past end, no completer so no acceptance
		{Kind: KeyDelete},
		{Kind: KeyHome},
		{Kind: KeyDelete},
		{Kind: KeyCtrlU},
	}
	for i, k := range keys {
		ed.handleKey(k)
		if ed.cursor < 0 || ed.cursor > len(ed.buf) {
			t.Fatalf("after key %d: cursor %d out of range for buffer %q", i, ed.cursor, string(ed.buf))
		}
	}
}

func TestRepaintIsIdempotent(t *testing.T) {
	ft := newFakeTerm("")
	ed := New(ft, &History{}, nil)
	ed.margin = []rune("> ")
	ed.startRow = 3
	ed.setBuffer("echo hi")
	ed.suggestion = "echo hidden"

	ed.repaint()
	ed.repaint()

	if len(ft.writes) != 2 {
		t.Fatalf("writes = %d, want 2", len(ft.writes))
	}
	if ft.writes[0] != ft.writes[1] {
		t.Errorf("second repaint differs:\nfirst:  %q\nsecond: %q", ft.writes[0], ft.writes[1])
	}
}

func TestRepaintWrapsCursorAcrossRows(t *testing.T) {
	ft := newFakeTerm("")
	ft.width = 10
	ed := New(ft, &History{}, nil)
	ed.margin = []rune("> ")
	ed.startRow = 5
	ed.setBuffer(strings.Repeat("x", 17)) // margin 2 + 17 = 19 columns

	ed.repaint()

	out := ft.writes[len(ft.writes)-1]
	if !strings.HasSuffix(out, "\x1b[6;10H") {
		t.Errorf("cursor placement wrong, output ends %q", out[len(out)-12:])
	}
	if ed.lastRows != 2 {
		t.Errorf("lastRows = %d, want 2", ed.lastRows)
	}
}

func TestRepaintClearsRowsFromLongerPaint(t *testing.T) {
	ft := newFakeTerm("")
	ft.width = 10
	ed := New(ft, &History{}, nil)
	ed.margin = []rune("> ")
	ed.startRow = 1
	ed.setBuffer(strings.Repeat("x", 25)) // 3 rows
	ed.repaint()

	ed.setBuffer("x") // back to 1 row
	ed.repaint()

	out := ft.writes[len(ft.writes)-1]
	if got := strings.Count(out, "\x1b[2K"); got != 3 {
		t.Errorf("cleared %d rows, want 3 after shrinking from a 3-row paint", got)
	}
	if ed.lastRows != 1 {
		t.Errorf("lastRows = %d, want 1", ed.lastRows)
	}
}

func TestSuggestionRemainderIsMuted(t *testing.T) {
	ft := newFakeTerm("")
	ed := New(ft, &History{}, nil)
	ed.margin = []rune("> ")
	ed.startRow = 1
	ed.setBuffer("git ch")
	ed.suggestion = "git checkout"
	ed.repaint()

	out := ft.writes[len(ft.writes)-1]
	want := suggestionStyle + "eckout" + styleReset
	if !strings.Contains(out, want) {
		t.Errorf("output %q missing muted remainder %q", out, want)
	}
}

func TestConfirm(t *testing.T) {
	for _, tc := range []struct {
		input string
		want  bool
	}{
		{"y", true},
		{"Y", true},
		{"n", false},
		{"\r", false},
	} {
		ed := New(newFakeTerm(tc.input), &History{}, nil)
		got, err := ed.Confirm("run? ")
		if err != nil {
			t.Fatalf("Confirm(%q): %v", tc.input, err)
		}
		if got != tc.want {
			t.Errorf("Confirm(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}
