package editor

import (
	"os"
	"testing"
	"time"
)

func TestCursorReplyParsesRow(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	if _, err := w.WriteString("\x1b[12;40R"); err != nil {
		t.Fatalf("write reply: %v", err)
	}
	row, ok := readCursorReply(r)
	if !ok || row != 12 {
		t.Errorf("readCursorReply = (%d, %v), want (12, true)", row, ok)
	}
}

func TestCursorReplyTimesOutWithoutAnswer(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	// Nothing is ever written, standing in for a terminal that ignores
	// ESC[6n. The read must give up instead of blocking.
	start := time.Now()
	if _, ok := readCursorReply(r); ok {
		t.Fatal("got ok=true with no reply")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("gave up after %v, want well under a second", elapsed)
	}
}
