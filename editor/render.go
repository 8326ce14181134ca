package editor

import (
	"fmt"
	"strings"
)

const (
	suggestionStyle = "\x1b[38;5;241m"
	styleReset      = "\x1b[0m"
)

// repaint redraws the whole input region: prompt, buffer, and the muted
// suggestion remainder, wrapped at the terminal width. It clears every row
// the region occupies (including rows a previous, longer paint used) and
// then rewrites, so repainting an unchanged state emits identical bytes.
func (e *Editor) repaint() {
	width := e.term.Width()
	if width <= 0 {
		width = 80
	}

	margin := len(e.margin)
	remainder := e.suggestionRemainder()
	total := margin + len(e.buf) + len(remainder)

	rows := (total + width - 1) / width
	if rows < 1 {
		rows = 1
	}
	clearRows := rows
	if e.lastRows > clearRows {
		clearRows = e.lastRows
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "\x1b[%d;1H", e.startRow)
	for r := 0; r < clearRows; r++ {
		sb.WriteString("\x1b[2K")
		if r < clearRows-1 {
			sb.WriteString("\x1b[1B\r")
		}
	}
	fmt.Fprintf(&sb, "\x1b[%d;1H", e.startRow)

	sb.WriteString(string(e.margin))
	sb.WriteString(string(e.buf))
	if len(remainder) > 0 {
		sb.WriteString(suggestionStyle)
		sb.WriteString(string(remainder))
		sb.WriteString(styleReset)
	}

	curRow := e.startRow + (margin+e.cursor)/width
	curCol := (margin+e.cursor)%width + 1
	fmt.Fprintf(&sb, "\x1b[%d;%dH", curRow, curCol)

	e.term.Write([]byte(sb.String()))
	e.lastRows = rows
}

// suggestionRemainder is the part of the suggestion past the buffer end,
// drawn muted after the real input.
func (e *Editor) suggestionRemainder() []rune {
	if e.suggestion == "" {
		return nil
	}
	runes := []rune(e.suggestion)
	if len(runes) <= len(e.buf) {
		return nil
	}
	return runes[len(e.buf):]
}
