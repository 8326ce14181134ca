package editor

import (
	"io"
	"unicode/utf8"
)

// KeyKind identifies a decoded key event.
type KeyKind int

const (
	KeyRune KeyKind = iota
	KeyEnter
	KeyBackspace
	KeyDelete
	KeyLeft
	KeyRight
	KeyUp
	KeyDown
	KeyHome
	KeyEnd
	KeyTab
	KeyCtrlC
	KeyCtrlD
	KeyCtrlU
	KeyUnknown
)

// Key is one decoded keyboard event.
type Key struct {
	Kind KeyKind
	Rune rune // valid for KeyRune only
}

// readKey decodes a single key event from r, including escape sequences and
// multi-byte UTF-8 runes. Malformed sequences yield KeyUnknown, which
// callers treat as a no-op.
func readKey(r io.Reader) (Key, error) {
	b, err := readByte(r)
	if err != nil {
		return Key{}, err
	}

	switch b {
	case 3:
		return Key{Kind: KeyCtrlC}, nil
	case 4:
		return Key{Kind: KeyCtrlD}, nil
	case 9:
		return Key{Kind: KeyTab}, nil
	case 13, 10:
		return Key{Kind: KeyEnter}, nil
	case 21:
		return Key{Kind: KeyCtrlU}, nil
	case 1:
		return Key{Kind: KeyHome}, nil
	case 5:
		return Key{Kind: KeyEnd}, nil
	case 127, 8:
		return Key{Kind: KeyBackspace}, nil
	case 27:
		return readEscape(r)
	}

	if b < 32 {
		return Key{Kind: KeyUnknown}, nil
	}

	// Assemble a full UTF-8 sequence from its leading byte.
	buf := []byte{b}
	for extra := utf8SeqLen(b) - 1; extra > 0; extra-- {
		nb, err := readByte(r)
		if err != nil {
			return Key{}, err
		}
		buf = append(buf, nb)
	}
	r2, _ := utf8.DecodeRune(buf)
	if r2 == utf8.RuneError {
		return Key{Kind: KeyUnknown}, nil
	}
	return Key{Kind: KeyRune, Rune: r2}, nil
}

// readEscape decodes the remainder of an ESC-prefixed sequence.
func readEscape(r io.Reader) (Key, error) {
	b, err := readByte(r)
	if err != nil {
		return Key{}, err
	}
	if b != '[' && b != 'O' {
		return Key{Kind: KeyUnknown}, nil
	}

	b, err = readByte(r)
	if err != nil {
		return Key{}, err
	}
	switch b {
	case 'A':
		return Key{Kind: KeyUp}, nil
	case 'B':
		return Key{Kind: KeyDown}, nil
	case 'C':
		return Key{Kind: KeyRight}, nil
	case 'D':
		return Key{Kind: KeyLeft}, nil
	case 'H':
		return Key{Kind: KeyHome}, nil
	case 'F':
		return Key{Kind: KeyEnd}, nil
	case '1':
		readByte(r) // consume '~'
		return Key{Kind: KeyHome}, nil
	case '3':
		readByte(r) // consume '~'
		return Key{Kind: KeyDelete}, nil
	case '4':
		readByte(r) // consume '~'
		return Key{Kind: KeyEnd}, nil
	}
	return Key{Kind: KeyUnknown}, nil
}

func readByte(r io.Reader) (byte, error) {
	var b [1]byte
	for {
		n, err := r.Read(b[:])
		if n == 1 {
			return b[0], nil
		}
		if err != nil {
			return 0, err
		}
	}
}

// utf8SeqLen returns the expected byte length of a UTF-8 sequence from its
// leading byte.
func utf8SeqLen(lead byte) int {
	switch {
	case lead < 0xC0:
		return 1
	case lead < 0xE0:
		return 2
	case lead < 0xF0:
		return 3
	default:
		return 4
	}
}
