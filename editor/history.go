package editor

// History is an in-process, append-only log of submitted lines. Entries are
// de-duplicated against the immediately preceding entry only; it is never
// persisted by the editor.
type History struct {
	entries []string
}

// Seed loads lines in oldest-first order, applying the same tail-dedup rule
// as Append. Used to bootstrap from the user's shell history file.
func (h *History) Seed(lines []string) {
	for _, line := range lines {
		h.Append(line)
	}
}

// Append records a submitted line. Empty lines and lines equal to the most
// recent entry are skipped.
func (h *History) Append(line string) {
	if line == "" {
		return
	}
	if n := len(h.entries); n > 0 && h.entries[n-1] == line {
		return
	}
	h.entries = append(h.entries, line)
}

// Len returns the number of stored entries.
func (h *History) Len() int { return len(h.entries) }

// Entry returns the entry i steps back from the newest (0 = newest).
func (h *History) Entry(i int) string {
	return h.entries[len(h.entries)-1-i]
}

// Newest returns up to n entries, newest first.
func (h *History) Newest(n int) []string {
	if n > len(h.entries) {
		n = len(h.entries)
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, h.Entry(i))
	}
	return out
}
