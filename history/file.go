// Package history reads the user's shell history and, when an embedding
// API is configured, maintains a small vector index over it so the agent
// can see how this user usually runs similar commands.
package history

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ResolveFilePath picks the shell history file to read: $HISTFILE if set,
// otherwise whichever of ~/.zsh_history and ~/.bash_history was modified
// most recently. Empty when none exists.
func ResolveFilePath() string {
	home, _ := os.UserHomeDir()
	candidates := []string{
		filepath.Join(home, ".zsh_history"),
		filepath.Join(home, ".bash_history"),
	}
	if hf := os.Getenv("HISTFILE"); hf != "" {
		candidates = append([]string{hf}, candidates...)
	}

	var bestPath string
	var bestTime time.Time
	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.ModTime().After(bestTime) {
			bestTime = info.ModTime()
			bestPath = path
		}
	}
	return bestPath
}

// ReadRecent returns up to n commands from the tail of the history file,
// oldest first, with shell-specific line prefixes stripped. A missing or
// unreadable file yields nil.
func ReadRecent(path string, n int) []string {
	if path == "" || n <= 0 {
		return nil
	}
	lines := readLastLines(path, n)
	cmds := make([]string, 0, len(lines))
	for _, line := range lines {
		if cmd := parseLine(line); cmd != "" {
			cmds = append(cmds, cmd)
		}
	}
	if len(cmds) > n {
		cmds = cmds[len(cmds)-n:]
	}
	return cmds
}

// parseLine strips shell-specific history prefixes.
// Zsh extended format: ": <timestamp>:<duration>;<command>". Bash lines
// are the bare command.
func parseLine(line string) string {
	line = strings.TrimSpace(line)
	if line == "" {
		return ""
	}
	if strings.HasPrefix(line, ": ") {
		if i := strings.Index(line, ";"); i != -1 {
			return strings.TrimSpace(line[i+1:])
		}
	}
	return line
}

// readLastLines returns the last n lines of a file. For large files it
// seeks near the end first instead of scanning the whole thing.
func readLastLines(path string, n int) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil
	}

	// Estimate 100 bytes per line; fall back to a full read when the
	// tail window doesn't contain enough lines.
	estimated := int64(n) * 100
	if estimated < info.Size() {
		if _, err := f.Seek(-estimated, io.SeekEnd); err == nil {
			reader := bufio.NewReader(f)
			reader.ReadString('\n') // drop the partial first line
			var lines []string
			scanner := bufio.NewScanner(reader)
			for scanner.Scan() {
				lines = append(lines, scanner.Text())
			}
			if len(lines) >= n {
				return lines[len(lines)-n:]
			}
		}
		f.Seek(0, io.SeekStart)
	}

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
