// Package shellexec runs approved shell commands for the agent loop and for
// manual mode. Output is streamed to the terminal as it arrives while a
// bounded tail is kept for feeding back into the conversation.
package shellexec

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"mvdan.cc/sh/v3/syntax"
)

// DefaultOutputTail is the number of trailing output bytes retained in a
// Result when no other limit is configured.
const DefaultOutputTail = 2000

// Result describes one executed command.
type Result struct {
	Command  string
	Output   string // combined stdout+stderr, tail-truncated
	ExitCode int
	Success  bool
	// WorkDir is the working directory after the command. It differs from
	// the directory the command ran in only for in-process cd.
	WorkDir string
	Err     error // spawn failure, nil for commands that ran (even non-zero exits)
}

// Runner executes shell commands in a given working directory.
type Runner struct {
	stream   io.Writer // live output target, may be nil
	tailSize int
}

// New creates a runner that streams subprocess output to stream while
// capturing the last tailSize bytes. A tailSize of 0 uses DefaultOutputTail.
func New(stream io.Writer, tailSize int) *Runner {
	if tailSize <= 0 {
		tailSize = DefaultOutputTail
	}
	return &Runner{stream: stream, tailSize: tailSize}
}

// Run executes command with cwd as the working directory. A lone cd command
// is performed in-process: no subprocess is spawned and the returned
// Result's WorkDir carries the new directory for the caller to apply.
func (r *Runner) Run(ctx context.Context, command, cwd string) Result {
	if target, ok := chdirTarget(command); ok {
		return changeDir(command, target, cwd)
	}

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)
	cmd.Dir = cwd
	cmd.Stdin = os.Stdin

	tail := newTailWriter(r.tailSize)
	var sink io.Writer = tail
	if r.stream != nil {
		sink = io.MultiWriter(r.stream, tail)
	}
	cmd.Stdout = sink
	cmd.Stderr = sink

	err := cmd.Run()

	res := Result{
		Command: command,
		Output:  tail.String(),
		WorkDir: cwd,
		Success: err == nil,
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			// Spawn failure: no exit code to report.
			res.ExitCode = -1
			res.Err = err
			if res.Output == "" {
				res.Output = err.Error()
			}
		}
	}
	return res
}

// changeDir resolves and validates an in-process directory change.
func changeDir(command, target, cwd string) Result {
	resolved := target
	if resolved == "" || resolved == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return cdFailure(command, cwd, "cd: cannot resolve home directory")
		}
		resolved = home
	} else if strings.HasPrefix(resolved, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return cdFailure(command, cwd, "cd: cannot resolve home directory")
		}
		resolved = filepath.Join(home, resolved[2:])
	}
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(cwd, resolved)
	}
	resolved = filepath.Clean(resolved)

	info, err := os.Stat(resolved)
	if err != nil || !info.IsDir() {
		return cdFailure(command, cwd, "cd: no such directory: "+target)
	}

	return Result{Command: command, WorkDir: resolved, Success: true}
}

func cdFailure(command, cwd, msg string) Result {
	return Result{Command: command, Output: msg, ExitCode: 1, WorkDir: cwd}
}

// chdirTarget reports whether command is a lone cd and returns its target.
// Commands that only look like cd (pipelines, cd with expansions) fall
// through to the subprocess path, where the directory change is confined to
// the child and therefore harmless.
func chdirTarget(command string) (string, bool) {
	parser := syntax.NewParser(syntax.Variant(syntax.LangBash))
	prog, err := parser.Parse(strings.NewReader(command), "")
	if err != nil || len(prog.Stmts) != 1 {
		return "", false
	}
	call, ok := prog.Stmts[0].Cmd.(*syntax.CallExpr)
	if !ok || len(call.Assigns) > 0 || len(call.Args) == 0 || len(call.Args) > 2 {
		return "", false
	}
	if lit := literalWord(call.Args[0]); lit != "cd" {
		return "", false
	}
	if len(call.Args) == 1 {
		return "", true // bare cd goes home
	}
	target := literalWord(call.Args[1])
	if target == "" {
		return "", false // expansions, quotes with substitutions, etc.
	}
	return target, true
}

// literalWord returns the word's value when it is composed purely of
// literal and single-quoted parts, or "" otherwise.
func literalWord(w *syntax.Word) string {
	var sb strings.Builder
	for _, part := range w.Parts {
		switch p := part.(type) {
		case *syntax.Lit:
			sb.WriteString(p.Value)
		case *syntax.SglQuoted:
			sb.WriteString(p.Value)
		case *syntax.DblQuoted:
			for _, inner := range p.Parts {
				lit, ok := inner.(*syntax.Lit)
				if !ok {
					return ""
				}
				sb.WriteString(lit.Value)
			}
		default:
			return ""
		}
	}
	return sb.String()
}

// tailWriter keeps the last max bytes written to it.
type tailWriter struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func newTailWriter(max int) *tailWriter {
	return &tailWriter{max: max}
}

func (t *tailWriter) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.max {
		t.buf = append(t.buf[:0:0], t.buf[len(t.buf)-t.max:]...)
	}
	return len(p), nil
}

func (t *tailWriter) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
