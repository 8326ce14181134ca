// Package agent drives the ask-interpret-approve-execute loop: it sends the
// conversation to a text-generation service, interprets the reply into a
// proposal, and runs approved commands until the model reports completion.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	nob "github.com/hetpatel-11/nob"
	"github.com/hetpatel-11/nob/interpret"
	"github.com/hetpatel-11/nob/shellexec"
)

// CommandRunner executes one shell command and reports its result,
// including the working directory the next command should start from.
type CommandRunner interface {
	Run(ctx context.Context, command, workDir string) shellexec.Result
}

// Approver asks the human whether a proposed command may run.
type Approver interface {
	Approve(command string, continues bool) (bool, error)
}

// Outcome summarizes how one agent request ended.
type Outcome int

const (
	// OutcomeConversational means the model replied with text only.
	OutcomeConversational Outcome = iota
	// OutcomeDone means the model declared the task complete.
	OutcomeDone
	// OutcomeSkipped means the human rejected a proposed command.
	OutcomeSkipped
	// OutcomeError means generation or interpretation could not proceed.
	OutcomeError
)

// maxSteps bounds one request's command loop so a model that never reports
// completion cannot run forever.
const maxSteps = 16

const (
	defaultWindow  = 10
	defaultTimeout = 30 * time.Second
)

// Controller owns one agent conversation. It is not safe for concurrent
// use; the REPL drives it from a single goroutine.
type Controller struct {
	gen      TextGenerator
	runner   CommandRunner
	approver Approver
	out      io.Writer

	systemPrompt string
	window       int
	timeout      time.Duration

	turns   []nob.Turn
	workDir string

	// related, when set, supplies shell-history commands relevant to the
	// user's request; they are folded into the first turn as context.
	related func(input string) []string
}

// New creates a controller. cfg may be nil to take defaults.
func New(gen TextGenerator, runner CommandRunner, approver Approver, out io.Writer, systemPrompt, workDir string, cfg *nob.Config) *Controller {
	c := &Controller{
		gen:          gen,
		runner:       runner,
		approver:     approver,
		out:          out,
		systemPrompt: systemPrompt,
		window:       defaultWindow,
		timeout:      defaultTimeout,
		workDir:      workDir,
	}
	if cfg != nil {
		if cfg.Agent.HistoryTurns > 0 {
			c.window = cfg.Agent.HistoryTurns
		}
		if cfg.Agent.RequestTimeoutSec > 0 {
			c.timeout = time.Duration(cfg.Agent.RequestTimeoutSec) * time.Second
		}
	}
	return c
}

// SetRelated installs a supplier of relevant history commands.
func (c *Controller) SetRelated(f func(input string) []string) { c.related = f }

// WorkDir returns the directory the next command will start in.
func (c *Controller) WorkDir() string { return c.workDir }

// SetWorkDir updates the starting directory for subsequent commands.
func (c *Controller) SetWorkDir(dir string) { c.workDir = dir }

// Reset discards the conversation so the next request starts fresh.
func (c *Controller) Reset() { c.turns = nil }

// Turns returns the number of accumulated conversation turns.
func (c *Controller) Turns() int { return len(c.turns) }

// Start handles one user request: it converses with the model, asks for
// approval before every command, executes approved commands, and feeds
// results back until the model stops proposing work.
func (c *Controller) Start(ctx context.Context, input string) (Outcome, error) {
	if c.gen == nil {
		return OutcomeError, &nob.Error{
			Code:    "not_configured",
			Message: "no generation API configured; run `config path` and set an API key",
		}
	}

	c.turns = append(c.turns, nob.NewTurn(nob.RoleUser, c.userContent(input)))

	for step := 0; step < maxSteps; step++ {
		raw, err := c.generate(ctx)
		if err != nil {
			c.reportGenerateError(err)
			return OutcomeError, err
		}
		c.turns = append(c.turns, nob.NewTurn(nob.RoleAssistant, raw))

		prop := interpret.Interpret(raw)
		switch prop.Kind {
		case nob.ProposalConversational:
			fmt.Fprintf(c.out, "%s\n", prop.Text)
			return OutcomeConversational, nil

		case nob.ProposalDone:
			if prop.Thought != "" {
				c.showThought(prop.Thought)
			}
			fmt.Fprintln(c.out, "task complete")
			return OutcomeDone, nil

		case nob.ProposalAction:
			if prop.Thought != "" {
				c.showThought(prop.Thought)
			}

			approved, err := c.approver.Approve(prop.Command, prop.Continues)
			if err != nil {
				return OutcomeError, err
			}
			if !approved {
				fmt.Fprintf(c.out, "skipped: %s\n", prop.Command)
				return OutcomeSkipped, nil
			}

			prevDir := c.workDir
			res := c.runner.Run(ctx, prop.Command, c.workDir)
			c.workDir = res.WorkDir
			if res.Err != nil {
				slog.Debug("command failed to start", "command", prop.Command, "error", res.Err)
			}

			if !prop.Continues {
				return OutcomeDone, nil
			}
			c.turns = append(c.turns, nob.NewTurn(nob.RoleUser, resultContent(res, prevDir)))
		}
	}

	err := fmt.Errorf("agent stopped after %d steps without completing", maxSteps)
	fmt.Fprintf(c.out, "%v\n", err)
	return OutcomeError, err
}

// generate sends the bounded conversation window with a per-request
// deadline.
func (c *Controller) generate(ctx context.Context) (string, error) {
	genCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	window := c.turns
	if len(window) > c.window {
		window = window[len(window)-c.window:]
	}
	return c.gen.Generate(genCtx, c.systemPrompt, window)
}

// userContent folds relevant history commands and the current working
// directory into the request so the model knows how this user usually
// does similar things and where its commands will run.
func (c *Controller) userContent(input string) string {
	var b strings.Builder
	if c.related != nil {
		if cmds := c.related(input); len(cmds) > 0 {
			b.WriteString("Commands from this user's shell history that may be relevant:\n")
			for _, cmd := range cmds {
				b.WriteString("  " + cmd + "\n")
			}
			b.WriteString("\nRequest: ")
		}
	}
	b.WriteString(input)
	if c.workDir != "" {
		b.WriteString("\ncwd: " + c.workDir)
	}
	return b.String()
}

func (c *Controller) showThought(thought string) {
	fmt.Fprintf(c.out, "\x1b[2m%s\x1b[0m\n", thought)
}

func (c *Controller) reportGenerateError(err error) {
	var rate *RateLimitError
	if errors.As(err, &rate) {
		fmt.Fprintf(c.out, "rate limited by the generation API.\nhint: %s\n", rate.Hint)
		return
	}
	fmt.Fprintf(c.out, "generation failed: %v\n", err)
}

// resultContent renders a finished command as the next user turn. Output
// is already tail-truncated by the runner. When the command moved the
// working directory, the new path is reported so later proposals start
// from the right place.
func resultContent(res shellexec.Result, prevDir string) string {
	s := fmt.Sprintf("Command `%s` exited with code %d. Output:\n%s",
		res.Command, res.ExitCode, res.Output)
	if res.WorkDir != "" && res.WorkDir != prevDir {
		s += "\ncwd: " + res.WorkDir
	}
	return s
}
