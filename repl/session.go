package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	nob "github.com/hetpatel-11/nob"
	"github.com/hetpatel-11/nob/agent"
	"github.com/hetpatel-11/nob/complete"
	defaults "github.com/hetpatel-11/nob/default"
	"github.com/hetpatel-11/nob/editor"
	"github.com/hetpatel-11/nob/history"
	"github.com/hetpatel-11/nob/shellexec"
)

const seedHistoryLines = 1000

type session struct {
	cfg  *nob.Config
	tty  *editor.Tty
	ed   *editor.Editor
	idx  *complete.Index
	ctrl *agent.Controller
	run  *shellexec.Runner
	out  io.Writer
	cwd  string
}

func runSession() error {
	cfg, err := nob.LoadConfig()
	if err != nil {
		slog.Warn("failed to load config, using defaults", "error", err)
		cfg = nob.DefaultConfig()
	}
	for _, w := range nob.ValidateConfig(cfg) {
		slog.Warn(w)
	}

	tty, err := editor.OpenTty()
	if err != nil {
		return fmt.Errorf("cannot open terminal: %w", err)
	}
	defer tty.Close()

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("cannot determine cwd: %w", err)
	}

	// stdout writer: converts \n to \r\n while the terminal may be in raw
	// mode, passes through unchanged when redirected.
	out := termWriter(os.Stdout)

	hist := &editor.History{}
	hist.Seed(history.ReadRecent(history.ResolveFilePath(), seedHistoryLines))

	idx := complete.NewWithLimits(
		hist.Newest,
		cfg.Completion.MaxCandidates,
		cfg.Completion.CacheEntries,
		time.Duration(cfg.Completion.QueryTimeoutMS)*time.Millisecond,
	)
	defer idx.Close()
	idx.SetWorkDir(cwd)

	ed := editor.New(tty, hist, idx)
	runner := shellexec.New(out, cfg.Agent.OutputTailBytes)

	var gen agent.TextGenerator
	if nob.ResolveGenerationAPIKey(cfg) != "" {
		gen = agent.NewGenerator(cfg)
	}
	ctrl := agent.New(gen, runner, &ttyApprover{ed: ed}, out, systemPrompt(), cwd, cfg)

	s := &session{cfg: cfg, tty: tty, ed: ed, idx: idx, ctrl: ctrl, run: runner, out: out, cwd: cwd}
	s.setupRelevance()
	s.banner()
	return s.loop()
}

// setupRelevance wires the optional semantic history index into the agent
// so requests carry similar past commands as context. Building runs in the
// background; searches before it finishes return nothing.
func (s *session) setupRelevance() {
	if !nob.EmbeddingEnabled(s.cfg) {
		return
	}

	emb := history.NewEmbedder(
		nob.ResolveEmbeddingBaseURL(s.cfg),
		nob.ResolveEmbeddingAPIKey(s.cfg),
		s.cfg.Embedding.Model,
	)
	hidx := history.NewIndex(emb)

	cachePath := filepath.Join(nob.ConfigDir(), "embeddings.json")
	if err := hidx.Load(cachePath, emb.Model()); err != nil {
		slog.Debug("no embedding cache loaded", "error", err)
	}

	go func() {
		cmds := history.ReadRecent(history.ResolveFilePath(), s.cfg.Embedding.MaxHistoryCommands)
		if err := hidx.Build(cmds); err != nil {
			slog.Warn("history indexing failed", "error", err)
			return
		}
		if err := hidx.Save(cachePath, emb.Model()); err != nil {
			slog.Warn("failed to save embedding cache", "error", err)
		}
	}()

	s.ctrl.SetRelated(func(input string) []string {
		select {
		case <-hidx.Ready():
		default:
			return nil
		}
		cmds, err := hidx.Search(input, 5)
		if err != nil {
			slog.Debug("history search failed", "error", err)
			return nil
		}
		return cmds
	})
}

func (s *session) banner() {
	fmt.Fprintf(s.out, "nob %s  (type `help` for commands)\n", Version)
}

func (s *session) loop() error {
	for {
		line, err := s.ed.ReadLine(s.prompt())
		if errors.Is(err, io.EOF) {
			return nil
		}
		if errors.Is(err, editor.ErrInterrupt) {
			continue
		}
		if err != nil {
			return fmt.Errorf("read error: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		handled, quit := s.builtin(line)
		if quit {
			return nil
		}
		if handled {
			continue
		}

		if s.ed.Mode() == editor.ModeAgent {
			s.agentTurn(line)
		} else {
			s.manualTurn(line)
		}
	}
}

// builtin handles session verbs; it reports whether the line was one and
// whether the session should end.
func (s *session) builtin(line string) (handled, quit bool) {
	switch line {
	case "exit", "quit":
		return true, true
	case "help":
		fmt.Fprint(s.out, "on       agent mode: describe what you want, approve proposed commands\n"+
			"off      manual mode: type shell commands, accept suggestions with tab\n"+
			"clear    forget the agent conversation\n"+
			"version  print version\n"+
			"exit     leave\n")
		return true, false
	case "version":
		fmt.Fprintf(s.out, "nob %s\n", Version)
		return true, false
	case "on":
		s.ed.SetMode(editor.ModeAgent)
		return true, false
	case "off":
		s.ed.SetMode(editor.ModeManual)
		return true, false
	case "clear":
		s.ctrl.Reset()
		fmt.Fprintln(s.out, "conversation cleared")
		return true, false
	}
	return false, false
}

// manualTurn runs the line directly as a shell command and follows any
// directory change it made.
func (s *session) manualTurn(line string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	res := s.run.Run(ctx, line, s.cwd)
	stop()

	if res.Err != nil {
		fmt.Fprintf(s.out, "%s: %v\n", line, res.Err)
	}
	s.setCwd(res.WorkDir)
}

// agentTurn hands the request to the controller and syncs the working
// directory afterward, since approved commands may have changed it.
func (s *session) agentTurn(line string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := s.ctrl.Start(ctx, line); err != nil {
		slog.Debug("agent request ended with error", "error", err)
	}
	s.setCwd(s.ctrl.WorkDir())
}

// setCwd propagates a directory change to everything that tracks it.
func (s *session) setCwd(dir string) {
	if dir == "" || dir == s.cwd {
		return
	}
	s.cwd = dir
	s.idx.SetWorkDir(dir)
	s.ctrl.SetWorkDir(dir)
}

// prompt renders the short cwd plus a mode marker. Kept free of escape
// codes so the editor's width math stays exact.
func (s *session) prompt() string {
	marker := "❯"
	if s.ed.Mode() == editor.ModeAgent {
		marker = "✦"
	}
	return shortPath(s.cwd) + " " + marker + " "
}

// shortPath abbreviates the home directory to ~ and long paths to their
// last two elements.
func shortPath(dir string) string {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		if dir == home {
			return "~"
		}
		if rest, ok := strings.CutPrefix(dir, home+string(os.PathSeparator)); ok {
			dir = "~" + string(os.PathSeparator) + rest
		}
	}
	parts := strings.Split(dir, string(os.PathSeparator))
	if len(parts) > 2 {
		parts = parts[len(parts)-2:]
	}
	return strings.Join(parts, string(os.PathSeparator))
}

// systemPrompt prefers a user-supplied prompt file over the built-in one.
func systemPrompt() string {
	if data, err := os.ReadFile(nob.PromptPath()); err == nil && len(data) > 0 {
		return string(data)
	}
	return defaults.DefaultPrompt
}

// ttyApprover asks for single-key confirmation before a proposed command
// runs.
type ttyApprover struct {
	ed *editor.Editor
}

func (a *ttyApprover) Approve(command string, continues bool) (bool, error) {
	tail := ""
	if continues {
		tail = " (more steps follow)"
	}
	ok, err := a.ed.Confirm(fmt.Sprintf("run `%s`%s? [y/N] ", command, tail))
	if errors.Is(err, editor.ErrInterrupt) {
		return false, nil
	}
	return ok, err
}
