package complete

import (
	"sort"
	"strings"
)

// toolCommands maps recognized tools to their common sub-commands. The
// tables are static on purpose: they are a prefix filter, not a manual.
var toolCommands = map[string][]string{
	"git": {
		"add", "bisect", "blame", "branch", "checkout", "cherry-pick",
		"clone", "commit", "diff", "fetch", "init", "log", "merge", "pull",
		"push", "rebase", "remote", "reset", "restore", "revert", "show",
		"stash", "status", "switch", "tag", "worktree",
	},
	"docker": {
		"build", "compose", "container", "exec", "image", "images", "logs",
		"network", "ps", "pull", "push", "rm", "rmi", "run", "start",
		"stop", "volume",
	},
	"kubectl": {
		"apply", "config", "create", "delete", "describe", "exec", "get",
		"logs", "port-forward", "rollout", "scale", "top",
	},
	"npm": {
		"audit", "ci", "init", "install", "link", "publish", "run",
		"start", "test", "uninstall", "update",
	},
	"pnpm": {
		"add", "install", "link", "publish", "remove", "run", "start",
		"test", "update",
	},
	"yarn": {"add", "install", "remove", "run", "test", "upgrade"},
	"cargo": {
		"add", "bench", "build", "check", "clean", "clippy", "doc", "fmt",
		"install", "new", "run", "test", "update",
	},
	"go": {
		"build", "clean", "doc", "env", "fmt", "generate", "get",
		"install", "list", "mod", "run", "test", "tool", "version", "vet",
		"work",
	},
	"pip":  {"download", "freeze", "install", "list", "show", "uninstall"},
	"uv":   {"add", "init", "lock", "pip", "remove", "run", "sync", "venv"},
	"brew": {"cleanup", "info", "install", "list", "search", "services", "uninstall", "update", "upgrade"},
	"systemctl": {
		"daemon-reload", "disable", "enable", "restart", "start", "status", "stop",
	},
	"make": {},
	"just": {},
}

func isToolCommand(name string) bool {
	_, ok := toolCommands[name]
	return ok
}

// toolCandidates builds the candidate pool for a recognized tool given the
// already-completed arguments and the in-progress last token, then filters
// by prefix. Project context (branches, scripts, targets) is merged in
// where the argument position calls for it; every contextual lookup is
// best-effort.
func (i *Index) toolCandidates(tool string, args []string, last, cwd string) []string {
	var pool []string

	if len(args) == 0 {
		pool = append(pool, toolCommands[tool]...)
		// Tools whose first argument is a project-defined name rather
		// than a sub-command.
		switch tool {
		case "make":
			pool = append(pool, i.dirCtx.Get(cwd).MakeTargets...)
		case "just":
			pool = append(pool, i.dirCtx.Get(cwd).JustRecipes...)
		}
	} else {
		pool = contextArgs(tool, args, i.dirCtx.Get(cwd))
	}

	prefix := strings.ToLower(last)
	var out []string
	for _, cand := range pool {
		if strings.HasPrefix(strings.ToLower(cand), prefix) && cand != last {
			out = append(out, cand)
		}
	}
	sort.Strings(out)
	return out
}

// contextArgs returns dynamic candidates for argument positions past the
// sub-command: branch names after checkout, modified files after add,
// declared script names after run, and so on.
func contextArgs(tool string, args []string, ctx *DirContext) []string {
	if ctx == nil {
		return nil
	}
	sub := args[0]

	switch tool {
	case "git":
		switch sub {
		case "checkout", "switch", "merge", "rebase", "branch":
			return ctx.Branches
		case "add", "restore", "diff":
			return ctx.ModifiedFiles
		}
	case "npm", "pnpm":
		if sub == "run" {
			return ctx.Scripts
		}
	case "yarn":
		if sub == "run" {
			return ctx.Scripts
		}
	case "cargo":
		if sub == "run" {
			return ctx.CargoBins
		}
	case "uv":
		if sub == "run" {
			return ctx.PyScripts
		}
	case "make":
		return ctx.MakeTargets
	case "just":
		return ctx.JustRecipes
	}
	return nil
}
