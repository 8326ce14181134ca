// Package interpret converts free-form model output into a typed Proposal.
//
// The recognized grammar is three labeled lines, matched case-insensitively
// and tolerant of missing fields:
//
//	THOUGHT: <free text>
//	COMMAND: <shell command>
//	STATUS:  <CONTINUE|DONE>
//
// Text that matches none of the labels falls through two heuristics (a
// backtick-quoted command, then a first line starting with a known command
// verb) before being treated as conversational. Interpret is a pure function:
// identical input always yields a structurally identical Proposal.
package interpret

import (
	"regexp"
	"strings"

	nob "github.com/hetpatel-11/nob"
)

var (
	reThought  = regexp.MustCompile(`(?im)^[ \t]*THOUGHT:[ \t]*(.+)$`)
	reCommand  = regexp.MustCompile(`(?im)^[ \t]*COMMAND:[ \t]*(.+)$`)
	reStatus   = regexp.MustCompile(`(?im)^[ \t]*STATUS:[ \t]*([A-Za-z_]+)`)
	reBacktick = regexp.MustCompile("`([^`\n]+)`")
)

// CommandVerbs is the fixed allow-list used by the bare-command fallback.
// It is deliberately incomplete: an unrecognized but valid command in free
// prose is treated as conversational rather than guessed at.
var CommandVerbs = map[string]bool{
	"awk": true, "cargo": true, "cat": true, "cd": true, "chmod": true,
	"chown": true, "cp": true, "curl": true, "df": true, "docker": true,
	"du": true, "echo": true, "find": true, "git": true, "go": true,
	"grep": true, "head": true, "kill": true, "kubectl": true, "ls": true,
	"make": true, "mkdir": true, "mv": true, "node": true, "npm": true,
	"pip": true, "ps": true, "pwd": true, "python": true, "python3": true,
	"rm": true, "scp": true, "sed": true, "ssh": true, "tail": true,
	"tar": true, "touch": true, "wget": true,
}

// Interpret parses raw model output into a Proposal. It never fails: text
// that matches nothing becomes a conversational proposal.
func Interpret(raw string) nob.Proposal {
	thought := firstGroup(reThought, raw)
	command := stripBackticks(firstGroup(reCommand, raw))
	status := strings.ToUpper(firstGroup(reStatus, raw))

	if command != "" {
		return nob.Proposal{
			Kind:      nob.ProposalAction,
			Thought:   thought,
			Command:   command,
			Continues: status == "CONTINUE",
		}
	}

	if status == "DONE" {
		return nob.Proposal{Kind: nob.ProposalDone, Thought: thought}
	}

	if cmd := fallbackCommand(raw); cmd != "" {
		return nob.Proposal{Kind: nob.ProposalAction, Thought: thought, Command: cmd}
	}

	return nob.Proposal{Kind: nob.ProposalConversational, Text: raw}
}

// fallbackCommand applies the bare-command heuristics: a backtick-quoted
// command whose first word is a known verb, then a first line starting with
// a known verb.
func fallbackCommand(raw string) string {
	if m := reBacktick.FindStringSubmatch(raw); m != nil {
		cmd := strings.TrimSpace(m[1])
		if cmd != "" && CommandVerbs[firstWord(cmd)] {
			return cmd
		}
	}

	line := raw
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	line = strings.TrimSpace(line)
	if line != "" && CommandVerbs[firstWord(line)] {
		return line
	}

	return ""
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func stripBackticks(s string) string {
	return strings.TrimSpace(strings.Trim(s, "`"))
}

// firstWord returns the first whitespace-delimited word of s.
func firstWord(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, ' '); i > 0 {
		return s[:i]
	}
	return s
}
