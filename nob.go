// Package nob defines the shared types for nob, an interactive shell front
// end that pairs a raw-terminal line editor with an approval-gated agent
// loop backed by a text-generation API.
package nob

import "time"

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in the bounded conversation window sent to the
// text-generation service.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTurn creates a turn stamped with the current time.
func NewTurn(role Role, content string) Turn {
	return Turn{Role: role, Content: content, Timestamp: time.Now()}
}

// ProposalKind discriminates the interpreted forms of a model reply.
type ProposalKind int

const (
	// ProposalConversational is a plain-text reply with nothing to run.
	ProposalConversational ProposalKind = iota
	// ProposalAction carries a shell command awaiting approval.
	ProposalAction
	// ProposalDone reports the task finished with no further command.
	ProposalDone
)

// Proposal is the interpreted, structured form of a model's free-form
// textual reply. It is immutable once constructed.
type Proposal struct {
	Kind    ProposalKind
	Text    string // conversational reply (ProposalConversational only)
	Thought string // model's stated reasoning, may be empty
	Command string // shell command to run (ProposalAction only)
	// Continues reports whether the model expects more steps after this
	// command. False means the command, once run, completes the task.
	Continues bool
}

// Error describes a machine-readable failure surfaced to the user.
type Error struct {
	// Code is a stable identifier (e.g. "not_configured", "api_error",
	// "rate_limited").
	Code string `json:"code"`
	// Message is a human-readable description.
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}
