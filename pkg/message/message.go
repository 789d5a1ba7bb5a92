// Package message defines the chat Message entity and the Message Builder,
// the accumulator that owns a single in-flight assistant message during
// streaming.
package message

import (
	"time"

	"github.com/copperleaf-dev/agentstream/pkg/content"
	"github.com/copperleaf-dev/agentstream/pkg/toolcall"
)

// Role is a Message's immutable role.
type Role string

const (
	RoleUser             Role = "user"
	RoleAssistant        Role = "assistant"
	RoleAssistantThought Role = "assistant (thought)"
	RoleSystem           Role = "system"
)

// Format is the rendering hint for a Message's content.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
)

// Status is a Message's lifecycle stage.
type Status string

const (
	StatusStreaming Status = "streaming"
	StatusComplete  Status = "complete"
	StatusCancelled Status = "cancelled"
)

// StopReason is why a message finished.
type StopReason string

const (
	StopReasonStop       StopReason = "stop"
	StopReasonLength     StopReason = "length"
	StopReasonToolCalls  StopReason = "tool_calls"
	StopReasonCancelled  StopReason = "cancelled"
)

// SubSessionInfo stamps a message produced inside a delegated sub-session.
type SubSessionInfo struct {
	SessionID       string `json:"sessionId"`
	ParentSessionID string `json:"parentSessionId"`
	UserSessionID   string `json:"userSessionId"`
}

// Metadata carries everything attached to a Message besides its content.
// ToolCalls/ToolResults are the only fields ever mutated after a message
// is appended to a session (backward attachment).
type Metadata struct {
	InputTokens  *int                  `json:"inputTokens,omitempty"`
	OutputTokens *int                  `json:"outputTokens,omitempty"`
	StopReason   StopReason            `json:"stopReason,omitempty"`
	ToolCalls    []toolcall.ToolCall   `json:"toolCalls,omitempty"`
	ToolResults  []toolcall.ToolResult `json:"toolResults,omitempty"`
	IsSubSession bool                  `json:"isSubSession,omitempty"`
	SubSession   *SubSessionInfo       `json:"subSession,omitempty"`
}

// Message is one entry in a session's ordered history.
type Message struct {
	ID        string                 `json:"id"`
	Role      Role                   `json:"role"`
	Content   content.MessageContent `json:"content"`
	Timestamp time.Time              `json:"timestamp"`
	Format    Format                 `json:"format"`
	Metadata  *Metadata              `json:"metadata,omitempty"`
	Status    Status                 `json:"status"`
}

// AppendToolCalls merges a completed call+result pair into this message's
// metadata — the one mutation a Message undergoes after creation.
func (m *Message) AppendToolCalls(pairs []toolcall.ToolCallWithResult) {
	if len(pairs) == 0 {
		return
	}
	if m.Metadata == nil {
		m.Metadata = &Metadata{}
	}
	for _, p := range pairs {
		m.Metadata.ToolCalls = append(m.Metadata.ToolCalls, p.Call)
		m.Metadata.ToolResults = append(m.Metadata.ToolResults, p.Result)
	}
}
