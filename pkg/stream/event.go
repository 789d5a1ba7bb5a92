// Package stream is the Event Stream Processor: a dispatching state
// machine that routes typed transport events to the Message Builder, Tool
// Call Manager, and Session State Store, and publishes derived events on
// the Typed Event Bus.
package stream

import "encoding/json"

// ToolCallPayload is one tool call as carried on a tool_call event.
type ToolCallPayload struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// ToolResultPayload is one tool result as carried on a tool_call event.
type ToolResultPayload struct {
	ToolUseID string          `json:"tool_use_id"`
	Content   json.RawMessage `json:"content"`
	IsError   bool            `json:"is_error"`
}

// SessionPayload is the session record carried on chat_session_changed,
// either already-normalized runtime messages or raw MessageParams — the
// processor tells the two apart by sniffing each entry of Messages for a
// "timestamp" key (looksLikeRuntimeMessage).
type SessionPayload struct {
	SessionID         string            `json:"session_id"`
	AgentName         string            `json:"agent_name"`
	SessionName       string            `json:"session_name"`
	TokenCount        int               `json:"token_count"`
	ContextWindowSize int               `json:"context_window_size"`
	UserID            string            `json:"user_id"`
	Metadata          map[string]any    `json:"metadata"`
	AgentConfig       map[string]any    `json:"agent_config"`
	Messages          []json.RawMessage `json:"messages"`
}

// Event is the inbound transport envelope: a type discriminant plus every
// field any recognized event type may carry. The transport is expected to
// deliver parsed JSON objects (§6); unused fields for a given Type are
// simply zero.
type Event struct {
	Type            string `json:"type"`
	SessionID       string `json:"session_id,omitempty"`
	Role            string `json:"role,omitempty"`
	ParentSessionID string `json:"parent_session_id,omitempty"`
	UserSessionID   string `json:"user_session_id,omitempty"`

	// interaction
	Started *bool `json:"started,omitempty"`

	// text_delta / thought_delta
	Delta string `json:"delta,omitempty"`

	// completion
	Running      *bool  `json:"running,omitempty"`
	InputTokens  *int   `json:"input_tokens,omitempty"`
	OutputTokens *int   `json:"output_tokens,omitempty"`
	StopReason   string `json:"stop_reason,omitempty"`

	// tool_select_delta
	ToolID    string `json:"tool_id,omitempty"`
	ToolName  string `json:"tool_name,omitempty"`
	Arguments string `json:"arguments,omitempty"`

	// tool_call
	Active      *bool             `json:"active,omitempty"`
	ToolCalls   []ToolCallPayload `json:"tool_calls,omitempty"`
	ToolResults []ToolResultPayload `json:"tool_results,omitempty"`

	// render_media
	ContentType    string `json:"content_type,omitempty"`
	Content        string `json:"content,omitempty"`
	SentByClass    string `json:"sent_by_class,omitempty"`
	SentByFunction string `json:"sent_by_function,omitempty"`
	ForeignContent bool   `json:"foreign_content,omitempty"`
	URL            string `json:"url,omitempty"`
	Name           string `json:"name,omitempty"`

	// system_message
	Format   string `json:"format,omitempty"`
	Severity string `json:"severity,omitempty"`

	// error
	ErrorType    string `json:"error_type,omitempty"`
	ErrorMessage string `json:"message,omitempty"`
	ErrorSource  string `json:"source,omitempty"`

	// history_delta
	Messages []json.RawMessage `json:"messages,omitempty"`

	// chat_session_changed
	Session *SessionPayload `json:"session,omitempty"`

	// user_message / openai_user_message / anthropic_user_message
	MessageContent json.RawMessage `json:"content_blocks,omitempty"`

	// subsession_started
	SubSessionType string `json:"sub_session_type,omitempty"`
	SubAgentType   string `json:"sub_agent_type,omitempty"`
	PrimeAgentKey  string `json:"prime_agent_key,omitempty"`
	SubAgentKey    string `json:"sub_agent_key,omitempty"`
}
