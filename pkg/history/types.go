// Package history is the Resumed-History Mapper: it replays a persisted
// array of vendor-format message parameters as a normalized Message
// sequence, so that resuming a session renders identically to having
// streamed it live.
package history

import (
	"encoding/json"
	"time"
)

// MessageParam is the wire shape of one persisted message: Anthropic-style
// {role: user|assistant, content} or OpenAI-style
// {role: user|assistant|system|developer|tool|function, content}.
type MessageParam struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// SessionParam is a persisted session record, per §6's session-persistence
// format.
type SessionParam struct {
	SessionID         string         `json:"session_id"`
	Version           int            `json:"version"`
	TokenCount        int            `json:"token_count"`
	ContextWindowSize int            `json:"context_window_size"`
	SessionName       string         `json:"session_name"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         *time.Time     `json:"deleted_at,omitempty"`
	UserID            string         `json:"user_id"`
	Metadata          map[string]any `json:"metadata"`
	AgentConfig       map[string]any `json:"agent_config"`
	Messages          []MessageParam `json:"messages"`
}
