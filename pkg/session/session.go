// Package session holds the current chat session's ordered message list,
// token accounting, and per-session pending-tool buffers. It is the single
// mutable shared resource besides the Message Builder's in-flight message.
package session

import (
	"time"

	"github.com/copperleaf-dev/agentstream/pkg/message"
)

// Vendor identifies which model family a session is talking to, detected
// from its persisted agent_config.
type Vendor string

const (
	VendorAnthropic Vendor = "anthropic"
	VendorOpenAI    Vendor = "openai"
	VendorNone      Vendor = "none"
)

// Session is one chat session's state.
type Session struct {
	ID                string
	Messages          []message.Message
	TokenCount        int
	ContextWindowSize int
	CreatedAt         time.Time
	UpdatedAt         time.Time
	UserID            string
	Metadata          map[string]any
	AgentConfig       map[string]any
	Vendor            Vendor
	DisplayName       string
}
