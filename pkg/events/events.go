// Package events defines the names and payload shapes the processor
// publishes on the Typed Event Bus (§6 of the outbound contract). Keeping
// these separate from pkg/stream lets both the live processor and the
// Resumed-History Mapper publish the same shapes without importing each
// other.
package events

import (
	"time"

	"github.com/copperleaf-dev/agentstream/pkg/message"
	"github.com/copperleaf-dev/agentstream/pkg/toolcall"
)

// Event names, exactly as named in the outbound contract.
const (
	MessageStreaming      = "message-streaming"
	MessageComplete       = "message-complete"
	MessageAdded          = "message-added"
	MessageUpdated        = "message-updated"
	SessionMessagesLoaded = "session-messages-loaded"
	ToolNotification      = "tool-notification"
	ToolNotificationGone  = "tool-notification-removed"
	ToolCallComplete      = "tool-call-complete"
	MediaAdded            = "media-added"
	SystemMessage         = "system_message"
	Error                 = "error"
	SubsessionStarted     = "subsession-started"
	SubsessionEnded       = "subsession-ended"
	ResponseCancelled     = "response-cancelled"
	UserMessage           = "user-message"
	SessionsUpdated       = "sessions-updated"
)

type MessageStreamingPayload struct {
	SessionID string
	Message   message.Message
}

type MessageCompletePayload struct {
	SessionID string
	Message   message.Message
}

type MessageAddedPayload struct {
	SessionID string
	Message   message.Message
}

type MessageUpdatedPayload struct {
	SessionID string
	MessageID string
	Message   message.Message
}

type SessionMessagesLoadedPayload struct {
	SessionID string
	Messages  []message.Message
}

type ToolNotificationPayload struct {
	ID        string
	ToolName  string
	Status    toolcall.NotificationStatus
	SessionID string
	Timestamp time.Time
	Arguments string
}

type ToolNotificationRemovedPayload struct {
	SessionID  string
	ToolCallID string
}

type ToolCallCompletePayload struct {
	ToolCalls   []toolcall.ToolCall
	ToolResults []toolcall.ToolResult
}

type MediaMetadata struct {
	SentByClass    string
	SentByFunction string
	ForeignContent bool
	URL            string
	Name           string
}

type MediaItem struct {
	ID          string
	Role        string
	Type        string
	Content     string
	ContentType string
	Timestamp   time.Time
	Status      string
	Metadata    MediaMetadata
}

type MediaAddedPayload struct {
	SessionID string
	Media     MediaItem
}

type SystemMessagePayload struct {
	Type            string
	SessionID       string
	Role            string
	Content         string
	Format          string
	Severity        string
	ParentSessionID string
	UserSessionID   string
}

type ErrorPayload struct {
	Type      string
	Message   string
	Source    string
	Timestamp time.Time
}

type SubsessionStartedPayload struct {
	SubSessionType string
	SubAgentType   string
	PrimeAgentKey  string
	SubAgentKey    string
}

type SubsessionEndedPayload struct{}

type ResponseCancelledPayload struct{}

type UserMessagePayload struct {
	Vendor  string
	Message message.Message
}

// SessionsUpdatedPayload mirrors the outbound sessions-updated event; per
// §4.E's history_delta row this carries the messages processed from that
// delta, not a list of Session records.
type SessionsUpdatedPayload struct {
	SessionID string
	Messages  []message.Message
}
