package message

import (
	"errors"
	"sync"
	"time"

	"github.com/copperleaf-dev/agentstream/pkg/content"
	"github.com/google/uuid"
)

// ErrNoCurrentMessage is returned by AppendText when there is no in-flight
// message to append to.
var ErrNoCurrentMessage = errors.New("message: no in-flight message")

// Builder owns the single in-flight assistant (or assistant-thought)
// message during one interaction turn. It is exclusive to that turn: two
// deltas of mismatched kind cannot coexist, mirroring the buffering-and-
// mode-flip shape of a stream that multiplexes text and reasoning out of
// one token channel.
type Builder struct {
	mu      sync.Mutex
	current *Message
	text    string
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// HasCurrent reports whether a message is in flight.
func (b *Builder) HasCurrent() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current != nil
}

// CurrentType returns the in-flight message's role and true, or the zero
// Role and false if nothing is in flight.
func (b *Builder) CurrentType() (Role, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return "", false
	}
	return b.current.Role, true
}

// Current returns a snapshot of the in-flight message, or nil.
func (b *Builder) Current() *Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return nil
	}
	snapshot := *b.current
	snapshot.Content = content.Text(b.text)
	return &snapshot
}

// Start allocates a fresh in-flight message with the given role, empty
// content, a new id, and status streaming. Any previous in-flight message
// is discarded without finalizing — callers that need the prior message
// finalized must do so before calling Start.
func (b *Builder) Start(role Role) *Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	format := FormatText
	if role == RoleAssistantThought {
		format = FormatMarkdown
	}
	b.current = &Message{
		ID:        uuid.NewString(),
		Role:      role,
		Timestamp: time.Now(),
		Format:    format,
		Status:    StatusStreaming,
	}
	b.text = ""
	snapshot := *b.current
	return &snapshot
}

// AppendText concatenates delta onto the in-flight message's content. It
// fails only if there is no current message.
func (b *Builder) AppendText(delta string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return ErrNoCurrentMessage
	}
	b.text += delta
	return nil
}

// Finalize stamps status complete, attaches meta, returns the finalized
// message, and clears the in-flight slot. Finalize on an empty Builder
// returns nil.
func (b *Builder) Finalize(meta *Metadata) *Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return nil
	}

	final := *b.current
	final.Content = content.Text(b.text)
	final.Status = StatusComplete
	final.Metadata = meta

	b.current = nil
	b.text = ""
	return &final
}

// Reset discards any in-flight message without finalizing it.
func (b *Builder) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = nil
	b.text = ""
}
