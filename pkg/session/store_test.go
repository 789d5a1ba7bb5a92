package session

import (
	"testing"

	"github.com/copperleaf-dev/agentstream/pkg/message"
	"github.com/copperleaf-dev/agentstream/pkg/toolcall"
)

func newStoreWithSession(id string) *Store {
	s := NewStore()
	s.SetCurrentSession(&Session{ID: id})
	return s
}

func TestAppendMessageAdvancesTokenCount(t *testing.T) {
	s := newStoreWithSession("s1")
	in, out := 10, 5
	err := s.AppendMessage("s1", message.Message{ID: "m1", Role: message.RoleAssistant, Metadata: &message.Metadata{InputTokens: &in, OutputTokens: &out}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.GetCurrentSession().TokenCount != 15 {
		t.Fatalf("expected token count 15, got %d", s.GetCurrentSession().TokenCount)
	}
}

func TestAttachToolCallsFindsLastStrictAssistant(t *testing.T) {
	s := newStoreWithSession("s1")
	_ = s.AppendMessage("s1", message.Message{ID: "m1", Role: message.RoleUser})
	_ = s.AppendMessage("s1", message.Message{ID: "m2", Role: message.RoleAssistant})
	_ = s.AppendMessage("s1", message.Message{ID: "m3", Role: message.RoleAssistantThought})

	pairs := []toolcall.ToolCallWithResult{{Call: toolcall.ToolCall{ID: "x1", Name: "workspace_read"}, Result: toolcall.ToolResult{ToolUseID: "x1", Content: "file contents"}}}
	id, attached := s.AttachToolCalls("s1", pairs)
	if !attached || id != "m2" {
		t.Fatalf("expected attach to m2 (skipping thought), got %q/%v", id, attached)
	}

	sess := s.GetCurrentSession()
	if len(sess.Messages[1].Metadata.ToolCalls) != 1 || sess.Messages[1].Metadata.ToolCalls[0].Name != "workspace_read" {
		t.Fatalf("expected tool call attached to m2, got %+v", sess.Messages[1].Metadata)
	}
}

func TestAttachToolCallsNoAssistantFails(t *testing.T) {
	s := newStoreWithSession("s1")
	_ = s.AppendMessage("s1", message.Message{ID: "m1", Role: message.RoleUser})

	_, attached := s.AttachToolCalls("s1", []toolcall.ToolCallWithResult{{Call: toolcall.ToolCall{ID: "x1"}}})
	if attached {
		t.Fatalf("expected no attachment target")
	}
}

func TestAttachToolCallsEmptySessionFails(t *testing.T) {
	s := newStoreWithSession("s1")
	_, attached := s.AttachToolCalls("s1", []toolcall.ToolCallWithResult{{Call: toolcall.ToolCall{ID: "x1"}}})
	if attached {
		t.Fatalf("expected no attachment target on empty session")
	}
}

func TestPendingToolBufferDrainsAndClears(t *testing.T) {
	s := newStoreWithSession("s1")
	pair := toolcall.ToolCallWithResult{Call: toolcall.ToolCall{ID: "x1"}}
	s.PushPendingTools("s1", []toolcall.ToolCallWithResult{pair})

	if !s.HasPendingToolCalls("s1") {
		t.Fatalf("expected pending tools present")
	}
	drained := s.DrainPendingTools("s1")
	if len(drained) != 1 {
		t.Fatalf("expected one drained pair, got %d", len(drained))
	}
	if s.HasPendingToolCalls("s1") {
		t.Fatalf("expected pending buffer empty after drain")
	}
}

func TestPendingToolBufferIsPartitionedBySession(t *testing.T) {
	s := NewStore()
	s.PushPendingTools("s1", []toolcall.ToolCallWithResult{{Call: toolcall.ToolCall{ID: "x1"}}})
	if s.HasPendingToolCalls("s2") {
		t.Fatalf("expected session s2 to have no pending tools")
	}
}

func TestUpdateMessageUnknownIDFails(t *testing.T) {
	s := newStoreWithSession("s1")
	_ = s.AppendMessage("s1", message.Message{ID: "m1", Role: message.RoleAssistant})
	_, err := s.UpdateMessage("s1", "does-not-exist", func(m *message.Metadata) {})
	if err != ErrMessageNotFound {
		t.Fatalf("expected ErrMessageNotFound, got %v", err)
	}
}
