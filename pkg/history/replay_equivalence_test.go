package history_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/copperleaf-dev/agentstream/pkg/events"
	"github.com/copperleaf-dev/agentstream/pkg/eventbus"
	"github.com/copperleaf-dev/agentstream/pkg/history"
	"github.com/copperleaf-dev/agentstream/pkg/message"
	"github.com/copperleaf-dev/agentstream/pkg/session"
	"github.com/copperleaf-dev/agentstream/pkg/stream"
)

// roleText is the role+text projection replay output and live-streamed
// output are compared on — everything but timestamps and ids, per §8's
// round-trip law.
type roleText struct {
	role message.Role
	text string
}

func projectMessages(msgs []message.Message) []roleText {
	out := make([]roleText, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, roleText{role: m.Role, text: m.Content.AsText()})
	}
	return out
}

func assertSameProjection(t *testing.T, replayed, live []roleText) {
	t.Helper()
	if len(replayed) != len(live) {
		t.Fatalf("length mismatch: replayed=%+v live=%+v", replayed, live)
	}
	for i := range replayed {
		if replayed[i] != live[i] {
			t.Fatalf("mismatch at %d: replayed=%+v live=%+v", i, replayed[i], live[i])
		}
	}
}

// liveMessages drives evs through a fresh Processor and returns, in
// publication order, every message.Message carried on a message-added or
// message-complete event — the live-streamed equivalent of a replayed
// sequence, since sub-session content never lands in the Store's own
// session (it is keyed by its own session id) but is still published on
// the bus for a UI to render.
func liveMessages(ctx context.Context, sessionID string, evs []stream.Event) []message.Message {
	bus := eventbus.NewBus()
	store := session.NewStore()
	store.SetCurrentSession(&session.Session{ID: sessionID})
	proc := stream.NewProcessor(store, bus)
	proc.SetUserSessionID(sessionID)

	var out []message.Message
	bus.Subscribe(func(ctx context.Context, name string, payload any) {
		switch name {
		case events.MessageAdded:
			out = append(out, payload.(events.MessageAddedPayload).Message)
		case events.MessageComplete:
			out = append(out, payload.(events.MessageCompletePayload).Message)
		}
	})

	for _, ev := range evs {
		proc.ProcessEvent(ctx, ev)
	}
	return out
}

func ptrBool(v bool) *bool { return &v }

func blockJSON(t *testing.T, blocks []map[string]any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(blocks)
	if err != nil {
		t.Fatalf("failed to marshal blocks: %v", err)
	}
	return raw
}

func TestReplayEquivalencePureText(t *testing.T) {
	ctx := context.Background()

	params := []history.MessageParam{
		{Role: "user", Content: json.RawMessage(`"Hello there"`)},
		{Role: "assistant", Content: json.RawMessage(`"Hi, how can I help?"`)},
	}
	replayed := history.Replay(ctx, eventbus.NewBus(), "s1", params)

	live := liveMessages(ctx, "s1", []stream.Event{
		{Type: "user_message", SessionID: "s1", MessageContent: json.RawMessage(`"Hello there"`)},
		{Type: "text_delta", SessionID: "s1", Delta: "Hi, how can I help?"},
		{Type: "completion", SessionID: "s1", Running: ptrBool(false), StopReason: "stop"},
	})

	assertSameProjection(t, projectMessages(replayed), projectMessages(live))
}

func TestReplayEquivalenceThinkTool(t *testing.T) {
	ctx := context.Background()

	params := []history.MessageParam{
		{Role: "assistant", Content: blockJSON(t, []map[string]any{
			{"type": "tool_use", "id": "t1", "name": "think", "input": map[string]any{"thought": "considering"}},
			{"type": "text", "text": "Here is my answer."},
		})},
		{Role: "user", Content: blockJSON(t, []map[string]any{
			{"type": "tool_result", "tool_use_id": "t1", "content": "ok"},
		})},
	}
	replayed := history.Replay(ctx, eventbus.NewBus(), "s1", params)

	live := liveMessages(ctx, "s1", []stream.Event{
		{Type: "tool_select_delta", SessionID: "s1", ToolID: "t1", ToolName: "think"},
		{Type: "thought_delta", SessionID: "s1", Delta: "considering"},
		{Type: "tool_call", SessionID: "s1", Active: ptrBool(false), ToolCalls: []stream.ToolCallPayload{{ID: "t1", Name: "think"}}},
		{Type: "text_delta", SessionID: "s1", Delta: "Here is my answer."},
		{Type: "completion", SessionID: "s1", Running: ptrBool(false), StopReason: "stop"},
	})

	assertSameProjection(t, projectMessages(replayed), projectMessages(live))
}

func TestReplayEquivalenceDelegation(t *testing.T) {
	ctx := context.Background()

	params := []history.MessageParam{
		{Role: "assistant", Content: blockJSON(t, []map[string]any{
			{"type": "tool_use", "id": "d1", "name": "act_oneshot", "input": map[string]any{
				"request":         "Analyze",
				"process_context": "Focus on X",
			}},
		})},
		{Role: "user", Content: blockJSON(t, []map[string]any{
			{"type": "tool_result", "tool_use_id": "d1", "content": "Done."},
		})},
	}
	replayed := history.Replay(ctx, eventbus.NewBus(), "s1", params)

	live := liveMessages(ctx, "s1", []stream.Event{
		{Type: "subsession_started", SessionID: "s1", SubSessionType: "oneshot", SubAgentType: "clone", SubAgentKey: "clone"},
		{Type: "user_message", SessionID: "sub1", UserSessionID: "s1", MessageContent: json.RawMessage(`"Analyze\n# Process Context\n\nFocus on X"`)},
		{Type: "text_delta", SessionID: "sub1", Delta: "Done."},
		{Type: "completion", SessionID: "sub1", Running: ptrBool(false), StopReason: "stop"},
		{Type: "subsession_ended", SessionID: "sub1"},
	})

	assertSameProjection(t, projectMessages(replayed), projectMessages(live))
}
