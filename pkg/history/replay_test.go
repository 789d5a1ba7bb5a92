package history

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/copperleaf-dev/agentstream/pkg/events"
	"github.com/copperleaf-dev/agentstream/pkg/eventbus"
	"github.com/copperleaf-dev/agentstream/pkg/message"
)

func blockJSON(t *testing.T, blocks []map[string]any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(blocks)
	if err != nil {
		t.Fatalf("failed to marshal blocks: %v", err)
	}
	return raw
}

func TestReplayPlainTextMessages(t *testing.T) {
	bus := eventbus.NewBus()
	params := []MessageParam{
		{Role: "user", Content: json.RawMessage(`"Hello there"`)},
		{Role: "assistant", Content: json.RawMessage(`"Hi, how can I help?"`)},
	}

	out := Replay(context.Background(), bus, "s1", params)
	if len(out) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(out))
	}
	if out[0].Role != message.RoleUser || out[0].Content.AsText() != "Hello there" {
		t.Fatalf("unexpected first message: %+v", out[0])
	}
	if out[1].Role != message.RoleAssistant || out[1].Content.AsText() != "Hi, how can I help?" {
		t.Fatalf("unexpected second message: %+v", out[1])
	}
}

func TestReplayThinkToolExpandsToThoughtMessage(t *testing.T) {
	bus := eventbus.NewBus()
	params := []MessageParam{
		{Role: "assistant", Content: blockJSON(t, []map[string]any{
			{"type": "tool_use", "id": "t1", "name": "think", "input": map[string]any{"thought": "considering options"}},
			{"type": "text", "text": "Here is my answer."},
		})},
		{Role: "user", Content: blockJSON(t, []map[string]any{
			{"type": "tool_result", "tool_use_id": "t1", "content": "ok"},
		})},
	}

	out := Replay(context.Background(), bus, "s1", params)
	if len(out) != 2 {
		t.Fatalf("expected 2 messages (thought + text), got %d: %+v", len(out), out)
	}
	if out[0].Role != message.RoleAssistantThought || out[0].Content.AsText() != "considering options" {
		t.Fatalf("expected thought message, got %+v", out[0])
	}
	if out[1].Role != message.RoleAssistant || out[1].Content.AsText() != "Here is my answer." {
		t.Fatalf("expected assistant text message, got %+v", out[1])
	}
}

func TestReplayDelegationExpandsToSubSessionBoundary(t *testing.T) {
	bus := eventbus.NewBus()
	var started, ended int
	bus.Subscribe(func(ctx context.Context, name string, payload any) {
		switch name {
		case events.SubsessionStarted:
			started++
			p := payload.(events.SubsessionStartedPayload)
			if p.SubSessionType != "oneshot" || p.SubAgentType != "clone" {
				t.Fatalf("unexpected subsession-started payload: %+v", p)
			}
		case events.SubsessionEnded:
			ended++
		}
	})

	params := []MessageParam{
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

	out := Replay(context.Background(), bus, "s1", params)
	if started != 1 || ended != 1 {
		t.Fatalf("expected exactly one subsession-started/ended pair, got %d/%d", started, ended)
	}
	if len(out) != 2 {
		t.Fatalf("expected synthetic user+assistant pair, got %d: %+v", len(out), out)
	}
	if out[0].Role != message.RoleUser || out[0].Content.AsText() != "Analyze\n# Process Context\n\nFocus on X" {
		t.Fatalf("unexpected synthetic user message: %+v", out[0])
	}
	if out[1].Role != message.RoleAssistant || out[1].Content.AsText() != "Done." {
		t.Fatalf("unexpected synthetic assistant message: %+v", out[1])
	}
}

func TestReplayOrdinaryToolEmitsCompleteEventNoMessage(t *testing.T) {
	bus := eventbus.NewBus()
	var completes int
	bus.Subscribe(func(ctx context.Context, name string, payload any) {
		if name == events.ToolCallComplete {
			completes++
			p := payload.(events.ToolCallCompletePayload)
			if p.ToolCalls[0].Name != "workspace_read" {
				t.Fatalf("unexpected tool call: %+v", p)
			}
		}
	})

	params := []MessageParam{
		{Role: "assistant", Content: blockJSON(t, []map[string]any{
			{"type": "tool_use", "id": "c1", "name": "workspace_read", "input": map[string]any{"path": "a.go"}},
		})},
		{Role: "user", Content: blockJSON(t, []map[string]any{
			{"type": "tool_result", "tool_use_id": "c1", "content": "file contents"},
		})},
	}

	out := Replay(context.Background(), bus, "s1", params)
	if completes != 1 {
		t.Fatalf("expected one tool-call-complete event, got %d", completes)
	}
	if len(out) != 0 {
		t.Fatalf("expected no synthesized message for ordinary tool call, got %+v", out)
	}
}

func TestReplaySystemMessagePassesThrough(t *testing.T) {
	bus := eventbus.NewBus()
	params := []MessageParam{
		{Role: "system", Content: json.RawMessage(`"You are a helpful assistant."`)},
	}
	out := Replay(context.Background(), bus, "s1", params)
	if len(out) != 1 || out[0].Role != message.RoleSystem {
		t.Fatalf("expected single system message, got %+v", out)
	}
}

func TestReplayDeveloperRoleNormalizesToSystem(t *testing.T) {
	bus := eventbus.NewBus()
	out := ConvertMessageParam(context.Background(), MessageParam{Role: "developer", Content: json.RawMessage(`"be terse"`)})
	_ = bus
	if out.Role != message.RoleSystem {
		t.Fatalf("expected developer role normalized to system, got %v", out.Role)
	}
}
