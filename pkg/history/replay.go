package history

import (
	"context"
	"strings"

	"github.com/copperleaf-dev/agentstream/pkg/content"
	"github.com/copperleaf-dev/agentstream/pkg/events"
	"github.com/copperleaf-dev/agentstream/pkg/eventbus"
	"github.com/copperleaf-dev/agentstream/pkg/message"
	"github.com/copperleaf-dev/agentstream/pkg/toolcall"
	"github.com/google/uuid"
)

func normalizeRole(role string) string {
	switch role {
	case "developer":
		return "system"
	default:
		return role
	}
}

func newMessage(role message.Role, c content.MessageContent) message.Message {
	format := message.FormatText
	if role == message.RoleAssistantThought {
		format = message.FormatMarkdown
	}
	return message.Message{
		ID:      uuid.NewString(),
		Role:    role,
		Content: c,
		Format:  format,
		Status:  message.StatusComplete,
	}
}

// decodeBlocks returns the block array for a MessageParam's content, and
// false if the content is a plain string instead.
func decodeBlocks(ctx context.Context, raw []byte) ([]content.RawBlock, bool) {
	decoded, err := content.DecodeRaw(raw)
	if err != nil {
		return nil, false
	}
	blocks, ok := decoded.([]content.RawBlock)
	return blocks, ok
}

// toolResultBlock finds the tool_result block matching toolUseID in p's
// content, if p's content is a block array containing one.
func toolResultBlock(ctx context.Context, p MessageParam, toolUseID string) (content.RawBlock, bool) {
	blocks, ok := decodeBlocks(ctx, p.Content)
	if !ok {
		return content.RawBlock{}, false
	}
	for _, b := range blocks {
		if b.Type == "tool_result" && b.ToolUseID == toolUseID {
			return b, true
		}
	}
	return content.RawBlock{}, false
}

func containsToolResult(ctx context.Context, p MessageParam) bool {
	blocks, ok := decodeBlocks(ctx, p.Content)
	if !ok {
		return false
	}
	for _, b := range blocks {
		if b.Type == "tool_result" {
			return true
		}
	}
	return false
}

// ConvertMessageParam converts a single persisted message into a runtime
// Message with no delegation or think-tool expansion — the shared,
// non-bulk path used when an individual history_delta entry needs
// conversion rather than a full replay scan.
func ConvertMessageParam(ctx context.Context, p MessageParam) message.Message {
	role := normalizeRole(p.Role)
	decoded, err := content.DecodeRaw(p.Content)
	var c content.MessageContent
	if err != nil {
		c = content.Text("")
	} else {
		c = content.Normalize(ctx, decoded)
	}

	switch role {
	case "assistant":
		return newMessage(message.RoleAssistant, c)
	case "system":
		return newMessage(message.RoleSystem, c)
	default:
		return newMessage(message.RoleUser, c)
	}
}

// Replay implements §4.F's sequential scan: persisted vendor-format
// messages become a normalized Message sequence, with delegation tools
// expanded into synthetic sub-session boundaries and think tools expanded
// into assistant(thought) messages. Side events (subsession-started/ended,
// tool-call-complete for ordinary tools) are published on bus as they are
// discovered; the caller is responsible for emitting the single
// session-messages-loaded event once Replay returns.
func Replay(ctx context.Context, bus *eventbus.Bus, sessionID string, params []MessageParam) []message.Message {
	var out []message.Message
	n := len(params)

	for i := 0; i < n; i++ {
		p := params[i]
		role := normalizeRole(p.Role)

		switch role {
		case "assistant":
			blocks, isBlocks := decodeBlocks(ctx, p.Content)
			if !isBlocks {
				text := content.Normalize(ctx, p.Content)
				if text.String() != "" {
					out = append(out, newMessage(message.RoleAssistant, text))
				}
				continue
			}

			var textAccum strings.Builder
			for bi := 0; bi < len(blocks); bi++ {
				b := blocks[bi]
				switch b.Type {
				case "text":
					textAccum.WriteString(b.Text)

				case "tool_use":
					switch {
					case b.Name == "think":
						thought, _ := b.Input["thought"].(string)
						out = append(out, newMessage(message.RoleAssistantThought, content.Text(thought)))
						if i+1 < n {
							if _, ok := toolResultBlock(ctx, params[i+1], b.ID); ok {
								i++
							}
						}

					default:
						if isDelegation, subAgentType := delegationKind(b.Name); isDelegation {
							i = replayDelegation(ctx, bus, &out, params, i, b, subAgentType)
							continue
						}
						out = replayOrdinaryTool(ctx, bus, out, params, &i, b)
					}
				}
			}

			if textAccum.Len() > 0 {
				out = append(out, newMessage(message.RoleAssistant, content.Text(textAccum.String())))
			}

		case "user":
			if containsToolResult(ctx, p) {
				continue
			}
			decoded, err := content.DecodeRaw(p.Content)
			if err != nil {
				continue
			}
			out = append(out, newMessage(message.RoleUser, content.Normalize(ctx, decoded)))

		case "system":
			decoded, err := content.DecodeRaw(p.Content)
			if err != nil {
				continue
			}
			out = append(out, newMessage(message.RoleSystem, content.Normalize(ctx, decoded)))
		}
	}

	return out
}

// replayDelegation handles one delegation tool_use block: it emits the
// sub-session boundary events and the synthetic user/assistant message
// pair, and returns the (possibly advanced) scan index.
func replayDelegation(ctx context.Context, bus *eventbus.Bus, out *[]message.Message, params []MessageParam, i int, b content.RawBlock, subAgentType string) int {
	n := len(params)
	agentKey, _ := b.Input["agent_key"].(string)
	if agentKey == "" {
		agentKey = "clone"
	}

	bus.Publish(ctx, events.SubsessionStarted, events.SubsessionStartedPayload{
		SubSessionType: subSessionType(b.Name),
		SubAgentType:   subAgentType,
		SubAgentKey:    agentKey,
	})

	request, _ := b.Input["request"].(string)
	if request == "" {
		request, _ = b.Input["message"].(string)
	}
	if pc, ok := b.Input["process_context"].(string); ok && pc != "" {
		request = request + "\n# Process Context\n\n" + pc
	}
	*out = append(*out, newMessage(message.RoleUser, content.Text(request)))

	if i+1 < n {
		if block, ok := toolResultBlock(ctx, params[i+1], b.ID); ok {
			rendered := content.RenderToolResultContent(block.Content)
			text := ParseDelegationResult(rendered)
			*out = append(*out, newMessage(message.RoleAssistant, content.Text(text)))
			i++
		}
	}

	bus.Publish(ctx, events.SubsessionEnded, events.SubsessionEndedPayload{})
	return i
}

// replayOrdinaryTool handles a non-think, non-delegation tool_use block:
// no message is synthesized for the call itself, just a tool-call-complete
// event once its matching tool_result (if any) is found.
func replayOrdinaryTool(ctx context.Context, bus *eventbus.Bus, out []message.Message, params []MessageParam, i *int, b content.RawBlock) []message.Message {
	n := len(params)
	call := toolcall.ToolCall{ID: b.ID, Name: b.Name, Input: b.Input}
	var result toolcall.ToolResult

	if *i+1 < n {
		if block, ok := toolResultBlock(ctx, params[*i+1], b.ID); ok {
			isErr := block.IsError != nil && *block.IsError
			result = toolcall.ToolResult{
				ToolUseID: b.ID,
				Content:   content.RenderToolResultContent(block.Content),
				IsError:   isErr,
			}
			*i++
		}
	}

	bus.Publish(ctx, events.ToolCallComplete, events.ToolCallCompletePayload{
		ToolCalls:   []toolcall.ToolCall{call},
		ToolResults: []toolcall.ToolResult{result},
	})
	return out
}
