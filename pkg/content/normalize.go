package content

import (
	"context"
	"encoding/json"

	"github.com/copperleaf-dev/agentstream/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// RawBlock is the wire shape of one content block, wide enough to cover
// both the Anthropic-style and OpenAI-style dialects. Fields unused by a
// given Type are left zero.
type RawBlock struct {
	Type string `json:"type"`

	// text / thinking / document
	Text     string `json:"text,omitempty"`
	Thinking string `json:"thinking,omitempty"`
	Title    string `json:"title,omitempty"`

	// image (Anthropic)
	Source *RawImageSource `json:"source,omitempty"`

	// image_url (OpenAI)
	ImageURL *RawImageURL `json:"image_url,omitempty"`

	// tool_use
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`

	// tool_result
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	IsError   *bool           `json:"is_error,omitempty"`
}

// RawImageSource is the Anthropic-style embedded or referenced image.
type RawImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
}

// RawImageURL is the OpenAI-style image part.
type RawImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

var tracer = telemetry.GetTracer(telemetry.DefaultSettings())

// DecodeRaw turns a JSON content field into either a string or a []RawBlock,
// matching the two shapes a MessageParam's content field may take.
func DecodeRaw(raw json.RawMessage) (any, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var blocks []RawBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return nil, err
	}
	return blocks, nil
}

// Normalize collapses a string or []RawBlock into the unified MessageContent
// runtime form. It accepts an already-normalized MessageContent unchanged,
// which makes it idempotent: Normalize(Normalize(x)) == Normalize(x).
//
// Malformed or unrecognized blocks are skipped, never an error — the
// normalizer is total.
func Normalize(ctx context.Context, raw any) MessageContent {
	switch v := raw.(type) {
	case MessageContent:
		return v
	case string:
		return Text(v)
	case []RawBlock:
		return normalizeBlocks(ctx, v)
	case json.RawMessage:
		decoded, err := DecodeRaw(v)
		if err != nil {
			return Text("")
		}
		return Normalize(ctx, decoded)
	default:
		return Text("")
	}
}

func normalizeBlocks(ctx context.Context, blocks []RawBlock) MessageContent {
	if allText(blocks) {
		var out string
		for _, b := range blocks {
			out += b.Text
		}
		return Text(out)
	}

	var parts []ContentPart
	for _, b := range blocks {
		part, ok := mapBlock(ctx, b)
		if !ok {
			continue
		}
		parts = append(parts, part)
	}
	if len(parts) == 0 {
		return Text("")
	}
	return Parts(parts)
}

func allText(blocks []RawBlock) bool {
	if len(blocks) == 0 {
		return false
	}
	for _, b := range blocks {
		if b.Type != "text" {
			return false
		}
	}
	return true
}

func mapBlock(ctx context.Context, b RawBlock) (ContentPart, bool) {
	switch b.Type {
	case "text":
		return TextPart{Text: b.Text}, true
	case "image":
		if b.Source == nil {
			return nil, false
		}
		return ImagePart{Source: ImageSource{
			Kind:      b.Source.Type,
			MediaType: b.Source.MediaType,
			Data:      b.Source.Data,
			URL:       b.Source.URL,
		}}, true
	case "image_url":
		if b.ImageURL == nil {
			return nil, false
		}
		return ImagePart{Source: ImageSource{Kind: "url", URL: b.ImageURL.URL}}, true
	case "tool_use":
		return ToolUsePart{ID: b.ID, Name: b.Name, Input: b.Input}, true
	case "tool_result":
		isErr := b.IsError != nil && *b.IsError
		return ToolResultPart{ToolUseID: b.ToolUseID, Content: RenderToolResultContent(b.Content), IsError: isErr}, true
	case "thinking":
		return TextPart{Text: "[Thinking] " + b.Thinking}, true
	case "document":
		title := b.Title
		if title == "" {
			title = "Untitled"
		}
		return TextPart{Text: "[Document: " + title + "]"}, true
	default:
		_, span := tracer.Start(ctx, "content.unknown_block")
		span.SetAttributes(attribute.String("content.block_type", b.Type))
		span.End()
		return nil, false
	}
}

// RenderToolResultContent renders a tool_result's nested content field per
// the normalizer's rule: a string renders as-is, anything else (nested
// content blocks, objects) renders as empty — content extraction there is
// the UI's responsibility.
func RenderToolResultContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}
