// Package content normalizes vendor-specific chat content — Anthropic-style
// tagged blocks and OpenAI-style multimodal parts — into a single runtime
// form. It is the one place the rest of the module needs to know that two
// wire dialects exist at all.
package content

import (
	"bytes"
	"encoding/json"
)

// PartType tags the variant carried by a ContentPart.
type PartType string

const (
	PartText       PartType = "text"
	PartImage      PartType = "image"
	PartToolUse    PartType = "tool_use"
	PartToolResult PartType = "tool_result"
)

// ContentPart is one element of a normalized content sequence.
type ContentPart interface {
	Type() PartType
}

// TextPart carries plain or markdown text.
type TextPart struct {
	Text string
}

func (TextPart) Type() PartType { return PartText }

// ImageSource describes where image bytes come from, base64-inlined or by
// reference, preserving whichever vendor shape supplied it.
type ImageSource struct {
	Kind      string `json:"type"` // "base64" | "url"
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
}

// ImagePart carries an inline or referenced image.
type ImagePart struct {
	Source ImageSource
}

func (ImagePart) Type() PartType { return PartImage }

// ToolUsePart records a model-initiated tool invocation.
type ToolUsePart struct {
	ID    string
	Name  string
	Input map[string]any
}

func (ToolUsePart) Type() PartType { return PartToolUse }

// ToolResultPart carries the outcome of a tool invocation back to the model.
type ToolResultPart struct {
	ToolUseID string
	Content   string
	IsError   bool
}

func (ToolResultPart) Type() PartType { return PartToolResult }

// MessageContent is either a plain string or an ordered ContentPart
// sequence. The zero value is the empty string.
type MessageContent struct {
	text  *string
	parts []ContentPart
}

// Text returns a string-form MessageContent.
func Text(s string) MessageContent {
	return MessageContent{text: &s}
}

// Parts returns a ContentPart-sequence MessageContent.
func Parts(parts []ContentPart) MessageContent {
	return MessageContent{parts: parts}
}

// IsText reports whether this content is the plain-string form.
func (c MessageContent) IsText() bool {
	return c.text != nil || c.parts == nil
}

// AsText returns the string form, or "" if this is a parts sequence.
func (c MessageContent) AsText() string {
	if c.text != nil {
		return *c.text
	}
	return ""
}

// AsParts returns the ContentPart sequence, or nil if this is the string form.
func (c MessageContent) AsParts() []ContentPart {
	return c.parts
}

// String renders a best-effort flat string for logging and for contexts
// (delegation results, media previews) that only ever want text.
func (c MessageContent) String() string {
	if c.text != nil {
		return *c.text
	}
	var out string
	for _, p := range c.parts {
		if t, ok := p.(TextPart); ok {
			out += t.Text
		}
	}
	return out
}

func (c MessageContent) MarshalJSON() ([]byte, error) {
	if c.IsText() {
		return json.Marshal(c.AsText())
	}
	raw := make([]map[string]any, 0, len(c.parts))
	for _, p := range c.parts {
		raw = append(raw, partToMap(p))
	}
	return json.Marshal(raw)
}

// UnmarshalJSON decodes the canonical wire form written by MarshalJSON: a
// JSON string, or an array of already-canonical ContentPart objects. It
// does not interpret vendor dialects — that is Normalize's job.
func (c *MessageContent) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Text(s)
		return nil
	}

	var raw []canonicalPart
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parts := make([]ContentPart, 0, len(raw))
	for _, r := range raw {
		if part, ok := r.toPart(); ok {
			parts = append(parts, part)
		}
	}
	*c = Parts(parts)
	return nil
}

type canonicalPart struct {
	Type      string         `json:"type"`
	Text      string         `json:"text"`
	Source    *ImageSource   `json:"source"`
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Input     map[string]any `json:"input"`
	ToolUseID string         `json:"tool_use_id"`
	Content   string         `json:"content"`
	IsError   bool           `json:"is_error"`
}

func (r canonicalPart) toPart() (ContentPart, bool) {
	switch PartType(r.Type) {
	case PartText:
		return TextPart{Text: r.Text}, true
	case PartImage:
		if r.Source == nil {
			return nil, false
		}
		return ImagePart{Source: *r.Source}, true
	case PartToolUse:
		return ToolUsePart{ID: r.ID, Name: r.Name, Input: r.Input}, true
	case PartToolResult:
		return ToolResultPart{ToolUseID: r.ToolUseID, Content: r.Content, IsError: r.IsError}, true
	default:
		return nil, false
	}
}

func partToMap(p ContentPart) map[string]any {
	switch v := p.(type) {
	case TextPart:
		return map[string]any{"type": string(PartText), "text": v.Text}
	case ImagePart:
		return map[string]any{"type": string(PartImage), "source": map[string]any{
			"type":       v.Source.Kind,
			"media_type": v.Source.MediaType,
			"data":       v.Source.Data,
			"url":        v.Source.URL,
		}}
	case ToolUsePart:
		return map[string]any{"type": string(PartToolUse), "id": v.ID, "name": v.Name, "input": v.Input}
	case ToolResultPart:
		return map[string]any{"type": string(PartToolResult), "tool_use_id": v.ToolUseID, "content": v.Content, "is_error": v.IsError}
	default:
		return map[string]any{}
	}
}
