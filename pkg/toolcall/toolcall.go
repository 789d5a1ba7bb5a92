// Package toolcall tracks tool invocations from selection through execution
// to completion, and buffers completed calls awaiting attachment to a
// message — the processor decides where that attachment lands.
package toolcall

import (
	"encoding/json"
	"time"

	"github.com/copperleaf-dev/agentstream/pkg/jsonparser"
)

// ToolCall is a single tool invocation, scoped to one session turn.
type ToolCall struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// ToolResult is the outcome of a ToolCall, matched to it by ToolUseID.
type ToolResult struct {
	ToolUseID string `json:"toolUseId"`
	Content   string `json:"content"`
	IsError   bool   `json:"isError"`
}

// ToolCallWithResult pairs an invocation with its outcome once both are
// known; these are what travels through the completed buffer and the
// pending-tool buffer.
type ToolCallWithResult struct {
	Call   ToolCall
	Result ToolResult
}

// NotificationStatus is the lifecycle stage of a ToolNotification.
type NotificationStatus string

const (
	StatusPreparing NotificationStatus = "preparing"
	StatusExecuting NotificationStatus = "executing"
	StatusComplete  NotificationStatus = "complete"
)

// ToolNotification is the UI-facing view of an in-flight tool call.
type ToolNotification struct {
	ID        string
	ToolName  string
	Status    NotificationStatus
	SessionID string
	Timestamp time.Time
	Arguments string
}

// Statistics summarizes the Manager's current state, named in the spec's
// query list but left for an implementation to shape; this is the counts
// a UI badge would want.
type Statistics struct {
	Active           int
	CompletedPending int
}

// ParsedArguments best-effort parses a tool_select_delta's incrementally
// streamed arguments string, which may be incomplete JSON mid-stream.
// Uses the module's partial-JSON repair rather than failing outright.
func (n ToolNotification) ParsedArguments() jsonparser.ParseResult {
	return jsonparser.ParsePartialJSON(n.Arguments)
}

func marshalArguments(input map[string]any) string {
	if input == nil {
		return ""
	}
	b, err := json.Marshal(input)
	if err != nil {
		return ""
	}
	return string(b)
}
