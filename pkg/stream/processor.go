package stream

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/copperleaf-dev/agentstream/pkg/content"
	"github.com/copperleaf-dev/agentstream/pkg/events"
	"github.com/copperleaf-dev/agentstream/pkg/eventbus"
	"github.com/copperleaf-dev/agentstream/pkg/history"
	"github.com/copperleaf-dev/agentstream/pkg/message"
	"github.com/copperleaf-dev/agentstream/pkg/session"
	"github.com/copperleaf-dev/agentstream/pkg/telemetry"
	"github.com/copperleaf-dev/agentstream/pkg/toolcall"
	"github.com/google/uuid"
)

// thinkTool is the tool name the processor special-cases as a display
// mode rather than a chat message (§9: "think tool is a display mode").
const thinkTool = "think"

var tracer = telemetry.GetTracer(telemetry.DefaultSettings())

// Processor is the Event Stream Processor: the single ingress point for
// transport events, dispatching to the Message Builder, Tool Call Manager,
// and Session State Store, and publishing derived events on the bus.
type Processor struct {
	mu sync.Mutex

	builder *message.Builder
	tools   *toolcall.Manager
	store   *session.Store
	bus     *eventbus.Bus

	userSessionID string
}

// NewProcessor wires a Processor against the given Store and Bus. The
// Builder and Manager are owned exclusively by the Processor.
func NewProcessor(store *session.Store, bus *eventbus.Bus) *Processor {
	return &Processor{
		builder: message.NewBuilder(),
		tools:   toolcall.NewManager(),
		store:   store,
		bus:     bus,
	}
}

// SetUserSessionID declares which session id is the top-level user session
// for sub-session detection.
func (p *Processor) SetUserSessionID(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.userSessionID = id
}

// Reset idempotently clears Builder and Manager state (a new turn).
func (p *Processor) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.builder.Reset()
	p.tools.Reset()
}

// Destroy is an alias for Reset: idempotent cleanup.
func (p *Processor) Destroy() {
	p.Reset()
}

func (p *Processor) publish(ctx context.Context, name string, payload any) {
	p.bus.Publish(ctx, name, payload)
}

// isSubSession reports whether ev denotes a sub-session per §4.E: either
// it carries a distinct user_session_id, or the processor's own stored
// userSessionId differs from ev.SessionID.
func (p *Processor) isSubSession(ev Event) (bool, message.SubSessionInfo) {
	info := message.SubSessionInfo{
		SessionID:       ev.SessionID,
		ParentSessionID: ev.ParentSessionID,
		UserSessionID:   ev.UserSessionID,
	}
	if ev.UserSessionID != "" && ev.UserSessionID != ev.SessionID {
		return true, info
	}
	if p.userSessionID != "" && p.userSessionID != ev.SessionID {
		info.UserSessionID = p.userSessionID
		return true, info
	}
	return false, info
}

// ProcessEvent is the single ingress point. It never returns an error and
// never panics outward: per §7, all recovery is local.
func (p *Processor) ProcessEvent(ctx context.Context, ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch ev.Type {
	case "interaction":
		p.handleInteraction(ctx, ev)
	case "text_delta":
		p.handleDelta(ctx, ev, message.RoleAssistant)
	case "thought_delta":
		p.handleDelta(ctx, ev, message.RoleAssistantThought)
	case "completion":
		p.handleCompletion(ctx, ev)
	case "tool_select_delta":
		p.handleToolSelectDelta(ctx, ev)
	case "tool_call":
		p.handleToolCall(ctx, ev)
	case "render_media":
		p.handleRenderMedia(ctx, ev)
	case "system_message":
		p.handleSystemMessage(ctx, ev)
	case "error":
		p.handleError(ctx, ev)
	case "history_delta":
		p.handleHistoryDelta(ctx, ev)
	case "chat_session_changed":
		p.handleChatSessionChanged(ctx, ev)
	case "user_message", "openai_user_message", "anthropic_user_message":
		p.handleUserMessage(ctx, ev)
	case "subsession_started":
		p.publish(ctx, events.SubsessionStarted, events.SubsessionStartedPayload{
			SubSessionType: ev.SubSessionType,
			SubAgentType:   ev.SubAgentType,
			PrimeAgentKey:  ev.PrimeAgentKey,
			SubAgentKey:    ev.SubAgentKey,
		})
	case "subsession_ended":
		p.publish(ctx, events.SubsessionEnded, events.SubsessionEndedPayload{})
	case "cancelled":
		p.handleCancelled(ctx, ev)
	case "history", "complete_thought", "system_prompt":
		// Filtered early: acknowledged but not acted on.
	default:
		_, span := tracer.Start(ctx, "stream.unknown_event")
		span.End()
	}
}

func (p *Processor) handleInteraction(ctx context.Context, ev Event) {
	if ev.Started != nil && *ev.Started {
		p.builder.Reset()
		p.tools.Reset()
		return
	}
	// started=false: nothing to do beyond recording a span.
	_, span := tracer.Start(ctx, "stream.interaction_ended")
	span.End()
}

func (p *Processor) handleDelta(ctx context.Context, ev Event, role message.Role) {
	if p.builder.HasCurrent() {
		if current, ok := p.builder.CurrentType(); ok && current != role {
			p.finalizeCurrent(ctx, ev.SessionID, nil)
		}
	}
	if !p.builder.HasCurrent() {
		p.builder.Start(role)
	}
	_ = p.builder.AppendText(ev.Delta)

	if role == message.RoleAssistantThought {
		for _, removed := range p.tools.RemoveActiveByName(thinkTool) {
			p.publish(ctx, events.ToolNotificationGone, events.ToolNotificationRemovedPayload{
				SessionID:  ev.SessionID,
				ToolCallID: removed.ID,
			})
		}
	}

	if msg := p.builder.Current(); msg != nil {
		p.publish(ctx, events.MessageStreaming, events.MessageStreamingPayload{
			SessionID: ev.SessionID,
			Message:   *msg,
		})
	}
}

// finalizeCurrent finalizes and emits whatever message is in flight, with
// no completion metadata — used when a mode switch (text<->thought)
// interrupts it mid-stream.
func (p *Processor) finalizeCurrent(ctx context.Context, sessionID string, meta *message.Metadata) {
	final := p.builder.Finalize(meta)
	if final == nil {
		return
	}
	_ = p.store.AppendMessage(sessionID, *final)
	p.publish(ctx, events.MessageComplete, events.MessageCompletePayload{SessionID: sessionID, Message: *final})
}

func (p *Processor) handleCompletion(ctx context.Context, ev Event) {
	if ev.Running != nil && *ev.Running {
		return
	}
	if !p.builder.HasCurrent() {
		return
	}

	leftover := p.tools.GetCompletedToolCalls()
	p.tools.ClearCompleted()
	buffered := p.store.DrainPendingTools(ev.SessionID)

	meta := &message.Metadata{
		InputTokens:  ev.InputTokens,
		OutputTokens: ev.OutputTokens,
		StopReason:   message.CanonicalizeStopReason(ev.StopReason),
	}
	for _, pair := range append(leftover, buffered...) {
		meta.ToolCalls = append(meta.ToolCalls, pair.Call)
		meta.ToolResults = append(meta.ToolResults, pair.Result)
	}

	final := p.builder.Finalize(meta)
	if final == nil {
		return
	}
	_ = p.store.AppendMessage(ev.SessionID, *final)
	p.publish(ctx, events.MessageComplete, events.MessageCompletePayload{SessionID: ev.SessionID, Message: *final})
}

func (p *Processor) handleToolSelectDelta(ctx context.Context, ev Event) {
	n := p.tools.OnToolSelect(ev.SessionID, ev.ToolID, ev.ToolName, ev.Arguments)
	p.publish(ctx, events.ToolNotification, notificationPayload(n))
}

func (p *Processor) handleToolCall(ctx context.Context, ev Event) {
	if ev.Active != nil && *ev.Active {
		input := map[string]any{}
		if len(ev.ToolCalls) > 0 {
			input = ev.ToolCalls[0].Input
		}
		name := ev.ToolName
		id := ev.ToolID
		if len(ev.ToolCalls) > 0 {
			name = ev.ToolCalls[0].Name
			id = ev.ToolCalls[0].ID
		}
		n := p.tools.OnToolCallActive(ev.SessionID, id, name, input)
		p.publish(ctx, events.ToolNotification, notificationPayload(n))
		return
	}

	if len(ev.ToolCalls) == 1 && ev.ToolCalls[0].Name == thinkTool {
		p.publish(ctx, events.ToolNotificationGone, events.ToolNotificationRemovedPayload{
			SessionID:  ev.SessionID,
			ToolCallID: ev.ToolCalls[0].ID,
		})
		return
	}

	calls := make([]toolcall.ToolCall, 0, len(ev.ToolCalls))
	for _, c := range ev.ToolCalls {
		calls = append(calls, toolcall.ToolCall{ID: c.ID, Name: c.Name, Input: c.Input})
	}
	results := make([]toolcall.ToolResult, 0, len(ev.ToolResults))
	for _, r := range ev.ToolResults {
		results = append(results, toolcall.ToolResult{
			ToolUseID: r.ToolUseID,
			Content:   content.RenderToolResultContent(r.Content),
			IsError:   r.IsError,
		})
	}

	completed := p.tools.OnToolCallComplete(calls, results)
	p.tools.ClearCompleted()

	p.publish(ctx, events.ToolCallComplete, events.ToolCallCompletePayload{ToolCalls: calls, ToolResults: results})
	for _, c := range calls {
		p.publish(ctx, events.ToolNotificationGone, events.ToolNotificationRemovedPayload{SessionID: ev.SessionID, ToolCallID: c.ID})
	}

	messageID, attached := p.store.AttachToolCalls(ev.SessionID, completed)
	if attached {
		sess := p.store.GetCurrentSession()
		var attachedMsg message.Message
		if sess != nil {
			for _, m := range sess.Messages {
				if m.ID == messageID {
					attachedMsg = m
					break
				}
			}
		}
		p.publish(ctx, events.MessageUpdated, events.MessageUpdatedPayload{
			SessionID: ev.SessionID,
			MessageID: messageID,
			Message:   attachedMsg,
		})
		return
	}
	p.store.PushPendingTools(ev.SessionID, completed)
}

func notificationPayload(n toolcall.ToolNotification) events.ToolNotificationPayload {
	return events.ToolNotificationPayload{
		ID:        n.ID,
		ToolName:  n.ToolName,
		Status:    n.Status,
		SessionID: n.SessionID,
		Timestamp: n.Timestamp,
		Arguments: n.Arguments,
	}
}

func (p *Processor) handleRenderMedia(ctx context.Context, ev Event) {
	media := events.MediaItem{
		ID:          uuid.NewString(),
		Role:        "assistant",
		Type:        "media",
		Content:     ev.Content,
		ContentType: ev.ContentType,
		Timestamp:   time.Now(),
		Status:      "complete",
		Metadata: events.MediaMetadata{
			SentByClass:    ev.SentByClass,
			SentByFunction: ev.SentByFunction,
			ForeignContent: ev.ForeignContent,
			URL:            ev.URL,
			Name:           ev.Name,
		},
	}
	p.publish(ctx, events.MediaAdded, events.MediaAddedPayload{SessionID: ev.SessionID, Media: media})
}

func (p *Processor) handleSystemMessage(ctx context.Context, ev Event) {
	p.publish(ctx, events.SystemMessage, events.SystemMessagePayload{
		Type:            "system_message",
		SessionID:       ev.SessionID,
		Role:            ev.Role,
		Content:         ev.Content,
		Format:          ev.Format,
		Severity:        ev.Severity,
		ParentSessionID: ev.ParentSessionID,
		UserSessionID:   ev.UserSessionID,
	})
}

func (p *Processor) handleError(ctx context.Context, ev Event) {
	p.publish(ctx, events.Error, events.ErrorPayload{
		Type:      ev.ErrorType,
		Message:   ev.ErrorMessage,
		Source:    ev.ErrorSource,
		Timestamp: time.Now(),
	})
}

func (p *Processor) handleHistoryDelta(ctx context.Context, ev Event) {
	converted := make([]message.Message, 0, len(ev.Messages))
	for _, raw := range ev.Messages {
		if looksLikeRuntimeMessage(raw) {
			var m message.Message
			if err := json.Unmarshal(raw, &m); err == nil {
				converted = append(converted, m)
				continue
			}
		}
		var param history.MessageParam
		if err := json.Unmarshal(raw, &param); err != nil {
			continue
		}
		converted = append(converted, history.ConvertMessageParam(ctx, param))
	}
	p.publish(ctx, events.SessionsUpdated, events.SessionsUpdatedPayload{SessionID: ev.SessionID, Messages: converted})
}

func looksLikeRuntimeMessage(raw json.RawMessage) bool {
	var probe struct {
		Timestamp *time.Time `json:"timestamp"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}
	return probe.Timestamp != nil
}

func (p *Processor) handleChatSessionChanged(ctx context.Context, ev Event) {
	if ev.Session == nil {
		return
	}

	userSessionID := ev.UserSessionID
	if userSessionID == "" {
		userSessionID = ev.Session.SessionID
	}
	p.userSessionID = userSessionID

	sess := history.ToSession(history.SessionParam{
		SessionID:         ev.Session.SessionID,
		TokenCount:        ev.Session.TokenCount,
		ContextWindowSize: ev.Session.ContextWindowSize,
		SessionName:       ev.Session.SessionName,
		UserID:            ev.Session.UserID,
		Metadata:          ev.Session.Metadata,
		AgentConfig:       ev.Session.AgentConfig,
	}, ev.Session.AgentName)
	sess.UpdatedAt = time.Now()

	allRuntime := len(ev.Session.Messages) > 0
	for _, raw := range ev.Session.Messages {
		if !looksLikeRuntimeMessage(raw) {
			allRuntime = false
			break
		}
	}

	var messages []message.Message
	if allRuntime {
		for _, raw := range ev.Session.Messages {
			var m message.Message
			if err := json.Unmarshal(raw, &m); err == nil {
				messages = append(messages, m)
			}
		}
	} else {
		params := make([]history.MessageParam, 0, len(ev.Session.Messages))
		for _, raw := range ev.Session.Messages {
			var param history.MessageParam
			if err := json.Unmarshal(raw, &param); err == nil {
				params = append(params, param)
			}
		}
		messages = history.Replay(ctx, p.bus, sess.ID, params)
	}

	sess.Messages = messages
	p.store.SetCurrentSession(sess)
	p.builder.Reset()

	p.publish(ctx, events.SessionMessagesLoaded, events.SessionMessagesLoadedPayload{
		SessionID: sess.ID,
		Messages:  messages,
	})
}

func (p *Processor) handleUserMessage(ctx context.Context, ev Event) {
	decoded, err := content.DecodeRaw(ev.MessageContent)
	var c content.MessageContent
	if err != nil {
		c = content.Text(ev.Content)
	} else {
		c = content.Normalize(ctx, decoded)
	}

	isSub, subInfo := p.isSubSession(ev)
	msg := message.Message{
		ID:        uuid.NewString(),
		Role:      message.RoleUser,
		Content:   c,
		Timestamp: time.Now(),
		Format:    message.FormatText,
		Status:    message.StatusComplete,
	}
	if isSub {
		msg.Metadata = &message.Metadata{IsSubSession: true, SubSession: &subInfo}
	}

	_ = p.store.AppendMessage(ev.SessionID, msg)
	p.publish(ctx, events.MessageAdded, events.MessageAddedPayload{SessionID: ev.SessionID, Message: msg})
	p.publish(ctx, events.UserMessage, events.UserMessagePayload{Vendor: vendorFromEventType(ev.Type), Message: msg})
}

func vendorFromEventType(eventType string) string {
	switch eventType {
	case "openai_user_message":
		return "openai"
	case "anthropic_user_message":
		return "anthropic"
	default:
		return "none"
	}
}

func (p *Processor) handleCancelled(ctx context.Context, ev Event) {
	if p.builder.HasCurrent() {
		final := p.builder.Finalize(&message.Metadata{StopReason: message.StopReasonCancelled})
		if final != nil {
			_ = p.store.AppendMessage(ev.SessionID, *final)
			p.publish(ctx, events.MessageComplete, events.MessageCompletePayload{SessionID: ev.SessionID, Message: *final})
		}
	}
	for _, n := range p.tools.GetActiveNotifications() {
		p.publish(ctx, events.ToolNotificationGone, events.ToolNotificationRemovedPayload{SessionID: ev.SessionID, ToolCallID: n.ID})
	}
	p.builder.Reset()
	p.tools.Reset()
	p.publish(ctx, events.ResponseCancelled, events.ResponseCancelledPayload{})
}
