package toolcall

import (
	"sync"
	"time"
)

// Manager is the Tool Call Manager: a mapping from tool id to active
// ToolNotification, plus an ordered buffer of completed-but-unattached
// ToolCallWithResult. A tool id never moves back to preparing; completion
// is terminal; active and completed are always disjoint.
type Manager struct {
	mu        sync.Mutex
	active    map[string]*ToolNotification
	order     []string // insertion order of active, for stable iteration
	completed []ToolCallWithResult
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{active: make(map[string]*ToolNotification)}
}

// OnToolSelect records a newly observed tool id at status preparing. The
// think tool is not special-cased here — that distinction belongs to the
// processor, which decides how to react to the resulting notification.
func (m *Manager) OnToolSelect(sessionID, id, name, arguments string) ToolNotification {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := &ToolNotification{
		ID:        id,
		ToolName:  name,
		Status:    StatusPreparing,
		SessionID: sessionID,
		Timestamp: time.Now(),
		Arguments: arguments,
	}
	existing, exists := m.active[id]
	if !exists {
		m.order = append(m.order, id)
	} else if existing.Status != StatusPreparing {
		n.Status = existing.Status
	}
	m.active[id] = n
	return *n
}

// OnToolCallActive promotes a tracked tool id to executing, or creates it
// directly at executing if the select phase was skipped.
func (m *Manager) OnToolCallActive(sessionID, id, name string, input map[string]any) ToolNotification {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, exists := m.active[id]
	if !exists {
		n = &ToolNotification{ID: id, SessionID: sessionID, Timestamp: time.Now()}
		m.active[id] = n
		m.order = append(m.order, id)
	}
	n.Status = StatusExecuting
	if name != "" {
		n.ToolName = name
	}
	if input != nil {
		n.Arguments = marshalArguments(input)
	}
	return *n
}

// OnToolCallComplete removes the given tool ids from the active map and
// appends the matched call+result pairs to the completed buffer, returning
// exactly what it appended so the caller can route it (attach, or buffer)
// without re-reading Manager state.
func (m *Manager) OnToolCallComplete(calls []ToolCall, results []ToolResult) []ToolCallWithResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	byID := make(map[string]ToolResult, len(results))
	for _, r := range results {
		byID[r.ToolUseID] = r
	}

	out := make([]ToolCallWithResult, 0, len(calls))
	for _, c := range calls {
		m.removeActive(c.ID)
		pair := ToolCallWithResult{Call: c, Result: byID[c.ID]}
		out = append(out, pair)
		m.completed = append(m.completed, pair)
	}
	return out
}

func (m *Manager) removeActive(id string) {
	if _, ok := m.active[id]; !ok {
		return
	}
	delete(m.active, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// RemoveActiveByName removes and returns every active notification for the
// given tool name — used when a thought stream supersedes a think tool's
// preparing notification.
func (m *Manager) RemoveActiveByName(name string) []ToolNotification {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed []ToolNotification
	var ids []string
	for _, id := range m.order {
		if n, ok := m.active[id]; ok && n.ToolName == name {
			removed = append(removed, *n)
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		m.removeActive(id)
	}
	return removed
}

// GetActiveNotifications returns all currently in-flight notifications, in
// the order they were first observed.
func (m *Manager) GetActiveNotifications() []ToolNotification {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ToolNotification, 0, len(m.order))
	for _, id := range m.order {
		if n, ok := m.active[id]; ok {
			out = append(out, *n)
		}
	}
	return out
}

// GetCompletedToolCalls returns the completed-but-unattached buffer without
// clearing it.
func (m *Manager) GetCompletedToolCalls() []ToolCallWithResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ToolCallWithResult, len(m.completed))
	copy(out, m.completed)
	return out
}

// ClearCompleted empties the completed buffer.
func (m *Manager) ClearCompleted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed = nil
}

// Reset clears all active notifications and the completed buffer — used on
// a new turn or on cancellation.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = make(map[string]*ToolNotification)
	m.order = nil
	m.completed = nil
}

// GetStatistics reports counts useful for UI badges: tools currently
// in-flight, and tools completed but not yet attached anywhere.
func (m *Manager) GetStatistics() Statistics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Statistics{Active: len(m.active), CompletedPending: len(m.completed)}
}
