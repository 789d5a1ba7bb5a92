package session

import (
	"errors"
	"sync"
	"time"

	"github.com/copperleaf-dev/agentstream/pkg/message"
	"github.com/copperleaf-dev/agentstream/pkg/toolcall"
)

// ErrNoCurrentSession is returned by operations that require a current
// session when none has been set.
var ErrNoCurrentSession = errors.New("session: no current session")

// ErrMessageNotFound is returned by UpdateMessage when messageId does not
// name a message in the session.
var ErrMessageNotFound = errors.New("session: message not found")

// ErrWrongSession is returned when an operation names a session id that
// does not match the current session.
var ErrWrongSession = errors.New("session: not the current session")

// Store is the Session State Store: the current Session plus a pending-
// tool buffer partitioned by session id. It is single-owner — the
// processor is the only caller — so it needs no internal concurrency
// beyond a mutex for safety against accidental concurrent access.
type Store struct {
	mu      sync.Mutex
	current *Session
	pending map[string][]toolcall.ToolCallWithResult
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{pending: make(map[string][]toolcall.ToolCallWithResult)}
}

// SetCurrentSession replaces the current session. Streaming state in the
// Message Builder is the processor's responsibility to clear; the Store
// only owns session and buffer state.
func (s *Store) SetCurrentSession(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = sess
}

// GetCurrentSession returns the current session, or nil.
func (s *Store) GetCurrentSession() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Store) requireSession(sessionID string) (*Session, error) {
	if s.current == nil {
		return nil, ErrNoCurrentSession
	}
	if sessionID != "" && s.current.ID != sessionID {
		return nil, ErrWrongSession
	}
	return s.current, nil
}

// AppendMessage appends msg to the named session's history and advances
// updated_at.
func (s *Store) AppendMessage(sessionID string, msg message.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.requireSession(sessionID)
	if err != nil {
		return err
	}
	sess.Messages = append(sess.Messages, msg)
	sess.UpdatedAt = time.Now()
	if msg.Metadata != nil {
		if msg.Metadata.InputTokens != nil {
			sess.TokenCount += *msg.Metadata.InputTokens
		}
		if msg.Metadata.OutputTokens != nil {
			sess.TokenCount += *msg.Metadata.OutputTokens
		}
	}
	return nil
}

// UpdateMessage shallow-merges patch into the named message's metadata. A
// patch that mutates toolCalls/toolResults is the only mutation a message
// undergoes after append; callers (the processor) enforce that this only
// ever targets the last strict-assistant message.
func (s *Store) UpdateMessage(sessionID, messageID string, patch func(*message.Metadata)) (*message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.requireSession(sessionID)
	if err != nil {
		return nil, err
	}
	for i := range sess.Messages {
		if sess.Messages[i].ID != messageID {
			continue
		}
		if sess.Messages[i].Metadata == nil {
			sess.Messages[i].Metadata = &message.Metadata{}
		}
		patch(sess.Messages[i].Metadata)
		sess.UpdatedAt = time.Now()
		out := sess.Messages[i]
		return &out, nil
	}
	return nil, ErrMessageNotFound
}

// AttachToolCalls implements backward attachment: scan the named session's
// messages from the end, skipping assistant(thought) messages, until a
// strict assistant message is found. If found, merge the calls/results
// into its metadata and return its id. If not found (no session, empty
// session, or only user/thought messages), the caller is responsible for
// pushing into the pending buffer instead.
func (s *Store) AttachToolCalls(sessionID string, pairs []toolcall.ToolCallWithResult) (messageID string, attached bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.requireSession(sessionID)
	if err != nil {
		return "", false
	}
	for i := len(sess.Messages) - 1; i >= 0; i-- {
		switch sess.Messages[i].Role {
		case message.RoleAssistantThought:
			continue
		case message.RoleAssistant:
			sess.Messages[i].AppendToolCalls(pairs)
			sess.UpdatedAt = time.Now()
			return sess.Messages[i].ID, true
		default:
			return "", false
		}
	}
	return "", false
}

// PushPendingTools enqueues completed calls awaiting an assistant message
// to attach to, for the named session.
func (s *Store) PushPendingTools(sessionID string, pairs []toolcall.ToolCallWithResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[sessionID] = append(s.pending[sessionID], pairs...)
}

// DrainPendingTools returns and clears the pending buffer for the named
// session.
func (s *Store) DrainPendingTools(sessionID string) []toolcall.ToolCallWithResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.pending[sessionID]
	delete(s.pending, sessionID)
	return out
}

// HasPendingToolCalls reports whether the named session has a non-empty
// pending buffer.
func (s *Store) HasPendingToolCalls(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending[sessionID]) > 0
}
