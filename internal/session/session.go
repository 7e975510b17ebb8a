// Package session provides conversation-session management: per-session
// context tracking, the conversation state machine, and session
// lifecycle (creation, lookup, expiry cleanup).
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is the conversation state of a session.
type State string

const (
	// StateIdle is the initial state, before any intent is recognized.
	StateIdle State = "idle"
	// StateAwaitingIdentity means an intent needs a member identity
	// that the session does not hold yet.
	StateAwaitingIdentity State = "awaiting_identity"
	// StateActive means the session is identified and ready for
	// actions.
	StateActive State = "active"
	// StateAwaitingConfirmation means a proposed action is parked until
	// the user confirms or declines it.
	StateAwaitingConfirmation State = "awaiting_confirmation"
)

// PendingKind names the action class parked for confirmation.
type PendingKind string

const (
	PendingUpdateProfile  PendingKind = "update_profile"
	PendingProcessPayment PendingKind = "process_payment"
	PendingTransition     PendingKind = "membership_transition"
)

// Pending is the action awaiting confirmation. It is only populated
// while the session is in StateAwaitingConfirmation.
type Pending struct {
	Kind            PendingKind
	Updates         map[string]string // canonical field -> validated value
	Amount          float64
	Method          string
	ExpectedVersion int
	Prompt          string // the question put to the user
}

// Context holds the per-session conversation context the extractors and
// the action planner consult.
type Context struct {
	CurrentEmail  string
	MemberID      string
	MemberVersion int
	PaymentMethod string // stored method description, e.g. "Card ending 1234"

	State        State
	LastAction   string
	Pending      *Pending
	TurnCount    int // user turns handled so far
	UnclearTurns int // consecutive turns that neither confirmed nor declined
}

// Message is one turn of the conversation transcript.
type Message struct {
	Role      string // "user" or "assistant"
	Content   string
	Timestamp time.Time
}

// Session is one user's conversation with its accumulated context.
type Session struct {
	SessionID string
	Context   Context
	History   []Message
	CreatedAt time.Time
	LastUsed  time.Time
	mu        sync.RWMutex
}

// New creates a session. An empty sessionID gets a generated UUID.
func New(sessionID string) *Session {
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	now := time.Now()
	return &Session{
		SessionID: sessionID,
		Context:   Context{State: StateIdle},
		History:   make([]Message, 0),
		CreatedAt: now,
		LastUsed:  now,
	}
}

// GetContext returns a copy of the current context.
func (s *Session) GetContext() Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ctx := s.Context
	if s.Context.Pending != nil {
		cp := *s.Context.Pending
		if s.Context.Pending.Updates != nil {
			cp.Updates = make(map[string]string, len(s.Context.Pending.Updates))
			for k, v := range s.Context.Pending.Updates {
				cp.Updates[k] = v
			}
		}
		ctx.Pending = &cp
	}
	return ctx
}

// SetIdentity records the resolved member identity and moves the
// session to StateActive.
func (s *Session) SetIdentity(email, memberID string, version int, paymentMethod string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Context.CurrentEmail = email
	s.Context.MemberID = memberID
	s.Context.MemberVersion = version
	s.Context.PaymentMethod = paymentMethod
	if s.Context.State == StateIdle || s.Context.State == StateAwaitingIdentity {
		s.Context.State = StateActive
	}
	s.LastUsed = time.Now()
}

// AwaitIdentity marks that the next turn must supply an identity.
func (s *Session) AwaitIdentity(lastAction string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Context.State = StateAwaitingIdentity
	s.Context.LastAction = lastAction
	s.LastUsed = time.Now()
}

// BeginConfirmation parks pending and enters
// StateAwaitingConfirmation with the patience counter reset.
func (s *Session) BeginConfirmation(pending Pending) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Context.Pending = &pending
	s.Context.State = StateAwaitingConfirmation
	s.Context.UnclearTurns = 0
	s.LastUsed = time.Now()
}

// TakePending clears the parked action and returns it, moving the
// session back to StateActive. Returns nil when nothing was pending.
func (s *Session) TakePending() *Pending {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := s.Context.Pending
	s.Context.Pending = nil
	s.Context.UnclearTurns = 0
	if s.Context.State == StateAwaitingConfirmation {
		s.Context.State = StateActive
	}
	s.LastUsed = time.Now()
	return pending
}

// RecordUnclearTurn bumps the patience counter while awaiting
// confirmation and reports whether patience is exhausted.
func (s *Session) RecordUnclearTurn(patience int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Context.State != StateAwaitingConfirmation {
		return false
	}
	s.Context.UnclearTurns++
	s.LastUsed = time.Now()
	return s.Context.UnclearTurns >= patience
}

// SetLastAction records the most recent completed action name.
func (s *Session) SetLastAction(action string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Context.LastAction = action
	s.LastUsed = time.Now()
}

// SetMemberVersion updates the version the next compare-and-set write
// should expect.
func (s *Session) SetMemberVersion(version int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Context.MemberVersion = version
	s.LastUsed = time.Now()
}

// AddMessage appends a transcript turn. User messages bump the
// session's turn counter.
func (s *Session) AddMessage(role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.History = append(s.History, Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
	if role == "user" {
		s.Context.TurnCount++
	}
	s.LastUsed = time.Now()
}

// GetHistory returns a copy of the transcript.
func (s *Session) GetHistory() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	historyCopy := make([]Message, len(s.History))
	copy(historyCopy, s.History)
	return historyCopy
}

// Reset clears context and transcript, returning to StateIdle.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Context = Context{State: StateIdle}
	s.History = make([]Message, 0)
	s.LastUsed = time.Now()
}

// touch refreshes the idle timer.
func (s *Session) touch() {
	s.mu.Lock()
	s.LastUsed = time.Now()
	s.mu.Unlock()
}

// lastUsed reads the idle timer under the session lock.
func (s *Session) lastUsed() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LastUsed
}

// Manager manages the live sessions.
type Manager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

// GetOrCreate gets an existing session or creates a new one.
func (m *Manager) GetOrCreate(sessionID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sessionID != "" {
		if sess, exists := m.sessions[sessionID]; exists {
			sess.touch()
			return sess
		}
	}

	sess := New(sessionID)
	m.sessions[sess.SessionID] = sess
	return sess
}

// Get retrieves an existing session.
func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, exists := m.sessions[sessionID]
	if !exists {
		return nil, fmt.Errorf("session not found: %s", sessionID)
	}

	sess.touch()
	return sess, nil
}

// Delete removes a session.
func (m *Manager) Delete(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[sessionID]; !exists {
		return fmt.Errorf("session not found: %s", sessionID)
	}

	delete(m.sessions, sessionID)
	return nil
}

// List returns all session IDs.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Count returns the number of active sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CleanupExpired removes sessions idle longer than maxAge.
func (m *Manager) CleanupExpired(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	removed := 0

	for id, sess := range m.sessions {
		if now.Sub(sess.lastUsed()) > maxAge {
			delete(m.sessions, id)
			removed++
		}
	}

	return removed
}
