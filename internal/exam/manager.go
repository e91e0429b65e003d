package exam

import (
	"context"
	"log/slog"
	"sync"

	"github.com/examhall/examhall/internal/events"
	"github.com/examhall/examhall/internal/model"
)

// Manager owns the live sessions, keyed by auth token. Each session has a
// single writer; the map itself is guarded for concurrent requests.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Start begins a session for a token, discarding any unfinished one. An
// abandoned exam is simply dropped, never resumed.
func (m *Manager) Start(token, accountID, subjectID string, p *model.QuestionPaper) *Session {
	s := NewSession(accountID, subjectID, p)
	m.mu.Lock()
	m.sessions[token] = s
	m.mu.Unlock()
	return s
}

// Get returns the live session for a token, or nil.
func (m *Manager) Get(token string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[token]
}

// Drop discards the session for a token.
func (m *Manager) Drop(token string) {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
}

// DropAccount discards every live session belonging to an account.
func (m *Manager) DropAccount(accountID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for token, s := range m.sessions {
		if s.AccountID == accountID {
			delete(m.sessions, token)
		}
	}
}

// Watch discards an account's live sessions when it signs out or its
// approval changes, so a torn-down identity cannot finish an exam.
func (m *Manager) Watch(ctx context.Context, bus *events.Bus) error {
	evs, err := bus.SubscribeAccountChanged(ctx)
	if err != nil {
		return err
	}
	go func() {
		for ev := range evs {
			switch ev.Type {
			case events.AccountSignedOut, events.AccountApprovalChange:
				m.DropAccount(ev.AccountID)
				slog.Debug("dropped live sessions", "account_id", ev.AccountID, "reason", ev.Type)
			}
		}
	}()
	return nil
}
