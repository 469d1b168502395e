package conversations

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Chative-core-poc-v1/dialogue/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/dialogue/internal/core/error"
	logx "github.com/Chative-core-poc-v1/dialogue/pkg/logger"
)

const SystemPrompt = "You are a helpful assistant for ZUS Coffee. You can help with outlet information, product queries, and calculations."

// SessionManager owns session lifecycle on top of a SessionStore.
type SessionManager struct {
	store  model.SessionStore
	maxAge time.Duration
}

func NewSessionManager(store model.SessionStore, config model.SessionConfig) *SessionManager {
	return &SessionManager{
		store:  store,
		maxAge: config.MaxAge,
	}
}

// Ensure returns s, or a fresh session seeded with the system message when s is nil.
func Ensure(s *model.Session, id string) *model.Session {
	if s != nil {
		return s
	}
	s = model.NewSession(id)
	s.AddMessage(model.RoleSystem, SystemPrompt)
	return s
}

// Run executes fn on the session inside the store's atomic update. The
// session is created when missing; fn's changes are saved only if it returns nil.
func (m *SessionManager) Run(ctx context.Context, id string, fn func(*model.Session) error) (*model.Session, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errx.Validation("session id is required", nil)
	}
	return m.store.Update(ctx, id, func(s *model.Session) (*model.Session, error) {
		s = Ensure(s, id)
		if err := fn(s); err != nil {
			return nil, err
		}
		return s, nil
	})
}

// Get loads a session, reporting a NotFound error when it does not exist.
func (m *SessionManager) Get(ctx context.Context, id string) (*model.Session, error) {
	s, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, errx.NotFound(fmt.Sprintf("session %s not found", id), nil)
	}
	return s, nil
}

func (m *SessionManager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

func (m *SessionManager) Delete(ctx context.Context, id string) error {
	return m.store.Delete(ctx, id)
}

// Prune removes sessions idle for longer than maxAge, or the configured
// maximum when maxAge is zero.
func (m *SessionManager) Prune(ctx context.Context, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		maxAge = m.maxAge
	}
	n, err := m.store.Prune(ctx, maxAge)
	if err != nil {
		return 0, err
	}
	logx.Info().Int("removed", n).Dur("max_age", maxAge).Msg("pruned idle sessions")
	return n, nil
}

// Transcript renders the last maxTurns user and assistant messages.
func Transcript(messages []model.Message, maxTurns int) string {
	var b strings.Builder
	for _, msg := range trimTail(messages, maxTurns) {
		if msg.Content == "" {
			continue
		}
		switch msg.Role {
		case model.RoleUser:
			b.WriteString("user> " + msg.Content + "\n")
		case model.RoleAssistant:
			b.WriteString("bot>  " + msg.Content + "\n")
		}
	}
	return b.String()
}

// ====================== Helper function ======================
func trimTail(messages []model.Message, maxTurns int) []model.Message {
	if maxTurns <= 0 || len(messages) <= maxTurns {
		return messages
	}
	return messages[len(messages)-maxTurns:]
}
