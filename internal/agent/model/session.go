package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is immutable once appended to a Session.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// DialogueState is the cumulative per-session context carried between turns.
type DialogueState struct {
	CurrentIntent     Intent                     `json:"current_intent,omitempty"`
	MissingSlots      []string                   `json:"missing_slots"`
	ExtractedEntities Entities                   `json:"extracted_entities"`
	LastAction        string                     `json:"last_action,omitempty"`
	ToolContext       map[string]json.RawMessage `json:"per_tool_context"`
}

// Session is the unit persisted by a SessionStore. It is owned by the store
// between turns and by the engine for the duration of one turn.
type Session struct {
	ID           string        `json:"session_id"`
	Messages     []Message     `json:"messages"`
	State        DialogueState `json:"state"`
	CreatedAt    time.Time     `json:"created_at"`
	LastActivity time.Time     `json:"last_activity"`
}

// NewSession returns an empty session created now.
func NewSession(id string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:       id,
		Messages: []Message{},
		State: DialogueState{
			ExtractedEntities: Entities{},
			ToolContext:       map[string]json.RawMessage{},
		},
		CreatedAt:    now,
		LastActivity: now,
	}
}

// AddMessage appends a message and bumps LastActivity.
func (s *Session) AddMessage(role Role, content string) {
	now := time.Now().UTC()
	s.Messages = append(s.Messages, Message{Role: role, Content: content, Timestamp: now})
	s.LastActivity = now
}

// RecentMessages returns at most limit trailing messages.
func (s *Session) RecentMessages(limit int) []Message {
	if limit <= 0 || len(s.Messages) <= limit {
		return s.Messages
	}
	return s.Messages[len(s.Messages)-limit:]
}

// ContextSummary renders the current intent, entities and last few messages
// on one line.
func (s *Session) ContextSummary() string {
	var parts []string
	if s.State.CurrentIntent != "" {
		parts = append(parts, "Current intent: "+string(s.State.CurrentIntent))
	}
	if len(s.State.ExtractedEntities) > 0 {
		keys := make([]string, 0, len(s.State.ExtractedEntities))
		for k := range s.State.ExtractedEntities {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		kv := make([]string, 0, len(keys))
		for _, k := range keys {
			kv = append(kv, fmt.Sprintf("%s=%v", k, s.State.ExtractedEntities[k]))
		}
		parts = append(parts, "Entities: "+strings.Join(kv, ", "))
	}
	if len(s.State.ToolContext) > 0 {
		tools := make([]string, 0, len(s.State.ToolContext))
		for tool := range s.State.ToolContext {
			tools = append(tools, tool)
		}
		sort.Strings(tools)
		parts = append(parts, "Context: "+strings.Join(tools, ", "))
	}

	summary := "No specific context"
	if len(parts) > 0 {
		summary = strings.Join(parts, " | ")
	}

	recent := s.RecentMessages(3)
	if len(recent) == 0 {
		return summary
	}
	turns := make([]string, 0, len(recent))
	for _, m := range recent {
		content := m.Content
		if len([]rune(content)) > 50 {
			content = string([]rune(content)[:50]) + "..."
		}
		turns = append(turns, fmt.Sprintf("%s: %s", m.Role, content))
	}
	return summary + " | Recent: " + strings.Join(turns, " -> ")
}
