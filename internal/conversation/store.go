// internal/conversation/store.go
// Package conversation keeps multi-turn chat sessions and drives completions
// over their full history, including optional follow-up question generation.
package conversation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/agentseek/api/schemas"
)

// ErrNotFound is returned when a session id has no stored conversation.
var ErrNotFound = fmt.Errorf("conversation session not found")

const maxFollowups = 3

// followupContextWindow limits how much history feeds follow-up generation.
const followupContextWindow = 4

// ChatResult is returned by Chat: the assistant reply plus any generated
// follow-up questions.
type ChatResult struct {
	SessionID string    `json:"session_id"`
	Message   string    `json:"message"`
	Followups []string  `json:"followup_questions,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Store owns all conversation sessions. Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*schemas.ConversationSession

	provider schemas.CompletionProvider
	logger   *zap.Logger
}

func NewStore(provider schemas.CompletionProvider, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		sessions: make(map[string]*schemas.ConversationSession),
		provider: provider,
		logger:   logger.Named("conversation"),
	}
}

// Chat appends the user message to the session (creating the session when the
// id is empty or unknown), completes over the full history, and appends the
// assistant reply. Follow-up questions are best effort: a provider fault there
// is logged and swallowed rather than failing the chat turn.
func (s *Store) Chat(ctx context.Context, sessionID, text string, generateFollowup bool) (*ChatResult, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	history := s.appendMessage(sessionID, "user", text)

	reply, err := s.provider.CompleteMessages(ctx, history)
	if err != nil {
		return nil, fmt.Errorf("chat completion for session %s: %w", sessionID, err)
	}

	s.appendMessage(sessionID, "assistant", reply)

	result := &ChatResult{
		SessionID: sessionID,
		Message:   reply,
		Timestamp: time.Now(),
	}
	if generateFollowup {
		result.Followups = s.generateFollowups(ctx, sessionID)
	}
	return result, nil
}

// appendMessage adds one turn, creating the session on first use, and returns
// a snapshot of the history including the new message.
func (s *Store) appendMessage(sessionID, role, content string) []schemas.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	session, ok := s.sessions[sessionID]
	if !ok {
		session = &schemas.ConversationSession{
			SessionID: sessionID,
			CreatedAt: now,
		}
		s.sessions[sessionID] = session
		s.logger.Info("Conversation session created", zap.String("session_id", sessionID))
	}

	session.Messages = append(session.Messages, schemas.ChatMessage{
		Role:      role,
		Content:   content,
		Timestamp: now,
	})
	session.UpdatedAt = now

	return append([]schemas.ChatMessage(nil), session.Messages...)
}

// generateFollowups asks the provider for up to three follow-up questions
// grounded on the tail of the conversation. Never returns an error; faults
// degrade to an empty list.
func (s *Store) generateFollowups(ctx context.Context, sessionID string) []string {
	s.mu.RLock()
	session, ok := s.sessions[sessionID]
	var recent []schemas.ChatMessage
	if ok {
		msgs := session.Messages
		if len(msgs) > followupContextWindow {
			msgs = msgs[len(msgs)-followupContextWindow:]
		}
		recent = append(recent, msgs...)
	}
	s.mu.RUnlock()
	if len(recent) == 0 {
		return nil
	}

	var sb strings.Builder
	for i, msg := range recent {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%s: %s", msg.Role, msg.Content)
	}
	prompt := fmt.Sprintf(`Based on this conversation:

%s

Generate 3 relevant and insightful follow-up questions that the user might want to ask next.
Return ONLY the questions, one per line, without numbering or bullet points.`, sb.String())

	raw, err := s.provider.Complete(ctx, prompt, "")
	if err != nil {
		s.logger.Warn("Follow-up question generation failed",
			zap.String("session_id", sessionID), zap.Error(err))
		return nil
	}

	var questions []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		questions = append(questions, line)
		if len(questions) == maxFollowups {
			break
		}
	}
	return questions
}

// Get returns a snapshot of one session.
func (s *Store) Get(sessionID string) (schemas.ConversationSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return schemas.ConversationSession{}, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	return copySession(session), nil
}

// List returns snapshots of all sessions.
func (s *Store) List() []schemas.ConversationSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]schemas.ConversationSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, copySession(session))
	}
	return out
}

// Delete removes a session and its history.
func (s *Store) Delete(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	delete(s.sessions, sessionID)
	s.logger.Info("Conversation session deleted", zap.String("session_id", sessionID))
	return nil
}

func copySession(session *schemas.ConversationSession) schemas.ConversationSession {
	out := *session
	out.Messages = append([]schemas.ChatMessage(nil), session.Messages...)
	return out
}
