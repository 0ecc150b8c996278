// internal/conversation/store_test.go
package conversation

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/agentseek/api/schemas"
)

// fakeProvider scripts both completion paths. completeMessages sees the full
// history; complete sees the follow-up prompt.
type fakeProvider struct {
	reply     string
	replyErr  error
	followup  string
	followErr error

	lastHistory []schemas.ChatMessage
	lastPrompt  string
	calls       int
}

func (f *fakeProvider) Complete(_ context.Context, prompt, _ string) (string, error) {
	f.lastPrompt = prompt
	if f.followErr != nil {
		return "", f.followErr
	}
	return f.followup, nil
}

func (f *fakeProvider) CompleteMessages(_ context.Context, msgs []schemas.ChatMessage) (string, error) {
	f.calls++
	f.lastHistory = append([]schemas.ChatMessage(nil), msgs...)
	if f.replyErr != nil {
		return "", f.replyErr
	}
	return f.reply, nil
}

func TestChatCreatesSessionAndAppendsTurns(t *testing.T) {
	provider := &fakeProvider{reply: "hello back"}
	store := NewStore(provider, zaptest.NewLogger(t))

	result, err := store.Chat(context.Background(), "", "hello", false)
	require.NoError(t, err)
	assert.NotEmpty(t, result.SessionID)
	assert.Equal(t, "hello back", result.Message)
	assert.Empty(t, result.Followups)

	session, err := store.Get(result.SessionID)
	require.NoError(t, err)
	require.Len(t, session.Messages, 2)
	assert.Equal(t, "user", session.Messages[0].Role)
	assert.Equal(t, "hello", session.Messages[0].Content)
	assert.Equal(t, "assistant", session.Messages[1].Role)
	assert.Equal(t, "hello back", session.Messages[1].Content)
}

func TestChatSendsFullHistory(t *testing.T) {
	provider := &fakeProvider{reply: "r"}
	store := NewStore(provider, zaptest.NewLogger(t))

	first, err := store.Chat(context.Background(), "", "one", false)
	require.NoError(t, err)
	_, err = store.Chat(context.Background(), first.SessionID, "two", false)
	require.NoError(t, err)

	// Second call sees user/assistant/user.
	require.Len(t, provider.lastHistory, 3)
	assert.Equal(t, "one", provider.lastHistory[0].Content)
	assert.Equal(t, "r", provider.lastHistory[1].Content)
	assert.Equal(t, "two", provider.lastHistory[2].Content)

	session, err := store.Get(first.SessionID)
	require.NoError(t, err)
	assert.Len(t, session.Messages, 4)
}

func TestChatFollowupQuestions(t *testing.T) {
	provider := &fakeProvider{
		reply:    "answer",
		followup: "Q1?\n\n  Q2?  \nQ3?\nQ4?",
	}
	store := NewStore(provider, zaptest.NewLogger(t))

	result, err := store.Chat(context.Background(), "sess", "ask", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"Q1?", "Q2?", "Q3?"}, result.Followups,
		"blank lines trimmed, capped at three")
	assert.Contains(t, provider.lastPrompt, "user: ask")
	assert.Contains(t, provider.lastPrompt, "assistant: answer")
}

func TestChatFollowupFaultSwallowed(t *testing.T) {
	provider := &fakeProvider{
		reply:     "answer",
		followErr: errors.New("provider down"),
	}
	store := NewStore(provider, zaptest.NewLogger(t))

	result, err := store.Chat(context.Background(), "sess", "ask", true)
	require.NoError(t, err, "follow-up failure must not fail the chat turn")
	assert.Equal(t, "answer", result.Message)
	assert.Empty(t, result.Followups)
}

func TestChatFollowupUsesRecentWindow(t *testing.T) {
	provider := &fakeProvider{reply: "r", followup: "Q?"}
	store := NewStore(provider, zaptest.NewLogger(t))

	for i := 0; i < 3; i++ {
		_, err := store.Chat(context.Background(), "long", fmt.Sprintf("msg-%d", i), false)
		require.NoError(t, err)
	}
	_, err := store.Chat(context.Background(), "long", "final", true)
	require.NoError(t, err)

	// Eight messages exist; only the last four feed the follow-up prompt.
	assert.NotContains(t, provider.lastPrompt, "msg-0")
	assert.NotContains(t, provider.lastPrompt, "msg-1")
	assert.Contains(t, provider.lastPrompt, "final")
}

func TestChatProviderError(t *testing.T) {
	wantErr := errors.New("api unreachable")
	provider := &fakeProvider{replyErr: wantErr}
	store := NewStore(provider, zaptest.NewLogger(t))

	_, err := store.Chat(context.Background(), "sess", "hello", false)
	require.ErrorIs(t, err, wantErr)

	// The user turn is retained so a retry carries the same history.
	session, err := store.Get("sess")
	require.NoError(t, err)
	require.Len(t, session.Messages, 1)
	assert.Equal(t, "user", session.Messages[0].Role)
}

func TestListAndDelete(t *testing.T) {
	provider := &fakeProvider{reply: "r"}
	store := NewStore(provider, zaptest.NewLogger(t))

	_, err := store.Chat(context.Background(), "a", "1", false)
	require.NoError(t, err)
	_, err = store.Chat(context.Background(), "b", "2", false)
	require.NoError(t, err)
	assert.Len(t, store.List(), 2)

	require.NoError(t, store.Delete("a"))
	_, err = store.Get("a")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, store.List(), 1)

	require.ErrorIs(t, store.Delete("a"), ErrNotFound)
	_, err = store.Get("missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetReturnsSnapshot(t *testing.T) {
	provider := &fakeProvider{reply: "r"}
	store := NewStore(provider, zaptest.NewLogger(t))

	_, err := store.Chat(context.Background(), "s", "hello", false)
	require.NoError(t, err)

	snap, err := store.Get("s")
	require.NoError(t, err)
	snap.Messages[0].Content = "mutated"

	fresh, err := store.Get("s")
	require.NoError(t, err)
	assert.Equal(t, "hello", fresh.Messages[0].Content)
}
