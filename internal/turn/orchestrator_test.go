package turn

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmaciel/parley/internal/history"
)

type mockResponder struct {
	replies []string
	prompts [][]history.Message
	err     error
}

func (m *mockResponder) Respond(ctx context.Context, prompt []history.Message) (history.Message, error) {
	if m.err != nil {
		return history.Message{}, m.err
	}
	m.prompts = append(m.prompts, prompt)
	if len(m.replies) == 0 {
		panic("mockResponder: no more replies configured")
	}
	reply := m.replies[0]
	m.replies = m.replies[1:]
	return history.Message{Role: history.RoleAssistant, Content: reply}, nil
}

type mockRecorder struct {
	sessions []string
	batches  [][]history.Message
	err      error
}

func (m *mockRecorder) Record(sessionID string, msgs []history.Message) error {
	m.sessions = append(m.sessions, sessionID)
	m.batches = append(m.batches, msgs)
	return m.err
}

func human(t *testing.T, content string) history.Message {
	t.Helper()
	m, err := history.NewMessage(history.RoleHuman, content)
	require.NoError(t, err)
	return m
}

// TestTake_TwoTurnConversation walks a session through two turns and checks
// that the second prompt carries the full prior context.
func TestTake_TwoTurnConversation(t *testing.T) {
	store := history.NewStore()
	responder := &mockResponder{replies: []string{"Hello Bob!", "Your name is Bob."}}
	o := New(store, responder, nil)

	reply, err := o.Take(context.Background(), "s1", human(t, "hi! I'm bob"))
	require.NoError(t, err)
	require.Equal(t, "Hello Bob!", reply.Content)

	h := store.GetOrCreate("s1")
	msgs := h.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, history.RoleHuman, msgs[0].Role)
	require.Equal(t, "hi! I'm bob", msgs[0].Content)
	require.Equal(t, history.RoleAssistant, msgs[1].Role)
	require.Equal(t, "Hello Bob!", msgs[1].Content)

	reply, err = o.Take(context.Background(), "s1", human(t, "what was my name?"))
	require.NoError(t, err)
	require.True(t, strings.Contains(reply.Content, "Bob"))

	// Second prompt = 2 prior + 1 new incoming.
	require.Len(t, responder.prompts, 2)
	require.Len(t, responder.prompts[1], 3)
	require.Equal(t, "what was my name?", responder.prompts[1][2].Content)

	msgs = h.Messages()
	require.Len(t, msgs, 4)
	require.Equal(t, "hi! I'm bob", msgs[0].Content)
	require.Equal(t, "Hello Bob!", msgs[1].Content)
	require.Equal(t, "what was my name?", msgs[2].Content)
	require.Equal(t, "Your name is Bob.", msgs[3].Content)
}

func TestTake_SessionsDoNotShareContext(t *testing.T) {
	store := history.NewStore()
	responder := &mockResponder{replies: []string{"a", "b"}}
	o := New(store, responder, nil)

	_, err := o.Take(context.Background(), "s1", human(t, "one"))
	require.NoError(t, err)
	_, err = o.Take(context.Background(), "s2", human(t, "two"))
	require.NoError(t, err)

	// The second session's prompt holds only its own incoming message.
	require.Len(t, responder.prompts[1], 1)
	require.Equal(t, "two", responder.prompts[1][0].Content)
	require.Equal(t, 2, store.GetOrCreate("s1").Len())
	require.Equal(t, 2, store.GetOrCreate("s2").Len())
}

func TestTake_MissingSessionIDFailsBeforeStoreMutation(t *testing.T) {
	store := history.NewStore()
	o := New(store, &mockResponder{replies: []string{"never"}}, nil)

	for _, id := range []string{"", "   "} {
		_, err := o.Take(context.Background(), id, human(t, "hi"))
		require.ErrorIs(t, err, ErrMissingSessionID)
	}
	require.Equal(t, 0, store.Len())
}

func TestTake_ResponderFailureLeavesHistoryUntouched(t *testing.T) {
	store := history.NewStore()
	wantErr := errors.New("model unavailable")
	o := New(store, &mockResponder{err: wantErr}, nil)

	_, err := o.Take(context.Background(), "s1", human(t, "hi"))
	require.ErrorIs(t, err, wantErr)
	require.Equal(t, 0, store.GetOrCreate("s1").Len())
}

func TestTake_RejectsUnknownIncomingRole(t *testing.T) {
	store := history.NewStore()
	o := New(store, &mockResponder{replies: []string{"never"}}, nil)

	_, err := o.Take(context.Background(), "s1", history.Message{Role: "wizard", Content: "zap"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if store.Len() != 0 {
		t.Fatalf("store mutated on invalid input")
	}
}

func TestTake_RecordsCommittedTurn(t *testing.T) {
	store := history.NewStore()
	rec := &mockRecorder{}
	o := New(store, &mockResponder{replies: []string{"Hello Bob!"}}, rec)

	_, err := o.Take(context.Background(), "s1", human(t, "hi! I'm bob"))
	require.NoError(t, err)

	require.Equal(t, []string{"s1"}, rec.sessions)
	require.Len(t, rec.batches, 1)
	require.Len(t, rec.batches[0], 2)
	require.Equal(t, "hi! I'm bob", rec.batches[0][0].Content)
	require.Equal(t, "Hello Bob!", rec.batches[0][1].Content)
}

// TestTake_RecorderFailureDoesNotFailTurn: journaling is best effort.
func TestTake_RecorderFailureDoesNotFailTurn(t *testing.T) {
	store := history.NewStore()
	rec := &mockRecorder{err: errors.New("disk full")}
	o := New(store, &mockResponder{replies: []string{"ok"}}, rec)

	reply, err := o.Take(context.Background(), "s1", human(t, "hi"))
	require.NoError(t, err)
	require.Equal(t, "ok", reply.Content)
	require.Equal(t, 2, store.GetOrCreate("s1").Len())
}
