// Package turn runs one round of a conversation: read the session's prior
// messages, obtain a single model response for prior ++ incoming, and commit
// the incoming messages plus the response back to the session history as one
// batch. The history store is never locked while the model call is in flight.
package turn

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/qmuntal/stateless"

	"github.com/dmaciel/parley/internal/history"
	"github.com/dmaciel/parley/internal/logger"
)

// ErrMissingSessionID is returned when a turn is requested without a session
// identifier. The store is not touched in that case.
var ErrMissingSessionID = errors.New("turn: missing session identifier")

// Responder is the model-invocation step: it computes exactly one response
// message from the full ordered prompt. It may block for a network round
// trip; its failures propagate unchanged to the caller of Take.
type Responder interface {
	Respond(ctx context.Context, prompt []history.Message) (history.Message, error)
}

// Recorder receives each committed turn, in commit order. Used for the
// transcript journal; a nil Recorder disables recording.
type Recorder interface {
	Record(sessionID string, msgs []history.Message) error
}

// FSM states
type FSMState stateless.State

var (
	StateReadyToInvoke FSMState = "ReadyToInvokeModel"
	StateCommitting    FSMState = "CommittingTurn"
	StateDone          FSMState = "Done"
	StateError         FSMState = "Error"
)

// FSM triggers
type FSMTrigger stateless.Trigger

var (
	TriggerBeginTurn      FSMTrigger = "BeginTurn"
	TriggerModelResponded FSMTrigger = "ModelResponded"
	TriggerTurnCommitted  FSMTrigger = "TurnCommitted"
	TriggerErrorOccurred  FSMTrigger = "ErrorOccurred"
)

// Orchestrator owns the turn protocol for a single store. Construct one per
// process and share it; it carries no per-turn state.
type Orchestrator struct {
	store     *history.Store
	responder Responder
	recorder  Recorder
}

// New creates an orchestrator. recorder may be nil.
func New(store *history.Store, responder Responder, recorder Recorder) *Orchestrator {
	return &Orchestrator{
		store:     store,
		responder: responder,
		recorder:  recorder,
	}
}

// Take runs one turn for sessionID: incoming messages are added to the
// session's prompt, the responder computes a reply, and incoming ++ reply is
// appended in a single batch. On any failure before the append the session
// history is left untouched.
func (o *Orchestrator) Take(ctx context.Context, sessionID string, incoming ...history.Message) (history.Message, error) {
	if strings.TrimSpace(sessionID) == "" {
		return history.Message{}, ErrMissingSessionID
	}
	for _, m := range incoming {
		if !m.Role.Valid() {
			return history.Message{}, fmt.Errorf("turn: incoming message has unknown role %q", m.Role)
		}
	}

	type turnContext struct {
		hist    *history.SessionHistory
		reply   history.Message
		lastErr error
	}
	tc := &turnContext{}

	fsm := stateless.NewStateMachine(StateReadyToInvoke)

	// State: ReadyToInvokeModel
	// Snapshot prior messages, build the prompt, call the responder.
	// No history lock is held across the responder call: the snapshot is a
	// copy and the append happens later in CommittingTurn.
	fsm.Configure(StateReadyToInvoke).
		PermitReentry(TriggerBeginTurn).
		OnEntry(func(ctx context.Context, args ...any) error {
			logger.L.Debug("turn: invoking model", "session_id", sessionID, "incoming", len(incoming))

			tc.hist = o.store.GetOrCreate(sessionID)
			prior := tc.hist.Messages()
			prompt := append(prior, incoming...)

			reply, err := o.responder.Respond(ctx, prompt)
			if err != nil {
				tc.lastErr = err
				return fsm.Fire(TriggerErrorOccurred, ctx)
			}
			tc.reply = reply
			return fsm.Fire(TriggerModelResponded, ctx)
		}).
		Permit(TriggerModelResponded, StateCommitting).
		Permit(TriggerErrorOccurred, StateError)

	// State: CommittingTurn
	// Append the user's turn and the response as one batch, then journal it.
	fsm.Configure(StateCommitting).
		OnEntry(func(ctx context.Context, args ...any) error {
			batch := make([]history.Message, 0, len(incoming)+1)
			batch = append(batch, incoming...)
			batch = append(batch, tc.reply)
			tc.hist.Append(batch...)

			if o.recorder != nil {
				if err := o.recorder.Record(sessionID, batch); err != nil {
					// The turn is already committed; journaling is best effort.
					logger.L.Warn("turn: transcript record failed", "session_id", sessionID, "error", err)
				}
			}
			return fsm.Fire(TriggerTurnCommitted, ctx)
		}).
		Permit(TriggerTurnCommitted, StateDone).
		Permit(TriggerErrorOccurred, StateError)

	fsm.Configure(StateDone)
	fsm.Configure(StateError)

	if err := fsm.FireCtx(ctx, TriggerBeginTurn); err != nil {
		logger.L.Error("turn: state machine fire failed", "session_id", sessionID, "error", err)
		if tc.lastErr != nil {
			return history.Message{}, tc.lastErr
		}
		return history.Message{}, fmt.Errorf("turn: state machine error: %w", err)
	}

	switch state := fsm.MustState(); state {
	case StateDone:
		logger.L.Info("turn: committed", "session_id", sessionID, "messages", tc.hist.Len())
		return tc.reply, nil
	case StateError:
		if tc.lastErr == nil {
			tc.lastErr = errors.New("turn: reached error state without a specific error")
		}
		return history.Message{}, tc.lastErr
	default:
		return history.Message{}, fmt.Errorf("turn: ended in unexpected state %v", state)
	}
}
