package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hrygo/modbot/internal/boterror"
)

// StartConversation persists a fresh FSM instance, states and
// transitions serialized as JSON columns (the durable counterpart of
// the runtime FSM built by internal/moderation's conversation engine).
func (s *Store) StartConversation(ctx context.Context, tx *sql.Tx, chatID, userID int64, states []ConversationState, transitions []ConversationTransition) (*Conversation, error) {
	statesJSON, err := json.Marshal(states)
	if err != nil {
		return nil, boterror.Serialization(err)
	}
	transJSON, err := json.Marshal(transitions)
	if err != nil {
		return nil, boterror.Serialization(err)
	}
	c := &Conversation{ID: uuid.NewString(), ChatID: chatID, UserID: userID, StateIndex: states[0].ID, States: states, Transitions: transitions}
	_, err = s.q(tx).ExecContext(ctx, s.dialect.Rebind(
		`INSERT INTO conversations (id, chat_id, user_id, state_index, states_json, transitions_json) VALUES (?, ?, ?, ?, ?, ?)`),
		c.ID, c.ChatID, c.UserID, c.StateIndex, string(statesJSON), string(transJSON))
	if err != nil {
		return nil, boterror.Store("failed to start conversation", err)
	}
	return c, nil
}

// GetConversation loads an FSM instance by id.
func (s *Store) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	var c Conversation
	var statesJSON, transJSON string
	err := s.q(nil).QueryRowContext(ctx, s.dialect.Rebind(
		`SELECT id, chat_id, user_id, state_index, states_json, transitions_json FROM conversations WHERE id = ?`), id).
		Scan(&c.ID, &c.ChatID, &c.UserID, &c.StateIndex, &statesJSON, &transJSON)
	if err == sql.ErrNoRows {
		return nil, boterror.NotFound("conversation")
	}
	if err != nil {
		return nil, boterror.Store("failed to get conversation", err)
	}
	if err := json.Unmarshal([]byte(statesJSON), &c.States); err != nil {
		return nil, boterror.Serialization(err)
	}
	if err := json.Unmarshal([]byte(transJSON), &c.Transitions); err != nil {
		return nil, boterror.Serialization(err)
	}
	return &c, nil
}

// WriteConversationState persists the FSM's current state index, the durable side of the "write_self"
// operation named in spec.md §4.3.3.
func (s *Store) WriteConversationState(ctx context.Context, tx *sql.Tx, id, stateIndex string) error {
	res, err := s.q(tx).ExecContext(ctx, s.dialect.Rebind(
		`UPDATE conversations SET state_index = ? WHERE id = ?`), stateIndex, id)
	if err != nil {
		return boterror.Store("failed to write conversation state", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return boterror.NotFound("conversation")
	}
	return nil
}

// EndConversation deletes a finished FSM instance.
func (s *Store) EndConversation(ctx context.Context, tx *sql.Tx, id string) error {
	_, err := s.q(tx).ExecContext(ctx, s.dialect.Rebind(`DELETE FROM conversations WHERE id = ?`), id)
	if err != nil {
		return boterror.Store("failed to end conversation", err)
	}
	return nil
}
