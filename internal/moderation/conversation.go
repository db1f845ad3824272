package moderation

import (
	"context"
	"database/sql"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hrygo/modbot/internal/boterror"
	"github.com/hrygo/modbot/internal/cachekv"
	"github.com/hrygo/modbot/internal/store"
)

// conversationCacheTTL bounds how long a write_self snapshot survives
// between turns of an interactive FSM walk (spec.md §4.6.1).
const conversationCacheTTL = 30 * time.Minute

// ErrNoTransition is returned by Transition when label names no edge
// out of the current state.
var ErrNoTransition = boterror.Generic("no such transition", nil)

// Engine runs one Conversation instance's FSM: transition, read the
// current state, render its outgoing edges as a keyboard, and persist
// progress to the cache between turns.
type Engine struct {
	cache *cachekv.Client
	conv  *store.Conversation
}

func conversationCacheKey(id string) string { return "conv:" + id }

// Load resolves an in-flight Conversation, preferring the cached
// snapshot over the durable row since WriteSelf updates only the cache
// and the row's state index changes only on Sync.
func Load(ctx context.Context, s *store.Store, cache *cachekv.Client, id string) (*Engine, error) {
	var c store.Conversation
	if err := cachekv.Get(ctx, cache, conversationCacheKey(id), &c); err == nil {
		return &Engine{cache: cache, conv: &c}, nil
	} else if err != cachekv.ErrCacheMiss {
		return nil, err
	}
	conv, err := s.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Engine{cache: cache, conv: conv}, nil
}

// Start builds a fresh Engine over states/transitions, writing it to
// both the durable store and the cache.
func Start(ctx context.Context, s *store.Store, cache *cachekv.Client, tx *sql.Tx, chatID, userID int64, states []store.ConversationState, transitions []store.ConversationTransition) (*Engine, error) {
	conv, err := s.StartConversation(ctx, tx, chatID, userID, states, transitions)
	if err != nil {
		return nil, err
	}
	e := &Engine{cache: cache, conv: conv}
	return e, e.WriteSelf(ctx)
}

// Transition moves the current state to the target of the outgoing
// edge whose Label or Alias matches label.
func (e *Engine) Transition(label string) error {
	for _, t := range e.conv.Transitions {
		if t.From != e.conv.StateIndex {
			continue
		}
		if t.Label == label || (t.Alias != "" && t.Alias == label) {
			e.conv.StateIndex = t.To
			return nil
		}
	}
	return ErrNoTransition
}

// GetCurrent returns the FSM's current state record.
func (e *Engine) GetCurrent() (store.ConversationState, bool) {
	for _, st := range e.conv.States {
		if st.ID == e.conv.StateIndex {
			return st, true
		}
	}
	return store.ConversationState{}, false
}

// GetCurrentMarkup renders the current state's outgoing transitions
// as an inline keyboard grouped into columns columns per row.
func (e *Engine) GetCurrentMarkup(columns int) tgbotapi.InlineKeyboardMarkup {
	if columns < 1 {
		columns = 1
	}
	var out [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, t := range e.conv.Transitions {
		if t.From != e.conv.StateIndex {
			continue
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(t.Label, "conv:"+e.conv.ID+":"+t.Label))
		if len(row) == columns {
			out = append(out, row)
			row = nil
		}
	}
	if len(row) > 0 {
		out = append(out, row)
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: out}
}

// WriteSelf persists the FSM's current state index to the cache
// (spec.md §4.6.1's write_self operation); the durable row's state
// index is written only by Sync, and End deletes the row.
func (e *Engine) WriteSelf(ctx context.Context) error {
	return cachekv.Set(ctx, e.cache, conversationCacheKey(e.conv.ID), *e.conv, conversationCacheTTL)
}

// Sync flushes the current state index to the durable store, used
// when an FSM walk concludes and its result must outlive the cache TTL.
func (e *Engine) Sync(ctx context.Context, s *store.Store, tx *sql.Tx) error {
	return s.WriteConversationState(ctx, tx, e.conv.ID, e.conv.StateIndex)
}

// End removes the conversation from both cache and store.
func (e *Engine) End(ctx context.Context, s *store.Store, tx *sql.Tx) error {
	if err := s.EndConversation(ctx, tx, e.conv.ID); err != nil {
		return err
	}
	return e.cache.Del(ctx, conversationCacheKey(e.conv.ID))
}

// BuildHelpMenu constructs the states/transitions for the bot's help
// menu as a Conversation whose states are module names and whose
// transitions are that module's commands (spec.md §4.6.1's closing
// note). modules maps a module name to its rendered help text, and
// commands maps a module name to the command names listed under it.
func BuildHelpMenu(modules map[string]string, commands map[string][]string) ([]store.ConversationState, []store.ConversationTransition) {
	const root = "help"
	states := []store.ConversationState{{ID: root, Text: "Choose a module:"}}
	var transitions []store.ConversationTransition
	for name, text := range modules {
		states = append(states, store.ConversationState{ID: name, Text: text})
		transitions = append(transitions, store.ConversationTransition{From: root, Label: name, To: name})
		for _, cmd := range commands[name] {
			transitions = append(transitions, store.ConversationTransition{From: name, Label: cmd, To: name})
		}
		transitions = append(transitions, store.ConversationTransition{From: name, Label: "back", To: root})
	}
	return states, transitions
}
