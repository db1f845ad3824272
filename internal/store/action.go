package store

import (
	"context"
	"database/sql"

	"github.com/hrygo/modbot/internal/boterror"
)

var actionCols = []string{
	"chat_id", "user_id", "kind",
	"can_manage_chat", "can_restrict_members", "can_delete_messages",
	"can_change_info", "can_promote_members", "can_pin_messages",
	"pending", "expiry",
}

var actionUpdateCols = actionCols[2:]

func actionArgs(a *Action) []any {
	var expiry any
	if a.Expiry != nil {
		expiry = *a.Expiry
	}
	p := a.Permissions
	return []any{
		a.ChatID, a.UserID, int(a.Kind),
		p.CanManageChat, p.CanRestrictMembers, p.CanDeleteMessages,
		p.CanChangeInfo, p.CanPromoteMembers, p.CanPinMessages,
		a.Pending, expiry,
	}
}

// RecordAction upserts the Action row for (chatID,userID), keyed so that
// a later action of higher precedence can overwrite a lower one without
// a duplicate row (spec.md §3 "Action" lifecycle).
func (s *Store) RecordAction(ctx context.Context, tx *sql.Tx, a *Action) error {
	return s.UpsertOnConflict(ctx, tx, "actions",
		actionCols, []string{"chat_id", "user_id"}, actionUpdateCols,
		actionArgs(a)...,
	)
}

func scanAction(scan func(dest ...any) error) (*Action, error) {
	var a Action
	var expiry sql.NullTime
	var p BotPermissionBits
	err := scan(&a.ChatID, &a.UserID, (*int)(&a.Kind),
		&p.CanManageChat, &p.CanRestrictMembers, &p.CanDeleteMessages,
		&p.CanChangeInfo, &p.CanPromoteMembers, &p.CanPinMessages,
		&a.Pending, &expiry)
	if err != nil {
		return nil, err
	}
	a.Permissions = p
	if expiry.Valid {
		a.Expiry = &expiry.Time
	}
	return &a, nil
}

// GetAction reads the current Action for (chatID,userID), if any.
func (s *Store) GetAction(ctx context.Context, chatID, userID int64) (*Action, error) {
	row := s.q(nil).QueryRowContext(ctx, s.dialect.Rebind(
		`SELECT chat_id, user_id, kind, can_manage_chat, can_restrict_members, can_delete_messages,
		 can_change_info, can_promote_members, can_pin_messages, pending, expiry
		 FROM actions WHERE chat_id = ? AND user_id = ?`), chatID, userID)

	a, err := scanAction(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, boterror.Store("failed to get action", err)
	}
	return a, nil
}

// ClearAction removes the Action row for (chatID,userID), e.g. on unban
// or unmute.
func (s *Store) ClearAction(ctx context.Context, tx *sql.Tx, chatID, userID int64) error {
	_, err := s.q(tx).ExecContext(ctx, s.dialect.Rebind(
		`DELETE FROM actions WHERE chat_id = ? AND user_id = ?`), chatID, userID)
	if err != nil {
		return boterror.Store("failed to clear action", err)
	}
	return nil
}

// ListExpiringActions returns every Action whose expiry has passed,
// for the background unmute/unban sweep named in spec.md §4.6.7.
func (s *Store) ListExpiringActions(ctx context.Context, before any) ([]Action, error) {
	rows, err := s.q(nil).QueryContext(ctx, s.dialect.Rebind(
		`SELECT chat_id, user_id, kind, can_manage_chat, can_restrict_members, can_delete_messages,
		 can_change_info, can_promote_members, can_pin_messages, pending, expiry
		 FROM actions WHERE expiry IS NOT NULL AND expiry <= ?`), before)
	if err != nil {
		return nil, boterror.Store("failed to list expiring actions", err)
	}
	defer rows.Close()
	var out []Action
	for rows.Next() {
		a, err := scanAction(rows.Scan)
		if err != nil {
			return nil, boterror.Store("failed to scan action", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}
