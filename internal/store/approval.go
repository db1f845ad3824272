package store

import (
	"context"
	"database/sql"

	"github.com/hrygo/modbot/internal/boterror"
)

// IsApproved reports whether (chatID,userID) is exempt from automated
// moderation.
func (s *Store) IsApproved(ctx context.Context, chatID, userID int64) (bool, error) {
	var exists int
	err := s.q(nil).QueryRowContext(ctx, s.dialect.Rebind(
		`SELECT 1 FROM approvals WHERE chat_id = ? AND user_id = ?`), chatID, userID).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, boterror.Store("failed to check approval", err)
	}
	return true, nil
}

// Approve records (chatID,userID) as approved. Idempotent: approving an
// already-approved user is a no-op (spec.md §8).
func (s *Store) Approve(ctx context.Context, chatID, userID int64) error {
	return s.UpsertOnConflict(ctx, nil, "approvals",
		[]string{"chat_id", "user_id"}, []string{"chat_id", "user_id"}, nil,
		chatID, userID,
	)
}

// Unapprove removes an approval. Returns ErrNotApproved if the user was
// not approved, so the caller can surface the no-op Speak described in
// spec.md §8.
func (s *Store) Unapprove(ctx context.Context, chatID, userID int64) error {
	res, err := s.q(nil).ExecContext(ctx, s.dialect.Rebind(
		`DELETE FROM approvals WHERE chat_id = ? AND user_id = ?`), chatID, userID)
	if err != nil {
		return boterror.Store("failed to unapprove", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotApproved
	}
	return nil
}

// ListApprovals returns every approved user-id for a chat.
func (s *Store) ListApprovals(ctx context.Context, chatID int64) ([]int64, error) {
	rows, err := s.q(nil).QueryContext(ctx, s.dialect.Rebind(
		`SELECT user_id FROM approvals WHERE chat_id = ?`), chatID)
	if err != nil {
		return nil, boterror.Store("failed to list approvals", err)
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, boterror.Store("failed to scan approval", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ErrNotApproved is returned by Unapprove on an un-approved user.
var ErrNotApproved = boterror.NotFound("approval")
