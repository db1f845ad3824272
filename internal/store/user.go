package store

import (
	"context"
	"database/sql"

	"github.com/hrygo/modbot/internal/boterror"
)

// UpsertUser records the last-seen profile fields for a user, called on
// every inbound message/callback so @username lookups and form-fillings
// (spec.md §4.3.4) stay current without a dedicated profile-sync job.
func (s *Store) UpsertUser(ctx context.Context, tx *sql.Tx, u *User) error {
	return s.UpsertOnConflict(ctx, tx, "users",
		[]string{"id", "first_name", "last_name", "username", "is_bot"},
		[]string{"id"},
		[]string{"first_name", "last_name", "username", "is_bot"},
		u.ID, u.FirstName, u.LastName, u.Username, u.IsBot,
	)
}

// GetUser reads a user's last-known profile.
func (s *Store) GetUser(ctx context.Context, id int64) (*User, error) {
	var u User
	err := s.q(nil).QueryRowContext(ctx, s.dialect.Rebind(
		`SELECT id, first_name, last_name, username, is_bot FROM users WHERE id = ?`), id).
		Scan(&u.ID, &u.FirstName, &u.LastName, &u.Username, &u.IsBot)
	if err == sql.ErrNoRows {
		return nil, boterror.NotFound("user")
	}
	if err != nil {
		return nil, boterror.Store("failed to get user", err)
	}
	return &u, nil
}

// FindUserByUsername resolves an @username to a user id, used when a
// command argument names a user who hasn't been tagged as a mention
// entity.
func (s *Store) FindUserByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	err := s.q(nil).QueryRowContext(ctx, s.dialect.Rebind(
		`SELECT id, first_name, last_name, username, is_bot FROM users WHERE username = ?`), username).
		Scan(&u.ID, &u.FirstName, &u.LastName, &u.Username, &u.IsBot)
	if err == sql.ErrNoRows {
		return nil, boterror.NotFound("user")
	}
	if err != nil {
		return nil, boterror.Store("failed to find user by username", err)
	}
	return &u, nil
}
