package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/hrygo/modbot/internal/boterror"
)

// ErrFederationCycle guards the subscription DAG invariant in spec.md
// §4.6.5: a federation may not (transitively) subscribe to itself.
var ErrFederationCycle = boterror.Generic("federation subscription would create a cycle", nil)

// CreateFederation creates a new, unsubscribed federation owned by ownerID.
func (s *Store) CreateFederation(ctx context.Context, tx *sql.Tx, ownerID int64, name string) (*Federation, error) {
	f := &Federation{ID: uuid.NewString(), Owner: ownerID, Name: name}
	_, err := s.q(tx).ExecContext(ctx, s.dialect.Rebind(
		`INSERT INTO federations (id, owner, name, subscribed_to) VALUES (?, ?, ?, NULL)`), f.ID, f.Owner, f.Name)
	if err != nil {
		return nil, boterror.Store("failed to create federation", err)
	}
	return f, nil
}

// GetFederation reads a federation by id.
func (s *Store) GetFederation(ctx context.Context, id string) (*Federation, error) {
	var f Federation
	var sub sql.NullString
	err := s.q(nil).QueryRowContext(ctx, s.dialect.Rebind(
		`SELECT id, owner, name, subscribed_to FROM federations WHERE id = ?`), id).
		Scan(&f.ID, &f.Owner, &f.Name, &sub)
	if err == sql.ErrNoRows {
		return nil, boterror.NotFound("federation")
	}
	if err != nil {
		return nil, boterror.Store("failed to get federation", err)
	}
	if sub.Valid {
		f.SubscribedTo = &sub.String
	}
	return &f, nil
}

// GetFederationByOwner reads the one federation userID owns, per
// spec.md §3's "at most one ... Federation-owner ... per chat" and
// "owner unique" invariant on the federations table.
func (s *Store) GetFederationByOwner(ctx context.Context, ownerID int64) (*Federation, error) {
	var id string
	err := s.q(nil).QueryRowContext(ctx, s.dialect.Rebind(
		`SELECT id FROM federations WHERE owner = ?`), ownerID).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, boterror.NotFound("federation")
	}
	if err != nil {
		return nil, boterror.Store("failed to look up federation by owner", err)
	}
	return s.GetFederation(ctx, id)
}

// GetFederationByName reads a federation by its display name, used to
// resolve `/subfed <name>`-style command arguments to an id.
func (s *Store) GetFederationByName(ctx context.Context, name string) (*Federation, error) {
	var id string
	err := s.q(nil).QueryRowContext(ctx, s.dialect.Rebind(
		`SELECT id FROM federations WHERE name = ?`), name).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, boterror.NotFound("federation")
	}
	if err != nil {
		return nil, boterror.Store("failed to look up federation by name", err)
	}
	return s.GetFederation(ctx, id)
}

// Subscribe points fedID at subscribeTo, after walking subscribeTo's
// chain to make sure fedID does not already appear in it (cycle guard).
func (s *Store) Subscribe(ctx context.Context, tx *sql.Tx, fedID, subscribeTo string) error {
	if fedID == subscribeTo {
		return ErrFederationCycle
	}
	cursor := subscribeTo
	for {
		var sub sql.NullString
		err := s.q(tx).QueryRowContext(ctx, s.dialect.Rebind(
			`SELECT subscribed_to FROM federations WHERE id = ?`), cursor).Scan(&sub)
		if err == sql.ErrNoRows {
			return boterror.NotFound("federation")
		}
		if err != nil {
			return boterror.Store("failed to get federation", err)
		}
		if !sub.Valid {
			break
		}
		if sub.String == fedID {
			return ErrFederationCycle
		}
		cursor = sub.String
	}
	_, err := s.q(tx).ExecContext(ctx, s.dialect.Rebind(
		`UPDATE federations SET subscribed_to = ? WHERE id = ?`), subscribeTo, fedID)
	if err != nil {
		return boterror.Store("failed to subscribe federation", err)
	}
	return nil
}

// Unsubscribe clears a federation's subscription. Callers invalidate
// only fedID's own FederationGuard cache entry, not its subscribers'
// (spec.md §9 Open Questions: the legacy behavior does the same and
// whether it should cascade is not obviously correct in the source, so
// this carries the ambiguity forward rather than guessing a fix).
func (s *Store) Unsubscribe(ctx context.Context, tx *sql.Tx, fedID string) error {
	_, err := s.q(tx).ExecContext(ctx, s.dialect.Rebind(
		`UPDATE federations SET subscribed_to = NULL WHERE id = ?`), fedID)
	if err != nil {
		return boterror.Store("failed to unsubscribe federation", err)
	}
	return nil
}

// AddFedAdmin grants fedID-scoped ban rights to userID.
func (s *Store) AddFedAdmin(ctx context.Context, tx *sql.Tx, fedID string, userID int64) error {
	return s.UpsertOnConflict(ctx, tx, "fedadmin",
		[]string{"fed_id", "user_id"}, []string{"fed_id", "user_id"}, nil,
		fedID, userID,
	)
}

// RemoveFedAdmin revokes fedID-scoped ban rights from userID.
func (s *Store) RemoveFedAdmin(ctx context.Context, tx *sql.Tx, fedID string, userID int64) error {
	_, err := s.q(tx).ExecContext(ctx, s.dialect.Rebind(
		`DELETE FROM fedadmin WHERE fed_id = ? AND user_id = ?`), fedID, userID)
	if err != nil {
		return boterror.Store("failed to remove fedadmin", err)
	}
	return nil
}

// IsFedAdmin reports whether userID can manage bans in fedID.
func (s *Store) IsFedAdmin(ctx context.Context, fedID string, userID int64) (bool, error) {
	var exists int
	err := s.q(nil).QueryRowContext(ctx, s.dialect.Rebind(
		`SELECT 1 FROM fedadmin WHERE fed_id = ? AND user_id = ?`), fedID, userID).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, boterror.Store("failed to check fedadmin", err)
	}
	return true, nil
}

// Fban bans userID federation-wide in fedID.
func (s *Store) Fban(ctx context.Context, tx *sql.Tx, b *Fban) error {
	return s.UpsertOnConflict(ctx, tx, "fbans",
		[]string{"fed_id", "user_id", "reason", "username"},
		[]string{"fed_id", "user_id"},
		[]string{"reason", "username"},
		b.FedID, b.UserID, b.Reason, b.Username,
	)
}

// Unfban removes a federation ban.
func (s *Store) Unfban(ctx context.Context, tx *sql.Tx, fedID string, userID int64) error {
	_, err := s.q(tx).ExecContext(ctx, s.dialect.Rebind(
		`DELETE FROM fbans WHERE fed_id = ? AND user_id = ?`), fedID, userID)
	if err != nil {
		return boterror.Store("failed to unfban", err)
	}
	return nil
}

// EffectiveFbans walks fedID's subscription chain, collecting every
// federation-ban it inherits transitively. The walk issues one query
// per hop, not a recursive CTE, and stops at a federation already seen.
func (s *Store) EffectiveFbans(ctx context.Context, fedID string) ([]Fban, error) {
	var out []Fban
	seen := map[string]bool{}
	cursor := fedID
	for cursor != "" && !seen[cursor] {
		seen[cursor] = true
		rows, err := s.q(nil).QueryContext(ctx, s.dialect.Rebind(
			`SELECT fed_id, user_id, reason, username FROM fbans WHERE fed_id = ?`), cursor)
		if err != nil {
			return nil, boterror.Store("failed to load fbans", err)
		}
		for rows.Next() {
			var b Fban
			if err := rows.Scan(&b.FedID, &b.UserID, &b.Reason, &b.Username); err != nil {
				rows.Close()
				return nil, boterror.Store("failed to scan fban", err)
			}
			out = append(out, b)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, boterror.Store("fban rows error", err)
		}

		f, err := s.GetFederation(ctx, cursor)
		if err != nil {
			return nil, err
		}
		if f.SubscribedTo == nil {
			break
		}
		cursor = *f.SubscribedTo
	}
	return out, nil
}

// Gban adds a global ban, enforced across every chat the bot sits in.
func (s *Store) Gban(ctx context.Context, tx *sql.Tx, userID int64, reason string) error {
	return s.UpsertOnConflict(ctx, tx, "gbans",
		[]string{"user_id", "reason"}, []string{"user_id"}, []string{"reason"},
		userID, reason,
	)
}

// Ungban removes a global ban.
func (s *Store) Ungban(ctx context.Context, tx *sql.Tx, userID int64) error {
	_, err := s.q(tx).ExecContext(ctx, s.dialect.Rebind(`DELETE FROM gbans WHERE user_id = ?`), userID)
	if err != nil {
		return boterror.Store("failed to ungban", err)
	}
	return nil
}

// IsGbanned reports whether userID is globally banned.
func (s *Store) IsGbanned(ctx context.Context, userID int64) (bool, error) {
	var exists int
	err := s.q(nil).QueryRowContext(ctx, s.dialect.Rebind(
		`SELECT 1 FROM gbans WHERE user_id = ?`), userID).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, boterror.Store("failed to check gban", err)
	}
	return true, nil
}
