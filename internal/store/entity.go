package store

import (
	"context"
	"database/sql"

	"github.com/hrygo/modbot/internal/boterror"
)

// CreateEntityTree inserts a fresh Entity-parent row plus its owned
// MessageEntity and Button rows, returning the parent id that a
// Note/Filter/Rules/Welcome row should reference. Deleting that parent
// row later cascades to both children tables (spec.md §3 invariant,
// exercised by DeleteEntityTree/TestEntityTreeCascadeDelete).
func (s *Store) CreateEntityTree(ctx context.Context, tx *sql.Tx, entities []MessageEntity, buttons []Button) (int64, error) {
	q := s.q(tx)

	id, err := s.insertReturningID(ctx, tx,
		"INSERT INTO entity (id) VALUES (NULL)",
		"INSERT INTO entity DEFAULT VALUES RETURNING id")
	if err != nil {
		return 0, boterror.Store("failed to create entity parent", err)
	}

	for _, e := range entities {
		query := s.dialect.Rebind(`INSERT INTO message_entity
			(entity_id, type, offset_utf16, length_utf16, url, user_id, language, custom_emoji_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if _, err := q.ExecContext(ctx, query, id, e.Type, e.Offset, e.Length, e.URL, e.UserID, e.Language, e.CustomEmojiID); err != nil {
			return 0, boterror.Store("failed to insert message_entity", err)
		}
	}
	for _, b := range buttons {
		query := s.dialect.Rebind(`INSERT INTO button
			(entity_id, row_idx, col_idx, label, kind, target, same_row)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if _, err := q.ExecContext(ctx, query, id, b.Row, b.Col, b.Label, string(b.Kind), b.Target, b.Same); err != nil {
			return 0, boterror.Store("failed to insert button", err)
		}
	}
	return id, nil
}

// DeleteEntityTree removes an Entity-parent row; ON DELETE CASCADE
// removes its message_entity and button rows in the same statement.
func (s *Store) DeleteEntityTree(ctx context.Context, tx *sql.Tx, entityID int64) error {
	q := s.q(tx)
	query := s.dialect.Rebind(`DELETE FROM entity WHERE id = ?`)
	if _, err := q.ExecContext(ctx, query, entityID); err != nil {
		return boterror.Store("failed to delete entity tree", err)
	}
	return nil
}

// LoadEntityTree reads the message entities and buttons owned by
// entityID, ordered for deterministic rendering (entities by offset,
// buttons by row then column).
func (s *Store) LoadEntityTree(ctx context.Context, entityID int64) ([]MessageEntity, []Button, error) {
	q := s.q(nil)

	var entities []MessageEntity
	rows, err := q.QueryContext(ctx, s.dialect.Rebind(`SELECT type, offset_utf16, length_utf16, url, user_id, language, custom_emoji_id
		FROM message_entity WHERE entity_id = ? ORDER BY offset_utf16`), entityID)
	if err != nil {
		return nil, nil, boterror.Store("failed to load message_entity", err)
	}
	for rows.Next() {
		var e MessageEntity
		if err := rows.Scan(&e.Type, &e.Offset, &e.Length, &e.URL, &e.UserID, &e.Language, &e.CustomEmojiID); err != nil {
			rows.Close()
			return nil, nil, boterror.Store("failed to scan message_entity", err)
		}
		entities = append(entities, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, boterror.Store("message_entity rows error", err)
	}

	var buttons []Button
	rows, err = q.QueryContext(ctx, s.dialect.Rebind(`SELECT row_idx, col_idx, label, kind, target, same_row
		FROM button WHERE entity_id = ? ORDER BY row_idx, col_idx`), entityID)
	if err != nil {
		return nil, nil, boterror.Store("failed to load button", err)
	}
	defer rows.Close()
	for rows.Next() {
		var b Button
		var kind string
		if err := rows.Scan(&b.Row, &b.Col, &b.Label, &kind, &b.Target, &b.Same); err != nil {
			return nil, nil, boterror.Store("failed to scan button", err)
		}
		b.Kind = ButtonKind(kind)
		buttons = append(buttons, b)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, boterror.Store("button rows error", err)
	}
	return entities, buttons, nil
}
