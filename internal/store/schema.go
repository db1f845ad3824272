package store

import "strings"

// DDL returns the ordered CREATE TABLE statements for every entity named
// in spec.md §6's Persisted state layout. Parents precede children so
// foreign keys resolve; ON DELETE CASCADE encodes the §3 invariant that
// deleting a Filter/Note/Rules/Blocklist/Federation row removes its
// owned children (entities, triggers, admins, bans).
func DDL(d Dialect) []string {
	pk := d.AutoIncrementPK
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGINT PRIMARY KEY,
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			username TEXT NOT NULL DEFAULT '',
			is_bot BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS dialogs (
			chat_id BIGINT PRIMARY KEY,
			language TEXT NOT NULL DEFAULT 'en',
			kind TEXT NOT NULL DEFAULT 'group',
			federation_id TEXT,
			warn_limit INTEGER NOT NULL DEFAULT 3,
			warn_duration_seconds INTEGER NOT NULL DEFAULT 0,
			default_action INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS entity (
			id ` + pk + `
		)`,
		`CREATE TABLE IF NOT EXISTS message_entity (
			id ` + pk + `,
			entity_id BIGINT NOT NULL REFERENCES entity(id) ON DELETE CASCADE,
			type TEXT NOT NULL,
			offset_utf16 INTEGER NOT NULL,
			length_utf16 INTEGER NOT NULL,
			url TEXT NOT NULL DEFAULT '',
			user_id BIGINT NOT NULL DEFAULT 0,
			language TEXT NOT NULL DEFAULT '',
			custom_emoji_id TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS button (
			id ` + pk + `,
			entity_id BIGINT NOT NULL REFERENCES entity(id) ON DELETE CASCADE,
			row_idx INTEGER NOT NULL,
			col_idx INTEGER NOT NULL,
			label TEXT NOT NULL,
			kind TEXT NOT NULL,
			target TEXT NOT NULL,
			same_row BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			chat_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL,
			state_index TEXT NOT NULL,
			states_json TEXT NOT NULL,
			transitions_json TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS approvals (
			chat_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL,
			PRIMARY KEY (chat_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS warns (
			id ` + pk + `,
			chat_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			expiry TIMESTAMP,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS actions (
			chat_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL,
			kind INTEGER NOT NULL,
			can_manage_chat BOOLEAN NOT NULL DEFAULT FALSE,
			can_restrict_members BOOLEAN NOT NULL DEFAULT FALSE,
			can_delete_messages BOOLEAN NOT NULL DEFAULT FALSE,
			can_change_info BOOLEAN NOT NULL DEFAULT FALSE,
			can_promote_members BOOLEAN NOT NULL DEFAULT FALSE,
			can_pin_messages BOOLEAN NOT NULL DEFAULT FALSE,
			pending BOOLEAN NOT NULL DEFAULT TRUE,
			expiry TIMESTAMP,
			PRIMARY KEY (chat_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS notes (
			chat_id BIGINT NOT NULL,
			name TEXT NOT NULL,
			text TEXT NOT NULL DEFAULT '',
			media_ref TEXT NOT NULL DEFAULT '',
			media_kind INTEGER NOT NULL DEFAULT 4,
			protect BOOLEAN NOT NULL DEFAULT FALSE,
			entity_id BIGINT REFERENCES entity(id) ON DELETE SET NULL,
			PRIMARY KEY (chat_id, name)
		)`,
		`CREATE TABLE IF NOT EXISTS filters (
			id ` + pk + `,
			chat_id BIGINT NOT NULL,
			text TEXT NOT NULL DEFAULT '',
			media_ref TEXT NOT NULL DEFAULT '',
			media_kind INTEGER NOT NULL DEFAULT 4,
			entity_id BIGINT REFERENCES entity(id) ON DELETE SET NULL
		)`,
		`CREATE TABLE IF NOT EXISTS triggers (
			trigger TEXT NOT NULL,
			filter_id BIGINT NOT NULL REFERENCES filters(id) ON DELETE CASCADE,
			PRIMARY KEY (trigger, filter_id)
		)`,
		`CREATE TABLE IF NOT EXISTS blocklists (
			id ` + pk + `,
			chat_id BIGINT NOT NULL,
			action_kind INTEGER NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			duration_seconds INTEGER NOT NULL DEFAULT 0,
			handle TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS blocklist_triggers (
			trigger TEXT NOT NULL,
			blocklist_id BIGINT NOT NULL REFERENCES blocklists(id) ON DELETE CASCADE,
			predicate_kind TEXT NOT NULL,
			PRIMARY KEY (trigger, blocklist_id)
		)`,
		`CREATE TABLE IF NOT EXISTS locks (
			chat_id BIGINT NOT NULL,
			lock_kind TEXT NOT NULL,
			action_kind INTEGER,
			reason TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (chat_id, lock_kind)
		)`,
		`CREATE TABLE IF NOT EXISTS default_locks (
			chat_id BIGINT PRIMARY KEY,
			lock_action INTEGER NOT NULL,
			duration_seconds INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS captcha (
			chat_id BIGINT PRIMARY KEY,
			enabled BOOLEAN NOT NULL DEFAULT FALSE,
			kind TEXT NOT NULL DEFAULT 'button',
			kick_time_seconds INTEGER,
			prompt_text TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS captcha_auth (
			chat_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL,
			PRIMARY KEY (chat_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS stickers (
			chat_id BIGINT NOT NULL,
			uid TEXT NOT NULL,
			file_id TEXT NOT NULL,
			PRIMARY KEY (chat_id, uid)
		)`,
		`CREATE TABLE IF NOT EXISTS sticker_tags (
			chat_id BIGINT NOT NULL,
			uid TEXT NOT NULL,
			tag TEXT NOT NULL,
			PRIMARY KEY (chat_id, uid, tag)
		)`,
		`CREATE TABLE IF NOT EXISTS rules (
			chat_id BIGINT PRIMARY KEY,
			text TEXT NOT NULL DEFAULT '',
			media_ref TEXT NOT NULL DEFAULT '',
			media_kind INTEGER NOT NULL DEFAULT 4,
			private BOOLEAN NOT NULL DEFAULT FALSE,
			button_label TEXT NOT NULL DEFAULT '',
			entity_id BIGINT REFERENCES entity(id) ON DELETE SET NULL
		)`,
		`CREATE TABLE IF NOT EXISTS welcomes (
			chat_id BIGINT PRIMARY KEY,
			text TEXT NOT NULL DEFAULT '',
			entity_id BIGINT REFERENCES entity(id) ON DELETE SET NULL,
			enabled BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS federations (
			id TEXT PRIMARY KEY,
			owner BIGINT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			subscribed_to TEXT REFERENCES federations(id)
		)`,
		`CREATE TABLE IF NOT EXISTS fedadmin (
			fed_id TEXT NOT NULL REFERENCES federations(id) ON DELETE CASCADE,
			user_id BIGINT NOT NULL,
			PRIMARY KEY (fed_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS fbans (
			fed_id TEXT NOT NULL REFERENCES federations(id) ON DELETE CASCADE,
			user_id BIGINT NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			username TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (fed_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS gbans (
			user_id BIGINT PRIMARY KEY,
			reason TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS taint (
			chat_id BIGINT NOT NULL,
			scope TEXT NOT NULL,
			media_id TEXT NOT NULL,
			media_kind INTEGER NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			PRIMARY KEY (chat_id, scope, media_id)
		)`,
	}
	return stmts
}

// Indices returns CREATE INDEX statements, separate from DDL so
// DownDrop can enumerate and drop them explicitly (spec.md §4.2's
// "extension to drop tables and their indices atomically").
func Indices() map[string][]string {
	return map[string][]string{
		"triggers":            {"CREATE INDEX IF NOT EXISTS idx_triggers_trigger ON triggers(trigger)"},
		"blocklist_triggers":  {"CREATE INDEX IF NOT EXISTS idx_blk_triggers_trigger ON blocklist_triggers(trigger)"},
		"warns":               {"CREATE INDEX IF NOT EXISTS idx_warns_chat_user ON warns(chat_id, user_id)"},
		"fbans":               {"CREATE INDEX IF NOT EXISTS idx_fbans_user ON fbans(user_id)"},
		"blocklists":          {"CREATE UNIQUE INDEX IF NOT EXISTS idx_blocklists_handle ON blocklists(handle) WHERE handle IS NOT NULL"},
	}
}

// DownDrop returns the statements that drop table and every index
// registered against it, in one migration step.
func DownDrop(table string) []string {
	var stmts []string
	for _, idx := range Indices()[table] {
		name := idx[strings.Index(idx, "IF NOT EXISTS")+len("IF NOT EXISTS") : strings.Index(idx, " ON ")]
		stmts = append(stmts, "DROP INDEX IF EXISTS"+name)
	}
	stmts = append(stmts, "DROP TABLE IF EXISTS "+table)
	return stmts
}
