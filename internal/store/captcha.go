package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/hrygo/modbot/internal/boterror"
)

// GetCaptchaConfig reads the chat's captcha configuration, defaulting
// to a disabled button captcha with no kick timer.
func (s *Store) GetCaptchaConfig(ctx context.Context, chatID int64) (*CaptchaConfig, error) {
	var c CaptchaConfig
	c.ChatID = chatID
	var kind string
	var kickSeconds sql.NullInt64
	err := s.q(nil).QueryRowContext(ctx, s.dialect.Rebind(
		`SELECT enabled, kind, kick_time_seconds, prompt_text FROM captcha WHERE chat_id = ?`), chatID).
		Scan(&c.Enabled, &kind, &kickSeconds, &c.PromptText)
	if err == sql.ErrNoRows {
		return &CaptchaConfig{ChatID: chatID, Kind: CaptchaButton}, nil
	}
	if err != nil {
		return nil, boterror.Store("failed to get captcha config", err)
	}
	c.Kind = CaptchaKind(kind)
	if kickSeconds.Valid {
		d := time.Duration(kickSeconds.Int64) * time.Second
		c.KickTime = &d
	}
	return &c, nil
}

// SetCaptchaConfig upserts the chat's captcha configuration.
func (s *Store) SetCaptchaConfig(ctx context.Context, tx *sql.Tx, c *CaptchaConfig) error {
	var kick any
	if c.KickTime != nil {
		kick = int(c.KickTime.Seconds())
	}
	return s.UpsertOnConflict(ctx, tx, "captcha",
		[]string{"chat_id", "enabled", "kind", "kick_time_seconds", "prompt_text"},
		[]string{"chat_id"},
		[]string{"enabled", "kind", "kick_time_seconds", "prompt_text"},
		c.ChatID, c.Enabled, string(c.Kind), kick, c.PromptText,
	)
}

// MarkCaptchaSolved records that (chatID,userID) passed the join-time
// challenge, exempting them from the kick timer.
func (s *Store) MarkCaptchaSolved(ctx context.Context, tx *sql.Tx, chatID, userID int64) error {
	return s.UpsertOnConflict(ctx, tx, "captcha_auth",
		[]string{"chat_id", "user_id"}, []string{"chat_id", "user_id"}, nil,
		chatID, userID,
	)
}

// IsCaptchaSolved reports whether (chatID,userID) already passed the
// challenge.
func (s *Store) IsCaptchaSolved(ctx context.Context, chatID, userID int64) (bool, error) {
	var exists int
	err := s.q(nil).QueryRowContext(ctx, s.dialect.Rebind(
		`SELECT 1 FROM captcha_auth WHERE chat_id = ? AND user_id = ?`), chatID, userID).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, boterror.Store("failed to check captcha auth", err)
	}
	return true, nil
}
