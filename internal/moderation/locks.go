package moderation

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hrygo/modbot/internal/store"
)

// LockMessage is the view a lock predicate evaluates against
// (spec.md §4.6.3). IsMember answers the ExtUsers predicate's membership
// check for a given user id. No per-chat member records are kept: the
// dispatcher backs IsMember with the admin cache, so only the chat's
// administrators count as members.
type LockMessage struct {
	Entities    []tgbotapi.MessageEntity
	IsPremium   bool
	HasCode     bool
	HasPhoto    bool
	HasVideo    bool
	HasSticker  bool
	IsForwarded bool
	IsCommand   bool
	IsAnonChan  bool
	IsMember    func(userID int64) bool
}

// lockPredicates is the exhaustive predicate set named in spec.md
// §4.6.3.
var lockPredicates = map[store.LockKind]func(LockMessage) bool{
	store.LockPremium:     func(m LockMessage) bool { return m.IsPremium },
	store.LockLink:        hasLink,
	store.LockInviteLink:  hasInviteLink,
	store.LockExtUsers:    hasExternalUser,
	store.LockCode:        func(m LockMessage) bool { return m.HasCode },
	store.LockPhoto:       func(m LockMessage) bool { return m.HasPhoto },
	store.LockVideo:       func(m LockMessage) bool { return m.HasVideo },
	store.LockSticker:     func(m LockMessage) bool { return m.HasSticker },
	store.LockForward:     func(m LockMessage) bool { return m.IsForwarded },
	store.LockCommand:     func(m LockMessage) bool { return m.IsCommand },
	store.LockAnonChannel: func(m LockMessage) bool { return m.IsAnonChan },
}

// ValidLockKind reports whether kind is one of the closed set of
// lockable predicates spec.md §4.6.3 names.
func ValidLockKind(kind store.LockKind) bool {
	_, ok := lockPredicates[kind]
	return ok
}

func hasLink(m LockMessage) bool {
	for _, e := range m.Entities {
		if e.Type == "url" || e.Type == "text_link" {
			return true
		}
	}
	return false
}

// canonicalHosts are the platform's own domains; a link to one of
// these is an invite link rather than an arbitrary external URL.
var canonicalHosts = []string{"t.me", "tg://", "telegram.me"}

func hasInviteLink(m LockMessage) bool {
	for _, e := range m.Entities {
		if e.Type != "url" && e.Type != "text_link" {
			continue
		}
		target := e.URL
		if target == "" {
			continue
		}
		for _, host := range canonicalHosts {
			if strings.Contains(strings.ToLower(target), host) {
				return true
			}
		}
	}
	return false
}

func hasExternalUser(m LockMessage) bool {
	if m.IsMember == nil {
		return false
	}
	for _, e := range m.Entities {
		if e.Type != "text_mention" {
			continue
		}
		if e.User != nil && !m.IsMember(e.User.ID) {
			return true
		}
	}
	return false
}

// EvaluateLocks resolves the action to apply for msg against a chat's
// enabled locks, or false if none match. The highest-precedence
// action-kind across every matched lock wins; a lock without an
// explicit action defers to def.
func EvaluateLocks(locks []store.Lock, def store.DefaultLock, msg LockMessage) (kind store.ActionKind, reason string, matched bool) {
	for _, l := range locks {
		pred, ok := lockPredicates[l.Kind]
		if !ok || !pred(msg) {
			continue
		}
		action := def.Action
		if l.Action != nil {
			action = *l.Action
		}
		if !matched {
			kind, reason, matched = action, l.Reason, true
			continue
		}
		kind = store.HigherPrecedence(kind, action)
		if action == kind && l.Reason != "" {
			reason = l.Reason
		}
	}
	return kind, reason, matched
}
