// Package store is the Durable Store Gateway (spec component C2): an
// async-closure-transactional, upsert-on-conflict ORM layer over a
// relational store, generalized from the teacher's
// store/db/{sqlite,postgres} split (see internal/store/sqlite,
// internal/store/postgres) to the entities named in spec.md §3 and §6.
package store

import "time"

// ChatKind enumerates the platform chat kinds the core distinguishes.
type ChatKind string

const (
	ChatPrivate    ChatKind = "private"
	ChatGroup      ChatKind = "group"
	ChatSupergroup ChatKind = "supergroup"
	ChatChannel    ChatKind = "channel"
)

// Chat mirrors the platform chat the core cares about.
type Chat struct {
	ID       int64
	Kind     ChatKind
	Language string
}

// User mirrors the platform user the core cares about.
type User struct {
	ID        int64
	FirstName string
	LastName  string
	Username  string
	IsBot     bool
}

// MemberRole enumerates ChatMember.Role.
type MemberRole string

const (
	RoleMember        MemberRole = "member"
	RoleAdministrator MemberRole = "administrator"
	RoleOwner         MemberRole = "owner"
	RoleRestricted    MemberRole = "restricted"
	RoleLeft          MemberRole = "left"
	RoleBanned        MemberRole = "banned"
)

// ChatMember is never durably stored (spec.md §3): it lives only as an
// opaque cached blob keyed by chat, held in the admin cache
// (internal/permissions). The type lives here because it is the value
// every admin-cache read/write is typed over.
type ChatMember struct {
	ChatID      int64
	UserID      int64
	Role        MemberRole
	Permissions BotPermissionBits
}

// BotPermissionBits is the wire-level permission bitset carried on an
// administrator ChatMember, decoded into the BotPermissions algebra by
// internal/permissions.
type BotPermissionBits struct {
	CanManageChat      bool
	CanRestrictMembers bool
	CanDeleteMessages  bool
	CanChangeInfo      bool
	CanPromoteMembers  bool
	CanPinMessages     bool
}

// ActionKind enumerates the moderation decisions the core can apply.
type ActionKind int

const (
	ActionDelete ActionKind = iota
	ActionWarn
	ActionMute
	ActionBan
	ActionShame
)

// precedence defines the natural ordering used to resolve lock conflicts
// (spec.md §4.6.3): higher value wins.
var precedence = map[ActionKind]int{
	ActionDelete: 0,
	ActionWarn:   1,
	ActionShame:  2,
	ActionMute:   3,
	ActionBan:    4,
}

// HigherPrecedence returns whichever of a, b has greater precedence.
func HigherPrecedence(a, b ActionKind) ActionKind {
	if precedence[b] > precedence[a] {
		return b
	}
	return a
}

func (k ActionKind) String() string {
	switch k {
	case ActionWarn:
		return "warn"
	case ActionMute:
		return "mute"
	case ActionBan:
		return "ban"
	case ActionShame:
		return "shame"
	default:
		return "delete"
	}
}

// Dialog is the one per-chat settings row (spec.md §3 invariants).
type Dialog struct {
	ChatID          int64
	Language        string
	Kind            ChatKind
	FederationID    *string
	WarnLimit       int
	WarnDuration    time.Duration
	DefaultAction   ActionKind
}

// Conversation is a finite-state-automaton instance for one (chat,user).
type Conversation struct {
	ID          string
	ChatID      int64
	UserID      int64
	StateIndex  string
	States      []ConversationState
	Transitions []ConversationTransition
}

// ConversationState is one node of a Conversation's FSM.
type ConversationState struct {
	ID   string
	Text string
}

// ConversationTransition is one edge of a Conversation's FSM.
type ConversationTransition struct {
	From  string
	Label string
	Alias string
	To    string
}

// Approval records that (chat,user) is exempt from automated moderation.
type Approval struct {
	ChatID int64
	UserID int64
}

// Warn is one append-only warning.
type Warn struct {
	ID        int64
	ChatID    int64
	UserID    int64
	Reason    string
	Expiry    *time.Time
	CreatedAt time.Time
}

// Action is a scheduled-or-just-taken moderation decision.
type Action struct {
	ChatID      int64
	UserID      int64
	Kind        ActionKind
	Permissions BotPermissionBits
	Pending     bool
	Expiry      *time.Time
}

// EntityRef is the FK into the Entity-parent row a Note/Filter/Rules
// row's rendered body points to. Nil means plain text with no buttons
// or rich entities.
type EntityRef struct {
	ID int64
}

// MessageEntity is one typed span inside a rendered body, UTF-16 offsets.
type MessageEntity struct {
	Type           string
	Offset         int
	Length         int
	URL            string
	UserID         int64
	Language       string
	CustomEmojiID  string
}

// ButtonKind distinguishes how a stored inline button should be rendered.
type ButtonKind string

const (
	ButtonURL      ButtonKind = "url"
	ButtonCallback ButtonKind = "callback"
)

// Button is one inline-keyboard button owned by an Entity-parent row.
type Button struct {
	Row    int
	Col    int
	Label  string
	Kind   ButtonKind
	Target string // URL, or callback payload / note name
	Same   bool   // buttonurl://...:same — append to previous row
}

// MediaKind enumerates the core's media taxonomy (spec.md §6). Values
// are the core's own numbering; the rival bot's differing codes are
// translated at the import/export boundary (see moderation/importexport.go).
type MediaKind int

const (
	MediaSticker MediaKind = iota + 1
	MediaPhoto
	MediaDocument
	MediaText
	MediaVideo
	MediaAudio
)

// Note is a keyed callable canned message.
type Note struct {
	ChatID     int64
	Name       string
	Text       string
	MediaRef   string
	MediaKind  MediaKind
	Protect    bool
	EntityID   *int64
}

// Filter fires on a trigger whole-word match.
type Filter struct {
	ID        int64
	ChatID    int64
	Text      string
	MediaRef  string
	MediaKind MediaKind
	EntityID  *int64
	Triggers  []string
}

// PredicateKind enumerates how a blocklist trigger is matched.
type PredicateKind string

const (
	PredicateGlob   PredicateKind = "glob"
	PredicateText   PredicateKind = "text"
	PredicateScript PredicateKind = "script"
)

// Blocklist is one configured block rule.
type Blocklist struct {
	ID       int64
	ChatID   int64
	Action   ActionKind
	Reason   string
	Duration time.Duration
	Handle   string // globally unique for Script rows
	Triggers []BlocklistTrigger
}

// BlocklistTrigger pairs a trigger string with how it is matched.
type BlocklistTrigger struct {
	Trigger   string
	Predicate PredicateKind
}

// LockKind enumerates the closed set of lockable message properties.
type LockKind string

const (
	LockPremium     LockKind = "premium"
	LockLink        LockKind = "link"
	LockCode        LockKind = "code"
	LockPhoto       LockKind = "photo"
	LockVideo       LockKind = "video"
	LockAnonChannel LockKind = "anon_channel"
	LockCommand     LockKind = "command"
	LockForward     LockKind = "forward"
	LockSticker     LockKind = "sticker"
	LockInviteLink  LockKind = "invite_link"
	LockExtUsers    LockKind = "ext_users"
)

// Lock is one enabled lock for a chat.
type Lock struct {
	ChatID int64
	Kind   LockKind
	Action *ActionKind
	Reason string
}

// DefaultLock is the fallback action/duration for locks without an
// explicit action.
type DefaultLock struct {
	ChatID   int64
	Action   ActionKind
	Duration time.Duration
}

// CaptchaKind distinguishes button vs image-choice captchas.
type CaptchaKind string

const (
	CaptchaButton CaptchaKind = "button"
	CaptchaText   CaptchaKind = "text"
)

// CaptchaConfig is the per-chat captcha configuration.
type CaptchaConfig struct {
	ChatID     int64
	Enabled    bool
	Kind       CaptchaKind
	KickTime   *time.Duration
	PromptText string
}

// CaptchaAuth records a successful captcha solve.
type CaptchaAuth struct {
	ChatID int64
	UserID int64
}

// Federation is a named, owned ban-list, optionally subscribed to
// another federation (spec.md §4.6.5).
type Federation struct {
	ID            string
	Owner         int64
	Name          string
	SubscribedTo  *string
}

// FedAdmin grants a user administrative rights over a federation.
type FedAdmin struct {
	FedID  string
	UserID int64
}

// Fban is one federation ban.
type Fban struct {
	FedID    string
	UserID   int64
	Reason   string
	Username string
}

// Gban is one global ban.
type Gban struct {
	UserID int64
	Reason string
}

// Rules is the one per-chat rules row.
type Rules struct {
	ChatID      int64
	Text        string
	MediaRef    string
	MediaKind   MediaKind
	Private     bool
	ButtonLabel string
	EntityID    *int64
}

// Taint records an unresolvable imported media reference.
type Taint struct {
	ChatID    int64
	Scope     string
	MediaID   string
	MediaKind MediaKind
	Notes     string
	CreatedAt time.Time
}
