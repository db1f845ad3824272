// Package permissions implements the bot-wide permission algebra and
// admin-cache coordination described in spec.md §4.5.
package permissions

import "github.com/hrygo/modbot/internal/store"

// NamedPermission pairs a permission's grant state with a human label
// used in the "Permission denied" message boterror.PermissionDenied
// builds.
type NamedPermission struct {
	Name    string
	Granted bool
}

// and combines two permissions: granted iff both components are.
func (p NamedPermission) and(other NamedPermission) NamedPermission {
	return NamedPermission{Name: p.Name + " and " + other.Name, Granted: p.Granted && other.Granted}
}

// And is the exported form of and, used by callers outside the
// package composing a compound permission check.
func And(a, b NamedPermission, others ...NamedPermission) NamedPermission {
	combined := a.and(b)
	for _, o := range others {
		combined = combined.and(o)
	}
	return combined
}

// NamedBotPermissions exposes every BotPermissionBits field as a
// NamedPermission, the argument check_permissions' predicate receives.
type NamedBotPermissions struct {
	CanManageChat      NamedPermission
	CanRestrictMembers NamedPermission
	CanDeleteMessages  NamedPermission
	CanChangeInfo      NamedPermission
	CanPromoteMembers  NamedPermission
	CanPinMessages     NamedPermission
}

// FromBits builds a NamedBotPermissions view over a raw bitset, owner
// status overriding every field to granted regardless of the bits.
func FromBits(bits store.BotPermissionBits, isOwner bool) NamedBotPermissions {
	if isOwner {
		return NamedBotPermissions{
			CanManageChat:      NamedPermission{"manage chat", true},
			CanRestrictMembers: NamedPermission{"restrict members", true},
			CanDeleteMessages:  NamedPermission{"delete messages", true},
			CanChangeInfo:      NamedPermission{"change info", true},
			CanPromoteMembers:  NamedPermission{"promote members", true},
			CanPinMessages:     NamedPermission{"pin messages", true},
		}
	}
	return NamedBotPermissions{
		CanManageChat:      NamedPermission{"manage chat", bits.CanManageChat},
		CanRestrictMembers: NamedPermission{"restrict members", bits.CanRestrictMembers},
		CanDeleteMessages:  NamedPermission{"delete messages", bits.CanDeleteMessages},
		CanChangeInfo:      NamedPermission{"change info", bits.CanChangeInfo},
		CanPromoteMembers:  NamedPermission{"promote members", bits.CanPromoteMembers},
		CanPinMessages:     NamedPermission{"pin messages", bits.CanPinMessages},
	}
}

// Elevated tracks the two bot-wide elevated classes, sourced from the
// static config user-id sets in internal/config.
type Elevated struct {
	Sudo    map[int64]bool
	Support map[int64]bool
}

func NewElevated(sudo, support []int64) Elevated {
	e := Elevated{Sudo: map[int64]bool{}, Support: map[int64]bool{}}
	for _, id := range sudo {
		e.Sudo[id] = true
	}
	for _, id := range support {
		e.Support[id] = true
	}
	return e
}

func (e Elevated) IsSudo(userID int64) bool    { return e.Sudo[userID] }
func (e Elevated) IsSupport(userID int64) bool { return e.Support[userID] }
