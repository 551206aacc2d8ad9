package forum

import (
	"time"

	"hackerthink/models"
)

// Actor is the authenticated caller as resolved from session state.
// Guests have ID 0 and RoleGuest.
type Actor struct {
	ID   int
	Role string
}

// RoleGuest never appears in the users table; it only exists as an
// actor role for unauthenticated requests.
const RoleGuest = "guest"

var Guest = Actor{ID: 0, Role: RoleGuest}

// Action names the category-gated operations.
type Action string

const (
	ActionView  Action = "view"
	ActionPost  Action = "post"
	ActionReply Action = "reply"
)

var roleRanks = map[string]int{
	RoleGuest:            0,
	models.RoleUser:      1,
	models.RoleModerator: 2,
	models.RoleAdmin:     3,
}

func roleRank(role string) int {
	return roleRanks[role]
}

func (a Actor) IsRegistered() bool {
	return a.ID != 0 && roleRank(a.Role) >= roleRank(models.RoleUser)
}

func (a Actor) IsModerator() bool {
	return roleRank(a.Role) >= roleRank(models.RoleModerator)
}

func (a Actor) IsAdmin() bool {
	return roleRank(a.Role) >= roleRank(models.RoleAdmin)
}

// minRankFor translates a category permission level into the minimum
// actor rank it demands.
func minRankFor(perm string) int {
	switch perm {
	case models.PermAll:
		return roleRank(RoleGuest)
	case models.PermModerator:
		return roleRank(models.RoleModerator)
	default: // registered
		return roleRank(models.RoleUser)
	}
}

// CategoryAllows decides whether the actor's role satisfies the
// category's minimum level for the action. It is a pure function of
// actor and category state; ban checks are layered separately because
// they need the user row.
func CategoryAllows(actor Actor, cat *models.Category, action Action) bool {
	var perm string
	switch action {
	case ActionView:
		perm = cat.ViewRole
	case ActionPost:
		perm = cat.PostRole
	case ActionReply:
		perm = cat.ReplyRole
	default:
		return false
	}
	return roleRank(actor.Role) >= minRankFor(perm)
}

// IsEffectivelyBanned evaluates ban expiry lazily at call time: an
// expired ban counts as no ban even though is_banned is still set in
// storage. Readers must never trust the flag alone.
func IsEffectivelyBanned(u *models.User, now time.Time) bool {
	if !u.IsBanned {
		return false
	}
	if u.BanExpiresAt == nil {
		return true // permanent
	}
	return u.BanExpiresAt.After(now)
}
