// Package policy decides which portal roles may perform which billing actions.
// Roles come from the session and are trusted as supplied.
package policy

import (
	"errors"

	"github.com/mmynk/deptportal/internal/models"
)

// Sentinel errors returned by Authorize.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrUnauthorized    = errors.New("unauthorized")
)

// Action describes the kind of billing operation an actor wants to perform.
type Action string

const (
	ActionViewOwnFees Action = "view_own_fees"
	ActionPayFee      Action = "pay_fee"
	ActionViewHistory Action = "view_history"
	ActionViewAllFees Action = "view_all_fees"
	ActionViewStats   Action = "view_stats"
	ActionManageFees  Action = "manage_fees"
)

// Subject is anything carrying an authenticated role, such as a session.
type Subject interface {
	Authenticated() bool
	Role() models.Role
}

// rules lists the actions granted to each role. Faculty have no billing access.
var rules = map[models.Role]map[Action]bool{
	models.RoleStudent: {
		ActionViewOwnFees: true,
		ActionPayFee:      true,
		ActionViewHistory: true,
	},
	models.RoleAdmin: {
		ActionViewAllFees: true,
		ActionViewStats:   true,
		ActionManageFees:  true,
	},
}

// Authorize returns nil when subject may perform action.
func Authorize(subject Subject, action Action) error {
	if subject == nil || !subject.Authenticated() {
		return ErrUnauthenticated
	}
	return AuthorizeRole(subject.Role(), action)
}

// AuthorizeRole checks a bare role, for callers that already authenticated the actor.
func AuthorizeRole(role models.Role, action Action) error {
	if !rules[role][action] {
		return ErrUnauthorized
	}
	return nil
}

// Can is a convenience wrapper returning bool instead of error.
func Can(subject Subject, action Action) bool {
	return Authorize(subject, action) == nil
}
