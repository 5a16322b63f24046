// Package acl evaluates access control lists attached to domain objects.
// Evaluation denies by default: a caller gets access only when an entry
// explicitly allows the operation.
package acl

import (
	"errors"

	"boss-server-go/internal/domain/auth"
)

// ErrAccessDenied is returned when no ACL entry allows the operation.
var ErrAccessDenied = errors.New("access denied")

// Op names an operation an ACL entry can allow.
type Op string

const (
	OpCreate Op = "create"
	OpRead   Op = "read"
	OpWrite  Op = "write"
	OpDelete Op = "delete"
)

// Selector decides which users an entry applies to. It is a closed set:
// Everyone, User, Group and Nested are the only implementations.
type Selector interface {
	matches(userID uint, op Op) bool
}

// Everyone applies to any caller.
type Everyone struct{}

func (Everyone) matches(uint, Op) bool { return true }

// User applies to a single account.
type User struct {
	ID uint
}

func (s User) matches(userID uint, _ Op) bool { return s.ID == userID }

// Group applies to a fixed set of accounts.
type Group struct {
	IDs []uint
}

func (s Group) matches(userID uint, _ Op) bool {
	for _, id := range s.IDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Nested delegates to an inner list of entries. It matches when any inner
// entry would allow the operation, so a sub-list can refine who may do what
// without widening the outer entry.
type Nested struct {
	Entries []Entry
}

func (s Nested) matches(userID uint, op Op) bool {
	return firstMatch(s.Entries, userID, op)
}

// Entry allows a set of operations for the users its selector matches. An
// empty Ops list allows every operation.
type Entry struct {
	Name     string
	Ops      []Op
	Selector Selector
}

func (e Entry) allows(userID uint, op Op) bool {
	if e.Selector == nil {
		return false
	}
	if len(e.Ops) > 0 && !containsOp(e.Ops, op) {
		return false
	}
	return e.Selector.matches(userID, op)
}

// Object is anything carrying an access control list.
type Object interface {
	ACL() []Entry
}

// CheckAccess decides whether the caller may perform op on obj.
//
// The super user bypasses evaluation entirely. Disabled and unverified
// accounts are rejected before the list is consulted, with the same errors
// token verification uses. An object with an empty list denies everyone but
// the super user.
func CheckAccess(p *auth.Principal, obj Object, op Op) error {
	if p == nil {
		return ErrAccessDenied
	}
	if p.SuperUser {
		return nil
	}
	if !p.Enabled {
		return auth.ErrUserNotFound
	}
	if !p.Verified {
		return auth.ErrUserNotVerified
	}

	entries := obj.ACL()
	if len(entries) == 0 {
		return ErrAccessDenied
	}
	if firstMatch(entries, p.UserID, op) {
		return nil
	}
	return ErrAccessDenied
}

func firstMatch(entries []Entry, userID uint, op Op) bool {
	for _, entry := range entries {
		if entry.allows(userID, op) {
			return true
		}
	}
	return false
}

func containsOp(ops []Op, op Op) bool {
	for _, o := range ops {
		if o == op {
			return true
		}
	}
	return false
}

// Allow is a convenience constructor for an entry.
func Allow(name string, selector Selector, ops ...Op) Entry {
	return Entry{Name: name, Ops: ops, Selector: selector}
}

// List adapts a plain slice of entries to the Object interface, for callers
// that build ACLs on the fly.
type List []Entry

func (l List) ACL() []Entry { return l }
