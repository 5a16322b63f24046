// Package friend implements friend requests between accounts. It is the
// primary consumer of the access control evaluator: every mutation is gated
// by the request's ACL, and state changes notify the other party.
package friend

import (
	"context"
	"errors"
	"time"

	"boss-server-go/internal/domain/acl"
)

// Status of a friend request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
)

var (
	ErrRequestNotFound  = errors.New("friend request not found")
	ErrDuplicateRequest = errors.New("friend request already exists")
	ErrSelfRequest      = errors.New("cannot send a friend request to yourself")
	ErrNotPending       = errors.New("friend request is not pending")
)

// Request is a friend request from one account to another.
type Request struct {
	ID         uint      `json:"id"`
	FromUserID uint      `json:"fromUserId"`
	ToUserID   uint      `json:"toUserId"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ACL lets the sender read and withdraw the request and the recipient read
// and answer it.
func (r Request) ACL() []acl.Entry {
	return []acl.Entry{
		acl.Allow("sender", acl.User{ID: r.FromUserID}, acl.OpRead, acl.OpDelete),
		acl.Allow("recipient", acl.User{ID: r.ToUserID}, acl.OpRead, acl.OpWrite),
	}
}

// Repository persists friend requests.
type Repository interface {
	CreateFriendRequest(ctx context.Context, req *Request) error
	FriendRequestByID(ctx context.Context, id uint) (*Request, error)
	// FriendRequestBetween finds a request in either direction.
	FriendRequestBetween(ctx context.Context, a, b uint) (*Request, error)
	FriendRequestsForUser(ctx context.Context, userID uint) ([]Request, error)
	UpdateFriendRequest(ctx context.Context, req *Request) error
	DeleteFriendRequest(ctx context.Context, id uint) error
}
