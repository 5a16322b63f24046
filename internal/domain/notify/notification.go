package notify

import (
	"context"
	"time"

	"boss-server-go/internal/domain/acl"
)

// Notification is a message addressed to a single user. Metadata carries
// kind-specific payload the client renders, e.g. the friend request behind a
// "friendRequest" notification.
type Notification struct {
	ID        uint           `json:"id"`
	UserID    uint           `json:"userId"`
	Kind      string         `json:"kind"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Read      bool           `json:"read"`
	CreatedAt time.Time      `json:"createdAt"`
}

// ACL restricts a notification to its recipient.
func (n Notification) ACL() []acl.Entry {
	return []acl.Entry{
		acl.Allow("recipient", acl.User{ID: n.UserID}),
	}
}

// Repository persists notifications.
type Repository interface {
	CreateNotification(ctx context.Context, n *Notification) error
	NotificationByID(ctx context.Context, id uint) (*Notification, error)
	NotificationsForUser(ctx context.Context, userID uint, unreadOnly bool) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, id uint) error
	DeleteNotification(ctx context.Context, id uint) error
}
