package notification

import (
	"context"
	"errors"
	"time"

	"github.com/Shyamyemuka/goldenspire-learn/core"
)

// Type tells the client what a notification is about.
type Type string

// Types
const (
	TypeEnrollment Type = "enrollment"
	TypeAssignment Type = "assignment"
	TypeGrade      Type = "grade"
)

// DefaultUnreadLimit is how many unread notifications the dashboard shows.
const DefaultUnreadLimit = 5

var ErrNotFound = errors.New("notification not found")

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	Type      Type      `json:"type"`
	RelatedID string    `json:"related_id,omitempty"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type (
	// Sink delivers notifications. exec lets callers insert inside their own transaction.
	Sink interface {
		Notify(ctx context.Context, n Notification, exec ...core.DBExecutor) (Notification, error)
		NotifyMany(ctx context.Context, ns []Notification, exec ...core.DBExecutor) error
	}

	Repository interface {
		CreateNotification(ctx context.Context, n Notification, exec ...core.DBExecutor) (Notification, error)
		CreateNotifications(ctx context.Context, ns []Notification, exec ...core.DBExecutor) error
		// QueryNotifications lists a user's notifications, newest first. limit <= 0 means no limit.
		QueryNotifications(ctx context.Context, userID string, unreadOnly bool, limit int, exec ...core.DBExecutor) ([]Notification, error)
		// MarkRead returns ErrNotFound unless userID owns the notification.
		MarkRead(ctx context.Context, userID, id string, exec ...core.DBExecutor) error
	}
)
