package notification

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Shyamyemuka/goldenspire-learn/core"
)

type Service struct {
	repo Repository
}

var _ Sink = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func prepare(n *Notification) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	n.IsRead = false
	n.CreatedAt = core.NowFunc()
}

func (svc *Service) Notify(ctx context.Context, n Notification, exec ...core.DBExecutor) (Notification, error) {
	prepare(&n)
	n, err := svc.repo.CreateNotification(ctx, n, exec...)
	if err != nil {
		return Notification{}, errors.Wrap(err, "creating notification")
	}
	return n, nil
}

func (svc *Service) NotifyMany(ctx context.Context, ns []Notification, exec ...core.DBExecutor) error {
	if len(ns) == 0 {
		return nil
	}
	for i := range ns {
		prepare(&ns[i])
	}
	if err := svc.repo.CreateNotifications(ctx, ns, exec...); err != nil {
		return errors.Wrap(err, "creating notifications")
	}
	return nil
}

// Unread returns up to limit unread notifications, newest first. limit <= 0 means DefaultUnreadLimit.
func (svc *Service) Unread(ctx context.Context, userID string, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = DefaultUnreadLimit
	}
	ns, err := svc.repo.QueryNotifications(ctx, userID, true, limit)
	if err != nil {
		return nil, core.NewLookupError("notifications", err)
	}
	return ns, nil
}

func (svc *Service) List(ctx context.Context, userID string) ([]Notification, error) {
	ns, err := svc.repo.QueryNotifications(ctx, userID, false, 0)
	if err != nil {
		return nil, core.NewLookupError("notifications", err)
	}
	return ns, nil
}

func (svc *Service) MarkRead(ctx context.Context, userID, id string) error {
	return svc.repo.MarkRead(ctx, userID, id)
}
