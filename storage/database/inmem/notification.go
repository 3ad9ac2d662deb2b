package inmemdb

import (
	"context"

	"github.com/Shyamyemuka/goldenspire-learn/core"
	"github.com/Shyamyemuka/goldenspire-learn/core/notification"
)

type notificationRepository struct {
	db *DB
}

var _ notification.Repository = (*notificationRepository)(nil)

func NewNotificationRepository(db *DB) *notificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) CreateNotification(ctx context.Context, n notification.Notification, exec ...core.DBExecutor) (notification.Notification, error) {
	if err := r.CreateNotifications(ctx, []notification.Notification{n}, exec...); err != nil {
		return notification.Notification{}, err
	}
	return n, nil
}

func (r *notificationRepository) CreateNotifications(_ context.Context, ns []notification.Notification, exec ...core.DBExecutor) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if err := r.db.fail("CreateNotifications"); err != nil {
		return err
	}
	for _, n := range ns {
		put(exec, r.db.notifications, n.ID, n)
		r.db.stamp(n.ID)
	}
	return nil
}

func (r *notificationRepository) QueryNotifications(
	_ context.Context,
	userID string,
	unreadOnly bool,
	limit int,
	_ ...core.DBExecutor,
) ([]notification.Notification, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	ids := make([]string, 0)
	for id, n := range r.db.notifications {
		if n.UserID == userID && !(unreadOnly && n.IsRead) {
			ids = append(ids, id)
		}
	}
	r.db.newestFirst(ids, func(id string) int64 { return r.db.notifications[id].CreatedAt.UnixNano() })
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	res := make([]notification.Notification, 0, len(ids))
	for _, id := range ids {
		res = append(res, r.db.notifications[id])
	}
	return res, nil
}

func (r *notificationRepository) MarkRead(_ context.Context, userID, id string, exec ...core.DBExecutor) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	n, ok := r.db.notifications[id]
	if !ok || n.UserID != userID {
		return notification.ErrNotFound
	}
	n.IsRead = true
	put(exec, r.db.notifications, id, n)
	return nil
}
