package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/strmangle"

	"github.com/Shyamyemuka/goldenspire-learn/core"
	"github.com/Shyamyemuka/goldenspire-learn/core/notification"
)

type notificationRow struct {
	ID        string      `db:"id"`
	UserID    string      `db:"user_id"`
	Message   string      `db:"message"`
	Type      string      `db:"type"`
	RelatedID null.String `db:"related_id"`
	IsRead    bool        `db:"is_read"`
	CreatedAt time.Time   `db:"created_at"`
}

const (
	notificationCols    = `id, user_id, message, type, related_id, is_read, created_at`
	notificationColsCnt = 7
)

func notificationArgs(n notification.Notification) []interface{} {
	return []interface{}{
		n.ID, n.UserID, n.Message, string(n.Type), null.NewString(n.RelatedID, n.RelatedID != ""), n.IsRead, n.CreatedAt,
	}
}

type notificationRepository struct {
	repo
}

var _ notification.Repository = (*notificationRepository)(nil)

func NewNotificationRepository(exec core.DBExecutor) *notificationRepository {
	return &notificationRepository{repo{exec: exec}}
}

func (r *notificationRepository) CreateNotification(ctx context.Context, n notification.Notification, exec ...core.DBExecutor) (notification.Notification, error) {
	if err := r.CreateNotifications(ctx, []notification.Notification{n}, exec...); err != nil {
		return notification.Notification{}, err
	}
	return n, nil
}

// CreateNotifications inserts every notification in a single statement.
func (r *notificationRepository) CreateNotifications(ctx context.Context, ns []notification.Notification, exec ...core.DBExecutor) error {
	if len(ns) == 0 {
		return nil
	}
	args := make([]interface{}, 0, len(ns)*notificationColsCnt)
	for _, n := range ns {
		args = append(args, notificationArgs(n)...)
	}
	q := `INSERT INTO notification (` + notificationCols + `) VALUES ` +
		strmangle.Placeholders(true, len(args), 1, notificationColsCnt)

	if _, err := r.getExec(exec).ExecContext(ctx, q, args...); err != nil {
		return errors.Wrap(err, "inserting notifications")
	}
	return nil
}

func (r *notificationRepository) QueryNotifications(
	ctx context.Context,
	userID string,
	unreadOnly bool,
	limit int,
	exec ...core.DBExecutor,
) ([]notification.Notification, error) {
	q := `SELECT ` + notificationCols + ` FROM notification WHERE user_id = $1`
	args := []interface{}{userID}
	if unreadOnly {
		q += ` AND is_read = false`
	}
	q += ` ORDER BY created_at DESC`
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}

	var rows []notificationRow
	if err := selectAll(ctx, r.getExec(exec), &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting notifications")
	}
	res := make([]notification.Notification, 0, len(rows))
	for _, row := range rows {
		res = append(res, notification.Notification{
			ID:        row.ID,
			UserID:    row.UserID,
			Message:   row.Message,
			Type:      notification.Type(row.Type),
			RelatedID: row.RelatedID.String,
			IsRead:    row.IsRead,
			CreatedAt: row.CreatedAt.UTC(),
		})
	}
	return res, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, userID, id string, exec ...core.DBExecutor) error {
	return execOne(ctx, r.getExec(exec), notification.ErrNotFound,
		`UPDATE notification SET is_read = true WHERE id = $1 AND user_id = $2`, id, userID)
}
