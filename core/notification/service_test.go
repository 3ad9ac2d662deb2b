package notification_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shyamyemuka/goldenspire-learn/core"
	"github.com/Shyamyemuka/goldenspire-learn/core/notification"
	"github.com/Shyamyemuka/goldenspire-learn/storage/database/inmem"
)

func setup() *notification.Service {
	return notification.NewService(inmemdb.NewNotificationRepository(inmemdb.Open()))
}

func TestService_Unread(t *testing.T) {
	svc := setup()
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	defer func() { core.NowFunc = func() time.Time { return time.Now().UTC() } }()
	for i := 0; i < 7; i++ {
		tstamp := base.Add(time.Duration(i) * time.Minute)
		core.NowFunc = func() time.Time { return tstamp }
		_, err := svc.Notify(ctx, notification.Notification{
			UserID:  "u1",
			Message: fmt.Sprintf("message %d", i),
			Type:    notification.TypeAssignment,
		})
		require.NoError(t, err)
	}
	_, err := svc.Notify(ctx, notification.Notification{UserID: "u2", Message: "not yours", Type: notification.TypeGrade})
	require.NoError(t, err)

	tests := []struct {
		name      string
		limit     int
		wantFirst string
		wantLen   int
	}{
		{name: "default limit", limit: 0, wantFirst: "message 6", wantLen: notification.DefaultUnreadLimit},
		{name: "negative limit", limit: -1, wantFirst: "message 6", wantLen: notification.DefaultUnreadLimit},
		{name: "small limit", limit: 2, wantFirst: "message 6", wantLen: 2},
		{name: "large limit", limit: 50, wantFirst: "message 6", wantLen: 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ns, err := svc.Unread(ctx, "u1", tt.limit)
			require.NoError(t, err)
			if assert.Len(t, ns, tt.wantLen) {
				assert.Equal(t, tt.wantFirst, ns[0].Message)
				for _, n := range ns {
					assert.Equal(t, "u1", n.UserID)
					assert.False(t, n.IsRead)
				}
			}
		})
	}

	t.Run("read ones are skipped", func(t *testing.T) {
		ns, err := svc.Unread(ctx, "u1", 1)
		require.NoError(t, err)
		require.Len(t, ns, 1)
		require.NoError(t, svc.MarkRead(ctx, "u1", ns[0].ID))

		ns, err = svc.Unread(ctx, "u1", 50)
		require.NoError(t, err)
		assert.Len(t, ns, 6)
		all, err := svc.List(ctx, "u1")
		require.NoError(t, err)
		assert.Len(t, all, 7)
	})
}

func TestService_MarkRead(t *testing.T) {
	svc := setup()
	ctx := context.Background()
	n, err := svc.Notify(ctx, notification.Notification{UserID: "u1", Message: "graded", Type: notification.TypeGrade, RelatedID: "s1"})
	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)
	assert.False(t, n.CreatedAt.IsZero())

	assert.Equal(t, notification.ErrNotFound, svc.MarkRead(ctx, "u2", n.ID), "only the owner marks read")
	assert.Equal(t, notification.ErrNotFound, svc.MarkRead(ctx, "u1", "missing"))
	assert.NoError(t, svc.MarkRead(ctx, "u1", n.ID))
	assert.NoError(t, svc.MarkRead(ctx, "u1", n.ID), "marking twice is harmless")
}

func TestService_NotifyMany(t *testing.T) {
	svc := setup()
	ctx := context.Background()

	require.NoError(t, svc.NotifyMany(ctx, nil))

	ns := []notification.Notification{
		{UserID: "u1", Message: "posted", Type: notification.TypeAssignment, IsRead: true},
		{UserID: "u2", Message: "posted", Type: notification.TypeAssignment},
	}
	require.NoError(t, svc.NotifyMany(ctx, ns))
	for _, uid := range []string{"u1", "u2"} {
		unread, err := svc.Unread(ctx, uid, 0)
		require.NoError(t, err)
		assert.Len(t, unread, 1, "new notifications are always unread")
	}
}
