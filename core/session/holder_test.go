package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shyamyemuka/goldenspire-learn/core"
	"github.com/Shyamyemuka/goldenspire-learn/core/auth"
	"github.com/Shyamyemuka/goldenspire-learn/core/profile"
	"github.com/Shyamyemuka/goldenspire-learn/core/session"
	"github.com/Shyamyemuka/goldenspire-learn/tests"
)

func TestHolder_FollowsAuthEvents(t *testing.T) {
	s := testutil.NewStack(t)
	p := s.CreateUser(t, "Held", profile.RoleStudent, true)

	ctx, first, _ := s.SignIn(t, p)
	_, second, _ := s.SignIn(t, p)
	assert.Equal(t, 2, s.Holder.Len())

	cur, ok := s.Holder.Current()
	require.True(t, ok)
	assert.Equal(t, second.ID, cur.ID, "current is the latest sign-in")

	got, ok := s.Holder.Session(ctx)
	require.True(t, ok)
	assert.Equal(t, first.ID, got.ID)

	require.NoError(t, s.Auth.SignOut(ctx, second.ID))
	_, ok = s.Holder.Current()
	assert.False(t, ok)
	assert.False(t, s.Holder.Active(second.ID))
	assert.True(t, s.Holder.Active(first.ID))

	refreshed, _, err := s.Auth.Refresh(ctx, first.ID)
	require.NoError(t, err)
	held, ok := s.Holder.Get(first.ID)
	require.True(t, ok)
	assert.Equal(t, refreshed.ExpiresAt, held.ExpiresAt)
}

func TestHolder_Restore(t *testing.T) {
	s := testutil.NewStack(t)
	p := s.CreateUser(t, "Restored", profile.RoleTeacher, true)
	_, sess, _ := s.SignIn(t, p)

	// a second process comes up on the same storage
	h := session.NewHolder()
	detach, err := h.Attach(s.Auth)
	require.NoError(t, err)
	defer detach()
	assert.Equal(t, 0, h.Len())

	n, err := s.Auth.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, h.Active(sess.ID))
	_, ok := h.Current()
	assert.False(t, ok, "restored sessions are not signed in here")
}

func TestHolder_Expiry(t *testing.T) {
	s := testutil.NewStack(t)
	p := s.CreateUser(t, "Expiring", profile.RoleStudent, true)
	ctx, sess, _ := s.SignIn(t, p)

	later := sess.ExpiresAt.Add(time.Second)
	core.NowFunc = func() time.Time { return later }
	defer func() { core.NowFunc = func() time.Time { return time.Now().UTC() } }()

	_, ok := s.Holder.Session(ctx)
	assert.False(t, ok, "expired sessions do not act")
	_, ok = s.Holder.Get(sess.ID)
	assert.True(t, ok, "until swept")

	n, err := s.Auth.ExpireSessions(ctx, later)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, s.Holder.Len())
}

func TestHolder_Attach(t *testing.T) {
	s := testutil.NewStack(t)

	_, err := s.Holder.Attach(s.Auth)
	assert.Equal(t, session.ErrAlreadyAttached, err)

	h := session.NewHolder()
	detach, err := h.Attach(s.Auth)
	require.NoError(t, err)
	detach()
	detach()

	p := s.CreateUser(t, "Detached", profile.RoleStudent, true)
	s.SignIn(t, p)
	assert.Equal(t, 0, h.Len(), "detached holders see nothing")
	assert.Equal(t, 1, s.Holder.Len())

	detach, err = h.Attach(s.Auth)
	require.NoError(t, err)
	detach()
}

func TestContext(t *testing.T) {
	_, ok := session.IDFromContext(context.Background())
	assert.False(t, ok)
	_, ok = session.IDFromContext(session.NewContext(context.Background(), ""))
	assert.False(t, ok)

	id, ok := session.IDFromContext(session.NewContext(context.Background(), "s1"))
	assert.True(t, ok)
	assert.Equal(t, "s1", id)

	var h session.Accessor = session.NewHolder()
	_, ok = h.Session(session.NewContext(context.Background(), "s1"))
	assert.False(t, ok)
	assert.False(t, h.Active(auth.Session{}.ID))
}
