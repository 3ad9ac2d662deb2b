package auth_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shyamyemuka/goldenspire-learn/core"
	"github.com/Shyamyemuka/goldenspire-learn/core/auth"
	"github.com/Shyamyemuka/goldenspire-learn/storage/database/inmem"
	"github.com/Shyamyemuka/goldenspire-learn/tests"
)

type eventLog struct {
	mu     sync.Mutex
	events []auth.Event
}

func (l *eventLog) listen(_ context.Context, ev auth.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) kinds() []auth.EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	res := make([]auth.EventKind, 0, len(l.events))
	for _, ev := range l.events {
		res = append(res, ev.Kind)
	}
	return res
}

func setup(t *testing.T) (*auth.Service, *core.Config, *eventLog) {
	conf := core.NewTestConfig()
	svc := auth.NewService(inmemdb.NewAuthRepository(inmemdb.Open()), conf, testutil.NewLogger(conf))
	events := new(eventLog)
	t.Cleanup(svc.Subscribe(events.listen))
	return svc, conf, events
}

func signUp(t *testing.T, svc *auth.Service, email string) auth.Account {
	acc, err := svc.SignUp(context.Background(), auth.NewAccount{
		Email:    email,
		Password: testutil.Password,
		FullName: " Katherine Johnson ",
		Metadata: auth.Metadata{RequestedRole: "student"},
	})
	require.NoError(t, err)
	return acc
}

func TestService_SignUp(t *testing.T) {
	svc, _, events := setup(t)
	acc := signUp(t, svc, " KJ@Example.com ")

	assert.NotEmpty(t, acc.ID)
	assert.Equal(t, "kj@example.com", acc.Email)
	assert.Equal(t, "Katherine Johnson", acc.FullName)
	assert.NoError(t, acc.CheckPassword(testutil.Password))
	assert.Empty(t, events.kinds(), "signing up opens no session")

	_, err := svc.SignUp(context.Background(), auth.NewAccount{Email: "kj@example.com", Password: "x"})
	var verr *core.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestService_SignIn(t *testing.T) {
	svc, conf, events := setup(t)
	acc := signUp(t, svc, "kj@example.com")
	ctx := context.Background()

	tests := []struct {
		name    string
		email   string
		pwd     string
		wantErr bool
	}{
		{name: "unknown email", email: "nobody@example.com", pwd: testutil.Password, wantErr: true},
		{name: "wrong password", email: "kj@example.com", pwd: "Wr0ng!pass", wantErr: true},
		{name: "valid", email: " KJ@example.com", pwd: testutil.Password},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, token, err := svc.SignIn(ctx, tt.email, tt.pwd)
			if tt.wantErr {
				assert.True(t, core.IsAuthError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, acc.ID, sess.UserID)
			assert.True(t, sess.Active(core.NowFunc()))
			assert.WithinDuration(t, sess.CreatedAt.Add(conf.Server.JWTExpirationDelta), sess.ExpiresAt, time.Second)

			claims, err := svc.ParseToken(token)
			require.NoError(t, err)
			assert.Equal(t, sess.ID, claims.Id)
			assert.Equal(t, acc.ID, claims.Subject)
			assert.Equal(t, "kj@example.com", claims.Email)
		})
	}
	assert.Equal(t, []auth.EventKind{auth.SignedIn}, events.kinds())
}

func TestService_ParseToken(t *testing.T) {
	svc, conf, _ := setup(t)
	acc := signUp(t, svc, "kj@example.com")
	_, token, err := svc.SignIn(context.Background(), acc.Email, testutil.Password)
	require.NoError(t, err)

	other := auth.NewService(inmemdb.NewAuthRepository(inmemdb.Open()), &core.Config{SecretKey: "another"}, testutil.NewLogger(conf))
	_, err = other.ParseToken(token)
	assert.Error(t, err, "signed with another key")

	_, err = svc.ParseToken("not.a.token")
	assert.Error(t, err)

	expired, err := svc.Token(auth.Session{ID: "s1", UserID: acc.ID, ExpiresAt: time.Now().Add(-time.Minute)})
	require.NoError(t, err)
	_, err = svc.ParseToken(expired)
	assert.Error(t, err)
}

func TestService_SignOut(t *testing.T) {
	svc, _, events := setup(t)
	acc := signUp(t, svc, "kj@example.com")
	ctx := context.Background()
	sess, _, err := svc.SignIn(ctx, acc.Email, testutil.Password)
	require.NoError(t, err)

	require.NoError(t, svc.SignOut(ctx, sess.ID))
	require.NoError(t, svc.SignOut(ctx, sess.ID), "signing out twice is a no-op")
	require.NoError(t, svc.SignOut(ctx, "unknown"))
	assert.Equal(t, []auth.EventKind{auth.SignedIn, auth.SignedOut}, events.kinds())

	_, _, err = svc.Refresh(ctx, sess.ID)
	assert.True(t, core.IsAuthError(err))
}

func TestService_Refresh(t *testing.T) {
	svc, conf, events := setup(t)
	acc := signUp(t, svc, "kj@example.com")
	ctx := context.Background()

	start := time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC)
	now := start
	core.NowFunc = func() time.Time { return now }
	defer func() { core.NowFunc = func() time.Time { return time.Now().UTC() } }()

	sess, _, err := svc.SignIn(ctx, acc.Email, testutil.Password)
	require.NoError(t, err)

	now = start.Add(conf.Server.JWTExpirationDelta / 2)
	refreshed, token, err := svc.Refresh(ctx, sess.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, now.Add(conf.Server.JWTExpirationDelta), refreshed.ExpiresAt)

	// capped at the refresh deadline
	deadline := start.Add(conf.Server.JWTRefreshExpirationDelta)
	for now = refreshed.ExpiresAt.Add(-time.Minute); now.Before(deadline.Add(-time.Hour)); now = refreshed.ExpiresAt.Add(-time.Minute) {
		refreshed, _, err = svc.Refresh(ctx, sess.ID)
		require.NoError(t, err)
	}
	assert.False(t, refreshed.ExpiresAt.After(deadline))

	now = deadline.Add(time.Second)
	_, _, err = svc.Refresh(ctx, sess.ID)
	assert.True(t, core.IsAuthError(err))

	kinds := events.kinds()
	assert.Equal(t, auth.SignedIn, kinds[0])
	assert.Equal(t, auth.TokenRefreshed, kinds[len(kinds)-1])
}

func TestService_ExpireSessions(t *testing.T) {
	svc, conf, events := setup(t)
	acc := signUp(t, svc, "kj@example.com")
	ctx := context.Background()

	s1, _, err := svc.SignIn(ctx, acc.Email, testutil.Password)
	require.NoError(t, err)
	s2, _, err := svc.SignIn(ctx, acc.Email, testutil.Password)
	require.NoError(t, err)
	require.NoError(t, svc.SignOut(ctx, s2.ID))

	n, err := svc.ExpireSessions(ctx, core.NowFunc())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = svc.ExpireSessions(ctx, core.NowFunc().Add(conf.Server.JWTExpirationDelta+time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only the live session expires")

	kinds := events.kinds()
	assert.Equal(t, auth.SignedOut, kinds[len(kinds)-1])
	assert.Equal(t, s1.ID, events.events[len(events.events)-1].Session.ID)
}

func TestService_Restore(t *testing.T) {
	svc, _, events := setup(t)
	acc := signUp(t, svc, "kj@example.com")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := svc.SignIn(ctx, acc.Email, testutil.Password)
		require.NoError(t, err)
	}
	sess, _, err := svc.SignIn(ctx, acc.Email, testutil.Password)
	require.NoError(t, err)
	require.NoError(t, svc.SignOut(ctx, sess.ID))

	n, err := svc.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	var restored int
	for _, k := range events.kinds() {
		if k == auth.SessionRestored {
			restored++
		}
	}
	assert.Equal(t, 3, restored)
}

func TestService_Subscribe(t *testing.T) {
	svc, _, _ := setup(t)
	acc := signUp(t, svc, "kj@example.com")
	ctx := context.Background()

	var order []string
	d1 := svc.Subscribe(func(context.Context, auth.Event) { order = append(order, "first") })
	d2 := svc.Subscribe(func(context.Context, auth.Event) { order = append(order, "second") })

	_, _, err := svc.SignIn(ctx, acc.Email, testutil.Password)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)

	d1()
	d1()
	_, _, err = svc.SignIn(ctx, acc.Email, testutil.Password)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "second"}, order)
	d2()
}
