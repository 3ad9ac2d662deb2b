package gate_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shyamyemuka/goldenspire-learn/core"
	"github.com/Shyamyemuka/goldenspire-learn/core/auth"
	"github.com/Shyamyemuka/goldenspire-learn/core/gate"
	"github.com/Shyamyemuka/goldenspire-learn/core/profile"
	"github.com/Shyamyemuka/goldenspire-learn/tests"
)

type navRecorder struct {
	mu        sync.Mutex
	decisions []gate.Decision
}

func (r *navRecorder) Navigate(_ context.Context, d gate.Decision) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decisions = append(r.decisions, d)
}

func (r *navRecorder) all() []gate.Decision {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make([]gate.Decision, len(r.decisions))
	copy(res, r.decisions)
	return res
}

func setup(t *testing.T) (*testutil.Stack, *gate.Gate, *navRecorder) {
	s := testutil.NewStack(t)
	nav := new(navRecorder)
	g := gate.New(s.Auth, s.Auth, s.Holder, s.Profiles, nav, s.Logger)
	dispose, err := g.Mount()
	require.NoError(t, err)
	t.Cleanup(dispose)
	return s, g, nav
}

func TestGate_SignIn(t *testing.T) {
	tests := []struct {
		name        string
		role        profile.Role
		approved    bool
		wantOutcome gate.Outcome
		wantArea    gate.Area
		wantMessage string
		wantActive  bool
	}{
		{name: "approved student", role: profile.RoleStudent, approved: true, wantOutcome: gate.OutcomeStudent, wantArea: gate.AreaStudent, wantActive: true},
		{name: "approved teacher", role: profile.RoleTeacher, approved: true, wantOutcome: gate.OutcomeStaff, wantArea: gate.AreaStaff, wantActive: true},
		{name: "approved admin", role: profile.RoleAdmin, approved: true, wantOutcome: gate.OutcomeStaff, wantArea: gate.AreaStaff, wantActive: true},
		{name: "approved master admin", role: profile.RoleMasterAdmin, approved: true, wantOutcome: gate.OutcomeStaff, wantArea: gate.AreaStaff, wantActive: true},
		{name: "unapproved student", role: profile.RoleStudent, wantOutcome: gate.OutcomeDenied, wantMessage: gate.MsgPendingApproval},
		{name: "unapproved teacher", role: profile.RoleTeacher, wantOutcome: gate.OutcomeDenied, wantMessage: gate.MsgPendingApproval},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, g, nav := setup(t)
			p := s.CreateUser(t, "Ada Lovelace", tt.role, tt.approved)

			_, sess, _ := s.SignIn(t, p)

			decisions := nav.all()
			if assert.Len(t, decisions, 1) {
				d := decisions[0]
				assert.Equal(t, tt.wantOutcome, d.Outcome)
				assert.Equal(t, tt.wantArea, d.Area)
				assert.Equal(t, tt.wantMessage, d.Message)
				assert.Equal(t, tt.role, d.Role)
				assert.Equal(t, sess.ID, d.Session.ID)
			}
			assert.Equal(t, tt.wantActive, s.Holder.Active(sess.ID))

			o, ok := g.Outcome(sess.ID)
			if tt.wantActive {
				assert.True(t, ok)
				assert.Equal(t, tt.wantOutcome, o)
			} else {
				assert.False(t, ok, "signed out sessions are forgotten")
			}
		})
	}
}

func TestGate_DeniedSessionIsRevoked(t *testing.T) {
	s, _, _ := setup(t)
	p := s.CreateUser(t, "Pending Student", profile.RoleStudent, false)

	_, sess, _ := s.SignIn(t, p)

	assert.False(t, s.Holder.Active(sess.ID))
	_, _, err := s.Auth.Refresh(context.Background(), sess.ID)
	assert.True(t, core.IsAuthError(err), "a revoked session cannot be refreshed")
}

// flakySignOuter fails its first n sign-outs.
type flakySignOuter struct {
	auth.SignOuter
	mu    sync.Mutex
	n     int
	calls int
}

func (f *flakySignOuter) SignOut(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	f.calls++
	fail := f.calls <= f.n
	f.mu.Unlock()
	if fail {
		return errors.New("connection reset")
	}
	return f.SignOuter.SignOut(ctx, sessionID)
}

func TestGate_DeniedSignOutFailure(t *testing.T) {
	s := testutil.NewStack(t)
	nav := new(navRecorder)
	signOuter := &flakySignOuter{SignOuter: s.Auth, n: 1}
	g := gate.New(s.Auth, signOuter, s.Holder, s.Profiles, nav, s.Logger)
	dispose, err := g.Mount()
	require.NoError(t, err)
	t.Cleanup(dispose)

	p := s.CreateUser(t, "Pending Teacher", profile.RoleTeacher, false)
	ctx, sess, _ := s.SignIn(t, p)

	assert.True(t, s.Holder.Active(sess.ID), "the failed sign-out leaves the session active")
	_, ok := g.Outcome(sess.ID)
	assert.False(t, ok, "the session is not remembered as handled")

	d, handled := g.Handle(ctx, auth.Event{Kind: auth.SignedIn, Session: sess})
	assert.True(t, handled)
	assert.Equal(t, gate.OutcomeDenied, d.Outcome)
	assert.False(t, s.Holder.Active(sess.ID), "the re-delivery signs the session out")
	assert.Equal(t, 2, signOuter.calls)
	assert.Len(t, nav.all(), 2)
}

func TestGate_UnknownRole(t *testing.T) {
	s, g, nav := setup(t)
	p := s.CreateUser(t, "Guest", profile.Role("guest"), true)

	_, sess, _ := s.SignIn(t, p)

	assert.Empty(t, nav.all(), "unknown roles are not navigated")
	assert.True(t, s.Holder.Active(sess.ID), "unknown roles are not signed out")
	o, ok := g.Outcome(sess.ID)
	assert.True(t, ok)
	assert.Equal(t, gate.OutcomeUnknownRole, o)
}

func TestGate_MissingProfileIsNeutral(t *testing.T) {
	s, g, nav := setup(t)
	ctx := context.Background()
	acc, err := s.Auth.SignUp(ctx, auth.NewAccount{
		Email:    testutil.UniqueEmail("noprofile"),
		Password: testutil.Password,
		FullName: "No Profile",
	})
	require.NoError(t, err)

	sess, _, err := s.Auth.SignIn(ctx, acc.Email, testutil.Password)
	require.NoError(t, err)

	assert.Empty(t, nav.all())
	assert.True(t, s.Holder.Active(sess.ID))
	_, ok := g.Outcome(sess.ID)
	assert.False(t, ok)

	// the profile shows up; the next delivery decides
	_, err = s.Profiles.CreateProfile(ctx, profile.Profile{ID: acc.ID, FullName: acc.FullName, Email: acc.Email, Role: profile.RoleStudent, IsApproved: true})
	require.NoError(t, err)
	d, handled := g.Handle(ctx, auth.Event{Kind: auth.SignedIn, Session: sess})
	assert.True(t, handled)
	assert.Equal(t, gate.OutcomeStudent, d.Outcome)
	assert.Len(t, nav.all(), 1)
}

func TestGate_LookupFailureIsNeutral(t *testing.T) {
	s, g, nav := setup(t)
	p := s.CreateUser(t, "Flaky", profile.RoleStudent, true)
	ctx, sess, _ := s.SignIn(t, p)
	require.Len(t, nav.all(), 1)

	// a fresh session whose profile read fails
	s.DB.FailNext("GetProfile", errors.New("connection reset"))
	sess2, _, err := s.Auth.SignIn(ctx, p.Email, testutil.Password)
	require.NoError(t, err)
	assert.Len(t, nav.all(), 1, "nothing navigated on lookup failure")
	assert.True(t, s.Holder.Active(sess2.ID))
	_, ok := g.Outcome(sess2.ID)
	assert.False(t, ok)

	// handled directly, the failure is reported on the decision
	s.DB.FailNext("GetProfile", errors.New("connection reset"))
	require.NoError(t, s.Auth.SignOut(ctx, sess.ID))
	g2 := gate.New(s.Auth, s.Auth, s.Holder, s.Profiles, new(navRecorder), s.Logger)
	d, handled := g2.Handle(ctx, auth.Event{Kind: auth.SignedIn, Session: sess2})
	assert.True(t, handled)
	assert.Equal(t, gate.OutcomeNeutral, d.Outcome)
	assert.True(t, core.IsLookupError(d.Err))
}

func TestGate_Redelivery(t *testing.T) {
	s, g, nav := setup(t)
	p := s.CreateUser(t, "Twice", profile.RoleTeacher, true)
	ctx, sess, _ := s.SignIn(t, p)

	for i := 0; i < 3; i++ {
		_, handled := g.Handle(ctx, auth.Event{Kind: auth.SignedIn, Session: sess})
		assert.False(t, handled)
	}
	assert.Len(t, nav.all(), 1)

	// signing out and in again is a new session, decided anew
	require.NoError(t, s.Auth.SignOut(ctx, sess.ID))
	_, ok := g.Outcome(sess.ID)
	assert.False(t, ok)
	s.SignIn(t, p)
	assert.Len(t, nav.all(), 2)
}

func TestGate_IgnoredEvents(t *testing.T) {
	s, g, nav := setup(t)
	p := s.CreateUser(t, "Quiet", profile.RoleStudent, true)
	ctx, sess, _ := s.SignIn(t, p)
	require.Len(t, nav.all(), 1)

	tests := []struct {
		name string
		ev   auth.Event
	}{
		{name: "token refreshed", ev: auth.Event{Kind: auth.TokenRefreshed, Session: sess}},
		{name: "session restored", ev: auth.Event{Kind: auth.SessionRestored, Session: sess}},
		{name: "session not held", ev: auth.Event{Kind: auth.SignedIn, Session: auth.Session{ID: "unknown", UserID: p.ID}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, handled := g.Handle(ctx, tt.ev)
			assert.False(t, handled)
		})
	}
	assert.Len(t, nav.all(), 1)
}

func TestGate_Mount(t *testing.T) {
	s := testutil.NewStack(t)
	nav := new(navRecorder)
	g := gate.New(s.Auth, s.Auth, s.Holder, s.Profiles, nav, s.Logger)

	dispose, err := g.Mount()
	require.NoError(t, err)
	_, err = g.Mount()
	assert.Equal(t, gate.ErrAlreadyMounted, err)

	p := s.CreateUser(t, "Mounted", profile.RoleStudent, true)
	_, sess, _ := s.SignIn(t, p)
	assert.Len(t, nav.all(), 1)

	dispose()
	dispose() // no-op
	_, ok := g.Outcome(sess.ID)
	assert.False(t, ok, "unmounting forgets decisions")

	s.SignIn(t, p)
	assert.Len(t, nav.all(), 1, "unmounted gates see nothing")

	// remountable
	dispose, err = g.Mount()
	require.NoError(t, err)
	defer dispose()
	s.SignIn(t, p)
	assert.Len(t, nav.all(), 2)
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		o            gate.Outcome
		wantString   string
		wantAdmitted bool
	}{
		{gate.OutcomeNeutral, "neutral", false},
		{gate.OutcomeStudent, "student", true},
		{gate.OutcomeStaff, "staff", true},
		{gate.OutcomeDenied, "denied", false},
		{gate.OutcomeUnknownRole, "unknown_role", false},
	}
	for _, tt := range tests {
		t.Run(tt.wantString, func(t *testing.T) {
			assert.Equal(t, tt.wantString, tt.o.String())
			assert.Equal(t, tt.wantAdmitted, tt.o.Admitted())
		})
	}

	assert.Equal(t, "/student/dashboard", gate.AreaStudent.Path())
	assert.Equal(t, "/teacher/dashboard", gate.AreaStaff.Path())
	assert.Equal(t, "/", gate.AreaNone.Path())
}
