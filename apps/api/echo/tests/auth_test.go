package tests

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/Shyamyemuka/goldenspire-learn/apps/api/echo"
	"github.com/Shyamyemuka/goldenspire-learn/core"
	"github.com/Shyamyemuka/goldenspire-learn/core/approval"
	"github.com/Shyamyemuka/goldenspire-learn/core/auth"
	"github.com/Shyamyemuka/goldenspire-learn/core/gate"
	"github.com/Shyamyemuka/goldenspire-learn/core/profile"
	"github.com/Shyamyemuka/goldenspire-learn/core/signup"
	"github.com/Shyamyemuka/goldenspire-learn/tests"
)

func TestHome(t *testing.T) {
	_, app := setup(t)
	req, rec := newRequest(http.MethodGet, "/")
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welcome")
}

func Test_authApi_signup(t *testing.T) {
	s, app := setup(t)

	valid := signup.NewSignup{
		FullName:        "Grace Hopper",
		Email:           "grace@example.com",
		Password:        testutil.Password,
		PasswordConfirm: testutil.Password,
		Role:            "teacher",
		Expertise:       "Compilers",
	}
	rec := do(app, http.MethodPost, "/v1/auth/signup", "", marshalObj(t, valid))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var pa approval.PendingApproval
	decode(t, rec, &pa)
	assert.Equal(t, profile.RoleTeacher, pa.RequestedRole)
	assert.Equal(t, approval.StatusPending, pa.Status)
	assert.Equal(t, 1, s.DB.Counts()["pending"])

	badEmail := valid
	badEmail.Email = "grace"

	tests := []httpTest{
		{
			name:     "taken email",
			method:   http.MethodPost,
			path:     "/v1/auth/signup",
			body:     marshalObj(t, valid),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"email": auth.ErrEmailExists.Error()}),
		},
		{
			name:     "invalid email",
			method:   http.MethodPost,
			path:     "/v1/auth/signup",
			body:     marshalObj(t, badEmail),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "malformed body",
			method:   http.MethodPost,
			path:     "/v1/auth/signup",
			body:     []byte(`{"email":`),
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
	assert.Equal(t, 1, s.DB.Counts()["pending"])

	t.Run("field errors", func(t *testing.T) {
		rec := do(app, http.MethodPost, "/v1/auth/signup", "", marshalObj(t, badEmail))
		var fields map[string]string
		decode(t, rec, &fields)
		assert.NotEmpty(t, fields["email"])
	})
}

func Test_authApi_login(t *testing.T) {
	s, app := setup(t)
	ctx := context.Background()

	student := s.CreateUser(t, "Student", profile.RoleStudent, true)
	teacher := s.CreateUser(t, "Teacher", profile.RoleTeacher, true)
	admin := s.CreateUser(t, "Admin", profile.RoleMasterAdmin, true)
	pending := s.CreateUser(t, "Pending", profile.RoleStudent, false)
	guest := s.CreateUser(t, "Guest", profile.Role("guest"), true)
	acc, err := s.Auth.SignUp(ctx, auth.NewAccount{Email: testutil.UniqueEmail("noprofile"), Password: testutil.Password, FullName: "No Profile"})
	require.NoError(t, err)

	tests := []struct {
		name       string
		email      string
		pwd        string
		wantCode   int
		wantArea   gate.Area
		wantData   []byte
		wantActive bool
	}{
		{name: "student", email: student.Email, pwd: testutil.Password, wantCode: http.StatusOK, wantArea: gate.AreaStudent, wantActive: true},
		{name: "teacher", email: teacher.Email, pwd: testutil.Password, wantCode: http.StatusOK, wantArea: gate.AreaStaff, wantActive: true},
		{name: "master admin", email: admin.Email, pwd: testutil.Password, wantCode: http.StatusOK, wantArea: gate.AreaStaff, wantActive: true},
		{
			name:     "pending approval",
			email:    pending.Email,
			pwd:      testutil.Password,
			wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: gate.MsgPendingApproval}),
		},
		{
			name:       "unknown role",
			email:      guest.Email,
			pwd:        testutil.Password,
			wantCode:   http.StatusForbidden,
			wantData:   marshalObj(t, httpErr{Error: gate.MsgUnknownRole}),
			wantActive: true,
		},
		{
			name:       "no profile yet",
			email:      acc.Email,
			pwd:        testutil.Password,
			wantCode:   http.StatusAccepted,
			wantData:   marshalObj(t, StatusResponse{Status: "pending"}),
			wantActive: true,
		},
		{
			name:     "wrong password",
			email:    student.Email,
			pwd:      "Wr0ng!pass",
			wantCode: http.StatusUnauthorized,
			wantData: marshalObj(t, httpErr{Error: "invalid credentials"}),
		},
		{
			name:     "unknown email",
			email:    "nobody@example.com",
			pwd:      testutil.Password,
			wantCode: http.StatusUnauthorized,
			wantData: marshalObj(t, httpErr{Error: "invalid credentials"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := s.Holder.Len()
			rec := do(app, http.MethodPost, "/v1/auth/login", "", marshalObj(t, LoginRequest{Email: tt.email, Password: tt.pwd}))
			checkCodeAndData(t, httpTest{wantCode: tt.wantCode, wantData: tt.wantData}, rec)

			if tt.wantActive {
				assert.Equal(t, before+1, s.Holder.Len())
			} else {
				assert.Equal(t, before, s.Holder.Len(), "no session is left behind")
			}

			if tt.wantCode == http.StatusOK {
				var res LoginResponse
				decode(t, rec, &res)
				assert.Equal(t, tt.wantArea, res.Area)
				assert.Equal(t, tt.wantArea.Path(), res.Redirect)

				claims, err := s.Auth.ParseToken(res.Token)
				require.NoError(t, err)
				assert.True(t, s.Holder.Active(claims.Id))
			}
		})
	}
}

func Test_authApi_session(t *testing.T) {
	s, app := setup(t)
	p := s.CreateUser(t, "Sam", profile.RoleStudent, true)
	token := login(t, app, p.Email, testutil.Password)

	rec := do(app, http.MethodGet, "/v1/auth/me", token)
	require.Equal(t, http.StatusOK, rec.Code)
	var me profile.Profile
	decode(t, rec, &me)
	assert.Equal(t, p.ID, me.ID)
	assert.Equal(t, p.Email, me.Email)

	rec = do(app, http.MethodPost, "/v1/auth/token-refresh", token)
	require.Equal(t, http.StatusOK, rec.Code)
	var refreshed RefreshResponse
	decode(t, rec, &refreshed)
	assert.NotEmpty(t, refreshed.Token)
	assert.True(t, refreshed.ExpiresAt.After(time.Now()))

	rec = do(app, http.MethodPost, "/v1/auth/logout", refreshed.Token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, s.Holder.Len())

	tests := []httpTest{
		{
			name:     "signed out token",
			method:   http.MethodGet,
			path:     "/v1/auth/me",
			token:    token,
			wantCode: http.StatusUnauthorized,
			wantData: marshalObj(t, httpErr{Error: "session expired or signed out"}),
		},
		{
			name:     "no token",
			method:   http.MethodGet,
			path:     "/v1/auth/me",
			wantCode: http.StatusUnauthorized,
			wantData: marshalObj(t, errMissingToken),
		},
		{
			name:     "garbage token",
			method:   http.MethodGet,
			path:     "/v1/notifications",
			token:    "not.a.token",
			wantCode: http.StatusUnauthorized,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_authApi_expiredSession(t *testing.T) {
	s, app := setup(t)
	p := s.CreateUser(t, "Late", profile.RoleTeacher, true)
	token := login(t, app, p.Email, testutil.Password)

	claims, err := s.Auth.ParseToken(token)
	require.NoError(t, err)

	// the JWT is still valid, the session swept
	n, err := s.Auth.ExpireSessions(context.Background(), core.NowFunc().Add(s.Conf.Server.JWTExpirationDelta))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.False(t, s.Holder.Active(claims.Id))

	rec := do(app, http.MethodGet, "/v1/courses", token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
