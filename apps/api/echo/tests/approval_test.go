package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/Shyamyemuka/goldenspire-learn/apps/api/echo"
	"github.com/Shyamyemuka/goldenspire-learn/core/approval"
	"github.com/Shyamyemuka/goldenspire-learn/core/gate"
	"github.com/Shyamyemuka/goldenspire-learn/core/notification"
	"github.com/Shyamyemuka/goldenspire-learn/core/profile"
	"github.com/Shyamyemuka/goldenspire-learn/tests"
)

func Test_approvalApi_query(t *testing.T) {
	s, app := setup(t)
	teacher := s.CreateUser(t, "Teacher", profile.RoleTeacher, true)
	student := s.CreateUser(t, "Student", profile.RoleStudent, true)
	teacherToken := login(t, app, teacher.Email, testutil.Password)
	studentToken := login(t, app, student.Email, testutil.Password)

	s.Register(t, "Ada", profile.RoleStudent)
	s.Register(t, "Bob", profile.RoleStudent)
	s.Register(t, "Cyd", profile.RoleTeacher)

	tests := []struct {
		name      string
		path      string
		token     string
		wantCode  int
		wantNames []string
	}{
		{name: "all", path: "/v1/approvals?ordering=full_name", token: teacherToken, wantCode: http.StatusOK, wantNames: []string{"Ada", "Bob", "Cyd"}},
		{name: "descending", path: "/v1/approvals?ordering=-full_name", token: teacherToken, wantCode: http.StatusOK, wantNames: []string{"Cyd", "Bob", "Ada"}},
		{name: "by role", path: "/v1/approvals?role=teacher", token: teacherToken, wantCode: http.StatusOK, wantNames: []string{"Cyd"}},
		{name: "unknown role", path: "/v1/approvals?role=janitor", token: teacherToken, wantCode: http.StatusBadRequest},
		{name: "students may not list", path: "/v1/approvals", token: studentToken, wantCode: http.StatusForbidden},
		{name: "anonymous", path: "/v1/approvals", wantCode: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(app, http.MethodGet, tt.path, tt.token)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantNames == nil {
				return
			}
			var pas []approval.PendingApproval
			decode(t, rec, &pas)
			names := make([]string, 0, len(pas))
			for _, pa := range pas {
				names = append(names, pa.FullName)
			}
			assert.Equal(t, tt.wantNames, names)
		})
	}
}

func Test_approvalApi_decide(t *testing.T) {
	s, app := setup(t)
	teacher := s.CreateUser(t, "Teacher", profile.RoleTeacher, true)
	admin := s.CreateUser(t, "Admin", profile.RoleAdmin, true)
	teacherToken := login(t, app, teacher.Email, testutil.Password)
	adminToken := login(t, app, admin.Email, testutil.Password)

	studentReq := s.Register(t, "Ada", profile.RoleStudent)
	teacherReq := s.Register(t, "Cyd", profile.RoleTeacher)
	rejectedReq := s.Register(t, "Eve", profile.RoleStudent)

	// not yet approved
	rec := do(app, http.MethodPost, "/v1/auth/login", "", marshalObj(t, LoginRequest{Email: studentReq.Email, Password: testutil.Password}))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	tests := []httpTest{
		{
			name:     "approve student",
			method:   http.MethodPost,
			path:     "/v1/approvals/" + studentReq.ID + "/approve",
			token:    teacherToken,
			wantCode: http.StatusOK,
		},
		{
			name:     "approve twice",
			method:   http.MethodPost,
			path:     "/v1/approvals/" + studentReq.ID + "/approve",
			token:    teacherToken,
			wantCode: http.StatusNotFound,
			wantData: marshalObj(t, httpErr{Error: approval.ErrNotFound.Error()}),
		},
		{
			name:     "teacher request needs an admin",
			method:   http.MethodPost,
			path:     "/v1/approvals/" + teacherReq.ID + "/approve",
			token:    teacherToken,
			wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: approval.ErrForbidden.Error()}),
		},
		{
			name:     "admin approves teacher",
			method:   http.MethodPost,
			path:     "/v1/approvals/" + teacherReq.ID + "/approve",
			token:    adminToken,
			wantCode: http.StatusOK,
		},
		{
			name:     "reject",
			method:   http.MethodPost,
			path:     "/v1/approvals/" + rejectedReq.ID + "/reject",
			token:    teacherToken,
			wantCode: http.StatusOK,
		},
		{
			name:     "unknown request",
			method:   http.MethodPost,
			path:     "/v1/approvals/missing/reject",
			token:    adminToken,
			wantCode: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
	assert.Equal(t, 0, s.DB.Counts()["pending"])
	assert.Len(t, s.Mail.SentMessages(), 3)

	t.Run("approved users get in", func(t *testing.T) {
		rec := do(app, http.MethodPost, "/v1/auth/login", "", marshalObj(t, LoginRequest{Email: studentReq.Email, Password: testutil.Password}))
		require.Equal(t, http.StatusOK, rec.Code)
		var res LoginResponse
		decode(t, rec, &res)
		assert.Equal(t, gate.AreaStudent, res.Area)

		rec = do(app, http.MethodGet, "/v1/notifications/unread", res.Token)
		require.Equal(t, http.StatusOK, rec.Code)
		var ns []notification.Notification
		decode(t, rec, &ns)
		if assert.Len(t, ns, 1) {
			assert.Equal(t, "Your student account has been approved!", ns[0].Message)
		}

		token := login(t, app, teacherReq.Email, testutil.Password)
		rec = do(app, http.MethodGet, "/v1/approvals", token)
		assert.Equal(t, http.StatusOK, rec.Code, "new teachers can review requests")
	})

	t.Run("rejected users stay out", func(t *testing.T) {
		rec := do(app, http.MethodPost, "/v1/auth/login", "", marshalObj(t, LoginRequest{Email: rejectedReq.Email, Password: testutil.Password}))
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: gate.MsgPendingApproval})}, rec)
	})

	t.Run("logs", func(t *testing.T) {
		rec := do(app, http.MethodGet, "/v1/approvals/logs/"+studentReq.UserID, adminToken)
		require.Equal(t, http.StatusOK, rec.Code)
		var logs []approval.ApprovalLog
		decode(t, rec, &logs)
		if assert.Len(t, logs, 1) {
			assert.Equal(t, teacher.ID, logs[0].ApprovedBy)
			assert.Equal(t, approval.ActionApproved, logs[0].Action)
			assert.Equal(t, profile.RoleStudent, logs[0].Role)
		}

		rec = do(app, http.MethodGet, "/v1/approvals/logs/"+rejectedReq.UserID, adminToken)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte("[]")}, rec)
	})
}
