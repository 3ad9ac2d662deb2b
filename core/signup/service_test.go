package signup_test

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shyamyemuka/goldenspire-learn/core"
	"github.com/Shyamyemuka/goldenspire-learn/core/approval"
	"github.com/Shyamyemuka/goldenspire-learn/core/auth"
	"github.com/Shyamyemuka/goldenspire-learn/core/profile"
	"github.com/Shyamyemuka/goldenspire-learn/core/signup"
	"github.com/Shyamyemuka/goldenspire-learn/tests"
)

func validSignup() signup.NewSignup {
	return signup.NewSignup{
		FullName:        "Ada Lovelace",
		Email:           "ada@example.com",
		Password:        testutil.Password,
		PasswordConfirm: testutil.Password,
		Role:            "student",
	}
}

func TestNewSignup_Validate(t *testing.T) {
	s := testutil.NewStack(t)

	tests := []struct {
		name       string
		modify     func(ns *signup.NewSignup)
		wantFields map[string]string // {field: tag}
	}{
		{name: "valid student", modify: func(ns *signup.NewSignup) {}},
		{name: "valid teacher", modify: func(ns *signup.NewSignup) { ns.Role, ns.Expertise = "teacher", "Physics" }},
		{name: "teacher without expertise", modify: func(ns *signup.NewSignup) { ns.Role = "teacher" }, wantFields: map[string]string{"expertise": "expertise"}},
		{name: "admin role", modify: func(ns *signup.NewSignup) { ns.Role = "admin" }, wantFields: map[string]string{"role": "signuprole"}},
		{name: "blank name", modify: func(ns *signup.NewSignup) { ns.FullName = "   " }, wantFields: map[string]string{"full_name": "notblank"}},
		{name: "bad email", modify: func(ns *signup.NewSignup) { ns.Email = "ada" }, wantFields: map[string]string{"email": "email"}},
		{name: "passwords differ", modify: func(ns *signup.NewSignup) { ns.PasswordConfirm = "Other-Pa55word" }, wantFields: map[string]string{"password_confirm": "pwdmatch"}},
		{name: "short password", modify: func(ns *signup.NewSignup) { ns.Password, ns.PasswordConfirm = "aB1!", "aB1!" }, wantFields: map[string]string{"password": "pwdminlen"}},
		{name: "spaced password", modify: func(ns *signup.NewSignup) { ns.Password, ns.PasswordConfirm = "Pass word1!", "Pass word1!" }, wantFields: map[string]string{"password": "pwdnospace"}},
		{name: "numeric password", modify: func(ns *signup.NewSignup) { ns.Password, ns.PasswordConfirm = "1234567890", "1234567890" }, wantFields: map[string]string{"password": "pwdnotallnum"}},
		{name: "simple password", modify: func(ns *signup.NewSignup) { ns.Password, ns.PasswordConfirm = "password123", "password123" }, wantFields: map[string]string{"password": "pwdcplx"}},
		{name: "password like name", modify: func(ns *signup.NewSignup) { ns.Password, ns.PasswordConfirm = "AdaLovelace1!", "AdaLovelace1!" }, wantFields: map[string]string{"password": "pwdtoosim"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ns := validSignup()
			tt.modify(&ns)

			err := ns.Validate(s.Validate)
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}
			var verrs validator.ValidationErrors
			require.True(t, errors.As(err, &verrs), "got %v", err)
			got := make(map[string]string)
			for _, fe := range verrs {
				got[fe.Field()] = fe.Tag()
			}
			assert.Equal(t, tt.wantFields, got)

			msgs := core.TranslateErrors(verrs, s.Translator)
			for fld := range tt.wantFields {
				assert.NotEmpty(t, msgs[fld])
			}
		})
	}
}

func TestService_Register(t *testing.T) {
	s := testutil.NewStack(t)
	ctx := context.Background()

	ns := validSignup()
	ns.Role, ns.Expertise = "teacher", "  Chemistry "
	pa, err := s.Signup.Register(ctx, ns)
	require.NoError(t, err)
	assert.Equal(t, profile.RoleTeacher, pa.RequestedRole)
	assert.Equal(t, approval.StatusPending, pa.Status)
	assert.Equal(t, "ada@example.com", pa.Email)

	p, err := s.Profiles.GetProfile(ctx, pa.UserID)
	require.NoError(t, err)
	assert.False(t, p.IsApproved, "signups wait for approval")
	assert.Equal(t, profile.RoleTeacher, p.Role)
	assert.Equal(t, "Chemistry", p.Expertise)

	acc, err := s.Auth.GetAccount(ctx, pa.UserID)
	require.NoError(t, err)
	assert.Equal(t, "teacher", acc.Metadata.RequestedRole)
	assert.Equal(t, 0, s.DB.Counts()["sessions"], "signing up does not sign in")

	t.Run("email taken", func(t *testing.T) {
		before := s.DB.Counts()
		dup := validSignup()
		dup.Email = " ADA@example.com"
		_, err := s.Signup.Register(ctx, dup)
		var verr *core.ValidationError
		if assert.True(t, errors.As(err, &verr)) {
			assert.Equal(t, "email", verr.Fields[0].Field)
		}
		assert.Equal(t, before, s.DB.Counts())
	})

	t.Run("staff role", func(t *testing.T) {
		bad := validSignup()
		bad.Email, bad.Role = testutil.UniqueEmail("admin"), "admin"
		_, err := s.Signup.Register(ctx, bad)
		var verr *core.ValidationError
		assert.True(t, errors.As(err, &verr))
	})

	t.Run("all or nothing", func(t *testing.T) {
		before := s.DB.Counts()
		s.DB.FailNext("CreatePendingApproval", errors.New("deadlock"))
		other := validSignup()
		other.Email = testutil.UniqueEmail("student")
		_, err := s.Signup.Register(ctx, other)
		assert.Error(t, err)
		assert.Equal(t, before, s.DB.Counts())
	})

	t.Run("invalidates pending lists", func(t *testing.T) {
		pas, err := s.Approvals.List(ctx, approval.QueryFilter{})
		require.NoError(t, err)
		require.Equal(t, 1, s.Cache.Len())

		s.Register(t, "Bob Builder", profile.RoleStudent)
		assert.Equal(t, 0, s.Cache.Len())
		fresh, err := s.Approvals.List(ctx, approval.QueryFilter{})
		require.NoError(t, err)
		assert.Len(t, fresh, len(pas)+1)
	})
}

func TestService_CreateApproved(t *testing.T) {
	s := testutil.NewStack(t)
	ctx := context.Background()

	p, err := s.Signup.CreateApproved(ctx, auth.NewAccount{
		Email:    "head@example.com",
		Password: testutil.Password,
		FullName: "Head Teacher",
	}, profile.RoleMasterAdmin)
	require.NoError(t, err)
	assert.True(t, p.IsApproved)
	assert.Equal(t, profile.RoleMasterAdmin, p.Role)

	roles, err := s.Approvals.Roles(ctx, p.ID)
	require.NoError(t, err)
	if assert.Len(t, roles, 1) {
		assert.Equal(t, profile.RoleMasterAdmin, roles[0].Role)
	}
	assert.Equal(t, 0, s.DB.Counts()["pending"])

	_, err = s.Signup.CreateApproved(ctx, auth.NewAccount{Email: "x@example.com", Password: testutil.Password, FullName: "X"}, profile.Role("janitor"))
	var verr *core.ValidationError
	assert.True(t, errors.As(err, &verr))
}
