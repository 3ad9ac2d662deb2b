package testutil

import (
	"context"
	"fmt"
	"io"
	"log"
	"testing"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/randomize"

	"github.com/Shyamyemuka/goldenspire-learn/core"
	"github.com/Shyamyemuka/goldenspire-learn/core/approval"
	"github.com/Shyamyemuka/goldenspire-learn/core/auth"
	"github.com/Shyamyemuka/goldenspire-learn/core/course"
	"github.com/Shyamyemuka/goldenspire-learn/core/notification"
	"github.com/Shyamyemuka/goldenspire-learn/core/profile"
	"github.com/Shyamyemuka/goldenspire-learn/core/session"
	"github.com/Shyamyemuka/goldenspire-learn/core/signup"
	"github.com/Shyamyemuka/goldenspire-learn/services/cache"
	"github.com/Shyamyemuka/goldenspire-learn/services/email"
	"github.com/Shyamyemuka/goldenspire-learn/services/logger"
	"github.com/Shyamyemuka/goldenspire-learn/storage/database/inmem"
)

// Password satisfies the signup password policy.
const Password = "L3arn!ng-Rocks"

var seed = randomize.NewSeed()

// Stack wires every service on in-memory storage.
type Stack struct {
	Conf       *core.Config
	Logger     core.Logger
	DB         *inmemdb.DB
	Tx         core.Transactor
	Mail       *emailsvc.ConsoleServiceMock
	Cache      *cachesvc.MemoryCache
	Validate   *validator.Validate
	Translator ut.Translator

	Profiles     profile.Repository
	ApprovalRepo approval.Repository

	Auth          *auth.Service
	Holder        *session.Holder
	Notifications *notification.Service
	Approvals     *approval.Service
	Signup        *signup.Service
	Courses       *course.Service
}

func NewLogger(conf *core.Config) core.Logger {
	l := logsvc.NewRollbarLogger(log.New(io.Discard, "TEST : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	l.Enable(false)
	return l
}

// NewStack builds a fresh Stack. The session holder is attached to the auth service and detached
// when the test ends.
func NewStack(t *testing.T) *Stack {
	t.Helper()

	conf := core.NewTestConfig()
	logger := NewLogger(conf)
	core.ParseEmailTemplates(conf, logger)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	signup.InitValidators(validate, translator)

	db := inmemdb.Open()
	tx := inmemdb.NewTransactor(db)
	profileRepo := inmemdb.NewProfileRepository(db)
	approvalRepo := inmemdb.NewApprovalRepository(db)

	s := &Stack{
		Conf:         conf,
		Logger:       logger,
		DB:           db,
		Tx:           tx,
		Mail:         emailsvc.NewConsoleServiceMock(conf, logger),
		Cache:        cachesvc.NewMemoryCache(conf.Redis.CacheTTL),
		Validate:     validate,
		Translator:   translator,
		Profiles:     profileRepo,
		ApprovalRepo: approvalRepo,
		Holder:       session.NewHolder(),
	}
	s.Auth = auth.NewService(inmemdb.NewAuthRepository(db), conf, logger)
	s.Notifications = notification.NewService(inmemdb.NewNotificationRepository(db))
	s.Approvals = approval.NewService(approval.Deps{
		Repo:     approvalRepo,
		Profiles: profileRepo,
		Notifier: s.Notifications,
		Tx:       tx,
		Sessions: s.Holder,
		Cache:    s.Cache,
		MailSvc:  s.Mail,
		Logger:   logger,
	})
	s.Signup = signup.NewService(s.Auth, profileRepo, s.Approvals, tx, logger)
	s.Courses = course.NewService(inmemdb.NewCourseRepository(db), profileRepo, s.Notifications, tx, s.Mail, logger)

	detach, err := s.Holder.Attach(s.Auth)
	if err != nil {
		t.Fatalf("Holder.Attach() failed: %v", err)
	}
	t.Cleanup(detach)
	return s
}

// UniqueEmail returns an email address no other fixture uses.
func UniqueEmail(prefix string) string {
	return fmt.Sprintf("%s.%d@example.com", prefix, seed.NextInt())
}

// CreateUser creates an account with its profile, bypassing signup and approval.
func (s *Stack) CreateUser(t *testing.T, name string, role profile.Role, approved bool) profile.Profile {
	t.Helper()
	ctx := context.Background()

	acc, err := s.Auth.SignUp(ctx, auth.NewAccount{
		Email:    UniqueEmail(string(role)),
		Password: Password,
		FullName: name,
		Metadata: auth.Metadata{RequestedRole: string(role)},
	})
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	p, err := s.Profiles.CreateProfile(ctx, profile.Profile{
		ID:         acc.ID,
		FullName:   acc.FullName,
		Email:      acc.Email,
		Role:       role,
		IsApproved: approved,
		CreatedAt:  acc.CreatedAt,
		UpdatedAt:  acc.CreatedAt,
	})
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return p
}

// SignIn opens a session for p and returns a context acting as that session.
func (s *Stack) SignIn(t *testing.T, p profile.Profile) (context.Context, auth.Session, string) {
	t.Helper()
	sess, token, err := s.Auth.SignIn(context.Background(), p.Email, Password)
	if err != nil {
		t.Fatalf("SignIn() failed: %v", err)
	}
	return session.NewContext(context.Background(), sess.ID), sess, token
}

// Register goes through signup and returns the new pending approval.
func (s *Stack) Register(t *testing.T, name string, role profile.Role) approval.PendingApproval {
	t.Helper()
	ns := signup.NewSignup{
		FullName:        name,
		Email:           UniqueEmail(string(role)),
		Password:        Password,
		PasswordConfirm: Password,
		Role:            string(role),
	}
	if role == profile.RoleTeacher {
		ns.Expertise = "Mathematics"
	}
	pa, err := s.Signup.Register(context.Background(), ns)
	if err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	return pa
}
