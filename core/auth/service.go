package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Shyamyemuka/goldenspire-learn/core"
)

type subscription struct {
	id int
	fn Listener
}

// Service owns accounts, credentials and sessions, and publishes session events.
type Service struct {
	repo   Repository
	conf   *core.Config
	logger core.Logger

	mu        sync.RWMutex
	listeners []subscription
	nextID    int
}

var (
	_ Subscriber = (*Service)(nil)
	_ SignOuter  = (*Service)(nil)
)

func NewService(repo Repository, conf *core.Config, logger core.Logger) *Service {
	return &Service{
		repo:   repo,
		conf:   conf,
		logger: logger,
	}
}

func (svc *Service) Subscribe(l Listener) func() {
	svc.mu.Lock()
	id := svc.nextID
	svc.nextID++
	svc.listeners = append(svc.listeners, subscription{id: id, fn: l})
	svc.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			svc.mu.Lock()
			defer svc.mu.Unlock()
			for i, sub := range svc.listeners {
				if sub.id == id {
					svc.listeners = append(svc.listeners[:i], svc.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// emit calls listeners outside the lock so they may call back into the Service (e.g. SignOut).
func (svc *Service) emit(ctx context.Context, kind EventKind, sess Session) {
	svc.mu.RLock()
	listeners := make([]subscription, len(svc.listeners))
	copy(listeners, svc.listeners)
	svc.mu.RUnlock()

	ev := Event{Kind: kind, Session: sess}
	for _, sub := range listeners {
		sub.fn(ctx, ev)
	}
}

// SignUp creates an account. It never starts a session.
func (svc *Service) SignUp(ctx context.Context, na NewAccount, exec ...core.DBExecutor) (Account, error) {
	acc := Account{
		Email:     core.CleanString(na.Email, true /* lower */),
		FullName:  core.CleanString(na.FullName),
		Metadata:  na.Metadata,
		CreatedAt: core.NowFunc(),
	}
	if err := acc.SetPassword(na.Password); err != nil {
		return Account{}, core.NewAuthError("signing up", err)
	}

	acc, err := svc.repo.CreateAccount(ctx, acc, exec...)
	if err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return Account{}, core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return Account{}, core.NewAuthError("signing up", err)
	}
	return acc, nil
}

// SignIn checks the credentials, opens a session and emits SignedIn.
func (svc *Service) SignIn(ctx context.Context, email, pwd string) (Session, string, error) {
	acc, err := svc.repo.GetAccountByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Session{}, "", core.NewAuthError(errInvalidCredentials)
		}
		return Session{}, "", core.NewAuthError("signing in", err)
	}
	if err = acc.CheckPassword(pwd); err != nil {
		return Session{}, "", core.NewAuthError(errInvalidCredentials)
	}

	now := core.NowFunc()
	sess, err := svc.repo.CreateSession(ctx, Session{
		ID:        uuid.New().String(),
		UserID:    acc.ID,
		Email:     acc.Email,
		CreatedAt: now,
		ExpiresAt: now.Add(svc.conf.Server.JWTExpirationDelta),
	})
	if err != nil {
		return Session{}, "", core.NewAuthError("signing in", err)
	}
	if err = svc.repo.SetLastLogin(ctx, acc.ID, now); err != nil {
		svc.logger.Warn(fmt.Sprintf("setting last login: %v", err), err)
	}

	token, err := svc.Token(sess)
	if err != nil {
		return Session{}, "", core.NewAuthError("signing in", err)
	}

	svc.emit(ctx, SignedIn, sess)
	return sess, token, nil
}

// SignOut revokes the session and emits SignedOut. Unknown or already revoked sessions are ignored.
func (svc *Service) SignOut(ctx context.Context, sessionID string) error {
	sess, err := svc.repo.RevokeSession(ctx, sessionID, core.NowFunc())
	if err != nil {
		if errors.Cause(err) == ErrSessionNotFound {
			return nil
		}
		return errors.Wrap(err, "revoking session")
	}
	svc.emit(ctx, SignedOut, sess)
	return nil
}

// Refresh extends an active session, within the refresh window, and emits TokenRefreshed.
func (svc *Service) Refresh(ctx context.Context, sessionID string) (Session, string, error) {
	sess, err := svc.repo.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Cause(err) == ErrSessionNotFound {
			return Session{}, "", core.NewAuthError(errSessionInactive)
		}
		return Session{}, "", core.NewAuthError("refreshing session", err)
	}

	now := core.NowFunc()
	if !sess.Active(now) {
		return Session{}, "", core.NewAuthError(errSessionInactive)
	}
	refreshDeadline := sess.CreatedAt.Add(svc.conf.Server.JWTRefreshExpirationDelta)
	if now.After(refreshDeadline) {
		return Session{}, "", core.NewAuthError(errRefreshExpired)
	}

	sess.ExpiresAt = now.Add(svc.conf.Server.JWTExpirationDelta)
	if sess.ExpiresAt.After(refreshDeadline) {
		sess.ExpiresAt = refreshDeadline
	}
	if err = svc.repo.UpdateSessionExpiry(ctx, sess.ID, sess.ExpiresAt); err != nil {
		return Session{}, "", core.NewAuthError("refreshing session", err)
	}

	token, err := svc.Token(sess)
	if err != nil {
		return Session{}, "", core.NewAuthError("refreshing session", err)
	}

	svc.emit(ctx, TokenRefreshed, sess)
	return sess, token, nil
}

// Restore replays every active session as SessionRestored, for projections built after a restart.
func (svc *Service) Restore(ctx context.Context) (int, error) {
	sessions, err := svc.repo.QueryActiveSessions(ctx, core.NowFunc())
	if err != nil {
		return 0, errors.Wrap(err, "querying active sessions")
	}
	for _, sess := range sessions {
		svc.emit(ctx, SessionRestored, sess)
	}
	return len(sessions), nil
}

// ExpireSessions revokes the sessions that expired at or before now and emits SignedOut for each.
func (svc *Service) ExpireSessions(ctx context.Context, now time.Time) (int, error) {
	sessions, err := svc.repo.QueryExpiredSessions(ctx, now)
	if err != nil {
		return 0, errors.Wrap(err, "querying expired sessions")
	}

	var cnt int
	for _, s := range sessions {
		sess, err := svc.repo.RevokeSession(ctx, s.ID, now)
		if err != nil {
			if errors.Cause(err) == ErrSessionNotFound { // signed out meanwhile
				continue
			}
			return cnt, errors.Wrap(err, "revoking expired session")
		}
		svc.emit(ctx, SignedOut, sess)
		cnt++
	}
	return cnt, nil
}

func (svc *Service) GetAccount(ctx context.Context, id string) (Account, error) {
	return svc.repo.GetAccount(ctx, id)
}
