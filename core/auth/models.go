package auth

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Shyamyemuka/goldenspire-learn/core"
)

var (
	// errors
	ErrNotFound        = errors.New("account not found")
	ErrEmailExists     = errors.New("an account with this email already exists")
	ErrSessionNotFound = errors.New("session not found")

	errInvalidCredentials = "invalid credentials"
	errSessionInactive    = "session expired or signed out"
	errRefreshExpired     = "refresh has expired"
)

// Metadata is what the client sends along with a signup.
type Metadata struct {
	RequestedRole string `json:"requested_role"`
	Expertise     string `json:"expertise,omitempty"`
}

type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	PasswordHash []byte    `json:"-"`
	Metadata     Metadata  `json:"metadata"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (a *Account) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

func (a *Account) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(pwd))
}

// NewAccount contains information needed to create a new Account.
type NewAccount struct {
	Email    string
	Password string
	FullName string
	Metadata Metadata
}

type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"` // UTC
	ExpiresAt time.Time `json:"expires_at"` // UTC
	RevokedAt time.Time `json:"revoked_at"` // UTC; zero while active
}

func (s Session) Active(now time.Time) bool {
	return s.ID != "" && s.RevokedAt.IsZero() && now.Before(s.ExpiresAt)
}

type EventKind int

const (
	SignedIn EventKind = iota + 1
	SignedOut
	TokenRefreshed
	SessionRestored
)

func (k EventKind) String() string {
	switch k {
	case SignedIn:
		return "SIGNED_IN"
	case SignedOut:
		return "SIGNED_OUT"
	case TokenRefreshed:
		return "TOKEN_REFRESHED"
	case SessionRestored:
		return "SESSION_RESTORED"
	}
	return "UNKNOWN"
}

type Event struct {
	Kind    EventKind
	Session Session
}

// Listener receives session events synchronously, in subscription order.
type Listener func(ctx context.Context, ev Event)

type (
	// Subscriber is the observable half of the Service.
	Subscriber interface {
		// Subscribe registers l and returns its disposer. Calling the disposer more than once is a no-op.
		Subscribe(l Listener) (dispose func())
	}

	// SignOuter terminates sessions.
	SignOuter interface {
		SignOut(ctx context.Context, sessionID string) error
	}

	Repository interface {
		// CreateAccount returns ErrEmailExists when the email is taken.
		CreateAccount(ctx context.Context, acc Account, exec ...core.DBExecutor) (Account, error)
		GetAccount(ctx context.Context, id string, exec ...core.DBExecutor) (Account, error)
		GetAccountByEmail(ctx context.Context, email string, exec ...core.DBExecutor) (Account, error)
		SetLastLogin(ctx context.Context, id string, at time.Time, exec ...core.DBExecutor) error

		CreateSession(ctx context.Context, sess Session, exec ...core.DBExecutor) (Session, error)
		GetSession(ctx context.Context, id string, exec ...core.DBExecutor) (Session, error)
		UpdateSessionExpiry(ctx context.Context, id string, expiresAt time.Time, exec ...core.DBExecutor) error
		// RevokeSession returns ErrSessionNotFound unless a not yet revoked session was revoked.
		RevokeSession(ctx context.Context, id string, at time.Time, exec ...core.DBExecutor) (Session, error)
		// QueryActiveSessions lists sessions neither revoked nor expired at now.
		QueryActiveSessions(ctx context.Context, now time.Time, exec ...core.DBExecutor) ([]Session, error)
		// QueryExpiredSessions lists sessions not revoked whose expiry is at or before now.
		QueryExpiredSessions(ctx context.Context, now time.Time, exec ...core.DBExecutor) ([]Session, error)
	}
)
