package inmemdb

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Shyamyemuka/goldenspire-learn/core"
	"github.com/Shyamyemuka/goldenspire-learn/core/auth"
)

type authRepository struct {
	db *DB
}

var _ auth.Repository = (*authRepository)(nil)

func NewAuthRepository(db *DB) *authRepository {
	return &authRepository{db: db}
}

func (r *authRepository) CreateAccount(_ context.Context, acc auth.Account, exec ...core.DBExecutor) (auth.Account, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if err := r.db.fail("CreateAccount"); err != nil {
		return auth.Account{}, err
	}
	for _, a := range r.db.accounts {
		if a.Email == acc.Email {
			return auth.Account{}, auth.ErrEmailExists
		}
	}
	if acc.ID == "" {
		acc.ID = uuid.New().String()
	}
	put(exec, r.db.accounts, acc.ID, acc)
	r.db.stamp(acc.ID)
	return acc, nil
}

func (r *authRepository) GetAccount(_ context.Context, id string, _ ...core.DBExecutor) (auth.Account, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if acc, ok := r.db.accounts[id]; ok {
		return acc, nil
	}
	return auth.Account{}, auth.ErrNotFound
}

func (r *authRepository) GetAccountByEmail(_ context.Context, email string, _ ...core.DBExecutor) (auth.Account, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, acc := range r.db.accounts {
		if acc.Email == email {
			return acc, nil
		}
	}
	return auth.Account{}, auth.ErrNotFound
}

func (r *authRepository) SetLastLogin(_ context.Context, id string, at time.Time, exec ...core.DBExecutor) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	acc, ok := r.db.accounts[id]
	if !ok {
		return auth.ErrNotFound
	}
	acc.LastLogin = at
	put(exec, r.db.accounts, id, acc)
	return nil
}

func (r *authRepository) CreateSession(_ context.Context, sess auth.Session, exec ...core.DBExecutor) (auth.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if err := r.db.fail("CreateSession"); err != nil {
		return auth.Session{}, err
	}
	put(exec, r.db.sessions, sess.ID, sess)
	r.db.stamp(sess.ID)
	return sess, nil
}

func (r *authRepository) GetSession(_ context.Context, id string, _ ...core.DBExecutor) (auth.Session, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if sess, ok := r.db.sessions[id]; ok {
		return sess, nil
	}
	return auth.Session{}, auth.ErrSessionNotFound
}

func (r *authRepository) UpdateSessionExpiry(_ context.Context, id string, expiresAt time.Time, exec ...core.DBExecutor) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	sess, ok := r.db.sessions[id]
	if !ok || !sess.RevokedAt.IsZero() {
		return auth.ErrSessionNotFound
	}
	sess.ExpiresAt = expiresAt
	put(exec, r.db.sessions, id, sess)
	return nil
}

func (r *authRepository) RevokeSession(_ context.Context, id string, at time.Time, exec ...core.DBExecutor) (auth.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	sess, ok := r.db.sessions[id]
	if !ok || !sess.RevokedAt.IsZero() {
		return auth.Session{}, auth.ErrSessionNotFound
	}
	sess.RevokedAt = at
	put(exec, r.db.sessions, id, sess)
	return sess, nil
}

func (r *authRepository) querySessions(keep func(auth.Session) bool) []auth.Session {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	ids := make([]string, 0, len(r.db.sessions))
	for id, sess := range r.db.sessions {
		if keep(sess) {
			ids = append(ids, id)
		}
	}
	r.db.newestFirst(ids, func(id string) int64 { return r.db.sessions[id].CreatedAt.UnixNano() })

	res := make([]auth.Session, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- { // oldest first
		res = append(res, r.db.sessions[ids[i]])
	}
	return res
}

func (r *authRepository) QueryActiveSessions(_ context.Context, now time.Time, _ ...core.DBExecutor) ([]auth.Session, error) {
	return r.querySessions(func(s auth.Session) bool { return s.Active(now) }), nil
}

func (r *authRepository) QueryExpiredSessions(_ context.Context, now time.Time, _ ...core.DBExecutor) ([]auth.Session, error) {
	return r.querySessions(func(s auth.Session) bool {
		return s.RevokedAt.IsZero() && !now.Before(s.ExpiresAt)
	}), nil
}
