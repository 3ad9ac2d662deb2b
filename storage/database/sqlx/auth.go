package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/Shyamyemuka/goldenspire-learn/core"
	"github.com/Shyamyemuka/goldenspire-learn/core/auth"
)

type accountRow struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	FullName     string    `db:"full_name"`
	PasswordHash []byte    `db:"password_hash"`
	Metadata     []byte    `db:"metadata"`
	CreatedAt    time.Time `db:"created_at"`
	LastLogin    null.Time `db:"last_login"`
}

func (row accountRow) unwrap() auth.Account {
	acc := auth.Account{
		ID:           row.ID,
		Email:        row.Email,
		FullName:     row.FullName,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt.UTC(),
		LastLogin:    row.LastLogin.Time.UTC(),
	}
	_ = json.Unmarshal(row.Metadata, &acc.Metadata)
	return acc
}

type sessionRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Email     string    `db:"email"`
	CreatedAt time.Time `db:"created_at"`
	ExpiresAt time.Time `db:"expires_at"`
	RevokedAt null.Time `db:"revoked_at"`
}

func (row sessionRow) unwrap() auth.Session {
	return auth.Session{
		ID:        row.ID,
		UserID:    row.UserID,
		Email:     row.Email,
		CreatedAt: row.CreatedAt.UTC(),
		ExpiresAt: row.ExpiresAt.UTC(),
		RevokedAt: row.RevokedAt.Time.UTC(),
	}
}

func unwrapSessions(rows []sessionRow) []auth.Session {
	res := make([]auth.Session, 0, len(rows))
	for _, row := range rows {
		res = append(res, row.unwrap())
	}
	return res
}

const (
	accountCols = `id, email, full_name, password_hash, metadata, created_at, last_login`
	sessionCols = `id, user_id, email, created_at, expires_at, revoked_at`
)

type authRepository struct {
	repo
}

var _ auth.Repository = (*authRepository)(nil)

func NewAuthRepository(exec core.DBExecutor) *authRepository {
	return &authRepository{repo{exec: exec}}
}

func (r *authRepository) CreateAccount(ctx context.Context, acc auth.Account, exec ...core.DBExecutor) (auth.Account, error) {
	if acc.ID == "" {
		acc.ID = newID()
	}
	meta, err := json.Marshal(acc.Metadata)
	if err != nil {
		return auth.Account{}, errors.Wrap(err, "encoding metadata")
	}
	_, err = r.getExec(exec).ExecContext(ctx,
		`INSERT INTO account (id, email, full_name, password_hash, metadata, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		acc.ID, acc.Email, acc.FullName, acc.PasswordHash, meta, acc.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return auth.Account{}, auth.ErrEmailExists
		}
		return auth.Account{}, errors.Wrap(err, "inserting account")
	}
	return acc, nil
}

func (r *authRepository) getAccount(ctx context.Context, exec []core.DBExecutor, where string, arg interface{}) (auth.Account, error) {
	var rows []accountRow
	if err := selectAll(ctx, r.getExec(exec), &rows, `SELECT `+accountCols+` FROM account WHERE `+where+` LIMIT 1`, arg); err != nil {
		return auth.Account{}, errors.Wrap(err, "selecting account")
	}
	if len(rows) == 0 {
		return auth.Account{}, auth.ErrNotFound
	}
	return rows[0].unwrap(), nil
}

func (r *authRepository) GetAccount(ctx context.Context, id string, exec ...core.DBExecutor) (auth.Account, error) {
	return r.getAccount(ctx, exec, `id = $1`, id)
}

func (r *authRepository) GetAccountByEmail(ctx context.Context, email string, exec ...core.DBExecutor) (auth.Account, error) {
	return r.getAccount(ctx, exec, `email = $1`, email)
}

func (r *authRepository) SetLastLogin(ctx context.Context, id string, at time.Time, exec ...core.DBExecutor) error {
	return execOne(ctx, r.getExec(exec), auth.ErrNotFound, `UPDATE account SET last_login = $2 WHERE id = $1`, id, at)
}

func (r *authRepository) CreateSession(ctx context.Context, sess auth.Session, exec ...core.DBExecutor) (auth.Session, error) {
	_, err := r.getExec(exec).ExecContext(ctx,
		`INSERT INTO session (id, user_id, email, created_at, expires_at) VALUES ($1, $2, $3, $4, $5)`,
		sess.ID, sess.UserID, sess.Email, sess.CreatedAt, sess.ExpiresAt,
	)
	if err != nil {
		return auth.Session{}, errors.Wrap(err, "inserting session")
	}
	return sess, nil
}

func (r *authRepository) GetSession(ctx context.Context, id string, exec ...core.DBExecutor) (auth.Session, error) {
	var rows []sessionRow
	if err := selectAll(ctx, r.getExec(exec), &rows, `SELECT `+sessionCols+` FROM session WHERE id = $1`, id); err != nil {
		return auth.Session{}, errors.Wrap(err, "selecting session")
	}
	if len(rows) == 0 {
		return auth.Session{}, auth.ErrSessionNotFound
	}
	return rows[0].unwrap(), nil
}

func (r *authRepository) UpdateSessionExpiry(ctx context.Context, id string, expiresAt time.Time, exec ...core.DBExecutor) error {
	return execOne(ctx, r.getExec(exec), auth.ErrSessionNotFound,
		`UPDATE session SET expires_at = $2 WHERE id = $1 AND revoked_at IS NULL`, id, expiresAt)
}

func (r *authRepository) RevokeSession(ctx context.Context, id string, at time.Time, exec ...core.DBExecutor) (auth.Session, error) {
	var rows []sessionRow
	err := selectAll(ctx, r.getExec(exec), &rows,
		`UPDATE session SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL RETURNING `+sessionCols, id, at)
	if err != nil {
		return auth.Session{}, errors.Wrap(err, "revoking session")
	}
	if len(rows) == 0 {
		return auth.Session{}, auth.ErrSessionNotFound
	}
	return rows[0].unwrap(), nil
}

func (r *authRepository) QueryActiveSessions(ctx context.Context, now time.Time, exec ...core.DBExecutor) ([]auth.Session, error) {
	var rows []sessionRow
	err := selectAll(ctx, r.getExec(exec), &rows,
		`SELECT `+sessionCols+` FROM session WHERE revoked_at IS NULL AND expires_at > $1 ORDER BY created_at`, now)
	if err != nil {
		return nil, errors.Wrap(err, "selecting active sessions")
	}
	return unwrapSessions(rows), nil
}

func (r *authRepository) QueryExpiredSessions(ctx context.Context, now time.Time, exec ...core.DBExecutor) ([]auth.Session, error) {
	var rows []sessionRow
	err := selectAll(ctx, r.getExec(exec), &rows,
		`SELECT `+sessionCols+` FROM session WHERE revoked_at IS NULL AND expires_at <= $1 ORDER BY expires_at`, now)
	if err != nil {
		return nil, errors.Wrap(err, "selecting expired sessions")
	}
	return unwrapSessions(rows), nil
}
