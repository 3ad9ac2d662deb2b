package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/Shyamyemuka/goldenspire-learn/core"
	"github.com/Shyamyemuka/goldenspire-learn/core/profile"
)

type profileRow struct {
	ID         string    `db:"id"`
	FullName   string    `db:"full_name"`
	Email      string    `db:"email"`
	Role       string    `db:"role"`
	IsApproved bool      `db:"is_approved"`
	Expertise  string    `db:"expertise"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (row profileRow) unwrap() profile.Profile {
	return profile.Profile{
		ID:         row.ID,
		FullName:   row.FullName,
		Email:      row.Email,
		Role:       profile.Role(row.Role),
		IsApproved: row.IsApproved,
		Expertise:  row.Expertise,
		CreatedAt:  row.CreatedAt.UTC(),
		UpdatedAt:  row.UpdatedAt.UTC(),
	}
}

type profileRepository struct {
	repo
}

var _ profile.Repository = (*profileRepository)(nil)

func NewProfileRepository(exec core.DBExecutor) *profileRepository {
	return &profileRepository{repo{exec: exec}}
}

func (r *profileRepository) CreateProfile(ctx context.Context, p profile.Profile, exec ...core.DBExecutor) (profile.Profile, error) {
	_, err := r.getExec(exec).ExecContext(ctx,
		`INSERT INTO profile (id, full_name, email, role, is_approved, expertise, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.FullName, p.Email, string(p.Role), p.IsApproved, p.Expertise, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return profile.Profile{}, errors.Wrap(err, "inserting profile")
	}
	return p, nil
}

func (r *profileRepository) GetProfile(ctx context.Context, id string, exec ...core.DBExecutor) (profile.Profile, error) {
	var rows []profileRow
	err := selectAll(ctx, r.getExec(exec), &rows,
		`SELECT id, full_name, email, role, is_approved, expertise, created_at, updated_at FROM profile WHERE id = $1`, id)
	if err != nil {
		return profile.Profile{}, errors.Wrap(err, "selecting profile")
	}
	if len(rows) == 0 {
		return profile.Profile{}, profile.ErrNotFound
	}
	return rows[0].unwrap(), nil
}

func (r *profileRepository) SetApproved(ctx context.Context, id string, approved bool, exec ...core.DBExecutor) error {
	return execOne(ctx, r.getExec(exec), profile.ErrNotFound,
		`UPDATE profile SET is_approved = $2, updated_at = $3 WHERE id = $1`, id, approved, core.NowFunc())
}
