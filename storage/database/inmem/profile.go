package inmemdb

import (
	"context"

	"github.com/Shyamyemuka/goldenspire-learn/core"
	"github.com/Shyamyemuka/goldenspire-learn/core/profile"
)

type profileRepository struct {
	db *DB
}

var _ profile.Repository = (*profileRepository)(nil)

func NewProfileRepository(db *DB) *profileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) CreateProfile(_ context.Context, p profile.Profile, exec ...core.DBExecutor) (profile.Profile, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if err := r.db.fail("CreateProfile"); err != nil {
		return profile.Profile{}, err
	}
	put(exec, r.db.profiles, p.ID, p)
	r.db.stamp(p.ID)
	return p, nil
}

func (r *profileRepository) GetProfile(_ context.Context, id string, _ ...core.DBExecutor) (profile.Profile, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if err := r.db.fail("GetProfile"); err != nil {
		return profile.Profile{}, err
	}
	if p, ok := r.db.profiles[id]; ok {
		return p, nil
	}
	return profile.Profile{}, profile.ErrNotFound
}

func (r *profileRepository) SetApproved(_ context.Context, id string, approved bool, exec ...core.DBExecutor) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if err := r.db.fail("SetApproved"); err != nil {
		return err
	}
	p, ok := r.db.profiles[id]
	if !ok {
		return profile.ErrNotFound
	}
	p.IsApproved = approved
	p.UpdatedAt = core.NowFunc()
	put(exec, r.db.profiles, id, p)
	return nil
}
