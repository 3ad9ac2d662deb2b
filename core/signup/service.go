// Package signup registers new accounts. A signup never grants access by itself: it leaves an
// unapproved profile and a pending approval for staff to decide on.
package signup

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/Shyamyemuka/goldenspire-learn/core"
	"github.com/Shyamyemuka/goldenspire-learn/core/approval"
	"github.com/Shyamyemuka/goldenspire-learn/core/auth"
	"github.com/Shyamyemuka/goldenspire-learn/core/profile"
)

type NewSignup struct {
	FullName        string `json:"full_name" validate:"required,notblank,max=120"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required"`
	Role            string `json:"role" validate:"required,signuprole"`
	Expertise       string `json:"expertise,omitempty" validate:"max=200"`
}

func (ns NewSignup) Validate(validate *validator.Validate) error {
	return validate.Struct(ns)
}

type (
	AccountCreator interface {
		SignUp(ctx context.Context, na auth.NewAccount, exec ...core.DBExecutor) (auth.Account, error)
	}

	ApprovalSubmitter interface {
		Submit(ctx context.Context, pa approval.PendingApproval, exec ...core.DBExecutor) (approval.PendingApproval, error)
		Grant(ctx context.Context, userID string, role profile.Role, exec ...core.DBExecutor) (approval.UserRole, error)
		Invalidate(ctx context.Context)
	}
)

type Service struct {
	accounts  AccountCreator
	profiles  profile.Repository
	approvals ApprovalSubmitter
	tx        core.Transactor
	logger    core.Logger
}

func NewService(
	accounts AccountCreator,
	profiles profile.Repository,
	approvals ApprovalSubmitter,
	tx core.Transactor,
	logger core.Logger,
) *Service {
	return &Service{
		accounts:  accounts,
		profiles:  profiles,
		approvals: approvals,
		tx:        tx,
		logger:    logger,
	}
}

// Register creates the account, its unapproved profile and the pending approval together.
func (svc *Service) Register(ctx context.Context, ns NewSignup) (approval.PendingApproval, error) {
	role := profile.Role(ns.Role)
	if !role.In(profile.SignupRoles...) {
		return approval.PendingApproval{}, core.NewValidationError(nil, core.FieldError{Field: "role", Error: signupRoleText})
	}

	var pa approval.PendingApproval
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		acc, p, err := svc.createAccount(ctx, ns, role, false, exec)
		if err != nil {
			return err
		}
		pa, err = svc.approvals.Submit(ctx, approval.PendingApproval{
			UserID:        acc.ID,
			RequestedRole: role,
			FullName:      p.FullName,
			Email:         p.Email,
		}, exec)
		return err
	})
	if err != nil {
		return approval.PendingApproval{}, err
	}

	svc.approvals.Invalidate(ctx)
	return pa, nil
}

// CreateApproved creates an account that is approved for role right away.
func (svc *Service) CreateApproved(ctx context.Context, na auth.NewAccount, role profile.Role) (profile.Profile, error) {
	if !role.Valid() {
		return profile.Profile{}, core.NewValidationError(nil, core.FieldError{Field: "role", Error: "invalid role"})
	}

	var p profile.Profile
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		ns := NewSignup{FullName: na.FullName, Email: na.Email, Password: na.Password, Expertise: na.Metadata.Expertise}
		var err error
		if _, p, err = svc.createAccount(ctx, ns, role, true, exec); err != nil {
			return err
		}
		_, err = svc.approvals.Grant(ctx, p.ID, role, exec)
		return err
	})
	if err != nil {
		return profile.Profile{}, err
	}
	return p, nil
}

func (svc *Service) createAccount(
	ctx context.Context,
	ns NewSignup,
	role profile.Role,
	approved bool,
	exec core.DBExecutor,
) (auth.Account, profile.Profile, error) {
	acc, err := svc.accounts.SignUp(ctx, auth.NewAccount{
		Email:    ns.Email,
		Password: ns.Password,
		FullName: ns.FullName,
		Metadata: auth.Metadata{RequestedRole: string(role), Expertise: core.CleanString(ns.Expertise)},
	}, exec)
	if err != nil {
		return auth.Account{}, profile.Profile{}, err
	}

	p, err := svc.profiles.CreateProfile(ctx, profile.Profile{
		ID:         acc.ID,
		FullName:   acc.FullName,
		Email:      acc.Email,
		Role:       role,
		IsApproved: approved,
		Expertise:  acc.Metadata.Expertise,
		CreatedAt:  acc.CreatedAt,
		UpdatedAt:  acc.CreatedAt,
	}, exec)
	if err != nil {
		return auth.Account{}, profile.Profile{}, errors.Wrap(err, "creating profile")
	}
	return acc, p, nil
}
