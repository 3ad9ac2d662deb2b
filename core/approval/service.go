package approval

import (
	"context"
	"encoding/json"
	"fmt"
	"net/mail"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Shyamyemuka/goldenspire-learn/core"
	"github.com/Shyamyemuka/goldenspire-learn/core/notification"
	"github.com/Shyamyemuka/goldenspire-learn/core/profile"
	"github.com/Shyamyemuka/goldenspire-learn/core/session"
)

var decisionsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "approval_decisions_total",
	Help: "Approval decisions by action and result.",
}, []string{"action", "result"})

// Deps are the collaborators of a Service. Cache and MailSvc are optional.
type Deps struct {
	Repo     Repository
	Profiles profile.Repository
	Notifier notification.Sink
	Tx       core.Transactor
	Sessions session.Accessor
	Cache    Cache
	MailSvc  core.EmailService
	Logger   core.Logger
}

type Service struct {
	repo     Repository
	profiles profile.Repository
	notifier notification.Sink
	tx       core.Transactor
	sessions session.Accessor
	cache    Cache
	mailSvc  core.EmailService
	logger   core.Logger
}

func NewService(deps Deps) *Service {
	return &Service{
		repo:     deps.Repo,
		profiles: deps.Profiles,
		notifier: deps.Notifier,
		tx:       deps.Tx,
		sessions: deps.Sessions,
		cache:    deps.Cache,
		mailSvc:  deps.MailSvc,
		logger:   deps.Logger,
	}
}

// Approver returns the profile of the user acting in ctx. Only approved staff may decide.
func (svc *Service) Approver(ctx context.Context) (profile.Profile, error) {
	sess, ok := svc.sessions.Session(ctx)
	if !ok {
		return profile.Profile{}, core.NewAuthError("no active session")
	}
	p, err := svc.profiles.GetProfile(ctx, sess.UserID)
	if err != nil {
		if errors.Cause(err) == profile.ErrNotFound {
			return profile.Profile{}, ErrForbidden
		}
		return profile.Profile{}, core.NewLookupError("approver profile", err)
	}
	if !p.IsApproved || !p.Role.IsStaff() {
		return profile.Profile{}, ErrForbidden
	}
	return p, nil
}

// claim takes the pending approval out of the pending state. Teacher and admin requests are
// decided by admins only.
func (svc *Service) claim(ctx context.Context, id string, approver profile.Profile, exec core.DBExecutor) (PendingApproval, error) {
	pa, err := svc.repo.ClaimPendingApproval(ctx, id, exec)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return PendingApproval{}, ErrNotFound
		}
		return PendingApproval{}, core.NewLookupError("pending approval", err)
	}
	if !pa.RequestedRole.IsStudent() && !approver.Role.IsAdmin() {
		return PendingApproval{}, ErrForbidden
	}
	return pa, nil
}

// Approve grants the requested role. Every write happens in one transaction; on failure nothing
// is applied and the cached lists are left as they were.
func (svc *Service) Approve(ctx context.Context, id string) (PendingApproval, error) {
	approver, err := svc.Approver(ctx)
	if err != nil {
		return PendingApproval{}, err
	}

	var (
		pa  PendingApproval
		msg string
	)
	err = svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if pa, err = svc.claim(ctx, id, approver, exec); err != nil {
			return err
		}
		if err = svc.profiles.SetApproved(ctx, pa.UserID, true, exec); err != nil {
			return core.NewWriteError(StepApproveProfile, err)
		}

		now := core.NowFunc()
		ur := UserRole{ID: uuid.New().String(), UserID: pa.UserID, Role: pa.RequestedRole, CreatedAt: now}
		if _, err = svc.repo.CreateUserRole(ctx, ur, exec); err != nil {
			return core.NewWriteError(StepGrantRole, err)
		}

		log := ApprovalLog{
			ID:             uuid.New().String(),
			ApprovedUserID: pa.UserID,
			ApprovedBy:     approver.ID,
			Action:         ActionApproved,
			Role:           pa.RequestedRole,
			CreatedAt:      now,
		}
		if _, err = svc.repo.CreateApprovalLog(ctx, log, exec); err != nil {
			return core.NewWriteError(StepLogApproval, err)
		}
		if err = svc.repo.DeletePendingApproval(ctx, pa.ID, exec); err != nil {
			return core.NewWriteError(StepDeletePending, err)
		}

		msg = fmt.Sprintf(msgApproved, pa.RequestedRole)
		return svc.notify(ctx, pa, msg, exec)
	})
	svc.record("approve", err)
	if err != nil {
		return PendingApproval{}, err
	}

	svc.logger.Info(fmt.Sprintf("approval %s: %s approved as %s", pa.ID, pa.UserID, pa.RequestedRole), approver.Person())
	svc.Invalidate(ctx)
	svc.sendDecisionEmail(pa, msg, true)
	return pa, nil
}

// Reject discards the request. Neither a role nor an approval log is written.
func (svc *Service) Reject(ctx context.Context, id string) (PendingApproval, error) {
	approver, err := svc.Approver(ctx)
	if err != nil {
		return PendingApproval{}, err
	}

	var (
		pa  PendingApproval
		msg string
	)
	err = svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if pa, err = svc.claim(ctx, id, approver, exec); err != nil {
			return err
		}
		if err = svc.repo.DeletePendingApproval(ctx, pa.ID, exec); err != nil {
			return core.NewWriteError(StepDeletePending, err)
		}
		msg = fmt.Sprintf(msgRejected, pa.RequestedRole)
		return svc.notify(ctx, pa, msg, exec)
	})
	svc.record("reject", err)
	if err != nil {
		return PendingApproval{}, err
	}

	svc.logger.Info(fmt.Sprintf("approval %s: %s rejected", pa.ID, pa.UserID), approver.Person())
	svc.Invalidate(ctx)
	svc.sendDecisionEmail(pa, msg, false)
	return pa, nil
}

func (svc *Service) notify(ctx context.Context, pa PendingApproval, msg string, exec core.DBExecutor) error {
	n := notification.Notification{
		UserID:  pa.UserID,
		Message: msg,
		Type:    notification.TypeEnrollment,
	}
	if _, err := svc.notifier.Notify(ctx, n, exec); err != nil {
		return core.NewWriteError(StepNotifyUser, err)
	}
	return nil
}

func (svc *Service) record(action string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Cause(err) == ErrNotFound:
		result = "not_found"
	case errors.Cause(err) == ErrForbidden:
		result = "forbidden"
	default:
		result = "error"
	}
	decisionsCounter.WithLabelValues(action, result).Inc()
}

func (svc *Service) sendDecisionEmail(pa PendingApproval, msg string, approved bool) {
	if svc.mailSvc == nil || pa.Email == "" {
		return
	}
	subject := "Your account request"
	if approved {
		subject = "Your account has been approved"
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: pa.FullName, Address: pa.Email}},
		Subject:      subject,
		TemplateName: "account_decision",
		TemplateData: map[string]interface{}{
			"Name":     pa.FullName,
			"Message":  msg,
			"Approved": approved,
		},
	})
}

// Invalidate drops the cached pending lists. A failure only delays freshness until the TTL.
func (svc *Service) Invalidate(ctx context.Context) {
	if svc.cache == nil {
		return
	}
	if err := svc.cache.Invalidate(ctx); err != nil {
		svc.logger.Warn(fmt.Sprintf("invalidating pending approvals cache: %v", err), err)
	}
}

// List returns the approvals awaiting a decision, newest first unless filter orders otherwise.
func (svc *Service) List(ctx context.Context, filter QueryFilter) ([]PendingApproval, error) {
	filter.Ordering = core.AllowedOrderings(filter.Ordering, "created_at", "full_name", "email", "requested_role")
	if len(filter.Ordering) == 0 {
		filter.Ordering = []core.DBOrdering{{Field: "created_at"}}
	}

	key := filter.cacheKey()
	if svc.cache != nil {
		if data, ok, err := svc.cache.Get(ctx, key); err != nil {
			svc.logger.Warn(fmt.Sprintf("reading pending approvals cache: %v", err), err)
		} else if ok {
			var pas []PendingApproval
			if err = json.Unmarshal(data, &pas); err == nil {
				return pas, nil
			}
			svc.logger.Warn(fmt.Sprintf("decoding pending approvals cache: %v", err), err)
		}
	}

	pas, err := svc.repo.QueryPendingApprovals(ctx, filter)
	if err != nil {
		return nil, core.NewLookupError("pending approvals", err)
	}
	if pas == nil {
		pas = []PendingApproval{}
	}

	if svc.cache != nil {
		if data, err := json.Marshal(pas); err == nil {
			if err = svc.cache.Set(ctx, key, data); err != nil {
				svc.logger.Warn(fmt.Sprintf("writing pending approvals cache: %v", err), err)
			}
		}
	}
	return pas, nil
}

func (svc *Service) Get(ctx context.Context, id string) (PendingApproval, error) {
	return svc.repo.GetPendingApproval(ctx, id)
}

// Logs returns the audit trail about userID, newest first.
func (svc *Service) Logs(ctx context.Context, userID string) ([]ApprovalLog, error) {
	logs, err := svc.repo.QueryApprovalLogs(ctx, userID)
	if err != nil {
		return nil, core.NewLookupError("approval logs", err)
	}
	return logs, nil
}

func (svc *Service) Roles(ctx context.Context, userID string) ([]UserRole, error) {
	roles, err := svc.repo.QueryUserRoles(ctx, userID)
	if err != nil {
		return nil, core.NewLookupError("user roles", err)
	}
	return roles, nil
}

// Submit records a new pending approval inside the caller's transaction. The caller invalidates the
// cache once committed.
func (svc *Service) Submit(ctx context.Context, pa PendingApproval, exec ...core.DBExecutor) (PendingApproval, error) {
	pa.ID = uuid.New().String()
	pa.Status = StatusPending
	pa.CreatedAt = core.NowFunc()
	pa, err := svc.repo.CreatePendingApproval(ctx, pa, exec...)
	if err != nil {
		if errors.Cause(err) == ErrPendingExists {
			return PendingApproval{}, core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return PendingApproval{}, errors.Wrap(err, "creating pending approval")
	}
	return pa, nil
}

// Grant gives userID role right away, for accounts created by an administrator.
func (svc *Service) Grant(ctx context.Context, userID string, role profile.Role, exec ...core.DBExecutor) (UserRole, error) {
	ur := UserRole{ID: uuid.New().String(), UserID: userID, Role: role, CreatedAt: core.NowFunc()}
	ur, err := svc.repo.CreateUserRole(ctx, ur, exec...)
	if err != nil {
		return UserRole{}, core.NewWriteError(StepGrantRole, err)
	}
	return ur, nil
}
