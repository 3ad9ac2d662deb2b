package approval

import (
	"context"
	"errors"
	"time"

	"github.com/Shyamyemuka/goldenspire-learn/core"
	"github.com/Shyamyemuka/goldenspire-learn/core/profile"
)

var (
	// errors
	ErrNotFound      = errors.New("pending approval not found")
	ErrPendingExists = errors.New("a pending approval already exists for this user")
	ErrForbidden     = errors.New("you are not allowed to decide this request")
)

// Status guards a pending approval against being decided twice.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
)

type Action string

const ActionApproved Action = "approved"

// steps of the decision sequences, reported by core.WriteError
const (
	StepApproveProfile = "approving profile"
	StepGrantRole      = "granting role"
	StepLogApproval    = "logging approval"
	StepDeletePending  = "deleting pending approval"
	StepNotifyUser     = "notifying user"
)

const (
	msgApproved = "Your %s account has been approved!"
	msgRejected = "Your %s account request was not approved."
)

type PendingApproval struct {
	ID            string       `json:"id"`
	UserID        string       `json:"user_id"`
	RequestedRole profile.Role `json:"requested_role"`
	FullName      string       `json:"full_name"`
	Email         string       `json:"email"`
	Status        Status       `json:"status"`
	CreatedAt     time.Time    `json:"created_at"` // UTC
}

type UserRole struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	Role      profile.Role `json:"role"`
	CreatedAt time.Time    `json:"created_at"` // UTC
}

type ApprovalLog struct {
	ID             string       `json:"id"`
	ApprovedUserID string       `json:"approved_user_id"`
	ApprovedBy     string       `json:"approved_by"`
	Action         Action       `json:"action"`
	Role           profile.Role `json:"role"`
	CreatedAt      time.Time    `json:"created_at"` // UTC
}

// QueryFilter narrows List. A zero Role matches every role.
type QueryFilter struct {
	Role     profile.Role
	Ordering []core.DBOrdering
}

// cacheKey identifies the filter's result in the Cache.
func (f QueryFilter) cacheKey() string {
	key := "role=" + string(f.Role)
	for _, ord := range f.Ordering {
		key += "|" + ord.String()
	}
	return key
}

type (
	Repository interface {
		// CreatePendingApproval returns ErrPendingExists when the user already has one.
		CreatePendingApproval(ctx context.Context, pa PendingApproval, exec ...core.DBExecutor) (PendingApproval, error)
		GetPendingApproval(ctx context.Context, id string, exec ...core.DBExecutor) (PendingApproval, error)
		// ClaimPendingApproval moves a pending approval to StatusProcessing and returns it. It returns
		// ErrNotFound when the approval is absent or already claimed.
		ClaimPendingApproval(ctx context.Context, id string, exec ...core.DBExecutor) (PendingApproval, error)
		DeletePendingApproval(ctx context.Context, id string, exec ...core.DBExecutor) error
		// QueryPendingApprovals lists approvals in StatusPending.
		QueryPendingApprovals(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]PendingApproval, error)

		CreateUserRole(ctx context.Context, ur UserRole, exec ...core.DBExecutor) (UserRole, error)
		QueryUserRoles(ctx context.Context, userID string, exec ...core.DBExecutor) ([]UserRole, error)

		CreateApprovalLog(ctx context.Context, log ApprovalLog, exec ...core.DBExecutor) (ApprovalLog, error)
		// QueryApprovalLogs lists the logs about userID, newest first.
		QueryApprovalLogs(ctx context.Context, userID string, exec ...core.DBExecutor) ([]ApprovalLog, error)
	}

	// Cache holds encoded pending-approval lists by filter key.
	Cache interface {
		Get(ctx context.Context, key string) ([]byte, bool, error)
		Set(ctx context.Context, key string, val []byte) error
		// Invalidate drops every cached list.
		Invalidate(ctx context.Context) error
	}
)
