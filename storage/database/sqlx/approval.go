package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/Shyamyemuka/goldenspire-learn/core"
	"github.com/Shyamyemuka/goldenspire-learn/core/approval"
	"github.com/Shyamyemuka/goldenspire-learn/core/profile"
)

type pendingApprovalRow struct {
	ID            string    `db:"id"`
	UserID        string    `db:"user_id"`
	RequestedRole string    `db:"requested_role"`
	FullName      string    `db:"full_name"`
	Email         string    `db:"email"`
	Status        string    `db:"status"`
	CreatedAt     time.Time `db:"created_at"`
}

func (row pendingApprovalRow) unwrap() approval.PendingApproval {
	return approval.PendingApproval{
		ID:            row.ID,
		UserID:        row.UserID,
		RequestedRole: profile.Role(row.RequestedRole),
		FullName:      row.FullName,
		Email:         row.Email,
		Status:        approval.Status(row.Status),
		CreatedAt:     row.CreatedAt.UTC(),
	}
}

type userRoleRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Role      string    `db:"role"`
	CreatedAt time.Time `db:"created_at"`
}

type approvalLogRow struct {
	ID             string    `db:"id"`
	ApprovedUserID string    `db:"approved_user_id"`
	ApprovedBy     string    `db:"approved_by"`
	Action         string    `db:"action"`
	Role           string    `db:"role"`
	CreatedAt      time.Time `db:"created_at"`
}

const pendingApprovalCols = `id, user_id, requested_role, full_name, email, status, created_at`

type approvalRepository struct {
	repo
}

var _ approval.Repository = (*approvalRepository)(nil)

func NewApprovalRepository(exec core.DBExecutor) *approvalRepository {
	return &approvalRepository{repo{exec: exec}}
}

func (r *approvalRepository) CreatePendingApproval(ctx context.Context, pa approval.PendingApproval, exec ...core.DBExecutor) (approval.PendingApproval, error) {
	_, err := r.getExec(exec).ExecContext(ctx,
		`INSERT INTO pending_approval (`+pendingApprovalCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		pa.ID, pa.UserID, string(pa.RequestedRole), pa.FullName, pa.Email, string(pa.Status), pa.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return approval.PendingApproval{}, approval.ErrPendingExists
		}
		return approval.PendingApproval{}, errors.Wrap(err, "inserting pending approval")
	}
	return pa, nil
}

func (r *approvalRepository) getPending(ctx context.Context, exec core.DBExecutor, q string, args ...interface{}) (approval.PendingApproval, error) {
	var rows []pendingApprovalRow
	if err := selectAll(ctx, exec, &rows, q, args...); err != nil {
		return approval.PendingApproval{}, err
	}
	if len(rows) == 0 {
		return approval.PendingApproval{}, approval.ErrNotFound
	}
	return rows[0].unwrap(), nil
}

func (r *approvalRepository) GetPendingApproval(ctx context.Context, id string, exec ...core.DBExecutor) (approval.PendingApproval, error) {
	pa, err := r.getPending(ctx, r.getExec(exec), `SELECT `+pendingApprovalCols+` FROM pending_approval WHERE id = $1`, id)
	return pa, errors.Wrap(err, "selecting pending approval")
}

func (r *approvalRepository) ClaimPendingApproval(ctx context.Context, id string, exec ...core.DBExecutor) (approval.PendingApproval, error) {
	pa, err := r.getPending(ctx, r.getExec(exec),
		`UPDATE pending_approval SET status = $2 WHERE id = $1 AND status = $3 RETURNING `+pendingApprovalCols,
		id, string(approval.StatusProcessing), string(approval.StatusPending))
	return pa, errors.Wrap(err, "claiming pending approval")
}

func (r *approvalRepository) DeletePendingApproval(ctx context.Context, id string, exec ...core.DBExecutor) error {
	return execOne(ctx, r.getExec(exec), approval.ErrNotFound, `DELETE FROM pending_approval WHERE id = $1`, id)
}

func (r *approvalRepository) QueryPendingApprovals(ctx context.Context, filter approval.QueryFilter, exec ...core.DBExecutor) ([]approval.PendingApproval, error) {
	var (
		q    strings.Builder
		args = []interface{}{string(approval.StatusPending)}
	)
	q.WriteString(`SELECT ` + pendingApprovalCols + ` FROM pending_approval WHERE status = $1`)
	if filter.Role != "" {
		args = append(args, string(filter.Role))
		q.WriteString(` AND requested_role = $2`)
	}
	q.WriteString(orderBy(filter.Ordering, "created_at", "full_name", "email", "requested_role"))

	var rows []pendingApprovalRow
	if err := selectAll(ctx, r.getExec(exec), &rows, q.String(), args...); err != nil {
		return nil, errors.Wrap(err, "selecting pending approvals")
	}
	res := make([]approval.PendingApproval, 0, len(rows))
	for _, row := range rows {
		res = append(res, row.unwrap())
	}
	return res, nil
}

func (r *approvalRepository) CreateUserRole(ctx context.Context, ur approval.UserRole, exec ...core.DBExecutor) (approval.UserRole, error) {
	_, err := r.getExec(exec).ExecContext(ctx,
		`INSERT INTO user_role (id, user_id, role, created_at) VALUES ($1, $2, $3, $4)`,
		ur.ID, ur.UserID, string(ur.Role), ur.CreatedAt,
	)
	if err != nil {
		return approval.UserRole{}, errors.Wrap(err, "inserting user role")
	}
	return ur, nil
}

func (r *approvalRepository) QueryUserRoles(ctx context.Context, userID string, exec ...core.DBExecutor) ([]approval.UserRole, error) {
	var rows []userRoleRow
	err := selectAll(ctx, r.getExec(exec), &rows,
		`SELECT id, user_id, role, created_at FROM user_role WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "selecting user roles")
	}
	res := make([]approval.UserRole, 0, len(rows))
	for _, row := range rows {
		res = append(res, approval.UserRole{
			ID:        row.ID,
			UserID:    row.UserID,
			Role:      profile.Role(row.Role),
			CreatedAt: row.CreatedAt.UTC(),
		})
	}
	return res, nil
}

func (r *approvalRepository) CreateApprovalLog(ctx context.Context, log approval.ApprovalLog, exec ...core.DBExecutor) (approval.ApprovalLog, error) {
	_, err := r.getExec(exec).ExecContext(ctx,
		`INSERT INTO approval_log (id, approved_user_id, approved_by, action, role, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		log.ID, log.ApprovedUserID, log.ApprovedBy, string(log.Action), string(log.Role), log.CreatedAt,
	)
	if err != nil {
		return approval.ApprovalLog{}, errors.Wrap(err, "inserting approval log")
	}
	return log, nil
}

func (r *approvalRepository) QueryApprovalLogs(ctx context.Context, userID string, exec ...core.DBExecutor) ([]approval.ApprovalLog, error) {
	var rows []approvalLogRow
	err := selectAll(ctx, r.getExec(exec), &rows,
		`SELECT id, approved_user_id, approved_by, action, role, created_at FROM approval_log
		WHERE approved_user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "selecting approval logs")
	}
	res := make([]approval.ApprovalLog, 0, len(rows))
	for _, row := range rows {
		res = append(res, approval.ApprovalLog{
			ID:             row.ID,
			ApprovedUserID: row.ApprovedUserID,
			ApprovedBy:     row.ApprovedBy,
			Action:         approval.Action(row.Action),
			Role:           profile.Role(row.Role),
			CreatedAt:      row.CreatedAt.UTC(),
		})
	}
	return res, nil
}
