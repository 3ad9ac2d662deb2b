package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/Shyamyemuka/goldenspire-learn/core"
	"github.com/Shyamyemuka/goldenspire-learn/core/approval"
)

type approvalRepository struct {
	db *DB
}

var _ approval.Repository = (*approvalRepository)(nil)

func NewApprovalRepository(db *DB) *approvalRepository {
	return &approvalRepository{db: db}
}

func (r *approvalRepository) CreatePendingApproval(_ context.Context, pa approval.PendingApproval, exec ...core.DBExecutor) (approval.PendingApproval, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if err := r.db.fail("CreatePendingApproval"); err != nil {
		return approval.PendingApproval{}, err
	}
	for _, p := range r.db.pending {
		if p.UserID == pa.UserID {
			return approval.PendingApproval{}, approval.ErrPendingExists
		}
	}
	put(exec, r.db.pending, pa.ID, pa)
	r.db.stamp(pa.ID)
	return pa, nil
}

func (r *approvalRepository) GetPendingApproval(_ context.Context, id string, _ ...core.DBExecutor) (approval.PendingApproval, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if pa, ok := r.db.pending[id]; ok {
		return pa, nil
	}
	return approval.PendingApproval{}, approval.ErrNotFound
}

func (r *approvalRepository) ClaimPendingApproval(_ context.Context, id string, exec ...core.DBExecutor) (approval.PendingApproval, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if err := r.db.fail("ClaimPendingApproval"); err != nil {
		return approval.PendingApproval{}, err
	}
	pa, ok := r.db.pending[id]
	if !ok || pa.Status != approval.StatusPending {
		return approval.PendingApproval{}, approval.ErrNotFound
	}
	pa.Status = approval.StatusProcessing
	put(exec, r.db.pending, id, pa)
	return pa, nil
}

func (r *approvalRepository) DeletePendingApproval(_ context.Context, id string, exec ...core.DBExecutor) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if err := r.db.fail("DeletePendingApproval"); err != nil {
		return err
	}
	if _, ok := r.db.pending[id]; !ok {
		return approval.ErrNotFound
	}
	del(exec, r.db.pending, id)
	return nil
}

func pendingField(pa approval.PendingApproval, field string) string {
	switch field {
	case "full_name":
		return strings.ToLower(pa.FullName)
	case "email":
		return pa.Email
	case "requested_role":
		return string(pa.RequestedRole)
	}
	return pa.CreatedAt.Format("2006-01-02T15:04:05.000000000")
}

func (r *approvalRepository) QueryPendingApprovals(_ context.Context, filter approval.QueryFilter, _ ...core.DBExecutor) ([]approval.PendingApproval, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if err := r.db.fail("QueryPendingApprovals"); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(r.db.pending))
	for id, pa := range r.db.pending {
		if pa.Status == approval.StatusPending && (filter.Role == "" || pa.RequestedRole == filter.Role) {
			ids = append(ids, id)
		}
	}
	r.db.newestFirst(ids, func(id string) int64 { return r.db.pending[id].CreatedAt.UnixNano() })

	ordering := core.AllowedOrderings(filter.Ordering, "created_at", "full_name", "email", "requested_role")
	if len(ordering) > 0 {
		sort.SliceStable(ids, func(i, j int) bool {
			for _, ord := range ordering {
				vi, vj := pendingField(r.db.pending[ids[i]], ord.Field), pendingField(r.db.pending[ids[j]], ord.Field)
				if vi == vj {
					continue
				}
				if ord.Ascending {
					return vi < vj
				}
				return vi > vj
			}
			return false
		})
	}

	res := make([]approval.PendingApproval, 0, len(ids))
	for _, id := range ids {
		res = append(res, r.db.pending[id])
	}
	return res, nil
}

func (r *approvalRepository) CreateUserRole(_ context.Context, ur approval.UserRole, exec ...core.DBExecutor) (approval.UserRole, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if err := r.db.fail("CreateUserRole"); err != nil {
		return approval.UserRole{}, err
	}
	put(exec, r.db.userRoles, ur.ID, ur)
	r.db.stamp(ur.ID)
	return ur, nil
}

func (r *approvalRepository) QueryUserRoles(_ context.Context, userID string, _ ...core.DBExecutor) ([]approval.UserRole, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	ids := make([]string, 0)
	for id, ur := range r.db.userRoles {
		if ur.UserID == userID {
			ids = append(ids, id)
		}
	}
	r.db.newestFirst(ids, func(id string) int64 { return r.db.userRoles[id].CreatedAt.UnixNano() })

	res := make([]approval.UserRole, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- { // oldest first
		res = append(res, r.db.userRoles[ids[i]])
	}
	return res, nil
}

func (r *approvalRepository) CreateApprovalLog(_ context.Context, log approval.ApprovalLog, exec ...core.DBExecutor) (approval.ApprovalLog, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if err := r.db.fail("CreateApprovalLog"); err != nil {
		return approval.ApprovalLog{}, err
	}
	put(exec, r.db.approvalLogs, log.ID, log)
	r.db.stamp(log.ID)
	return log, nil
}

func (r *approvalRepository) QueryApprovalLogs(_ context.Context, userID string, _ ...core.DBExecutor) ([]approval.ApprovalLog, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	ids := make([]string, 0)
	for id, log := range r.db.approvalLogs {
		if log.ApprovedUserID == userID {
			ids = append(ids, id)
		}
	}
	r.db.newestFirst(ids, func(id string) int64 { return r.db.approvalLogs[id].CreatedAt.UnixNano() })

	res := make([]approval.ApprovalLog, 0, len(ids))
	for _, id := range ids {
		res = append(res, r.db.approvalLogs[id])
	}
	return res, nil
}
