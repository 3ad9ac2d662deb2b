package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Shyamyemuka/goldenspire-learn/core"
	"github.com/Shyamyemuka/goldenspire-learn/core/approval"
	"github.com/Shyamyemuka/goldenspire-learn/core/profile"
)

var (
	orderingParam = "ordering"
	roleParam     = "role"
)

// Ordering binds `?ordering=-created_at,full_name`; a leading "-" sorts descending.
type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// ApprovalQuery binds the pending approvals list filter.
type ApprovalQuery struct {
	Ordering
	Role profile.Role
}

func (q *ApprovalQuery) Bind(ctx echo.Context) error {
	q.Ordering.Bind(ctx)
	if role := strings.TrimSpace(ctx.QueryParam(roleParam)); role != "" {
		q.Role = profile.Role(strings.ToLower(role))
		if !q.Role.Valid() {
			return core.NewValidationError(nil, core.FieldError{Field: roleParam, Error: "unknown role"})
		}
	}
	return nil
}

func (q ApprovalQuery) Filter() approval.QueryFilter {
	return approval.QueryFilter{Role: q.Role, Ordering: q.Orderings}
}
