// Package sqlxrepos implements the repositories on Postgres. Rows are scanned with sqlx; joined read
// models are bound with sqlboiler's raw queries.
package sqlxrepos

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/Shyamyemuka/goldenspire-learn/core"
)

const (
	uniqueViolation           = "23505"
	invalidTextRepresentation = "22P02"
)

type repo struct {
	exec core.DBExecutor
}

func (r repo) getExec(exec []core.DBExecutor) core.DBExecutor {
	return core.GetExec(r.exec, exec)
}

// selectAll scans every row of the query into dest, a pointer to a slice of `db`-tagged structs.
func selectAll(ctx context.Context, exec core.DBExecutor, dest interface{}, q string, args ...interface{}) error {
	rows, err := exec.QueryContext(ctx, q, args...)
	if err != nil {
		if isMalformedValue(err) {
			return nil
		}
		return err
	}
	return sqlx.StructScan(rows, dest) // closes rows
}

// bindAll is selectAll for joined read models, bound by sqlboiler.
func bindAll(ctx context.Context, exec core.DBExecutor, dest interface{}, q string, args ...interface{}) error {
	err := queries.Raw(q, args...).Bind(ctx, exec, dest)
	if isMalformedValue(err) {
		return nil
	}
	return err
}

// selectIn is selectAll for queries with `IN (?)` clauses over slice arguments.
func selectIn(ctx context.Context, exec core.DBExecutor, dest interface{}, q string, args ...interface{}) error {
	q, args, err := sqlx.In(q, args...)
	if err != nil {
		return errors.Wrap(err, "expanding IN clause")
	}
	return selectAll(ctx, exec, dest, sqlx.Rebind(sqlx.DOLLAR, q), args...)
}

// execOne runs a write that must affect exactly one row; notFound is returned otherwise.
func execOne(ctx context.Context, exec core.DBExecutor, notFound error, q string, args ...interface{}) error {
	res, err := exec.ExecContext(ctx, q, args...)
	if err != nil {
		if isMalformedValue(err) {
			return notFound
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return hasCode(err, uniqueViolation)
}

// isMalformedValue reports a parameter Postgres could not parse for its column, such as an id that
// is not a UUID. No row matches it.
func isMalformedValue(err error) bool {
	return hasCode(err, invalidTextRepresentation)
}

func hasCode(err error, code pq.ErrorCode) bool {
	if err == nil {
		return false
	}
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == code
}

func newID() string {
	return uuid.New().String()
}

// orderBy renders an ORDER BY clause from the allowed orderings, newest first by default.
func orderBy(ordering []core.DBOrdering, allowed ...string) string {
	ordering = core.AllowedOrderings(ordering, allowed...)
	if len(ordering) == 0 {
		return ` ORDER BY created_at DESC`
	}
	clauses := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		clauses = append(clauses, ord.String())
	}
	return ` ORDER BY ` + strings.Join(clauses, ", ")
}
