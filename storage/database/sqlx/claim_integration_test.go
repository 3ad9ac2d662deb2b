//go:build integration

package sqlxrepos_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shyamyemuka/goldenspire-learn/core"
	"github.com/Shyamyemuka/goldenspire-learn/core/approval"
	"github.com/Shyamyemuka/goldenspire-learn/core/auth"
	"github.com/Shyamyemuka/goldenspire-learn/core/profile"
	"github.com/Shyamyemuka/goldenspire-learn/storage/database"
	sqlxrepos "github.com/Shyamyemuka/goldenspire-learn/storage/database/sqlx"
)

// openDB connects to the database configured for ENV=test and migrates it.
//
//	ENV=test go test -tags integration ./storage/database/sqlx/...
func openDB(t *testing.T) *sql.DB {
	conf := core.NewConfig()
	if !conf.TestMode {
		t.Skip("set ENV=test to run against Postgres")
	}
	ctx := context.Background()
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		t.Skipf("database unavailable: %v", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		t.Skipf("database unavailable: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(ctx, db))
	return db
}

// createPending stores an account with a pending teacher request. The account's deletion cascades to
// the request.
func createPending(t *testing.T, db *sql.DB) approval.PendingApproval {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	accounts := sqlxrepos.NewAuthRepository(db)
	approvals := sqlxrepos.NewApprovalRepository(db)

	acc, err := accounts.CreateAccount(ctx, auth.Account{
		ID:           uuid.New().String(),
		Email:        uuid.New().String() + "@example.com",
		FullName:     "Grace Hopper",
		PasswordHash: []byte("hash"),
		Metadata:     auth.Metadata{RequestedRole: string(profile.RoleTeacher)},
		CreatedAt:    now,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = db.Exec(`DELETE FROM account WHERE id = $1`, acc.ID)
	})

	pa, err := approvals.CreatePendingApproval(ctx, approval.PendingApproval{
		ID:            uuid.New().String(),
		UserID:        acc.ID,
		RequestedRole: profile.RoleTeacher,
		FullName:      acc.FullName,
		Email:         acc.Email,
		Status:        approval.StatusPending,
		CreatedAt:     now,
	})
	require.NoError(t, err)
	return pa
}

func TestApprovalRepository_ClaimPendingApproval(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	approvals := sqlxrepos.NewApprovalRepository(db)

	t.Run("claims once", func(t *testing.T) {
		pa := createPending(t, db)

		claimed, err := approvals.ClaimPendingApproval(ctx, pa.ID)
		require.NoError(t, err)
		assert.Equal(t, approval.StatusProcessing, claimed.Status)
		assert.Equal(t, pa.UserID, claimed.UserID)

		_, err = approvals.ClaimPendingApproval(ctx, pa.ID)
		assert.Equal(t, approval.ErrNotFound, errors.Cause(err))
	})

	t.Run("concurrent claims", func(t *testing.T) {
		pa := createPending(t, db)

		const n = 8
		var (
			wg   sync.WaitGroup
			errs = make([]error, n)
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = approvals.ClaimPendingApproval(ctx, pa.ID)
			}(i)
		}
		wg.Wait()

		var won int
		for _, err := range errs {
			if err == nil {
				won++
				continue
			}
			assert.Equal(t, approval.ErrNotFound, errors.Cause(err))
		}
		assert.Equal(t, 1, won)
	})

	t.Run("rolled back claim", func(t *testing.T) {
		pa := createPending(t, db)
		errBoom := errors.New("boom")

		err := database.NewTransactor(db).WithinTx(ctx, func(exec core.DBExecutor) error {
			if _, err := approvals.ClaimPendingApproval(ctx, pa.ID, exec); err != nil {
				return err
			}
			return errBoom
		})
		assert.Equal(t, errBoom, err)

		got, err := approvals.GetPendingApproval(ctx, pa.ID)
		require.NoError(t, err)
		assert.Equal(t, approval.StatusPending, got.Status)
	})

	t.Run("malformed id", func(t *testing.T) {
		_, err := approvals.ClaimPendingApproval(ctx, "not-a-uuid")
		assert.Equal(t, approval.ErrNotFound, errors.Cause(err))

		_, err = approvals.GetPendingApproval(ctx, "not-a-uuid")
		assert.Equal(t, approval.ErrNotFound, errors.Cause(err))
	})
}
