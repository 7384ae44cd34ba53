package service_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"marketplace_go/internal/domain"
	"marketplace_go/internal/service"
	"marketplace_go/internal/store/sqlite"
)

var flowDBCounter int64

// Flow tests run the deletion service against a real store to cover the
// full path: quota, audit trail, and monitoring in one transaction chain.
func newFlowFixture(t *testing.T) (*sql.DB, *domain.Repositories, *service.DeletionService) {
	t.Helper()

	n := atomic.AddInt64(&flowDBCounter, 1)
	db, err := sqlite.Open(fmt.Sprintf("file:flowdb%d?mode=memory&cache=shared", n))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqlite.Migrate(db))

	repos := sqlite.NewRepositories(db)
	svc := service.NewDeletionService(repos.Deletions, repos.Monitoring, zap.NewNop(), 3, 7, 3, 10)
	return db, repos, svc
}

func flowUser(t *testing.T, repos *domain.Repositories, name string) *domain.User {
	t.Helper()
	u := &domain.User{Username: name, HashedPassword: "x"}
	require.NoError(t, repos.Users.Create(context.Background(), u))
	return u
}

func flowService(t *testing.T, repos *domain.Repositories, ownerID int64) *domain.Service {
	t.Helper()
	s := &domain.Service{UserID: ownerID, Title: "listing", Price: 50}
	require.NoError(t, repos.Services.Create(context.Background(), s))
	return s
}

func TestSelfDeleteFlow(t *testing.T) {
	ctx := context.Background()
	_, repos, svc := newFlowFixture(t)
	owner := flowUser(t, repos, "alice")

	var ids []int64
	for i := 0; i < 4; i++ {
		ids = append(ids, flowService(t, repos, owner.ID).ID)
	}

	for i := 0; i < 3; i++ {
		res, err := svc.DeleteOwnService(ctx, owner.ID, ids[i], "closing this offering down")
		require.NoError(t, err)
		assert.Equal(t, 2-i, res.Remaining)
	}

	q := svc.Limits(ctx, owner.ID)
	assert.Equal(t, 0, q.Remaining)
	assert.Equal(t, 3, q.UsedToday)

	_, err := svc.DeleteOwnService(ctx, owner.ID, ids[3], "closing this offering down")
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)

	// The rejected listing is still there and still deletable by an admin.
	still, err := repos.Services.GetByID(ctx, ids[3])
	require.NoError(t, err)
	require.NotNil(t, still)

	admin := flowUser(t, repos, "admin")
	res, err := svc.AdminDeleteService(ctx, admin.ID, ids[3], "cleanup after user hit the limit")
	require.NoError(t, err)
	assert.Equal(t, owner.ID, res.Record.OwnerID)

	records, err := svc.AuditLog(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 4)
}

func TestForeignDeleteRejected(t *testing.T) {
	ctx := context.Background()
	_, repos, svc := newFlowFixture(t)
	owner := flowUser(t, repos, "alice")
	intruder := flowUser(t, repos, "bob")
	listing := flowService(t, repos, owner.ID)

	_, err := svc.DeleteOwnService(ctx, intruder.ID, listing.ID, "this is not my listing")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	still, err := repos.Services.GetByID(ctx, listing.ID)
	require.NoError(t, err)
	assert.NotNil(t, still)

	q := svc.Limits(ctx, intruder.ID)
	assert.Equal(t, 3, q.Remaining)
	assert.Equal(t, 0, q.UsedToday)
}

func TestAnomalyFlagFlow(t *testing.T) {
	ctx := context.Background()
	db, repos, svc := newFlowFixture(t)
	owner := flowUser(t, repos, "alice")
	listing := flowService(t, repos, owner.ID)

	// Three earlier deletions inside the trailing window.
	for i := 0; i < 3; i++ {
		_, err := db.Exec(`
			INSERT INTO deleted_services
				(service_id, service_title, service_owner_id, deleted_by, deleted_by_role, reason, deleted_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, 1000+i, "old listing", owner.ID, owner.ID, domain.RoleUser, "seed", time.Now().UTC().AddDate(0, 0, -2))
		require.NoError(t, err)
	}

	res, err := svc.DeleteOwnService(ctx, owner.ID, listing.ID, "closing this offering down")
	require.NoError(t, err)
	assert.Equal(t, 4, res.RecentCount)

	flag, err := repos.Monitoring.GetByUserID(ctx, owner.ID)
	require.NoError(t, err)
	require.NotNil(t, flag)
	assert.True(t, flag.IsFlagged)
	assert.Equal(t, 4, flag.DeleteCount7d)

	// The admin queue surfaces the flag with history attached.
	flagged, err := svc.FlaggedUsers(ctx)
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	assert.Equal(t, "alice", flagged[0].Flag.Username)
	assert.Len(t, flagged[0].DeleteHistory, 4)

	// Clearing the flag empties the queue.
	require.NoError(t, svc.ReviewFlaggedUser(ctx, owner.ID, "clear_flag", "explained by account cleanup"))
	flagged, err = svc.FlaggedUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, flagged)
}
