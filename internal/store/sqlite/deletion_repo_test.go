package sqlite_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace_go/internal/domain"
)

func deleteReq(serviceID, actorID int64, now time.Time) domain.DeleteServiceRequest {
	return domain.DeleteServiceRequest{
		ServiceID:    serviceID,
		ActorID:      actorID,
		ActorRole:    domain.RoleUser,
		Reason:       "no longer offering this",
		Now:          now,
		Day:          now.Format("2006-01-02"),
		WindowStart:  now.AddDate(0, 0, -7),
		EnforceQuota: true,
		RequireOwner: true,
		DailyLimit:   3,
	}
}

func TestDeleteServiceQuota(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("ExhaustionAndRollback", func(t *testing.T) {
		_, repos := newTestRepos(t)
		owner := mustUser(t, repos, "alice")

		var ids []int64
		for i := 0; i < 4; i++ {
			ids = append(ids, mustService(t, repos, owner.ID, fmt.Sprintf("svc %d", i)).ID)
		}

		for i := 0; i < 3; i++ {
			res, err := repos.Deletions.DeleteService(ctx, deleteReq(ids[i], owner.ID, now))
			require.NoError(t, err)
			assert.Equal(t, 2-i, res.Remaining)
		}

		// Fourth delete of the day is rejected and leaves the listing intact.
		_, err := repos.Deletions.DeleteService(ctx, deleteReq(ids[3], owner.ID, now))
		assert.ErrorIs(t, err, domain.ErrQuotaExceeded)

		svc, err := repos.Services.GetByID(ctx, ids[3])
		require.NoError(t, err)
		assert.NotNil(t, svc)

		records, err := repos.Deletions.ListRecords(ctx)
		require.NoError(t, err)
		assert.Len(t, records, 3)
	})

	t.Run("NewDayResetsCount", func(t *testing.T) {
		db, repos := newTestRepos(t)
		owner := mustUser(t, repos, "alice")
		svc := mustService(t, repos, owner.ID, "svc")

		yesterday := now.AddDate(0, 0, -1).Format("2006-01-02")
		_, err := db.Exec(`INSERT INTO user_delete_limits (user_id, daily_delete_count, last_delete_date) VALUES (?, 3, ?)`,
			owner.ID, yesterday)
		require.NoError(t, err)

		res, err := repos.Deletions.DeleteService(ctx, deleteReq(svc.ID, owner.ID, now))
		require.NoError(t, err)
		assert.Equal(t, 2, res.Remaining)

		q, err := repos.Deletions.GetQuota(ctx, owner.ID, now.Format("2006-01-02"), 3)
		require.NoError(t, err)
		assert.Equal(t, 1, q.UsedToday)
	})

	t.Run("NotOwnedBurnsNothing", func(t *testing.T) {
		_, repos := newTestRepos(t)
		owner := mustUser(t, repos, "alice")
		other := mustUser(t, repos, "bob")
		svc := mustService(t, repos, owner.ID, "svc")

		_, err := repos.Deletions.DeleteService(ctx, deleteReq(svc.ID, other.ID, now))
		assert.ErrorIs(t, err, domain.ErrForbidden)

		q, err := repos.Deletions.GetQuota(ctx, other.ID, now.Format("2006-01-02"), 3)
		require.NoError(t, err)
		assert.Equal(t, 3, q.Remaining)
		assert.Equal(t, 0, q.UsedToday)

		still, err := repos.Services.GetByID(ctx, svc.ID)
		require.NoError(t, err)
		assert.NotNil(t, still)
	})

	t.Run("MissingServiceBurnsNothing", func(t *testing.T) {
		_, repos := newTestRepos(t)
		owner := mustUser(t, repos, "alice")

		_, err := repos.Deletions.DeleteService(ctx, deleteReq(999, owner.ID, now))
		assert.ErrorIs(t, err, domain.ErrNotFound)

		q, err := repos.Deletions.GetQuota(ctx, owner.ID, now.Format("2006-01-02"), 3)
		require.NoError(t, err)
		assert.Equal(t, 3, q.Remaining)
	})

	t.Run("UnenforcedSkipsQuota", func(t *testing.T) {
		_, repos := newTestRepos(t)
		admin := mustUser(t, repos, "admin")
		owner := mustUser(t, repos, "alice")
		svc := mustService(t, repos, owner.ID, "svc")

		req := deleteReq(svc.ID, admin.ID, now)
		req.ActorRole = domain.RoleAdmin
		req.EnforceQuota = false
		req.RequireOwner = false

		res, err := repos.Deletions.DeleteService(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, owner.ID, res.Record.OwnerID)
		assert.Equal(t, admin.ID, res.Record.DeletedBy)
		assert.Equal(t, domain.RoleAdmin, res.Record.DeletedByRole)

		// Neither actor nor owner consumed a slot.
		for _, uid := range []int64{admin.ID, owner.ID} {
			q, err := repos.Deletions.GetQuota(ctx, uid, now.Format("2006-01-02"), 3)
			require.NoError(t, err)
			assert.Equal(t, 3, q.Remaining)
		}
	})

	t.Run("ConcurrentDeletesRespectLimit", func(t *testing.T) {
		_, repos := newTestRepos(t)
		owner := mustUser(t, repos, "alice")

		var ids []int64
		for i := 0; i < 5; i++ {
			ids = append(ids, mustService(t, repos, owner.ID, fmt.Sprintf("svc %d", i)).ID)
		}

		var wg sync.WaitGroup
		errs := make([]error, len(ids))
		for i, id := range ids {
			wg.Add(1)
			go func(i int, id int64) {
				defer wg.Done()
				_, errs[i] = repos.Deletions.DeleteService(ctx, deleteReq(id, owner.ID, now))
			}(i, id)
		}
		wg.Wait()

		var ok, rejected int
		for _, err := range errs {
			switch {
			case err == nil:
				ok++
			case err == domain.ErrQuotaExceeded:
				rejected++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, 3, ok)
		assert.Equal(t, 2, rejected)
	})
}

func TestDeleteServiceAuditTrail(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	_, repos := newTestRepos(t)
	owner := mustUser(t, repos, "alice")
	svc := mustService(t, repos, owner.ID, "logo design")

	res, err := repos.Deletions.DeleteService(ctx, deleteReq(svc.ID, owner.ID, now))
	require.NoError(t, err)

	// The audit row preserves the title even though the listing is gone.
	assert.Equal(t, "logo design", res.Record.ServiceTitle)
	assert.Equal(t, 1, res.RecentCount)

	gone, err := repos.Services.GetByID(ctx, svc.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	records, err := repos.Deletions.ListRecordsForOwner(ctx, owner.ID, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, svc.ID, records[0].ServiceID)
	assert.Equal(t, domain.RoleUser, records[0].DeletedByRole)
}

func TestDeleteServiceRecentCount(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	_, repos := newTestRepos(t)
	owner := mustUser(t, repos, "alice")

	var lastRecent int
	for i := 0; i < 4; i++ {
		svc := mustService(t, repos, owner.ID, fmt.Sprintf("svc %d", i))
		req := deleteReq(svc.ID, owner.ID, now)
		req.EnforceQuota = false
		res, err := repos.Deletions.DeleteService(ctx, req)
		require.NoError(t, err)
		lastRecent = res.RecentCount
	}
	// The count includes the deletion just recorded.
	assert.Equal(t, 4, lastRecent)
}

func TestGetQuotaDefaults(t *testing.T) {
	ctx := context.Background()

	_, repos := newTestRepos(t)
	user := mustUser(t, repos, "alice")

	q, err := repos.Deletions.GetQuota(ctx, user.ID, "2026-08-31", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, q.DailyLimit)
	assert.Equal(t, 3, q.Remaining)
	assert.Equal(t, 0, q.UsedToday)
	assert.Nil(t, q.LastDeleteDate)
}
