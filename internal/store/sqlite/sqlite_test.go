package sqlite_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"marketplace_go/internal/domain"
	"marketplace_go/internal/store/sqlite"
)

var testDBCounter int64

// newTestRepos opens a fresh in-memory database. A single pooled
// connection keeps every statement on the same memory store and
// serializes concurrent access in tests.
func newTestRepos(t *testing.T) (*sql.DB, *domain.Repositories) {
	t.Helper()

	n := atomic.AddInt64(&testDBCounter, 1)
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", n)
	db, err := sqlite.Open(dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, sqlite.Migrate(db))
	return db, sqlite.NewRepositories(db)
}

func mustUser(t *testing.T, repos *domain.Repositories, username string) *domain.User {
	t.Helper()
	u := &domain.User{Username: username, HashedPassword: "x"}
	require.NoError(t, repos.Users.Create(context.Background(), u))
	return u
}

func mustService(t *testing.T, repos *domain.Repositories, ownerID int64, title string) *domain.Service {
	t.Helper()
	s := &domain.Service{UserID: ownerID, Title: title, Price: 100}
	require.NoError(t, repos.Services.Create(context.Background(), s))
	return s
}
