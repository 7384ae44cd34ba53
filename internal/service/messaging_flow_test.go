package service_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"marketplace_go/internal/domain"
	"marketplace_go/internal/service"
	"marketplace_go/internal/store/sqlite"
)

var msgFlowDBCounter int64

func newMessagingFixture(t *testing.T) (*domain.Repositories, *service.MessagingService) {
	t.Helper()

	n := atomic.AddInt64(&msgFlowDBCounter, 1)
	db, err := sqlite.Open(fmt.Sprintf("file:msgflowdb%d?mode=memory&cache=shared", n))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqlite.Migrate(db))

	repos := sqlite.NewRepositories(db)
	return repos, service.NewMessagingService(repos.Conversations, repos.Messages, repos.Services, repos.Users, zap.NewNop())
}

// Full client/provider round-trip over the real store: start thread, chat
// in both directions, track unread counts, mark read.
func TestChatRoundTrip(t *testing.T) {
	ctx := context.Background()
	repos, svc := newMessagingFixture(t)

	client := flowUser(t, repos, "alice")
	provider := flowUser(t, repos, "bob")
	listing := flowService(t, repos, provider.ID)

	conv, created, err := svc.StartConversation(ctx, client.ID, listing.ID, provider.ID)
	require.NoError(t, err)
	assert.True(t, created)

	// Repeated start reuses the same thread.
	again, created, err := svc.StartConversation(ctx, client.ID, listing.ID, provider.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, conv.ID, again.ID)

	// Provider starting from their side lands on the same thread too.
	fromProvider, created, err := svc.StartConversation(ctx, provider.ID, listing.ID, client.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, conv.ID, fromProvider.ID)

	_, err = svc.SendMessage(ctx, client.ID, conv.ID, "hi, is this still available?")
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, client.ID, conv.ID, "and what is the turnaround?")
	require.NoError(t, err)

	count, err := svc.UnreadCount(ctx, provider.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// A third user cannot touch the thread.
	stranger := flowUser(t, repos, "mallory")
	_, err = svc.SendMessage(ctx, stranger.ID, conv.ID, "let me in")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = svc.ListMessages(ctx, stranger.ID, conv.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// Reading the thread marks it read for the reader.
	msgs, err := svc.ListMessages(ctx, provider.ID, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi, is this still available?", msgs[0].Body)
	assert.Equal(t, "alice", msgs[0].SenderName)

	count, err = svc.UnreadCount(ctx, provider.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	_, err = svc.SendMessage(ctx, provider.ID, conv.ID, "yes, three days")
	require.NoError(t, err)

	count, err = svc.UnreadCount(ctx, client.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Both sides see the thread in their lists.
	threads, err := svc.ListConversations(ctx, client.ID)
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, "bob", threads[0].OtherUserName)
}
