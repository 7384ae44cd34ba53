package sqlite_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace_go/internal/domain"
)

func seedConversation(t *testing.T, repos *domain.Repositories) (client, provider *domain.User, conv *domain.Conversation) {
	t.Helper()
	ctx := context.Background()

	client = mustUser(t, repos, "alice")
	provider = mustUser(t, repos, "bob")
	svc := mustService(t, repos, provider.ID, "logo design")

	conv = &domain.Conversation{ServiceID: svc.ID, ClientID: client.ID, ProviderID: provider.ID}
	_, err := repos.Conversations.Create(ctx, conv)
	require.NoError(t, err)
	return client, provider, conv
}

func TestMessageOrdering(t *testing.T) {
	ctx := context.Background()
	_, repos := newTestRepos(t)
	client, provider, conv := seedConversation(t, repos)

	senders := []int64{client.ID, provider.ID, client.ID}
	for i, sender := range senders {
		msg := &domain.Message{ConversationID: conv.ID, SenderID: sender, Body: fmt.Sprintf("msg %d", i)}
		require.NoError(t, repos.Messages.Create(ctx, msg))
	}

	msgs, err := repos.Messages.ListForConversation(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	for i, m := range msgs {
		assert.Equal(t, fmt.Sprintf("msg %d", i), m.Body)
	}
	assert.Equal(t, "alice", msgs[0].SenderName)
	assert.Equal(t, "bob", msgs[1].SenderName)
}

func TestMarkAllReadAndUnreadCount(t *testing.T) {
	ctx := context.Background()
	_, repos := newTestRepos(t)
	client, provider, conv := seedConversation(t, repos)

	for i := 0; i < 3; i++ {
		msg := &domain.Message{ConversationID: conv.ID, SenderID: provider.ID, Body: "hi"}
		require.NoError(t, repos.Messages.Create(ctx, msg))
	}
	own := &domain.Message{ConversationID: conv.ID, SenderID: client.ID, Body: "reply"}
	require.NoError(t, repos.Messages.Create(ctx, own))

	// Only the other side's messages count as unread.
	count, err := repos.Messages.CountUnreadForUser(ctx, client.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	count, err = repos.Messages.CountUnreadForUser(ctx, provider.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, repos.Messages.MarkAllRead(ctx, conv.ID, client.ID))

	count, err = repos.Messages.CountUnreadForUser(ctx, client.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// The reader's own message stays unread for the other side.
	count, err = repos.Messages.CountUnreadForUser(ctx, provider.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Idempotent.
	require.NoError(t, repos.Messages.MarkAllRead(ctx, conv.ID, client.ID))
	count, err = repos.Messages.CountUnreadForUser(ctx, client.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
