package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace_go/internal/domain"
)

func TestConversationCreateIdempotent(t *testing.T) {
	ctx := context.Background()
	_, repos := newTestRepos(t)

	client := mustUser(t, repos, "alice")
	provider := mustUser(t, repos, "bob")
	svc := mustService(t, repos, provider.ID, "logo design")

	first := &domain.Conversation{ServiceID: svc.ID, ClientID: client.ID, ProviderID: provider.ID}
	created, err := repos.Conversations.Create(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, first.ID)

	// Same tuple again loses silently.
	dup := &domain.Conversation{ServiceID: svc.ID, ClientID: client.ID, ProviderID: provider.ID}
	created, err = repos.Conversations.Create(ctx, dup)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestConversationFindEitherOrientation(t *testing.T) {
	ctx := context.Background()
	_, repos := newTestRepos(t)

	client := mustUser(t, repos, "alice")
	provider := mustUser(t, repos, "bob")
	svc := mustService(t, repos, provider.ID, "logo design")

	conv := &domain.Conversation{ServiceID: svc.ID, ClientID: client.ID, ProviderID: provider.ID}
	_, err := repos.Conversations.Create(ctx, conv)
	require.NoError(t, err)

	found, err := repos.Conversations.FindForService(ctx, svc.ID, client.ID, provider.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, conv.ID, found.ID)

	flipped, err := repos.Conversations.FindForService(ctx, svc.ID, provider.ID, client.ID)
	require.NoError(t, err)
	require.NotNil(t, flipped)
	assert.Equal(t, conv.ID, flipped.ID)

	none, err := repos.Conversations.FindForService(ctx, svc.ID+1, client.ID, provider.ID)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestConversationListForUser(t *testing.T) {
	ctx := context.Background()
	_, repos := newTestRepos(t)
	now := time.Now().UTC()

	client := mustUser(t, repos, "alice")
	provider := mustUser(t, repos, "bob")
	svc := mustService(t, repos, provider.ID, "logo design")

	conv := &domain.Conversation{ServiceID: svc.ID, ClientID: client.ID, ProviderID: provider.ID}
	_, err := repos.Conversations.Create(ctx, conv)
	require.NoError(t, err)

	// Each side sees the other's name.
	forClient, err := repos.Conversations.ListForUser(ctx, client.ID)
	require.NoError(t, err)
	require.Len(t, forClient, 1)
	assert.Equal(t, "bob", forClient[0].OtherUserName)
	assert.Equal(t, "logo design", forClient[0].ServiceTitle)

	forProvider, err := repos.Conversations.ListForUser(ctx, provider.ID)
	require.NoError(t, err)
	require.Len(t, forProvider, 1)
	assert.Equal(t, "alice", forProvider[0].OtherUserName)

	// Thread survives the listing's deletion; the title degrades to empty.
	req := domain.DeleteServiceRequest{
		ServiceID:    svc.ID,
		ActorID:      provider.ID,
		ActorRole:    domain.RoleUser,
		Reason:       "no longer offering this",
		Now:          now,
		Day:          now.Format("2006-01-02"),
		WindowStart:  now.AddDate(0, 0, -7),
		EnforceQuota: true,
		RequireOwner: true,
		DailyLimit:   3,
	}
	_, err = repos.Deletions.DeleteService(ctx, req)
	require.NoError(t, err)

	afterDelete, err := repos.Conversations.ListForUser(ctx, client.ID)
	require.NoError(t, err)
	require.Len(t, afterDelete, 1)
	assert.Equal(t, "", afterDelete[0].ServiceTitle)
}
