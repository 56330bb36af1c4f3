package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-bot/internal/repository"
)

func TestUserService_EnsureUser(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(repository.NewMemoryUserRepository(), zap.NewNop())

	created, err := svc.EnsureUser(ctx, Sender{ExternalID: "U1", DisplayName: "Alice", Username: "alice"})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "U1", created.ExternalID)

	// Second contact resolves to the same identity.
	again, err := svc.EnsureUser(ctx, Sender{ExternalID: "U1", DisplayName: "Alice Renamed"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
	assert.Equal(t, "Alice", again.DisplayName, "profile is not rewritten on lookup")

	other, err := svc.EnsureUser(ctx, Sender{ExternalID: "U2"})
	require.NoError(t, err)
	assert.NotEqual(t, created.ID, other.ID)
}

func TestUserService_FindByExternalID(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(repository.NewMemoryUserRepository(), zap.NewNop())

	user, err := svc.FindByExternalID(ctx, "U1")
	require.NoError(t, err)
	assert.Nil(t, user)

	created, err := svc.EnsureUser(ctx, Sender{ExternalID: "U1"})
	require.NoError(t, err)

	user, err = svc.FindByExternalID(ctx, "U1")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, created.ID, user.ID)
}
