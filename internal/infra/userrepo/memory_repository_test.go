package userrepo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dtcinsights/dtc-insights/internal/domain/auth"
)

func TestMemoryRepositoryUsers(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	user, err := repo.Create(ctx, "ana@frota.com.br", "Ana", "hash")
	require.NoError(t, err)
	require.Equal(t, "Ana", user.Name)

	_, err = repo.Create(ctx, "ana@frota.com.br", "Ana", "hash")
	require.ErrorIs(t, err, auth.ErrEmailExists)

	_, err = repo.Create(ctx, "ANA@frota.com.br", "Ana", "hash")
	require.ErrorIs(t, err, auth.ErrEmailExists)

	found, ok, err := repo.GetByEmail(ctx, "ana@frota.com.br")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, user.ID, found.ID)

	_, ok, err = repo.GetByID(ctx, 99)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryRepositoryIdentityUpsertKeepsToken(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_, err := repo.UpsertIdentity(ctx, auth.Identity{UserID: 1, Provider: "google", ProviderSubject: "sub", RefreshToken: "sealed"})
	require.NoError(t, err)
	updated, err := repo.UpsertIdentity(ctx, auth.Identity{UserID: 1, Provider: "google", ProviderSubject: "sub", ProviderEmail: "ana@frota.com.br"})
	require.NoError(t, err)
	require.Equal(t, "sealed", updated.RefreshToken)

	byUser, ok, err := repo.GetIdentityByUser(ctx, 1, "google")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "ana@frota.com.br", byUser.ProviderEmail)

	_, err = repo.UpsertIdentity(ctx, auth.Identity{Provider: "google"})
	require.ErrorIs(t, err, auth.ErrIdentityInvalid)
}
