package services_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/Lakshya182005/CircuitCrafter/internal/services"
	"github.com/Lakshya182005/CircuitCrafter/internal/testutil"
	"github.com/Lakshya182005/CircuitCrafter/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileGoogleCreatesAccount(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewMemUserRepo()
	svc := services.NewUserService(repo)

	user, err := svc.ReconcileGoogle(ctx, services.GoogleProfile{
		Subject: "google-sub-1",
		Email:   "ada@example.com",
		Name:    "Ada Lovelace",
		Picture: "https://example.com/ada.png",
	})
	require.NoError(t, err)
	assert.Equal(t, "adalovelace", user.Username)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, "google-sub-1", user.GoogleID)
	assert.Equal(t, "https://example.com/ada.png", user.Avatar)
	assert.Empty(t, user.PasswordHash)
}

func TestReconcileGoogleUsernameCollision(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewMemUserRepo()
	svc := services.NewUserService(repo)

	_, err := repo.Create(ctx, types.User{
		Username:     "adalovelace",
		Email:        "other@example.com",
		PasswordHash: "x",
	})
	require.NoError(t, err)

	user, err := svc.ReconcileGoogle(ctx, services.GoogleProfile{
		Subject: "google-sub-2",
		Email:   "ada@example.com",
		Name:    "Ada Lovelace",
	})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^adalovelace\d{1,3}$`), user.Username)
}

func TestReconcileGoogleAttachesSubject(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewMemUserRepo()
	svc := services.NewUserService(repo)

	existing, err := repo.Create(ctx, types.User{
		Username:     "grace",
		Email:        "grace@example.com",
		PasswordHash: "hash",
	})
	require.NoError(t, err)

	user, err := svc.ReconcileGoogle(ctx, services.GoogleProfile{
		Subject: "google-sub-3",
		Email:   "grace@example.com",
		Name:    "Grace Hopper",
	})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, user.ID)
	assert.Equal(t, "google-sub-3", user.GoogleID)
	// The original password credential survives the link.
	assert.Equal(t, "hash", user.PasswordHash)

	// A second sign-in neither relinks nor duplicates.
	again, err := svc.ReconcileGoogle(ctx, services.GoogleProfile{
		Subject: "google-sub-3",
		Email:   "grace@example.com",
		Name:    "Grace Hopper",
	})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, again.ID)
}
