package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repolens/gatekeeper/internal/domain/user"
)

func TestUserRepositoryUpsertKeepsProfileAndLink(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t), testLogger())
	ctx := context.Background()

	u, err := user.NewUser("u1", "ada@example.com", "Ada")
	require.NoError(t, err)
	stored, err := repo.Upsert(ctx, u)
	require.NoError(t, err)
	require.NotZero(t, stored.ID())

	require.NoError(t, stored.LinkBillingCustomer("cus_1"))
	require.NoError(t, repo.Update(ctx, stored))

	// A later session without a name must not blank the stored one.
	again, err := user.NewUser("u1", "ada@new.example.com", "")
	require.NoError(t, err)
	stored2, err := repo.Upsert(ctx, again)
	require.NoError(t, err)

	assert.Equal(t, stored.ID(), stored2.ID())
	assert.Equal(t, "Ada", stored2.Name())
	assert.Equal(t, "ada@new.example.com", stored2.Email())
	assert.Equal(t, "cus_1", stored2.BillingCustomerID())

	byCustomer, err := repo.GetByBillingCustomerID(ctx, "cus_1")
	require.NoError(t, err)
	assert.Equal(t, "u1", byCustomer.Subject())

	_, err = repo.GetByBillingCustomerID(ctx, "cus_missing")
	assert.ErrorIs(t, err, user.ErrUserNotFound)
	_, err = repo.GetBySubject(ctx, "nobody")
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}
