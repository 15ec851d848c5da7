package sellers

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/showlinehq/showline-backend/pkg/db/models"
)

func setupSellersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	sellers := `
CREATE TABLE IF NOT EXISTS sellers (
  id TEXT PRIMARY KEY,
  owner_user_id TEXT NOT NULL,
  name TEXT NOT NULL,
  stripe_account_id TEXT,
  stripe_connected INTEGER NOT NULL DEFAULT 0,
  stripe_connected_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(`DROP TABLE IF EXISTS sellers`).Error)
	require.NoError(t, db.Exec(sellers).Error)
	return db
}

func TestRepositoryLookups(t *testing.T) {
	db := setupSellersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	accountID := "acct_repo"
	seller := &models.Seller{
		ID:              uuid.New(),
		OwnerUserID:     uuid.New(),
		Name:            "Repo Shop",
		StripeAccountID: &accountID,
	}
	require.NoError(t, db.Create(seller).Error)

	byID, err := repo.FindByID(ctx, seller.ID)
	require.NoError(t, err)
	assert.Equal(t, seller.Name, byID.Name)

	byOwner, err := repo.FindByOwnerUserID(ctx, seller.OwnerUserID)
	require.NoError(t, err)
	assert.Equal(t, seller.ID, byOwner.ID)

	byAccount, err := repo.FindByStripeAccountID(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, seller.ID, byAccount.ID)

	_, err = repo.FindByStripeAccountID(ctx, "acct_missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryUpdateConnection(t *testing.T) {
	db := setupSellersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seller := &models.Seller{ID: uuid.New(), OwnerUserID: uuid.New(), Name: "Connect Shop"}
	require.NoError(t, db.Create(seller).Error)

	now := time.Now().UTC()
	require.NoError(t, repo.UpdateConnection(ctx, seller.ID, true, &now))

	stored, err := repo.FindByID(ctx, seller.ID)
	require.NoError(t, err)
	assert.True(t, stored.StripeConnected)
	require.NotNil(t, stored.StripeConnectedAt)

	require.NoError(t, repo.UpdateConnection(ctx, seller.ID, false, nil))
	stored, err = repo.FindByID(ctx, seller.ID)
	require.NoError(t, err)
	assert.False(t, stored.StripeConnected)
	assert.Nil(t, stored.StripeConnectedAt)
}
