package orders

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
	"github.com/showlinehq/showline-backend/pkg/enums"
	"github.com/showlinehq/showline-backend/pkg/pagination"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  buyer_user_id TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  seller_user_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  show_id TEXT,
  batch_id TEXT,
  qty INTEGER NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  total_cents INTEGER NOT NULL,
  application_fee_cents INTEGER NOT NULL DEFAULT 0,
  currency TEXT NOT NULL DEFAULT 'usd',
  completion_code TEXT NOT NULL,
  stripe_payment_intent_id TEXT NOT NULL DEFAULT '',
  stripe_refund_id TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  paid_at DATETIME,
  fulfilled_at DATETIME,
  completed_at DATETIME,
  cancelled_at DATETIME,
  refunded_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(`DROP TABLE IF EXISTS orders`).Error)
	require.NoError(t, db.Exec(orders).Error)
	return db
}

func createTestOrder(t *testing.T, db *gorm.DB, buyerID, sellerID uuid.UUID, status enums.OrderStatus, created time.Time) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:             uuid.New(),
		BuyerUserID:    buyerID,
		SellerID:       sellerID,
		SellerUserID:   uuid.New(),
		ProductID:      uuid.New(),
		Qty:            1,
		UnitPriceCents: 2500,
		TotalCents:     2500,
		Currency:       "usd",
		CompletionCode: "123456",
		Status:         status,
		CreatedAt:      created,
		UpdatedAt:      created,
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func TestRepositoryTransition_singleWinner(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	order := createTestOrder(t, db, uuid.New(), uuid.New(), enums.OrderStatusPending, time.Now().UTC())

	updates := map[string]any{"status": enums.OrderStatusPaid}
	moved, err := repo.Transition(context.Background(), order.ID, []enums.OrderStatus{enums.OrderStatusPending}, updates)
	require.NoError(t, err)
	assert.True(t, moved)

	again, err := repo.Transition(context.Background(), order.ID, []enums.OrderStatus{enums.OrderStatusPending}, map[string]any{"status": enums.OrderStatusCancelled})
	require.NoError(t, err)
	assert.False(t, again, "second transition from the same prior status must lose")

	stored, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPaid, stored.Status)
}

func TestRepositoryMarkRefunded_idempotent(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	order := createTestOrder(t, db, uuid.New(), uuid.New(), enums.OrderStatusPaid, time.Now().UTC())
	now := time.Now().UTC()

	moved, err := repo.MarkRefunded(context.Background(), order.ID, "re_first", now)
	require.NoError(t, err)
	assert.True(t, moved)

	again, err := repo.MarkRefunded(context.Background(), order.ID, "re_second", now)
	require.NoError(t, err)
	assert.False(t, again, "refund id nullity guard must reject the second write")

	stored, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.StripeRefundID)
	assert.Equal(t, "re_first", *stored.StripeRefundID)
	assert.Equal(t, enums.OrderStatusRefunded, stored.Status)
}

func TestRepositoryListByBuyer_pagination(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	buyerID := uuid.New()
	now := time.Now().UTC()
	older := createTestOrder(t, db, buyerID, uuid.New(), enums.OrderStatusPaid, now.Add(-time.Hour))
	newer := createTestOrder(t, db, buyerID, uuid.New(), enums.OrderStatusPending, now)
	createTestOrder(t, db, uuid.New(), uuid.New(), enums.OrderStatusPending, now)

	first, next, err := repo.ListByBuyer(context.Background(), buyerID, pagination.Params{Limit: 1})
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, newer.ID, first[0].ID)
	assert.NotEmpty(t, next)

	second, last, err := repo.ListByBuyer(context.Background(), buyerID, pagination.Params{Limit: 1, Cursor: next})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, older.ID, second[0].ID)
	assert.Empty(t, last)
}

func TestRepositoryFindStaleBefore(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	now := time.Now().UTC()
	stale := createTestOrder(t, db, uuid.New(), uuid.New(), enums.OrderStatusPaid, now.AddDate(0, 0, -10))
	createTestOrder(t, db, uuid.New(), uuid.New(), enums.OrderStatusPaid, now)
	createTestOrder(t, db, uuid.New(), uuid.New(), enums.OrderStatusCompleted, now.AddDate(0, 0, -10))

	rows, err := repo.FindStaleBefore(context.Background(), now.AddDate(0, 0, -5))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, stale.ID, rows[0].ID)
}

func TestRepositoryFindByStripePaymentIntentID(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	order := createTestOrder(t, db, uuid.New(), uuid.New(), enums.OrderStatusPending, time.Now().UTC())
	require.NoError(t, repo.SetStripePaymentIntentID(context.Background(), order.ID, "pi_123"))

	found, err := repo.FindByStripePaymentIntentID(context.Background(), "pi_123")
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)

	_, err = repo.FindByStripePaymentIntentID(context.Background(), "pi_missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
