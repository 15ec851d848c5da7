package refunds

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/showlinehq/showline-backend/internal/orders"
	"github.com/showlinehq/showline-backend/internal/sellers"
	"github.com/showlinehq/showline-backend/pkg/db/models"
	"github.com/showlinehq/showline-backend/pkg/enums"
	pkgerrors "github.com/showlinehq/showline-backend/pkg/errors"
	"github.com/showlinehq/showline-backend/pkg/logger"
)

type fakeRefundOrdersRepo struct {
	orders.Repository

	orders map[uuid.UUID]*models.Order
	moved  bool
}

func newFakeRefundOrdersRepo() *fakeRefundOrdersRepo {
	return &fakeRefundOrdersRepo{orders: map[uuid.UUID]*models.Order{}, moved: true}
}

func (f *fakeRefundOrdersRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (f *fakeRefundOrdersRepo) MarkRefunded(_ context.Context, orderID uuid.UUID, refundID string, now time.Time) (bool, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return false, nil
	}
	if !f.moved {
		// a concurrent caller already wrote its refund id
		winner := "re_winner"
		order.Status = enums.OrderStatusRefunded
		order.StripeRefundID = &winner
		return false, nil
	}
	order.Status = enums.OrderStatusRefunded
	order.StripeRefundID = &refundID
	order.RefundedAt = &now
	return true, nil
}

type fakeRefundSellersRepo struct {
	sellers.Repository

	byID    map[uuid.UUID]*models.Seller
	byOwner map[uuid.UUID]*models.Seller
}

func newFakeRefundSellersRepo() *fakeRefundSellersRepo {
	return &fakeRefundSellersRepo{
		byID:    map[uuid.UUID]*models.Seller{},
		byOwner: map[uuid.UUID]*models.Seller{},
	}
}

func (f *fakeRefundSellersRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Seller, error) {
	seller, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return seller, nil
}

func (f *fakeRefundSellersRepo) FindByOwnerUserID(_ context.Context, ownerUserID uuid.UUID) (*models.Seller, error) {
	seller, ok := f.byOwner[ownerUserID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return seller, nil
}

type fakeRefundRecomputer struct {
	batchIDs []uuid.UUID
}

func (f *fakeRefundRecomputer) Recompute(_ context.Context, batchID uuid.UUID) error {
	f.batchIDs = append(f.batchIDs, batchID)
	return nil
}

type fakeRefundClient struct {
	err    error
	params *stripe.RefundParams
	calls  int
}

func (f *fakeRefundClient) CreateRefund(_ context.Context, params *stripe.RefundParams) (*stripe.Refund, error) {
	f.calls++
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.Refund{ID: "re_test"}, nil
}

type refundFixture struct {
	svc        Service
	orders     *fakeRefundOrdersRepo
	sellers    *fakeRefundSellersRepo
	recomputer *fakeRefundRecomputer
	stripe     *fakeRefundClient
	order      *models.Order
	seller     *models.Seller
}

func newRefundFixture(t *testing.T) *refundFixture {
	t.Helper()

	accountID := "acct_refund"
	seller := &models.Seller{
		ID:              uuid.New(),
		OwnerUserID:     uuid.New(),
		StripeAccountID: &accountID,
		StripeConnected: true,
	}
	batchID := uuid.New()
	order := &models.Order{
		ID:                    uuid.New(),
		BuyerUserID:           uuid.New(),
		SellerID:              seller.ID,
		SellerUserID:          seller.OwnerUserID,
		ProductID:             uuid.New(),
		BatchID:               &batchID,
		Qty:                   1,
		TotalCents:            2500,
		Status:                enums.OrderStatusPaid,
		StripePaymentIntentID: "pi_refund",
	}

	ordersRepo := newFakeRefundOrdersRepo()
	ordersRepo.orders[order.ID] = order
	sellersRepo := newFakeRefundSellersRepo()
	sellersRepo.byID[seller.ID] = seller
	sellersRepo.byOwner[seller.OwnerUserID] = seller
	recomputer := &fakeRefundRecomputer{}
	stripeClient := &fakeRefundClient{}

	svc, err := NewService(ServiceParams{
		Orders:  ordersRepo,
		Sellers: sellersRepo,
		Batches: recomputer,
		Stripe:  stripeClient,
		Logger:  logger.New(logger.Options{ServiceName: "refunds-test"}),
	})
	require.NoError(t, err)

	return &refundFixture{
		svc:        svc,
		orders:     ordersRepo,
		sellers:    sellersRepo,
		recomputer: recomputer,
		stripe:     stripeClient,
		order:      order,
		seller:     seller,
	}
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	domainErr := pkgerrors.As(err)
	require.NotNil(t, domainErr, "expected a domain error, got %v", err)
	assert.Equal(t, code, domainErr.Code())
}

func TestServiceRefund_happyPath(t *testing.T) {
	f := newRefundFixture(t)

	result, err := f.svc.Refund(context.Background(), f.seller.ID, f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, "re_test", result.RefundID)
	assert.Equal(t, f.order.ID, result.OrderID)

	assert.Equal(t, enums.OrderStatusRefunded, f.order.Status)
	require.NotNil(t, f.order.StripeRefundID)
	assert.Equal(t, []uuid.UUID{*f.order.BatchID}, f.recomputer.batchIDs)

	params := f.stripe.params
	require.NotNil(t, params)
	assert.Equal(t, "pi_refund", *params.PaymentIntent)
	assert.Equal(t, "acct_refund", *params.StripeAccount)
	assert.Equal(t, "refund_order_"+f.order.ID.String(), *params.IdempotencyKey)
}

func TestServiceRefund_idempotentShortCircuit(t *testing.T) {
	f := newRefundFixture(t)
	existing := "re_existing"
	f.order.StripeRefundID = &existing
	f.order.Status = enums.OrderStatusRefunded

	result, err := f.svc.Refund(context.Background(), f.seller.ID, f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, "re_existing", result.RefundID)
	assert.Zero(t, f.stripe.calls, "retried refund must not reach the processor")
}

func TestServiceRefund_concurrentWinnerIsAuthoritative(t *testing.T) {
	f := newRefundFixture(t)
	f.orders.moved = false

	result, err := f.svc.Refund(context.Background(), f.seller.ID, f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, "re_winner", result.RefundID, "the stored id wins over this call's refund")
	assert.Equal(t, 1, f.stripe.calls)
}

func TestServiceRefund_stateGuards(t *testing.T) {
	t.Run("pending order cannot be refunded", func(t *testing.T) {
		f := newRefundFixture(t)
		f.order.Status = enums.OrderStatusPending
		_, err := f.svc.Refund(context.Background(), f.seller.ID, f.order.ID)
		requireCode(t, err, pkgerrors.CodeStateConflict)
	})

	t.Run("missing authorization conflicts", func(t *testing.T) {
		f := newRefundFixture(t)
		f.order.StripePaymentIntentID = ""
		_, err := f.svc.Refund(context.Background(), f.seller.ID, f.order.ID)
		requireCode(t, err, pkgerrors.CodeStateConflict)
	})

	t.Run("foreign seller forbidden", func(t *testing.T) {
		f := newRefundFixture(t)
		_, err := f.svc.Refund(context.Background(), uuid.New(), f.order.ID)
		requireCode(t, err, pkgerrors.CodeForbidden)
	})

	t.Run("unknown order not found", func(t *testing.T) {
		f := newRefundFixture(t)
		_, err := f.svc.Refund(context.Background(), f.seller.ID, uuid.New())
		requireCode(t, err, pkgerrors.CodeNotFound)
	})
}

func TestServiceRefund_accountLookupFallsBackToOwner(t *testing.T) {
	f := newRefundFixture(t)
	f.seller.StripeAccountID = nil
	legacyAccount := "acct_legacy"
	f.sellers.byOwner[f.order.SellerUserID] = &models.Seller{
		ID:              uuid.New(),
		OwnerUserID:     f.order.SellerUserID,
		StripeAccountID: &legacyAccount,
	}

	result, err := f.svc.Refund(context.Background(), f.seller.ID, f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, "re_test", result.RefundID)
	assert.Equal(t, "acct_legacy", *f.stripe.params.StripeAccount)
}

func TestServiceRefund_missingAccountConflicts(t *testing.T) {
	f := newRefundFixture(t)
	f.seller.StripeAccountID = nil
	delete(f.sellers.byOwner, f.order.SellerUserID)

	_, err := f.svc.Refund(context.Background(), f.seller.ID, f.order.ID)
	requireCode(t, err, pkgerrors.CodeConflict)
	assert.Zero(t, f.stripe.calls)
}

func TestServiceRefund_stripeFailure(t *testing.T) {
	f := newRefundFixture(t)
	f.stripe.err = errors.New("processor down")

	_, err := f.svc.Refund(context.Background(), f.seller.ID, f.order.ID)
	requireCode(t, err, pkgerrors.CodeDependency)
	assert.Nil(t, f.order.StripeRefundID)
}
