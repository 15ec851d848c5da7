package orders

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/showlinehq/showline-backend/pkg/db/models"
	"github.com/showlinehq/showline-backend/pkg/enums"
	pkgerrors "github.com/showlinehq/showline-backend/pkg/errors"
	"github.com/showlinehq/showline-backend/pkg/logger"
	"github.com/showlinehq/showline-backend/pkg/pagination"
)

type transitionCall struct {
	orderID uuid.UUID
	from    []enums.OrderStatus
	updates map[string]any
}

type fakeOrdersRepo struct {
	Repository

	orders      map[uuid.UUID]*models.Order
	stale       []models.Order
	transitions []transitionCall
	moved       bool
	err         error
}

func newFakeOrdersRepo() *fakeOrdersRepo {
	return &fakeOrdersRepo{orders: map[uuid.UUID]*models.Order{}, moved: true}
}

func (f *fakeOrdersRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (f *fakeOrdersRepo) Transition(_ context.Context, orderID uuid.UUID, from []enums.OrderStatus, updates map[string]any) (bool, error) {
	f.transitions = append(f.transitions, transitionCall{orderID: orderID, from: from, updates: updates})
	return f.moved, f.err
}

func (f *fakeOrdersRepo) FindStaleBefore(_ context.Context, _ time.Time) ([]models.Order, error) {
	return f.stale, nil
}

type fakeRecomputer struct {
	batchIDs []uuid.UUID
	err      error
}

func (f *fakeRecomputer) Recompute(_ context.Context, batchID uuid.UUID) error {
	f.batchIDs = append(f.batchIDs, batchID)
	return f.err
}

func newTestService(t *testing.T, repo *fakeOrdersRepo) (Service, *fakeRecomputer) {
	t.Helper()
	recomputer := &fakeRecomputer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(ServiceParams{Repo: repo, Batches: recomputer, Logger: logg})
	require.NoError(t, err)
	return svc, recomputer
}

func TestServiceGet_foreignOrderNotFound(t *testing.T) {
	repo := newFakeOrdersRepo()
	order := &models.Order{ID: uuid.New(), BuyerUserID: uuid.New(), Status: enums.OrderStatusPaid}
	repo.orders[order.ID] = order
	svc, _ := newTestService(t, repo)

	_, err := svc.Get(context.Background(), uuid.New(), order.ID)
	require.Error(t, err)
	domainErr := pkgerrors.As(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, pkgerrors.CodeNotFound, domainErr.Code())

	found, err := svc.Get(context.Background(), order.BuyerUserID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)
}

func TestServiceMarkPaid_transitionShape(t *testing.T) {
	repo := newFakeOrdersRepo()
	svc, _ := newTestService(t, repo)

	orderID := uuid.New()
	moved, err := svc.MarkPaid(context.Background(), orderID)
	require.NoError(t, err)
	assert.True(t, moved)

	require.Len(t, repo.transitions, 1)
	call := repo.transitions[0]
	assert.Equal(t, orderID, call.orderID)
	assert.Equal(t, []enums.OrderStatus{enums.OrderStatusPending}, call.from)
	assert.Equal(t, enums.OrderStatusPaid, call.updates["status"])
	assert.NotNil(t, call.updates["paid_at"])
}

func TestServiceConfirmPickup(t *testing.T) {
	sellerID := uuid.New()
	batchID := uuid.New()
	order := &models.Order{
		ID:       uuid.New(),
		SellerID: sellerID,
		BatchID:  &batchID,
		Status:   enums.OrderStatusPaid,
	}

	t.Run("happy path recomputes batch", func(t *testing.T) {
		repo := newFakeOrdersRepo()
		repo.orders[order.ID] = order
		svc, recomputer := newTestService(t, repo)

		require.NoError(t, svc.ConfirmPickup(context.Background(), sellerID, order.ID))
		require.Len(t, repo.transitions, 1)
		assert.Equal(t, []enums.OrderStatus{enums.OrderStatusPaid}, repo.transitions[0].from)
		assert.Equal(t, []uuid.UUID{batchID}, recomputer.batchIDs)
	})

	t.Run("foreign seller forbidden", func(t *testing.T) {
		repo := newFakeOrdersRepo()
		repo.orders[order.ID] = order
		svc, _ := newTestService(t, repo)

		err := svc.ConfirmPickup(context.Background(), uuid.New(), order.ID)
		domainErr := pkgerrors.As(err)
		require.NotNil(t, domainErr)
		assert.Equal(t, pkgerrors.CodeForbidden, domainErr.Code())
	})

	t.Run("lost race from wrong state conflicts", func(t *testing.T) {
		repo := newFakeOrdersRepo()
		pending := &models.Order{ID: uuid.New(), SellerID: sellerID, Status: enums.OrderStatusPending}
		repo.orders[pending.ID] = pending
		repo.moved = false
		svc, _ := newTestService(t, repo)

		err := svc.ConfirmPickup(context.Background(), sellerID, pending.ID)
		domainErr := pkgerrors.As(err)
		require.NotNil(t, domainErr)
		assert.Equal(t, pkgerrors.CodeStateConflict, domainErr.Code())
	})

	t.Run("failing recompute does not fail the pickup", func(t *testing.T) {
		repo := newFakeOrdersRepo()
		repo.orders[order.ID] = order
		svc, recomputer := newTestService(t, repo)
		recomputer.err = errors.New("recompute failed")

		require.NoError(t, svc.ConfirmPickup(context.Background(), sellerID, order.ID))
		assert.Equal(t, []uuid.UUID{batchID}, recomputer.batchIDs)
	})

	t.Run("redelivered pickup is a no-op", func(t *testing.T) {
		repo := newFakeOrdersRepo()
		fulfilled := &models.Order{ID: uuid.New(), SellerID: sellerID, Status: enums.OrderStatusFulfilled}
		repo.orders[fulfilled.ID] = fulfilled
		repo.moved = false
		svc, _ := newTestService(t, repo)

		assert.NoError(t, svc.ConfirmPickup(context.Background(), sellerID, fulfilled.ID))
	})
}

func TestServiceComplete_codeMismatch(t *testing.T) {
	sellerID := uuid.New()
	order := &models.Order{
		ID:             uuid.New(),
		SellerID:       sellerID,
		Status:         enums.OrderStatusFulfilled,
		CompletionCode: "654321",
	}
	repo := newFakeOrdersRepo()
	repo.orders[order.ID] = order
	svc, _ := newTestService(t, repo)

	err := svc.Complete(context.Background(), sellerID, order.ID, "000000")
	domainErr := pkgerrors.As(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, pkgerrors.CodeValidation, domainErr.Code())
	assert.Empty(t, repo.transitions)

	require.NoError(t, svc.Complete(context.Background(), sellerID, order.ID, "654321"))
	require.Len(t, repo.transitions, 1)
	assert.Equal(t, enums.OrderStatusCompleted, repo.transitions[0].updates["status"])
}

func TestServiceSweepStale(t *testing.T) {
	batchID := uuid.New()
	repo := newFakeOrdersRepo()
	repo.stale = []models.Order{
		{ID: uuid.New(), Status: enums.OrderStatusPaid, BatchID: &batchID},
		{ID: uuid.New(), Status: enums.OrderStatusFulfilled},
	}
	svc, recomputer := newTestService(t, repo)

	swept, err := svc.SweepStale(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 2, swept)
	require.Len(t, repo.transitions, 2)
	for _, call := range repo.transitions {
		assert.ElementsMatch(t, []enums.OrderStatus{enums.OrderStatusPaid, enums.OrderStatusFulfilled}, call.from)
		assert.Equal(t, enums.OrderStatusCompleted, call.updates["status"])
	}
	assert.Equal(t, []uuid.UUID{batchID}, recomputer.batchIDs)
}

func TestServiceSweepStale_collectsErrors(t *testing.T) {
	repo := newFakeOrdersRepo()
	repo.stale = []models.Order{{ID: uuid.New(), Status: enums.OrderStatusPaid}}
	repo.err = errors.New("write failed")
	svc, _ := newTestService(t, repo)

	swept, err := svc.SweepStale(context.Background(), time.Now().UTC())
	assert.Error(t, err)
	assert.Zero(t, swept)
}

func TestServiceListForBuyer_requiresIdentity(t *testing.T) {
	repo := newFakeOrdersRepo()
	svc, _ := newTestService(t, repo)

	_, _, err := svc.ListForBuyer(context.Background(), uuid.Nil, pagination.Params{})
	domainErr := pkgerrors.As(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, pkgerrors.CodeUnauthorized, domainErr.Code())
}
