package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/showlinehq/showline-backend/pkg/db/models"
	"github.com/showlinehq/showline-backend/pkg/enums"
	pkgerrors "github.com/showlinehq/showline-backend/pkg/errors"
	"github.com/showlinehq/showline-backend/pkg/logger"
	"github.com/showlinehq/showline-backend/pkg/pagination"
)

// BatchRecomputer re-derives a batch's aggregate status after a member
// order changed. Failures are surfaced to the caller, who decides whether
// they are fatal (they never are for webhook-driven writes).
type BatchRecomputer interface {
	Recompute(ctx context.Context, batchID uuid.UUID) error
}

// Service owns order status transitions beyond repository reads.
type Service interface {
	Get(ctx context.Context, buyerUserID, orderID uuid.UUID) (*models.Order, error)
	ListForBuyer(ctx context.Context, buyerUserID uuid.UUID, params pagination.Params) ([]models.Order, string, error)
	ListForSeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.Order, string, error)
	MarkPaid(ctx context.Context, orderID uuid.UUID) (bool, error)
	ConfirmPickup(ctx context.Context, sellerID, orderID uuid.UUID) error
	Complete(ctx context.Context, sellerID, orderID uuid.UUID, completionCode string) error
	CancelPending(ctx context.Context, orderID uuid.UUID) (bool, error)
	SweepStale(ctx context.Context, now time.Time) (int, error)
}

// DefaultSweepGraceDays is how long an order may sit in paid/fulfilled
// before the staleness sweep force-completes it.
const DefaultSweepGraceDays = 5

type ServiceParams struct {
	Repo      Repository
	Batches   BatchRecomputer
	GraceDays int
	Logger    *logger.Logger
}

type service struct {
	repo      Repository
	batches   BatchRecomputer
	graceDays int
	logg      *logger.Logger
}

// NewService builds the order lifecycle service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	}
	if params.Batches == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "batch recomputer required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	graceDays := params.GraceDays
	if graceDays <= 0 {
		graceDays = DefaultSweepGraceDays
	}
	return &service{
		repo:      params.Repo,
		batches:   params.Batches,
		graceDays: graceDays,
		logg:      params.Logger,
	}, nil
}

func (s *service) Get(ctx context.Context, buyerUserID, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.BuyerUserID != buyerUserID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) ListForBuyer(ctx context.Context, buyerUserID uuid.UUID, params pagination.Params) ([]models.Order, string, error) {
	if buyerUserID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return s.repo.ListByBuyer(ctx, buyerUserID, params)
}

func (s *service) ListForSeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.Order, string, error) {
	if sellerID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeForbidden, "seller context missing")
	}
	return s.repo.ListBySeller(ctx, sellerID, params)
}

// MarkPaid advances pending -> paid. The false return means another handler
// already moved the row; callers treat it as idempotent success.
func (s *service) MarkPaid(ctx context.Context, orderID uuid.UUID) (bool, error) {
	now := time.Now().UTC()
	return s.repo.Transition(ctx, orderID,
		[]enums.OrderStatus{enums.OrderStatusPending},
		map[string]any{
			"status":     enums.OrderStatusPaid,
			"paid_at":    now,
			"updated_at": now,
		})
}

func (s *service) ConfirmPickup(ctx context.Context, sellerID, orderID uuid.UUID) error {
	order, err := s.loadSellerOrder(ctx, sellerID, orderID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	moved, err := s.repo.Transition(ctx, order.ID,
		[]enums.OrderStatus{enums.OrderStatusPaid},
		map[string]any{
			"status":       enums.OrderStatusFulfilled,
			"fulfilled_at": now,
			"updated_at":   now,
		})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm pickup")
	}
	if !moved && order.Status != enums.OrderStatusFulfilled {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot be picked up in current state")
	}

	s.recomputeBatch(ctx, order.BatchID)
	return nil
}

func (s *service) Complete(ctx context.Context, sellerID, orderID uuid.UUID, completionCode string) error {
	order, err := s.loadSellerOrder(ctx, sellerID, orderID)
	if err != nil {
		return err
	}
	if completionCode == "" || order.CompletionCode != completionCode {
		return pkgerrors.New(pkgerrors.CodeValidation, "completion code mismatch")
	}

	now := time.Now().UTC()
	moved, err := s.repo.Transition(ctx, order.ID,
		[]enums.OrderStatus{enums.OrderStatusFulfilled},
		map[string]any{
			"status":       enums.OrderStatusCompleted,
			"completed_at": now,
			"updated_at":   now,
		})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete order")
	}
	if !moved && order.Status != enums.OrderStatusCompleted {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot be completed in current state")
	}

	s.recomputeBatch(ctx, order.BatchID)
	return nil
}

// CancelPending moves pending -> cancelled, which also restores the
// reserved product quantity through the inventory trigger.
func (s *service) CancelPending(ctx context.Context, orderID uuid.UUID) (bool, error) {
	now := time.Now().UTC()
	return s.repo.Transition(ctx, orderID,
		[]enums.OrderStatus{enums.OrderStatusPending},
		map[string]any{
			"status":       enums.OrderStatusCancelled,
			"cancelled_at": now,
			"updated_at":   now,
		})
}

// SweepStale force-completes orders stuck in paid/fulfilled past the grace
// window. Each row uses the same guarded primitive, so racing a concurrent
// refund or pickup is safe.
func (s *service) SweepStale(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.AddDate(0, 0, -s.graceDays)
	stale, err := s.repo.FindStaleBefore(ctx, cutoff)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stale orders")
	}

	var errs error
	swept := 0
	for _, order := range stale {
		moved, err := s.repo.Transition(ctx, order.ID,
			[]enums.OrderStatus{enums.OrderStatusPaid, enums.OrderStatusFulfilled},
			map[string]any{
				"status":       enums.OrderStatusCompleted,
				"completed_at": now,
				"updated_at":   now,
			})
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if moved {
			swept++
			s.recomputeBatch(ctx, order.BatchID)
		}
	}
	return swept, errs
}

func (s *service) loadSellerOrder(ctx context.Context, sellerID, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "seller context missing")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.SellerID != sellerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to seller")
	}
	return order, nil
}

func (s *service) recomputeBatch(ctx context.Context, batchID *uuid.UUID) {
	if batchID == nil || *batchID == uuid.Nil {
		return
	}
	// best-effort; the batch derivation is re-triggered by the next member write
	if err := s.batches.Recompute(ctx, *batchID); err != nil {
		ctx = s.logg.WithField(ctx, "batch_id", batchID.String())
		s.logg.Error(ctx, "batch recompute failed", err)
	}
}
