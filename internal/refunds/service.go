package refunds

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/showlinehq/showline-backend/internal/orders"
	"github.com/showlinehq/showline-backend/internal/sellers"
	"github.com/showlinehq/showline-backend/pkg/db/models"
	"github.com/showlinehq/showline-backend/pkg/enums"
	pkgerrors "github.com/showlinehq/showline-backend/pkg/errors"
	"github.com/showlinehq/showline-backend/pkg/logger"
)

type batchRecomputer interface {
	Recompute(ctx context.Context, batchID uuid.UUID) error
}

// Result carries the processor-side refund identifier back to the seller.
type Result struct {
	OrderID  uuid.UUID `json:"order_id"`
	RefundID string    `json:"refund_id"`
}

// Service executes seller-initiated reversals. The whole operation is
// idempotent end to end: a refund id already on the order short-circuits,
// the Stripe call carries a derived idempotency key, and the status write
// is guarded on refund-id nullity rather than status.
type Service interface {
	Refund(ctx context.Context, sellerID, orderID uuid.UUID) (*Result, error)
}

type ServiceParams struct {
	Orders  orders.Repository
	Sellers sellers.Repository
	Batches batchRecomputer
	Stripe  StripeRefundClient
	Logger  *logger.Logger
}

type service struct {
	orders  orders.Repository
	sellers sellers.Repository
	batches batchRecomputer
	stripe  StripeRefundClient
	logg    *logger.Logger
}

// NewService builds the refund processor.
func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	}
	if params.Sellers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "sellers repository required")
	}
	if params.Batches == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "batch recomputer required")
	}
	if params.Stripe == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe client required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &service{
		orders:  params.Orders,
		sellers: params.Sellers,
		batches: params.Batches,
		stripe:  params.Stripe,
		logg:    params.Logger,
	}, nil
}

func (s *service) Refund(ctx context.Context, sellerID, orderID uuid.UUID) (*Result, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "seller context missing")
	}

	ctx = s.logg.WithField(ctx, "order_id", orderID.String())

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.SellerID != sellerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to seller")
	}

	// idempotent short-circuit: a retried call never reaches Stripe twice
	if order.StripeRefundID != nil && *order.StripeRefundID != "" {
		return &Result{OrderID: order.ID, RefundID: *order.StripeRefundID}, nil
	}

	if order.Status != enums.OrderStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only paid orders can be refunded")
	}
	if order.StripePaymentIntentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order has no payment authorization")
	}

	accountID, err := s.connectedAccountID(ctx, order)
	if err != nil {
		return nil, err
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(order.StripePaymentIntentID),
	}
	params.SetStripeAccount(accountID)
	params.SetIdempotencyKey("refund_order_" + order.ID.String())

	stripeRefund, err := s.stripe.CreateRefund(ctx, params)
	if err != nil {
		s.logg.Error(ctx, "stripe refund creation failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create refund")
	}

	now := time.Now().UTC()
	moved, err := s.orders.MarkRefunded(ctx, order.ID, stripeRefund.ID, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist refund")
	}
	if !moved {
		// a concurrent call won the write; the stored id is authoritative
		stored, err := s.orders.FindByID(ctx, order.ID)
		if err == nil && stored.StripeRefundID != nil {
			return &Result{OrderID: stored.ID, RefundID: *stored.StripeRefundID}, nil
		}
		return &Result{OrderID: order.ID, RefundID: stripeRefund.ID}, nil
	}

	if order.BatchID != nil && *order.BatchID != uuid.Nil {
		if err := s.batches.Recompute(ctx, *order.BatchID); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "batch_id", order.BatchID.String()), "batch recompute after refund failed")
		}
	}

	return &Result{OrderID: order.ID, RefundID: stripeRefund.ID}, nil
}

// connectedAccountID resolves the seller's Stripe account: the canonical
// entity-linked id first, then the legacy user-linked row. Both paths stay
// until the data model is confirmed single-sourced.
func (s *service) connectedAccountID(ctx context.Context, order *models.Order) (string, error) {
	seller, err := s.sellers.FindByID(ctx, order.SellerID)
	if err != nil && err != gorm.ErrRecordNotFound {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller")
	}
	if seller != nil && seller.StripeAccountID != nil && *seller.StripeAccountID != "" {
		return *seller.StripeAccountID, nil
	}

	legacy, err := s.sellers.FindByOwnerUserID(ctx, order.SellerUserID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", pkgerrors.New(pkgerrors.CodeConflict, "seller payment account missing")
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller by owner")
	}
	if legacy.StripeAccountID == nil || *legacy.StripeAccountID == "" {
		return "", pkgerrors.New(pkgerrors.CodeConflict, "seller payment account missing")
	}
	return *legacy.StripeAccountID, nil
}
