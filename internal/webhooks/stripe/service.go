package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/showlinehq/showline-backend/internal/checkout"
	"github.com/showlinehq/showline-backend/internal/notifications"
	"github.com/showlinehq/showline-backend/internal/orders"
	"github.com/showlinehq/showline-backend/pkg/db/models"
	"github.com/showlinehq/showline-backend/pkg/enums"
	pkgerrors "github.com/showlinehq/showline-backend/pkg/errors"
	"github.com/showlinehq/showline-backend/pkg/logger"
)

type accountSyncer interface {
	SyncFromAccount(ctx context.Context, account *stripe.Account) error
}

type batchRecomputer interface {
	Recompute(ctx context.Context, batchID uuid.UUID) error
}

type notifier interface {
	Notify(ctx context.Context, input notifications.NotifyInput) error
}

type ServiceParams struct {
	Orders        orders.Service
	OrdersRepo    orders.Repository
	Intents       checkout.Repository
	Sellers       accountSyncer
	Batches       batchRecomputer
	Notifications notifier
	Guard         *IdempotencyGuard
	Logger        *logger.Logger
}

// Service reconciles asynchronous Stripe events against local order state.
// Duplicate and out-of-order delivery are absorbed by the redis event guard
// plus the guarded status transitions; side effects after the status write
// are best-effort and never roll it back.
type Service struct {
	orders        orders.Service
	ordersRepo    orders.Repository
	intents       checkout.Repository
	sellers       accountSyncer
	batches       batchRecomputer
	notifications notifier
	guard         *IdempotencyGuard
	logg          *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders service required")
	}
	if params.OrdersRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	}
	if params.Intents == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "intents repository required")
	}
	if params.Sellers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "account syncer required")
	}
	if params.Batches == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "batch recomputer required")
	}
	if params.Notifications == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notifier required")
	}
	if params.Guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		orders:        params.Orders,
		ordersRepo:    params.OrdersRepo,
		intents:       params.Intents,
		sellers:       params.Sellers,
		batches:       params.Batches,
		notifications: params.Notifications,
		guard:         params.Guard,
		logg:          params.Logger,
	}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"stripe_event_id":   event.ID,
		"stripe_event_type": string(event.Type),
	})

	duplicate, err := s.guard.CheckAndMark(ctx, event.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "event idempotency check")
	}
	if duplicate {
		s.logg.Info(ctx, "duplicate stripe event skipped")
		return nil
	}

	if err := s.process(ctx, event); err != nil {
		// release the marker so the processor can redeliver
		if delErr := s.guard.Delete(ctx, event.ID); delErr != nil {
			s.logg.Error(ctx, "release event idempotency marker failed", delErr)
		}
		return err
	}
	return nil
}

func (s *Service) process(ctx context.Context, event *stripe.Event) error {
	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		intent, err := decodePaymentIntent(event)
		if err != nil {
			return err
		}
		return s.handlePaymentSucceeded(ctx, intent)
	case stripe.EventTypePaymentIntentCanceled:
		intent, err := decodePaymentIntent(event)
		if err != nil {
			return err
		}
		return s.handlePaymentCanceled(ctx, intent)
	case stripe.EventTypeAccountUpdated:
		var account stripe.Account
		if err := json.Unmarshal(event.Data.Raw, &account); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode account event")
		}
		return s.sellers.SyncFromAccount(ctx, &account)
	default:
		return nil
	}
}

func (s *Service) handlePaymentSucceeded(ctx context.Context, intent *stripe.PaymentIntent) error {
	order, err := s.resolveOrder(ctx, intent)
	if err != nil {
		return err
	}
	if order == nil {
		s.logg.Warn(ctx, "succeeded event does not map to a known order")
		return nil
	}

	ctx = s.logg.WithField(ctx, "order_id", order.ID.String())

	moved, err := s.orders.MarkPaid(ctx, order.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
	}
	if !moved {
		// already reconciled by an earlier delivery
		s.logg.Info(ctx, "order already past pending")
		return nil
	}

	s.afterStatusWrite(ctx, order, notifications.NotifyInput{
		UserID:  order.BuyerUserID,
		Type:    enums.NotificationTypeOrderPaid,
		Title:   "Payment confirmed",
		Message: fmt.Sprintf("Your payment for order %s was confirmed.", order.ID),
		OrderID: &order.ID,
	})
	return nil
}

func (s *Service) handlePaymentCanceled(ctx context.Context, intent *stripe.PaymentIntent) error {
	order, err := s.resolveOrder(ctx, intent)
	if err != nil {
		return err
	}
	if order == nil {
		s.logg.Warn(ctx, "canceled event does not map to a known order")
		return nil
	}

	ctx = s.logg.WithField(ctx, "order_id", order.ID.String())

	// late cancel after a successful reconciliation is a benign no-op
	moved, err := s.orders.CancelPending(ctx, order.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
	}

	if intentID, ok := metadataUUID(intent, "checkout_intent_id"); ok {
		if _, err := s.intents.UnlockIntent(ctx, intentID); err != nil {
			s.logg.Error(ctx, "unlock intent after cancel failed", err)
		}
	}

	if !moved {
		return nil
	}

	s.afterStatusWrite(ctx, order, notifications.NotifyInput{
		UserID:  order.BuyerUserID,
		Type:    enums.NotificationTypeOrderCancelled,
		Title:   "Payment cancelled",
		Message: fmt.Sprintf("The payment for order %s was cancelled.", order.ID),
		OrderID: &order.ID,
	})
	return nil
}

// afterStatusWrite runs the non-blocking side effects: a buyer notification
// and the batch aggregate re-evaluation. Failures are logged only.
func (s *Service) afterStatusWrite(ctx context.Context, order *models.Order, input notifications.NotifyInput) {
	if err := s.notifications.Notify(ctx, input); err != nil {
		s.logg.Error(ctx, "enqueue buyer notification failed", err)
	}
	if order.BatchID != nil && *order.BatchID != uuid.Nil {
		if err := s.batches.Recompute(ctx, *order.BatchID); err != nil {
			s.logg.Error(ctx, "batch recompute failed", err)
		}
	}
}

// resolveOrder maps the event to an order by the embedded metadata first,
// falling back to the authorization id itself.
func (s *Service) resolveOrder(ctx context.Context, intent *stripe.PaymentIntent) (*models.Order, error) {
	if orderID, ok := metadataUUID(intent, "order_id"); ok {
		order, err := s.ordersRepo.FindByID(ctx, orderID)
		if err == nil {
			return order, nil
		}
		if err != gorm.ErrRecordNotFound {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order by metadata")
		}
	}

	order, err := s.ordersRepo.FindByStripePaymentIntentID(ctx, intent.ID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order by authorization")
	}
	return order, nil
}

func decodePaymentIntent(event *stripe.Event) (*stripe.PaymentIntent, error) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode payment intent event")
	}
	return &intent, nil
}

func metadataUUID(intent *stripe.PaymentIntent, key string) (uuid.UUID, bool) {
	if intent == nil || intent.Metadata == nil {
		return uuid.Nil, false
	}
	raw, ok := intent.Metadata[key]
	if !ok || raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
