package checkout

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/showlinehq/showline-backend/internal/orders"
	"github.com/showlinehq/showline-backend/internal/products"
	"github.com/showlinehq/showline-backend/internal/sellers"
	"github.com/showlinehq/showline-backend/pkg/config"
	"github.com/showlinehq/showline-backend/pkg/db/models"
	"github.com/showlinehq/showline-backend/pkg/enums"
	pkgerrors "github.com/showlinehq/showline-backend/pkg/errors"
	"github.com/showlinehq/showline-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type batchAssigner interface {
	EnsureOpenBatch(ctx context.Context, tx *gorm.DB, sellerID uuid.UUID, showID *uuid.UUID) (uuid.UUID, error)
}

// Service is the payment authorization coordinator: it locks the intent,
// re-validates availability, creates the pending order, and drives the
// Stripe authorization on the seller's connected account. Every step after
// the atomic lock is compensating.
type Service interface {
	CreateIntent(ctx context.Context, input CreateIntentInput) (*models.CheckoutIntent, error)
	Pay(ctx context.Context, input PayInput) (*PayResult, error)
}

type ServiceParams struct {
	Repo              Repository
	Products          products.Repository
	Sellers           sellers.Repository
	Orders            orders.Repository
	Batches           batchAssigner
	Stripe            StripePaymentClient
	TransactionRunner txRunner
	Config            config.CheckoutConfig
	Logger            *logger.Logger
}

type service struct {
	repo     Repository
	products products.Repository
	sellers  sellers.Repository
	orders   orders.Repository
	batches  batchAssigner
	stripe   StripePaymentClient
	txRunner txRunner
	cfg      config.CheckoutConfig
	logg     *logger.Logger
}

// NewService builds the payment coordinator with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout repository required")
	}
	if params.Products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "products repository required")
	}
	if params.Sellers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "sellers repository required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	}
	if params.Batches == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "batch assigner required")
	}
	if params.Stripe == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe client required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &service{
		repo:     params.Repo,
		products: params.Products,
		sellers:  params.Sellers,
		orders:   params.Orders,
		batches:  params.Batches,
		stripe:   params.Stripe,
		txRunner: params.TransactionRunner,
		cfg:      params.Config,
		logg:     params.Logger,
	}, nil
}

func (s *service) CreateIntent(ctx context.Context, input CreateIntentInput) (*models.CheckoutIntent, error) {
	if input.BuyerUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.SellerID == uuid.Nil || input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller and product are required")
	}
	if input.Qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	product, err := s.products.FindByID(ctx, input.ProductID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product.SellerID != input.SellerID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product does not belong to seller")
	}
	if !product.Available(input.Qty) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "product no longer available")
	}

	now := time.Now().UTC()
	intent := &models.CheckoutIntent{
		BuyerUserID:     input.BuyerUserID,
		SellerID:        input.SellerID,
		ProductID:       input.ProductID,
		ShowID:          input.ShowID,
		Qty:             input.Qty,
		Status:          enums.CheckoutIntentStatusIntent,
		IntentExpiresAt: now.Add(s.cfg.IntentTTL),
	}
	created, err := s.repo.CreateIntent(ctx, intent)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout intent")
	}
	return created, nil
}

// Pay executes the coordinator contract. The prior ownership read exists
// purely for diagnostics; the guarded lock write is the authority.
func (s *service) Pay(ctx context.Context, input PayInput) (*PayResult, error) {
	if input.BuyerUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.IntentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "intent id required")
	}

	ctx = s.logg.WithField(ctx, "checkout_intent_id", input.IntentID.String())
	now := time.Now().UTC()

	intent, err := s.repo.FindIntentByID(ctx, input.IntentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, s.sessionExpired(ctx, "intent not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load intent")
	}
	switch {
	case intent.BuyerUserID != input.BuyerUserID:
		return nil, s.sessionExpired(ctx, "intent belongs to another buyer")
	case intent.Status != enums.CheckoutIntentStatusIntent:
		return nil, s.sessionExpired(ctx, fmt.Sprintf("intent in status %s", intent.Status))
	case intent.Expired(now):
		return nil, s.sessionExpired(ctx, "intent expired")
	}

	lockExpiresAt := now.Add(s.cfg.LockTTL)
	locked, err := s.repo.LockIntent(ctx, intent.ID, now, lockExpiresAt)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock intent")
	}
	if !locked {
		return nil, s.sessionExpired(ctx, "lost lock race")
	}

	// locked: every failure below must unlock (and cancel the order once it exists)

	product, err := s.products.FindByID(ctx, intent.ProductID)
	if err != nil {
		s.unlock(ctx, intent.ID)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.Available(intent.Qty) {
		s.unlock(ctx, intent.ID)
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "product no longer available")
	}

	seller, err := s.sellers.FindByID(ctx, intent.SellerID)
	if err != nil {
		s.unlock(ctx, intent.ID)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller")
	}
	if !seller.StripeConnected || seller.StripeAccountID == nil || *seller.StripeAccountID == "" {
		s.unlock(ctx, intent.ID)
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "seller is not able to accept payments")
	}
	if intent.BuyerUserID == seller.OwnerUserID {
		s.unlock(ctx, intent.ID)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyers cannot purchase from their own shop")
	}

	amount := product.PriceCents * int64(intent.Qty)
	if amount < s.cfg.MinimumChargeUnit {
		s.unlock(ctx, intent.ID)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount below minimum charge")
	}
	fee := platformFee(amount, s.cfg.FeePercent)

	completionCode, err := generateCompletionCode()
	if err != nil {
		s.unlock(ctx, intent.ID)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate completion code")
	}

	order := &models.Order{
		BuyerUserID:         intent.BuyerUserID,
		SellerID:            seller.ID,
		SellerUserID:        seller.OwnerUserID,
		ProductID:           product.ID,
		ShowID:              intent.ShowID,
		Qty:                 intent.Qty,
		UnitPriceCents:      product.PriceCents,
		TotalCents:          amount,
		ApplicationFeeCents: fee,
		Currency:            s.cfg.Currency,
		CompletionCode:      completionCode,
		Status:              enums.OrderStatusPending,
	}

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		batchID, err := s.batches.EnsureOpenBatch(ctx, tx, seller.ID, intent.ShowID)
		if err != nil {
			return err
		}
		order.BatchID = &batchID
		_, err = s.orders.WithTx(tx).Create(ctx, order)
		return err
	})
	if err != nil {
		s.unlock(ctx, intent.ID)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create pending order")
	}

	ctx = s.logg.WithField(ctx, "order_id", order.ID.String())

	params := &stripe.PaymentIntentParams{
		Amount:               stripe.Int64(amount),
		Currency:             stripe.String(s.cfg.Currency),
		ApplicationFeeAmount: stripe.Int64(fee),
	}
	params.SetStripeAccount(*seller.StripeAccountID)
	params.SetIdempotencyKey("pay_intent_" + intent.ID.String())
	params.AddMetadata("order_id", order.ID.String())
	params.AddMetadata("checkout_intent_id", intent.ID.String())
	params.AddMetadata("buyer_id", intent.BuyerUserID.String())
	params.AddMetadata("seller_id", seller.ID.String())
	params.AddMetadata("seller_user_id", seller.OwnerUserID.String())
	params.AddMetadata("product_id", product.ID.String())
	if intent.ShowID != nil {
		params.AddMetadata("show_id", intent.ShowID.String())
	}

	authorization, err := s.stripe.CreatePaymentIntent(ctx, params)
	if err != nil {
		s.logg.Error(ctx, "stripe payment intent creation failed", err)
		s.compensate(ctx, order.ID, intent.ID)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment authorization")
	}

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.orders.WithTx(tx).SetStripePaymentIntentID(ctx, order.ID, authorization.ID); err != nil {
			return err
		}
		repo := s.repo.WithTx(tx)
		if err := repo.AttachPaymentIntent(ctx, intent.ID, authorization.ID); err != nil {
			return err
		}
		consumed, err := repo.MarkConsumed(ctx, intent.ID)
		if err != nil {
			return err
		}
		if !consumed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "intent no longer locked")
		}
		return nil
	})
	if err != nil {
		s.logg.Error(ctx, "authorization write-back failed, cancelling upstream", err)
		if _, cancelErr := s.stripe.CancelPaymentIntent(ctx, authorization.ID, *seller.StripeAccountID); cancelErr != nil {
			s.logg.Error(ctx, "cancel stripe payment intent failed", cancelErr)
		}
		s.compensate(ctx, order.ID, intent.ID)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist payment authorization")
	}

	return &PayResult{
		OrderID:         order.ID,
		PaymentIntentID: authorization.ID,
		ClientSecret:    authorization.ClientSecret,
		LockExpiresAt:   lockExpiresAt,
	}, nil
}

// sessionExpired logs the stage detail server-side and returns the coarse
// buyer-facing rejection. Wrong-buyer, wrong-status, and expired are all
// indistinguishable to the caller on purpose.
func (s *service) sessionExpired(ctx context.Context, reason string) error {
	s.logg.Warn(s.logg.WithField(ctx, "reason", reason), "checkout session rejected")
	return pkgerrors.New(pkgerrors.CodeStateConflict, "checkout session expired")
}

func (s *service) unlock(ctx context.Context, intentID uuid.UUID) {
	if _, err := s.repo.UnlockIntent(ctx, intentID); err != nil {
		s.logg.Error(ctx, "unlock intent failed", err)
	}
}

// compensate cancels the pending order (which restores reserved quantity via
// the inventory trigger) and returns the intent to its retriable state.
func (s *service) compensate(ctx context.Context, orderID, intentID uuid.UUID) {
	now := time.Now().UTC()
	if _, err := s.orders.Transition(ctx, orderID,
		[]enums.OrderStatus{enums.OrderStatusPending},
		map[string]any{
			"status":       enums.OrderStatusCancelled,
			"cancelled_at": now,
			"updated_at":   now,
		}); err != nil {
		s.logg.Error(ctx, "cancel pending order failed", err)
	}
	s.unlock(ctx, intentID)
}

func platformFee(amountCents int64, feePercent int) int64 {
	return decimal.NewFromInt(amountCents).
		Mul(decimal.NewFromInt(int64(feePercent))).
		Div(decimal.NewFromInt(100)).
		Floor().
		IntPart()
}

func generateCompletionCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
