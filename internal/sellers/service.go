package sellers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/showlinehq/showline-backend/pkg/db/models"
	pkgerrors "github.com/showlinehq/showline-backend/pkg/errors"
)

// StripeAccountClient is the subset of Stripe operations the seller
// connection sync needs.
type StripeAccountClient interface {
	GetAccount(ctx context.Context, accountID string) (*stripe.Account, error)
}

// ConnectionStatus is the collaborator read surface: the excluded UI gates
// seller features on this projection.
type ConnectionStatus struct {
	Connected       bool       `json:"connected"`
	StripeAccountID *string    `json:"stripe_account_id,omitempty"`
	ConnectedAt     *time.Time `json:"connected_at,omitempty"`
}

// Service owns the seller connection flag. Both writers (the account-return
// callback and the account.updated webhook) funnel through the same
// capability-based derivation, so there is one authority for "chargeable".
type Service interface {
	PaymentStatus(ctx context.Context, callerUserID, sellerID uuid.UUID) (*ConnectionStatus, error)
	SyncFromCallback(ctx context.Context, callerUserID, sellerID uuid.UUID) (*ConnectionStatus, error)
	SyncFromAccount(ctx context.Context, account *stripe.Account) error
}

type ServiceParams struct {
	Repo   Repository
	Stripe StripeAccountClient
}

type service struct {
	repo   Repository
	stripe StripeAccountClient
}

// NewService builds the seller connection service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "sellers repository required")
	}
	if params.Stripe == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe account client required")
	}
	return &service{repo: params.Repo, stripe: params.Stripe}, nil
}

func (s *service) PaymentStatus(ctx context.Context, callerUserID, sellerID uuid.UUID) (*ConnectionStatus, error) {
	seller, err := s.loadOwnedSeller(ctx, callerUserID, sellerID)
	if err != nil {
		return nil, err
	}
	return statusOf(seller), nil
}

// SyncFromCallback is the account-return path: the buyer finished the hosted
// onboarding flow and the app retrieves the account to derive chargeability.
func (s *service) SyncFromCallback(ctx context.Context, callerUserID, sellerID uuid.UUID) (*ConnectionStatus, error) {
	seller, err := s.loadOwnedSeller(ctx, callerUserID, sellerID)
	if err != nil {
		return nil, err
	}
	if seller.StripeAccountID == nil || *seller.StripeAccountID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "stripe account not linked")
	}

	account, err := s.stripe.GetAccount(ctx, *seller.StripeAccountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch stripe account")
	}

	if err := s.applyAccount(ctx, seller, account); err != nil {
		return nil, err
	}
	return statusOf(seller), nil
}

// SyncFromAccount is the account.updated webhook path. Events for accounts
// we do not track are ignored.
func (s *service) SyncFromAccount(ctx context.Context, account *stripe.Account) error {
	if account == nil || account.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe account required")
	}
	seller, err := s.repo.FindByStripeAccountID(ctx, account.ID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller by account")
	}
	return s.applyAccount(ctx, seller, account)
}

func (s *service) applyAccount(ctx context.Context, seller *models.Seller, account *stripe.Account) error {
	connected := Chargeable(account)
	if connected == seller.StripeConnected {
		return nil
	}

	var connectedAt *time.Time
	if connected {
		now := time.Now().UTC()
		connectedAt = &now
	}
	if err := s.repo.UpdateConnection(ctx, seller.ID, connected, connectedAt); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update seller connection")
	}
	seller.StripeConnected = connected
	seller.StripeConnectedAt = connectedAt
	return nil
}

// Chargeable is the single authority for "can this seller take a charge":
// charges enabled plus an active card_payments capability.
func Chargeable(account *stripe.Account) bool {
	if account == nil {
		return false
	}
	if !account.ChargesEnabled {
		return false
	}
	if account.Capabilities == nil {
		return false
	}
	return account.Capabilities.CardPayments == stripe.AccountCapabilityStatusActive
}

func (s *service) loadOwnedSeller(ctx context.Context, callerUserID, sellerID uuid.UUID) (*models.Seller, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "seller context missing")
	}
	seller, err := s.repo.FindByID(ctx, sellerID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "seller not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller")
	}
	if seller.OwnerUserID != callerUserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "seller does not belong to caller")
	}
	return seller, nil
}

func statusOf(seller *models.Seller) *ConnectionStatus {
	return &ConnectionStatus{
		Connected:       seller.StripeConnected,
		StripeAccountID: seller.StripeAccountID,
		ConnectedAt:     seller.StripeConnectedAt,
	}
}
