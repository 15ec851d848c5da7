package sellers

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/showlinehq/showline-backend/pkg/db/models"
	pkgerrors "github.com/showlinehq/showline-backend/pkg/errors"
)

type connectionUpdate struct {
	sellerID    uuid.UUID
	connected   bool
	connectedAt *time.Time
}

type fakeSellersRepo struct {
	Repository

	sellers map[uuid.UUID]*models.Seller
	updates []connectionUpdate
}

func newFakeSellersRepo() *fakeSellersRepo {
	return &fakeSellersRepo{sellers: map[uuid.UUID]*models.Seller{}}
}

func (f *fakeSellersRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Seller, error) {
	seller, ok := f.sellers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return seller, nil
}

func (f *fakeSellersRepo) FindByStripeAccountID(_ context.Context, accountID string) (*models.Seller, error) {
	for _, seller := range f.sellers {
		if seller.StripeAccountID != nil && *seller.StripeAccountID == accountID {
			return seller, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSellersRepo) UpdateConnection(_ context.Context, sellerID uuid.UUID, connected bool, connectedAt *time.Time) error {
	f.updates = append(f.updates, connectionUpdate{sellerID: sellerID, connected: connected, connectedAt: connectedAt})
	return nil
}

type fakeAccountClient struct {
	account *stripe.Account
	err     error
	calls   int
}

func (f *fakeAccountClient) GetAccount(_ context.Context, _ string) (*stripe.Account, error) {
	f.calls++
	return f.account, f.err
}

func chargeableAccount(id string) *stripe.Account {
	return &stripe.Account{
		ID:             id,
		ChargesEnabled: true,
		Capabilities: &stripe.AccountCapabilities{
			CardPayments: stripe.AccountCapabilityStatusActive,
		},
	}
}

func newSellerFixture(t *testing.T, stripeClient *fakeAccountClient) (Service, *fakeSellersRepo) {
	t.Helper()
	repo := newFakeSellersRepo()
	svc, err := NewService(ServiceParams{Repo: repo, Stripe: stripeClient})
	require.NoError(t, err)
	return svc, repo
}

func TestChargeable(t *testing.T) {
	assert.True(t, Chargeable(chargeableAccount("acct_1")))
	assert.False(t, Chargeable(nil))
	assert.False(t, Chargeable(&stripe.Account{ID: "acct_1", ChargesEnabled: false}))
	assert.False(t, Chargeable(&stripe.Account{ID: "acct_1", ChargesEnabled: true}))
	assert.False(t, Chargeable(&stripe.Account{
		ID:             "acct_1",
		ChargesEnabled: true,
		Capabilities: &stripe.AccountCapabilities{
			CardPayments: stripe.AccountCapabilityStatusPending,
		},
	}))
}

func TestServiceSyncFromCallback(t *testing.T) {
	accountID := "acct_cb"
	owner := uuid.New()

	t.Run("connects a chargeable account", func(t *testing.T) {
		client := &fakeAccountClient{account: chargeableAccount(accountID)}
		svc, repo := newSellerFixture(t, client)
		seller := &models.Seller{ID: uuid.New(), OwnerUserID: owner, StripeAccountID: &accountID}
		repo.sellers[seller.ID] = seller

		status, err := svc.SyncFromCallback(context.Background(), owner, seller.ID)
		require.NoError(t, err)
		assert.True(t, status.Connected)
		require.NotNil(t, status.ConnectedAt)
		require.Len(t, repo.updates, 1)
		assert.True(t, repo.updates[0].connected)
	})

	t.Run("unchanged state skips the write", func(t *testing.T) {
		client := &fakeAccountClient{account: chargeableAccount(accountID)}
		svc, repo := newSellerFixture(t, client)
		seller := &models.Seller{ID: uuid.New(), OwnerUserID: owner, StripeAccountID: &accountID, StripeConnected: true}
		repo.sellers[seller.ID] = seller

		status, err := svc.SyncFromCallback(context.Background(), owner, seller.ID)
		require.NoError(t, err)
		assert.True(t, status.Connected)
		assert.Empty(t, repo.updates)
	})

	t.Run("disconnects when capability is lost", func(t *testing.T) {
		client := &fakeAccountClient{account: &stripe.Account{ID: accountID, ChargesEnabled: false}}
		svc, repo := newSellerFixture(t, client)
		seller := &models.Seller{ID: uuid.New(), OwnerUserID: owner, StripeAccountID: &accountID, StripeConnected: true}
		repo.sellers[seller.ID] = seller

		status, err := svc.SyncFromCallback(context.Background(), owner, seller.ID)
		require.NoError(t, err)
		assert.False(t, status.Connected)
		assert.Nil(t, status.ConnectedAt)
		require.Len(t, repo.updates, 1)
		assert.False(t, repo.updates[0].connected)
		assert.Nil(t, repo.updates[0].connectedAt)
	})

	t.Run("requires a linked account", func(t *testing.T) {
		client := &fakeAccountClient{}
		svc, repo := newSellerFixture(t, client)
		seller := &models.Seller{ID: uuid.New(), OwnerUserID: owner}
		repo.sellers[seller.ID] = seller

		_, err := svc.SyncFromCallback(context.Background(), owner, seller.ID)
		domainErr := pkgerrors.As(err)
		require.NotNil(t, domainErr)
		assert.Equal(t, pkgerrors.CodeStateConflict, domainErr.Code())
		assert.Zero(t, client.calls)
	})

	t.Run("foreign caller forbidden", func(t *testing.T) {
		client := &fakeAccountClient{account: chargeableAccount(accountID)}
		svc, repo := newSellerFixture(t, client)
		seller := &models.Seller{ID: uuid.New(), OwnerUserID: owner, StripeAccountID: &accountID}
		repo.sellers[seller.ID] = seller

		_, err := svc.SyncFromCallback(context.Background(), uuid.New(), seller.ID)
		domainErr := pkgerrors.As(err)
		require.NotNil(t, domainErr)
		assert.Equal(t, pkgerrors.CodeForbidden, domainErr.Code())
	})
}

func TestServiceSyncFromAccount(t *testing.T) {
	accountID := "acct_wh"

	t.Run("updates the tracked seller", func(t *testing.T) {
		svc, repo := newSellerFixture(t, &fakeAccountClient{})
		seller := &models.Seller{ID: uuid.New(), OwnerUserID: uuid.New(), StripeAccountID: &accountID}
		repo.sellers[seller.ID] = seller

		require.NoError(t, svc.SyncFromAccount(context.Background(), chargeableAccount(accountID)))
		require.Len(t, repo.updates, 1)
		assert.True(t, repo.updates[0].connected)
	})

	t.Run("ignores unknown accounts", func(t *testing.T) {
		svc, repo := newSellerFixture(t, &fakeAccountClient{})

		require.NoError(t, svc.SyncFromAccount(context.Background(), chargeableAccount("acct_unknown")))
		assert.Empty(t, repo.updates)
	})

	t.Run("rejects empty events", func(t *testing.T) {
		svc, _ := newSellerFixture(t, &fakeAccountClient{})
		err := svc.SyncFromAccount(context.Background(), nil)
		domainErr := pkgerrors.As(err)
		require.NotNil(t, domainErr)
		assert.Equal(t, pkgerrors.CodeValidation, domainErr.Code())
	})
}

func TestServicePaymentStatus(t *testing.T) {
	svc, repo := newSellerFixture(t, &fakeAccountClient{})
	accountID := "acct_ps"
	connectedAt := time.Now().UTC()
	seller := &models.Seller{
		ID:                uuid.New(),
		OwnerUserID:       uuid.New(),
		StripeAccountID:   &accountID,
		StripeConnected:   true,
		StripeConnectedAt: &connectedAt,
	}
	repo.sellers[seller.ID] = seller

	status, err := svc.PaymentStatus(context.Background(), seller.OwnerUserID, seller.ID)
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, &accountID, status.StripeAccountID)

	_, err = svc.PaymentStatus(context.Background(), seller.OwnerUserID, uuid.New())
	domainErr := pkgerrors.As(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, pkgerrors.CodeNotFound, domainErr.Code())
}
