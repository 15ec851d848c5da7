package sellers

import (
	"context"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/account"

	pkgstripe "github.com/showlinehq/showline-backend/pkg/stripe"
)

type stripeClientWrapper struct{}

// NewStripeClient wraps the provided Stripe client so the seller service can be tested.
func NewStripeClient(api *pkgstripe.Client) StripeAccountClient {
	if api == nil {
		return nil
	}
	return &stripeClientWrapper{}
}

func (w *stripeClientWrapper) GetAccount(ctx context.Context, accountID string) (*stripe.Account, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx
	return account.GetByID(accountID, params)
}
