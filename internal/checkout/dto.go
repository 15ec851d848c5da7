package checkout

import (
	"time"

	"github.com/google/uuid"
)

// CreateIntentInput captures a buyer starting checkout on one listing.
type CreateIntentInput struct {
	BuyerUserID uuid.UUID
	SellerID    uuid.UUID
	ProductID   uuid.UUID
	ShowID      *uuid.UUID
	Qty         int
}

// PayInput identifies the intent the buyer wants to pay for.
type PayInput struct {
	BuyerUserID uuid.UUID
	IntentID    uuid.UUID
}

// PayResult is the client-usable authorization handle.
type PayResult struct {
	OrderID         uuid.UUID `json:"order_id"`
	PaymentIntentID string    `json:"payment_intent_id"`
	ClientSecret    string    `json:"client_secret"`
	LockExpiresAt   time.Time `json:"lock_expires_at"`
}
