package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/showlinehq/showline-backend/pkg/enums"
)

// CheckoutIntent is the durable record of a buyer's checkout attempt and the
// unit the payment pipeline locks on. Intents are never deleted; they expire
// logically via intent_expires_at, which readers re-check lazily.
type CheckoutIntent struct {
	ID                    uuid.UUID                  `gorm:"column:id;type:uuid;primaryKey"`
	BuyerUserID           uuid.UUID                  `gorm:"column:buyer_user_id;type:uuid;not null"`
	SellerID              uuid.UUID                  `gorm:"column:seller_id;type:uuid;not null"`
	ProductID             uuid.UUID                  `gorm:"column:product_id;type:uuid;not null"`
	ShowID                *uuid.UUID                 `gorm:"column:show_id;type:uuid"`
	Qty                   int                        `gorm:"column:qty;not null"`
	Status                enums.CheckoutIntentStatus `gorm:"column:status;type:text;not null;default:'intent'"`
	IntentExpiresAt       time.Time                  `gorm:"column:intent_expires_at;not null"`
	LockExpiresAt         *time.Time                 `gorm:"column:lock_expires_at"`
	StripePaymentIntentID *string                    `gorm:"column:stripe_payment_intent_id"`
	CreatedAt             time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *CheckoutIntent) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// Expired reports whether the intent TTL has lapsed at the supplied instant.
func (i *CheckoutIntent) Expired(now time.Time) bool {
	return !now.Before(i.IntentExpiresAt)
}
