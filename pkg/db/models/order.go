package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/showlinehq/showline-backend/pkg/enums"
)

// Order is a single-item purchase produced by the payment coordinator.
// SellerID and SellerUserID are kept distinct: a user can buy from one
// seller entity while owning another.
type Order struct {
	ID                    uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	BuyerUserID           uuid.UUID         `gorm:"column:buyer_user_id;type:uuid;not null"`
	SellerID              uuid.UUID         `gorm:"column:seller_id;type:uuid;not null"`
	SellerUserID          uuid.UUID         `gorm:"column:seller_user_id;type:uuid;not null"`
	ProductID             uuid.UUID         `gorm:"column:product_id;type:uuid;not null"`
	ShowID                *uuid.UUID        `gorm:"column:show_id;type:uuid"`
	BatchID               *uuid.UUID        `gorm:"column:batch_id;type:uuid"`
	Qty                   int               `gorm:"column:qty;not null"`
	UnitPriceCents        int64             `gorm:"column:unit_price_cents;not null"`
	TotalCents            int64             `gorm:"column:total_cents;not null"`
	ApplicationFeeCents   int64             `gorm:"column:application_fee_cents;not null;default:0"`
	Currency              string            `gorm:"column:currency;type:text;not null;default:'usd'"`
	CompletionCode        string            `gorm:"column:completion_code;not null"`
	StripePaymentIntentID string            `gorm:"column:stripe_payment_intent_id;not null;default:''"`
	StripeRefundID        *string           `gorm:"column:stripe_refund_id"`
	Status                enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	PaidAt                *time.Time        `gorm:"column:paid_at"`
	FulfilledAt           *time.Time        `gorm:"column:fulfilled_at"`
	CompletedAt           *time.Time        `gorm:"column:completed_at"`
	CancelledAt           *time.Time        `gorm:"column:cancelled_at"`
	RefundedAt            *time.Time        `gorm:"column:refunded_at"`
	CreatedAt             time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(_ *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
