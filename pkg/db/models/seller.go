package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Seller is the tenant entity that lists products and receives funds through
// a Stripe connected account. StripeConnected is derived from the account's
// capability flags; see internal/sellers.
type Seller struct {
	ID                uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	OwnerUserID       uuid.UUID  `gorm:"column:owner_user_id;type:uuid;not null"`
	Name              string     `gorm:"column:name;not null"`
	StripeAccountID   *string    `gorm:"column:stripe_account_id"`
	StripeConnected   bool       `gorm:"column:stripe_connected;not null;default:false"`
	StripeConnectedAt *time.Time `gorm:"column:stripe_connected_at"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Seller) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
