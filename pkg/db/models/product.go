package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/showlinehq/showline-backend/pkg/enums"
)

// Product is a seller listing. Quantity is decremented by a database trigger
// when a pending order row is inserted, and restored when the order is
// cancelled or refunded; application code only re-validates availability
// before the insert.
type Product struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	SellerID   uuid.UUID           `gorm:"column:seller_id;type:uuid;not null"`
	Title      string              `gorm:"column:title;not null"`
	PriceCents int64               `gorm:"column:price_cents;not null"`
	Quantity   int                 `gorm:"column:quantity;not null;default:0"`
	Status     enums.ProductStatus `gorm:"column:status;type:text;not null;default:'active'"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Available reports whether the requested quantity can still be sold.
func (p *Product) Available(qty int) bool {
	return p.Status == enums.ProductStatusActive && p.Quantity >= qty && qty > 0
}
