package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/showlinehq/showline-backend/pkg/enums"
)

// Batch groups orders for one pickup/delivery event of a show.
type Batch struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	SellerID    uuid.UUID         `gorm:"column:seller_id;type:uuid;not null"`
	ShowID      *uuid.UUID        `gorm:"column:show_id;type:uuid"`
	Status      enums.BatchStatus `gorm:"column:status;type:text;not null;default:'open'"`
	ScheduledAt *time.Time        `gorm:"column:scheduled_at"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (b *Batch) BeforeCreate(_ *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
