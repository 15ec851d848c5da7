package products

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/showlinehq/showline-backend/pkg/db/models"
)

// Repository defines persistence operations for seller listings.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Product, error)
}
