package sellers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/showlinehq/showline-backend/pkg/db/models"
)

// Repository defines persistence operations for seller entities.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Seller, error)
	FindByOwnerUserID(ctx context.Context, ownerUserID uuid.UUID) (*models.Seller, error)
	FindByStripeAccountID(ctx context.Context, stripeAccountID string) (*models.Seller, error)
	UpdateConnection(ctx context.Context, sellerID uuid.UUID, connected bool, connectedAt *time.Time) error
}
