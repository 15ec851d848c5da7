package batches

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/showlinehq/showline-backend/pkg/db/models"
	"github.com/showlinehq/showline-backend/pkg/enums"
)

// Repository defines persistence operations for pickup batches. Status
// writes go through TransitionStatus, guarded by the expected prior
// statuses so the derived value never regresses.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, batch *models.Batch) (*models.Batch, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Batch, error)
	FindOpenForSellerShow(ctx context.Context, sellerID uuid.UUID, showID *uuid.UUID) (*models.Batch, error)
	MemberStatusCounts(ctx context.Context, batchID uuid.UUID) (map[enums.OrderStatus]int, error)
	TransitionStatus(ctx context.Context, batchID uuid.UUID, from []enums.BatchStatus, to enums.BatchStatus) (bool, error)
	ListForSeller(ctx context.Context, sellerID uuid.UUID) ([]models.Batch, error)
}
