package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/showlinehq/showline-backend/pkg/db/models"
	"github.com/showlinehq/showline-backend/pkg/enums"
	"github.com/showlinehq/showline-backend/pkg/pagination"
)

// Repository defines persistence operations for orders. Transition is the
// single primitive every status move goes through: a conditional update
// guarded by the expected prior status. Zero affected rows means another
// handler already moved the row and must be treated as benign.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByStripePaymentIntentID(ctx context.Context, stripePaymentIntentID string) (*models.Order, error)
	SetStripePaymentIntentID(ctx context.Context, orderID uuid.UUID, stripePaymentIntentID string) error
	Transition(ctx context.Context, orderID uuid.UUID, from []enums.OrderStatus, updates map[string]any) (bool, error)
	MarkRefunded(ctx context.Context, orderID uuid.UUID, stripeRefundID string, now time.Time) (bool, error)
	ListByBuyer(ctx context.Context, buyerUserID uuid.UUID, params pagination.Params) ([]models.Order, string, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.Order, string, error)
	FindStaleBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error)
}
