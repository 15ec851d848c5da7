package checkout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/showlinehq/showline-backend/pkg/db/models"
)

// Repository defines persistence operations for checkout intents. Every
// status move is a guarded conditional update; the bool result reports
// whether this caller won the write (zero affected rows = false).
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateIntent(ctx context.Context, intent *models.CheckoutIntent) (*models.CheckoutIntent, error)
	FindIntentByID(ctx context.Context, id uuid.UUID) (*models.CheckoutIntent, error)
	LockIntent(ctx context.Context, id uuid.UUID, now time.Time, lockExpiresAt time.Time) (bool, error)
	UnlockIntent(ctx context.Context, id uuid.UUID) (bool, error)
	MarkConsumed(ctx context.Context, id uuid.UUID) (bool, error)
	AttachPaymentIntent(ctx context.Context, id uuid.UUID, stripePaymentIntentID string) error
}
