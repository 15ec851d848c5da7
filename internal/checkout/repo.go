package checkout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/showlinehq/showline-backend/pkg/db/models"
	"github.com/showlinehq/showline-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a checkout intent repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateIntent(ctx context.Context, intent *models.CheckoutIntent) (*models.CheckoutIntent, error) {
	if err := r.db.WithContext(ctx).Create(intent).Error; err != nil {
		return nil, err
	}
	return intent, nil
}

func (r *repository) FindIntentByID(ctx context.Context, id uuid.UUID) (*models.CheckoutIntent, error) {
	var intent models.CheckoutIntent
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&intent).Error
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

// LockIntent is the atomic authority for intent -> locked. The expiry check
// is part of the predicate; a timestamp comparison is passed in rather than
// evaluated by the database clock so concurrent callers race on one row.
func (r *repository) LockIntent(ctx context.Context, id uuid.UUID, now time.Time, lockExpiresAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CheckoutIntent{}).
		Where("id = ? AND status = ? AND intent_expires_at > ?", id, enums.CheckoutIntentStatusIntent, now).
		Updates(map[string]any{
			"status":          enums.CheckoutIntentStatusLocked,
			"lock_expires_at": lockExpiresAt,
			"updated_at":      now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// UnlockIntent reverses a lock only while the intent is still locked, so the
// buyer can retry after a downstream failure.
func (r *repository) UnlockIntent(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CheckoutIntent{}).
		Where("id = ? AND status = ?", id, enums.CheckoutIntentStatusLocked).
		Updates(map[string]any{
			"status":          enums.CheckoutIntentStatusIntent,
			"lock_expires_at": nil,
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) MarkConsumed(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CheckoutIntent{}).
		Where("id = ? AND status = ?", id, enums.CheckoutIntentStatusLocked).
		Updates(map[string]any{
			"status":     enums.CheckoutIntentStatusConsumed,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) AttachPaymentIntent(ctx context.Context, id uuid.UUID, stripePaymentIntentID string) error {
	return r.db.WithContext(ctx).
		Model(&models.CheckoutIntent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"stripe_payment_intent_id": stripePaymentIntentID,
			"updated_at":               time.Now().UTC(),
		}).Error
}
