package batches

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

// NewRepository builds a batches repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, batch *models.Batch) (*models.Batch, error) {
	if err := r.db.WithContext(ctx).Create(batch).Error; err != nil {
		return nil, err
	}
	return batch, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Batch, error) {
	var batch models.Batch
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&batch).Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *repository) FindOpenForSellerShow(ctx context.Context, sellerID uuid.UUID, showID *uuid.UUID) (*models.Batch, error) {
	query := r.db.WithContext(ctx).
		Where("seller_id = ? AND status = ?", sellerID, enums.BatchStatusOpen)
	if showID != nil {
		query = query.Where("show_id = ?", *showID)
	} else {
		query = query.Where("show_id IS NULL")
	}

	var batch models.Batch
	err := query.Order("created_at ASC").First(&batch).Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *repository) MemberStatusCounts(ctx context.Context, batchID uuid.UUID) (map[enums.OrderStatus]int, error) {
	type row struct {
		Status enums.OrderStatus
		Total  int
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("status, COUNT(*) AS total").
		Where("batch_id = ?", batchID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[enums.OrderStatus]int, len(rows))
	for _, item := range rows {
		counts[item.Status] = item.Total
	}
	return counts, nil
}

func (r *repository) TransitionStatus(ctx context.Context, batchID uuid.UUID, from []enums.BatchStatus, to enums.BatchStatus) (bool, error) {
	if len(from) == 0 {
		return false, nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.Batch{}).
		Where("id = ? AND status IN ?", batchID, from).
		Updates(map[string]any{
			"status":     to,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) ListForSeller(ctx context.Context, sellerID uuid.UUID) ([]models.Batch, error) {
	var rows []models.Batch
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
