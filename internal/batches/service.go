package batches

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/showlinehq/showline-backend/pkg/db/models"
	"github.com/showlinehq/showline-backend/pkg/enums"
	pkgerrors "github.com/showlinehq/showline-backend/pkg/errors"
)

// Service derives batch status from member order statuses. The derivation
// is a pure aggregation; the write is a guarded transition that only ever
// moves an open batch forward.
type Service interface {
	EnsureOpenBatch(ctx context.Context, tx *gorm.DB, sellerID uuid.UUID, showID *uuid.UUID) (uuid.UUID, error)
	Recompute(ctx context.Context, batchID uuid.UUID) error
	MarkPickedUp(ctx context.Context, sellerID, batchID uuid.UUID) error
	ListForSeller(ctx context.Context, sellerID uuid.UUID) ([]models.Batch, error)
}

type ServiceParams struct {
	Repo Repository
}

type service struct {
	repo Repository
}

// NewService builds the batch lifecycle service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "batches repository required")
	}
	return &service{repo: params.Repo}, nil
}

// EnsureOpenBatch finds the seller's open batch for a show, creating one if
// none exists. Runs inside the caller's transaction when tx is provided.
func (s *service) EnsureOpenBatch(ctx context.Context, tx *gorm.DB, sellerID uuid.UUID, showID *uuid.UUID) (uuid.UUID, error) {
	if sellerID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	repo := s.repo.WithTx(tx)

	existing, err := repo.FindOpenForSellerShow(ctx, sellerID, showID)
	if err == nil {
		return existing.ID, nil
	}
	if err != gorm.ErrRecordNotFound {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find open batch")
	}

	created, err := repo.Create(ctx, &models.Batch{
		SellerID: sellerID,
		ShowID:   showID,
		Status:   enums.BatchStatusOpen,
	})
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create batch")
	}
	return created.ID, nil
}

// Recompute derives the aggregate status from member orders: completed once
// no member remains pending/paid, including the forced case where every
// member is refunded/cancelled. Settled batches are left alone.
func (s *service) Recompute(ctx context.Context, batchID uuid.UUID) error {
	if batchID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "batch id required")
	}

	batch, err := s.repo.FindByID(ctx, batchID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "batch not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load batch")
	}
	if batch.Status.Settled() {
		return nil
	}

	counts, err := s.repo.MemberStatusCounts(ctx, batchID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count batch members")
	}

	target, ok := deriveStatus(counts)
	if !ok {
		return nil
	}

	// zero rows here means a concurrent recompute already settled the batch
	_, err = s.repo.TransitionStatus(ctx, batchID, []enums.BatchStatus{enums.BatchStatusOpen}, target)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write batch status")
	}
	return nil
}

func deriveStatus(counts map[enums.OrderStatus]int) (enums.BatchStatus, bool) {
	total := 0
	for _, n := range counts {
		total += n
	}
	if total == 0 {
		return "", false
	}
	if counts[enums.OrderStatusPending] > 0 || counts[enums.OrderStatusPaid] > 0 {
		return "", false
	}
	// an all-refunded/cancelled batch still settles as completed
	return enums.BatchStatusCompleted, true
}

// MarkPickedUp is the seller's pickup confirmation for the whole batch.
func (s *service) MarkPickedUp(ctx context.Context, sellerID, batchID uuid.UUID) error {
	if batchID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "batch id required")
	}
	if sellerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeForbidden, "seller context missing")
	}

	batch, err := s.repo.FindByID(ctx, batchID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "batch not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load batch")
	}
	if batch.SellerID != sellerID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "batch does not belong to seller")
	}
	if batch.Status == enums.BatchStatusPickedUp {
		return nil
	}

	moved, err := s.repo.TransitionStatus(ctx, batchID,
		[]enums.BatchStatus{enums.BatchStatusOpen, enums.BatchStatusCompleted},
		enums.BatchStatusPickedUp)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark batch picked up")
	}
	if !moved {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "batch cannot be picked up in current state")
	}
	return nil
}

func (s *service) ListForSeller(ctx context.Context, sellerID uuid.UUID) ([]models.Batch, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "seller context missing")
	}
	return s.repo.ListForSeller(ctx, sellerID)
}
