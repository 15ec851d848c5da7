package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/showlinehq/showline-backend/api/responses"
	"github.com/showlinehq/showline-backend/internal/batches"
	"github.com/showlinehq/showline-backend/pkg/db/models"
	pkgerrors "github.com/showlinehq/showline-backend/pkg/errors"
	"github.com/showlinehq/showline-backend/pkg/logger"
)

type batchResponse struct {
	BatchID     uuid.UUID  `json:"batch_id"`
	ShowID      *uuid.UUID `json:"show_id,omitempty"`
	Status      string     `json:"status"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func newBatchResponse(batch *models.Batch) batchResponse {
	if batch == nil {
		return batchResponse{}
	}
	return batchResponse{
		BatchID:     batch.ID,
		ShowID:      batch.ShowID,
		Status:      string(batch.Status),
		ScheduledAt: batch.ScheduledAt,
		CreatedAt:   batch.CreatedAt,
	}
}

// SellerListBatches returns the seller's pickup batches, newest first.
func SellerListBatches(svc batches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "batch service unavailable"))
			return
		}

		sellerID, err := sellerScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListForSeller(r.Context(), sellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]batchResponse, 0, len(rows))
		for i := range rows {
			out = append(out, newBatchResponse(&rows[i]))
		}
		responses.WriteSuccess(w, map[string]any{"batches": out})
	}
}

// SellerBatchPickup marks a whole batch as handed over.
func SellerBatchPickup(svc batches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "batch service unavailable"))
			return
		}

		sellerID, err := sellerScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		batchID, err := uuid.Parse(chi.URLParam(r, "batchId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid batch id"))
			return
		}

		if err := svc.MarkPickedUp(r.Context(), sellerID, batchID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "picked_up"})
	}
}
