package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/showlinehq/showline-backend/api/middleware"
	"github.com/showlinehq/showline-backend/api/responses"
	"github.com/showlinehq/showline-backend/api/validators"
	checkoutsvc "github.com/showlinehq/showline-backend/internal/checkout"
	"github.com/showlinehq/showline-backend/pkg/db/models"
	pkgerrors "github.com/showlinehq/showline-backend/pkg/errors"
	"github.com/showlinehq/showline-backend/pkg/logger"
)

type createIntentRequest struct {
	SellerID  uuid.UUID  `json:"seller_id" validate:"required,uuid4"`
	ProductID uuid.UUID  `json:"product_id" validate:"required,uuid4"`
	ShowID    *uuid.UUID `json:"show_id,omitempty" validate:"omitempty,uuid4"`
	Qty       int        `json:"qty" validate:"required,min=1"`
}

type intentResponse struct {
	IntentID        uuid.UUID  `json:"intent_id"`
	SellerID        uuid.UUID  `json:"seller_id"`
	ProductID       uuid.UUID  `json:"product_id"`
	ShowID          *uuid.UUID `json:"show_id,omitempty"`
	Qty             int        `json:"qty"`
	Status          string     `json:"status"`
	IntentExpiresAt time.Time  `json:"intent_expires_at"`
}

func newIntentResponse(intent *models.CheckoutIntent) intentResponse {
	if intent == nil {
		return intentResponse{}
	}
	return intentResponse{
		IntentID:        intent.ID,
		SellerID:        intent.SellerID,
		ProductID:       intent.ProductID,
		ShowID:          intent.ShowID,
		Qty:             intent.Qty,
		Status:          string(intent.Status),
		IntentExpiresAt: intent.IntentExpiresAt,
	}
}

// CheckoutCreateIntent opens a checkout attempt on one listing.
func CheckoutCreateIntent(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		buyerID := middleware.UserIDFromContext(r.Context())
		if buyerID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing"))
			return
		}

		var payload createIntentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		intent, err := svc.CreateIntent(r.Context(), checkoutsvc.CreateIntentInput{
			BuyerUserID: buyerID,
			SellerID:    payload.SellerID,
			ProductID:   payload.ProductID,
			ShowID:      payload.ShowID,
			Qty:         payload.Qty,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newIntentResponse(intent))
	}
}

// CheckoutPay runs the payment coordinator on an existing intent.
func CheckoutPay(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		buyerID := middleware.UserIDFromContext(r.Context())
		if buyerID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing"))
			return
		}

		intentID, err := uuid.Parse(chi.URLParam(r, "intentId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid intent id"))
			return
		}

		result, err := svc.Pay(r.Context(), checkoutsvc.PayInput{
			BuyerUserID: buyerID,
			IntentID:    intentID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
